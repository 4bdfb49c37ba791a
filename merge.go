// SPDX-License-Identifier: Apache-2.0

// Package skinmerge merges skin configuration documents: a built-in default
// tree combined with a partial override tree.
//
// Trees are deep-merged key by key. Sequences are either replaced wholesale or
// merged element by element, matching tree elements by a union key such as a
// control's "name" and placing new controls after an insertion marker.
// It works with any serialization format (YAML, JSON, TOML, etc.) that
// unmarshals to map[string]any or []any; see [FromAny] and [ToAny].
//
// Merging never fails and never mutates its inputs.
package skinmerge

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple error checking with [errors.Is].
// For detailed error information, use [errors.As] with the typed errors below.
var (
	// ErrInvalidOptions indicates invalid merge options were provided.
	ErrInvalidOptions = errors.New("invalid options")
	// ErrMarshal indicates a marshaling or unmarshaling operation failed.
	ErrMarshal = errors.New("marshal error")
	// ErrInvalidTag indicates an invalid sm struct tag.
	ErrInvalidTag = errors.New("invalid tag")
)

// MarshalError is returned when unmarshaling a document fails.
type MarshalError struct {
	// Err is the underlying error returned by a marshaling function.
	Err error
	// DocIndex tells which document the error occurred.
	DocIndex int
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("cannot unmarshal document at position %d: %v", e.DocIndex, e.Err)
}

func (e *MarshalError) Unwrap() error {
	return e.Err
}

func (e *MarshalError) Is(target error) bool {
	return target == ErrMarshal
}

// MergeTree merges source into target and returns a new tree.
//
// The result starts as a copy of the base (target, or source when
// [Options.SwapRoles] is set). For each key of the overlay:
//   - keys missing from the base are copied
//   - trees on both sides are merged recursively
//   - sequences on both sides are merged with [MergeSequence]
//   - anything else, including a type mismatch, takes the overlay value
//
// Keys present only in the base are kept unchanged.
func MergeTree(target, source Tree, opts Options) Tree {
	return mergeTree(target, source, opts, nil)
}

// MergeValues merges any two values: trees with [MergeTree], sequences with
// [MergeSequence]. Otherwise the overlay value wins.
func MergeValues(target, source Value, opts Options) Value {
	return mergeValues(target, source, opts, nil)
}

func mergeValues(target, source Value, opts Options, meta *fieldMetadata) Value {
	kt, ks := Classify(target), Classify(source)
	switch {
	case kt == KindTree && ks == KindTree:
		return mergeTree(target.(Tree), source.(Tree), opts, meta)
	case kt == KindSequence && ks == KindSequence:
		return mergeSequence(target.(Sequence), source.(Sequence), opts, meta)
	default:
		_, overlay := orient(target, source, opts)
		return cloneIf(overlay, opts)
	}
}

func mergeTree(target, source Tree, opts Options, meta *fieldMetadata) Tree {
	base, overlay := orient(target, source, opts)

	result := make(Tree, len(base)+len(overlay))
	for k, v := range base {
		result[k] = cloneIf(v, meta.child(k).apply(opts))
	}

	for k, v := range overlay {
		child := meta.child(k)
		childOpts := child.apply(opts)

		baseVal, exists := base[k]
		if !exists {
			result[k] = cloneIf(v, childOpts)
			continue
		}

		// Hand the pair back in target/source order; the callee picks its
		// own base from childOpts.
		t, s := orient(baseVal, v, opts)
		result[k] = mergeValues(t, s, childOpts, child)
	}

	return result
}
