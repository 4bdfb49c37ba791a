// SPDX-License-Identifier: Apache-2.0

package skinmerge

import (
	"fmt"
	"strings"
)

// DefaultInsertionMarker is the union key value of the control that new keyed
// items are inserted after in [KeyedPrepend] mode.
const DefaultInsertionMarker = "flexibleSpace"

// SequenceFusion specifies how positional (non-keyed) sequences are merged.
type SequenceFusion int

const (
	// SequenceReplace replaces the base sequence with the overlay (default behavior).
	SequenceReplace SequenceFusion = iota
	// SequenceDeep merges elements by index and appends new scalars not already present.
	SequenceDeep
)

func (f SequenceFusion) String() string {
	switch f {
	case SequenceReplace:
		return "SequenceReplace"
	case SequenceDeep:
		return "SequenceDeep"
	default:
		return fmt.Sprintf("SequenceFusion(%d)", f)
	}
}

// ParseSequenceFusion converts "replace" or "deep" to a [SequenceFusion].
func ParseSequenceFusion(s string) (SequenceFusion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return SequenceReplace, nil
	case "deep", "deepmerge":
		return SequenceDeep, nil
	default:
		return SequenceReplace, fmt.Errorf("%w: unknown sequence fusion %q (must be replace or deep)", ErrInvalidOptions, s)
	}
}

// KeyedFusion specifies how keyed sequences are merged.
type KeyedFusion int

const (
	// KeyedReplace replaces the base sequence with the overlay (default behavior).
	KeyedReplace KeyedFusion = iota
	// KeyedPrepend merges matched items by key and inserts unmatched overlay
	// items right after the insertion marker.
	KeyedPrepend
	// KeyedDeep merges matched items by key, keeping the base order.
	KeyedDeep
)

func (f KeyedFusion) String() string {
	switch f {
	case KeyedReplace:
		return "KeyedReplace"
	case KeyedPrepend:
		return "KeyedPrepend"
	case KeyedDeep:
		return "KeyedDeep"
	default:
		return fmt.Sprintf("KeyedFusion(%d)", f)
	}
}

// ParseKeyedFusion converts "replace", "prepend", or "deep" to a [KeyedFusion].
func ParseKeyedFusion(s string) (KeyedFusion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replace":
		return KeyedReplace, nil
	case "prepend":
		return KeyedPrepend, nil
	case "deep", "deepmerge":
		return KeyedDeep, nil
	default:
		return KeyedReplace, fmt.Errorf("%w: unknown keyed fusion %q (must be replace, prepend, or deep)", ErrInvalidOptions, s)
	}
}

// Options configures merge behavior. Options are passed by value through
// every recursive call, so a subtree may be merged with different options
// than its parent (see [Merger]).
//
// The zero value is valid:
//   - values copied from the source are shared, not cloned
//   - no union key, so every sequence is positional
//   - [SequenceReplace] and [KeyedReplace], so sequences are replaced wholesale
type Options struct {
	// CloneOnCopy deep-clones every value copied into the result, so the
	// result shares no mutable structure with either input.
	CloneOnCopy bool

	// UnionKey is the field used to match tree elements of keyed sequences,
	// conventionally "name". If empty, all sequences are positional.
	UnionKey string

	// SequenceFusion specifies how positional sequences are merged.
	SequenceFusion SequenceFusion

	// KeyedFusion specifies how keyed sequences are merged.
	KeyedFusion KeyedFusion

	// SwapRoles makes the source the merge base and the target the overlay.
	SwapRoles bool

	// InsertionMarker is the union key value after which unmatched items are
	// inserted in [KeyedPrepend] mode. Defaults to [DefaultInsertionMarker].
	InsertionMarker string
}

// SkinOptions returns the options used for top-level skin merges: controls
// are matched by name, new controls land after the flexible space, plain
// lists are replaced, and the result owns all of its nodes.
func SkinOptions() Options {
	return Options{
		CloneOnCopy:     true,
		UnionKey:        "name",
		SequenceFusion:  SequenceReplace,
		KeyedFusion:     KeyedPrepend,
		InsertionMarker: DefaultInsertionMarker,
	}
}

// Validate reports whether the fusion modes are known values.
// An empty union key is valid; keyed modes then have no effect.
func (o Options) Validate() error {
	switch o.SequenceFusion {
	case SequenceReplace, SequenceDeep:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.SequenceFusion)
	}
	switch o.KeyedFusion {
	case KeyedReplace, KeyedPrepend, KeyedDeep:
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.KeyedFusion)
	}
	return nil
}

func (o Options) marker() string {
	if o.InsertionMarker == "" {
		return DefaultInsertionMarker
	}
	return o.InsertionMarker
}

// orient returns the merge base and overlay for a target and source.
// Swapping is symmetric, so orient also maps a base and overlay back to
// the target and source of a recursive call.
func orient[T any](target, source T, opts Options) (base, overlay T) {
	if opts.SwapRoles {
		return source, target
	}
	return target, source
}
