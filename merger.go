// SPDX-License-Identifier: Apache-2.0

package skinmerge

// UntypedMerger merges whole documents with fixed options.
//
// An UntypedMerger holds no state between calls and is safe for concurrent use.
type UntypedMerger struct {
	opts     Options        // merge configuration
	metadata *fieldMetadata // per-field overrides; nil for untyped merges
}

// NewUntypedMerger creates a new [UntypedMerger] with the given options.
// Returns an error if the options are invalid.
func NewUntypedMerger(opts Options) (*UntypedMerger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &UntypedMerger{opts: opts}, nil
}

// Options returns the merge options configured for this merger.
func (m *UntypedMerger) Options() Options {
	return m.opts
}

// Merge merges multiple documents. See [UntypedMerger.Merge] for details.
func Merge(opts Options, docs ...any) (any, error) {
	m, err := NewUntypedMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.Merge(docs...), nil
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
// See [UntypedMerger.MergeMarshal] for details.
func MergeMarshal(
	opts Options,
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	docs ...[]byte,
) ([]byte, error) {
	m, err := NewUntypedMerger(opts)
	if err != nil {
		return nil, err
	}
	return m.MergeMarshal(unmarshal, marshal, docs...)
}

// Merge merges decoded documents left-to-right, each later document acting
// as the source for the result so far. The first document is typically the
// default skin and the rest are overrides.
//
// Documents are converted with [FromAny] and the result with [ToAny].
// Null documents (such as an empty YAML file) are skipped.
//
// Example:
//
//	opts := SkinOptions()
//	defaults := map[string]any{"buttons": []any{
//		map[string]any{"name": "playPause"},
//		map[string]any{"name": "flexibleSpace"},
//		map[string]any{"name": "fullscreen"},
//	}}
//	override := map[string]any{"buttons": []any{
//		map[string]any{"name": "share"},
//	}}
//	result, _ := Merge(opts, defaults, override)
//	// Result: playPause, flexibleSpace, share, fullscreen
func (m *UntypedMerger) Merge(docs ...any) any {
	values := make([]Value, len(docs))
	for i, doc := range docs {
		values[i] = FromAny(doc)
	}
	return ToAny(m.MergeValues(values...))
}

// MergeValues merges documents left-to-right like [UntypedMerger.Merge].
// It returns [Null] if every document is null.
func (m *UntypedMerger) MergeValues(docs ...Value) Value {
	var result Value
	for _, doc := range docs {
		if isNull(doc) {
			continue
		}
		if result == nil {
			result = cloneIf(doc, m.opts)
			continue
		}
		result = mergeValues(result, doc, m.opts, m.metadata)
	}
	if result == nil {
		return Null
	}
	return result
}

// MergeMarshal merges byte documents using provided unmarshal and marshal functions.
//
// Documents are unmarshaled, merged left-to-right with [UntypedMerger.Merge],
// then marshaled back to bytes. Works with any serialization format (YAML,
// JSON, TOML, etc.) via custom marshal functions.
//
// Returns an empty byte slice if docs is empty. Returns an error if
// unmarshaling or marshaling fails.
//
// Example:
//
//	import "github.com/goccy/go-yaml"
//
//	defaults := []byte("buttons:\n  - name: playPause\n  - name: flexibleSpace")
//	override := []byte("buttons:\n  - name: share")
//	result, _ := MergeMarshal(SkinOptions(), yaml.Unmarshal, yaml.Marshal, defaults, override)
func (m *UntypedMerger) MergeMarshal(
	unmarshal func([]byte, any) error,
	marshal func(any) ([]byte, error),
	docs ...[]byte,
) ([]byte, error) {
	if len(docs) == 0 {
		return []byte{}, nil
	}

	parsed := make([]any, len(docs))
	for i, doc := range docs {
		var current any
		if err := unmarshal(doc, &current); err != nil {
			return nil, &MarshalError{
				Err:      err,
				DocIndex: i,
			}
		}
		parsed[i] = current
	}

	return marshal(m.Merge(parsed...))
}

func isNull(v Value) bool {
	return Classify(v) == KindScalar && scalarOf(v) == nil
}
