// SPDX-License-Identifier: Apache-2.0

package skinmerge

// MergeSequence merges source into target and returns a new sequence.
//
// A sequence is keyed when its first overlay element is a tree carrying a
// non-empty [Options.UnionKey] value. Keyed sequences under [KeyedReplace] and
// positional sequences under [SequenceReplace] are replaced by the overlay.
//
// Otherwise the result starts as a copy of the base and the overlay is walked
// by index:
//   - elements past the end of the base are appended
//   - keyed tree elements are merged into the first base element with the
//     same union key value; unmatched ones are remembered. Repeated keys in
//     the overlay merge in turn, so later fields win over earlier ones
//   - other tree elements are merged with the base element at the same index
//   - scalars and nested sequences are appended unless already in the base
//
// Under [KeyedPrepend], unmatched keyed elements are inserted in overlay order
// right after the element whose union key equals [Options.InsertionMarker],
// or appended when there is no such element. Under [KeyedDeep] they are
// dropped.
//
// Role selection happens first, so under [Options.SwapRoles] the replacement
// shortcut inspects and returns the target.
//
// Only the first element decides whether the sequence is keyed; a sequence
// whose first element lacks the union key is positional even if later
// elements carry it.
func MergeSequence(target, source Sequence, opts Options) Sequence {
	return mergeSequence(target, source, opts, nil)
}

func mergeSequence(target, source Sequence, opts Options, meta *fieldMetadata) Sequence {
	base, overlay := orient(target, source, opts)

	if len(overlay) > 0 {
		_, keyed := unionKeyOf(overlay[0], opts.UnionKey)
		if keyed && opts.KeyedFusion == KeyedReplace {
			return copySequence(overlay, opts)
		}
		if !keyed && opts.SequenceFusion != SequenceDeep {
			return copySequence(overlay, opts)
		}
	}

	result := copySequence(base, opts)
	var unmatched []Value

	for i, item := range overlay {
		if i >= len(base) {
			result = append(result, cloneIf(item, opts))
			continue
		}

		if Classify(item) != KindTree {
			if !contains(base, item) {
				result = append(result, cloneIf(item, opts))
			}
			continue
		}

		key, keyed := unionKeyOf(item, opts.UnionKey)
		if !keyed {
			t, s := orient(base[i], item, opts)
			result[i] = mergeValues(t, s, opts, meta)
			continue
		}

		j := indexOfKey(base, opts.UnionKey, key)
		if j < 0 {
			unmatched = append(unmatched, item)
			continue
		}
		// Merge into the running result so repeated keys accumulate.
		t, s := orient(result[j], item, opts)
		result[j] = mergeValues(t, s, opts, meta)
	}

	if opts.KeyedFusion == KeyedPrepend && len(unmatched) > 0 {
		result = insertAfterMarker(result, unmatched, opts)
	}

	return result
}

// insertAfterMarker inserts items right after the insertion marker element,
// or appends them when result has no marker.
func insertAfterMarker(result Sequence, items []Value, opts Options) Sequence {
	at := indexOfKey(result, opts.UnionKey, Scalar{V: opts.marker()})
	if at < 0 {
		at = len(result)
	} else {
		at++
	}

	out := make(Sequence, 0, len(result)+len(items))
	out = append(out, result[:at]...)
	for _, item := range items {
		out = append(out, cloneIf(item, opts))
	}
	return append(out, result[at:]...)
}

// unionKeyOf returns the union key value of a tree element.
// The bool is false when key is empty, v is not a tree, or the value is
// missing or empty (null, "", false, 0).
func unionKeyOf(v Value, key string) (Value, bool) {
	if key == "" {
		return nil, false
	}
	tree, ok := v.(Tree)
	if !ok {
		return nil, false
	}
	kv, ok := tree[key]
	if !ok || !truthy(kv) {
		return nil, false
	}
	return kv, true
}

// indexOfKey returns the index of the first element whose union key value
// equals want, or -1.
func indexOfKey(seq Sequence, key string, want Value) int {
	for i, item := range seq {
		if kv, ok := unionKeyOf(item, key); ok && Equal(kv, want) {
			return i
		}
	}
	return -1
}

func contains(seq Sequence, v Value) bool {
	for _, item := range seq {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// copySequence returns a new slice holding the elements of seq, cloned when
// [Options.CloneOnCopy] is set.
func copySequence(seq Sequence, opts Options) Sequence {
	out := make(Sequence, len(seq))
	for i, item := range seq {
		out[i] = cloneIf(item, opts)
	}
	return out
}
