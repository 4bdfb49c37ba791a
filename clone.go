// SPDX-License-Identifier: Apache-2.0

package skinmerge

// Clone returns a deep copy of v. Trees and sequences are copied recursively,
// preserving key sets and element order; scalars are returned as-is.
func Clone(v Value) Value {
	switch v := v.(type) {
	case Tree:
		if v == nil {
			return v
		}
		out := make(Tree, len(v))
		for k, child := range v {
			out[k] = Clone(child)
		}
		return out
	case Sequence:
		if v == nil {
			return v
		}
		out := make(Sequence, len(v))
		for i, child := range v {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}

// cloneIf copies v into a result, deep-cloning it only when
// [Options.CloneOnCopy] is set.
func cloneIf(v Value, opts Options) Value {
	if opts.CloneOnCopy {
		return Clone(v)
	}
	return v
}
