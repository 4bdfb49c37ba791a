// SPDX-License-Identifier: Apache-2.0

package skinmerge_test

import (
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/skinmerge"
)

// parseValue decodes a YAML snippet into a Value.
func parseValue(t *testing.T, src string) skinmerge.Value {
	t.Helper()
	var doc any
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("failed to parse YAML: %v", err)
	}
	return skinmerge.FromAny(doc)
}

func parseTree(t *testing.T, src string) skinmerge.Tree {
	t.Helper()
	tree, ok := parseValue(t, src).(skinmerge.Tree)
	if !ok {
		t.Fatalf("not a tree:\n%s", src)
	}
	return tree
}

func parseSequence(t *testing.T, src string) skinmerge.Sequence {
	t.Helper()
	seq, ok := parseValue(t, src).(skinmerge.Sequence)
	if !ok {
		t.Fatalf("not a sequence:\n%s", src)
	}
	return seq
}

func dump(v skinmerge.Value) string {
	out, err := yaml.Marshal(skinmerge.ToAny(v))
	if err != nil {
		return err.Error()
	}
	return string(out)
}

func assertEqual(t *testing.T, expected, actual skinmerge.Value) {
	t.Helper()
	if !skinmerge.Equal(expected, actual) {
		t.Fatalf("expected:\n%s\nactual:\n%s", dump(expected), dump(actual))
	}
}

// names returns the "name" field of every tree element of seq.
func names(t *testing.T, v skinmerge.Value) []string {
	t.Helper()
	seq, ok := v.(skinmerge.Sequence)
	if !ok {
		t.Fatalf("not a sequence: %T", v)
	}
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		tree, ok := item.(skinmerge.Tree)
		if !ok {
			t.Fatalf("element is not a tree: %T", item)
		}
		name, _ := tree["name"].(skinmerge.Scalar)
		s, _ := name.V.(string)
		out = append(out, s)
	}
	return out
}
