// SPDX-License-Identifier: Apache-2.0

package skinmerge_test

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sam-fredrickson/skinmerge"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		value skinmerge.Value
		want  skinmerge.Kind
	}{
		{"nil", nil, skinmerge.KindScalar},
		{"null", skinmerge.Null, skinmerge.KindScalar},
		{"string", skinmerge.Scalar{V: "a"}, skinmerge.KindScalar},
		{"number", skinmerge.Scalar{V: 1.5}, skinmerge.KindScalar},
		{"date", skinmerge.Scalar{V: time.Now()}, skinmerge.KindScalar},
		{"pattern", skinmerge.Scalar{V: regexp.MustCompile(`^a`)}, skinmerge.KindScalar},
		{"tree", skinmerge.Tree{}, skinmerge.KindTree},
		{"nil tree", skinmerge.Tree(nil), skinmerge.KindScalar},
		{"sequence", skinmerge.Sequence{}, skinmerge.KindSequence},
		{"nil sequence", skinmerge.Sequence(nil), skinmerge.KindScalar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := skinmerge.Classify(tt.value); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFromAny(t *testing.T) {
	now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`\d+`)

	tests := []struct {
		name string
		in   any
		want skinmerge.Kind
	}{
		{"nil", nil, skinmerge.KindScalar},
		{"string", "a", skinmerge.KindScalar},
		{"map", map[string]any{"a": 1}, skinmerge.KindTree},
		{"typed map", map[string]int{"a": 1}, skinmerge.KindTree},
		{"any-keyed map", map[any]any{"a": 1}, skinmerge.KindTree},
		{"int-keyed map", map[int]any{1: "a"}, skinmerge.KindScalar},
		{"slice", []any{1, 2}, skinmerge.KindSequence},
		{"typed slice", []string{"a"}, skinmerge.KindSequence},
		{"table array", []map[string]any{{"name": "a"}}, skinmerge.KindSequence},
		{"array", [2]int{1, 2}, skinmerge.KindSequence},
		{"bytes", []byte("abc"), skinmerge.KindScalar},
		{"date", now, skinmerge.KindScalar},
		{"date pointer", &now, skinmerge.KindScalar},
		{"pattern", pattern, skinmerge.KindScalar},
		{"struct", struct{ A int }{1}, skinmerge.KindScalar},
		{"nil map", map[string]any(nil), skinmerge.KindScalar},
		{"nil slice", []any(nil), skinmerge.KindScalar},
		{"pointer to map", &map[string]any{"a": 1}, skinmerge.KindTree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := skinmerge.Classify(skinmerge.FromAny(tt.in)); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFromAny_TOMLTableArray(t *testing.T) {
	var doc any
	src := `
[[buttons]]
name = "playPause"

[[buttons]]
name = "flexibleSpace"
`
	if _, err := toml.Decode(src, &doc); err != nil {
		t.Fatal(err)
	}

	v := skinmerge.FromAny(doc).(skinmerge.Tree)
	buttons, ok := v["buttons"].(skinmerge.Sequence)
	if !ok {
		t.Fatalf("expected buttons sequence, got %T", v["buttons"])
	}
	if got := names(t, buttons); !reflect.DeepEqual(got, []string{"playPause", "flexibleSpace"}) {
		t.Fatalf("unexpected names: %v", got)
	}
}

func TestToAny_RoundTrip(t *testing.T) {
	src := []byte(`{"general": {"accentColor": "#448aff"}, "buttons": [{"name": "share", "minWidth": 45}], "flag": true, "none": null}`)
	var doc any
	if err := json.Unmarshal(src, &doc); err != nil {
		t.Fatal(err)
	}

	out := skinmerge.ToAny(skinmerge.FromAny(doc))
	if !reflect.DeepEqual(doc, out) {
		t.Fatalf("expected %v, got %v", doc, out)
	}
}

func TestToAny_DoesNotShare(t *testing.T) {
	v := skinmerge.Tree{"a": skinmerge.Sequence{skinmerge.Scalar{V: 1}}}
	out := skinmerge.ToAny(v).(map[string]any)
	out["a"].([]any)[0] = 2

	if !skinmerge.Equal(v["a"].(skinmerge.Sequence)[0], skinmerge.Scalar{V: 1}) {
		t.Fatal("ToAny result shares storage with its input")
	}
}

func TestEqual(t *testing.T) {
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b skinmerge.Value
		want bool
	}{
		{"int and uint", skinmerge.Scalar{V: int64(3)}, skinmerge.Scalar{V: uint64(3)}, true},
		{"large ints", skinmerge.Scalar{V: int64(1<<53 + 1)}, skinmerge.Scalar{V: int64(1 << 53)}, false},
		{"large uints", skinmerge.Scalar{V: uint64(1<<63 + 1)}, skinmerge.Scalar{V: uint64(1 << 63)}, false},
		{"large int and uint", skinmerge.Scalar{V: int64(1<<53 + 1)}, skinmerge.Scalar{V: uint64(1<<53 + 1)}, true},
		{"negative int and uint", skinmerge.Scalar{V: int64(-1)}, skinmerge.Scalar{V: uint64(math.MaxUint64)}, false},
		{"NaN", skinmerge.Scalar{V: math.NaN()}, skinmerge.Scalar{V: math.NaN()}, true},
		{"NaN and number", skinmerge.Scalar{V: math.NaN()}, skinmerge.Scalar{V: 0.0}, false},
		{"sequences of large ints", skinmerge.Sequence{skinmerge.Scalar{V: int64(1<<53 + 1)}}, skinmerge.Sequence{skinmerge.Scalar{V: int64(1 << 53)}}, false},
		{"int and float", skinmerge.Scalar{V: 3}, skinmerge.Scalar{V: 3.0}, true},
		{"different numbers", skinmerge.Scalar{V: 3}, skinmerge.Scalar{V: 4}, false},
		{"number and string", skinmerge.Scalar{V: 3}, skinmerge.Scalar{V: "3"}, false},
		{"nulls", skinmerge.Null, nil, true},
		{"null and empty string", skinmerge.Null, skinmerge.Scalar{V: ""}, false},
		{"dates in zones", skinmerge.Scalar{V: at}, skinmerge.Scalar{V: at.In(time.FixedZone("x", 3600))}, true},
		{"trees", skinmerge.Tree{"a": skinmerge.Scalar{V: 1}}, skinmerge.Tree{"a": skinmerge.Scalar{V: 1.0}}, true},
		{"trees with different keys", skinmerge.Tree{"a": skinmerge.Null}, skinmerge.Tree{"b": skinmerge.Null}, false},
		{"sequence order", skinmerge.Sequence{skinmerge.Scalar{V: 1}, skinmerge.Scalar{V: 2}}, skinmerge.Sequence{skinmerge.Scalar{V: 2}, skinmerge.Scalar{V: 1}}, false},
		{"tree and sequence", skinmerge.Tree{}, skinmerge.Sequence{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := skinmerge.Equal(tt.a, tt.b); got != tt.want {
				t.Fatalf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind skinmerge.Kind
		want string
	}{
		{skinmerge.KindScalar, "Scalar"},
		{skinmerge.KindTree, "Tree"},
		{skinmerge.KindSequence, "Sequence"},
		{skinmerge.Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestClone(t *testing.T) {
	orig := parseValue(t, `{a: [1, {b: 2}], c: {d: [x]}}`)
	cloned := skinmerge.Clone(orig)
	assertEqual(t, orig, cloned)

	cloned.(skinmerge.Tree)["a"].(skinmerge.Sequence)[1].(skinmerge.Tree)["b"] = skinmerge.Scalar{V: 3}
	cloned.(skinmerge.Tree)["c"].(skinmerge.Tree)["d"].(skinmerge.Sequence)[0] = skinmerge.Scalar{V: "y"}
	cloned.(skinmerge.Tree)["e"] = skinmerge.Null

	assertEqual(t, parseValue(t, `{a: [1, {b: 2}], c: {d: [x]}}`), orig)
}

func TestClone_Scalars(t *testing.T) {
	for _, v := range []skinmerge.Value{nil, skinmerge.Null, skinmerge.Scalar{V: "a"}, skinmerge.Tree(nil), skinmerge.Sequence(nil)} {
		if got := skinmerge.Clone(v); !reflect.DeepEqual(got, v) {
			t.Fatalf("expected %#v, got %#v", v, got)
		}
	}
}
