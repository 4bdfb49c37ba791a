// SPDX-License-Identifier: Apache-2.0

package skinmerge

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"time"
)

// Kind is the classification of a [Value].
type Kind int

const (
	// KindScalar is a leaf value: string, number, boolean, null, or an opaque value.
	KindScalar Kind = iota
	// KindTree is a mapping from string keys to values.
	KindTree
	// KindSequence is an ordered list of values.
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "Scalar"
	case KindTree:
		return "Tree"
	case KindSequence:
		return "Sequence"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a node of a skin configuration document.
// It is one of [Scalar], [Tree], or [Sequence].
type Value interface {
	isValue()
}

// Scalar is a leaf value. V holds a string, number, bool, nil, or an opaque
// value such as a [time.Time] that must never be merged structurally.
type Scalar struct {
	V any
}

// Tree maps keys to values. Key order carries no meaning.
type Tree map[string]Value

// Sequence is an ordered list of values.
type Sequence []Value

func (Scalar) isValue()   {}
func (Tree) isValue()     {}
func (Sequence) isValue() {}

// Null is the null scalar.
var Null = Scalar{}

// Classify reports the kind of v. It never fails: a nil Value, nil Tree,
// and nil Sequence are all null scalars.
func Classify(v Value) Kind {
	switch v := v.(type) {
	case Tree:
		if v == nil {
			return KindScalar
		}
		return KindTree
	case Sequence:
		if v == nil {
			return KindScalar
		}
		return KindSequence
	default:
		return KindScalar
	}
}

// FromAny converts a decoded document (as produced by YAML, JSON, or TOML
// unmarshaling into an any) into a [Value].
//
// Maps with string keys become trees and slices become sequences, whatever
// their element types. Dates and compiled patterns are kept as opaque
// scalars, as is anything else that is not a map or slice.
func FromAny(x any) Value {
	switch x := x.(type) {
	case nil:
		return Null
	case Value:
		return x
	case map[string]any:
		if x == nil {
			return Null
		}
		tree := make(Tree, len(x))
		for k, v := range x {
			tree[k] = FromAny(v)
		}
		return tree
	case []any:
		if x == nil {
			return Null
		}
		seq := make(Sequence, len(x))
		for i, v := range x {
			seq[i] = FromAny(v)
		}
		return seq
	case []byte, time.Time, *time.Time, regexp.Regexp, *regexp.Regexp:
		return Scalar{V: x}
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return Null
		}
		tree := make(Tree, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, ok := mapKey(iter.Key())
			if !ok {
				return Scalar{V: x}
			}
			tree[key] = FromAny(iter.Value().Interface())
		}
		return tree
	case reflect.Slice:
		if rv.IsNil() {
			return Null
		}
		fallthrough
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Scalar{V: x}
		}
		seq := make(Sequence, rv.Len())
		for i := range seq {
			seq[i] = FromAny(rv.Index(i).Interface())
		}
		return seq
	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}
		return FromAny(rv.Elem().Interface())
	default:
		return Scalar{V: x}
	}
}

// mapKey accepts string keys and the any-typed keys some YAML decoders
// produce when they hold strings.
func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Kind() != reflect.String {
		return "", false
	}
	return k.String(), true
}

// ToAny converts a [Value] back into plain Go values: map[string]any for
// trees, []any for sequences, and the wrapped value for scalars.
// The result shares no maps or slices with v.
func ToAny(v Value) any {
	switch v := v.(type) {
	case Tree:
		if v == nil {
			return nil
		}
		m := make(map[string]any, len(v))
		for k, child := range v {
			m[k] = ToAny(child)
		}
		return m
	case Sequence:
		if v == nil {
			return nil
		}
		s := make([]any, len(v))
		for i, child := range v {
			s[i] = ToAny(child)
		}
		return s
	case Scalar:
		return v.V
	default:
		return nil
	}
}

// Equal reports whether a and b are structurally equal.
//
// Numbers compare by value regardless of their Go type, so an int64 decoded
// from one document equals a uint64 or float64 decoded from another.
// Dates compare with [time.Time.Equal].
func Equal(a, b Value) bool {
	ka, kb := Classify(a), Classify(b)
	if ka != kb {
		return false
	}
	switch ka {
	case KindTree:
		ta, tb := a.(Tree), b.(Tree)
		if len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}
		return true
	case KindSequence:
		sa, sb := a.(Sequence), b.(Sequence)
		if len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !Equal(sa[i], sb[i]) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(scalarOf(a), scalarOf(b))
	}
}

// scalarOf unwraps a scalar-classified value. Nil trees and sequences are null.
func scalarOf(v Value) any {
	if s, ok := v.(Scalar); ok {
		return s.V
	}
	return nil
}

func scalarEqual(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && numberEqual(x, y)
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// numeric holds a scalar number in its widest Go representation.
type numeric struct {
	kind reflect.Kind // Int64, Uint64 or Float64
	i    int64
	u    uint64
	f    float64
}

func (n numeric) float() float64 {
	switch n.kind {
	case reflect.Int64:
		return float64(n.i)
	case reflect.Uint64:
		return float64(n.u)
	default:
		return n.f
	}
}

// numberEqual compares integers exactly and falls back to float64 only when
// one side is a float. NaN equals NaN.
func numberEqual(x, y numeric) bool {
	switch {
	case x.kind == reflect.Int64 && y.kind == reflect.Int64:
		return x.i == y.i
	case x.kind == reflect.Uint64 && y.kind == reflect.Uint64:
		return x.u == y.u
	case x.kind == reflect.Int64 && y.kind == reflect.Uint64:
		return x.i >= 0 && uint64(x.i) == y.u
	case x.kind == reflect.Uint64 && y.kind == reflect.Int64:
		return y.i >= 0 && x.u == uint64(y.i)
	}
	fx, fy := x.float(), y.float()
	if math.IsNaN(fx) && math.IsNaN(fy) {
		return true
	}
	return fx == fy
}

func number(v any) (numeric, bool) {
	if v == nil {
		return numeric{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return numeric{kind: reflect.Int64, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numeric{kind: reflect.Uint64, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return numeric{kind: reflect.Float64, f: rv.Float()}, true
	default:
		return numeric{}, false
	}
}

// truthy reports whether v counts as a present union key value.
// Null, the empty string, false, and zero do not.
func truthy(v Value) bool {
	if Classify(v) != KindScalar {
		return true
	}
	s := scalarOf(v)
	if s == nil {
		return false
	}
	if n, ok := number(s); ok {
		return n.float() != 0
	}
	switch s := s.(type) {
	case string:
		return s != ""
	case bool:
		return s
	default:
		return true
	}
}
