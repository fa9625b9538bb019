// Package entity implements the primary-keyed record model: a tagged Value
// sum type and a lazily-parsed Entity built on it.
package entity

import (
	"encoding/json"
	"fmt"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindVector
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Value is a tagged sum over the field types Themis entities may hold:
// null, bool, int64, float64, string, a float32 vector, or an opaque blob.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	vector []float32
	blob   []byte
}

func Null() Value               { return Value{kind: KindNull} }
func Bool(v bool) Value         { return Value{kind: KindBool, b: v} }
func Int(v int64) Value         { return Value{kind: KindInt, i: v} }
func Float(v float64) Value     { return Value{kind: KindFloat, f: v} }
func String(v string) Value     { return Value{kind: KindString, s: v} }
func Vector(v []float32) Value  { return Value{kind: KindVector, vector: v} }
func Blob(v []byte) Value       { return Value{kind: KindBlob, blob: v} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)           { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)           { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)       { return v.f, v.kind == KindFloat }
func (v Value) AsStr() (string, bool)          { return v.s, v.kind == KindString }
func (v Value) AsVector() ([]float32, bool)    { return v.vector, v.kind == KindVector }
func (v Value) AsBlob() ([]byte, bool)         { return v.blob, v.kind == KindBlob }

// AsString renders the value as a string suitable for key encoding
// (equality/sparse/geo/fulltext postings), regardless of its underlying
// kind. Numeric values get canonical decimal forms.
func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindNull:
		return "", nil
	case KindBool:
		if v.b {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return fmt.Sprintf("%d", v.i), nil
	case KindFloat:
		return fmt.Sprintf("%g", v.f), nil
	case KindString:
		return v.s, nil
	default:
		return "", fmt.Errorf("entity: value kind %s cannot be coerced to string", v.kind)
	}
}

// IsEmpty reports whether the value is absent for sparse-index purposes:
// null, empty string, or empty blob/vector.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindBlob:
		return len(v.blob) == 0
	case KindVector:
		return len(v.vector) == 0
	default:
		return false
	}
}

// jsonValue is the wire representation used by Entity's JSON (de)serialization.
type jsonValue struct {
	K Kind      `json:"k"`
	B bool      `json:"b,omitempty"`
	I int64     `json:"i,omitempty"`
	F float64   `json:"f,omitempty"`
	S string    `json:"s,omitempty"`
	V []float32 `json:"v,omitempty"`
	Blob []byte `json:"blob,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonValue{K: v.kind, B: v.b, I: v.i, F: v.f, S: v.s, V: v.vector, Blob: v.blob})
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	*v = Value{kind: jv.K, b: jv.B, i: jv.I, f: jv.F, s: jv.S, vector: jv.V, blob: jv.Blob}
	return nil
}
