package models

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// ValueKind is the closed set of value kinds a test can expect or produce.
type ValueKind string

const (
	KindInteger   ValueKind = "integer"
	KindCharacter ValueKind = "character"
	KindFloating  ValueKind = "floating"
	KindString    ValueKind = "string"
	KindOther     ValueKind = "other"
)

// Valid reports whether k is one of the known kinds.
func (k ValueKind) Valid() bool {
	switch k {
	case KindInteger, KindCharacter, KindFloating, KindString, KindOther:
		return true
	}
	return false
}

// Char marks a single character produced by an executor.
type Char rune

// Value is an input or output value of a test. Integer and Character use Int,
// Floating uses Float, String and Other use Text.
type Value struct {
	Kind  ValueKind `json:"kind" yaml:"kind" msgpack:"k"`
	Int   int64     `json:"int,omitempty" yaml:"int,omitempty" msgpack:"i,omitempty"`
	Float float64   `json:"float,omitempty" yaml:"float,omitempty" msgpack:"f,omitempty"`
	Text  string    `json:"text,omitempty" yaml:"text,omitempty" msgpack:"s,omitempty"`
}

func IntValue(v int64) *Value     { return &Value{Kind: KindInteger, Int: v} }
func CharValue(r rune) *Value     { return &Value{Kind: KindCharacter, Int: int64(r)} }
func FloatValue(v float64) *Value { return &Value{Kind: KindFloating, Float: v} }
func StringValue(s string) *Value { return &Value{Kind: KindString, Text: s} }
func OtherValue(s string) *Value  { return &Value{Kind: KindOther, Text: s} }

// ValueOf maps a raw executor result onto the closed set of kinds. A nil raw
// value yields nil. hint is the kind the test expects; it only decides
// whether a one-character string is reported as a character.
func ValueOf(raw any, hint ValueKind) *Value {
	switch v := raw.(type) {
	case nil:
		return nil
	case *Value:
		if v == nil {
			return nil
		}
		c := *v
		return &c
	case Value:
		return &v
	case Char:
		return CharValue(rune(v))
	case int:
		return IntValue(int64(v))
	case int8:
		return IntValue(int64(v))
	case int16:
		return IntValue(int64(v))
	case int32:
		return IntValue(int64(v))
	case int64:
		return IntValue(v)
	case uint8:
		return IntValue(int64(v))
	case uint16:
		return IntValue(int64(v))
	case uint32:
		return IntValue(int64(v))
	case uint:
		if uint64(v) > math.MaxInt64 {
			return OtherValue(strconv.FormatUint(uint64(v), 10))
		}
		return IntValue(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return OtherValue(strconv.FormatUint(v, 10))
		}
		return IntValue(int64(v))
	case float32:
		return FloatValue(float64(v))
	case float64:
		return FloatValue(v)
	case string:
		if hint == KindCharacter && utf8.RuneCountInString(v) == 1 {
			r, _ := utf8.DecodeRuneInString(v)
			return CharValue(r)
		}
		return StringValue(v)
	case fmt.Stringer:
		return OtherValue(v.String())
	default:
		return OtherValue(fmt.Sprint(v))
	}
}

// Number returns the numeric reading of an integer, character or floating value.
func (v *Value) Number() (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.Kind {
	case KindInteger, KindCharacter:
		return float64(v.Int), true
	case KindFloating:
		return v.Float, true
	}
	return 0, false
}

// Native returns the value as a plain Go value, the way executors receive inputs.
func (v *Value) Native() any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindCharacter:
		return Char(v.Int)
	case KindFloating:
		return v.Float
	default:
		return v.Text
	}
}

func (v *Value) String() string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindCharacter:
		return string(rune(v.Int))
	case KindFloating:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}

// Equal compares kind and payload.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == nil && o == nil
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInteger, KindCharacter:
		return v.Int == o.Int
	case KindFloating:
		return v.Float == o.Float || (math.IsNaN(v.Float) && math.IsNaN(o.Float))
	default:
		return v.Text == o.Text
	}
}
