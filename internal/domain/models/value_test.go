package models

import (
	"errors"
	"math"
	"testing"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		hint ValueKind
		want *Value
	}{
		{name: "nil", raw: nil, hint: KindInteger, want: nil},
		{name: "int", raw: 42, hint: KindInteger, want: IntValue(42)},
		{name: "int8", raw: int8(-3), hint: KindInteger, want: IntValue(-3)},
		{name: "uint16", raw: uint16(7), hint: KindInteger, want: IntValue(7)},
		{name: "huge uint64", raw: uint64(math.MaxUint64), hint: KindInteger, want: OtherValue("18446744073709551615")},
		{name: "float32", raw: float32(1.5), hint: KindFloating, want: FloatValue(1.5)},
		{name: "char", raw: Char('x'), hint: KindString, want: CharValue('x')},
		{name: "string as char", raw: "é", hint: KindCharacter, want: CharValue('é')},
		{name: "string stays string", raw: "é", hint: KindString, want: StringValue("é")},
		{name: "long string with char hint", raw: "ab", hint: KindCharacter, want: StringValue("ab")},
		{name: "bool", raw: true, hint: KindOther, want: OtherValue("true")},
		{name: "stringer", raw: errors.New("boom"), hint: KindOther, want: OtherValue("boom")},
		{name: "value pointer", raw: IntValue(3), hint: KindOther, want: IntValue(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValueOf(tt.raw, tt.hint)
			if !got.Equal(tt.want) {
				t.Errorf("ValueOf(%v) = %v (%s), want %v", tt.raw, got, kindOf(got), tt.want)
			}
		})
	}
}

func kindOf(v *Value) ValueKind {
	if v == nil {
		return ""
	}
	return v.Kind
}

func TestValue_Native(t *testing.T) {
	if got := CharValue('a').Native(); got != Char('a') {
		t.Errorf("expected Char, got %T", got)
	}
	if got := IntValue(5).Native(); got != int64(5) {
		t.Errorf("expected int64 5, got %v", got)
	}
	var nilValue *Value
	if nilValue.Native() != nil {
		t.Error("expected nil for nil value")
	}
}

func TestValue_Equal(t *testing.T) {
	if IntValue(1).Equal(FloatValue(1)) {
		t.Error("values of different kinds must not be equal")
	}
	if !FloatValue(math.NaN()).Equal(FloatValue(math.NaN())) {
		t.Error("NaN should equal NaN for result comparison")
	}
	if IntValue(1).Equal(nil) {
		t.Error("value must not equal nil")
	}
}

func TestValue_Number(t *testing.T) {
	n, ok := CharValue('A').Number()
	if !ok || n != 65 {
		t.Errorf("expected 65, got %v (%v)", n, ok)
	}
	if _, ok := StringValue("1").Number(); ok {
		t.Error("strings are not numeric")
	}
}
