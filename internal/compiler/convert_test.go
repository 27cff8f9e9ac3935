package compiler

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
)

func lit(kind mof.LiteralKind, text string) *mof.Literal {
	return &mof.Literal{Kind: kind, Text: text}
}

func TestConvertValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value mof.Value
		spec  valueSpec
		want  any
	}{
		{"uint8 max", lit(mof.LitDecimal, "255"), valueSpec{Type: cim.TypeUint8}, uint64(255)},
		{"sint8 min", lit(mof.LitDecimal, "-128"), valueSpec{Type: cim.TypeSint8}, int64(-128)},
		{"binary", lit(mof.LitBinary, "1010B"), valueSpec{Type: cim.TypeUint8}, uint64(10)},
		{"negative binary", lit(mof.LitBinary, "-11b"), valueSpec{Type: cim.TypeSint16}, int64(-3)},
		{"octal", lit(mof.LitOctal, "0777"), valueSpec{Type: cim.TypeUint16}, uint64(511)},
		{"hex", lit(mof.LitHex, "0x7FFFFFFFFFFFFFFF"), valueSpec{Type: cim.TypeSint64}, int64(math.MaxInt64)},
		{"uint64 max", lit(mof.LitDecimal, "18446744073709551615"), valueSpec{Type: cim.TypeUint64}, uint64(math.MaxUint64)},
		{"real64", lit(mof.LitReal, "-1.25E2"), valueSpec{Type: cim.TypeReal64}, -125.0},
		{"integer as real", lit(mof.LitDecimal, "3"), valueSpec{Type: cim.TypeReal32}, 3.0},
		{"real32 rounding", lit(mof.LitReal, "0.1"), valueSpec{Type: cim.TypeReal32}, float64(float32(0.1))},
		{"boolean", lit(mof.LitBool, "false"), valueSpec{Type: cim.TypeBoolean}, false},
		{"char16", lit(mof.LitChar, "é"), valueSpec{Type: cim.TypeChar16}, cim.Char16('é')},
		{"datetime", lit(mof.LitString, "2014****193040.******+000"), valueSpec{Type: cim.TypeDatetime}, "2014****193040.******+000"},
		{"null", lit(mof.LitNull, "NULL"), valueSpec{Type: cim.TypeUint32}, nil},
		{"null array", lit(mof.LitNull, "NULL"), valueSpec{Type: cim.TypeString, IsArray: true}, nil},
		{
			"reference path",
			lit(mof.LitString, `root/cimv2:EX_Person.Name="Ann",Age=3`),
			valueSpec{Type: cim.TypeReference},
			cim.ObjectPath{
				Namespace: "root/cimv2",
				ClassName: "EX_Person",
				Keys: []cim.KeyBinding{
					{Name: "Name", Kind: cim.KeyString, Value: "Ann"},
					{Name: "Age", Kind: cim.KeyNumeric, Value: "3"},
				},
			},
		},
		{
			"array",
			&mof.ArrayLiteral{Elems: []mof.Value{lit(mof.LitDecimal, "1"), lit(mof.LitNull, "NULL")}},
			valueSpec{Type: cim.TypeSint32, IsArray: true, ArraySize: 2},
			[]any{int64(1), nil},
		},
		{
			"empty array",
			&mof.ArrayLiteral{},
			valueSpec{Type: cim.TypeString, IsArray: true},
			[]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := convertValue(tt.value, tt.spec, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvertValue_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    mof.Value
		spec     valueSpec
		contains string
	}{
		{"uint8 overflow", lit(mof.LitDecimal, "256"), valueSpec{Type: cim.TypeUint8}, "out of range for uint8"},
		{"sint8 underflow", lit(mof.LitDecimal, "-129"), valueSpec{Type: cim.TypeSint8}, "out of range for sint8"},
		{"negative unsigned", lit(mof.LitDecimal, "-1"), valueSpec{Type: cim.TypeUint32}, "out of range"},
		{"uint64 overflow", lit(mof.LitDecimal, "18446744073709551616"), valueSpec{Type: cim.TypeUint64}, "out of range"},
		{"real for integer", lit(mof.LitReal, "1.5"), valueSpec{Type: cim.TypeUint32}, "not valid for type uint32"},
		{"real32 overflow", lit(mof.LitReal, "1e39"), valueSpec{Type: cim.TypeReal32}, "overflows real32"},
		{"string for boolean", lit(mof.LitString, "true"), valueSpec{Type: cim.TypeBoolean}, "not valid for type boolean"},
		{"bad datetime", lit(mof.LitString, "yesterday"), valueSpec{Type: cim.TypeDatetime}, "not a valid datetime"},
		{"string for char16", lit(mof.LitString, "a"), valueSpec{Type: cim.TypeChar16}, "not valid for type char16"},
		{"char16 outside BMP", lit(mof.LitChar, "😀"), valueSpec{Type: cim.TypeChar16}, "UCS-2"},
		{"bad object path", lit(mof.LitString, "not a path"), valueSpec{Type: cim.TypeReference}, "invalid class name"},
		{"scalar for array", lit(mof.LitDecimal, "1"), valueSpec{Type: cim.TypeUint8, IsArray: true}, "uint8[] value expected"},
		{
			"array overflow",
			&mof.ArrayLiteral{Elems: []mof.Value{lit(mof.LitBool, "true"), lit(mof.LitBool, "false")}},
			valueSpec{Type: cim.TypeBoolean, IsArray: true, ArraySize: 1},
			"at most 1",
		},
		{
			"bad element",
			&mof.ArrayLiteral{Elems: []mof.Value{lit(mof.LitDecimal, "1"), lit(mof.LitString, "x")}},
			valueSpec{Type: cim.TypeUint8, IsArray: true},
			"element 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := convertValue(tt.value, tt.spec, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.False(t, errors.Is(err, errUndefinedAlias))
		})
	}
}

func TestConvertValue_Aliases(t *testing.T) {
	t.Parallel()

	path := cim.ObjectPath{Namespace: "root/cimv2", ClassName: "EX_Person"}
	lookup := func(name string) (cim.ObjectPath, bool) {
		return path, name == "known"
	}
	spec := valueSpec{Type: cim.TypeReference}

	got, err := convertValue(&mof.AliasRef{Name: "known"}, spec, lookup)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = convertValue(&mof.AliasRef{Name: "unknown"}, spec, lookup)
	assert.ErrorIs(t, err, errUndefinedAlias)

	_, err = convertValue(&mof.AliasRef{Name: "known"}, spec, nil)
	assert.ErrorIs(t, err, errUndefinedAlias)
}

func TestSemanticError(t *testing.T) {
	t.Parallel()

	err := newError("schema.mof", mof.Position{Line: 12, Column: 4}, CodeTypeMismatch, "property %s", "Size")
	assert.Equal(t, "schema.mof:12: type-mismatch: property Size", err.Error())
	assert.Equal(t, 4, err.Column)

	joined := errors.Join(errors.New("other"), err)
	assert.True(t, IsCode(joined, CodeTypeMismatch))
	assert.False(t, IsCode(joined, CodeFailed))
	assert.False(t, IsCode(nil, CodeFailed))

	first := newError("a.mof", mof.Position{Line: 1}, CodeFailed, "first")
	second := newError("a.mof", mof.Position{Line: 2}, CodeUnresolvedReference, "second")
	batch := errors.Join(first, second)
	assert.True(t, IsCode(batch, CodeFailed))
	assert.True(t, IsCode(batch, CodeUnresolvedReference))
	assert.True(t, IsCode(fmt.Errorf("compiling: %w", batch), CodeUnresolvedReference))
	assert.False(t, IsCode(batch, CodeTypeMismatch))

	assert.Equal(t, "invalid-superclass", CodeInvalidSuperclass.String())
	assert.Equal(t, "code(99)", Code(99).String())
}
