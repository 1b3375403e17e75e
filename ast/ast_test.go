package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeEqual(t *testing.T) {
	intArr := Type{Kind: ArrayType, Elem: &Type{Kind: IntType}}
	floatArr := Type{Kind: ArrayType, Elem: &Type{Kind: FloatType}}
	intArr2 := Type{Kind: ArrayType, Elem: &Type{Kind: IntType}}

	assert.True(t, intArr.Equal(intArr2))
	assert.False(t, intArr.Equal(floatArr))
	assert.False(t, intArr.Equal(Type{Kind: IntType}))
}

func TestTypeNumeric(t *testing.T) {
	assert.True(t, Type{Kind: IntType}.Numeric())
	assert.True(t, Type{Kind: FloatType}.Numeric())
	assert.False(t, Type{Kind: StringType}.Numeric())
	assert.False(t, Type{Kind: BoolType}.Numeric())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "int", Type{Kind: IntType}.String())
	assert.Equal(t, "array of int", Type{Kind: ArrayType, Elem: &Type{Kind: IntType}}.String())
}

func TestExprBaseSetType(t *testing.T) {
	id := &Identifier{Name: "x"}
	assert.Equal(t, Unknown, id.Type().Kind)
	id.SetType(Type{Kind: IntType})
	assert.Equal(t, IntType, id.Type().Kind)
}
