package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/subc/diag"
	"github.com/skx/subc/ir"
	"github.com/skx/subc/lexer"
	"github.com/skx/subc/parser"
	"github.com/skx/subc/sema"
	"github.com/skx/subc/source"
)

// emitSource runs a source string through every phase up to and including
// codegen, the same "build a fixture, assert a narrow slice of it" style
// the teacher's own generator_test.go uses, generalized from "call each
// gen<Op> method once for coverage" to "assert the emitted text has the
// shape §4.5 requires".
func emitSource(t *testing.T, src string) (string, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink("test.sb")
	buf := source.New("test.sb", []byte(src))
	toks := lexer.New(buf, sink).Lex()
	prog := parser.New(toks, sink).Parse()
	require.False(t, sink.HasErrors(), "unexpected parse errors: %v", sink.Diagnostics())
	sema.New(sink).Analyze(prog)
	require.False(t, sink.HasErrors(), "unexpected semantic errors: %v", sink.Diagnostics())
	mod, ok := ir.Build(prog, sink)
	require.True(t, ok, "unexpected IR errors: %v", sink.Diagnostics())
	asm, ok := Emit(mod, sink)
	require.True(t, ok, "unexpected codegen errors: %v", sink.Diagnostics())
	return asm, sink
}

func TestEmitProducesEntryLabel(t *testing.T) {
	asm, _ := emitSource(t, "var x = 1\nprint(x)\n")
	assert.Contains(t, asm, ".global "+selectABI().entryLabel)
	assert.Contains(t, asm, selectABI().entryLabel+":\n")
}

func TestEmitIntArithmetic(t *testing.T) {
	asm, _ := emitSource(t, "var x = 10\nvar y = 20\nprint(x + y * 2)\n")
	assert.Contains(t, asm, "imul rax, r10")
	assert.Contains(t, asm, "add rax, r10")
	assert.Contains(t, asm, ".Lfmt_int")
}

func TestEmitStringConcatPullsInRuntimeShim(t *testing.T) {
	asm, _ := emitSource(t, `var a = "Hello, "
var b = "World"
print(a + b)
`)
	assert.Contains(t, asm, "call str_concat")
	assert.Contains(t, asm, "str_concat:")
	assert.Contains(t, asm, ".Lfmt_str")
}

func TestEmitStringPoolDeduplicates(t *testing.T) {
	asm, _ := emitSource(t, `print("dup")
print("dup")
`)
	assert.Equal(t, 1, strings.Count(asm, `.asciz "dup"`))
}

func TestEmitDivisionByIntEmitsGuard(t *testing.T) {
	asm, _ := emitSource(t, "var x = 10\nvar y = 2\nprint(x / y)\n")
	assert.Contains(t, asm, ".Ldiv_zero:")
	assert.Contains(t, asm, "je .Ldiv_zero")
}

func TestEmitFloatDivisionHasNoGuard(t *testing.T) {
	asm, _ := emitSource(t, "var x = 10.0\nvar y = 2.0\nprint(x / y)\n")
	assert.NotContains(t, asm, ".Ldiv_zero:")
	assert.Contains(t, asm, "divsd")
}

func TestEmitArrayAllocAndElementAccess(t *testing.T) {
	asm, _ := emitSource(t, `var arr = [1, 2, 3]
arr[1] = 10
print(arr[0])
`)
	assert.Contains(t, asm, "call malloc")
	assert.Contains(t, asm, "[rax+r10*8]")
}

func TestEmitFunctionGetsOwnEpilogue(t *testing.T) {
	asm, _ := emitSource(t, "function add(a: int, b: int): int { return a + b } end\nprint(add(1, 2))\n")
	assert.Contains(t, asm, "add:\n")
	assert.Contains(t, asm, ".Lepilogue_add:")
}

func TestEmitIsDeterministic(t *testing.T) {
	src := "var x = 1\nvar y = 2.5\nprint(x)\nprint(y)\nprint(\"ok\")\n"
	first, _ := emitSource(t, src)
	second, _ := emitSource(t, src)
	assert.Equal(t, first, second)
}

func TestEmitUnknownOpcodeFailsWithDiagnostic(t *testing.T) {
	sink := diag.NewSink("test.sb")
	mod := &ir.Module{
		Functions: []*ir.Function{
			{
				Name: "main",
				Instructions: []ir.Instruction{
					{Op: ir.OpFuncStart},
					{Op: ir.Op(9999)},
					{Op: ir.OpFuncEnd},
				},
			},
		},
	}
	_, ok := Emit(mod, sink)
	assert.False(t, ok)
	assert.True(t, sink.HasErrors())
}
