package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx/subc/diag"
	"github.com/skx/subc/lexer"
	"github.com/skx/subc/parser"
	"github.com/skx/subc/sema"
	"github.com/skx/subc/source"
)

func buildSource(t *testing.T, src string) (*Module, *diag.Sink) {
	t.Helper()
	sink := diag.NewSink("test.sb")
	buf := source.New("test.sb", []byte(src))
	toks := lexer.New(buf, sink).Lex()
	prog := parser.New(toks, sink).Parse()
	require.False(t, sink.HasErrors(), "unexpected parse errors: %v", sink.Diagnostics())
	sema.New(sink).Analyze(prog)
	require.False(t, sink.HasErrors(), "unexpected semantic errors: %v", sink.Diagnostics())
	mod, ok := Build(prog, sink)
	require.True(t, ok, "unexpected IR errors: %v", sink.Diagnostics())
	return mod, sink
}

func findFunc(t *testing.T, mod *Module, name string) *Function {
	t.Helper()
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %q in module", name)
	return nil
}

// Every lowered function starts with FUNC_START and ends with FUNC_END
// (§8's structural property).
func TestEveryFunctionBracketedByFuncStartEnd(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1\n")
	for _, fn := range mod.Functions {
		require.NotEmpty(t, fn.Instructions)
		assert.Equal(t, OpFuncStart, fn.Instructions[0].Op)
		assert.Equal(t, OpFuncEnd, fn.Instructions[len(fn.Instructions)-1].Op)
	}
}

func TestEntryPointIsFirstFunctionAndNamedMain(t *testing.T) {
	mod, _ := buildSource(t, "function helper(): int { return 1 } end\nvar x = helper()\n")
	require.NotEmpty(t, mod.Functions)
	assert.Equal(t, "main", mod.Functions[0].Name)
}

func TestImplicitReturnAppendedWhenBodyFallsThrough(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1\n")
	main := findFunc(t, mod, "main")
	last := main.Instructions[len(main.Instructions)-2] // instruction before FUNC_END
	assert.Equal(t, OpReturn, last.Op)
}

func TestFunctionWithExplicitReturnGetsNoDuplicate(t *testing.T) {
	mod, _ := buildSource(t, "function f(): int { return 42 } end\n")
	fn := findFunc(t, mod, "f")
	returns := 0
	for _, instr := range fn.Instructions {
		if instr.Op == OpReturn {
			returns++
		}
	}
	assert.Equal(t, 1, returns)
}

func TestParamsLowerToParamInstructionsWithUnifiedSlots(t *testing.T) {
	mod, _ := buildSource(t, "function add(a: int, b: int): int { var c = a + b\nreturn c } end\n")
	fn := findFunc(t, mod, "add")
	require.Len(t, fn.Params, 2)
	assert.Equal(t, 0, fn.Params[0].Slot)
	assert.Equal(t, 1, fn.Params[1].Slot)

	var paramInstrs []Instruction
	for _, instr := range fn.Instructions {
		if instr.Op == OpParam {
			paramInstrs = append(paramInstrs, instr)
		}
	}
	require.Len(t, paramInstrs, 2)
	assert.Equal(t, 0, paramInstrs[0].Operands[0].Slot)
	assert.Equal(t, 1, paramInstrs[1].Operands[0].Slot)

	// "c" must land in a slot past the two parameter slots.
	foundStoreToSlot2 := false
	for _, instr := range fn.Instructions {
		if instr.Op == OpStore && instr.Operands[0].Kind == ValLocal && instr.Operands[0].Slot == 2 {
			foundStoreToSlot2 = true
		}
	}
	assert.True(t, foundStoreToSlot2, "expected local 'c' to occupy slot 2")
}

func TestRegisterIdsAreUniqueAndIncreasingWithinAFunction(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1 + 2 * 3\n")
	main := findFunc(t, mod, "main")
	seen := map[int]bool{}
	maxReg := -1
	for _, instr := range main.Instructions {
		for _, op := range instr.Operands {
			if op.Kind != ValRegister {
				continue
			}
			if !seen[op.Reg] {
				// A register may be defined once then referenced later;
				// we only assert ids grow monotonically as new ones appear.
				assert.Equal(t, len(seen), op.Reg, "register r%d first appears out of order", op.Reg)
			}
			if op.Reg > maxReg {
				maxReg = op.Reg
			}
			seen[op.Reg] = true
		}
	}
	assert.Less(t, -1, maxReg)
	assert.Equal(t, maxReg+1, main.NumRegisters)
}

func TestIfLowersToJumpIfNotAroundThenBranch(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1\nif x == 1 { x = 2 } end\n")
	main := findFunc(t, mod, "main")
	var sawJumpIfNot, sawLabel bool
	for _, instr := range main.Instructions {
		if instr.Op == OpJumpIfNot {
			sawJumpIfNot = true
		}
		if instr.Op == OpLabel {
			sawLabel = true
		}
	}
	assert.True(t, sawJumpIfNot)
	assert.True(t, sawLabel)
}

func TestIfElseLowersToTwoLabelsAndAJump(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1\nif x == 1 { x = 2 } else { x = 3 } end\n")
	main := findFunc(t, mod, "main")
	labels, jumps := 0, 0
	for _, instr := range main.Instructions {
		if instr.Op == OpLabel {
			labels++
		}
		if instr.Op == OpJump {
			jumps++
		}
	}
	assert.Equal(t, 2, labels)
	assert.Equal(t, 1, jumps)
}

func TestWhileLowersToHeadAndEndLabels(t *testing.T) {
	mod, _ := buildSource(t, "var x = 0\nwhile x < 10 { x = x + 1 } end\n")
	main := findFunc(t, mod, "main")
	var labels []string
	for _, instr := range main.Instructions {
		if instr.Op == OpLabel {
			labels = append(labels, instr.Operands[0].Label)
		}
	}
	require.Len(t, labels, 2)
}

func TestBreakJumpsToLoopEndLabel(t *testing.T) {
	mod, _ := buildSource(t, "while true { break } end\n")
	main := findFunc(t, mod, "main")

	var endLabel string
	for i := len(main.Instructions) - 1; i >= 0; i-- {
		if main.Instructions[i].Op == OpLabel {
			endLabel = main.Instructions[i].Operands[0].Label
			break
		}
	}
	require.NotEmpty(t, endLabel)

	var breakJumpTarget string
	for _, instr := range main.Instructions {
		if instr.Op == OpJump && len(instr.Operands) == 1 {
			// The break's JUMP comes before the loop's back-edge JUMP.
			breakJumpTarget = instr.Operands[0].Label
			break
		}
	}
	assert.Equal(t, endLabel, breakJumpTarget)
}

func TestForRangeInitializesAndIncrementsInductionVariable(t *testing.T) {
	mod, _ := buildSource(t, "var s = 0\nfor i in range(5) { s = s + i } end\n")
	main := findFunc(t, mod, "main")

	var stores, adds int
	for _, instr := range main.Instructions {
		if instr.Op == OpStore {
			stores++
		}
		if instr.Op == OpAdd {
			adds++
		}
	}
	assert.GreaterOrEqual(t, stores, 2) // s's store plus i's init/update stores
	assert.GreaterOrEqual(t, adds, 2)   // s = s + i, plus i's increment
}

func TestStringConcatenationCallsStrConcat(t *testing.T) {
	mod, _ := buildSource(t, `var x = "n=" + 1` + "\n")
	main := findFunc(t, mod, "main")
	var calledConcat, calledIntToStr bool
	for _, instr := range main.Instructions {
		if instr.Op == OpCall {
			switch instr.Operands[1].Label {
			case "str_concat":
				calledConcat = true
			case "int_to_str":
				calledIntToStr = true
			}
		}
	}
	assert.True(t, calledConcat)
	assert.True(t, calledIntToStr)
}

func TestPrintLowersToPrintInstructionWithNoDestination(t *testing.T) {
	mod, _ := buildSource(t, "print(1)\n")
	main := findFunc(t, mod, "main")
	var found bool
	for _, instr := range main.Instructions {
		if instr.Op == OpPrint {
			found = true
			require.Len(t, instr.Operands, 1)
		}
	}
	assert.True(t, found)
}

func TestArrayLiteralLowersToAllocAndStoreElem(t *testing.T) {
	mod, _ := buildSource(t, "var a = [1, 2, 3]\n")
	main := findFunc(t, mod, "main")
	var sawAlloc bool
	storeElems := 0
	for _, instr := range main.Instructions {
		if instr.Op == OpAlloc {
			sawAlloc = true
		}
		if instr.Op == OpStoreElem {
			storeElems++
		}
	}
	assert.True(t, sawAlloc)
	assert.Equal(t, 3, storeElems)
}

func TestArrayAccessLowersToLoadElem(t *testing.T) {
	mod, _ := buildSource(t, "var a = [1, 2]\nvar x = a[0]\n")
	main := findFunc(t, mod, "main")
	var found bool
	for _, instr := range main.Instructions {
		if instr.Op == OpLoadElem {
			found = true
		}
	}
	assert.True(t, found)
}

func TestShortCircuitAndLowersToOneJumpAndTwoMoves(t *testing.T) {
	mod, _ := buildSource(t, "var x = true && false\n")
	main := findFunc(t, mod, "main")
	moves, jumps := 0, 0
	for _, instr := range main.Instructions {
		if instr.Op == OpMove {
			moves++
		}
		if instr.Op == OpJumpIfNot {
			jumps++
		}
	}
	assert.Equal(t, 2, moves)
	assert.Equal(t, 1, jumps)
}

func TestLiteralMemberLengthFoldsAtLowerTime(t *testing.T) {
	mod, _ := buildSource(t, `var x = [1, 2, 3].length` + "\n")
	main := findFunc(t, mod, "main")
	var sawThree bool
	for _, instr := range main.Instructions {
		if instr.Op == OpConstInt && instr.Operands[1].IntVal == 3 {
			sawThree = true
		}
	}
	assert.True(t, sawThree)
}

func TestConstantFoldingCollapsesArithmeticOnLiterals(t *testing.T) {
	mod, _ := buildSource(t, "var x = 2 + 3\n")
	Fold(mod)
	main := findFunc(t, mod, "main")
	var sawAdd bool
	var sawFive bool
	for _, instr := range main.Instructions {
		if instr.Op == OpAdd {
			sawAdd = true
		}
		if instr.Op == OpConstInt && instr.Operands[1].IntVal == 5 {
			sawFive = true
		}
	}
	assert.False(t, sawAdd, "ADD should have folded away")
	assert.True(t, sawFive)
}

func TestConstantFoldingLeavesNonConstantOperandsAlone(t *testing.T) {
	mod, _ := buildSource(t, "function f(n: int): int { return n + 1 } end\n")
	Fold(mod)
	fn := findFunc(t, mod, "f")
	var sawAdd bool
	for _, instr := range fn.Instructions {
		if instr.Op == OpAdd {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd, "ADD involving a parameter must not fold")
}

func TestConstantFoldingSkipsDivisionByZero(t *testing.T) {
	mod, _ := buildSource(t, "var x = 1 / 0\n")
	Fold(mod)
	main := findFunc(t, mod, "main")
	var sawDiv bool
	for _, instr := range main.Instructions {
		if instr.Op == OpDiv {
			sawDiv = true
		}
	}
	assert.True(t, sawDiv, "division by a literal zero must survive folding for the runtime check to catch it")
}

func TestIterationOverNonLiteralCollectionFailsFast(t *testing.T) {
	sink := diag.NewSink("test.sb")
	buf := source.New("test.sb", []byte("var a = [1, 2]\nfor v in a { print(v) } end\n"))
	toks := lexer.New(buf, sink).Lex()
	prog := parser.New(toks, sink).Parse()
	require.False(t, sink.HasErrors())
	sema.New(sink).Analyze(prog)
	require.False(t, sink.HasErrors())

	_, ok := Build(prog, sink)
	assert.False(t, ok)
	assert.True(t, sink.HasErrors())
}

// TestBuildIsDeterministic exercises §8's determinism property at the IR
// layer: lowering the same source twice, with two independent register
// and label counters, must produce structurally identical modules. Every
// field on Value/Instruction/Function/Module is exported, so cmp.Diff
// walks the whole tree without an allowlist of fields to compare -
// exactly the structural-equality role SPEC_FULL.md's ambient-stack
// section carves out for go-cmp alongside its use in assert.Equal-style
// table tests elsewhere in this suite.
func TestBuildIsDeterministic(t *testing.T) {
	src := "function add(a: int, b: int): int { return a + b } end\n" +
		"var x = add(2, 3)\n" +
		"if x > 4 { print(x) } else { print(0) } end\n"

	first, _ := buildSource(t, src)
	second, _ := buildSource(t, src)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Build(%q) is not deterministic (-first +second):\n%s", src, diff)
	}
}
