package codegen

import (
	"runtime"

	"github.com/skx/subc/ast"
)

// abi describes how a CALL instruction's arguments map onto machine
// registers.  The teacher never had to make this decision - its whole
// instruction set ran on one float stack - but §4.5 is explicit that a
// call's argument placement differs between System V (Linux, macOS) and
// Windows x64, and that the emitter picks one by host OS at generation
// time rather than hard-coding Linux.
type abi struct {
	name string

	// intArgRegs names the general-purpose registers integer/pointer/
	// string/bool arguments are passed in, in order.
	intArgRegs []string

	// floatArgRegs names the XMM registers float arguments are passed
	// in, in order.
	floatArgRegs []string

	// sharedSlots is true when an argument's position in intArgRegs and
	// floatArgRegs must advance together regardless of which one it
	// actually uses (Windows x64); false when integer and float
	// arguments are numbered independently (System V).
	sharedSlots bool

	// entryLabel is the symbol name the linker's startup code expects
	// the program's entry function to carry.
	entryLabel string
}

func sysvABI() abi {
	return abi{
		name:         "sysv",
		intArgRegs:   []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
		floatArgRegs: []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"},
		sharedSlots:  false,
		entryLabel:   "main",
	}
}

func windowsABI() abi {
	return abi{
		name:         "win64",
		intArgRegs:   []string{"rcx", "rdx", "r8", "r9"},
		floatArgRegs: []string{"xmm0", "xmm1", "xmm2", "xmm3"},
		sharedSlots:  true,
		entryLabel:   "main",
	}
}

func darwinABI() abi {
	a := sysvABI()
	// The macOS linker wants the underscore-prefixed legacy entry name;
	// everything else about its calling convention is System V.
	a.entryLabel = "_main"
	return a
}

// selectABI picks the calling convention this run of the compiler targets,
// based on the host it is running on (§4.5).
func selectABI() abi {
	switch runtime.GOOS {
	case "windows":
		return windowsABI()
	case "darwin":
		return darwinABI()
	default:
		return sysvABI()
	}
}

// argSlot is the register a single CALL argument is loaded into.
type argSlot struct {
	reg     string
	isFloat bool
}

// assignArgs walks args in call order and returns the register each lands
// in.  On System V, integer and float arguments are numbered from two
// independent counters; on Windows x64 they share one counter, so a float
// argument in position 1 still consumes intArgRegs[1]'s slot even though
// it is never read.
func (a abi) assignArgs(types []ast.DataType) []argSlot {
	slots := make([]argSlot, len(types))
	intIdx, floatIdx := 0, 0
	for i, t := range types {
		isFloat := t == ast.FloatType
		if a.sharedSlots {
			idx := intIdx
			if isFloat {
				slots[i] = argSlot{reg: a.floatArgRegs[idx], isFloat: true}
			} else {
				slots[i] = argSlot{reg: a.intArgRegs[idx], isFloat: false}
			}
			intIdx++
			continue
		}
		if isFloat {
			slots[i] = argSlot{reg: a.floatArgRegs[floatIdx], isFloat: true}
			floatIdx++
		} else {
			slots[i] = argSlot{reg: a.intArgRegs[intIdx], isFloat: false}
			intIdx++
		}
	}
	return slots
}
