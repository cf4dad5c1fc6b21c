// Package isa models the MIPS32 register file, raw 32-bit opcode fields,
// and the closed instruction-kind enumeration shared by the disassembler
// and the step executor.
package isa

// Kind groups a register by its conventional MIPS ABI role, for display
// grouping only; the executor never consults it.
type Kind int

const (
	KindZero Kind = iota
	KindReturn
	KindArg
	KindTemp
	KindSave
	KindKernel
	KindStack
	KindOther
	// KindProgramCounter has no entry in registerKinds (pc isn't one of the
	// 32 general-purpose registers); it lets a caller displaying pc
	// alongside the register file give it the same Kind type as
	// everything else instead of a bespoke flag.
	KindProgramCounter
)

// NumRegisters is the size of the MIPS32 general-purpose register file.
const NumRegisters = 32

// registerNames is indexed by register number and gives the conventional
// assembler mnemonic (without the leading '$').
var registerNames = [NumRegisters]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

var registerKinds = [NumRegisters]Kind{
	KindZero,
	KindOther, // at
	KindReturn, KindReturn, // v0, v1
	KindArg, KindArg, KindArg, KindArg, // a0-a3
	KindTemp, KindTemp, KindTemp, KindTemp, KindTemp, KindTemp, KindTemp, KindTemp, // t0-t7
	KindSave, KindSave, KindSave, KindSave, KindSave, KindSave, KindSave, KindSave, // s0-s7
	KindTemp, KindTemp, // t8, t9
	KindKernel, KindKernel, // k0, k1
	KindOther,  // gp
	KindStack,  // sp
	KindOther,  // fp
	KindReturn, // ra
}

// name -> register index, built once from registerNames.
var nameToIndex map[string]uint8

func init() {
	nameToIndex = make(map[string]uint8, NumRegisters)
	for i, name := range registerNames {
		nameToIndex[name] = uint8(i)
	}
}

// RegisterName returns the conventional mnemonic (without '$') for index i,
// or "?" if i is out of range.
func RegisterName(i uint8) string {
	if int(i) >= NumRegisters {
		return "?"
	}
	return registerNames[i]
}

// RegisterKind reports the ABI role of register i, for display grouping.
func RegisterKind(i uint8) Kind {
	if int(i) >= NumRegisters {
		return KindOther
	}
	return registerKinds[i]
}

// RegisterByName resolves a mnemonic (without '$') back to an index.
func RegisterByName(name string) (uint8, bool) {
	idx, ok := nameToIndex[name]
	return idx, ok
}

// Register identifies one general-purpose register by index, giving
// RegisterName/RegisterKind a method-based spelling so the disassembler and
// the TUI always render the same canonical mnemonic table.
type Register uint8

// ABIName returns the register's conventional assembler mnemonic with the
// leading '$', e.g. "$v0", "$t3", "$ra".
func (r Register) ABIName() string {
	return "$" + RegisterName(uint8(r))
}

// String satisfies fmt.Stringer with the same text as ABIName, so a
// Register can be dropped directly into a Printf verb.
func (r Register) String() string {
	return r.ABIName()
}

// Kind reports the register's ABI role, for display grouping.
func (r Register) Kind() Kind {
	return RegisterKind(uint8(r))
}
