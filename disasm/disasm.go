// Package disasm lifts raw MIPS32 words into a structured, symbol-aware
// instruction model (spec §4.3, component C4).
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"mipsvm/isa"
)

// Tag identifies which operand shape a Decoded value carries.
type Tag int

const (
	TagSyscall Tag = iota
	TagNop
	TagLabel // pseudo-entry emitted only by Listing, never by Decode
	TagArithLog
	TagDivMult
	TagShift
	TagShiftV
	TagJumpR
	TagMoveFrom
	TagMoveTo
	TagArithLogI
	TagLoadI
	TagBranch
	TagBranchZ
	TagJump
	TagLoadStore
)

// Target is either a symbolic Label (when the computed byte address has an
// exact match in the symbol table) or a Relative instruction-count offset.
type Target struct {
	Label    string
	Relative int32
	IsLabel  bool
}

func (t Target) String() string {
	if t.IsLabel {
		return t.Label
	}
	return fmt.Sprintf("%+d", t.Relative)
}

// Decoded is the tagged union of lifted instruction shapes from spec §3.
// Only the fields relevant to Tag are meaningful.
type Decoded struct {
	Tag   Tag
	Addr  uint32
	Op    isa.Op
	Funct isa.Funct

	Rd, Rs, Rt uint8
	Shamt      uint8
	Imm        int16
	Target     Target

	// LabelName is set only when Tag == TagLabel.
	LabelName string
}

// String renders the full mnemonic-plus-operands text for d, the way the
// linear listing and the TUI's disassembly pane both display it. Mirrors
// the teacher's Instruction.String(): one function turning decoded state
// into the human-readable line, called from every display path instead of
// re-deriving it per caller.
func (d Decoded) String() string {
	mnemonic := d.Op.String()
	if d.Op == isa.OpSpecial {
		mnemonic = d.Funct.String()
	}

	switch d.Tag {
	case TagSyscall:
		return "syscall"
	case TagNop:
		return "nop"
	case TagLabel:
		return d.LabelName + ":"

	case TagArithLog:
		return fmt.Sprintf("%-6s %s, %s, %s", mnemonic, reg(d.Rd), reg(d.Rs), reg(d.Rt))
	case TagDivMult:
		return fmt.Sprintf("%-6s %s, %s", mnemonic, reg(d.Rs), reg(d.Rt))
	case TagShift:
		return fmt.Sprintf("%-6s %s, %s, %d", mnemonic, reg(d.Rd), reg(d.Rt), d.Shamt)
	case TagShiftV:
		return fmt.Sprintf("%-6s %s, %s, %s", mnemonic, reg(d.Rd), reg(d.Rt), reg(d.Rs))
	case TagJumpR:
		if d.Funct == isa.FnJalr {
			return fmt.Sprintf("%-6s %s, %s", mnemonic, reg(d.Rd), reg(d.Rs))
		}
		return fmt.Sprintf("%-6s %s", mnemonic, reg(d.Rs))
	case TagMoveFrom:
		return fmt.Sprintf("%-6s %s", mnemonic, reg(d.Rd))
	case TagMoveTo:
		return fmt.Sprintf("%-6s %s", mnemonic, reg(d.Rs))

	case TagArithLogI:
		return fmt.Sprintf("%-6s %s, %s, %d", mnemonic, reg(d.Rt), reg(d.Rs), d.Imm)
	case TagLoadI:
		return fmt.Sprintf("%-6s %s, %d", mnemonic, reg(d.Rt), d.Imm)

	case TagBranch:
		return fmt.Sprintf("%-6s %s, %s, %s", mnemonic, reg(d.Rs), reg(d.Rt), d.Target)
	case TagBranchZ:
		return fmt.Sprintf("%-6s %s, %s", mnemonic, reg(d.Rs), d.Target)
	case TagJump:
		return fmt.Sprintf("%-6s %s", mnemonic, d.Target)

	case TagLoadStore:
		return fmt.Sprintf("%-6s %s, %d(%s)", mnemonic, reg(d.Rt), d.Imm, reg(d.Rs))

	default:
		return mnemonic
	}
}

func reg(i uint8) string {
	return isa.Register(i).ABIName()
}

// Decode lifts one raw word at byte address ip into a Decoded variant,
// resolving branch/jump targets against symbols (addr -> name) when
// provided. symbols may be nil.
func Decode(word isa.Raw, ip uint32, symbols map[uint32]string) (Decoded, error) {
	op, funct, isSpecial, err := isa.Classify(word)
	if err != nil {
		return Decoded{}, err
	}

	if isSpecial && funct == isa.FnSll && word.IsNop() {
		return Decoded{Tag: TagNop, Addr: ip}, nil
	}

	if isSpecial {
		return decodeSpecial(word, ip, funct)
	}
	return decodeOp(word, ip, op, symbols)
}

func decodeSpecial(word isa.Raw, ip uint32, funct isa.Funct) (Decoded, error) {
	d := Decoded{Addr: ip, Op: isa.OpSpecial, Funct: funct}
	switch funct {
	case isa.FnSyscall:
		d.Tag = TagSyscall
	case isa.FnSll, isa.FnSrl, isa.FnSra:
		d.Tag = TagShift
		d.Rd, d.Rt, d.Shamt = word.Rd(), word.Rt(), word.Shamt()
	case isa.FnSllv, isa.FnSrlv, isa.FnSrav:
		d.Tag = TagShiftV
		d.Rd, d.Rt, d.Rs = word.Rd(), word.Rt(), word.Rs()
	case isa.FnJr:
		d.Tag = TagJumpR
		d.Rs = word.Rs()
	case isa.FnJalr:
		d.Tag = TagJumpR
		d.Rs, d.Rd = word.Rs(), word.Rd()
	case isa.FnMfhi, isa.FnMflo:
		d.Tag = TagMoveFrom
		d.Rd = word.Rd()
	case isa.FnMthi, isa.FnMtlo:
		d.Tag = TagMoveTo
		d.Rs = word.Rs()
	case isa.FnMult, isa.FnMultU, isa.FnDiv, isa.FnDivU:
		d.Tag = TagDivMult
		d.Rs, d.Rt = word.Rs(), word.Rt()
	case isa.FnAdd, isa.FnAddu, isa.FnSub, isa.FnSubu,
		isa.FnAnd, isa.FnOr, isa.FnXor, isa.FnNor, isa.FnSlt, isa.FnSltu:
		d.Tag = TagArithLog
		d.Rd, d.Rs, d.Rt = word.Rd(), word.Rs(), word.Rt()
	default:
		return Decoded{}, &isa.UnknownEncodingError{Op: uint8(isa.OpSpecial), Funct: uint8(funct), HasFunct: true}
	}
	return d, nil
}

func decodeOp(word isa.Raw, ip uint32, op isa.Op, symbols map[uint32]string) (Decoded, error) {
	d := Decoded{Addr: ip, Op: op}
	switch op {
	case isa.OpJ, isa.OpJal:
		d.Tag = TagJump
		// pc has already advanced past ip by the time the addr26 field is
		// added in (spec §4.5's step ordering), so the byte target is
		// relative to ip+4, not ip.
		d.Target = resolveTarget(ip, ip+4+word.Addr26()*4, symbols)

	case isa.OpBeq, isa.OpBne:
		d.Rs, d.Rt = word.Rs(), word.Rt()
		d.Imm = word.Imm16()
		target := branchTarget(ip, d.Imm)
		if word.Rs() == 0 && word.Rt() == 0 {
			d.Tag = TagJump
		} else {
			d.Tag = TagBranch
		}
		d.Target = resolveTarget(ip, target, symbols)

	case isa.OpBal:
		d.Rs = word.Rs()
		d.Imm = word.Imm16()
		// Bal is decoded via the same rs==0/rt==0 zero-register check as
		// Beq/Bne (its rt field is always 0), so it gets the same
		// unconditional-Jump rewrite. Blez/Bgtz do not: see the OpBlez,
		// OpBgtz case below.
		if word.Rs() == 0 {
			d.Tag = TagJump
		} else {
			d.Tag = TagBranchZ
		}
		target := branchTarget(ip, d.Imm)
		d.Target = resolveTarget(ip, target, symbols)

	case isa.OpBlez, isa.OpBgtz:
		// Single-register zero-compare branches. Never rewritten to Jump:
		// "bgtz $zero, label" always fails its compare (0 > 0 is false) and
		// an unconditional Jump here would invert that at display time.
		d.Rs = word.Rs()
		d.Imm = word.Imm16()
		d.Tag = TagBranchZ
		target := branchTarget(ip, d.Imm)
		d.Target = resolveTarget(ip, target, symbols)

	case isa.OpAddI, isa.OpAddIU, isa.OpSltI, isa.OpSltIU, isa.OpAndI, isa.OpOrI, isa.OpXorI:
		d.Tag = TagArithLogI
		d.Rt, d.Rs = word.Rt(), word.Rs()
		d.Imm = word.Imm16()

	case isa.OpLUI:
		d.Tag = TagLoadI
		d.Rt = word.Rt()
		d.Imm = word.Imm16()

	case isa.OpLB, isa.OpLW, isa.OpLBU, isa.OpLHU, isa.OpSB, isa.OpSH, isa.OpSW, isa.OpLL, isa.OpSc, isa.OpLwci:
		d.Tag = TagLoadStore
		d.Rs, d.Rt = word.Rs(), word.Rt()
		d.Imm = word.Imm16()

	case isa.OpCache, isa.OpMfc0:
		d.Tag = TagNop

	default:
		return Decoded{}, &isa.UnknownEncodingError{Op: uint8(op)}
	}
	return d, nil
}

// branchTarget implements the offset formula from spec §4.3/§9,
// ip + 4*(imm+1). That is ip+4+(imm<<2): the offset counts instructions
// from the successor of ip, the same address machine/step.go branches to.
func branchTarget(ip uint32, imm int16) uint32 {
	return uint32(int64(ip) + 4*(int64(imm)+1))
}

func resolveTarget(ip, byteAddr uint32, symbols map[uint32]string) Target {
	if symbols != nil {
		if name, ok := symbols[byteAddr]; ok {
			return Target{Label: name, IsLabel: true}
		}
	}
	// Relative is expressed as an instruction count from the successor
	// of ip, matching the convention used to compute byteAddr above.
	rel := (int64(byteAddr) - int64(ip) - 4) / 4
	return Target{Relative: int32(rel)}
}

// Listing is a linear, symbol-annotated disassembly of a text segment,
// consumed read-only by the TUI so it never re-disassembles per frame.
type Listing struct {
	// Entries is addr-ordered: Label pseudo-entries appear immediately
	// before the instruction at that address.
	Entries []Decoded
	// ByAddr indexes Entries (excluding labels) by instruction address.
	ByAddr map[uint32]int
}

// Linear walks text (raw bytes of the .text section) in 4-byte strides
// starting at textStart, producing Label pseudo-entries before any
// instruction whose address matches a symbol (skipping "_"-prefixed names
// other than "__start", and empty names). Unknown encodings are skipped,
// not fatal, so the rest of the segment can still be rendered.
func Linear(text []byte, textStart uint32, names map[string]uint32) Listing {
	byAddr := invert(names)

	listing := Listing{ByAddr: make(map[uint32]int)}
	for off := 0; off+4 <= len(text); off += 4 {
		addr := textStart + uint32(off)
		if name, ok := byAddr[addr]; ok && labelworthy(name) {
			listing.Entries = append(listing.Entries, Decoded{Tag: TagLabel, Addr: addr, LabelName: name})
		}

		word := isa.Raw(uint32(text[off]) | uint32(text[off+1])<<8 | uint32(text[off+2])<<16 | uint32(text[off+3])<<24)
		d, err := Decode(word, addr, byAddr)
		if err != nil {
			continue
		}
		listing.ByAddr[addr] = len(listing.Entries)
		listing.Entries = append(listing.Entries, d)
	}
	return listing
}

func labelworthy(name string) bool {
	if name == "" {
		return false
	}
	if name == "__start" {
		return true
	}
	return !strings.HasPrefix(name, "_")
}

// invert builds addr -> name, preferring the lexicographically smallest
// name on collision so repeated runs (spec §8 idempotence) are stable.
func invert(names map[string]uint32) map[uint32]string {
	byAddr := make(map[uint32]string, len(names))
	ordered := make([]string, 0, len(names))
	for n := range names {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)
	for _, n := range ordered {
		addr := names[n]
		if _, exists := byAddr[addr]; !exists {
			byAddr[addr] = n
		}
	}
	return byAddr
}
