package disasm

import (
	"testing"

	"mipsvm/isa"
)

func encodeR(op, rs, rt, rd, shamt, funct uint8) isa.Raw {
	return isa.Raw(uint32(op)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | uint32(shamt)<<6 | uint32(funct))
}

func encodeI(op, rs, rt uint8, imm int16) isa.Raw {
	return isa.Raw(uint32(op)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(uint16(imm)))
}

func TestDecodeAllZeroIsNop(t *testing.T) {
	d, err := Decode(isa.Raw(0), 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagNop {
		t.Fatalf("Tag = %v, want TagNop", d.Tag)
	}
}

func TestDecodeUnconditionalBranchRewrittenToJump(t *testing.T) {
	// beq $zero,$zero,4 has zero operand registers and is rewritten to an
	// unconditional Jump by the disassembler only (spec §4.3/§9).
	w := encodeI(uint8(isa.OpBeq), 0, 0, 4)
	d, err := Decode(w, 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagJump {
		t.Fatalf("Tag = %v, want TagJump", d.Tag)
	}
}

func TestDecodeBgtzZeroStaysBranchZ(t *testing.T) {
	// bgtz $zero,label can never branch (0 > 0 is always false); unlike
	// Beq/Bne/Bal it must never be rewritten to an unconditional Jump.
	w := encodeI(uint8(isa.OpBgtz), 0, 0, 4)
	d, err := Decode(w, 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagBranchZ {
		t.Fatalf("Tag = %v, want TagBranchZ", d.Tag)
	}
}

func TestDecodeBlezZeroStaysBranchZ(t *testing.T) {
	w := encodeI(uint8(isa.OpBlez), 0, 0, 4)
	d, err := Decode(w, 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagBranchZ {
		t.Fatalf("Tag = %v, want TagBranchZ", d.Tag)
	}
}

func TestDecodeOrdinaryBeqStaysBranch(t *testing.T) {
	w := encodeI(uint8(isa.OpBeq), 2, 3, 4)
	d, err := Decode(w, 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagBranch {
		t.Fatalf("Tag = %v, want TagBranch", d.Tag)
	}
}

func TestBranchTargetScenario(t *testing.T) {
	// ip = 0x400010, beq $v0,$v0,+2 (imm=2); target must be 0x40001C
	// per the Branch-taken scenario.
	got := branchTarget(0x400010, 2)
	want := uint32(0x40001C)
	if got != want {
		t.Fatalf("branchTarget = 0x%08x, want 0x%08x", got, want)
	}
}

func TestBranchTargetBoundaries(t *testing.T) {
	if got := branchTarget(0x400000, 0x7FFF); got != uint32(0x400000+4*(0x7FFF+1)) {
		t.Fatalf("max positive imm target wrong: got 0x%08x", got)
	}
	if got := branchTarget(0x400000, -0x8000); got != uint32(int64(0x400000)+4*(-0x8000+1)) {
		t.Fatalf("min negative imm target wrong: got 0x%08x", got)
	}
}

func TestDecodeRoundTripShift(t *testing.T) {
	w := encodeR(0x00, 0, 8, 9, 5, uint8(isa.FnSll)) // sll $9,$8,5
	d, err := Decode(w, 0x400000, nil)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if d.Tag != TagShift || d.Rd != 9 || d.Rt != 8 || d.Shamt != 5 {
		t.Fatalf("got %+v", d)
	}
}

func TestLinearIdempotent(t *testing.T) {
	text := []byte{
		0x00, 0x00, 0x00, 0x00, // nop
		0x21, 0x48, 0x83, 0x00, // addu $9,$4,$3 (arbitrary arith-log word)
	}
	names := map[string]uint32{"__start": 0x400000}

	first := Linear(text, 0x400000, names)
	second := Linear(text, 0x400000, names)

	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if first.Entries[i] != second.Entries[i] {
			t.Fatalf("entry %d differs between runs: %+v vs %+v", i, first.Entries[i], second.Entries[i])
		}
	}
}

func TestLinearSkipsUnderscorePrefixedLabelsExceptStart(t *testing.T) {
	text := make([]byte, 8)
	names := map[string]uint32{"__start": 0x400000, "_hidden": 0x400004}

	l := Linear(text, 0x400000, names)

	var sawStart, sawHidden bool
	for _, e := range l.Entries {
		if e.Tag != TagLabel {
			continue
		}
		if e.LabelName == "__start" {
			sawStart = true
		}
		if e.LabelName == "_hidden" {
			sawHidden = true
		}
	}
	if !sawStart {
		t.Fatal("expected __start label to be emitted")
	}
	if sawHidden {
		t.Fatal("expected _hidden label to be filtered out")
	}
}
