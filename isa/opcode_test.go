package isa

import "testing"

func encode(op uint8, rs, rt, rd, shamt, funct uint8) Raw {
	return Raw(uint32(op)<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | uint32(shamt)<<6 | uint32(funct))
}

func TestFieldExtraction(t *testing.T) {
	w := encode(0x00, 5, 6, 7, 3, 0x20) // add $7,$5,$6

	if got := w.Op(); got != 0x00 {
		t.Fatalf("Op() = 0x%02x, want 0x00", got)
	}
	if got := w.Rs(); got != 5 {
		t.Fatalf("Rs() = %d, want 5", got)
	}
	if got := w.Rt(); got != 6 {
		t.Fatalf("Rt() = %d, want 6", got)
	}
	if got := w.Rd(); got != 7 {
		t.Fatalf("Rd() = %d, want 7", got)
	}
	if got := w.Shamt(); got != 3 {
		t.Fatalf("Shamt() = %d, want 3", got)
	}
	if got := w.Funct(); got != 0x20 {
		t.Fatalf("Funct() = 0x%02x, want 0x20", got)
	}
}

func TestImm16SignExtension(t *testing.T) {
	cases := []struct {
		bits uint32
		want int16
	}{
		{0x0000, 0},
		{0x7FFF, 0x7FFF},
		{0x8000, -0x8000},
		{0xFFFF, -1},
	}
	for _, c := range cases {
		w := Raw(c.bits)
		if got := w.Imm16(); got != c.want {
			t.Errorf("Imm16(0x%04x) = %d, want %d", c.bits, got, c.want)
		}
	}
}

func TestAddr26(t *testing.T) {
	w := Raw(0x03FFFFFF)
	if got := w.Addr26(); got != 0x03FFFFFF {
		t.Fatalf("Addr26() = 0x%08x, want 0x03ffffff", got)
	}
	w = Raw(0xFC000000) // op bits set, addr26 bits clear
	if got := w.Addr26(); got != 0 {
		t.Fatalf("Addr26() = 0x%08x, want 0", got)
	}
}

func TestIsNop(t *testing.T) {
	if !Raw(0).IsNop() {
		t.Fatal("Raw(0).IsNop() = false, want true")
	}
	if Raw(1).IsNop() {
		t.Fatal("Raw(1).IsNop() = true, want false")
	}
}
