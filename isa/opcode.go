package isa

// Raw is a 32-bit little-endian MIPS32 instruction word, decoded field by
// field. The decoder never fails: unknown encodings are the classifier's
// concern, not this one's.
type Raw uint32

// Op returns bits 26..31.
func (w Raw) Op() uint8 {
	return uint8((w >> 26) & 0x3F)
}

// Rs returns bits 21..25.
func (w Raw) Rs() uint8 {
	return uint8((w >> 21) & 0x1F)
}

// Rt returns bits 16..20.
func (w Raw) Rt() uint8 {
	return uint8((w >> 16) & 0x1F)
}

// Rd returns bits 11..15.
func (w Raw) Rd() uint8 {
	return uint8((w >> 11) & 0x1F)
}

// Shamt returns bits 6..10, the shift amount.
func (w Raw) Shamt() uint8 {
	return uint8((w >> 6) & 0x1F)
}

// Funct returns bits 0..5, meaningful only when Op() == 0 (Special).
func (w Raw) Funct() uint8 {
	return uint8(w & 0x3F)
}

// Imm16 returns bits 0..15, sign-extended.
func (w Raw) Imm16() int16 {
	return int16(uint16(w & 0xFFFF))
}

// Addr26 returns bits 0..25, unsigned. Callers left-shift by 2 and combine
// with the PC per the jump semantics in machine/step.go.
func (w Raw) Addr26() uint32 {
	return uint32(w) & 0x03FFFFFF
}

// IsNop reports whether w is the literal all-zero word, which the
// disassembler (but not the executor — see spec §9) rewrites to Nop.
func (w Raw) IsNop() bool {
	return w == 0
}
