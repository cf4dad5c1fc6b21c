package machine

import (
	"fmt"

	"mipsvm/isa"
)

// Step executes exactly one instruction (spec §4.5, component C6):
// fetch -> classify -> dispatch -> commit. It returns Continue unless the
// program has run off the end of text (Done) or a syscall requested
// termination (Exit, with m.ExitCode set).
//
// Unlike the disassembler, Step never rewrites Sll $0,$0,0 to a no-op or an
// unconditional branch to a Jump — both are executed as ordinary
// instructions here (spec §9: the asymmetry is intentional).
func (m *Machine) Step() (Outcome, error) {
	if m.pc == m.Text.End {
		return Done, nil
	}

	word, ok := m.InstructionAt(m.pc)
	if !ok {
		err := fmt.Errorf("%w: pc 0x%08x outside text segment", errSegmentationFault, m.pc)
		m.LastErr = err
		return Done, err
	}

	ip := m.pc
	m.pc += 4

	op, funct, isSpecial, err := isa.Classify(word)
	if err != nil {
		m.LastErr = err
		return Done, err
	}

	var out Outcome
	if isSpecial {
		out, err = m.execSpecial(word, funct)
	} else {
		out, err = m.execOp(word, ip, op)
	}
	if err != nil {
		m.LastErr = err
		return Done, err
	}
	return out, nil
}

func (m *Machine) execSpecial(word isa.Raw, funct isa.Funct) (Outcome, error) {
	rd, rs, rt, shamt := word.Rd(), word.Rs(), word.Rt(), word.Shamt()

	switch funct {
	case isa.FnSll:
		m.SetReg(rd, m.Reg(rt)<<shamt)
	case isa.FnSrl:
		m.SetReg(rd, m.Reg(rt)>>shamt)
	case isa.FnSra:
		m.SetReg(rd, uint32(int32(m.Reg(rt))>>shamt))
	case isa.FnSllv:
		m.SetReg(rd, m.Reg(rt)<<(m.Reg(rs)&0x1F))
	case isa.FnSrlv:
		m.SetReg(rd, m.Reg(rt)>>(m.Reg(rs)&0x1F))
	case isa.FnSrav:
		m.SetReg(rd, uint32(int32(m.Reg(rt))>>(m.Reg(rs)&0x1F)))
	case isa.FnJr:
		m.pc = m.Reg(rs)
	case isa.FnJalr:
		m.SetReg(rd, m.pc)
		m.pc = m.Reg(rs)
	case isa.FnSyscall:
		return m.dispatchSyscall()
	case isa.FnMfhi:
		m.SetReg(rd, m.hi)
	case isa.FnMflo:
		m.SetReg(rd, m.lo)
	case isa.FnMthi:
		m.hi = m.Reg(rs)
	case isa.FnMtlo:
		m.lo = m.Reg(rs)
	case isa.FnMult:
		prod := int64(int32(m.Reg(rs))) * int64(int32(m.Reg(rt)))
		m.hi, m.lo = uint32(uint64(prod)>>32), uint32(uint64(prod))
	case isa.FnMultU:
		prod := uint64(m.Reg(rs)) * uint64(m.Reg(rt))
		m.hi, m.lo = uint32(prod>>32), uint32(prod)
	case isa.FnDiv:
		s, t := int32(m.Reg(rs)), int32(m.Reg(rt))
		if t != 0 {
			m.lo, m.hi = uint32(s/t), uint32(s%t)
		}
	case isa.FnDivU:
		s, t := m.Reg(rs), m.Reg(rt)
		if t != 0 {
			m.lo, m.hi = s/t, s%t
		}
	case isa.FnAdd, isa.FnAddu:
		m.SetReg(rd, m.Reg(rs)+m.Reg(rt))
	case isa.FnSub, isa.FnSubu:
		m.SetReg(rd, m.Reg(rs)-m.Reg(rt))
	case isa.FnAnd:
		m.SetReg(rd, m.Reg(rs)&m.Reg(rt))
	case isa.FnOr:
		m.SetReg(rd, m.Reg(rs)|m.Reg(rt))
	case isa.FnXor:
		m.SetReg(rd, m.Reg(rs)^m.Reg(rt))
	case isa.FnNor:
		m.SetReg(rd, ^(m.Reg(rs) | m.Reg(rt)))
	case isa.FnSlt:
		m.SetReg(rd, boolToWord(int32(m.Reg(rs)) < int32(m.Reg(rt))))
	case isa.FnSltu:
		m.SetReg(rd, boolToWord(m.Reg(rs) < m.Reg(rt)))
	default:
		return Done, &isa.UnknownEncodingError{Op: uint8(isa.OpSpecial), Funct: uint8(funct), HasFunct: true}
	}
	return Continue, nil
}

func (m *Machine) execOp(word isa.Raw, ip uint32, op isa.Op) (Outcome, error) {
	rs, rt := word.Rs(), word.Rt()
	imm := word.Imm16()

	switch op {
	case isa.OpJ:
		m.pc = m.pc + word.Addr26()*4
	case isa.OpJal:
		m.SetReg(31, m.pc)
		m.pc = m.pc + word.Addr26()*4

	case isa.OpBeq:
		if m.Reg(rs) == m.Reg(rt) {
			m.pc = m.pc + uint32(int32(imm)<<2)
		}
	case isa.OpBne:
		if m.Reg(rs) != m.Reg(rt) {
			m.pc = m.pc + uint32(int32(imm)<<2)
		}
	case isa.OpBlez:
		if int32(m.Reg(rs)) <= 0 {
			m.pc = m.pc + uint32(int32(imm)<<2)
		}
	case isa.OpBgtz:
		if int32(m.Reg(rs)) > 0 {
			m.pc = m.pc + uint32(int32(imm)<<2)
		}
	case isa.OpBal:
		m.SetReg(31, ip+8)
		m.pc = m.pc + uint32(int32(imm)<<2)

	case isa.OpAddI, isa.OpAddIU:
		m.SetReg(rt, m.Reg(rs)+uint32(int32(imm)))
	case isa.OpSltI:
		m.SetReg(rt, boolToWord(int32(m.Reg(rs)) < int32(imm)))
	case isa.OpSltIU:
		m.SetReg(rt, boolToWord(m.Reg(rs) < uint32(int32(imm))))
	case isa.OpAndI:
		m.SetReg(rt, m.Reg(rs)&uint32(uint16(imm)))
	case isa.OpOrI:
		m.SetReg(rt, m.Reg(rs)|uint32(uint16(imm)))
	case isa.OpXorI:
		m.SetReg(rt, m.Reg(rs)^uint32(uint16(imm)))
	case isa.OpLUI:
		m.SetReg(rt, uint32(uint16(imm))<<16)

	case isa.OpLB:
		addr := m.Reg(rs) + uint32(int32(imm))
		b, err := m.ReadU8(addr)
		if err != nil {
			return Done, err
		}
		m.SetReg(rt, uint32(int32(int8(b))))
	case isa.OpLBU:
		addr := m.Reg(rs) + uint32(int32(imm))
		b, err := m.ReadU8(addr)
		if err != nil {
			return Done, err
		}
		m.SetReg(rt, uint32(b))
	case isa.OpLHU:
		addr := m.Reg(rs) + uint32(int32(imm))
		h, err := m.ReadU16(addr)
		if err != nil {
			return Done, err
		}
		m.SetReg(rt, uint32(h))
	case isa.OpLW, isa.OpLL, isa.OpLwci:
		addr := m.Reg(rs) + uint32(int32(imm))
		if addr%4 != 0 {
			return Done, fmt.Errorf("%w: lw at 0x%08x", errAlignment, addr)
		}
		w, err := m.ReadU32(addr)
		if err != nil {
			return Done, err
		}
		m.SetReg(rt, w)
	case isa.OpSB:
		addr := m.Reg(rs) + uint32(int32(imm))
		if err := m.WriteU8(addr, uint8(m.Reg(rt))); err != nil {
			return Done, err
		}
	case isa.OpSH:
		addr := m.Reg(rs) + uint32(int32(imm))
		if err := m.WriteU16(addr, uint16(m.Reg(rt))); err != nil {
			return Done, err
		}
	case isa.OpSW:
		addr := m.Reg(rs) + uint32(int32(imm))
		if addr%4 != 0 {
			return Done, fmt.Errorf("%w: sw at 0x%08x", errAlignment, addr)
		}
		if err := m.WriteU32(addr, m.Reg(rt)); err != nil {
			return Done, err
		}
	case isa.OpSc:
		// Treated as a non-atomic store that always reports success.
		addr := m.Reg(rs) + uint32(int32(imm))
		if addr%4 != 0 {
			return Done, fmt.Errorf("%w: sc at 0x%08x", errAlignment, addr)
		}
		if err := m.WriteU32(addr, m.Reg(rt)); err != nil {
			return Done, err
		}
		m.SetReg(rt, 1)

	case isa.OpCache, isa.OpMfc0:
		// No-ops (coprocessor-0 access and cache control are out of scope).

	default:
		return Done, &isa.UnknownEncodingError{Op: uint8(op)}
	}
	return Continue, nil
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
