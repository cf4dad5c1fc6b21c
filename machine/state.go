// Package machine implements the MIPS32 machine state (register file, HI/LO,
// PC, segmented memory), the single-step executor, and the MARS-style
// syscall dispatcher (spec components C5, C6, C7).
package machine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"mipsvm/isa"
)

const stackSize = 1 << 20 // 1 MiB, per spec §3

var (
	errSegmentationFault = errors.New("segmentation fault")
	errAlignment         = errors.New("misaligned memory access")

	// ErrSyscallUnimplemented is returned by dispatchSyscall for a declared
	// but not-yet-implemented MARS service (spec §4.6/§7).
	ErrSyscallUnimplemented = errors.New("syscall not implemented")
)

// Outcome is the three-valued result of a single step (spec §4.5).
type Outcome int

const (
	Continue Outcome = iota
	Done
	Exit
)

// Segment is a half-open byte range within the single flat memory blob.
type Segment struct {
	Start, End uint32
}

func (s Segment) contains(addr uint32, width uint32) bool {
	return addr >= s.Start && addr+width <= s.End
}

// openFile tracks one guest-issued file descriptor (spec invariant: fd >= 3,
// never reused while open).
type openFile struct {
	handle *os.File
}

// Machine is the MIPS32 interpreter state (spec §3/§4.4, component C5).
type Machine struct {
	reg [isa.NumRegisters]uint32
	hi, lo uint32
	pc     uint32

	memory []byte
	Text   Segment
	File   Segment
	Stack  Segment

	openFiles  map[uint32]*openFile
	nextFD     uint32
	rngs       map[uint32]*rngStream

	// Stdout is the captured output buffer. When nil, syscalls write to
	// the real process stdout.
	Stdout *strings.Builder

	// Debug maps a symbol name to its text-segment byte address. The
	// machine stores it but does not read it; the disassembler is given
	// its label map separately.
	Debug map[string]uint32

	// ExitCode is set when Outcome == Exit: 0 for the Exit syscall, the
	// low byte of a0 for Exit2.
	ExitCode uint32

	// LastErr holds the fatal decode/trap error, if any, after Step
	// returns something other than Continue following a failure.
	LastErr error
}

// New builds a Machine from a loaded ELF image: fileImage is the full file
// byte content (so .rodata/.data addresses embedded in it resolve
// correctly), textStart/textEnd bound the code segment within it, entry is
// the initial PC, and symbols (optional) seeds the debug label map.
func New(fileImage []byte, textStart, textEnd, entry uint32, symbols map[string]uint32) *Machine {
	flen := uint32(len(fileImage))

	m := &Machine{
		memory:    make([]byte, flen+stackSize),
		Text:      Segment{textStart, textEnd},
		File:      Segment{0, flen},
		Stack:     Segment{flen, flen + stackSize},
		openFiles: make(map[uint32]*openFile),
		nextFD:    3,
		rngs:      make(map[uint32]*rngStream),
		Debug:     symbols,
		pc:        entry,
	}
	copy(m.memory, fileImage)
	m.reg[29] = m.Stack.End // $sp starts at the top of the stack segment
	return m
}

// PC returns the current program counter.
func (m *Machine) PC() uint32 { return m.pc }

// Reg reads register i; reg[0] always reads 0 regardless of prior writes.
func (m *Machine) Reg(i uint8) uint32 {
	if i == 0 {
		return 0
	}
	return m.reg[i]
}

// SetReg writes register i; writes to register 0 are discarded.
func (m *Machine) SetReg(i uint8, v uint32) {
	if i == 0 {
		return
	}
	m.reg[i] = v
}

// HiLo returns the HI/LO multiply-divide result registers.
func (m *Machine) HiLo() (hi, lo uint32) { return m.hi, m.lo }

// Snapshot returns a copy of the register file and PC, safe for a reader
// (the TUI) to hold between steps without racing the executor — the
// executor owns the only mutable reference to the live state (spec §9).
type Snapshot struct {
	Regs [isa.NumRegisters]uint32
	Hi, Lo uint32
	PC     uint32
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{Regs: m.reg, Hi: m.hi, Lo: m.lo, PC: m.pc}
	s.Regs[0] = 0
	return s
}

func (m *Machine) inAnySegment(addr uint32, width uint32) bool {
	return m.Text.contains(addr, width) || m.File.contains(addr, width) || m.Stack.contains(addr, width)
}

// ReadU32 reads a little-endian 32-bit word. Alignment is the caller's
// responsibility (LW/SW enforce it; other accessors don't, per spec §4.4).
func (m *Machine) ReadU32(addr uint32) (uint32, error) {
	if !m.inAnySegment(addr, 4) {
		return 0, fmt.Errorf("%w: read32 at 0x%08x", errSegmentationFault, addr)
	}
	return binary.LittleEndian.Uint32(m.memory[addr:]), nil
}

func (m *Machine) ReadU16(addr uint32) (uint16, error) {
	if !m.inAnySegment(addr, 2) {
		return 0, fmt.Errorf("%w: read16 at 0x%08x", errSegmentationFault, addr)
	}
	return binary.LittleEndian.Uint16(m.memory[addr:]), nil
}

func (m *Machine) ReadU8(addr uint32) (uint8, error) {
	if !m.inAnySegment(addr, 1) {
		return 0, fmt.Errorf("%w: read8 at 0x%08x", errSegmentationFault, addr)
	}
	return m.memory[addr], nil
}

func (m *Machine) WriteU32(addr uint32, v uint32) error {
	if !m.inAnySegment(addr, 4) {
		return fmt.Errorf("%w: write32 at 0x%08x", errSegmentationFault, addr)
	}
	binary.LittleEndian.PutUint32(m.memory[addr:], v)
	return nil
}

func (m *Machine) WriteU16(addr uint32, v uint16) error {
	if !m.inAnySegment(addr, 2) {
		return fmt.Errorf("%w: write16 at 0x%08x", errSegmentationFault, addr)
	}
	binary.LittleEndian.PutUint16(m.memory[addr:], v)
	return nil
}

func (m *Machine) WriteU8(addr uint32, v uint8) error {
	if !m.inAnySegment(addr, 1) {
		return fmt.Errorf("%w: write8 at 0x%08x", errSegmentationFault, addr)
	}
	m.memory[addr] = v
	return nil
}

// ReadCString reads a NUL-terminated byte sequence starting at addr.
func (m *Machine) ReadCString(addr uint32) (string, error) {
	var b strings.Builder
	for {
		c, err := m.ReadU8(addr)
		if err != nil {
			return "", err
		}
		if c == 0 {
			return b.String(), nil
		}
		b.WriteByte(c)
		addr++
	}
}

// InstructionAt fetches the raw word at ip, or reports that ip is outside
// the text segment (component C5's instruction_at contract).
func (m *Machine) InstructionAt(ip uint32) (isa.Raw, bool) {
	if !m.Text.contains(ip, 4) {
		return 0, false
	}
	w := binary.LittleEndian.Uint32(m.memory[ip:])
	return isa.Raw(w), true
}
