// Package tui is the terminal debugger front end (spec §4.7/§6, component
// C8): a three-pane view over a machine.Machine plus a disassembly
// listing, driven by termbox-go the way the retrieval pack's mos6502
// project drives its own debugger.
package tui

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"

	"mipsvm/disasm"
	"mipsvm/isa"
	"mipsvm/machine"
)

const (
	colDefault = termbox.ColorDefault
	colCursor  = termbox.ColorBlack
	colCursorBg = termbox.ColorWhite
	colPC      = termbox.ColorYellow
)

// Driver owns the three-pane view and the input/tick loop. It reads
// register state through Snapshot (the one boundary spec §9 draws between
// the single-step executor and any reader of its state) and mutates the
// Machine only by calling Step and, when a register edit is committed,
// SetReg.
type Driver struct {
	m       *machine.Machine
	listing disasm.Listing

	cursor   int  // selected register index, 0..31
	hexMode  bool // x/d toggle
	editing  bool
	editBuf  string

	// playEnabled and tickPeriodMs are shared between the input goroutine,
	// which writes both, and the tick goroutine, which reads both and
	// clears playEnabled on a terminal outcome; atomics give us that
	// without a mutex.
	playEnabled  atomic.Bool
	tickPeriodMs atomic.Int64

	quit chan struct{}
}

// New builds a Driver over an already-constructed Machine and its linear
// disassembly listing.
func New(m *machine.Machine, listing disasm.Listing) *Driver {
	d := &Driver{
		m:       m,
		listing: listing,
		quit:    make(chan struct{}),
	}
	d.tickPeriodMs.Store(200)
	return d
}

// Run initializes termbox, starts the tick goroutine, and blocks until the
// user quits with 'q' (spec §6).
func (d *Driver) Run() error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("tui: termbox init: %w", err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc)

	go d.tickLoop()

	d.render()
	for {
		ev := termbox.PollEvent()
		if ev.Type != termbox.EventKey {
			if ev.Type == termbox.EventResize {
				d.render()
			}
			continue
		}
		if d.handleKey(ev) {
			close(d.quit)
			return nil
		}
		d.render()
	}
}

// tickLoop advances the machine on a timer while playEnabled is set. It is
// the sole writer of machine state outside the main input goroutine, so
// the two never call Step concurrently: auto-step disables itself on any
// terminal outcome, and single-step ('n') is only honored while paused.
func (d *Driver) tickLoop() {
	for {
		period := time.Duration(d.tickPeriodMs.Load()) * time.Millisecond
		select {
		case <-d.quit:
			return
		case <-time.After(period):
		}
		if !d.playEnabled.Load() {
			continue
		}
		outcome, _ := d.m.Step()
		if outcome != machine.Continue {
			d.playEnabled.Store(false)
		}
	}
}

// handleKey applies one key event (spec §6's key table) and reports
// whether the driver should exit.
func (d *Driver) handleKey(ev termbox.Event) bool {
	if d.editing {
		d.handleEditKey(ev)
		return false
	}

	switch ev.Ch {
	case 'j':
		d.cursor = (d.cursor + 1) % isa.NumRegisters
	case 'k':
		d.cursor = (d.cursor - 1 + isa.NumRegisters) % isa.NumRegisters
	case 'x':
		d.hexMode = true
	case 'd':
		d.hexMode = false
	case 'n':
		if !d.playEnabled.Load() {
			d.m.Step()
		}
	case 'q':
		return true
	case '+':
		if next := d.tickPeriodMs.Load() - 100; next >= 100 {
			d.tickPeriodMs.Store(next)
		}
	case '-':
		d.tickPeriodMs.Store(d.tickPeriodMs.Load() + 100)
	}

	switch ev.Key {
	case termbox.KeyArrowDown:
		d.cursor = (d.cursor + 1) % isa.NumRegisters
	case termbox.KeyArrowUp:
		d.cursor = (d.cursor - 1 + isa.NumRegisters) % isa.NumRegisters
	case termbox.KeyEnter:
		d.editing = true
		d.editBuf = ""
	case termbox.KeySpace:
		d.playEnabled.Store(!d.playEnabled.Load())
	case termbox.KeyEsc:
		// handled in handleEditKey while editing; no-op otherwise
	}
	return false
}

func (d *Driver) handleEditKey(ev termbox.Event) {
	switch ev.Key {
	case termbox.KeyEnter:
		if v, err := parseEditBuf(d.editBuf, d.hexMode); err == nil {
			d.m.SetReg(uint8(d.cursor), v)
		}
		d.editing = false
	case termbox.KeyEsc:
		d.editing = false
	case termbox.KeyBackspace, termbox.KeyBackspace2:
		if len(d.editBuf) > 0 {
			d.editBuf = d.editBuf[:len(d.editBuf)-1]
		}
	default:
		if ev.Ch != 0 {
			d.editBuf += string(ev.Ch)
		}
	}
}

func parseEditBuf(s string, hex bool) (uint32, error) {
	var v uint32
	format := "%d"
	if hex {
		format = "%x"
	}
	_, err := fmt.Sscanf(s, format, &v)
	return v, err
}

func (d *Driver) render() {
	termbox.Clear(colDefault, colDefault)
	w, h := termbox.Size()

	regW := 22
	ioW := 28
	disasmW := w - regW - ioW
	if disasmW < 10 {
		disasmW = 10
	}

	snap := d.m.Snapshot()
	d.renderRegisters(0, 0, regW, h, snap)
	d.renderDisasm(regW, 0, disasmW, h, snap)
	d.renderOutput(regW+disasmW, 0, ioW, h)

	termbox.Flush()
}

func (d *Driver) renderRegisters(x, y, w, h int, snap machine.Snapshot) {
	printAt(x, y, colDefault, colDefault, "REGISTERS")
	for i := 0; i < isa.NumRegisters && y+1+i < h; i++ {
		fg := colDefault
		bg := colDefault
		if i == d.cursor {
			fg, bg = colCursor, colCursorBg
		}
		val := snap.Regs[i]
		var valStr string
		if d.hexMode {
			valStr = fmt.Sprintf("0x%08x", val)
		} else {
			valStr = fmt.Sprintf("%d", int32(val))
		}
		line := fmt.Sprintf("%-5s %s", isa.Register(i).ABIName(), valStr)
		if i == d.cursor && d.editing {
			line = fmt.Sprintf("%-5s %s_", isa.Register(i).ABIName(), d.editBuf)
		}
		printAt(x, y+1+i, fg, bg, line)
	}
	if y+34 < h {
		printAt(x, y+34, colDefault, colDefault, fmt.Sprintf("pc  0x%08x", snap.PC))
		printAt(x, y+35, colDefault, colDefault, fmt.Sprintf("hi  0x%08x", snap.Hi))
		printAt(x, y+36, colDefault, colDefault, fmt.Sprintf("lo  0x%08x", snap.Lo))
	}
}

func (d *Driver) renderDisasm(x, y, w, h int, snap machine.Snapshot) {
	printAt(x, y, colDefault, colDefault, "DISASSEMBLY")
	idx, ok := d.listing.ByAddr[snap.PC]
	if !ok {
		return
	}
	start := idx - h/2
	if start < 0 {
		start = 0
	}
	for row := 0; row+1 < h && start+row < len(d.listing.Entries); row++ {
		e := d.listing.Entries[start+row]
		fg := colDefault
		if e.Addr == snap.PC {
			fg = colPC
		}
		printAt(x, y+1+row, fg, colDefault, formatEntry(e))
	}
}

func formatEntry(e disasm.Decoded) string {
	if e.Tag == disasm.TagLabel {
		return e.String()
	}
	return fmt.Sprintf("0x%08x  %s", e.Addr, e)
}

func (d *Driver) renderOutput(x, y, w, h int) {
	printAt(x, y, colDefault, colDefault, "OUTPUT")
	if d.m.Stdout == nil {
		return
	}
	lines := wrapLines(d.m.Stdout.String(), w)
	start := 0
	if len(lines) > h-1 {
		start = len(lines) - (h - 1)
	}
	for row, line := range lines[start:] {
		if y+1+row >= h {
			break
		}
		printAt(x, y+1+row, colDefault, colDefault, line)
	}
}

func wrapLines(s string, w int) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '\n' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
		if runewidth.StringWidth(cur) >= w {
			out = append(out, cur)
			cur = ""
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func printAt(x, y int, fg, bg termbox.Attribute, s string) {
	for i, r := range s {
		termbox.SetCell(x+i, y, r, fg, bg)
	}
}
