package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mipsvm/disasm"
	"mipsvm/loader"
	"mipsvm/machine"
	"mipsvm/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{
		Use:          "mipsvm FILE",
		Short:        "Run and debug a MIPS32 little-endian ELF executable",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], useTUI)
		},
	}
	cmd.Flags().BoolVarP(&useTUI, "tui", "t", false, "run with the interactive terminal debugger")
	return cmd
}

func run(path string, useTUI bool) error {
	img, err := loader.Load(path)
	if err != nil {
		return err
	}

	labels := img.FilterLabels()
	m := machine.New(img.Raw, img.TextStart, img.TextEnd, img.Entry, img.Symbols)

	if useTUI {
		m.Stdout = &strings.Builder{}
		listing := disasm.Linear(img.Raw[img.TextStart:img.TextEnd], img.TextStart, labels)
		return tui.New(m, listing).Run()
	}
	return runHeadless(m)
}

// runHeadless steps the machine to completion with no captured-output
// buffer, so syscalls write straight to stdout (spec §6). The GC is
// disabled for the duration of the run and restored to its prior GOGC
// setting (or 100 if unset) afterward: memory is allocated up front when
// the machine is created, so the collector has nothing useful to do
// during the tight fetch/decode/execute loop.
func runHeadless(m *machine.Machine) error {
	gcPercent := 100
	if v, ok := os.LookupEnv("GOGC"); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			gcPercent = parsed
		}
	}
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	for {
		outcome, err := m.Step()
		switch outcome {
		case machine.Exit:
			os.Exit(int(m.ExitCode))
		case machine.Done:
			if err != nil {
				return err
			}
			return nil
		}
	}
}
