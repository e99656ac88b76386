// Package main provides the entry point for y86sim.
// y86sim is a functional Y86-64 instruction-set emulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/y86sim/asm"
	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
	"github.com/sarchlab/y86sim/loader"
	"github.com/sarchlab/y86sim/timing/latency"
)

var (
	hex        = flag.Bool("hex", false, "Treat the program file as a hex listing")
	demo       = flag.Bool("demo", false, "Run the built-in demo program")
	dump       = flag.Bool("dump", false, "Print the final machine state")
	timing     = flag.Bool("timing", false, "Print a cycle estimate for the run")
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	maxSteps   = flag.Uint64("max", 0, "Maximum instructions to execute (0 = no limit)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	region, err := loadRegion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	machine := emu.NewMachine(
		emu.WithMaxInstructions(*maxSteps),
	)

	runErr := machine.Run(region)

	// Running past the end of the instruction stream is normal
	// termination for programs that do not end in halt.
	var eoi *emu.EndOfInstructionsError
	fatal := runErr != nil && !errors.As(runErr, &eoi)
	if fatal {
		fmt.Fprintf(os.Stderr, "Emulation error: %v\n", runErr)
	}

	if *verbose {
		fmt.Printf("Instructions executed: %d\n", machine.InstructionCount())
	}
	if *timing {
		table, err := latencyTable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Estimated cycles: %d\n", table.Estimate(machine.OpCounts()))
	}
	if *dump {
		dumpState(machine)
	}

	if fatal {
		os.Exit(1)
	}
}

// loadRegion builds the instruction source from the CLI arguments.
func loadRegion() (emu.Region, error) {
	if *demo {
		return demoRegion()
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: y86sim [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	path := flag.Arg(0)
	if *hex {
		return loader.LoadHex(path)
	}
	return loader.Load(path)
}

// demoRegion encodes the built-in demo: call a routine that adds
// %rsi into a copy of %rdi, leaving 12 in %rax.
func demoRegion() (emu.Region, error) {
	p := asm.NewProgram()
	p.Irmovq(7, insts.RDI)
	p.Irmovq(5, insts.RSI)
	p.Call("add_two")
	p.Halt()

	p.Label("add_two")
	p.Pushq(insts.RBP)
	p.Rrmovq(insts.RSP, insts.RBP)
	p.Rrmovq(insts.RDI, insts.RAX)
	p.Addq(insts.RSI, insts.RAX)
	p.Popq(insts.RBP)
	p.Ret()

	code, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return loader.NewChunk(code), nil
}

func latencyTable() (*latency.Table, error) {
	if *configPath == "" {
		return latency.NewTable(), nil
	}
	config, err := latency.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	return latency.NewTableWithConfig(config), nil
}

// dumpState prints the final registers, flags, and lifecycle state.
func dumpState(machine *emu.Machine) {
	regFile := machine.RegFile()

	fmt.Printf("ip     %#x\n", machine.IP())
	for r := insts.RAX; r <= insts.R14; r++ {
		fmt.Printf("%-6s %d\n", r, regFile.Read(r))
	}
	fmt.Printf("flags  ZF=%t SF=%t OF=%t\n",
		regFile.Flags.ZF, regFile.Flags.SF, regFile.Flags.OF)

	state := "active"
	if machine.State() == emu.StateHalted {
		state = "halted"
	}
	fmt.Printf("state  %s\n", state)
}
