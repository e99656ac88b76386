// Package main provides the entry point for y86sim.
// y86sim is a functional Y86-64 instruction-set emulator.
//
// For the full CLI, use: go run ./cmd/y86sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("y86sim - Y86-64 Instruction-Set Emulator")
	fmt.Println("")
	fmt.Println("Usage: y86sim [options] <program>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -hex       Treat the program file as a hex listing")
	fmt.Println("  -demo      Run the built-in demo program")
	fmt.Println("  -dump      Print the final machine state")
	fmt.Println("  -timing    Print a cycle estimate for the run")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/y86sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/y86sim' instead.")
	}
}
