// Package emu provides functional Y86-64 emulation.
package emu

import (
	"errors"
	"fmt"
)

// Machine-level errors.
var (
	// ErrMachineHalted is returned by Step after a halt instruction
	// has executed. The halted state is terminal.
	ErrMachineHalted = errors.New("machine is halted")

	// ErrDivisionByZero is returned when a divq or modq instruction
	// has a zero divisor. The failing instruction mutates no
	// register or flag.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInstructionLimit is returned by Step once the configured
	// maximum number of instructions has been executed.
	ErrInstructionLimit = errors.New("instruction limit reached")
)

// UnalignedAccessError reports a memory access whose address is not
// block-aligned.
type UnalignedAccessError struct {
	// Addr is the offending address.
	Addr uint64
}

func (e *UnalignedAccessError) Error() string {
	return fmt.Sprintf("unaligned memory access at address %#x", e.Addr)
}

// InvalidAddressError reports a memory access whose block extends
// past the end of memory.
type InvalidAddressError struct {
	// Addr is the offending address.
	Addr uint64
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid memory accessed at address %#x", e.Addr)
}

// EndOfInstructionsError reports an instruction pointer that ran past
// the supplied instruction stream. Callers treat it as the normal
// termination condition for programs that do not end in halt.
type EndOfInstructionsError struct {
	// IP is the offset of the first byte that could not be fetched.
	IP uint64
}

func (e *EndOfInstructionsError) Error() string {
	return fmt.Sprintf("reached the end of instructions at ip %d", e.IP)
}
