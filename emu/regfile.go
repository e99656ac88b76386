// Package emu provides functional Y86-64 emulation.
package emu

import "github.com/sarchlab/y86sim/insts"

// Flags holds the machine's condition codes. They are set only by
// arithmetic instructions, never by moves or stack operations.
type Flags struct {
	// ZF is the zero flag.
	ZF bool
	// SF is the sign flag.
	SF bool
	// OF is the overflow flag.
	OF bool
}

// RegFile represents the Y86-64 register file: 15 general-purpose
// word registers plus the condition flags.
type RegFile struct {
	regs [insts.NumRegisters]int64

	// Flags holds the condition codes.
	Flags Flags
}

// NewRegFile creates a register file in its initial state: the stack
// pointer at the top block of memory (the stack grows downward) and
// every other register zero, all flags clear.
func NewRegFile() *RegFile {
	r := &RegFile{}
	r.regs[insts.RSP] = MemorySize - BlockSize
	return r
}

// Read returns the value of a register. Register identifiers are
// validated at decode time, so reg is always in range here.
func (r *RegFile) Read(reg insts.Register) int64 {
	return r.regs[reg]
}

// Write sets the value of a register.
func (r *RegFile) Write(reg insts.Register, value int64) {
	r.regs[reg] = value
}

// EvalCondition evaluates a condition predicate against the current
// flags.
func (r *RegFile) EvalCondition(cond insts.Cond) bool {
	f := &r.Flags

	switch cond {
	case insts.CondLE:
		// le: (SF ^ OF) | ZF
		return (f.SF != f.OF) || f.ZF
	case insts.CondL:
		// l: SF ^ OF
		return f.SF != f.OF
	case insts.CondE:
		// e: ZF
		return f.ZF
	case insts.CondNE:
		// ne: !ZF
		return !f.ZF
	case insts.CondGE:
		// ge: !(SF ^ OF)
		return f.SF == f.OF
	case insts.CondG:
		// g: !(SF ^ OF) & !ZF
		return f.SF == f.OF && !f.ZF
	default:
		return false
	}
}
