// Package emu provides functional Y86-64 emulation.
package emu

import (
	"math"

	"github.com/sarchlab/y86sim/insts"
)

// ALU implements the Y86-64 arithmetic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Execute performs dest := f(val_dest, val_src) for the given
// arithmetic function, then sets ZF/SF from the result and OF from
// the operation's overflow indicator. Add, sub, and mul wrap on
// overflow and report it through OF; and/xor/div/mod always clear OF.
// A zero divisor fails with ErrDivisionByZero before any register or
// flag is written.
func (a *ALU) Execute(fun insts.OpFun, src, dest insts.Register) error {
	valA := a.regFile.Read(src)
	valB := a.regFile.Read(dest)

	var result int64
	var overflow bool

	switch fun {
	case insts.FunAdd:
		result = valB + valA
		overflow = addOverflows(valB, valA, result)
	case insts.FunSub:
		result = valB - valA
		overflow = subOverflows(valB, valA, result)
	case insts.FunAnd:
		result = valB & valA
	case insts.FunXor:
		result = valB ^ valA
	case insts.FunMul:
		result = valB * valA
		overflow = mulOverflows(valB, valA, result)
	case insts.FunDiv:
		if valA == 0 {
			return ErrDivisionByZero
		}
		result = quotient(valB, valA)
	case insts.FunMod:
		if valA == 0 {
			return ErrDivisionByZero
		}
		result = remainder(valB, valA)
	}

	a.regFile.Write(dest, result)
	a.regFile.Flags.ZF = result == 0
	a.regFile.Flags.SF = result < 0
	a.regFile.Flags.OF = overflow

	return nil
}

// addOverflows reports signed overflow of result = op1 + op2.
// Overflow occurs when adding two operands of the same sign yields a
// result of the opposite sign.
func addOverflows(op1, op2, result int64) bool {
	return (op1 >= 0) == (op2 >= 0) && (result >= 0) != (op1 >= 0)
}

// subOverflows reports signed overflow of result = op1 - op2.
// Overflow occurs when the operands have different signs and the
// result has the sign of the subtrahend.
func subOverflows(op1, op2, result int64) bool {
	return (op1 >= 0) != (op2 >= 0) && (result >= 0) == (op2 >= 0)
}

// mulOverflows reports signed overflow of result = op1 * op2, where
// result is the wrapped (truncated) product.
func mulOverflows(op1, op2, result int64) bool {
	switch {
	case op1 == 0 || op2 == 0:
		return false
	case op2 == -1:
		return op1 == math.MinInt64
	default:
		return result/op2 != op1
	}
}

// quotient computes op1 / op2 with wraparound semantics. Go's
// division traps on MinInt64 / -1, so the -1 divisor is computed as a
// wrapping negation instead.
func quotient(op1, op2 int64) int64 {
	if op2 == -1 {
		return -op1
	}
	return op1 / op2
}

// remainder computes op1 % op2, defined as 0 for a -1 divisor to
// match the wrapping quotient.
func remainder(op1, op2 int64) int64 {
	if op2 == -1 {
		return 0
	}
	return op1 % op2
}
