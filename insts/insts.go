// Package insts provides Y86-64 instruction definitions and decoding.
//
// This package implements decoding of Y86-64 instruction lead bytes and
// register nibbles into structured representations. The instruction set
// consists of:
//   - halt, nop
//   - Register moves: rrmovq, cmovXX (conditional)
//   - Data movement: irmovq, rmmovq, mrmovq
//   - Arithmetic: OPq (addq, subq, andq, xorq, mulq, divq, modq)
//   - Control transfer: jXX, call, ret
//   - Stack operations: pushq, popq
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	opcode, err := decoder.DecodeOpcode(0x60) // addq
package insts

// Op represents a Y86-64 operation variant.
type Op uint8

// Y86-64 operations.
const (
	OpUnknown Op = iota
	OpHalt
	OpNop
	OpRrmovq
	OpCmovxx
	OpIrmovq
	OpRmmovq
	OpMrmovq
	OpOpq
	OpJxx
	OpCall
	OpRet
	OpPushq
	OpPopq
)

// OpFun represents the arithmetic function sub-code of an OPq
// instruction (the low nibble of the lead byte).
type OpFun uint8

// Arithmetic functions.
const (
	FunAdd OpFun = 0x0 // addq
	FunSub OpFun = 0x1 // subq (dest - src)
	FunAnd OpFun = 0x2 // andq
	FunXor OpFun = 0x3 // xorq
	FunMul OpFun = 0x4 // mulq
	FunDiv OpFun = 0x5 // divq
	FunMod OpFun = 0x6 // modq
)

// Cond represents the condition predicate of a cmovXX or jXX
// instruction (the low nibble of the lead byte).
type Cond uint8

// Condition predicates, evaluated against the ZF/SF/OF flags.
const (
	CondLE Cond = 0x1 // le: (SF ^ OF) | ZF
	CondL  Cond = 0x2 // l:  SF ^ OF
	CondE  Cond = 0x3 // e:  ZF
	CondNE Cond = 0x4 // ne: !ZF
	CondGE Cond = 0x5 // ge: !(SF ^ OF)
	CondG  Cond = 0x6 // g:  !(SF ^ OF) & !ZF
)

// Register identifies one of the 15 general-purpose registers.
// The nibble 0xF is reserved to mean "no register" in operand bytes
// and is never a valid Register.
type Register uint8

// Y86-64 registers.
const (
	RAX Register = 0x0
	RCX Register = 0x1
	RDX Register = 0x2
	RBX Register = 0x3
	RSP Register = 0x4 // stack pointer
	RBP Register = 0x5
	RSI Register = 0x6
	RDI Register = 0x7
	R8  Register = 0x8
	R9  Register = 0x9
	R10 Register = 0xA
	R11 Register = 0xB
	R12 Register = 0xC
	R13 Register = 0xD
	R14 Register = 0xE
)

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 15

// NoRegister is the operand-byte nibble used where an instruction has
// no register in that position.
const NoRegister byte = 0xF

var registerNames = [NumRegisters]string{
	"%rax", "%rcx", "%rdx", "%rbx", "%rsp", "%rbp", "%rsi", "%rdi",
	"%r8", "%r9", "%r10", "%r11", "%r12", "%r13", "%r14",
}

// String returns the AT&T-style register name.
func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return "%?"
}

// Opcode represents a decoded Y86-64 lead byte.
type Opcode struct {
	// Op is the operation variant.
	Op Op

	// Fun is the arithmetic function. Valid only when Op is OpOpq.
	Fun OpFun

	// Cond is the condition predicate. Valid only when Op is
	// OpCmovxx or OpJxx.
	Cond Cond
}
