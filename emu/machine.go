// Package emu provides functional Y86-64 emulation.
package emu

import (
	"encoding/binary"

	"github.com/sarchlab/y86sim/insts"
)

// State represents the machine lifecycle state.
type State uint8

// Machine lifecycle states. A machine starts Active; executing halt
// moves it to Halted, which is terminal.
const (
	StateActive State = iota
	StateHalted
)

// Machine executes Y86-64 instructions functionally. It owns the
// register file, main memory, and instruction pointer; the
// instruction stream is supplied per step as a borrowed Region.
type Machine struct {
	ip      uint64
	memory  *Memory
	regFile *RegFile
	decoder *insts.Decoder
	alu     *ALU
	state   State

	// Execution statistics
	instructionCount uint64
	opCounts         map[insts.Op]uint64
	maxInstructions  uint64 // 0 means no limit
}

// MachineOption is a functional option for configuring the Machine.
type MachineOption func(*Machine)

// WithMaxInstructions sets the maximum number of instructions to
// execute. A value of 0 means no limit.
func WithMaxInstructions(max uint64) MachineOption {
	return func(m *Machine) {
		m.maxInstructions = max
	}
}

// NewMachine creates a new Y86-64 machine in its initial state:
// zero-filled memory, stack pointer at the top of memory, instruction
// pointer at 0, state Active.
func NewMachine(opts ...MachineOption) *Machine {
	regFile := NewRegFile()

	m := &Machine{
		memory:   NewMemory(),
		regFile:  regFile,
		decoder:  insts.NewDecoder(),
		alu:      NewALU(regFile),
		state:    StateActive,
		opCounts: make(map[insts.Op]uint64),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RegFile returns the machine's register file.
func (m *Machine) RegFile() *RegFile {
	return m.regFile
}

// Memory returns the machine's main memory.
func (m *Machine) Memory() *Memory {
	return m.memory
}

// IP returns the current instruction pointer.
func (m *Machine) IP() uint64 {
	return m.ip
}

// State returns the machine lifecycle state.
func (m *Machine) State() State {
	return m.state
}

// InstructionCount returns the number of instructions executed.
func (m *Machine) InstructionCount() uint64 {
	return m.instructionCount
}

// OpCounts returns the number of completed executions per operation
// variant. The returned map is a copy.
func (m *Machine) OpCounts() map[insts.Op]uint64 {
	counts := make(map[insts.Op]uint64, len(m.opCounts))
	for op, n := range m.opCounts {
		counts[op] = n
	}
	return counts
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.ip = 0
	m.memory = NewMemory()
	m.regFile = NewRegFile()
	m.alu = NewALU(m.regFile)
	m.state = StateActive
	m.instructionCount = 0
	m.opCounts = make(map[insts.Op]uint64)
}

// Step fetches, decodes, and executes a single instruction from the
// region. Decode errors, memory errors, division by zero, and running
// past the end of the region are propagated unchanged; none are
// retried. Stepping a halted machine fails with ErrMachineHalted
// before any fetch.
func (m *Machine) Step(region Region) error {
	if m.state == StateHalted {
		return ErrMachineHalted
	}
	if m.maxInstructions > 0 && m.instructionCount >= m.maxInstructions {
		return ErrInstructionLimit
	}

	lead, err := m.fetchByte(region)
	if err != nil {
		return err
	}

	opcode, err := m.decoder.DecodeOpcode(lead)
	if err != nil {
		return err
	}

	if err := m.execute(region, opcode); err != nil {
		return err
	}

	m.instructionCount++
	m.opCounts[opcode.Op]++

	return nil
}

// Run executes instructions until the machine halts or a step fails.
// A halt instruction ends the run with a nil error; every other
// terminating condition (including running past the end of the
// region) is returned to the caller.
func (m *Machine) Run(region Region) error {
	for {
		if err := m.Step(region); err != nil {
			return err
		}
		if m.state == StateHalted {
			return nil
		}
	}
}

// fetchByte consumes the next instruction byte, advancing the
// instruction pointer past it.
func (m *Machine) fetchByte(region Region) (byte, error) {
	code := region.Instructions()
	if m.ip >= uint64(len(code)) {
		return 0, &EndOfInstructionsError{IP: m.ip}
	}
	b := code[m.ip]
	m.ip++
	return b, nil
}

// fetchWord consumes the next 8 instruction bytes as a little-endian
// signed word. A short stream reports the offset of the first missing
// byte, with the instruction pointer left past the consumed bytes.
func (m *Machine) fetchWord(region Region) (int64, error) {
	var buf [BlockSize]byte
	for i := range buf {
		b, err := m.fetchByte(region)
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// execute dispatches a decoded opcode to its semantic handler.
func (m *Machine) execute(region Region, opcode insts.Opcode) error {
	switch opcode.Op {
	case insts.OpHalt:
		return m.executeHalt()
	case insts.OpNop:
		return nil
	case insts.OpRrmovq:
		return m.executeRrmovq(region)
	case insts.OpCmovxx:
		return m.executeCmovxx(region, opcode.Cond)
	case insts.OpIrmovq:
		return m.executeIrmovq(region)
	case insts.OpRmmovq:
		return m.executeRmmovq(region)
	case insts.OpMrmovq:
		return m.executeMrmovq(region)
	case insts.OpOpq:
		return m.executeOpq(region, opcode.Fun)
	case insts.OpJxx:
		return m.executeJxx(region, opcode.Cond)
	case insts.OpCall:
		return m.executeCall(region)
	case insts.OpRet:
		return m.executeRet()
	case insts.OpPushq:
		return m.executePushq(region)
	case insts.OpPopq:
		return m.executePopq(region)
	default:
		return &insts.InvalidOpcodeError{Byte: byte(opcode.Op)}
	}
}

// executeHalt moves the machine to the terminal Halted state.
func (m *Machine) executeHalt() error {
	m.state = StateHalted
	return nil
}

// executeRrmovq implements rrmovq: dest := val_src, unconditional.
func (m *Machine) executeRrmovq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	src, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}

	m.regFile.Write(dest, m.regFile.Read(src))
	return nil
}

// executeCmovxx implements cmovXX: dest := val_src only if the
// condition holds. The operand byte is consumed and both registers
// are validated either way.
func (m *Machine) executeCmovxx(region Region, cond insts.Cond) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	src, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}

	if m.regFile.EvalCondition(cond) {
		m.regFile.Write(dest, m.regFile.Read(src))
	}
	return nil
}

// executeIrmovq implements irmovq: dest := immediate. The source
// nibble of the operand byte carries no register and is not decoded.
func (m *Machine) executeIrmovq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}
	value, err := m.fetchWord(region)
	if err != nil {
		return err
	}

	m.regFile.Write(dest, value)
	return nil
}

// executeRmmovq implements rmmovq: M[val_base + disp] := val_src.
func (m *Machine) executeRmmovq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	src, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}
	base, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}
	disp, err := m.fetchWord(region)
	if err != nil {
		return err
	}

	addr := uint64(m.regFile.Read(base) + disp)
	return m.memory.Write(addr, m.regFile.Read(src))
}

// executeMrmovq implements mrmovq: dest := M[val_base + disp].
func (m *Machine) executeMrmovq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}
	base, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}
	disp, err := m.fetchWord(region)
	if err != nil {
		return err
	}

	addr := uint64(m.regFile.Read(base) + disp)
	value, err := m.memory.Read(addr)
	if err != nil {
		return err
	}

	m.regFile.Write(dest, value)
	return nil
}

// executeOpq implements OPq: dest := f(val_dest, val_src), updating
// the condition flags.
func (m *Machine) executeOpq(region Region, fun insts.OpFun) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	src, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand & 0xF)
	if err != nil {
		return err
	}

	return m.alu.Execute(fun, src, dest)
}

// executeJxx implements jXX: if the condition holds, the instruction
// pointer moves to the target; otherwise it stays past the operand.
func (m *Machine) executeJxx(region Region, cond insts.Cond) error {
	target, err := m.fetchWord(region)
	if err != nil {
		return err
	}

	if m.regFile.EvalCondition(cond) {
		m.ip = uint64(target)
	}
	return nil
}

// executeCall implements call: push the post-fetch instruction
// pointer (the return address) onto the stack, then jump to the
// target. The stack pointer is updated only after the push succeeds.
func (m *Machine) executeCall(region Region) error {
	target, err := m.fetchWord(region)
	if err != nil {
		return err
	}

	retAddr := int64(m.ip)
	newRsp := m.regFile.Read(insts.RSP) - BlockSize
	if err := m.memory.Write(uint64(newRsp), retAddr); err != nil {
		return err
	}

	m.regFile.Write(insts.RSP, newRsp)
	m.ip = uint64(target)
	return nil
}

// executeRet implements ret: pop the return address off the stack
// into the instruction pointer.
func (m *Machine) executeRet() error {
	rsp := m.regFile.Read(insts.RSP)
	retAddr, err := m.memory.Read(uint64(rsp))
	if err != nil {
		return err
	}

	m.regFile.Write(insts.RSP, rsp+BlockSize)
	m.ip = uint64(retAddr)
	return nil
}

// executePushq implements pushq: decrement the stack pointer by one
// block and store val_src there.
func (m *Machine) executePushq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	src, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}

	newRsp := m.regFile.Read(insts.RSP) - BlockSize
	if err := m.memory.Write(uint64(newRsp), m.regFile.Read(src)); err != nil {
		return err
	}

	m.regFile.Write(insts.RSP, newRsp)
	return nil
}

// executePopq implements popq: read the word at the current stack
// pointer into dest, then release the block. The stack pointer is
// written before the destination, so popq %rsp leaves the stored
// value (read before the increment) in %rsp rather than the
// incremented pointer. This is the architecture's documented
// convention for popping the stack pointer itself.
func (m *Machine) executePopq(region Region) error {
	operand, err := m.fetchByte(region)
	if err != nil {
		return err
	}
	dest, err := m.decoder.DecodeRegister(operand >> 4)
	if err != nil {
		return err
	}

	rsp := m.regFile.Read(insts.RSP)
	value, err := m.memory.Read(uint64(rsp))
	if err != nil {
		return err
	}

	m.regFile.Write(insts.RSP, rsp+BlockSize)
	m.regFile.Write(dest, value)
	return nil
}
