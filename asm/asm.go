// Package asm provides a programmatic encoder for Y86-64 programs.
//
// A Program is built one instruction at a time; call and jump targets
// are named labels resolved when Bytes is called, so forward
// references work:
//
//	p := asm.NewProgram()
//	p.Irmovq(7, insts.RDI)
//	p.Call("add_two")
//	p.Halt()
//	p.Label("add_two")
//	p.Rrmovq(insts.RDI, insts.RAX)
//	p.Ret()
//	code, err := p.Bytes()
package asm

import (
	"encoding/binary"

	"github.com/sarchlab/y86sim/insts"
)

// fixup records an 8-byte target slot awaiting a label address.
type fixup struct {
	offset int
	label  string
}

// Program accumulates encoded Y86-64 instructions.
type Program struct {
	buf    []byte
	labels map[string]uint64
	fixups []fixup
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		labels: make(map[string]uint64),
	}
}

// Len returns the current length of the encoded program in bytes.
func (p *Program) Len() int {
	return len(p.buf)
}

// Label binds name to the current offset. Redefining a name fails
// when Bytes is called.
func (p *Program) Label(name string) *Program {
	if _, exists := p.labels[name]; exists {
		p.fixups = append(p.fixups, fixup{offset: -1, label: name})
		return p
	}
	p.labels[name] = uint64(len(p.buf))
	return p
}

// Halt appends a halt instruction.
func (p *Program) Halt() *Program {
	return p.emit(0x00)
}

// Nop appends a nop instruction.
func (p *Program) Nop() *Program {
	return p.emit(0x10)
}

// Rrmovq appends rrmovq src, dest.
func (p *Program) Rrmovq(src, dest insts.Register) *Program {
	return p.emit(0x20, regPair(byte(src), byte(dest)))
}

// Cmovxx appends cmovXX src, dest with the given predicate.
func (p *Program) Cmovxx(cond insts.Cond, src, dest insts.Register) *Program {
	return p.emit(0x20|byte(cond), regPair(byte(src), byte(dest)))
}

// Irmovq appends irmovq $value, dest.
func (p *Program) Irmovq(value int64, dest insts.Register) *Program {
	p.emit(0x30, regPair(insts.NoRegister, byte(dest)))
	return p.emitWord(value)
}

// Rmmovq appends rmmovq src, disp(base).
func (p *Program) Rmmovq(src insts.Register, disp int64, base insts.Register) *Program {
	p.emit(0x40, regPair(byte(src), byte(base)))
	return p.emitWord(disp)
}

// Mrmovq appends mrmovq disp(base), dest.
func (p *Program) Mrmovq(disp int64, base, dest insts.Register) *Program {
	p.emit(0x50, regPair(byte(dest), byte(base)))
	return p.emitWord(disp)
}

// Opq appends OPq src, dest for the given arithmetic function.
func (p *Program) Opq(fun insts.OpFun, src, dest insts.Register) *Program {
	return p.emit(0x60|byte(fun), regPair(byte(src), byte(dest)))
}

// Addq appends addq src, dest.
func (p *Program) Addq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunAdd, src, dest)
}

// Subq appends subq src, dest.
func (p *Program) Subq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunSub, src, dest)
}

// Andq appends andq src, dest.
func (p *Program) Andq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunAnd, src, dest)
}

// Xorq appends xorq src, dest.
func (p *Program) Xorq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunXor, src, dest)
}

// Mulq appends mulq src, dest.
func (p *Program) Mulq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunMul, src, dest)
}

// Divq appends divq src, dest.
func (p *Program) Divq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunDiv, src, dest)
}

// Modq appends modq src, dest.
func (p *Program) Modq(src, dest insts.Register) *Program {
	return p.Opq(insts.FunMod, src, dest)
}

// Jxx appends jXX label with the given predicate.
func (p *Program) Jxx(cond insts.Cond, label string) *Program {
	p.emit(0x70 | byte(cond))
	return p.emitLabel(label)
}

// Call appends call label.
func (p *Program) Call(label string) *Program {
	p.emit(0x80)
	return p.emitLabel(label)
}

// Ret appends a ret instruction.
func (p *Program) Ret() *Program {
	return p.emit(0x90)
}

// Pushq appends pushq src.
func (p *Program) Pushq(src insts.Register) *Program {
	return p.emit(0xA0, regPair(byte(src), insts.NoRegister))
}

// Popq appends popq dest.
func (p *Program) Popq(dest insts.Register) *Program {
	return p.emit(0xB0, regPair(byte(dest), insts.NoRegister))
}

// Bytes resolves all label references and returns the encoded
// program. The builder stays usable; further instructions may be
// appended and Bytes called again.
func (p *Program) Bytes() ([]byte, error) {
	for _, f := range p.fixups {
		if f.offset < 0 {
			return nil, &DuplicateLabelError{Label: f.label}
		}
		addr, ok := p.labels[f.label]
		if !ok {
			return nil, &UnknownLabelError{Label: f.label}
		}
		binary.LittleEndian.PutUint64(p.buf[f.offset:f.offset+8], addr)
	}

	code := make([]byte, len(p.buf))
	copy(code, p.buf)
	return code, nil
}

func (p *Program) emit(bytes ...byte) *Program {
	p.buf = append(p.buf, bytes...)
	return p
}

func (p *Program) emitWord(value int64) *Program {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], uint64(value))
	return p.emit(word[:]...)
}

func (p *Program) emitLabel(label string) *Program {
	p.fixups = append(p.fixups, fixup{offset: len(p.buf), label: label})
	return p.emitWord(0)
}

// regPair packs two register nibbles into one operand byte.
func regPair(hi, lo byte) byte {
	return hi<<4 | lo&0xF
}
