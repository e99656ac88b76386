// Package insts provides Y86-64 instruction definitions and decoding.
package insts

import "fmt"

// InvalidOpcodeError reports a lead byte (or function/predicate
// nibble) outside the defined instruction set.
type InvalidOpcodeError struct {
	// Byte is the offending byte: the full lead byte for an unknown
	// instruction family, or the low nibble for an unknown
	// arithmetic function or condition predicate.
	Byte byte
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode %d", e.Byte)
}

// InvalidRegisterError reports a register nibble outside the 15
// defined registers.
type InvalidRegisterError struct {
	// Nibble is the offending register nibble.
	Nibble byte
}

func (e *InvalidRegisterError) Error() string {
	return fmt.Sprintf("invalid register %#x", e.Nibble)
}

// DecodeOpFun decodes an arithmetic function nibble.
func DecodeOpFun(nibble byte) (OpFun, error) {
	if nibble > byte(FunMod) {
		return 0, &InvalidOpcodeError{Byte: nibble}
	}
	return OpFun(nibble), nil
}

// DecodeCond decodes a condition predicate nibble.
func DecodeCond(nibble byte) (Cond, error) {
	if nibble < byte(CondLE) || nibble > byte(CondG) {
		return 0, &InvalidOpcodeError{Byte: nibble}
	}
	return Cond(nibble), nil
}

// Decoder decodes Y86-64 instruction bytes.
type Decoder struct{}

// NewDecoder creates a new Y86-64 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeOpcode classifies an instruction lead byte. The high nibble
// selects the instruction family; the low nibble selects the
// arithmetic function or condition predicate for the families that
// carry one (rrmovq/cmovXX, OPq, jXX) and is ignored by the rest.
func (d *Decoder) DecodeOpcode(b byte) (Opcode, error) {
	high, low := b>>4, b&0xF

	switch high {
	case 0x0:
		return Opcode{Op: OpHalt}, nil
	case 0x1:
		return Opcode{Op: OpNop}, nil
	case 0x2:
		if low == 0x0 {
			return Opcode{Op: OpRrmovq}, nil
		}
		cond, err := DecodeCond(low)
		if err != nil {
			return Opcode{}, err
		}
		return Opcode{Op: OpCmovxx, Cond: cond}, nil
	case 0x3:
		return Opcode{Op: OpIrmovq}, nil
	case 0x4:
		return Opcode{Op: OpRmmovq}, nil
	case 0x5:
		return Opcode{Op: OpMrmovq}, nil
	case 0x6:
		fun, err := DecodeOpFun(low)
		if err != nil {
			return Opcode{}, err
		}
		return Opcode{Op: OpOpq, Fun: fun}, nil
	case 0x7:
		cond, err := DecodeCond(low)
		if err != nil {
			return Opcode{}, err
		}
		return Opcode{Op: OpJxx, Cond: cond}, nil
	case 0x8:
		return Opcode{Op: OpCall}, nil
	case 0x9:
		return Opcode{Op: OpRet}, nil
	case 0xA:
		return Opcode{Op: OpPushq}, nil
	case 0xB:
		return Opcode{Op: OpPopq}, nil
	default:
		return Opcode{}, &InvalidOpcodeError{Byte: b}
	}
}

// DecodeRegister decodes a register identifier nibble. The nibble
// 0xF (NoRegister) is not a valid register.
func (d *Decoder) DecodeRegister(nibble byte) (Register, error) {
	if nibble >= NumRegisters {
		return 0, &InvalidRegisterError{Nibble: nibble}
	}
	return Register(nibble), nil
}
