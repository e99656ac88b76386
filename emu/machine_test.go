package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/y86sim/emu"
	"github.com/sarchlab/y86sim/insts"
)

var _ = Describe("Machine", func() {
	var machine *emu.Machine

	BeforeEach(func() {
		machine = emu.NewMachine()
	})

	Describe("NewMachine", func() {
		It("should start active at ip 0 with initialized components", func() {
			Expect(machine.State()).To(Equal(emu.StateActive))
			Expect(machine.IP()).To(Equal(uint64(0)))
			Expect(machine.RegFile()).NotTo(BeNil())
			Expect(machine.Memory()).NotTo(BeNil())
			Expect(machine.InstructionCount()).To(Equal(uint64(0)))
		})
	})

	Describe("halt", func() {
		It("should move the machine to the terminal halted state", func() {
			code := chunk{0x00}

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.State()).To(Equal(emu.StateHalted))
			Expect(machine.IP()).To(Equal(uint64(1)))
		})

		It("should fail every later step without fetching or mutating", func() {
			code := chunk{0x00, 0x30, 0xF0}
			Expect(machine.Step(code)).To(Succeed())

			ipBefore := machine.IP()
			countBefore := machine.InstructionCount()
			rspBefore := machine.RegFile().Read(insts.RSP)

			for i := 0; i < 3; i++ {
				err := machine.Step(code)
				Expect(err).To(MatchError(emu.ErrMachineHalted))
			}

			Expect(machine.IP()).To(Equal(ipBefore))
			Expect(machine.InstructionCount()).To(Equal(countBefore))
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(rspBefore))
		})
	})

	Describe("nop", func() {
		It("should only advance the instruction pointer", func() {
			code := chunk{0x10}

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.IP()).To(Equal(uint64(1)))
			Expect(machine.State()).To(Equal(emu.StateActive))
		})
	})

	Describe("rrmovq", func() {
		It("should copy the source register unconditionally", func() {
			code := chunk{0x20, 0x70} // rrmovq %rdi, %rax
			machine.RegFile().Write(insts.RDI, 99)

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(99)))
			Expect(machine.IP()).To(Equal(uint64(2)))
		})

		It("should reject an invalid register nibble", func() {
			code := chunk{0x20, 0x7F} // dest nibble 0xF

			err := machine.Step(code)

			var regErr *insts.InvalidRegisterError
			Expect(errors.As(err, &regErr)).To(BeTrue())
			Expect(regErr.Nibble).To(Equal(byte(0xF)))
		})
	})

	Describe("cmovXX", func() {
		It("should move only when the condition holds", func() {
			machine.RegFile().Write(insts.RDI, 55)
			machine.RegFile().Flags.ZF = true

			code := chunk{0x23, 0x70} // cmove %rdi, %rax
			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(55)))
		})

		It("should consume the operand byte when the condition fails", func() {
			machine.RegFile().Write(insts.RDI, 55)

			code := chunk{0x23, 0x70} // cmove with ZF clear
			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(0)))
			Expect(machine.IP()).To(Equal(uint64(2)))
		})
	})

	Describe("irmovq", func() {
		It("should load a little-endian immediate", func() {
			code := program(
				[]byte{0x30, 0xF3}, word(-7), // irmovq $-7, %rbx
			)

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RBX)).To(Equal(int64(-7)))
			Expect(machine.IP()).To(Equal(uint64(10)))
		})
	})

	Describe("rmmovq and mrmovq", func() {
		It("should store and load through base plus displacement", func() {
			machine.RegFile().Write(insts.RDI, -123456)
			machine.RegFile().Write(insts.RBX, 0x100)

			code := program(
				[]byte{0x40, 0x73}, word(0x20), // rmmovq %rdi, 0x20(%rbx)
				[]byte{0x50, 0x13}, word(0x20), // mrmovq 0x20(%rbx), %rcx
			)

			Expect(machine.Step(code)).To(Succeed())
			value, err := machine.Memory().Read(0x120)
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(int64(-123456)))

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RCX)).To(Equal(int64(-123456)))
		})

		It("should propagate unaligned access errors", func() {
			machine.RegFile().Write(insts.RBX, 0x101)

			code := program(
				[]byte{0x40, 0x73}, word(0), // rmmovq %rdi, 0(%rbx)
			)

			err := machine.Step(code)

			var unaligned *emu.UnalignedAccessError
			Expect(errors.As(err, &unaligned)).To(BeTrue())
			Expect(unaligned.Addr).To(Equal(uint64(0x101)))
		})

		It("should propagate out-of-bounds errors", func() {
			machine.RegFile().Write(insts.RBX, emu.MemorySize)

			code := program(
				[]byte{0x50, 0x13}, word(0), // mrmovq 0(%rbx), %rcx
			)

			err := machine.Step(code)

			var invalid *emu.InvalidAddressError
			Expect(errors.As(err, &invalid)).To(BeTrue())
			Expect(machine.RegFile().Read(insts.RCX)).To(Equal(int64(0)))
		})
	})

	Describe("OPq", func() {
		It("should execute through the ALU and set flags", func() {
			machine.RegFile().Write(insts.RSI, 5)
			machine.RegFile().Write(insts.RAX, 7)

			code := chunk{0x60, 0x60} // addq %rsi, %rax
			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(12)))
			Expect(machine.RegFile().Flags.ZF).To(BeFalse())
		})

		It("should abort division by zero with no mutation", func() {
			machine.RegFile().Write(insts.RAX, 7)

			code := chunk{0x65, 0x10} // divq %rcx, %rax with %rcx = 0
			err := machine.Step(code)

			Expect(err).To(MatchError(emu.ErrDivisionByZero))
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(7)))
			Expect(machine.InstructionCount()).To(Equal(uint64(0)))
		})
	})

	Describe("jXX", func() {
		It("should jump when the condition holds", func() {
			machine.RegFile().Flags.ZF = true

			code := program(
				[]byte{0x73}, word(0x40), // je 0x40
			)

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.IP()).To(Equal(uint64(0x40)))
		})

		It("should fall through past the operand otherwise", func() {
			code := program(
				[]byte{0x73}, word(0x40), // je with ZF clear
			)

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.IP()).To(Equal(uint64(9)))
		})
	})

	Describe("call and ret", func() {
		It("should push the return address and jump", func() {
			code := program(
				[]byte{0x80}, word(0x30), // call 0x30
			)

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.IP()).To(Equal(uint64(0x30)))

			rsp := machine.RegFile().Read(insts.RSP)
			Expect(rsp).To(Equal(int64(emu.MemorySize - 16)))

			retAddr, err := machine.Memory().Read(uint64(rsp))
			Expect(err).ToNot(HaveOccurred())
			Expect(retAddr).To(Equal(int64(9)))
		})

		It("should restore ip and rsp across a call/ret pair", func() {
			rspBefore := machine.RegFile().Read(insts.RSP)

			code := program(
				[]byte{0x80}, word(10), // 0: call 10
				[]byte{0x00},           // 9: halt
				[]byte{0x90},           // 10: ret
			)

			Expect(machine.Step(code)).To(Succeed()) // call
			Expect(machine.Step(code)).To(Succeed()) // ret

			Expect(machine.IP()).To(Equal(uint64(9)))
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(rspBefore))

			Expect(machine.Step(code)).To(Succeed()) // halt
			Expect(machine.State()).To(Equal(emu.StateHalted))
		})

		It("should leave rsp unchanged when the stack write fails", func() {
			machine.RegFile().Write(insts.RSP, 4) // misaligned after -8

			code := program(
				[]byte{0x80}, word(0x30),
			)

			err := machine.Step(code)

			var unaligned *emu.UnalignedAccessError
			Expect(errors.As(err, &unaligned)).To(BeTrue())
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(int64(4)))
		})
	})

	Describe("pushq and popq", func() {
		It("should round-trip a register through the stack", func() {
			machine.RegFile().Write(insts.RBP, 777)

			code := chunk{
				0xA0, 0x5F, // pushq %rbp
				0xB0, 0x2F, // popq %rdx
			}

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(int64(emu.MemorySize - 16)))

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.RegFile().Read(insts.RDX)).To(Equal(int64(777)))
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(int64(emu.MemorySize - 8)))
		})

		It("should leave the stored value in rsp when popping rsp", func() {
			machine.RegFile().Write(insts.RDI, 0x4000)

			code := chunk{
				0xA0, 0x7F, // pushq %rdi
				0xB0, 0x4F, // popq %rsp
			}

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.Step(code)).To(Succeed())

			// The stored word wins over the incremented pointer.
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(int64(0x4000)))
		})

		It("should push the stack pointer's old value when pushing rsp", func() {
			code := chunk{0xA0, 0x4F} // pushq %rsp

			Expect(machine.Step(code)).To(Succeed())

			rsp := machine.RegFile().Read(insts.RSP)
			stored, err := machine.Memory().Read(uint64(rsp))
			Expect(err).ToNot(HaveOccurred())
			Expect(stored).To(Equal(int64(emu.MemorySize - 8)))
		})
	})

	Describe("Fetch errors", func() {
		It("should report the end of an empty stream at ip 0", func() {
			err := machine.Step(chunk{})

			var eoi *emu.EndOfInstructionsError
			Expect(errors.As(err, &eoi)).To(BeTrue())
			Expect(eoi.IP).To(Equal(uint64(0)))
		})

		It("should report the first missing operand byte", func() {
			code := chunk{0x30, 0xF0, 0x01, 0x02} // truncated irmovq

			err := machine.Step(code)

			var eoi *emu.EndOfInstructionsError
			Expect(errors.As(err, &eoi)).To(BeTrue())
			Expect(eoi.IP).To(Equal(uint64(4)))
			Expect(machine.IP()).To(Equal(uint64(4)))
		})

		It("should reject an unknown lead byte", func() {
			err := machine.Step(chunk{0xC0})

			var opErr *insts.InvalidOpcodeError
			Expect(errors.As(err, &opErr)).To(BeTrue())
			Expect(opErr.Byte).To(Equal(byte(0xC0)))
		})
	})

	Describe("Instruction limit", func() {
		It("should stop stepping once the limit is reached", func() {
			machine = emu.NewMachine(emu.WithMaxInstructions(2))
			code := chunk{0x10, 0x10, 0x10}

			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.Step(code)).To(Succeed())
			Expect(machine.Step(code)).To(MatchError(emu.ErrInstructionLimit))
		})
	})

	Describe("Reset", func() {
		It("should return the machine to its initial state", func() {
			code := program([]byte{0x30, 0xF0}, word(5), []byte{0x00})
			Expect(machine.Run(code)).To(Succeed())
			Expect(machine.State()).To(Equal(emu.StateHalted))

			machine.Reset()

			Expect(machine.State()).To(Equal(emu.StateActive))
			Expect(machine.IP()).To(Equal(uint64(0)))
			Expect(machine.InstructionCount()).To(Equal(uint64(0)))
			Expect(machine.RegFile().Read(insts.RAX)).To(Equal(int64(0)))
			Expect(machine.RegFile().Read(insts.RSP)).To(Equal(int64(emu.MemorySize - 8)))
		})
	})

	Describe("OpCounts", func() {
		It("should count completed instructions per operation", func() {
			code := program(
				[]byte{0x10}, // nop
				[]byte{0x30, 0xF0}, word(1), // irmovq $1, %rax
				[]byte{0x60, 0x00}, // addq %rax, %rax
				[]byte{0x00}, // halt
			)

			Expect(machine.Run(code)).To(Succeed())

			counts := machine.OpCounts()
			Expect(counts[insts.OpNop]).To(Equal(uint64(1)))
			Expect(counts[insts.OpIrmovq]).To(Equal(uint64(1)))
			Expect(counts[insts.OpOpq]).To(Equal(uint64(1)))
			Expect(counts[insts.OpHalt]).To(Equal(uint64(1)))
			Expect(machine.InstructionCount()).To(Equal(uint64(4)))
		})
	})
})
