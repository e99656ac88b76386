// Package emu provides functional Y86-64 emulation.
package emu

import "encoding/binary"

// MemorySize is the size of main memory in bytes (64 KiB).
const MemorySize = 1 << 16

// BlockSize is the memory access granularity in bytes. All reads and
// writes move one little-endian 64-bit block.
const BlockSize = 8

// Memory is the machine's flat byte-addressable main memory. Every
// access must be block-aligned and fully in bounds; violations are
// rejected, never clamped.
type Memory struct {
	bytes []byte
}

// NewMemory creates a zero-filled main memory.
func NewMemory() *Memory {
	return &Memory{
		bytes: make([]byte, MemorySize),
	}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.bytes))
}

// Read returns the block at addr as a little-endian signed word.
// Alignment is checked before bounds so error reporting is
// deterministic.
func (m *Memory) Read(addr uint64) (int64, error) {
	if addr%BlockSize != 0 {
		return 0, &UnalignedAccessError{Addr: addr}
	}
	if addr > uint64(len(m.bytes))-BlockSize {
		return 0, &InvalidAddressError{Addr: addr}
	}
	return int64(binary.LittleEndian.Uint64(m.bytes[addr : addr+BlockSize])), nil
}

// Write stores value's little-endian byte representation at addr,
// overwriting exactly one block. Same checks and ordering as Read.
func (m *Memory) Write(addr uint64, value int64) error {
	if addr%BlockSize != 0 {
		return &UnalignedAccessError{Addr: addr}
	}
	if addr > uint64(len(m.bytes))-BlockSize {
		return &InvalidAddressError{Addr: addr}
	}
	binary.LittleEndian.PutUint64(m.bytes[addr:addr+BlockSize], uint64(value))
	return nil
}
