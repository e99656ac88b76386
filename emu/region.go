// Package emu provides functional Y86-64 emulation.
package emu

// Region is the instruction source consumed by the machine. It
// exposes a read-only contiguous byte sequence that the machine
// indexes by absolute instruction-pointer offset. The region is
// borrowed for the duration of a Step call and never mutated.
type Region interface {
	// Instructions returns the encoded instruction stream.
	Instructions() []byte
}
