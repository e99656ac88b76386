// Package loader provides instruction-image loading for Y86-64
// programs.
//
// Programs are flat instruction byte sequences, loaded either from a
// raw binary image or from a hex listing: whitespace-separated
// two-digit hex bytes, with '#' starting a comment that runs to the
// end of the line.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Chunk is an owned, immutable instruction stream. It satisfies the
// machine's Region interface.
type Chunk struct {
	instructions []byte
}

// NewChunk creates a chunk owning a copy of the given instruction
// bytes.
func NewChunk(instructions []byte) *Chunk {
	code := make([]byte, len(instructions))
	copy(code, instructions)
	return &Chunk{instructions: code}
}

// Instructions returns the encoded instruction stream.
func (c *Chunk) Instructions() []byte {
	return c.instructions
}

// Load reads a raw binary instruction image from path.
func Load(path string) (*Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program image: %w", err)
	}
	return &Chunk{instructions: data}, nil
}

// LoadHex reads a hex-listing instruction image from path.
func LoadHex(path string) (*Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program listing: %w", err)
	}
	defer func() { _ = f.Close() }()

	chunk, err := ParseHex(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunk, nil
}

// ParseHex parses a hex listing into a chunk.
func ParseHex(r io.Reader) (*Chunk, error) {
	var instructions []byte

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, tok := range strings.Fields(line) {
			b, err := strconv.ParseUint(tok, 16, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d: %q is not a hex byte", lineNo, tok)
			}
			instructions = append(instructions, byte(b))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program listing: %w", err)
	}

	return &Chunk{instructions: instructions}, nil
}
