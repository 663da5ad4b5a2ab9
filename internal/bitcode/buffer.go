package bitcode

import (
	"fmt"
	"os"
)

// Buffer holds the raw bytes of a bitcode stream loaded into memory. It
// is an owned resource: dispose it exactly once, after which the bytes
// must not be touched.
type Buffer struct {
	data     []byte
	disposed bool
}

// NewBuffer wraps bytes already in memory.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// FromFile loads the file at path into a buffer. Errors carry the path.
func FromFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Buffer{data: data}, nil
}

// Bytes returns the buffer's contents.
func (b *Buffer) Bytes() []byte {
	if b.disposed {
		panic("bitcode: use of a disposed Buffer")
	}
	return b.data
}

// Len returns the buffer's size in bytes.
func (b *Buffer) Len() int {
	if b.disposed {
		panic("bitcode: use of a disposed Buffer")
	}
	return len(b.data)
}

// Dispose releases the buffer. Disposing twice is a contract violation.
func (b *Buffer) Dispose() {
	if b.disposed {
		panic("bitcode: Buffer disposed twice")
	}
	b.disposed = true
	b.data = nil
}
