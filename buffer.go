package forge

import "forge/internal/bitcode"

// MemoryBuffer is an owned copy of a file's contents, usually a bitcode
// stream. Dispose it exactly once.
type MemoryBuffer struct {
	raw *bitcode.Buffer
}

// NewMemoryBufferFromFile loads the file at path. Errors carry the
// path.
func NewMemoryBufferFromFile(path string) (*MemoryBuffer, error) {
	buf, err := bitcode.FromFile(path)
	if err != nil {
		return nil, err
	}
	return &MemoryBuffer{raw: buf}, nil
}

// Len returns the buffer's size in bytes.
func (b *MemoryBuffer) Len() int { return b.raw.Len() }

// Dispose releases the buffer. Disposing twice is a contract violation.
func (b *MemoryBuffer) Dispose() { b.raw.Dispose() }
