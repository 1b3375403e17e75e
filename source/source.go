// Package source owns the raw bytes of an input program and answers the
// one question every later phase needs to ask of a byte offset: which
// line and column is this?
package source

import (
	"fmt"
	"sort"
)

// Position is a 1-based (line, column) pair.  Every token, AST node,
// diagnostic and IR instruction in subc carries one of these.
type Position struct {
	Line int
	Col  int
}

// String renders a position as "line:col", the form every diagnostic
// message embeds.
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Buffer owns the UTF-8 bytes of a single input file and the index
// needed to turn a byte offset into a Position in O(log n).
type Buffer struct {
	name        string
	bytes       []byte
	lineOffsets []int // byte offset of the first byte of each line
}

// New indexes data and returns a Buffer wrapping it.  data is not copied;
// callers must not mutate it afterwards.
func New(name string, data []byte) *Buffer {
	b := &Buffer{name: name, bytes: data}
	b.lineOffsets = []int{0}
	for i, c := range data {
		if c == '\n' {
			b.lineOffsets = append(b.lineOffsets, i+1)
		}
	}
	return b
}

// Name returns the file name this buffer was created with.  It is an
// opaque string used only for diagnostics; subc places no requirements on
// it (§6 of the specification).
func (b *Buffer) Name() string { return b.name }

// Bytes returns the underlying source bytes.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int { return len(b.bytes) }

// Position resolves a byte offset to a 1-based line/column pair.
func (b *Buffer) Position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.bytes) {
		offset = len(b.bytes)
	}

	// Find the last line-start offset that is <= offset.
	line := sort.Search(len(b.lineOffsets), func(i int) bool {
		return b.lineOffsets[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	return Position{
		Line: line + 1,
		Col:  offset - b.lineOffsets[line] + 1,
	}
}
