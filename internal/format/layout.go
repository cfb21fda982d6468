// Package format defines the squashed genome file layout: the packed
// sequence file (.2bpb), the valid-region file (.vld) and the contig index
// (.idx).
//
// The packed file is a sequence of 32-bit little-endian words holding
// sixteen 2-bit bases each, first base in the most significant bits.
package format

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Layout constants.
const (
	BasesPerWord = 16
	WordBytes    = 4
)

// WordIndex returns the word holding base i.
func WordIndex(i uint64) uint64 {
	return i >> 4
}

// WordShift returns the bit shift of base i within its word.
func WordShift(i uint64) uint {
	return 2 * uint((i&0xF)^0xF)
}

// Word returns packed word n, or 0 past the end of packed.
func Word(packed []byte, n uint64) uint32 {
	off := n * WordBytes
	if off+WordBytes > uint64(len(packed)) {
		return 0
	}
	return binary.LittleEndian.Uint32(packed[off:])
}

// BaseCode decodes the 2-bit code of base i. The caller guarantees that i
// lies inside packed.
func BaseCode(packed []byte, i uint64) byte {
	w := binary.LittleEndian.Uint32(packed[WordIndex(i)*WordBytes:])
	return byte(w>>WordShift(i)) & 3
}

// Capacity returns the number of bases addressable in a packed file of n
// bytes. Trailing bytes that do not make a whole word are ignored.
func Capacity(n int) uint64 {
	return uint64(n/WordBytes) * BasesPerWord
}

// PackedWriter packs 2-bit codes into words and writes them out.
type PackedWriter struct {
	w     *bufio.Writer
	word  uint32
	n     uint
	bases uint64
	buf   [WordBytes]byte
}

// NewPackedWriter creates a PackedWriter on w.
func NewPackedWriter(w io.Writer) *PackedWriter {
	return &PackedWriter{w: bufio.NewWriterSize(w, 1<<20)}
}

// WriteCode appends one base code (low two bits of code).
func (p *PackedWriter) WriteCode(code byte) error {
	p.word = p.word<<2 | uint32(code&3)
	p.n++
	p.bases++
	if p.n < BasesPerWord {
		return nil
	}
	return p.flushWord()
}

func (p *PackedWriter) flushWord() error {
	binary.LittleEndian.PutUint32(p.buf[:], p.word)
	p.word, p.n = 0, 0
	_, err := p.w.Write(p.buf[:])
	return err
}

// Bases returns the number of bases written so far.
func (p *PackedWriter) Bases() uint64 {
	return p.bases
}

// Close zero-pads the last partial word and flushes buffered output. It
// does not close the underlying writer.
func (p *PackedWriter) Close() error {
	if p.n > 0 {
		p.word <<= 2 * (BasesPerWord - p.n)
		if err := p.flushWord(); err != nil {
			return err
		}
	}
	return p.w.Flush()
}
