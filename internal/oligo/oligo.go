// Package oligo packs short reads into 64-bit words that compare directly
// against windows of the squashed genome.
//
// A packed oligo of length L holds its first base in the top two bits and
// is padded with zero bits below the last base, matching genome.View.Window.
package oligo

import (
	"fmt"
	"math/bits"

	"github.com/vertti/squashgenome/internal/bases"
)

// Supported oligo lengths.
const (
	MinLength = 8
	MaxLength = 32
)

// Oligo is a packed oligo together with its reverse complement.
type Oligo struct {
	Fwd uint64
	Rev uint64
}

// Packer translates oligos of one fixed length.
type Packer struct {
	length   int
	revShift uint   // 2 * (32 - length)
	mask     uint64 // covers the 2*length significant bits
}

// NewPacker returns a Packer for oligos of the given length.
func NewPacker(length int) (*Packer, error) {
	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("oligo length %d outside [%d,%d]", length, MinLength, MaxLength)
	}
	shift := 2 * uint(MaxLength-length)
	return &Packer{
		length:   length,
		revShift: shift,
		mask:     ^uint64(0) << shift,
	}, nil
}

// Len returns the oligo length.
func (p *Packer) Len() int {
	return p.length
}

// Pack translates the first Len() characters of seq two at a time. ok is
// false if seq is too short or holds an ambiguous base; the Oligo must not
// then be used for comparison. Callers are expected to have handled
// N-containing seeds already.
func (p *Packer) Pack(seq []byte) (o Oligo, ok bool) {
	if len(seq) < p.length {
		return Oligo{}, false
	}
	var fwd uint64
	var bad byte
	i := 0
	for ; i+1 < p.length; i += 2 {
		v := bases.Pair(seq[i], seq[i+1])
		bad |= v & bases.PairInvalid
		fwd = fwd<<4 | uint64(v&0xF)
	}
	if i < p.length {
		c := bases.Code(seq[i])
		if c == bases.Invalid {
			bad |= bases.PairInvalid
		}
		fwd = fwd<<2 | uint64(c&3)
	}
	fwd <<= p.revShift
	return Oligo{Fwd: fwd, Rev: p.ReverseComplement(fwd)}, bad == 0
}

// ReverseComplement reverse-complements a packed oligo of this length.
func (p *Packer) ReverseComplement(fwd uint64) uint64 {
	x := bits.ReverseBytes64(fwd)
	var rc uint64
	for k := uint(0); k < 64; k += 8 {
		rc |= uint64(bases.RevCompByte(byte(x>>k))) << k
	}
	// The complemented padding now sits in the top bits; shift it out.
	return rc << p.revShift
}

// Unpack returns the bases of a packed oligo as upper-case ASCII.
func (p *Packer) Unpack(v uint64) []byte {
	out := make([]byte, p.length)
	for i := range out {
		out[i] = bases.Char(byte(v >> (62 - 2*uint(i))))
	}
	return out
}

// Mismatches returns the number of differing bases between two packed
// oligos of this length.
func (p *Packer) Mismatches(a, b uint64) int {
	x := (a ^ b) & p.mask
	// One bit per differing base.
	x = (x | x>>1) & 0x5555555555555555
	return bits.OnesCount64(x)
}

// Match compares o against a packed genome window and reports which strands
// match with at most maxMismatches substitutions.
func (p *Packer) Match(o Oligo, window uint64, maxMismatches int) (fwd, rev bool) {
	return p.Mismatches(o.Fwd, window) <= maxMismatches,
		p.Mismatches(o.Rev, window) <= maxMismatches
}
