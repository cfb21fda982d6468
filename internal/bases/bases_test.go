package bases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   byte
		want byte
	}{
		{'A', 0}, {'a', 0},
		{'C', 1}, {'c', 1},
		{'G', 2}, {'g', 2},
		{'T', 3}, {'t', 3},
		{'N', Invalid}, {'n', Invalid}, {'.', Invalid},
		{'R', Invalid}, {'\n', Invalid}, {0, Invalid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.in), "Code(%q)", tt.in)
		assert.Equal(t, tt.want != Invalid, IsValid(tt.in), "IsValid(%q)", tt.in)
	}
}

func TestCharRoundTrip(t *testing.T) {
	t.Parallel()

	for code := range byte(4) {
		assert.Equal(t, code, Code(Char(code)))
	}
}

func TestPair(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x0), Pair('A', 'A'))
	assert.Equal(t, byte(0x1), Pair('A', 'C'))
	assert.Equal(t, byte(0xE), Pair('T', 'G'))
	assert.Equal(t, byte(0xF), Pair('t', 't'))
	assert.NotZero(t, Pair('N', 'A')&PairInvalid)
	assert.NotZero(t, Pair('A', '.')&PairInvalid)

	// Every valid pair agrees with two single lookups.
	for _, c1 := range []byte("ACGTacgt") {
		for _, c2 := range []byte("ACGTacgt") {
			assert.Equal(t, Code(c1)<<2|Code(c2), Pair(c1, c2))
		}
	}
}

func TestComplement(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte('T'), Complement('A'))
	assert.Equal(t, byte('G'), Complement('c'))
	assert.Equal(t, byte('C'), Complement('G'))
	assert.Equal(t, byte('A'), Complement('t'))
	assert.Equal(t, byte('N'), Complement('N'))
	assert.Equal(t, byte('N'), Complement('.'))

	dst := make([]byte, 6)
	ReverseComplement(dst, []byte("AACGTN"))
	assert.Equal(t, "NACGTT", string(dst))

	assert.Panics(t, func() { ReverseComplement(make([]byte, 2), []byte("A")) })
}

func TestRevCompByte(t *testing.T) {
	t.Parallel()

	// ACGT -> ACGT (palindrome)
	assert.Equal(t, byte(0b00011011), RevCompByte(0b00011011))
	// AAAC -> GTTT
	assert.Equal(t, byte(0b10111111), RevCompByte(0b00000001))

	for v := range 256 {
		assert.Equal(t, byte(v), RevCompByte(RevCompByte(byte(v))))
	}
}
