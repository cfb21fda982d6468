// Package bases provides the nucleotide translation tables shared by the
// squash encoder, the genome view and the oligo packer.
//
// Encoding: A=00, C=01, G=10, T=11. Every other character (N, n, '.',
// IUPAC codes, ...) is ambiguous and translates to Invalid.
package bases

// Invalid is the code returned by Code for any ambiguous character.
const Invalid byte = 4

// PairInvalid is set in a Pair result when either character is ambiguous.
// The low four bits then carry no meaning.
const PairInvalid byte = 0x10

var (
	codeTable    [256]byte
	pairTable    [256 * 256]byte
	complement   [256]byte
	revCompTable [256]byte
)

var codeChars = [4]byte{'A', 'C', 'G', 'T'}

func init() {
	// Default to Invalid (N/other)
	for i := range codeTable {
		codeTable[i] = Invalid
		complement[i] = 'N'
	}
	codeTable['A'] = 0
	codeTable['a'] = 0
	codeTable['C'] = 1
	codeTable['c'] = 1
	codeTable['G'] = 2
	codeTable['g'] = 2
	codeTable['T'] = 3
	codeTable['t'] = 3

	for _, c := range []byte("ACGTacgt") {
		complement[c] = codeChars[codeTable[c]^3]
	}

	// Two characters per lookup: high pair of bits is the first base.
	for c1 := range 256 {
		for c2 := range 256 {
			a, b := codeTable[c1], codeTable[c2]
			if a == Invalid || b == Invalid {
				pairTable[c1<<8|c2] = PairInvalid
				continue
			}
			pairTable[c1<<8|c2] = a<<2 | b
		}
	}

	// Reverse the four 2-bit bases of a packed byte and complement each.
	for v := range 256 {
		var out byte
		for k := range 4 {
			code := byte(v>>(2*k)) & 3
			out |= (code ^ 3) << (2 * (3 - k))
		}
		revCompTable[v] = out
	}
}

// Code returns the 2-bit code for an ASCII base, or Invalid.
func Code(c byte) byte {
	return codeTable[c]
}

// IsValid reports whether c is one of A, C, G, T in either case.
func IsValid(c byte) bool {
	return codeTable[c] != Invalid
}

// Char returns the upper-case base for a 2-bit code. Only the low two bits
// of code are used.
func Char(code byte) byte {
	return codeChars[code&3]
}

// Pair translates two ASCII bases at once. The result holds the first base
// in bits 3-2 and the second in bits 1-0, with PairInvalid set if either
// character is ambiguous.
func Pair(c1, c2 byte) byte {
	return pairTable[uint16(c1)<<8|uint16(c2)]
}

// Complement returns the upper-case complement of an ASCII base. Ambiguous
// characters complement to 'N'.
func Complement(c byte) byte {
	return complement[c]
}

// RevCompByte reverse-complements a byte holding four packed bases, first
// base in the high bits.
func RevCompByte(b byte) byte {
	return revCompTable[b]
}

// ReverseComplement writes the reverse complement of src into dst.
// It panics if len(dst) != len(src).
func ReverseComplement(dst, src []byte) {
	n := len(src)
	if len(dst) != n {
		panic("bases.ReverseComplement requires len(dst) == len(src)")
	}
	for i, j := 0, n-1; i < n; i, j = i+1, j-1 {
		dst[i] = complement[src[j]]
	}
}
