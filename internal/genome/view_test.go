package genome

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/squashgenome/internal/encoder"
	"github.com/vertti/squashgenome/internal/format"
)

// squash writes fasta to a temp dir, squashes it and returns the genome
// directory.
func squash(t *testing.T, name, fasta string) string {
	t.Helper()

	in := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(in, []byte(fasta), 0o600))
	dir := t.TempDir()
	_, err := encoder.SquashFile(in, dir, &encoder.Options{AllowManyContigs: true})
	require.NoError(t, err)
	return dir
}

func open(t *testing.T, dir, name string) *View {
	t.Helper()

	v, err := Open(dir, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func readAt(t *testing.T, v *View, contig int, pos int64, n int) string {
	t.Helper()

	require.NoError(t, v.SeekToContigPosition(contig, pos))
	buf := make([]byte, n)
	v.Read(buf)
	return string(buf)
}

func TestView_TwoContigs(t *testing.T) {
	t.Parallel()

	dir := squash(t, "g.fa", ">chr1\nACGTN\n>chr2\nNNACGT\n")
	v := open(t, dir, "g.fa")

	assert.Equal(t, "g.fa", v.Name())
	assert.Equal(t, uint64(11), v.NumBases())
	assert.Equal(t, []format.ContigEntry{{Offset: 0, Name: "chr1"}, {Offset: 5, Name: "chr2"}}, v.Contigs())
	assert.Equal(t, uint64(5), v.ContigLen(0))
	assert.Equal(t, uint64(6), v.ContigLen(1))

	assert.Equal(t, "ACGTN", readAt(t, v, 0, 0, 5))
	assert.Equal(t, "NNACGT", readAt(t, v, 1, 5, 6))

	// Reads past the contig end never leak the neighbour's bases.
	assert.Equal(t, "GTNNNNN", readAt(t, v, 0, 2, 7))
	// Reads before the contig start are N.
	assert.Equal(t, "NNNNNAC", readAt(t, v, 1, 2, 7))
	// Negative positions are N, not an out-of-bounds read.
	assert.Equal(t, "NNNACG", readAt(t, v, 0, -3, 6))
	assert.Equal(t, int64(3), v.Position())
}

func TestView_SeekBackwardsAndSwitchContig(t *testing.T) {
	t.Parallel()

	dir := squash(t, "g.fa", ">a\nACGTACGTAC\n>b\nTTTTGGGG\n>c\nNCCN\n")
	v := open(t, dir, "g.fa")

	assert.Equal(t, "CGTA", readAt(t, v, 0, 5, 4))
	assert.Equal(t, "ACGT", readAt(t, v, 0, 0, 4))
	assert.Equal(t, "TGGG", readAt(t, v, 1, 13, 4))
	assert.Equal(t, "NCCN", readAt(t, v, 2, 18, 4))
	assert.Equal(t, "GTAC", readAt(t, v, 0, 6, 4))

	err := v.SeekToContigPosition(3, 0)
	require.ErrorIs(t, err, format.ErrOutOfRange)
}

func TestView_BaseAt(t *testing.T) {
	t.Parallel()

	fasta := ">x\nNACGTNNNGGCCAATT\nNNNNACGT\n>y\nACGTACGTNN\nACG\n>z\nN\n"
	dir := squash(t, "g.fa", fasta)
	v := open(t, dir, "g.fa")

	var want strings.Builder
	for _, line := range strings.Split(fasta, "\n") {
		if strings.HasPrefix(line, ">") {
			continue
		}
		want.WriteString(strings.ReplaceAll(line, "n", "N"))
	}
	require.Equal(t, uint64(want.Len()), v.NumBases())
	for i := range want.Len() {
		assert.Equal(t, want.String()[i], v.BaseAt(int64(i)), "base %d", i)
	}
	assert.Equal(t, byte('N'), v.BaseAt(-1))
	assert.Equal(t, byte('N'), v.BaseAt(int64(want.Len())+40))

	assert.Equal(t, 0, v.ContigOf(0))
	assert.Equal(t, 0, v.ContigOf(23))
	assert.Equal(t, 1, v.ContigOf(24))
	assert.Equal(t, 2, v.ContigOf(int64(want.Len())-1))

	b, err := v.BaseInContig(1, 0)
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)
	b, err = v.BaseInContig(1, 13)
	require.NoError(t, err)
	assert.Equal(t, byte('N'), b, "past contig end")
	_, err = v.BaseInContig(9, 0)
	require.ErrorIs(t, err, format.ErrOutOfRange)
}

func TestView_ScanMatchesRandomAccess(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString(">big\n")
	pattern := "ACGTTGCANNNNGATTACA"
	for range 40 {
		sb.WriteString(pattern)
		sb.WriteString("\n")
	}
	dir := squash(t, "big.fa", sb.String())
	v := open(t, dir, "big.fa")

	require.NoError(t, v.SeekToContigPosition(0, 0))
	for i := range int64(v.NumBases()) {
		assert.Equal(t, v.BaseAt(i), v.NextBase(), "base %d", i)
	}
	assert.Equal(t, byte('N'), v.NextBase())
}

func TestView_Window(t *testing.T) {
	t.Parallel()

	seq := "ACGTACGTACGTACGTTTTTGGGGCCCCAAAAACGTNACGT"
	dir := squash(t, "w.fa", ">w\n"+seq+"\n")
	v := open(t, dir, "w.fa")

	pack := func(s string) uint64 {
		var out uint64
		for i := range len(s) {
			out = out<<2 | uint64(strings.IndexByte("ACGT", s[i]))
		}
		return out << (2 * uint(32-len(s)))
	}

	for _, tc := range []struct {
		pos    int64
		length int
	}{{0, 32}, {3, 32}, {5, 8}, {15, 17}, {2, 1}, {16, 16}} {
		got, ok := v.Window(tc.pos, tc.length)
		require.True(t, ok, "pos %d len %d", tc.pos, tc.length)
		assert.Equal(t, pack(seq[tc.pos:tc.pos+int64(tc.length)]), got, "pos %d len %d", tc.pos, tc.length)
	}

	_, ok := v.Window(30, 8) // crosses the N at 36
	assert.False(t, ok)
	_, ok = v.Window(37, 4)
	assert.True(t, ok)
	_, ok = v.Window(38, 4) // runs off the end
	assert.False(t, ok)
	_, ok = v.Window(-1, 4)
	assert.False(t, ok)
	_, ok = v.Window(0, 33)
	assert.False(t, ok)
}

func TestView_MissingIndex(t *testing.T) {
	t.Parallel()

	dir := squash(t, "solo.fa", ">solo\nACGTNA\n")
	require.NoError(t, os.Remove(format.PathsFor(dir, "solo.fa").Index))

	v := open(t, dir, "solo.fa")
	assert.Equal(t, []format.ContigEntry{{Offset: 0, Name: "solo.fa"}}, v.Contigs())
	assert.Equal(t, "ACGTNA", readAt(t, v, 0, 0, 6))
}

func TestView_Errors(t *testing.T) {
	t.Parallel()

	_, err := Open(t.TempDir(), "missing.fa")
	require.Error(t, err)
	assert.Equal(t, format.KindFilesystem, format.KindOf(err))

	dir := squash(t, "t.fa", ">t\nACGTACGTACGTACGTACGT\n")
	p := format.PathsFor(dir, "t.fa")
	require.NoError(t, os.Truncate(p.Sequence, 4))
	_, err = Open(dir, "t.fa")
	require.ErrorIs(t, err, format.ErrMalformedRegions)
}
