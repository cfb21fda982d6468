package fragment

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vertti/squashgenome/internal/contigs"
	"github.com/vertti/squashgenome/internal/encoder"
	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/reads"
)

// genomeDir squashes a.fa (two contigs) and b.fa into a fresh directory.
func genomeDir(t *testing.T) *contigs.Index {
	t.Helper()

	in := t.TempDir()
	dir := t.TempDir()
	for name, fasta := range map[string]string{
		"a.fa": ">chr1\nACGTACGTAA\n>chr2\nTTGGCCAATT\n",
		"b.fa": ">chrB\nCCCCGGGGAC\n",
	} {
		p := filepath.Join(in, name)
		require.NoError(t, os.WriteFile(p, []byte(fasta), 0o600))
		_, err := encoder.SquashFile(p, dir, &encoder.Options{AllowManyContigs: true})
		require.NoError(t, err)
	}
	x, err := contigs.Scan(dir)
	require.NoError(t, err)
	return x
}

func opts(x *contigs.Index) Options {
	return Options{Index: x, ReadLength: 4, FragmentLength: 8}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	x := genomeDir(t)
	rs := reads.NewSet("ACGT", "NNGT", "GGCC")

	tests := []struct {
		name string
		req  SeqRequest
		want string
	}{
		{"forward", SeqRequest{ReadNum: 1, FileIndex: 0, ContigNum: 0, FilePos: 5}, "GTACGTAA"},
		{"before contig start", SeqRequest{ReadNum: 1, FileIndex: 0, ContigNum: 0, FilePos: 1}, "NNACGTAC"},
		{"past contig end", SeqRequest{ReadNum: 1, FileIndex: 0, ContigNum: 0, FilePos: 9}, "GTAANNNN"},
		{"leading N shifts window", SeqRequest{ReadNum: 2, FileIndex: 0, ContigNum: 0, FilePos: 5}, "ACGTACGT"},
		{"seed offset shifts window", SeqRequest{ReadNum: 1, FileIndex: 0, ContigNum: 0, FilePos: 5, SeedOffset: 2}, "ACGTACGT"},
		{"reverse", SeqRequest{ReadNum: 3, FileIndex: 0, ContigNum: 1, FilePos: 15, Strand: Reverse}, "AATTGGCC"},
		{"reverse leading N", SeqRequest{ReadNum: 2, FileIndex: 0, ContigNum: 1, FilePos: 13, Strand: Reverse}, "AATTGGCC"},
		{"second file", SeqRequest{ReadNum: 1, FileIndex: 1, ContigNum: 0, FilePos: 2}, "NCCCCGGG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frags, err := Resolve(opts(x), rs, []SeqRequest{tt.req})
			require.NoError(t, err)
			require.Len(t, frags, 1)
			assert.Equal(t, tt.want, string(frags[0].Bases))
			assert.Equal(t, tt.req, frags[0].Request)
		})
	}
}

func TestResolve_ReverseStrandOffset(t *testing.T) {
	t.Parallel()

	x := genomeDir(t)
	o := opts(x)
	o.ReverseStrandOffset = 2
	frags, err := Resolve(o, reads.NewSet("GGCC"), []SeqRequest{
		{ReadNum: 1, FileIndex: 0, ContigNum: 1, FilePos: 17, Strand: Reverse},
	})
	require.NoError(t, err)
	assert.Equal(t, "AATTGGCC", string(frags[0].Bases))
}

func TestResolve_OrderIndependent(t *testing.T) {
	t.Parallel()

	x := genomeDir(t)
	rs := reads.NewSet("ACGT", "NNGT", "GGCC", "NNNN")
	rng := rand.New(rand.NewSource(7))

	var reqs []SeqRequest
	for i := range 200 {
		req := SeqRequest{
			RequestNum: uint32(i),
			ReadNum:    uint32(1 + rng.Intn(rs.Len())),
			FileIndex:  rng.Intn(2),
			FilePos:    int64(rng.Intn(11)),
			Strand:     Strand(rng.Intn(2)),
			SeedOffset: rng.Intn(3),
		}
		if req.FileIndex == 0 {
			req.ContigNum = rng.Intn(2)
			req.FilePos += int64(10 * req.ContigNum)
		}
		reqs = append(reqs, req)
	}

	want, err := Resolve(opts(x), rs, reqs)
	require.NoError(t, err)
	require.Len(t, want, len(reqs))

	for range 3 {
		shuffled := append([]SeqRequest(nil), reqs...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Resolve(opts(x), rs, shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestResolver_Batches(t *testing.T) {
	t.Parallel()

	x := genomeDir(t)
	var got []string
	r, err := NewResolver(opts(x), reads.NewSet("ACGT"), func(f Fragment) error {
		got = append(got, string(f.Bases))
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, r.Add(SeqRequest{ReadNum: 1, FileIndex: 1, FilePos: 2}))
	require.NoError(t, r.Add(SeqRequest{ReadNum: 1, FileIndex: 0, FilePos: 5}))
	assert.Equal(t, 2, r.Pending())
	assert.Empty(t, got)

	require.NoError(t, r.Flush())
	assert.Zero(t, r.Pending())
	// Sorted by file before resolution.
	assert.Equal(t, []string{"GTACGTAA", "NCCCCGGG"}, got)

	require.NoError(t, r.Flush())
	assert.Len(t, got, 2)
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	x := genomeDir(t)
	rs := reads.NewSet("ACGT")

	tests := []struct {
		name string
		req  SeqRequest
		want error
	}{
		{"unknown file", SeqRequest{ReadNum: 1, FileIndex: 5, FilePos: 1}, format.ErrUnknownFile},
		{"unknown contig", SeqRequest{ReadNum: 1, FileIndex: 0, ContigNum: 7, FilePos: 1}, format.ErrOutOfRange},
		{"past file end", SeqRequest{ReadNum: 1, FileIndex: 0, FilePos: 100}, format.ErrOutOfRange},
		{"unknown read", SeqRequest{ReadNum: 9, FileIndex: 0, FilePos: 1}, format.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(opts(x), rs, []SeqRequest{tt.req})
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewResolver(Options{Index: x, ReadLength: 8, FragmentLength: 4}, rs, nil)
	require.Error(t, err)
	_, err = NewResolver(Options{ReadLength: 4, FragmentLength: 8}, rs, nil)
	require.Error(t, err)
}

func TestLeadingN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, LeadingN([]byte("ACGT")))
	assert.Equal(t, 2, LeadingN([]byte("Nn.A")[1:]))
	assert.Equal(t, 3, LeadingN([]byte("N.nGATN")))
	assert.Equal(t, 4, LeadingN([]byte("NNNN")))
	assert.Equal(t, 0, LeadingN(nil))
}
