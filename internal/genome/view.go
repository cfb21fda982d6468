// Package genome provides random access to squashed genome files through a
// read-only memory mapping of the packed sequence.
package genome

import (
	"fmt"
	"os"
	"sort"

	"github.com/vertti/squashgenome/internal/bases"
	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/mmap"
)

// region is a valid region tagged with the contig that owns it.
type region struct {
	format.ValidRegion
	contig int
}

// View is a cursor over one squashed file. Bases outside every valid
// region read as 'N'. A View holds a single cursor and is not safe for
// concurrent use.
type View struct {
	name    string
	seq     *mmap.File
	packed  []byte
	regions []region
	contigs []format.ContigEntry
	total   uint64

	// Cursor state. regions[lo:hi] belong to contig; cur indexes the
	// first of them whose Finish is not behind pos.
	contig int
	lo, hi int
	cur    int
	pos    int64
}

// Open opens the squashed file name in dir.
func Open(dir, name string) (*View, error) {
	return OpenPaths(name, format.PathsFor(dir, name))
}

// OpenPaths opens a squashed file triple. A missing contig index is not an
// error: the whole file is then one contig named after the file.
func OpenPaths(name string, p format.Paths) (*View, error) {
	_, regions, err := LoadRegions(p.Regions)
	if err != nil {
		return nil, err
	}
	contigs, err := LoadIndex(p.Index)
	if err != nil {
		return nil, err
	}
	if len(contigs) == 0 {
		contigs = []format.ContigEntry{{Offset: 0, Name: name}}
	}

	seq, err := mmap.Open(p.Sequence)
	if err != nil {
		return nil, format.E(format.KindFilesystem, p.Sequence, err)
	}
	v := &View{
		name:    name,
		seq:     seq,
		packed:  seq.Bytes(),
		contigs: contigs,
		total:   format.TotalBases(regions),
		contig:  -1,
	}
	if v.total > format.Capacity(len(v.packed)) {
		_ = seq.Close()
		return nil, format.E(format.KindInput, p.Regions,
			fmt.Errorf("%w: regions cover %d bases, sequence holds %d", format.ErrMalformedRegions, v.total, format.Capacity(len(v.packed))))
	}
	v.regions = tagRegions(regions, contigs)
	return v, nil
}

// LoadRegions maps and decodes a .vld file, returning its comment line and
// regions.
func LoadRegions(path string) (string, []format.ValidRegion, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return "", nil, format.E(format.KindFilesystem, path, err)
	}
	defer m.Close() //nolint:errcheck // read-only mapping; regions are copied out
	comment, regions, err := format.ParseRegions(m.Bytes())
	if err != nil {
		return "", nil, format.E(format.KindInput, path, err)
	}
	return comment, regions, nil
}

// LoadIndex reads a .idx file. A missing file yields no entries and no
// error.
func LoadIndex(path string) ([]format.ContigEntry, error) {
	f, err := os.Open(path) //nolint:gosec // squash files are named by the caller
	if format.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, format.E(format.KindFilesystem, path, err)
	}
	defer f.Close() //nolint:errcheck // read-only
	entries, err := format.ReadIndex(f)
	if err != nil {
		return nil, format.E(format.KindInput, path, err)
	}
	return entries, nil
}

// tagRegions assigns each region to the contig containing it, advancing
// the contig whenever a region reaches past the next contig's offset.
func tagRegions(regions []format.ValidRegion, contigs []format.ContigEntry) []region {
	tagged := make([]region, len(regions))
	c := 0
	for i, r := range regions {
		for c+1 < len(contigs) && int64(r.Finish) >= int64(contigs[c+1].Offset) {
			c++
		}
		tagged[i] = region{ValidRegion: r, contig: c}
	}
	return tagged
}

// Close unmaps the sequence file.
func (v *View) Close() error {
	v.packed = nil
	return v.seq.Close()
}

// Name returns the squashed file name.
func (v *View) Name() string {
	return v.name
}

// Contigs returns the contig index entries.
func (v *View) Contigs() []format.ContigEntry {
	return v.contigs
}

// NumBases returns the number of bases in the file.
func (v *View) NumBases() uint64 {
	return v.total
}

// ContigLen returns the length of contig c in bases.
func (v *View) ContigLen(c int) uint64 {
	return format.ContigEnd(v.contigs, c, v.total) - uint64(v.contigs[c].Offset)
}

// ContigOf returns the contig containing file position pos.
func (v *View) ContigOf(pos int64) int {
	i := sort.Search(len(v.contigs), func(i int) bool {
		return int64(v.contigs[i].Offset) > pos
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// SeekToContigPosition positions the cursor at file position filePos
// within contig. Bases read outside the contig are 'N'. filePos may be
// negative or past the end of the contig.
func (v *View) SeekToContigPosition(contig int, filePos int64) error {
	if contig < 0 || contig >= len(v.contigs) {
		return fmt.Errorf("%w: contig %d of %s (%d contigs)", format.ErrOutOfRange, contig, v.name, len(v.contigs))
	}
	if contig != v.contig {
		v.lo = sort.Search(len(v.regions), func(i int) bool { return v.regions[i].contig >= contig })
		v.hi = v.lo + sort.Search(len(v.regions)-v.lo, func(i int) bool { return v.regions[v.lo+i].contig > contig })
		v.contig = contig
	}
	v.cur = v.lo + sort.Search(v.hi-v.lo, func(i int) bool {
		return int64(v.regions[v.lo+i].Finish) >= filePos
	})
	v.pos = filePos
	return nil
}

// Position returns the file position of the next base NextBase returns.
func (v *View) Position() int64 {
	return v.pos
}

// NextBase returns the base at the cursor and advances it by one.
func (v *View) NextBase() byte {
	p := v.pos
	v.pos++
	b := byte('N')
	if v.cur < v.hi && p >= int64(v.regions[v.cur].Start) {
		b = bases.Char(format.BaseCode(v.packed, uint64(p)))
	}
	for v.cur < v.hi && v.pos > int64(v.regions[v.cur].Finish) {
		v.cur++
	}
	return b
}

// Read fills dst with consecutive bases from the cursor.
func (v *View) Read(dst []byte) {
	for i := range dst {
		dst[i] = v.NextBase()
	}
}

// find returns the index of the first region whose Finish is at or after
// pos.
func (v *View) find(pos int64) int {
	return sort.Search(len(v.regions), func(i int) bool {
		return int64(v.regions[i].Finish) >= pos
	})
}

// BaseAt returns the base at file position pos without moving the cursor.
func (v *View) BaseAt(pos int64) byte {
	i := v.find(pos)
	if i == len(v.regions) || !v.regions[i].Contains(pos) {
		return 'N'
	}
	return bases.Char(format.BaseCode(v.packed, uint64(pos)))
}

// BaseInContig returns the base at offset pos from the start of contig.
func (v *View) BaseInContig(contig int, pos int64) (byte, error) {
	if contig < 0 || contig >= len(v.contigs) {
		return 0, fmt.Errorf("%w: contig %d of %s", format.ErrOutOfRange, contig, v.name)
	}
	if pos < 0 || uint64(pos) >= v.ContigLen(contig) {
		return 'N', nil
	}
	return v.BaseAt(int64(v.contigs[contig].Offset) + pos), nil
}

// Window returns length (1..32) bases starting at pos packed left-aligned
// into a uint64, first base in the top two bits. Unless the whole window
// lies in one valid region, ok is false and the value must not be compared
// against oligos.
func (v *View) Window(pos int64, length int) (packed uint64, ok bool) {
	if length < 1 || length > 32 || pos < 0 {
		return 0, false
	}
	i := v.find(pos)
	if i == len(v.regions) || !v.regions[i].Contains(pos) || !v.regions[i].Contains(pos+int64(length)-1) {
		return 0, false
	}

	p := uint64(pos)
	w := format.WordIndex(p)
	o := 2 * (p & 0xF)
	hi := uint64(format.Word(v.packed, w))<<32 | uint64(format.Word(v.packed, w+1))
	lo := uint64(format.Word(v.packed, w+2))
	packed = hi<<o | lo>>(32-o)
	packed &^= (uint64(1) << (2 * uint(32-length))) - 1
	return packed, true
}
