// Package contigs maps squashed chromosome files and the contigs inside
// them to integer IDs, and converts between within-contig positions and
// whole-file offsets.
package contigs

import (
	"fmt"
	"sort"

	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/genome"
)

// ContigIndex is the parsed .idx file of one chromosome file.
type ContigIndex struct {
	entries []format.ContigEntry
	byName  map[string]int
}

// NewContigIndex builds a ContigIndex from .idx entries.
func NewContigIndex(entries []format.ContigEntry) *ContigIndex {
	c := &ContigIndex{entries: entries, byName: make(map[string]int, len(entries))}
	for i, e := range entries {
		c.byName[e.Name] = i
	}
	return c
}

// Len returns the number of contigs.
func (c *ContigIndex) Len() int {
	return len(c.entries)
}

// Entry returns contig num.
func (c *ContigIndex) Entry(num int) format.ContigEntry {
	return c.entries[num]
}

// Lookup returns the number and file offset of the named contig.
func (c *ContigIndex) Lookup(name string) (num int, offset uint32, ok bool) {
	num, ok = c.byName[name]
	if !ok {
		return 0, 0, false
	}
	return num, c.entries[num].Offset, true
}

// ContigAt returns the contig containing file position pos.
func (c *ContigIndex) ContigAt(pos uint32) int {
	i := sort.Search(len(c.entries), func(i int) bool { return c.entries[i].Offset > pos })
	if i == 0 {
		return 0
	}
	return i - 1
}

// Index maps chromosome file names in a squash directory to IDs. The
// contig index of each chromosome is loaded on first use. Index is not
// safe for concurrent use.
type Index struct {
	dir   string
	names []string
	ids   map[string]int
	subs  map[string]*ContigIndex
}

// New returns an Index over the given chromosome file names in dir. IDs
// follow the order of names.
func New(dir string, names []string) *Index {
	x := &Index{
		dir:   dir,
		names: append([]string(nil), names...),
		ids:   make(map[string]int, len(names)),
		subs:  make(map[string]*ContigIndex),
	}
	for i, n := range x.names {
		x.ids[n] = i
	}
	return x
}

// Scan returns an Index over every squashed file in dir.
func Scan(dir string) (*Index, error) {
	names, err := format.ListSquashed(dir)
	if err != nil {
		return nil, format.E(format.KindFilesystem, dir, err)
	}
	return New(dir, names), nil
}

// Dir returns the squash directory.
func (x *Index) Dir() string {
	return x.dir
}

// Len returns the number of chromosome files.
func (x *Index) Len() int {
	return len(x.names)
}

// ID returns the ID of a chromosome file name.
func (x *Index) ID(name string) (int, bool) {
	id, ok := x.ids[name]
	return id, ok
}

// Name returns the chromosome file name with the given ID.
func (x *Index) Name(id int) (string, error) {
	if id < 0 || id >= len(x.names) {
		return "", fmt.Errorf("%w: file index %d of %d", format.ErrUnknownFile, id, len(x.names))
	}
	return x.names[id], nil
}

// Contigs returns the contig index of chrom, loading it on first use. A
// chromosome without a .idx file has a nil ContigIndex and no error.
func (x *Index) Contigs(chrom string) (*ContigIndex, error) {
	if _, ok := x.ids[chrom]; !ok {
		return nil, fmt.Errorf("%w: %q", format.ErrUnknownFile, chrom)
	}
	if sub, ok := x.subs[chrom]; ok {
		return sub, nil
	}
	entries, err := genome.LoadIndex(format.PathsFor(x.dir, chrom).Index)
	if err != nil {
		return nil, err
	}
	var sub *ContigIndex
	if len(entries) > 0 {
		sub = NewContigIndex(entries)
	}
	x.subs[chrom] = sub
	return sub, nil
}

// Adjust converts a position within a named contig of chrom into the file
// ID, contig number and whole-file offset. Without a contig index the
// position is taken as already file-relative and contig is ignored.
func (x *Index) Adjust(chrom, contig string, pos uint32) (fileID, contigNum int, filePos uint32, err error) {
	fileID, ok := x.ids[chrom]
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", format.ErrUnknownFile, chrom)
	}
	sub, err := x.Contigs(chrom)
	if err != nil {
		return 0, 0, 0, err
	}
	if sub == nil {
		return fileID, 0, pos, nil
	}
	num, offset, ok := sub.Lookup(contig)
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q in %q", format.ErrUnknownContig, contig, chrom)
	}
	return fileID, num, offset + pos, nil
}

// Locate maps a whole-file offset in chrom back to a contig name and the
// position within that contig. Without a contig index the chromosome name
// and the unchanged position are returned.
func (x *Index) Locate(chrom string, filePos uint32) (contig string, pos uint32, err error) {
	sub, err := x.Contigs(chrom)
	if err != nil {
		return "", 0, err
	}
	if sub == nil {
		return chrom, filePos, nil
	}
	e := sub.Entry(sub.ContigAt(filePos))
	return e.Name, filePos - e.Offset, nil
}
