// Package decoder turns squashed genome files back into FASTA and reports
// contig sizes.
package decoder

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vertti/squashgenome/internal/bases"
	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/genome"
	"github.com/vertti/squashgenome/internal/mmap"
)

// DefaultLineWidth is the FASTA line width used when none is given.
const DefaultLineWidth = 60

// UnsquashOptions configures Unsquash.
type UnsquashOptions struct {
	LineWidth int // bases per line; 0 means DefaultLineWidth
}

// Unsquash writes the FASTA text of the squashed file triple at prefix to
// w. Bases outside every valid region are written as N. A zero-byte
// sequence file produces no output.
func Unsquash(prefix string, w io.Writer, opts *UnsquashOptions) error {
	if opts == nil {
		opts = &UnsquashOptions{}
	}
	width := opts.LineWidth
	if width <= 0 {
		width = DefaultLineWidth
	}

	p := format.PathsFromPrefix(prefix)
	seq, err := mmap.Open(p.Sequence)
	if err != nil {
		return format.E(format.KindFilesystem, p.Sequence, err)
	}
	defer seq.Close() //nolint:errcheck // read-only mapping
	if seq.Len() == 0 {
		return nil
	}
	if err := seq.AdviseSequential(); err != nil {
		log.Debugf("madvise %s: %v", p.Sequence, err)
	}

	comment, regions, err := genome.LoadRegions(p.Regions)
	if err != nil {
		return err
	}
	total := format.TotalBases(regions)
	if total > format.Capacity(seq.Len()) {
		return format.E(format.KindInput, p.Regions,
			fmt.Errorf("%w: regions cover %d bases, sequence holds %d", format.ErrMalformedRegions, total, format.Capacity(seq.Len())))
	}

	entries, err := genome.LoadIndex(p.Index)
	if err != nil {
		return err
	}
	headers := make([]string, len(entries))
	for i, e := range entries {
		headers[i] = ">" + e.Name
	}
	if len(entries) == 0 {
		// Without an index the whole file is one contig under the
		// original first header.
		name := strings.TrimSuffix(filepath.Base(p.Sequence), format.SequenceExt)
		entries = []format.ContigEntry{{Offset: 0, Name: name}}
		headers = []string{comment}
		if comment == "" {
			headers[0] = ">" + entries[0].Name
		}
	}

	lw := &lineWriter{w: bufio.NewWriterSize(w, 1<<16), width: width}
	packed := seq.Bytes()
	r := 0
	for c, e := range entries {
		lw.header(headers[c])
		end := format.ContigEnd(entries, c, total)
		for pos := uint64(e.Offset); pos < end; pos++ {
			for r < len(regions) && regions[r].End() <= pos {
				r++
			}
			b := byte('N')
			if r < len(regions) && pos >= uint64(regions[r].Start) {
				b = bases.Char(format.BaseCode(packed, pos))
			}
			lw.base(b)
		}
		lw.endLine()
		if lw.err != nil {
			break
		}
	}
	if err := lw.flush(); err != nil {
		return format.E(format.KindOutput, "", fmt.Errorf("writing FASTA: %w", err))
	}
	log.Debugf("Unsquashed %s: %d contigs, %d bases", prefix, len(entries), total)
	return nil
}

// lineWriter wraps bases at a fixed width and keeps the first write error.
type lineWriter struct {
	w     *bufio.Writer
	width int
	col   int
	err   error
}

func (l *lineWriter) header(h string) {
	if l.err != nil {
		return
	}
	if _, l.err = l.w.WriteString(h); l.err == nil {
		l.err = l.w.WriteByte('\n')
	}
}

func (l *lineWriter) base(b byte) {
	if l.err != nil {
		return
	}
	if l.err = l.w.WriteByte(b); l.err != nil {
		return
	}
	l.col++
	if l.col == l.width {
		l.endLine()
	}
}

func (l *lineWriter) endLine() {
	if l.err != nil || l.col == 0 {
		return
	}
	l.err = l.w.WriteByte('\n')
	l.col = 0
}

func (l *lineWriter) flush() error {
	if l.err != nil {
		return l.err
	}
	return l.w.Flush()
}
