// Package encoder squashes FASTA files into the packed 2-bit format: a
// .2bpb sequence file, a .vld valid-region file and a .idx contig index.
package encoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vertti/squashgenome/internal/bases"
	"github.com/vertti/squashgenome/internal/format"
)

// ForbiddenNameChars may not appear in a contig name when names are
// validated.
const ForbiddenNameChars = `?()[]/\=+<>:;"',*^&`

// Options configures squashing.
type Options struct {
	ValidateNames    bool // Reject names containing ForbiddenNameChars
	AllowManyContigs bool // Accept more than one '>' record per file

	// WrapInput, if set, wraps the decompressed FASTA stream of each input
	// file, e.g. to report progress. The returned func is called when the
	// file is done.
	WrapInput func(r io.Reader, size int64, name string) (io.Reader, func())
}

// Stats summarizes one squashed file.
type Stats struct {
	Name       string
	Bases      uint64
	ValidBases uint64
	Regions    int
	Contigs    int
}

// ValidFraction returns the fraction of bases that are unambiguous.
func (s Stats) ValidFraction() float64 {
	if s.Bases == 0 {
		return 0
	}
	return float64(s.ValidBases) / float64(s.Bases)
}

// Outputs are the destinations of one squash.
type Outputs struct {
	Sequence io.Writer
	Regions  io.Writer
	Index    io.Writer
}

// squasher holds the streaming state of one Encode call.
type squasher struct {
	opts    *Options
	packed  *format.PackedWriter
	regions *bufio.Writer
	stats   Stats

	contigs     []format.ContigEntry
	names       map[string]struct{}
	contigStart uint64
	pos         uint64
	inRegion    bool
	regionStart uint64
}

// Encode squashes the FASTA stream r into out.
func Encode(r io.Reader, out Outputs, opts *Options) (Stats, error) {
	if opts == nil {
		opts = &Options{}
	}
	s := &squasher{
		opts:    opts,
		packed:  format.NewPackedWriter(out.Sequence),
		regions: bufio.NewWriterSize(out.Regions, 1<<16),
		names:   make(map[string]struct{}),
	}
	if err := s.run(bufio.NewReaderSize(r, 1<<20)); err != nil {
		return s.stats, err
	}

	if err := s.packed.Close(); err != nil {
		return s.stats, format.E(format.KindOutput, "", fmt.Errorf("writing packed sequence: %w", err))
	}
	if err := s.regions.Flush(); err != nil {
		return s.stats, format.E(format.KindOutput, "", fmt.Errorf("writing valid regions: %w", err))
	}
	if err := format.WriteIndex(out.Index, s.contigs); err != nil {
		return s.stats, format.E(format.KindOutput, "", fmt.Errorf("writing contig index: %w", err))
	}

	s.stats.Bases = s.pos
	s.stats.Contigs = len(s.contigs)
	return s.stats, nil
}

func (s *squasher) run(br *bufio.Reader) error {
	atLineStart := true
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			if atLineStart && chunk[0] == '>' {
				line, lerr := readRestOfLine(br, chunk, err)
				if lerr != nil {
					return format.E(format.KindInput, "", fmt.Errorf("reading FASTA header: %w", lerr))
				}
				if herr := s.header(line); herr != nil {
					return herr
				}
				// readRestOfLine consumed through the newline.
				atLineStart, err = true, nil
				continue
			}
			if berr := s.sequence(chunk); berr != nil {
				return berr
			}
			atLineStart = chunk[len(chunk)-1] == '\n'
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
		case errors.Is(err, io.EOF):
			return s.closeContig()
		default:
			return format.E(format.KindFilesystem, "", fmt.Errorf("reading FASTA: %w", err))
		}
	}
}

// readRestOfLine returns the full line that starts with chunk. err is the
// error ReadSlice returned with chunk.
func readRestOfLine(br *bufio.Reader, chunk []byte, err error) ([]byte, error) {
	line := append([]byte(nil), chunk...)
	for errors.Is(err, bufio.ErrBufferFull) {
		chunk, err = br.ReadSlice('\n')
		line = append(line, chunk...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func (s *squasher) header(line []byte) error {
	fields := strings.Fields(string(line[1:]))
	if len(fields) == 0 {
		return format.E(format.KindValidation, "", fmt.Errorf("%w: header %q", format.ErrEmptyName, line))
	}
	name := fields[0]
	if s.opts.ValidateNames {
		if i := strings.IndexAny(name, ForbiddenNameChars); i >= 0 {
			return format.E(format.KindValidation, "", fmt.Errorf("%w: %q in %q", format.ErrForbiddenChar, name[i], name))
		}
	}
	if _, dup := s.names[name]; dup {
		return format.E(format.KindValidation, "", fmt.Errorf("%w: %q", format.ErrDuplicateContig, name))
	}
	if len(s.contigs) > 0 && !s.opts.AllowManyContigs {
		return format.E(format.KindValidation, "", fmt.Errorf("%w: second contig %q", format.ErrManyContigs, name))
	}

	if len(s.contigs) == 0 {
		if err := format.WriteRegionsComment(s.regions, string(line)); err != nil {
			return format.E(format.KindOutput, "", fmt.Errorf("writing valid regions: %w", err))
		}
	} else if err := s.closeContig(); err != nil {
		return err
	}

	log.Debugf("contig %q starts at base %d", name, s.pos)
	s.names[name] = struct{}{}
	s.contigs = append(s.contigs, format.ContigEntry{Offset: uint32(s.pos), Name: name}) //nolint:gosec // pos is bounded by addBase
	s.contigStart = s.pos
	return nil
}

func (s *squasher) sequence(chunk []byte) error {
	for _, c := range chunk {
		if c == '\n' || c == '\r' {
			continue
		}
		if len(s.contigs) == 0 {
			return format.E(format.KindInput, "", format.ErrMissingHeader)
		}
		if err := s.addBase(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *squasher) addBase(c byte) error {
	if s.pos >= math.MaxUint32 {
		return format.E(format.KindInput, "", format.ErrTooLarge)
	}
	code := bases.Code(c)
	if code == bases.Invalid {
		if s.inRegion {
			if err := s.emitRegion(s.regionStart, s.pos-1); err != nil {
				return err
			}
		}
		// Ambiguous bases are stored as A; the valid regions tell them apart.
		code = 0
	} else if !s.inRegion {
		s.inRegion = true
		s.regionStart = s.pos
	}
	if err := s.packed.WriteCode(code); err != nil {
		return format.E(format.KindOutput, "", fmt.Errorf("writing packed sequence: %w", err))
	}
	s.pos++
	return nil
}

// closeContig ends the current contig with either its open valid region or
// an empty sentinel region, so every contig's end is recorded.
func (s *squasher) closeContig() error {
	if len(s.contigs) == 0 {
		return nil
	}
	if s.pos == s.contigStart {
		return format.E(format.KindInput, "", fmt.Errorf("%w: %q", format.ErrEmptyContig, s.contigs[len(s.contigs)-1].Name))
	}
	if s.inRegion {
		return s.emitRegion(s.regionStart, s.pos-1)
	}
	return s.emitRegion(s.pos, s.pos-1)
}

func (s *squasher) emitRegion(start, finish uint64) error {
	r := format.ValidRegion{Start: uint32(start), Finish: uint32(finish)} //nolint:gosec // bounded by addBase
	s.inRegion = false
	s.stats.Regions++
	s.stats.ValidBases += uint64(r.Len())
	if err := r.Write(s.regions); err != nil {
		return format.E(format.KindOutput, "", fmt.Errorf("writing valid regions: %w", err))
	}
	return nil
}
