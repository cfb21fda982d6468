// Package reads provides the oligo sources that feed the matcher: FASTQ
// and raw one-read-per-line files, both rewindable, plus an in-memory set
// for looking reads up by number.
package reads

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Record is a single read.
type Record struct {
	Name     string // header without the leading '@'; empty for raw reads
	Sequence []byte
	Quality  []byte // Phred+33; nil for raw reads
}

// Source yields reads in file order. Next returns io.EOF when exhausted;
// Rewind restarts iteration from the first read.
type Source interface {
	Next() (*Record, error)
	Rewind() error
}

var (
	ErrBadHeader    = errors.New("invalid FASTQ: header line must start with @")
	ErrBadSeparator = errors.New("invalid FASTQ: separator line must start with +")
	ErrLengths      = errors.New("invalid FASTQ: sequence and quality lengths must match")
)

// lineReader is a rewindable line scanner.
type lineReader struct {
	rs     io.ReadSeeker
	reader *bufio.Reader
	line   []byte // reusable buffer for reading lines
}

func newLineReader(rs io.ReadSeeker) lineReader {
	return lineReader{
		rs:     rs,
		reader: bufio.NewReaderSize(rs, 1<<20),
		line:   make([]byte, 0, 512),
	}
}

func (l *lineReader) rewind() error {
	if _, err := l.rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding reads: %w", err)
	}
	l.reader.Reset(l.rs)
	return nil
}

// readLine reads a line from the input, stripping the newline.
// The returned slice is valid until the next call.
func (l *lineReader) readLine() ([]byte, error) {
	l.line = l.line[:0]

	for {
		segment, isPrefix, err := l.reader.ReadLine()
		if err != nil {
			return nil, err
		}

		l.line = append(l.line, segment...)

		if !isPrefix {
			break
		}
	}

	// Trim any trailing CR (for Windows line endings)
	l.line = bytes.TrimSuffix(l.line, []byte{'\r'})

	return l.line, nil
}

// FASTQ reads four-line FASTQ records.
type FASTQ struct {
	lineReader
}

// NewFASTQ returns a FASTQ source over rs.
func NewFASTQ(rs io.ReadSeeker) *FASTQ {
	return &FASTQ{lineReader: newLineReader(rs)}
}

// Rewind restarts from the first record.
func (p *FASTQ) Rewind() error {
	return p.rewind()
}

// Next reads and returns the next FASTQ record.
// Returns io.EOF when no more records are available.
func (p *FASTQ) Next() (*Record, error) {
	rec := &Record{}

	// Line 1: Header (starts with @)
	line, err := p.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '@' {
		return nil, ErrBadHeader
	}
	rec.Name = string(line[1:])

	// Line 2: Sequence
	line, err = p.readLine()
	if err != nil {
		return nil, truncated(err)
	}
	rec.Sequence = bytes.Clone(line)

	// Line 3: Plus line (ignored)
	line, err = p.readLine()
	if err != nil {
		return nil, truncated(err)
	}
	if len(line) == 0 || line[0] != '+' {
		return nil, ErrBadSeparator
	}

	// Line 4: Quality scores
	line, err = p.readLine()
	if err != nil {
		return nil, truncated(err)
	}
	rec.Quality = bytes.Clone(line)

	if len(rec.Sequence) != len(rec.Quality) {
		return nil, ErrLengths
	}

	return rec, nil
}

// truncated turns an EOF inside a record into an unexpected EOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Lines reads one raw sequence per line. Blank lines are skipped.
type Lines struct {
	lineReader
}

// NewLines returns a raw line source over rs.
func NewLines(rs io.ReadSeeker) *Lines {
	return &Lines{lineReader: newLineReader(rs)}
}

// Rewind restarts from the first line.
func (s *Lines) Rewind() error {
	return s.rewind()
}

// Next returns the next non-blank line as a read.
func (s *Lines) Next() (*Record, error) {
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) > 0 {
			return &Record{Sequence: bytes.Clone(line)}, nil
		}
	}
}

// Set holds reads in memory, numbered from 1 in source order.
type Set struct {
	records []*Record
}

// Collect rewinds src and reads it to the end.
func Collect(src Source) (*Set, error) {
	if err := src.Rewind(); err != nil {
		return nil, err
	}
	s := &Set{}
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %d: %w", len(s.records)+1, err)
		}
		s.records = append(s.records, rec)
	}
}

// NewSet returns a Set over the given sequences.
func NewSet(seqs ...string) *Set {
	s := &Set{records: make([]*Record, len(seqs))}
	for i, seq := range seqs {
		s.records[i] = &Record{Sequence: []byte(seq)}
	}
	return s
}

// Len returns the number of reads.
func (s *Set) Len() int {
	return len(s.records)
}

// Record returns read number readNum.
func (s *Set) Record(readNum uint32) (*Record, bool) {
	if readNum == 0 || int(readNum) > len(s.records) {
		return nil, false
	}
	return s.records[readNum-1], true
}

// Sequence returns the bases of read number readNum.
func (s *Set) Sequence(readNum uint32) ([]byte, bool) {
	rec, ok := s.Record(readNum)
	if !ok {
		return nil, false
	}
	return rec.Sequence, true
}
