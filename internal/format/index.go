package format

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// ContigEntry is one line of a .idx file: the file-global base index where
// a contig begins, and its name.
type ContigEntry struct {
	Offset uint32
	Name   string
}

// WriteIndex writes entries as "<offset>\t><name>" lines.
func WriteIndex(w io.Writer, entries []ContigEntry) error {
	out := tsv.NewWriter(w)
	for _, e := range entries {
		out.WriteInt64(int64(e.Offset))
		out.WriteString(">" + e.Name)
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// ReadIndex parses a .idx file. Offsets must be strictly increasing.
func ReadIndex(r io.Reader) ([]ContigEntry, error) {
	var entries []ContigEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 1<<20)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSuffix(scanner.Bytes(), []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		tab := bytes.IndexByte(line, '\t')
		if tab < 0 || tab+1 >= len(line) || line[tab+1] != '>' {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedIndex, lineNo, line)
		}
		off, err := strconv.ParseUint(string(line[:tab]), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedIndex, lineNo, err)
		}
		if n := len(entries); n > 0 && uint32(off) <= entries[n-1].Offset {
			return nil, fmt.Errorf("%w: line %d: offset %d not increasing", ErrMalformedIndex, lineNo, off)
		}
		entries = append(entries, ContigEntry{
			Offset: uint32(off),
			Name:   string(line[tab+2:]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading contig index: %w", err)
	}
	return entries, nil
}

// ContigEnd returns the first base after contig i, given the total number
// of bases in the file.
func ContigEnd(entries []ContigEntry, i int, total uint64) uint64 {
	if i+1 < len(entries) {
		return uint64(entries[i+1].Offset)
	}
	return total
}
