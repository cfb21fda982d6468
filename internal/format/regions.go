package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// RegionBytes is the on-disk size of one ValidRegion record.
const RegionBytes = 8

// ValidRegion is a closed interval [Start, Finish] of file-global base
// indices that holds only unambiguous bases. A region with
// Finish == Start-1 is an empty sentinel marking the end of a contig that
// finishes in an ambiguous run.
type ValidRegion struct {
	Start  uint32
	Finish uint32
}

// Len returns the number of bases in r; zero for a sentinel.
func (r ValidRegion) Len() uint32 {
	return r.Finish - r.Start + 1
}

// IsEmpty reports whether r is a zero-length sentinel.
func (r ValidRegion) IsEmpty() bool {
	return r.Finish+1 == r.Start
}

// Contains reports whether base pos lies in r.
func (r ValidRegion) Contains(pos int64) bool {
	return pos >= int64(r.Start) && pos <= int64(r.Finish)
}

// End returns the first base index after r.
func (r ValidRegion) End() uint64 {
	return uint64(r.Finish) + 1
}

// Write serializes the region record to the writer.
func (r ValidRegion) Write(w io.Writer) error {
	var buf [RegionBytes]byte
	binary.LittleEndian.PutUint32(buf[0:4], r.Start)
	binary.LittleEndian.PutUint32(buf[4:8], r.Finish)
	_, err := w.Write(buf[:])
	return err
}

// WriteRegionsComment writes the comment line that opens a .vld file.
func WriteRegionsComment(w io.Writer, comment string) error {
	if _, err := io.WriteString(w, comment); err != nil {
		return err
	}
	_, err := w.Write([]byte{'\n'})
	return err
}

// ParseRegions decodes a complete .vld file image: the comment line
// followed by the region records. An empty image has no comment and no
// regions.
func ParseRegions(data []byte) (comment string, regions []ValidRegion, err error) {
	if len(data) == 0 {
		return "", nil, nil
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return "", nil, fmt.Errorf("%w: missing comment line", ErrMalformedRegions)
	}
	comment = string(data[:nl])
	body := data[nl+1:]
	if len(body)%RegionBytes != 0 {
		return "", nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedRegions, len(body)%RegionBytes)
	}

	regions = make([]ValidRegion, len(body)/RegionBytes)
	for i := range regions {
		rec := body[i*RegionBytes:]
		regions[i] = ValidRegion{
			Start:  binary.LittleEndian.Uint32(rec[0:4]),
			Finish: binary.LittleEndian.Uint32(rec[4:8]),
		}
	}
	if err := CheckRegions(regions); err != nil {
		return "", nil, err
	}
	return comment, regions, nil
}

// CheckRegions verifies that regions are in file order and do not overlap.
func CheckRegions(regions []ValidRegion) error {
	var next uint64
	for i, r := range regions {
		if uint64(r.Start) < next {
			return fmt.Errorf("%w: region %d [%d,%d] overlaps its predecessor", ErrMalformedRegions, i, r.Start, r.Finish)
		}
		if !r.IsEmpty() && r.Finish < r.Start {
			return fmt.Errorf("%w: region %d [%d,%d] is inverted", ErrMalformedRegions, i, r.Start, r.Finish)
		}
		next = r.End()
	}
	return nil
}

// TotalBases returns the length in bases of the squashed file described by
// regions. The last region always closes the last contig, either as a real
// region or as a sentinel.
func TotalBases(regions []ValidRegion) uint64 {
	if len(regions) == 0 {
		return 0
	}
	return regions[len(regions)-1].End()
}
