package decoder

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/genome"
)

// NameSource selects what a manifest entry describes.
type NameSource string

const (
	// ContigNames lists every contig of every file.
	ContigNames NameSource = "contigName"
	// FileNames lists each file once, named after the file.
	FileNames NameSource = "fileName"
)

// ParseNameSource parses a --chrom-name-source value.
func ParseNameSource(s string) (NameSource, error) {
	switch NameSource(s) {
	case ContigNames, FileNames:
		return NameSource(s), nil
	}
	return "", fmt.Errorf("invalid chromosome name source %q: want %s or %s", s, FileNames, ContigNames)
}

// SequenceSizes is the XML manifest of a squash directory.
type SequenceSizes struct {
	XMLName     xml.Name     `xml:"sequenceSizes"`
	Chromosomes []Chromosome `xml:"chromosome"`
}

// Chromosome is one manifest entry.
type Chromosome struct {
	FileName   string `xml:"fileName,attr"`
	ContigName string `xml:"contigName,attr"`
	TotalBases uint64 `xml:"totalBases,attr"`
}

// ManifestOptions configures Sizes and Manifest.
type ManifestOptions struct {
	NameSource NameSource // empty means ContigNames
	Jobs       int        // files scanned concurrently; <= 0 means 1
}

// Sizes scans every squashed file in dir and returns its manifest entries
// in file name order.
func Sizes(ctx context.Context, dir string, opts *ManifestOptions) (*SequenceSizes, error) {
	if opts == nil {
		opts = &ManifestOptions{}
	}
	names, err := format.ListSquashed(dir)
	if err != nil {
		return nil, format.E(format.KindFilesystem, dir, err)
	}

	perFile := make([][]Chromosome, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Jobs, 1))
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chroms, err := fileSizes(dir, name, opts.NameSource)
			if err != nil {
				return err
			}
			perFile[i] = chroms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &SequenceSizes{}
	for _, chroms := range perFile {
		out.Chromosomes = append(out.Chromosomes, chroms...)
	}
	log.Debugf("Scanned %d squashed files in %s", len(names), dir)
	return out, nil
}

func fileSizes(dir, name string, source NameSource) ([]Chromosome, error) {
	p := format.PathsFor(dir, name)
	_, regions, err := genome.LoadRegions(p.Regions)
	if err != nil {
		return nil, err
	}
	total := format.TotalBases(regions)
	if source == FileNames {
		return []Chromosome{{FileName: name, ContigName: name, TotalBases: total}}, nil
	}

	entries, err := genome.LoadIndex(p.Index)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []Chromosome{{FileName: name, ContigName: name, TotalBases: total}}, nil
	}
	chroms := make([]Chromosome, len(entries))
	for i, e := range entries {
		chroms[i] = Chromosome{
			FileName:   name,
			ContigName: e.Name,
			TotalBases: format.ContigEnd(entries, i, total) - uint64(e.Offset),
		}
	}
	return chroms, nil
}

// Manifest writes the XML manifest of dir to w.
func Manifest(ctx context.Context, dir string, w io.Writer, opts *ManifestOptions) error {
	sizes, err := Sizes(ctx, dir, opts)
	if err != nil {
		return err
	}
	data, err := xml.MarshalIndent(sizes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return format.E(format.KindOutput, "", fmt.Errorf("writing manifest: %w", err))
	}
	return nil
}
