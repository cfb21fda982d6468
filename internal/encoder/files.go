package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vertti/squashgenome/internal/format"
)

// SquashFile squashes the FASTA file at path into dir. Output is written
// to temporary files that replace the final ones only on success.
func SquashFile(path, dir string, opts *Options) (Stats, error) {
	if opts == nil {
		opts = &Options{}
	}
	name := format.SquashName(path)
	final := format.PathsFor(dir, name)
	tmp := format.Paths{
		Sequence: final.Sequence + ".tmp",
		Regions:  final.Regions + ".tmp",
		Index:    final.Index + ".tmp",
	}

	in, size, closeInput, err := openInput(path)
	if err != nil {
		return Stats{Name: name}, format.E(format.KindFilesystem, path, err)
	}
	defer closeInput()
	if opts.WrapInput != nil {
		wrapped, done := opts.WrapInput(in, size, name)
		defer done()
		in = wrapped
	}

	files, err := createOutputs(tmp)
	if err != nil {
		return Stats{Name: name}, format.E(format.KindOutput, dir, err)
	}
	removeTmp := func() {
		for _, p := range []string{tmp.Sequence, tmp.Regions, tmp.Index} {
			_ = os.Remove(p)
		}
	}

	stats, err := Encode(in, Outputs{Sequence: files[0], Regions: files[1], Index: files[2]}, opts)
	stats.Name = name
	closeErr := closeAll(files)
	if err != nil {
		removeTmp()
		return stats, withPath(err, path)
	}
	if closeErr != nil {
		removeTmp()
		return stats, format.E(format.KindOutput, dir, closeErr)
	}

	for _, pair := range [][2]string{{tmp.Sequence, final.Sequence}, {tmp.Regions, final.Regions}, {tmp.Index, final.Index}} {
		if err := os.Rename(pair[0], pair[1]); err != nil {
			removeTmp()
			return stats, format.E(format.KindOutput, pair[1], err)
		}
	}

	log.Infof("%s: %s bases, %.2f%% valid, %s regions, %s contigs",
		name, humanize.Comma(int64(stats.Bases)), 100*stats.ValidFraction(), //nolint:gosec // bounded by 32-bit addressing
		humanize.Comma(int64(stats.Regions)), humanize.Comma(int64(stats.Contigs)))
	return stats, nil
}

// SquashFiles squashes each FASTA file into dir, running up to jobs files
// at a time. Stats are returned in input order.
func SquashFiles(ctx context.Context, paths []string, dir string, jobs int, opts *Options) ([]Stats, error) {
	if jobs <= 0 {
		jobs = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // genome directories are shared read-only
		return nil, format.E(format.KindOutput, dir, err)
	}

	stats := make([]Stats, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := SquashFile(path, dir, opts)
			stats[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func createOutputs(p format.Paths) ([]*os.File, error) {
	var files []*os.File
	for _, path := range []string{p.Sequence, p.Regions, p.Index} {
		f, err := os.Create(path) //nolint:gosec // CLI tool needs to create files in the target directory
		if err != nil {
			_ = closeAll(files)
			return nil, fmt.Errorf("cannot create output: %w", err)
		}
		files = append(files, f)
	}
	return files, nil
}

func closeAll(files []*os.File) error {
	var errs []error
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// withPath fills in the path of a format.Error raised while streaming.
func withPath(err error, path string) error {
	var fe *format.Error
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = path
	}
	return err
}
