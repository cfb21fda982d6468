// squashgenome packs FASTA reference genomes into the 2-bit squash format,
// unpacks them again and reports contig sizes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vertti/squashgenome/internal/decoder"
	"github.com/vertti/squashgenome/internal/encoder"
	"github.com/vertti/squashgenome/internal/format"
)

var version = "dev"

const (
	exitSuccess     = 0
	exitError       = 1
	exitOutputError = 2
)

type config struct {
	allowManyContigs bool
	validateNames    bool
	chromNameSource  string
	verboseLevel     int
	jobs             int
	lineWidth        int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitCode maps output-write failures to 2 and everything else to 1.
func exitCode(err error) int {
	if format.KindOf(err) == format.KindOutput {
		return exitOutputError
	}
	return exitError
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var cfg config
	cmd := &cobra.Command{
		Use:   "squashgenome [options] <target-dir> <file.fa> [file.fa ...] | <squashed-file> | <squash-dir>",
		Short: "Pack FASTA genomes into the 2-bit squash format",
		Long: `squashgenome converts FASTA reference files into the squash format used
for seeded oligo matching, and back.

  squashgenome <target-dir> <file.fa> [file.fa ...]   squash FASTA files into target-dir
  squashgenome <squash-dir>/<name>                    print a squashed file as FASTA
  squashgenome <squash-dir>                           print an XML contig size manifest

FASTA input may be gzip or zstd compressed.`,
		Version:       version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), cfg, args, stdout, stderr)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.BoolVar(&cfg.allowManyContigs, "allow-many-contigs", false, "Allow more than one contig per FASTA file")
	flags.BoolVar(&cfg.validateNames, "validate-names", false, "Reject contig names containing any of "+encoder.ForbiddenNameChars)
	flags.StringVar(&cfg.chromNameSource, "chrom-name-source", string(decoder.ContigNames), "Manifest entries per contig (contigName) or per file (fileName)")
	flags.IntVar(&cfg.verboseLevel, "verbose-level", 1, "0 warnings only, 1 summaries, 2 progress and debug, 3 trace")
	flags.IntVarP(&cfg.jobs, "jobs", "j", 1, "Files processed in parallel")
	flags.IntVar(&cfg.lineWidth, "line-width", decoder.DefaultLineWidth, "FASTA line width when unsquashing")
	return cmd
}

func execute(ctx context.Context, cfg config, args []string, stdout, stderr io.Writer) error {
	setupLogging(cfg.verboseLevel, stderr)

	if len(args) >= 2 {
		return squash(ctx, cfg, args[0], args[1:], stderr)
	}
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		source, err := decoder.ParseNameSource(cfg.chromNameSource)
		if err != nil {
			return format.E(format.KindValidation, "", err)
		}
		return decoder.Manifest(ctx, args[0], stdout, &decoder.ManifestOptions{
			NameSource: source,
			Jobs:       cfg.jobs,
		})
	}
	return decoder.Unsquash(args[0], stdout, &decoder.UnsquashOptions{LineWidth: cfg.lineWidth})
}

func squash(ctx context.Context, cfg config, dir string, files []string, stderr io.Writer) error {
	opts := &encoder.Options{
		ValidateNames:    cfg.validateNames,
		AllowManyContigs: cfg.allowManyContigs,
	}
	if cfg.verboseLevel >= 2 {
		opts.WrapInput = progressBar(stderr)
	}
	stats, err := encoder.SquashFiles(ctx, files, dir, cfg.jobs, opts)
	if err != nil {
		return err
	}
	log.Infof("Squashed %d files into %s", len(stats), dir)
	return nil
}

func setupLogging(level int, w io.Writer) {
	log.SetOutput(w)
	switch {
	case level <= 0:
		log.SetLevel(log.WarnLevel)
	case level == 1:
		log.SetLevel(log.InfoLevel)
	case level == 2:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.TraceLevel)
	}
}

// progressBar reports bytes read from each FASTA input.
func progressBar(w io.Writer) func(io.Reader, int64, string) (io.Reader, func()) {
	return func(r io.Reader, size int64, name string) (io.Reader, func()) {
		bar := pb.New64(size).SetTemplate(pb.Full).SetWriter(w)
		bar.Set(pb.Bytes, true)
		bar.Set("prefix", name+" ")
		bar.Start()
		return bar.NewProxyReader(r), func() { bar.Finish() }
	}
}
