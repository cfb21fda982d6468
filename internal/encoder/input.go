package encoder

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// openInput opens a FASTA file, transparently decompressing gzip and zstd
// input detected by suffix or magic bytes. size is the on-disk size.
func openInput(path string) (r io.Reader, size int64, cleanup func(), err error) {
	f, err := os.Open(path) //nolint:gosec // CLI tool needs to open user-specified files
	if err != nil {
		return nil, 0, nil, fmt.Errorf("cannot open input: %w", err)
	}
	closeInput := func() { _ = f.Close() }
	info, err := f.Stat()
	if err != nil {
		closeInput()
		return nil, 0, nil, fmt.Errorf("cannot stat input: %w", err)
	}
	r, cleanup, err = wrapCompressed(path, f, closeInput)
	if err != nil {
		return nil, 0, nil, err
	}
	return r, info.Size(), cleanup, nil
}

func wrapCompressed(path string, in io.Reader, closeInput func()) (io.Reader, func(), error) {
	br := bufio.NewReaderSize(in, 1<<20)
	header, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		closeInput()
		return nil, nil, fmt.Errorf("cannot inspect input: %w", err)
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz") || bytes.HasPrefix(header, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			closeInput()
			return nil, nil, fmt.Errorf("cannot open gzip input: %w", err)
		}
		return gz, func() {
			_ = gz.Close()
			closeInput()
		}, nil
	case strings.HasSuffix(lower, ".zst") || bytes.HasPrefix(header, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			closeInput()
			return nil, nil, fmt.Errorf("cannot open zstd input: %w", err)
		}
		return zr, func() {
			zr.Close()
			closeInput()
		}, nil
	default:
		return br, closeInput, nil
	}
}
