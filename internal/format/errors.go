package format

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the command line tool reports it.
type Kind int

const (
	// KindInput is a malformed FASTA, index or region file.
	KindInput Kind = iota
	// KindFilesystem is a failure to open, stat or map a file.
	KindFilesystem
	// KindValidation is a contig naming rule violation.
	KindValidation
	// KindOutput is a failure writing results.
	KindOutput
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindFilesystem:
		return "filesystem"
	case KindValidation:
		return "validation"
	case KindOutput:
		return "output"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error carries the Kind of a failure and the file it concerns.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// E wraps err with a kind and path.
func E(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain. Errors
// without one are reported as KindInput.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInput
}

// Input format errors.
var (
	ErrMissingHeader    = errors.New("sequence data before first FASTA header")
	ErrEmptyContig      = errors.New("FASTA header has no sequence")
	ErrTooLarge         = errors.New("sequence exceeds 32-bit base addressing")
	ErrMalformedIndex   = errors.New("malformed contig index line")
	ErrMalformedRegions = errors.New("malformed valid-region file")
)

// Validation errors.
var (
	ErrEmptyName       = errors.New("empty contig name")
	ErrForbiddenChar   = errors.New("forbidden character in contig name")
	ErrDuplicateContig = errors.New("duplicate contig name")
	ErrManyContigs     = errors.New("more than one contig in file")
)

// Lookup errors.
var (
	ErrUnknownFile   = errors.New("unknown squashed file")
	ErrUnknownContig = errors.New("unknown contig")
	ErrOutOfRange    = errors.New("position out of range")
)
