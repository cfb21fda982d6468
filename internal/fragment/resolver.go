// Package fragment resolves batches of seed-hit requests into the genomic
// fragments around them, opening each squashed file once per run of
// requests against it.
package fragment

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/vertti/squashgenome/internal/bases"
	"github.com/vertti/squashgenome/internal/contigs"
	"github.com/vertti/squashgenome/internal/format"
	"github.com/vertti/squashgenome/internal/genome"
)

// BatchSize is the number of pending requests that triggers a flush.
const BatchSize = 1 << 16

// Strand of a seed hit.
type Strand uint8

const (
	Forward Strand = iota
	Reverse
)

func (s Strand) String() string {
	if s == Reverse {
		return "R"
	}
	return "F"
}

// SeqRequest asks for the fragment around FilePos (one-based, whole-file
// coordinates) in contig ContigNum of file FileIndex, for read ReadNum.
// SeedOffset is the offset of the matching seed within the read.
type SeqRequest struct {
	RequestNum uint32
	ReadNum    uint32
	FileIndex  int
	ContigNum  int
	FilePos    int64
	Strand     Strand
	SeedOffset int
}

// Fragment is a resolved request. Reverse-strand bases are already
// reverse complemented.
type Fragment struct {
	Request SeqRequest
	Bases   []byte
}

// ReadLookup returns the bases of a read by number.
type ReadLookup interface {
	Sequence(readNum uint32) ([]byte, bool)
}

// Options configures a Resolver.
type Options struct {
	Index               *contigs.Index
	ReadLength          int
	FragmentLength      int
	ReverseStrandOffset int64
}

// Resolver collects requests and resolves them in sorted batches.
type Resolver struct {
	opts       Options
	basesAhead int64
	reads      ReadLookup
	emit       func(Fragment) error

	pending  []SeqRequest
	leadingN map[uint32]int
}

// NewResolver returns a Resolver that passes each fragment to emit. The
// Bases slice is owned by the receiver.
func NewResolver(opts Options, reads ReadLookup, emit func(Fragment) error) (*Resolver, error) {
	if opts.Index == nil {
		return nil, errors.New("fragment resolver needs a contig index")
	}
	if opts.ReadLength <= 0 || opts.FragmentLength < opts.ReadLength {
		return nil, fmt.Errorf("fragment length %d must be at least read length %d > 0", opts.FragmentLength, opts.ReadLength)
	}
	return &Resolver{
		opts:       opts,
		basesAhead: int64(opts.FragmentLength-opts.ReadLength) / 2,
		reads:      reads,
		emit:       emit,
		pending:    make([]SeqRequest, 0, min(BatchSize, 1024)),
		leadingN:   make(map[uint32]int),
	}, nil
}

// Add queues a request, flushing once BatchSize requests are pending.
func (r *Resolver) Add(req SeqRequest) error {
	r.pending = append(r.pending, req)
	if len(r.pending) >= BatchSize {
		return r.Flush()
	}
	return nil
}

// Pending returns the number of queued requests.
func (r *Resolver) Pending() int {
	return len(r.pending)
}

// Flush resolves every queued request. Any bad request fails the whole
// batch.
func (r *Resolver) Flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	batch := r.pending
	r.pending = r.pending[:0]

	sort.SliceStable(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if a.FileIndex != b.FileIndex {
			return a.FileIndex < b.FileIndex
		}
		if a.ContigNum != b.ContigNum {
			return a.ContigNum < b.ContigNum
		}
		return a.FilePos < b.FilePos
	})

	var view *genome.View
	file := -1
	opened := 0
	defer func() {
		if view != nil {
			_ = view.Close()
		}
	}()

	for _, req := range batch {
		if req.FileIndex != file {
			if view != nil {
				_ = view.Close()
				view = nil
			}
			name, err := r.opts.Index.Name(req.FileIndex)
			if err != nil {
				return fmt.Errorf("request %d: %w", req.RequestNum, err)
			}
			if view, err = genome.Open(r.opts.Index.Dir(), name); err != nil {
				return fmt.Errorf("request %d: %w", req.RequestNum, err)
			}
			file = req.FileIndex
			opened++
		}
		frag, err := r.resolve(view, req)
		if err != nil {
			return fmt.Errorf("request %d: %w", req.RequestNum, err)
		}
		if err := r.emit(frag); err != nil {
			return err
		}
	}
	log.Debugf("Resolved %d fragments from %d files", len(batch), opened)
	return nil
}

func (r *Resolver) resolve(view *genome.View, req SeqRequest) (Fragment, error) {
	if req.FilePos < 0 || uint64(req.FilePos) > view.NumBases() {
		return Fragment{}, fmt.Errorf("%w: position %d in %s (%d bases)", format.ErrOutOfRange, req.FilePos, view.Name(), view.NumBases())
	}
	head, err := r.headOffset(req)
	if err != nil {
		return Fragment{}, err
	}

	var start int64
	if req.Strand == Reverse {
		start = req.FilePos + head - r.opts.ReverseStrandOffset - 1 - r.basesAhead
	} else {
		start = req.FilePos - head - 1 - r.basesAhead
	}
	if err := view.SeekToContigPosition(req.ContigNum, start); err != nil {
		return Fragment{}, err
	}
	buf := make([]byte, r.opts.FragmentLength)
	view.Read(buf)
	if req.Strand == Reverse {
		rc := make([]byte, len(buf))
		bases.ReverseComplement(rc, buf)
		buf = rc
	}
	return Fragment{Request: req, Bases: buf}, nil
}

// headOffset is the larger of the read's leading ambiguous run and the
// seed offset. The leading run is computed once per read.
func (r *Resolver) headOffset(req SeqRequest) (int64, error) {
	n, ok := r.leadingN[req.ReadNum]
	if !ok {
		seq, found := r.reads.Sequence(req.ReadNum)
		if !found {
			return 0, fmt.Errorf("%w: read %d", format.ErrOutOfRange, req.ReadNum)
		}
		n = LeadingN(seq)
		r.leadingN[req.ReadNum] = n
	}
	return int64(max(n, req.SeedOffset)), nil
}

// LeadingN counts the ambiguous bases at the head of seq.
func LeadingN(seq []byte) int {
	for i, c := range seq {
		if bases.IsValid(c) {
			return i
		}
	}
	return len(seq)
}

// Resolve resolves reqs in one pass and returns the fragments ordered by
// RequestNum.
func Resolve(opts Options, reads ReadLookup, reqs []SeqRequest) ([]Fragment, error) {
	out := make([]Fragment, 0, len(reqs))
	r, err := NewResolver(opts, reads, func(f Fragment) error {
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if err := r.Add(req); err != nil {
			return nil, err
		}
	}
	if err := r.Flush(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Request.RequestNum < out[j].Request.RequestNum
	})
	return out, nil
}
