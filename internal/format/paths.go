package format

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File name suffixes of a squashed file triple.
const (
	SequenceExt = ".2bpb"
	RegionsExt  = ".vld"
	IndexExt    = ".idx"
)

// Paths names the three files that make up one squashed FASTA file.
type Paths struct {
	Sequence string
	Regions  string
	Index    string
}

// PathsFor returns the file triple for name inside dir.
func PathsFor(dir, name string) Paths {
	return PathsFromPrefix(filepath.Join(dir, name))
}

// PathsFromPrefix returns the file triple sharing prefix. A prefix that
// already carries one of the squash suffixes has it stripped first.
func PathsFromPrefix(prefix string) Paths {
	for _, ext := range []string{SequenceExt, RegionsExt, IndexExt} {
		if strings.HasSuffix(prefix, ext) {
			prefix = strings.TrimSuffix(prefix, ext)
			break
		}
	}
	return Paths{
		Sequence: prefix + SequenceExt,
		Regions:  prefix + RegionsExt,
		Index:    prefix + IndexExt,
	}
}

// SquashName returns the name a FASTA file is squashed under: its base
// name with any compression suffix removed.
func SquashName(fastaPath string) string {
	name := filepath.Base(fastaPath)
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// ListSquashed returns the sorted names of the squashed files in dir,
// identified by their .vld file.
func ListSquashed(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RegionsExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), RegionsExt))
	}
	sort.Strings(names)
	return names, nil
}

// IsNotExist reports whether err means a file is absent.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
