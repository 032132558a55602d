package ntfs

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/ultrasearch/ultrasearch/pkg/ids"
)

// mftReader is the platform boundary for bulk MFT enumeration. windows.go
// implements it against FSCTL_ENUM_USN_DATA; tests substitute a fake.
//
// Next returns ok=false once the sequence is exhausted. The sequence is
// finite and non-restartable within a run (spec §4.2).
type mftReader interface {
	Next(ctx context.Context) (seed FileMetaSeed, ok bool, err error)
}

// Enumerator drives one bulk MFT pass over a volume, filtering
// inaccessible special records and maintaining the path-resolution cache
// used to chase parent FRNs on demand.
type Enumerator struct {
	volumeID ids.VolumeId
	reader   mftReader
	cache    *pathCache
	exclude  []*regexp.Regexp
}

// NewEnumerator builds an Enumerator over the given MFT reader. excludePatterns
// are compiled as regular expressions matched against the resolved name;
// a match filters the record out of the produced sequence (spec §4.2:
// "Inaccessible special records are filtered by a configurable pattern
// set").
func NewEnumerator(volumeID ids.VolumeId, reader mftReader, excludePatterns []string) (*Enumerator, error) {
	e := &Enumerator{
		volumeID: volumeID,
		reader:   reader,
		cache:    newPathCache(DefaultPathCacheSize),
	}
	for _, p := range excludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		e.exclude = append(e.exclude, re)
	}
	return e, nil
}

// Next returns the next non-filtered FileMetaSeed. It never buffers the
// whole filesystem: only the bounded path cache, which ResolvePath fills,
// is retained across calls (spec §4.2: "The enumerator never buffers the
// whole filesystem").
func (e *Enumerator) Next(ctx context.Context) (FileMetaSeed, bool, error) {
	for {
		seed, ok, err := e.reader.Next(ctx)
		if err != nil || !ok {
			return FileMetaSeed{}, ok, err
		}

		if e.isExcluded(seed.Name) {
			continue
		}

		return seed, true, nil
	}
}

func (e *Enumerator) isExcluded(name string) bool {
	for _, re := range e.exclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// ResolvePath chases parent-FRN links to build a resolved path for key,
// using the bounded LRU cache to accelerate repeats. parentOf is supplied
// by the caller (the service keeps a DocKey -> (parent, name) table filled
// from seeds and journal events) since the enumerator alone cannot look
// up records outside the current pass.
func (e *Enumerator) ResolvePath(key ids.DocKey, parentOf func(ids.DocKey) (parent ids.DocKey, name string, ok bool)) (string, bool) {
	if p, ok := e.cache.Get(key); ok {
		return p, true
	}

	var parts []string
	cur := key
	for depth := 0; depth < 256; depth++ {
		parent, name, ok := parentOf(cur)
		if !ok {
			break
		}
		parts = append([]string{name}, parts...)
		if p, ok := e.cache.Get(parent); ok {
			full := filepath.Join(append([]string{p}, parts...)...)
			e.cache.Put(key, full)
			return full, true
		}
		cur = parent
	}

	if len(parts) == 0 {
		return "", false
	}
	full := filepath.Join(parts...)
	e.cache.Put(key, full)
	return full, true
}
