package visited

import (
	"errors"
	"fmt"
	"os"
	"sync"

	bloom "github.com/bits-and-blooms/bloom/v3"
	mmap "github.com/edsrzf/mmap-go"
)

// Set is a job's in-memory record of which URLs it has already fetched. It
// is exact: within a single job a URL is fetched at most once, so
// membership can never depend on a probabilistic structure.
//
// When an accelerator is attached, Contains consults it first: a bloom
// filter has no false negatives, so a "definitely absent" answer can be
// trusted without touching the exact map. A "maybe present" answer falls
// through to the exact map, which is the one source of truth.
type Set struct {
	mu    sync.RWMutex
	exact map[string]struct{}
	accel *accelerator
}

// NewSet returns a Set backed only by an exact in-memory map. Fine for
// jobs bounded to a modest number of URLs.
func NewSet() *Set {
	return &Set{exact: make(map[string]struct{})}
}

// NewAcceleratedSet returns a Set fronted by a bloom filter that is held in
// memory and periodically copied to a memory-mapped temp file. The exact
// map remains authoritative for membership and still grows with every URL
// added, so the filter does not reduce the Set's memory use.
func NewAcceleratedSet() (*Set, error) {
	accel, err := newAccelerator()
	if err != nil {
		return nil, err
	}
	return &Set{exact: make(map[string]struct{}), accel: accel}, nil
}

// Contains reports whether url has already been recorded.
func (s *Set) Contains(url string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accel != nil && !s.accel.mayContain(url) {
		return false
	}
	_, ok := s.exact[url]
	return ok
}

// Add records url as visited.
func (s *Set) Add(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exact[url] = struct{}{}
	if s.accel != nil {
		s.accel.add(url)
	}
}

// VisitIfNew atomically checks membership and adds url if absent, returning
// true when url was new. The crawl loop itself uses Contains and Add.
func (s *Set) VisitIfNew(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accel == nil {
		if _, ok := s.exact[url]; ok {
			return false
		}
		s.exact[url] = struct{}{}
		return true
	}

	if s.accel.mayContain(url) {
		if _, ok := s.exact[url]; ok {
			return false
		}
	}
	s.exact[url] = struct{}{}
	s.accel.add(url)
	return true
}

// Len returns the number of exactly-recorded URLs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exact)
}

// Close releases the accelerator's memory-mapped backing file, if any.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accel == nil {
		return nil
	}
	return s.accel.close()
}

// accelerator is a disk-backed bloom filter used purely as a negative
// fast-path in front of Set's exact map.
type accelerator struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mapped    mmap.MMap
	tmpPath   string
	count     uint64
	syncEvery uint64
}

func newAccelerator() (*accelerator, error) {
	filter := bloom.NewWithEstimates(100_000, 0.001)

	tmpFile, err := os.CreateTemp("", "webdex-visited-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create accelerator temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	size := filter.Cap()
	if err := tmpFile.Truncate(int64(size)); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("truncate accelerator temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("mmap accelerator temp file: %w", err)
	}

	data, err := filter.MarshalBinary()
	if err != nil {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}
	if len(data) > len(mapped) {
		_ = mapped.Unmap()
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(mapped))
	}
	copy(mapped, data)

	return &accelerator{
		filter:    filter,
		file:      tmpFile,
		mapped:    mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

func (a *accelerator) mayContain(url string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.filter.TestString(url)
}

func (a *accelerator) add(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.filter.AddString(url)
	a.count++
	if a.count >= a.syncEvery {
		a.flushLocked()
	}
}

func (a *accelerator) flushLocked() {
	data, err := a.filter.MarshalBinary()
	if err != nil || len(data) > len(a.mapped) {
		return
	}
	copy(a.mapped, data)
	_ = a.mapped.Flush()
	a.count = 0
}

func (a *accelerator) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.count > 0 {
		a.flushLocked()
	}
	if a.mapped != nil {
		if err := a.mapped.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		a.mapped = nil
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		a.file = nil
	}
	if a.tmpPath != "" {
		if err := os.Remove(a.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		a.tmpPath = ""
	}
	if len(errs) > 0 {
		return fmt.Errorf("close accelerator: %w", errors.Join(errs...))
	}
	return nil
}
