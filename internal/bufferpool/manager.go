// Package bufferpool implements the buffer pool manager: a fixed set of
// frames that cache disk pages in memory, backed by an LRU-K replacer for
// victim selection and exposed to callers only through scoped page guards.
package bufferpool

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/relbuf/pagecache/internal/config"
	"github.com/relbuf/pagecache/internal/disk"
	"github.com/relbuf/pagecache/internal/logmgr"
	"github.com/relbuf/pagecache/internal/replacer"
)

var logDebugPrefix = "bufferpool: "

// Manager is the buffer pool manager. All locking state lives behind mu;
// every public method that needs the lock takes it once, and the shared
// eviction and write-back steps live in private *Locked helpers that assume
// mu is held, so internal call paths (e.g. NewPage evicting a victim and
// flushing it) never need to re-acquire a lock they already hold.
type Manager struct {
	mu        sync.Mutex
	frames    []*frame
	pageTable map[uint32]int
	freeList  []int

	replacer *replacer.LRUK
	disk     disk.Manager
	log      logmgr.Manager
}

// NewManager constructs a buffer pool with the given frame capacity and
// LRU-K history depth k, backed by disk and an optional log manager (nil is
// valid: the flush-before-write-back hook is simply skipped).
func NewManager(capacity, k int, diskMgr disk.Manager, log logmgr.Manager) *Manager {
	frames := make([]*frame, capacity)
	freeList := make([]int, capacity)
	for i := 0; i < capacity; i++ {
		frames[i] = newFrame()
		freeList[i] = capacity - 1 - i // pop from the back, frame 0 first
	}
	return &Manager{
		frames:    frames,
		pageTable: make(map[uint32]int, capacity),
		freeList:  freeList,
		replacer:  replacer.New(capacity, k),
		disk:      diskMgr,
		log:       log,
	}
}

// NewManagerFromConfig is the config-driven constructor: it opens the disk
// manager (and log manager, if configured) and builds a Manager from it.
func NewManagerFromConfig(cfg *config.Config) (*Manager, error) {
	d, err := disk.Open(cfg.BufferPool.DataFile)
	if err != nil {
		return nil, fmt.Errorf("bufferpool: open disk manager: %w", err)
	}
	var log logmgr.Manager
	if cfg.BufferPool.LogFile != "" {
		l, err := logmgr.Open(cfg.BufferPool.LogFile)
		if err != nil {
			return nil, fmt.Errorf("bufferpool: open log manager: %w", err)
		}
		log = l
	}
	return NewManager(cfg.BufferPool.Capacity, cfg.BufferPool.K, d, log), nil
}

// Capacity returns the number of frames in the pool.
func (m *Manager) Capacity() int {
	return len(m.frames)
}

// findVictimLocked returns a frame index to use for a new page, first from
// the free list, then by asking the replacer to evict. The caller must hold
// mu. If the chosen victim held a dirty page, it is flushed before reuse.
func (m *Manager) findVictimLocked() (int, error) {
	if n := len(m.freeList); n > 0 {
		id := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return id, nil
	}

	frameID, ok := m.replacer.Evict()
	if !ok {
		return 0, ErrPoolExhausted
	}
	victim := m.frames[frameID]
	if victim.dirty {
		if err := m.flushFrameLocked(frameID); err != nil {
			return 0, fmt.Errorf("bufferpool: flush victim frame %d: %w", frameID, err)
		}
	}
	delete(m.pageTable, victim.pageID)
	if err := m.replacer.Remove(frameID); err != nil {
		return 0, err
	}
	victim.reset()
	return frameID, nil
}

// flushFrameLocked writes the frame's current bytes to disk unconditionally,
// clearing the dirty bit, whether or not the page was actually dirty. The
// caller must hold mu.
func (m *Manager) flushFrameLocked(frameID int) error {
	f := m.frames[frameID]
	if m.log != nil {
		if err := m.log.Flush(); err != nil {
			return fmt.Errorf("bufferpool: log flush before page write-back: %w", err)
		}
	}
	if err := m.disk.WritePage(f.pageID, f.data[:]); err != nil {
		return fmt.Errorf("bufferpool: write page %d: %w", f.pageID, err)
	}
	f.dirty = false
	return nil
}

// NewPage allocates a brand-new page id, assigns it a frame (evicting a
// victim if necessary), pins it once, and returns its id and frame index.
func (m *Manager) NewPage() (pageID uint32, frameID int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, err = m.findVictimLocked()
	if err != nil {
		return 0, 0, err
	}

	pageID = m.disk.AllocatePage()
	f := m.frames[frameID]
	f.pageID = pageID
	f.pinCount.Store(1)

	m.pageTable[pageID] = frameID
	if err := m.replacer.RecordAccess(frameID); err != nil {
		return 0, 0, err
	}
	if err := m.replacer.SetEvictable(frameID, false); err != nil {
		return 0, 0, err
	}
	slog.Debug(logDebugPrefix+"new page", "pageID", pageID, "frameID", frameID)
	return pageID, frameID, nil
}

// FetchPage pins pageID, loading it from disk into a frame if it is not
// already resident (evicting a victim if necessary). Every fetch, hit or
// miss, records an access with the replacer.
func (m *Manager) FetchPage(pageID uint32) (frameID int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageTable[pageID]; ok {
		f := m.frames[fid]
		f.pinCount.Inc()
		if err := m.replacer.RecordAccess(fid); err != nil {
			return 0, err
		}
		if err := m.replacer.SetEvictable(fid, false); err != nil {
			return 0, err
		}
		slog.Debug(logDebugPrefix+"fetch hit", "pageID", pageID, "frameID", fid)
		return fid, nil
	}

	frameID, err = m.findVictimLocked()
	if err != nil {
		return 0, err
	}
	f := m.frames[frameID]
	if err := m.disk.ReadPage(pageID, f.data[:]); err != nil {
		m.freeList = append(m.freeList, frameID)
		return 0, fmt.Errorf("bufferpool: read page %d: %w", pageID, err)
	}
	f.pageID = pageID
	f.pinCount.Store(1)

	m.pageTable[pageID] = frameID
	if err := m.replacer.RecordAccess(frameID); err != nil {
		return 0, err
	}
	if err := m.replacer.SetEvictable(frameID, false); err != nil {
		return 0, err
	}
	slog.Debug(logDebugPrefix+"fetch miss", "pageID", pageID, "frameID", frameID)
	return frameID, nil
}

// UnpinPage decrements pageID's pin count and ORs in isDirty. Once the pin
// count reaches zero the frame becomes evictable.
func (m *Manager) UnpinPage(pageID uint32, isDirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return ErrNotResident
	}
	f := m.frames[frameID]
	if f.pinCount.Load() <= 0 {
		return ErrNotPinned
	}
	if isDirty {
		f.dirty = true
	}
	if f.pinCount.Dec() == 0 {
		if err := m.replacer.SetEvictable(frameID, true); err != nil {
			return err
		}
	}
	return nil
}

// FlushPage writes pageID's frame to disk unconditionally, clearing its
// dirty bit, whether or not the page was actually dirty.
func (m *Manager) FlushPage(pageID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return ErrNotResident
	}
	return m.flushFrameLocked(frameID)
}

// flushTarget is a snapshot of one resident frame's bytes taken under the
// pool lock, so the actual disk write can happen without holding it.
type flushTarget struct {
	frameID int
	pageID  uint32
	data    []byte
}

// FlushAllPages writes every resident page to disk unconditionally. Writes
// for distinct pages are independent, so they are issued concurrently with
// a conc.WaitGroup; any per-page errors are aggregated with multierr rather
// than aborting on the first failure, so a single bad page never prevents
// the rest from being flushed.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	if m.log != nil {
		if err := m.log.Flush(); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("bufferpool: log flush before flush-all: %w", err)
		}
	}
	targets := make([]flushTarget, 0, len(m.pageTable))
	for pageID, frameID := range m.pageTable {
		f := m.frames[frameID]
		buf := make([]byte, PageSize)
		copy(buf, f.data[:])
		targets = append(targets, flushTarget{frameID: frameID, pageID: pageID, data: buf})
	}
	m.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  error
	)
	var wg conc.WaitGroup
	for _, t := range targets {
		t := t
		wg.Go(func() {
			if err := m.disk.WritePage(t.pageID, t.data); err != nil {
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("bufferpool: flush page %d: %w", t.pageID, err))
				errMu.Unlock()
				return
			}
			m.mu.Lock()
			if f, ok := m.pageTable[t.pageID]; ok {
				m.frames[f].dirty = false
			}
			m.mu.Unlock()
		})
	}
	wg.Wait()
	return errs
}

// DeletePage removes pageID from the pool if it is resident and unpinned,
// returning its frame to the free list. Deleting a page that is not
// resident is a no-op success, matching "delete what isn't there" being
// harmless. Deleting a pinned page fails with ErrPagePinned.
func (m *Manager) DeletePage(pageID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	frameID, ok := m.pageTable[pageID]
	if !ok {
		return nil
	}
	f := m.frames[frameID]
	if f.pinCount.Load() > 0 {
		return ErrPagePinned
	}

	delete(m.pageTable, pageID)
	if err := m.replacer.Remove(frameID); err != nil {
		return err
	}
	if err := m.disk.DeallocatePage(pageID); err != nil {
		return fmt.Errorf("bufferpool: deallocate page %d: %w", pageID, err)
	}
	f.reset()
	m.freeList = append(m.freeList, frameID)
	slog.Debug(logDebugPrefix+"delete page", "pageID", pageID, "frameID", frameID)
	return nil
}
