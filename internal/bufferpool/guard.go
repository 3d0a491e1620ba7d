package bufferpool

// latchMode records which latch (if any) a guard holds over its frame, so
// that a single Drop/Take/AssignFrom implementation on BasicGuard can
// release or transfer it correctly regardless of which guard type wraps it.
type latchMode int

const (
	latchNone latchMode = iota
	latchRead
	latchWrite
)

// BasicGuard is the minimal RAII-style handle on a pinned page: it
// guarantees the page stays pinned (and therefore cannot be evicted) until
// Drop is called. Only an explicit Drop releases the pin: a guard that is
// discarded without Drop leaves the page pinned. A BasicGuard obtained via FetchPageBasic/NewPageGuarded does
// not hold the page's latch; ReadGuard and WriteGuard embed a BasicGuard
// that additionally holds one, tracked via mode so Drop releases it.
type BasicGuard struct {
	mgr     *Manager
	pageID  uint32
	frame   *frame
	dirty   bool
	mode    latchMode
	dropped bool
}

// FetchPageBasic pins pageID and returns a guard over it, without acquiring
// the page's latch.
func (m *Manager) FetchPageBasic(pageID uint32) (*BasicGuard, error) {
	frameID, err := m.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	return &BasicGuard{mgr: m, pageID: pageID, frame: m.frames[frameID]}, nil
}

// NewPageGuarded allocates a new page and returns a guard over it.
func (m *Manager) NewPageGuarded() (*BasicGuard, uint32, error) {
	pageID, frameID, err := m.NewPage()
	if err != nil {
		return nil, 0, err
	}
	return &BasicGuard{mgr: m, pageID: pageID, frame: m.frames[frameID]}, pageID, nil
}

// PageID returns the id of the guarded page.
func (g *BasicGuard) PageID() uint32 { return g.pageID }

// Data returns the guarded page's raw bytes. The caller must not retain the
// slice past Drop.
func (g *BasicGuard) Data() []byte { return g.frame.data[:] }

// MarkDirty flags the page as modified. Drop passes the flag to the pool
// when unpinning; the bytes reach disk only when the page is later flushed
// or evicted.
func (g *BasicGuard) MarkDirty() { g.dirty = true }

// releaseLatch drops whatever latch this guard holds over its frame, per
// its mode. The caller must only call this once, before the guard is
// marked dropped.
func (g *BasicGuard) releaseLatch() {
	switch g.mode {
	case latchRead:
		g.frame.latch.RUnlock()
	case latchWrite:
		g.frame.latch.Unlock()
	}
}

// Drop releases any latch held by this guard, then the pin. It is
// idempotent: calling Drop more than once, or on an already-moved-from
// guard, is a no-op. This single implementation backs BasicGuard,
// ReadGuard, and WriteGuard alike — the latch release is determined by
// mode, not by guard type.
func (g *BasicGuard) Drop() {
	if g == nil || g.dropped {
		return
	}
	g.dropped = true
	g.releaseLatch()
	_ = g.mgr.UnpinPage(g.pageID, g.dirty)
}

// Take transfers ownership of the pin (and any held latch) out of g into a
// new guard, leaving g empty (as if already dropped, but without releasing
// the pin or latch).
func (g *BasicGuard) Take() *BasicGuard {
	if g == nil || g.dropped {
		return &BasicGuard{dropped: true}
	}
	moved := &BasicGuard{mgr: g.mgr, pageID: g.pageID, frame: g.frame, dirty: g.dirty, mode: g.mode}
	g.mgr, g.frame, g.mode = nil, nil, latchNone
	g.dropped = true
	return moved
}

// AssignFrom drops whatever g currently holds (including any latch) and
// absorbs src's pin and latch, leaving src empty. Self-assignment is a
// no-op.
func (g *BasicGuard) AssignFrom(src *BasicGuard) {
	if g == src {
		return
	}
	g.Drop()
	moved := src.Take()
	g.mgr, g.pageID, g.frame, g.dirty, g.mode, g.dropped = moved.mgr, moved.pageID, moved.frame, moved.dirty, moved.mode, moved.dropped
}

// ReadGuard is a BasicGuard that additionally holds the page's latch for
// reading, for the lifetime of the guard.
type ReadGuard struct {
	BasicGuard
}

// FetchPageRead pins pageID and acquires its latch for reading.
func (m *Manager) FetchPageRead(pageID uint32) (*ReadGuard, error) {
	frameID, err := m.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	f := m.frames[frameID]
	f.latch.RLock()
	return &ReadGuard{BasicGuard{mgr: m, pageID: pageID, frame: f, mode: latchRead}}, nil
}

// Take transfers ownership of the pin and held read latch out of g into a
// new ReadGuard, leaving g empty. The latch is transferred, not
// re-acquired.
func (g *ReadGuard) Take() *ReadGuard {
	return &ReadGuard{*g.BasicGuard.Take()}
}

// AssignFrom drops whatever g currently holds (releasing its latch) and
// absorbs src's pin and read latch, leaving src empty. Self-assignment is a
// no-op.
func (g *ReadGuard) AssignFrom(src *ReadGuard) {
	if g == src {
		return
	}
	g.Drop()
	g.BasicGuard = src.Take().BasicGuard
}

// WriteGuard is a BasicGuard that additionally holds the page's latch for
// writing, for the lifetime of the guard. Any access through a WriteGuard
// implicitly marks the page dirty.
type WriteGuard struct {
	BasicGuard
}

// FetchPageWrite pins pageID and acquires its latch for writing.
func (m *Manager) FetchPageWrite(pageID uint32) (*WriteGuard, error) {
	frameID, err := m.FetchPage(pageID)
	if err != nil {
		return nil, err
	}
	f := m.frames[frameID]
	f.latch.Lock()
	return &WriteGuard{BasicGuard{mgr: m, pageID: pageID, frame: f, dirty: true, mode: latchWrite}}, nil
}

// Take transfers ownership of the pin and held write latch out of g into a
// new WriteGuard, leaving g empty. The latch is transferred, not
// re-acquired.
func (g *WriteGuard) Take() *WriteGuard {
	return &WriteGuard{*g.BasicGuard.Take()}
}

// AssignFrom drops whatever g currently holds (releasing its latch) and
// absorbs src's pin and write latch, leaving src empty. Self-assignment is
// a no-op.
func (g *WriteGuard) AssignFrom(src *WriteGuard) {
	if g == src {
		return
	}
	g.Drop()
	g.BasicGuard = src.Take().BasicGuard
}
