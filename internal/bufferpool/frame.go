package bufferpool

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/relbuf/pagecache/internal/disk"
)

// PageSize is the fixed size in bytes of every page held in a frame.
const PageSize = disk.PageSize

// InvalidPageID marks a frame as not holding any page.
const InvalidPageID uint32 = disk.InvalidPageID

// frame is one fixed-size slot in the pool. Pin and dirty are owned by the
// pool's own mutex; Latch is the per-page reader/writer lock acquired only
// by the guard layer, after the pool mutex has already been released.
type frame struct {
	pageID   uint32
	data     [PageSize]byte
	pinCount atomic.Int32
	dirty    bool
	latch    sync.RWMutex
}

func newFrame() *frame {
	return &frame{pageID: InvalidPageID}
}

func (f *frame) reset() {
	f.pageID = InvalidPageID
	f.dirty = false
	f.pinCount.Store(0)
	for i := range f.data {
		f.data[i] = 0
	}
}
