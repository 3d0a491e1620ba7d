package bufferpool

import "errors"

var (
	// ErrPoolExhausted is returned when every frame is pinned and no victim
	// can be evicted to satisfy a NewPage or FetchPage request.
	ErrPoolExhausted = errors.New("bufferpool: no free frame and no evictable victim")

	// ErrNotResident is returned by operations (UnpinPage, FlushPage) that
	// require a page already present in the page table. DeletePage of a
	// non-resident page succeeds instead.
	ErrNotResident = errors.New("bufferpool: page is not resident")

	// ErrPagePinned is returned when DeletePage targets a page with a
	// nonzero pin count.
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrNotPinned is returned by UnpinPage when the page is resident but
	// its pin count is already zero, so there is nothing to decrement.
	ErrNotPinned = errors.New("bufferpool: page is not pinned")

	// ErrInvalidFrameID names a frame id outside [0, capacity). The Manager
	// does not return it: an out-of-range frame id reported by the
	// replacer is propagated as replacer.ErrInvalidFrameID.
	ErrInvalidFrameID = errors.New("bufferpool: invalid frame id")
)
