// Package replacer implements the LRU-K eviction policy used by the buffer
// pool to choose victim frames.
package replacer

import (
	"container/list"
	"errors"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

var (
	logDebugPrefix = "replacer: "

	// ErrInvalidFrameID is returned when a frame id outside [0, capacity) is
	// passed to any replacer method.
	ErrInvalidFrameID = errors.New("replacer: invalid frame id")
)

// record tracks the bounded access history for a single frame.
type record struct {
	history   *list.List // front = most recent access timestamp (int64)
	evictable bool
}

// LRUK is an LRU-K replacer: among evictable frames it picks the one whose
// K-th most recent access is furthest in the past (backward k-distance),
// treating frames with fewer than K accesses as having infinite distance and
// breaking ties among those by earliest first access (classic LRU on the
// less-than-K-observed set).
//
// Every method is guarded by its own mutex; LRUK never calls back into the
// buffer pool, so it may safely be called while the pool's own lock is held.
type LRUK struct {
	mu        sync.Mutex
	k         int
	numFrames int
	clock     atomic.Int64 // monotonic logical timestamp, local to this replacer
	curSize   int
	frames    map[int]*record
}

// New creates an LRU-K replacer that tracks frames in [0, numFrames) with
// history depth k.
func New(numFrames, k int) *LRUK {
	return &LRUK{
		k:         k,
		numFrames: numFrames,
		frames:    make(map[int]*record, numFrames),
	}
}

func (r *LRUK) checkFrameID(frameID int) error {
	if frameID < 0 || frameID >= r.numFrames {
		return ErrInvalidFrameID
	}
	return nil
}

// RecordAccess registers that frameID was accessed at the current timestamp.
// It creates tracking state for frameID on first use; new frames default to
// non-evictable, matching the buffer pool's pin-then-record-then-possibly-
// unpin-then-set-evictable lifecycle.
func (r *LRUK) RecordAccess(frameID int) error {
	if err := r.checkFrameID(frameID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.frames[frameID]
	if !ok {
		rec = &record{history: list.New()}
		r.frames[frameID] = rec
	}
	ts := r.clock.Inc()
	rec.history.PushFront(ts)
	for rec.history.Len() > r.k {
		rec.history.Remove(rec.history.Back())
	}
	return nil
}

// SetEvictable marks frameID as evictable or not. Calling it on a frame that
// has never been recorded is a silent no-op: the buffer pool only calls this
// on frames it has pinned (and therefore already recorded), so an untracked
// frame here means "nothing to do yet" rather than an error.
func (r *LRUK) SetEvictable(frameID int, evictable bool) error {
	if err := r.checkFrameID(frameID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.frames[frameID]
	if !ok {
		return nil
	}
	if rec.evictable == evictable {
		return nil
	}
	rec.evictable = evictable
	if evictable {
		r.curSize++
	} else {
		r.curSize--
	}
	return nil
}

// distanceOf returns the backward k-distance for rec: the gap between now and
// the k-th most recent access, or the maximum possible value when fewer than
// k accesses have been recorded (the "+inf" case from the paper).
func distanceOf(rec *record, k int, now int64) (dist int64, earliest int64) {
	if rec.history.Len() < k {
		back := rec.history.Back()
		earliest = back.Value.(int64)
		return int64(^uint64(0) >> 1), earliest // max int64: unbounded distance
	}
	kth := rec.history.Back().Value.(int64)
	return now - kth, kth
}

// Evict selects and removes a victim frame: the evictable frame with the
// largest backward k-distance, ties broken by earliest overall timestamp,
// then by smallest frame id. Returns ok == false when no frame is evictable.
func (r *LRUK) Evict() (frameID int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Load()
	var (
		bestID       = -1
		bestDist     int64 = -1
		bestEarliest int64
	)
	for id, rec := range r.frames {
		if !rec.evictable {
			continue
		}
		dist, earliest := distanceOf(rec, r.k, now)
		switch {
		case dist > bestDist:
			bestID, bestDist, bestEarliest = id, dist, earliest
		case dist == bestDist && earliest < bestEarliest:
			bestID, bestDist, bestEarliest = id, dist, earliest
		case dist == bestDist && earliest == bestEarliest && id < bestID:
			bestID, bestDist, bestEarliest = id, dist, earliest
		}
	}
	if bestID == -1 {
		return 0, false
	}
	delete(r.frames, bestID)
	r.curSize--
	slog.Debug(logDebugPrefix+"evicted frame", "frameID", bestID)
	return bestID, true
}

// Remove discards all tracking state for an evictable frameID. Removing a
// frame that is currently marked non-evictable is a misuse the buffer pool
// should never trigger (the pool deletes a page only once its pin count is
// zero, by which point the frame is evictable); it is treated as a no-op
// rather than an error, leaving the non-evictable record in place.
func (r *LRUK) Remove(frameID int) error {
	if err := r.checkFrameID(frameID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.frames[frameID]
	if !ok {
		return nil
	}
	if !rec.evictable {
		return nil
	}
	r.curSize--
	delete(r.frames, frameID)
	return nil
}

// Size returns the number of currently evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.curSize
}
