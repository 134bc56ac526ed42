// Package session holds the single active retrieval pipeline.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"webqa/internal/domain"
)

// Info describes the indexing run that produced a pipeline.
type Info struct {
	Generation uint64    `json:"generation"`
	Collection string    `json:"collection"`
	URLs       []string  `json:"urls"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Handle is one published pipeline. Its closer runs once the handle has been
// replaced and every holder has released it.
type Handle struct {
	Pipeline domain.Pipeline
	Info     Info

	mu      sync.Mutex
	refs    int
	retired bool
	closer  func()
}

func (h *Handle) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return false
	}
	h.refs++
	return true
}

func (h *Handle) release() {
	h.mu.Lock()
	h.refs--
	done := h.retired && h.refs == 0
	h.mu.Unlock()
	if done {
		h.close()
	}
}

func (h *Handle) retire() {
	h.mu.Lock()
	h.retired = true
	done := h.refs == 0
	h.mu.Unlock()
	if done {
		h.close()
	}
}

func (h *Handle) close() {
	h.mu.Lock()
	c := h.closer
	h.closer = nil
	h.mu.Unlock()
	if c != nil {
		c()
	}
}

// Slot is the ActivePipeline: empty at start, then the last published pipeline.
type Slot struct {
	current    atomic.Pointer[Handle]
	publishMu  sync.Mutex
	generation uint64
}

func NewSlot() *Slot { return &Slot{} }

// Publish installs pipeline as the active one and retires the previous handle.
// The returned Info carries the assigned generation.
func (s *Slot) Publish(pipeline domain.Pipeline, info Info, closer func()) Info {
	s.publishMu.Lock()
	s.generation++
	info.Generation = s.generation
	h := &Handle{Pipeline: pipeline, Info: info, closer: closer}
	old := s.current.Swap(h)
	s.publishMu.Unlock()

	if old != nil {
		old.retire()
	}
	return info
}

// Acquire returns the active handle with a reference held. Call release when
// done. ok is false when nothing has been published.
func (s *Slot) Acquire() (h *Handle, release func(), ok bool) {
	for {
		h = s.current.Load()
		if h == nil {
			return nil, func() {}, false
		}
		if h.acquire() {
			var once sync.Once
			return h, func() { once.Do(h.release) }, true
		}
		// Retired between Load and acquire; a newer handle is already in place.
	}
}

// Status returns the active pipeline's info.
func (s *Slot) Status() (Info, bool) {
	h := s.current.Load()
	if h == nil {
		return Info{}, false
	}
	return h.Info, true
}

// Close retires the active handle.
func (s *Slot) Close() {
	if old := s.current.Swap(nil); old != nil {
		old.retire()
	}
}
