/*
Package buffer relays scalar measurements between processing passes.

A Store holds one recorded series per key (slot, seam series, seam). Each
series is a pre-sized array of ranked values with a parallel array of
ranked positions. A Recorder fills the series of the current seam, one
element per trigger; a Player looks up the series of another seam and
interpolates it at the positions of its own triggers.

The store is shared by every recorder and player of a graph and may be
accessed from concurrently running graph branches. Each access takes the
store's lock for just that access.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package buffer

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'scanmaster.buffer'
func tracer() tracing.Trace {
	return tracing.Select("scanmaster.buffer")
}

// MaxSize caps the number of elements of one series.
const MaxSize = 100000

// Errors returned by store operations.
var (
	ErrBufferFull     = errors.New("buffer full")
	ErrNotInitialized = errors.New("buffer not initialized")
	ErrUnknownKey     = errors.New("no buffer for key")
)

// Key identifies a series.
type Key struct {
	Slot       uint
	SeamSeries uint
	Seam       uint
}

func (k Key) String() string {
	return fmt.Sprintf("(slot=%d,series=%d,seam=%d)", k.Slot, k.SeamSeries, k.Seam)
}

// Less orders keys by slot, then seam series, then seam.
func (k Key) Less(o Key) bool {
	if k.Slot != o.Slot {
		return k.Slot < o.Slot
	}
	if k.SeamSeries != o.SeamSeries {
		return k.SeamSeries < o.SeamSeries
	}
	return k.Seam < o.Seam
}

// Sample is a ranked value.
type Sample struct {
	Value float64
	Rank  int
}

type series struct {
	data    []Sample
	pos     []Sample
	written int // high-water mark
}

// Store maps keys to series.
type Store struct {
	mu     sync.Mutex
	series map[Key]*series
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{series: make(map[Key]*series)}
}

// Init creates, or replaces, the series for k with size zeroed elements.
// Sizes above MaxSize are capped. Handles to a replaced series keep
// seeing the old data.
func (s *Store) Init(k Key, size int) *Handle {
	if size > MaxSize {
		tracer().Infof("buffer size %d for %s capped at %d", size, k, MaxSize)
		size = MaxSize
	}
	if size < 0 {
		size = 0
	}
	ser := &series{
		data: make([]Sample, size),
		pos:  make([]Sample, size),
	}
	s.mu.Lock()
	s.series[k] = ser
	s.mu.Unlock()
	tracer().Debugf("init buffer %s with %d elements", k, size)
	return &Handle{store: s, key: k, ser: ser}
}

// Exists tells whether a series for k has been initialized.
func (s *Store) Exists(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.series[k]
	return ok
}

// Get returns a handle to the series for k.
func (s *Store) Get(k Key) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ser, ok := s.series[k]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownKey, k)
	}
	return &Handle{store: s, key: k, ser: ser}, nil
}

// Keys returns all keys in ascending order.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.series))
	for k := range s.series {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Len is the number of series in the store.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.series)
}

// Clear drops every series.
func (s *Store) Clear() {
	s.mu.Lock()
	clear(s.series)
	s.mu.Unlock()
}

// --- Handles ---------------------------------------------------------------

// Handle gives access to one series.
type Handle struct {
	store *Store
	key   Key
	ser   *series
}

// Key of the series.
func (h *Handle) Key() Key {
	return h.key
}

// Size is the number of pre-allocated elements.
func (h *Handle) Size() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.ser.data)
}

// Len is the number of elements written so far (the high-water mark).
func (h *Handle) Len() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.ser.written
}

// Write stores element i.
func (h *Handle) Write(i int, data, pos Sample) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if i < 0 || i >= len(h.ser.data) {
		return fmt.Errorf("%w: index %d, size %d of %s", ErrBufferFull, i, len(h.ser.data), h.key)
	}
	h.ser.data[i] = data
	h.ser.pos[i] = pos
	h.ser.written = max(h.ser.written, i+1)
	return nil
}

// At returns element i. ok is false if i is beyond the written elements.
func (h *Handle) At(i int) (data, pos Sample, ok bool) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if i < 0 || i >= h.ser.written {
		return Sample{}, Sample{}, false
	}
	return h.ser.data[i], h.ser.pos[i], true
}

// Search returns the index of the first written element at or after from
// whose position is not below q, or -1.
func (h *Handle) Search(from int, q float64) int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	for i := max(from, 0); i < h.ser.written; i++ {
		if h.ser.pos[i].Value >= q {
			return i
		}
	}
	return -1
}

// Snapshot copies the written elements.
func (h *Handle) Snapshot() (data, pos []Sample) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	n := h.ser.written
	data = append([]Sample(nil), h.ser.data[:n]...)
	pos = append([]Sample(nil), h.ser.pos[:n]...)
	return data, pos
}
