package resource

// Handle is a stable reference into a Slots arena. A handle stays valid until its entry is removed;
// after that the slot may be reused under a new generation and the old handle resolves to nothing.
type Handle struct {
	Index      uint32
	Generation uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Slots is a generational arena. Removing an entry never moves other entries, so per-entry state kept
// elsewhere and keyed by Index stays attached to the right entry.
type Slots[T any] struct {
	entries []slot[T]
	free    []uint32
	count   int
}

// Insert stores value in the lowest free slot and returns its handle.
func (s *Slots[T]) Insert(value T) Handle {
	var idx uint32
	if n := len(s.free); n > 0 {
		// reuse the lowest free index
		best := 0
		for i := 1; i < n; i++ {
			if s.free[i] < s.free[best] {
				best = i
			}
		}
		idx = s.free[best]
		s.free = append(s.free[:best], s.free[best+1:]...)
	} else {
		idx = uint32(len(s.entries))
		s.entries = append(s.entries, slot[T]{})
	}
	e := &s.entries[idx]
	e.generation++
	e.value = value
	e.live = true
	s.count++
	return Handle{Index: idx, Generation: e.generation}
}

// Get returns the value for h and whether h is still live.
func (s *Slots[T]) Get(h Handle) (T, bool) {
	if !s.Valid(h) {
		var zero T
		return zero, false
	}
	return s.entries[h.Index].value, true
}

// Valid reports whether h names a live entry.
func (s *Slots[T]) Valid(h Handle) bool {
	return int(h.Index) < len(s.entries) && s.entries[h.Index].live && s.entries[h.Index].generation == h.Generation
}

// Remove deletes the entry for h and returns its value. Stale handles are ignored.
func (s *Slots[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !s.Valid(h) {
		return zero, false
	}
	e := &s.entries[h.Index]
	v := e.value
	e.value = zero
	e.live = false
	s.free = append(s.free, h.Index)
	s.count--
	return v, true
}

// Each calls fn for every live entry in index order until fn returns false.
func (s *Slots[T]) Each(fn func(h Handle, v T) bool) {
	for i := range s.entries {
		e := &s.entries[i]
		if !e.live {
			continue
		}
		if !fn(Handle{Index: uint32(i), Generation: e.generation}, e.value) {
			return
		}
	}
}

// Len returns the number of live entries.
func (s *Slots[T]) Len() int { return s.count }

// Span returns one past the highest index ever used, the size per-index side tables need.
func (s *Slots[T]) Span() int { return len(s.entries) }
