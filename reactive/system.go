package reactive

type OnErrorFunc func(w *Watcher, err error)

// Handle is a generation-checked reference to a watcher slot.
type Handle uint64

func makeHandle(idx, gen uint32) Handle { return Handle(uint64(gen)<<32 | uint64(idx)) }

func (h Handle) index() uint32      { return uint32(h) }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

type slot struct {
	w   *Watcher
	gen uint32
}

// System owns every watcher created against a store. It is not safe for
// concurrent use; all writes and notifications run on the caller's goroutine.
type System struct {
	slots   []slot
	free    []uint32
	live    int
	onError OnErrorFunc
}

func NewSystem(onError OnErrorFunc) *System {
	return &System{onError: onError}
}

func (s *System) alloc(w *Watcher) Handle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		// generation starts at 1 so the zero Handle is never valid
		s.slots = append(s.slots, slot{gen: 1})
	}
	s.slots[idx].w = w
	s.live++
	return makeHandle(idx, s.slots[idx].gen)
}

// Lookup returns the live watcher behind h.
func (s *System) Lookup(h Handle) (*Watcher, bool) {
	idx := h.index()
	if int(idx) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[idx]
	if sl.w == nil || sl.gen != h.generation() {
		return nil, false
	}
	return sl.w, true
}

// Revoke removes the watcher from every Dep it is subscribed to. It reports
// false when h is stale or unknown.
func (s *System) Revoke(h Handle) bool {
	w, ok := s.Lookup(h)
	if !ok {
		return false
	}
	w.unsubscribeAll()
	w.stopped = true

	idx := h.index()
	s.slots[idx].w = nil
	s.slots[idx].gen++
	s.free = append(s.free, idx)
	s.live--
	return true
}

// Len is the number of live watchers.
func (s *System) Len() int { return s.live }

// Each calls fn for every live watcher in slot order.
func (s *System) Each(fn func(w *Watcher)) {
	for _, sl := range s.slots {
		if sl.w != nil {
			fn(sl.w)
		}
	}
}

func (s *System) report(w *Watcher, err error) {
	if s.onError != nil {
		s.onError(w, err)
	}
}
