package reactive

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// Getter evaluates a binding. Reads made with w as the subscriber are
// recorded as dependencies of w.
type Getter func(w *Watcher) (any, error)

// Callback receives the new and previous value of a watcher.
type Callback func(newValue, oldValue any)

// Watcher is one binding's unit of re-evaluation.
type Watcher struct {
	sys    *System
	handle Handle
	get    Getter
	cb     Callback
	value  any

	deps    mapset.Set[*Dep]
	newDeps mapset.Set[*Dep]

	// tracking is set only while the getter runs, busy also covers the callback.
	tracking bool
	busy     bool
	stopped  bool
}

// Watch creates a watcher and performs its first guarded evaluation. The
// result becomes the baseline value; the callback is not invoked.
func (s *System) Watch(get Getter, cb Callback) (*Watcher, error) {
	w := &Watcher{
		sys:  s,
		get:  get,
		cb:   cb,
		deps: mapset.NewThreadUnsafeSet[*Dep](),
	}
	v, err := w.evaluate()
	if err != nil {
		w.unsubscribeAll()
		return nil, err
	}
	w.value = v
	w.handle = s.alloc(w)
	return w, nil
}

// Value is the last observed value.
func (w *Watcher) Value() any { return w.value }

// Handle identifies the watcher inside its System.
func (w *Watcher) Handle() Handle { return w.handle }

// Deps returns the dependencies captured by the last evaluation.
func (w *Watcher) Deps() []*Dep { return w.deps.ToSlice() }

// Stopped reports whether the watcher was revoked.
func (w *Watcher) Stopped() bool { return w.stopped }

// Stop detaches the watcher from every Dep and frees its handle.
func (w *Watcher) Stop() {
	w.sys.Revoke(w.handle)
}

func (w *Watcher) evaluate() (v any, err error) {
	w.busy = true
	w.tracking = true
	w.newDeps = mapset.NewThreadUnsafeSet[*Dep]()
	defer func() {
		w.tracking = false
		w.busy = false

		// Drop subscriptions the evaluation no longer reached.
		stale := w.deps.Difference(w.newDeps)
		stale.Each(func(d *Dep) bool {
			d.removeSub(w)
			return false
		})
		w.deps, w.newDeps = w.newDeps, nil
	}()
	return w.get(w)
}

func (w *Watcher) update() {
	if w.stopped {
		return
	}
	if w.busy {
		w.sys.report(w, fmt.Errorf("watcher %d: %w", w.handle, ErrReentrant))
		return
	}

	v, err := w.evaluate()
	if err != nil {
		w.sys.report(w, err)
		return
	}
	if sameValue(v, w.value) {
		return
	}

	old := w.value
	w.value = v
	if w.cb == nil {
		return
	}
	w.busy = true
	defer func() { w.busy = false }()
	w.cb(v, old)
}

func (w *Watcher) unsubscribeAll() {
	w.deps.Each(func(d *Dep) bool {
		d.removeSub(w)
		return false
	})
	w.deps.Clear()
}
