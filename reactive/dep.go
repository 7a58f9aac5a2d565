package reactive

import (
	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

// Dep is the subscriber list of a single instrumented property.
type Dep struct {
	id   uint64
	path string

	// subs keeps subscription order, members dedupes it.
	subs    []*Watcher
	members mapset.Set[*Watcher]
}

func newDep(path string) *Dep {
	return &Dep{
		id:      xxhash.Sum64String(path),
		path:    path,
		members: mapset.NewThreadUnsafeSet[*Watcher](),
	}
}

// ID is a stable hash of the property path.
func (d *Dep) ID() uint64 { return d.id }

// Path is the dotted path of the property at instrumentation time.
func (d *Dep) Path() string { return d.path }

// Len returns the number of subscribers.
func (d *Dep) Len() int { return len(d.subs) }

// Subscribers returns the subscribers in subscription order.
func (d *Dep) Subscribers() []*Watcher {
	out := make([]*Watcher, len(d.subs))
	copy(out, d.subs)
	return out
}

// depend records w as a subscriber if it is currently evaluating.
func (d *Dep) depend(w *Watcher) {
	if w == nil || !w.tracking {
		return
	}
	w.newDeps.Add(d)
	if d.members.Contains(w) {
		return
	}
	d.members.Add(w)
	d.subs = append(d.subs, w)
}

func (d *Dep) removeSub(w *Watcher) {
	if !d.members.Contains(w) {
		return
	}
	d.members.Remove(w)
	for i, sub := range d.subs {
		if sub == w {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Notify updates every subscriber in subscription order.
func (d *Dep) Notify() {
	if len(d.subs) == 0 {
		return
	}
	for _, w := range d.Subscribers() {
		w.update()
	}
}
