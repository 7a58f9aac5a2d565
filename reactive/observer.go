package reactive

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Observe instruments every property of data, at every nesting level, and
// returns the reactive root. Coverage is fixed here: keys added to data
// afterwards are not seen, and Set on an unknown key fails.
func Observe(data map[string]any) (*Object, error) {
	if data == nil {
		data = map[string]any{}
	}
	return newObserver().object("", data)
}

type observer struct {
	done   map[uintptr]any
	active map[uintptr]bool
}

func newObserver() *observer {
	return &observer{
		done:   map[uintptr]any{},
		active: map[uintptr]bool{},
	}
}

func (ob *observer) value(path string, v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		return ob.object(path, x)
	case []any:
		return ob.array(path, x)
	default:
		return v, nil
	}
}

func (ob *observer) object(path string, data map[string]any) (*Object, error) {
	id := reflect.ValueOf(data).Pointer()
	if ob.active[id] {
		return nil, fmt.Errorf("observe %q: %w", path, ErrCycle)
	}
	if o, ok := ob.done[id].(*Object); ok {
		return o, nil
	}
	ob.active[id] = true
	defer delete(ob.active, id)

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	o := &Object{
		path:  path,
		keys:  keys,
		props: make(map[string]*property, len(keys)),
		src:   id,
	}
	for _, k := range keys {
		p := joinPath(path, k)
		v, err := ob.value(p, data[k])
		if err != nil {
			return nil, err
		}
		o.props[k] = &property{value: v, dep: newDep(p)}
	}
	ob.done[id] = o
	return o, nil
}

func (ob *observer) array(path string, data []any) (*Array, error) {
	var id uintptr
	if len(data) > 0 {
		id = reflect.ValueOf(data).Pointer()
		if ob.active[id] {
			return nil, fmt.Errorf("observe %q: %w", path, ErrCycle)
		}
		if a, ok := ob.done[id].(*Array); ok && a.Len() == len(data) {
			return a, nil
		}
		ob.active[id] = true
		defer delete(ob.active, id)
	}

	a := &Array{path: path, items: make([]any, len(data)), src: id}
	for i, item := range data {
		v, err := ob.value(joinPath(path, strconv.Itoa(i)), item)
		if err != nil {
			return nil, err
		}
		a.items[i] = v
	}
	if id != 0 {
		ob.done[id] = a
	}
	return a, nil
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

type property struct {
	value    any
	dep      *Dep
	computed func(w *Watcher) (any, error)
}

// Object is an instrumented mapping. Every read through Get may subscribe a
// watcher and every effective write through Set notifies synchronously.
type Object struct {
	path  string
	keys  []string
	props map[string]*property
	// src is the identity of the map the object was built from.
	src uintptr
}

// Path is where the object sits relative to the store root.
func (o *Object) Path() string { return o.path }

// Keys returns the sorted data keys followed by computed keys in definition order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// IsComputed reports whether key is a derived property.
func (o *Object) IsComputed(key string) bool {
	p, ok := o.props[key]
	return ok && p.computed != nil
}

// Get returns the value of key. A non-nil w that is mid-evaluation is
// subscribed to the property; computed properties are re-run with w.
func (o *Object) Get(key string, w *Watcher) (any, error) {
	p, ok := o.props[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", joinPath(o.path, key), ErrUnknownProperty)
	}
	if p.computed != nil {
		return p.computed(w)
	}
	p.dep.depend(w)
	return p.value, nil
}

// Set writes key. Writing the value already held is a no-op. Plain maps and
// slices are instrumented before they are stored.
func (o *Object) Set(key string, v any) error {
	path := joinPath(o.path, key)
	p, ok := o.props[key]
	if !ok {
		return fmt.Errorf("set %q: %w", path, ErrUnknownProperty)
	}
	if p.computed != nil {
		return fmt.Errorf("set %q: %w", path, ErrReadOnly)
	}
	if sameValue(v, p.value) || builtFrom(p.value, v) {
		return nil
	}

	nv, err := newObserver().value(path, v)
	if err != nil {
		return err
	}
	if reaches(nv, o) {
		return fmt.Errorf("set %q: %w", path, ErrCycle)
	}
	p.value = nv
	p.dep.Notify()
	return nil
}

// DefineComputed adds a read-only property whose value is fn's result on
// every read. Nothing is cached.
func (o *Object) DefineComputed(key string, fn func(w *Watcher) (any, error)) error {
	if _, ok := o.props[key]; ok {
		return fmt.Errorf("computed %q: %w", joinPath(o.path, key), ErrDuplicateKey)
	}
	o.keys = append(o.keys, key)
	o.props[key] = &property{computed: fn}
	return nil
}

// Dep returns the registry of a data property.
func (o *Object) Dep(key string) (*Dep, bool) {
	p, ok := o.props[key]
	if !ok || p.computed != nil {
		return nil, false
	}
	return p.dep, true
}

// Raw returns a plain copy of the data properties.
func (o *Object) Raw() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		p := o.props[k]
		if p.computed != nil {
			continue
		}
		out[k] = raw(p.value)
	}
	return out
}

func (o *Object) String() string {
	b, err := json.Marshal(o.Raw())
	if err != nil {
		return fmt.Sprint(o.Raw())
	}
	return string(b)
}

// Walk visits the Dep of every data property reachable from o, depth first.
func (o *Object) Walk(fn func(d *Dep)) {
	walk(o, fn, map[any]bool{})
}

func walk(v any, fn func(d *Dep), seen map[any]bool) {
	switch x := v.(type) {
	case *Object:
		if seen[x] {
			return
		}
		seen[x] = true
		for _, k := range x.keys {
			p := x.props[k]
			if p.computed != nil {
				continue
			}
			fn(p.dep)
			walk(p.value, fn, seen)
		}
	case *Array:
		if seen[x] {
			return
		}
		seen[x] = true
		for _, item := range x.items {
			walk(item, fn, seen)
		}
	}
}

// reaches reports whether target is v or is nested anywhere inside it.
func reaches(v any, target *Object) bool {
	found := false
	seen := map[any]bool{}
	var visit func(v any)
	visit = func(v any) {
		if found {
			return
		}
		switch x := v.(type) {
		case *Object:
			if x == target {
				found = true
				return
			}
			if seen[x] {
				return
			}
			seen[x] = true
			for _, k := range x.keys {
				visit(x.props[k].value)
			}
		case *Array:
			if seen[x] {
				return
			}
			seen[x] = true
			for _, item := range x.items {
				visit(item)
			}
		}
	}
	visit(v)
	return found
}

// builtFrom reports whether held was instrumented from the plain map or
// slice v, so writing the same reference back is a no-op.
func builtFrom(held, v any) bool {
	switch x := v.(type) {
	case map[string]any:
		o, ok := held.(*Object)
		return ok && x != nil && o.src == reflect.ValueOf(x).Pointer()
	case []any:
		a, ok := held.(*Array)
		return ok && len(x) > 0 && a.src == reflect.ValueOf(x).Pointer() && a.Len() == len(x)
	}
	return false
}

// Array is a sequence inside the store. Its elements are instrumented but the
// sequence itself is not reactive.
type Array struct {
	path  string
	items []any
	src   uintptr
}

func (a *Array) Path() string { return a.path }
func (a *Array) Len() int     { return len(a.items) }

// At returns element i, or false when i is out of range.
func (a *Array) At(i int) (any, bool) {
	if i < 0 || i >= len(a.items) {
		return nil, false
	}
	return a.items[i], true
}

func (a *Array) Raw() []any {
	out := make([]any, len(a.items))
	for i, item := range a.items {
		out[i] = raw(item)
	}
	return out
}

func (a *Array) String() string {
	b, err := json.Marshal(a.Raw())
	if err != nil {
		return fmt.Sprint(a.Raw())
	}
	return string(b)
}

func raw(v any) any {
	switch x := v.(type) {
	case *Object:
		return x.Raw()
	case *Array:
		return x.Raw()
	default:
		return v
	}
}

// sameValue is identity equality: == for comparable values, pointer identity
// for maps, slices, funcs and channels. Nothing is compared deeply.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return a == b
	}
	switch va.Kind() {
	case reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}
