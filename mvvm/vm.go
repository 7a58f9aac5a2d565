// Package mvvm is the entry point of the binding engine. New instruments a
// data map, exposes computed properties and methods, and compiles the
// bindings found under a root node of a UI tree.
//
//	doc, _ := dom.ParseString(`<div id="app"><p>Hello {{user.name}}</p></div>`)
//	vm, _ := mvvm.New(mvvm.Options{
//		Root:     "#app",
//		Document: doc,
//		Data:     map[string]any{"user": map[string]any{"name": "Ann"}},
//	})
//	vm.Set("user.name", "Bo") // <p>Hello Bo</p>
//
// Everything runs synchronously on the caller's goroutine: a write returns
// after every dependent binding has re-rendered. A VM is not safe for
// concurrent use.
package mvvm

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/delaneyj/mvvm/compiler"
	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/reactive"
)

var (
	ErrInert      = errors.New("view model is inert: no root node")
	ErrNoDocument = errors.New("root selector given without a document")
	ErrRootType   = errors.New("root must be a dom.Node or a selector string")
)

// Method is invoked with the view model and the forwarded arguments; event
// bindings pass the *dom.Event.
type Method func(vm *VM, args ...any) error

// ComputedFunc derives a value. It runs on every read; reads it makes
// through vm are tracked for whichever binding is evaluating.
type ComputedFunc func(vm *VM) (any, error)

type Options struct {
	// Root is a dom.Node or a selector resolved against Document.
	Root     any
	Document dom.Document

	Data     map[string]any
	Computed map[string]ComputedFunc
	Methods  map[string]Method

	Prefix  string
	Lenient bool
	Logger  *slog.Logger
	// OnError receives binding errors raised while a write propagates.
	// Defaults to logging them.
	OnError reactive.OnErrorFunc
}

type VM struct {
	root     dom.Node
	data     *reactive.Object
	sys      *reactive.System
	methods  map[string]Method
	compiler *compiler.Compiler
	log      *slog.Logger

	// sub is set on the views handed to computed functions
	sub *reactive.Watcher
}

func New(opts Options) (*VM, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	vm := &VM{
		methods: opts.Methods,
		log:     log,
	}

	root, err := resolveRoot(opts.Root, opts.Document)
	if err != nil {
		return nil, err
	}
	if root == nil {
		log.Warn("root node not found, view model is inert", "root", opts.Root)
		return vm, nil
	}
	vm.root = root

	onError := opts.OnError
	if onError == nil {
		onError = func(w *reactive.Watcher, err error) {
			log.Error("binding update failed", "watcher", w.Handle(), "error", err)
		}
	}
	vm.sys = reactive.NewSystem(onError)

	vm.data, err = reactive.Observe(opts.Data)
	if err != nil {
		return nil, fmt.Errorf("observe data: %w", err)
	}

	names := make([]string, 0, len(opts.Computed))
	for name := range opts.Computed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn := opts.Computed[name]
		if err := vm.data.DefineComputed(name, func(w *reactive.Watcher) (any, error) {
			return fn(vm.tracked(w))
		}); err != nil {
			return nil, err
		}
	}

	vm.compiler = compiler.New(vm, compiler.Config{
		Prefix:  opts.Prefix,
		Lenient: opts.Lenient,
		Logger:  log,
	})
	if err := vm.compiler.Compile(root); err != nil {
		return nil, fmt.Errorf("compile template: %w", err)
	}
	return vm, nil
}

func resolveRoot(root any, doc dom.Document) (dom.Node, error) {
	switch r := root.(type) {
	case nil:
		return nil, nil
	case dom.Node:
		return r, nil
	case string:
		if doc == nil {
			return nil, fmt.Errorf("root %q: %w", r, ErrNoDocument)
		}
		return doc.QuerySelector(r), nil
	default:
		return nil, fmt.Errorf("root %T: %w", root, ErrRootType)
	}
}

// tracked returns a view of vm whose reads subscribe w.
func (vm *VM) tracked(w *reactive.Watcher) *VM {
	view := *vm
	view.sub = w
	return &view
}

// Inert reports whether New found no root and did nothing.
func (vm *VM) Inert() bool { return vm.root == nil }

func (vm *VM) Root() dom.Node { return vm.root }

func (vm *VM) Data() *reactive.Object { return vm.data }

func (vm *VM) System() *reactive.System { return vm.sys }

func (vm *VM) Compiler() *compiler.Compiler { return vm.compiler }

// Keys lists the top-level properties, computed ones included.
func (vm *VM) Keys() []string {
	if vm.Inert() {
		return nil
	}
	return vm.data.Keys()
}

// Get resolves a dotted path against the data.
func (vm *VM) Get(path string) (any, error) {
	if vm.Inert() {
		return nil, ErrInert
	}
	return compiler.GetValue(vm.data, path, vm.sub)
}

// Set writes through the store, so every binding that read path re-renders
// before Set returns.
func (vm *VM) Set(path string, value any) error {
	if vm.Inert() {
		return ErrInert
	}
	return compiler.SetValue(vm.data, path, value)
}

func (vm *VM) Method(name string) (Method, bool) {
	m, ok := vm.methods[name]
	return m, ok
}

func (vm *VM) HasMethod(name string) bool {
	_, ok := vm.methods[name]
	return ok
}

func (vm *VM) Call(name string, args ...any) error {
	if vm.Inert() {
		return ErrInert
	}
	m, ok := vm.methods[name]
	if !ok {
		return fmt.Errorf("call %q: %w", name, compiler.ErrUnknownMethod)
	}
	return m(vm, args...)
}

// Unmount revokes the bindings of node's subtree.
func (vm *VM) Unmount(node dom.Node) int {
	if vm.Inert() {
		return 0
	}
	return vm.compiler.Unbind(node)
}

// Destroy revokes every binding. The data stays readable and writable.
func (vm *VM) Destroy() int {
	if vm.Inert() {
		return 0
	}
	return vm.compiler.Destroy()
}
