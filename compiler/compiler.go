// Package compiler wires template bindings to the reactive store. It walks a
// UI tree once, turning directive attributes and {{ }} interpolations into
// watchers that patch the tree whenever the data they read changes.
package compiler

import (
	"log/slog"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/reactive"
)

// ViewModel is what bindings resolve against.
type ViewModel interface {
	Data() *reactive.Object
	System() *reactive.System
	HasMethod(name string) bool
	Call(name string, args ...any) error
}

type Config struct {
	// Prefix marks directive attributes. Defaults to "v-".
	Prefix string
	// Lenient renders unresolvable interpolations as "" instead of failing.
	Lenient bool
	Logger  *slog.Logger
}

type Compiler struct {
	vm  ViewModel
	cfg Config
	log *slog.Logger

	bindings map[dom.Node][]reactive.Handle
	pending  []reactive.Handle
	// listeners are attached only once the whole compile has succeeded
	listeners []func()
}

func New(vm ViewModel, cfg Config) *Compiler {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Compiler{
		vm:       vm,
		cfg:      cfg,
		log:      log,
		bindings: map[dom.Node][]reactive.Handle{},
	}
}

// Compile binds every directive and interpolation under root. The children
// are compiled while detached in a fragment and put back in order afterwards.
// On error nothing stays bound and nothing is rendered: every watcher created
// by this call is revoked, no listener is attached, and root gets a copy of
// its children as they were before the call.
func (c *Compiler) Compile(root dom.Node) (err error) {
	frag, err := c.node2fragment(root)
	if err != nil {
		return err
	}
	pristine := frag.CloneNode(true)
	c.pending = c.pending[:0]
	c.listeners = c.listeners[:0]

	defer func() {
		if err != nil {
			frag, pristine = pristine, frag
		}
		// Empty the copy that is not kept, then release it by moving its
		// (now absent) children.
		pristine.SetTextContent("")
		if rerr := frag.AppendChild(pristine); rerr != nil {
			c.log.Error("release fragment", "error", rerr)
		}
		if aerr := root.AppendChild(frag); aerr != nil && err == nil {
			err = aerr
		}
		if err != nil {
			for _, h := range c.pending {
				c.revoke(h)
			}
		} else {
			for _, attach := range c.listeners {
				attach()
			}
		}
		c.pending = c.pending[:0]
		c.listeners = c.listeners[:0]
	}()

	return c.compile(frag)
}

func (c *Compiler) node2fragment(node dom.Node) (dom.Node, error) {
	frag := node.OwnerDocument().CreateFragment()
	for _, child := range node.Children() {
		if err := frag.AppendChild(child); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

func (c *Compiler) compile(node dom.Node) error {
	for _, child := range node.Children() {
		if child.Kind() == dom.KindText {
			if err := c.compileText(child); err != nil {
				return err
			}
			continue
		}
		if child.Kind() != dom.KindElement {
			continue
		}

		opaque, err := c.compileElement(child)
		if err != nil {
			return err
		}
		if opaque {
			continue
		}
		if err := c.compile(child); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileElement(node dom.Node) (opaque bool, err error) {
	for _, attr := range node.Attributes() {
		d, ok, err := ParseDirective(c.cfg.Prefix, attr)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		def := directives[d.Name]
		if err := def.fn(c, node, d); err != nil {
			return false, err
		}
		opaque = opaque || def.opaque
		c.log.Debug("bound directive", "directive", d.Name, "modifier", d.Modifier, "expr", d.Expr, "tag", node.Tag())
	}
	return opaque, nil
}

func (c *Compiler) compileText(node dom.Node) error {
	content := node.TextContent()
	if !HasPlaceholder(content) {
		return nil
	}
	return c.text(node, content)
}

func (c *Compiler) listen(node dom.Node, typ string, l dom.Listener) {
	c.listeners = append(c.listeners, func() { node.AddEventListener(typ, l) })
}

func (c *Compiler) track(node dom.Node, h reactive.Handle) {
	c.bindings[node] = append(c.bindings[node], h)
	c.pending = append(c.pending, h)
}

func (c *Compiler) revoke(h reactive.Handle) {
	c.vm.System().Revoke(h)
	for node, hs := range c.bindings {
		for i, bh := range hs {
			if bh == h {
				hs = append(hs[:i], hs[i+1:]...)
				break
			}
		}
		if len(hs) == 0 {
			delete(c.bindings, node)
		} else {
			c.bindings[node] = hs
		}
	}
}

// Unbind revokes the watchers of node and its descendants and returns how
// many were revoked. Event listeners stay registered on the nodes.
func (c *Compiler) Unbind(node dom.Node) int {
	n := 0
	var walk func(dom.Node)
	walk = func(node dom.Node) {
		for _, h := range c.bindings[node] {
			if c.vm.System().Revoke(h) {
				n++
			}
		}
		delete(c.bindings, node)
		for _, child := range node.Children() {
			walk(child)
		}
	}
	walk(node)
	return n
}

// Destroy revokes every watcher this compiler created.
func (c *Compiler) Destroy() int {
	n := 0
	for node, hs := range c.bindings {
		for _, h := range hs {
			if c.vm.System().Revoke(h) {
				n++
			}
		}
		delete(c.bindings, node)
	}
	return n
}

// Bindings is the number of live watchers owned by the compiler.
func (c *Compiler) Bindings() int {
	n := 0
	for _, hs := range c.bindings {
		for _, h := range hs {
			if _, ok := c.vm.System().Lookup(h); ok {
				n++
			}
		}
	}
	return n
}
