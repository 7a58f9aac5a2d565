package compiler

import (
	"errors"
	"fmt"

	"github.com/delaneyj/mvvm/dom"
	"github.com/delaneyj/mvvm/reactive"
)

type handler func(c *Compiler, node dom.Node, d Directive) error

type directiveDef struct {
	modifier bool
	// opaque directives own the element's children, which are not compiled
	opaque bool
	fn     handler
}

var directives map[string]directiveDef

func init() {
	directives = map[string]directiveDef{
		"model": {fn: (*Compiler).model},
		"text":  {fn: (*Compiler).textDirective, opaque: true},
		"html":  {fn: (*Compiler).html, opaque: true},
		"on":    {fn: (*Compiler).on, modifier: true},
		"bind":  {fn: (*Compiler).bind, modifier: true},
	}
}

func modelUpdater(node dom.Node, v any) error {
	node.SetValue(Stringify(v))
	return nil
}

func textUpdater(node dom.Node, content string) error {
	node.SetTextContent(content)
	return nil
}

func htmlUpdater(node dom.Node, v any) error {
	return node.SetInnerHTML(Stringify(v))
}

func bindUpdater(attr string) func(node dom.Node, v any) error {
	return func(node dom.Node, v any) error {
		node.SetAttribute(attr, Stringify(v))
		return nil
	}
}

// watch binds expr to node through a new watcher. apply runs on every change
// after the baseline; the caller applies the baseline itself.
func (c *Compiler) watch(node dom.Node, expr string, lenient bool, apply func(v any) error) (*reactive.Watcher, error) {
	data := c.vm.Data()
	get := func(w *reactive.Watcher) (any, error) {
		v, err := GetValue(data, expr, w)
		var rerr *ResolutionError
		if lenient && errors.As(err, &rerr) {
			return nil, nil
		}
		return v, err
	}
	w, err := c.vm.System().Watch(get, func(nv, _ any) {
		if err := apply(nv); err != nil {
			c.log.Error("apply binding", "expr", expr, "tag", node.Tag(), "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.track(node, w.Handle())
	return w, nil
}

func (c *Compiler) model(node dom.Node, d Directive) error {
	w, err := c.watch(node, d.Expr, false, func(v any) error {
		return modelUpdater(node, v)
	})
	if err != nil {
		return err
	}

	c.listen(node, "input", func(e *dom.Event) error {
		target := e.Target
		if target == nil {
			target = node
		}
		// raw string, no coercion back into the store's type
		return SetValue(c.vm.Data(), d.Expr, target.Value())
	})
	return modelUpdater(node, w.Value())
}

// text binds one watcher per placeholder; each of them re-renders the whole
// template when it fires.
func (c *Compiler) text(node dom.Node, template string) error {
	data := c.vm.Data()
	render := func() error {
		content, err := ContentValue(data, template, nil, c.cfg.Lenient)
		if err != nil {
			return err
		}
		return textUpdater(node, content)
	}

	for _, expr := range Placeholders(template) {
		if _, err := c.watch(node, expr, c.cfg.Lenient, func(any) error { return render() }); err != nil {
			return err
		}
	}
	return render()
}

func (c *Compiler) textDirective(node dom.Node, d Directive) error {
	template := d.Expr
	if !HasPlaceholder(template) {
		template = "{{" + template + "}}"
	}
	return c.text(node, template)
}

func (c *Compiler) html(node dom.Node, d Directive) error {
	w, err := c.watch(node, d.Expr, false, func(v any) error {
		return htmlUpdater(node, v)
	})
	if err != nil {
		return err
	}
	return htmlUpdater(node, w.Value())
}

func (c *Compiler) on(node dom.Node, d Directive) error {
	method := d.Expr
	if !c.vm.HasMethod(method) {
		return &DirectiveError{Attr: d.Attr, Err: fmt.Errorf("%q: %w", method, ErrUnknownMethod)}
	}
	c.listen(node, d.Modifier, func(e *dom.Event) error {
		return c.vm.Call(method, e)
	})
	return nil
}

func (c *Compiler) bind(node dom.Node, d Directive) error {
	apply := bindUpdater(d.Modifier)
	w, err := c.watch(node, d.Expr, false, func(v any) error {
		return apply(node, v)
	})
	if err != nil {
		return err
	}
	return apply(node, w.Value())
}
