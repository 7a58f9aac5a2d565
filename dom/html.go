package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLDocument is a Document backed by an x/net/html parse tree. Wrappers
// are cached per underlying node so values and listeners stick to it.
type HTMLDocument struct {
	root  *html.Node
	nodes map[*html.Node]*htmlNode
}

func Parse(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &HTMLDocument{
		root:  root,
		nodes: map[*html.Node]*htmlNode{},
	}, nil
}

func ParseString(markup string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(markup))
}

func (d *HTMLDocument) wrap(n *html.Node) *htmlNode {
	if n == nil {
		return nil
	}
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &htmlNode{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// forget drops the wrappers of n and its subtree. Only for nodes the
// document has discarded.
func (d *HTMLDocument) forget(n *html.Node) {
	visit(n, func(c *html.Node) bool {
		delete(d.nodes, c)
		return false
	})
}

func (d *HTMLDocument) Root() Node { return d.wrap(d.root) }

// Body returns the <body> element the parser always synthesizes.
func (d *HTMLDocument) Body() Node {
	var body *html.Node
	visit(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return true
		}
		return false
	})
	if body == nil {
		return nil
	}
	return d.wrap(body)
}

func (d *HTMLDocument) CreateFragment() Node {
	return d.wrap(&html.Node{Type: html.DocumentNode})
}

func (d *HTMLDocument) CreateElement(tag string) Node {
	tag = strings.ToLower(tag)
	return d.wrap(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (d *HTMLDocument) CreateTextNode(text string) Node {
	return d.wrap(&html.Node{Type: html.TextNode, Data: text})
}

func (d *HTMLDocument) QuerySelector(selector string) Node {
	all := d.query(selector, true)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

func (d *HTMLDocument) QuerySelectorAll(selector string) []Node {
	return d.query(selector, false)
}

func (d *HTMLDocument) query(selector string, first bool) []Node {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil
	}
	var out []Node
	visit(d.root, func(n *html.Node) bool {
		if sel.match(n) {
			out = append(out, d.wrap(n))
			return first
		}
		return false
	})
	return out
}

// Render writes the whole document.
func (d *HTMLDocument) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// OuterHTML renders n. Fragments and documents render their children.
func OuterHTML(n Node) (string, error) {
	hn, ok := n.(*htmlNode)
	if !ok {
		return "", fmt.Errorf("outer html of %T: %w", n, ErrForeignNode)
	}
	var buf bytes.Buffer
	if hn.n.Type == html.DocumentNode {
		for c := hn.n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}
	if err := html.Render(&buf, hn.n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InnerHTML renders the children of n.
func InnerHTML(n Node) (string, error) {
	var sb strings.Builder
	for _, c := range n.Children() {
		s, err := OuterHTML(c)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// visit walks the tree in document order until fn returns true.
func visit(n *html.Node, fn func(n *html.Node) bool) bool {
	if fn(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if visit(c, fn) {
			return true
		}
	}
	return false
}

type htmlNode struct {
	doc *HTMLDocument
	n   *html.Node

	value     string
	hasValue  bool
	listeners map[string][]Listener
}

func (h *htmlNode) Kind() Kind {
	switch h.n.Type {
	case html.ElementNode:
		return KindElement
	case html.TextNode:
		return KindText
	case html.CommentNode:
		return KindComment
	case html.DoctypeNode:
		return KindDoctype
	case html.DocumentNode:
		if h.n == h.doc.root {
			return KindDocument
		}
		return KindFragment
	default:
		return KindComment
	}
}

func (h *htmlNode) Tag() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return h.n.Data
}

func (h *htmlNode) Attributes() []Attribute {
	out := make([]Attribute, 0, len(h.n.Attr))
	for _, a := range h.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		out = append(out, Attribute{Name: name, Value: a.Val})
	}
	return out
}

func (h *htmlNode) Attribute(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (h *htmlNode) SetAttribute(name, value string) {
	for i, a := range h.n.Attr {
		if a.Key == name {
			h.n.Attr[i].Val = value
			return
		}
	}
	h.n.Attr = append(h.n.Attr, html.Attribute{Key: name, Val: value})
}

func (h *htmlNode) Parent() Node {
	if h.n.Parent == nil {
		return nil
	}
	return h.doc.wrap(h.n.Parent)
}

func (h *htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, h.doc.wrap(c))
	}
	return out
}

func (h *htmlNode) own(child Node) (*htmlNode, error) {
	c, ok := child.(*htmlNode)
	if !ok || c.doc != h.doc {
		return nil, ErrForeignNode
	}
	return c, nil
}

func (h *htmlNode) isContainer() bool {
	return h.n.Type == html.ElementNode || h.n.Type == html.DocumentNode
}

func (h *htmlNode) AppendChild(child Node) error {
	c, err := h.own(child)
	if err != nil {
		return err
	}
	if !h.isContainer() {
		return ErrNotElement
	}
	if c.Kind() == KindFragment {
		for gc := c.n.FirstChild; gc != nil; gc = c.n.FirstChild {
			c.n.RemoveChild(gc)
			h.n.AppendChild(gc)
		}
		delete(h.doc.nodes, c.n)
		return nil
	}
	if c.n.Parent != nil {
		c.n.Parent.RemoveChild(c.n)
	}
	h.n.AppendChild(c.n)
	return nil
}

func (h *htmlNode) RemoveChild(child Node) error {
	c, err := h.own(child)
	if err != nil {
		return err
	}
	if c.n.Parent != h.n {
		return ErrNotChild
	}
	h.n.RemoveChild(c.n)
	return nil
}

func (h *htmlNode) TextContent() string {
	switch h.n.Type {
	case html.TextNode, html.CommentNode:
		return h.n.Data
	case html.DoctypeNode:
		return ""
	}
	var sb strings.Builder
	visit(h.n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		return false
	})
	return sb.String()
}

func (h *htmlNode) SetTextContent(text string) {
	switch h.n.Type {
	case html.TextNode, html.CommentNode:
		h.n.Data = text
		return
	case html.DoctypeNode:
		return
	}
	h.clear()
	if text != "" {
		h.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func (h *htmlNode) clear() {
	for c := h.n.FirstChild; c != nil; c = h.n.FirstChild {
		h.n.RemoveChild(c)
		h.doc.forget(c)
	}
}

func (h *htmlNode) CloneNode(deep bool) Node {
	return h.doc.wrap(h.doc.clone(h.n, deep))
}

func (d *HTMLDocument) clone(n *html.Node, deep bool) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if w, ok := d.nodes[n]; ok && w.hasValue {
		cw := d.wrap(c)
		cw.value, cw.hasValue = w.value, true
	}
	if deep {
		for gc := n.FirstChild; gc != nil; gc = gc.NextSibling {
			c.AppendChild(d.clone(gc, true))
		}
	}
	return c
}

func (h *htmlNode) SetInnerHTML(markup string) error {
	if !h.isContainer() {
		return ErrNotElement
	}
	context := h.n
	if h.n.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), context)
	if err != nil {
		return fmt.Errorf("parse inner html: %w", err)
	}
	h.clear()
	for _, n := range nodes {
		h.n.AppendChild(n)
	}
	return nil
}

func (h *htmlNode) Value() string {
	if h.hasValue {
		return h.value
	}
	if h.n.DataAtom == atom.Textarea {
		return h.TextContent()
	}
	v, _ := h.Attribute("value")
	return v
}

// SetValue also reflects the value into the markup so a rendered document
// shows the live state of its controls.
func (h *htmlNode) SetValue(value string) {
	h.value = value
	h.hasValue = true
	switch h.n.DataAtom {
	case atom.Textarea:
		h.SetTextContent(value)
	case atom.Input, atom.Option, atom.Button:
		h.SetAttribute("value", value)
	}
}

func (h *htmlNode) AddEventListener(typ string, l Listener) {
	if h.listeners == nil {
		h.listeners = map[string][]Listener{}
	}
	h.listeners[typ] = append(h.listeners[typ], l)
}

// Dispatch runs the listeners for e.Type in registration order. It does not
// bubble.
func (h *htmlNode) Dispatch(e *Event) error {
	if e.Target == nil {
		e.Target = h
	}
	var errs []error
	for _, l := range h.listeners[e.Type] {
		if err := l(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *htmlNode) OwnerDocument() Document { return h.doc }
