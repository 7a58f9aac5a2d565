package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var ErrSelector = errors.New("unsupported selector")

// compound is a run of simple selectors such as input#name.wide[type=text].
type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

// selector is a descendant chain: "form .row input".
type selector []compound

func parseSelector(s string) (selector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%q: %w", s, ErrSelector)
	}
	sel := make(selector, 0, len(fields))
	for _, f := range fields {
		c, err := parseCompound(f)
		if err != nil {
			return nil, err
		}
		sel = append(sel, c)
	}
	return sel, nil
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	readName := func() string {
		start := i
		for i < len(s) && !strings.ContainsRune("#.[", rune(s[i])) {
			i++
		}
		return s[start:i]
	}

	c.tag = strings.ToLower(readName())
	if c.tag == "*" {
		c.tag = ""
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readName()
		case '.':
			i++
			c.classes = append(c.classes, readName())
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("%q: unclosed attribute: %w", s, ErrSelector)
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, hasValue := strings.Cut(body, "=")
			c.attrs = append(c.attrs, attrMatch{
				name:     strings.TrimSpace(name),
				value:    strings.Trim(strings.TrimSpace(value), `"'`),
				hasValue: hasValue,
			})
		default:
			return c, fmt.Errorf("%q: %w", s, ErrSelector)
		}
	}
	return c, nil
}

func (c compound) match(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	attr := func(name string) (string, bool) {
		for _, a := range n.Attr {
			if a.Key == name {
				return a.Val, true
			}
		}
		return "", false
	}
	if c.id != "" {
		if id, _ := attr("id"); id != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		class, _ := attr("class")
		have := strings.Fields(class)
		for _, want := range c.classes {
			found := false
			for _, h := range have {
				if h == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for _, am := range c.attrs {
		v, ok := attr(am.name)
		if !ok || (am.hasValue && v != am.value) {
			return false
		}
	}
	return true
}

// match checks the last compound against n and the rest against its
// ancestors, right to left.
func (s selector) match(n *html.Node) bool {
	last := len(s) - 1
	if !s[last].match(n) {
		return false
	}
	i := last - 1
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if s[i].match(p) {
			i--
		}
	}
	return i < 0
}
