package compiler

import (
	"fmt"
	"strings"

	"github.com/delaneyj/mvvm/dom"
)

const DefaultPrefix = "v-"

// Directive is a parsed prefix-name[:modifier]="expr" attribute.
type Directive struct {
	Attr     string
	Name     string
	Modifier string
	Expr     string
}

// ParseDirective reports ok=false for attributes without the prefix. Every
// prefixed attribute must name a known directive with a valid modifier.
func ParseDirective(prefix string, attr dom.Attribute) (d Directive, ok bool, err error) {
	if !strings.HasPrefix(attr.Name, prefix) {
		return d, false, nil
	}
	d = Directive{Attr: attr.Name, Expr: attr.Value}

	body := strings.TrimPrefix(attr.Name, prefix)
	name, modifier, hasModifier := strings.Cut(body, ":")
	switch {
	case name == "":
		return d, true, &DirectiveError{Attr: attr.Name, Err: ErrMalformedDirective}
	case hasModifier && (modifier == "" || strings.Contains(modifier, ":")):
		return d, true, &DirectiveError{Attr: attr.Name, Err: ErrMalformedDirective}
	}
	d.Name, d.Modifier = name, modifier

	def, known := directives[name]
	switch {
	case !known:
		return d, true, &DirectiveError{Attr: attr.Name, Err: fmt.Errorf("%q: %w", name, ErrUnknownDirective)}
	case def.modifier && !hasModifier:
		return d, true, &DirectiveError{Attr: attr.Name, Err: ErrMissingModifier}
	case !def.modifier && hasModifier:
		return d, true, &DirectiveError{Attr: attr.Name, Err: ErrUnexpectedModifier}
	}
	return d, true, nil
}
