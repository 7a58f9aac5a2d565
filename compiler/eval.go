package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/delaneyj/mvvm/reactive"
	"github.com/spf13/cast"
)

var placeholderRE = regexp.MustCompile(`\{\{(.+?)\}\}`)

func segments(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &ResolutionError{Expr: expr, Err: ErrEmptyExpression}
	}
	segs := strings.Split(expr, ".")
	for i, s := range segs {
		segs[i] = strings.TrimSpace(s)
		if segs[i] == "" {
			return nil, &ResolutionError{Expr: expr, Err: ErrEmptyExpression}
		}
	}
	return segs, nil
}

func step(cur any, seg string, w *reactive.Watcher) (any, error) {
	switch x := cur.(type) {
	case *reactive.Object:
		return x.Get(seg, w)
	case *reactive.Array:
		i, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("array index %q: %w", seg, ErrNotTraversable)
		}
		v, ok := x.At(i)
		if !ok {
			return nil, fmt.Errorf("index %d of %d: %w", i, x.Len(), ErrIndexRange)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%T: %w", cur, ErrNotTraversable)
	}
}

// GetValue walks a dotted path from root. Every property read goes through
// the store with w as the subscriber, so a watcher passing itself depends on
// each segment of the path.
func GetValue(root *reactive.Object, expr string, w *reactive.Watcher) (any, error) {
	segs, err := segments(expr)
	if err != nil {
		return nil, err
	}
	var cur any = root
	for _, seg := range segs {
		cur, err = step(cur, seg, w)
		if err != nil {
			return nil, &ResolutionError{Expr: expr, Segment: seg, Err: err}
		}
	}
	return cur, nil
}

// SetValue assigns the last segment of expr. Intermediates must exist; none
// are created.
func SetValue(root *reactive.Object, expr string, value any) error {
	segs, err := segments(expr)
	if err != nil {
		return err
	}
	var cur any = root
	for _, seg := range segs[:len(segs)-1] {
		cur, err = step(cur, seg, nil)
		if err != nil {
			return &ResolutionError{Expr: expr, Segment: seg, Err: err}
		}
	}
	last := segs[len(segs)-1]
	obj, ok := cur.(*reactive.Object)
	if !ok {
		return &ResolutionError{Expr: expr, Segment: last, Err: fmt.Errorf("%T: %w", cur, ErrNotTraversable)}
	}
	if err := obj.Set(last, value); err != nil {
		if errors.Is(err, reactive.ErrUnknownProperty) {
			return &ResolutionError{Expr: expr, Segment: last, Err: err}
		}
		return err
	}
	return nil
}

// HasPlaceholder reports whether text contains at least one {{ expr }}.
func HasPlaceholder(text string) bool {
	return placeholderRE.MatchString(text)
}

// Placeholders returns the trimmed expressions of text in order, duplicates
// included.
func Placeholders(text string) []string {
	matches := placeholderRE.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// ContentValue substitutes every placeholder of template with its resolved
// value. The whole string is rebuilt from template on each call. When lenient
// is set an unresolvable placeholder renders as "".
func ContentValue(root *reactive.Object, template string, w *reactive.Watcher, lenient bool) (string, error) {
	var sb strings.Builder
	last := 0
	for _, loc := range placeholderRE.FindAllStringSubmatchIndex(template, -1) {
		sb.WriteString(template[last:loc[0]])
		last = loc[1]

		v, err := GetValue(root, template[loc[2]:loc[3]], w)
		if err != nil {
			var rerr *ResolutionError
			if lenient && errors.As(err, &rerr) {
				continue
			}
			return "", err
		}
		sb.WriteString(Stringify(v))
	}
	sb.WriteString(template[last:])
	return sb.String(), nil
}

// Stringify renders a store value for the UI tree. Nested objects and arrays
// render as JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
