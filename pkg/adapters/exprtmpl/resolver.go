// Package exprtmpl resolves {{ ... }} templates with the expr expression
// language. A template that is a single expression keeps the native type of
// its result; templates mixing text and expressions render to a string.
package exprtmpl

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/wyrdbound/grimoire/pkg/schema"
)

// Resolver compiles expressions on first use and caches the programs.
// Safe for concurrent use.
type Resolver struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	helpers  map[string]any
}

// Option configures the resolver.
type Option func(*Resolver)

// WithHelper registers an extra function available inside expressions.
// Context data shadows helpers on name collision.
func WithHelper(name string, fn any) Option {
	return func(r *Resolver) { r.helpers[name] = fn }
}

// New returns a resolver with the standard helper set: title, upper, lower,
// trim and default.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		programs: make(map[string]*vm.Program),
		helpers: map[string]any{
			"title": titleCase,
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"trim":  strings.TrimSpace,
			"default": func(v, fallback any) any {
				if v == nil || v == "" {
					return fallback
				}
				return v
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve evaluates every {{ ... }} segment of the template against data.
// Strings without an opening marker pass through untouched.
func (r *Resolver) Resolve(template string, data map[string]any) (any, error) {
	if !strings.Contains(template, "{{") {
		return template, nil
	}

	if code, ok := singleExpression(template); ok {
		v, err := r.eval(code, data)
		if err != nil {
			return nil, fmt.Errorf("Failed to resolve template '%s': %w", template, err)
		}
		return v, nil
	}

	segments, err := splitTemplate(template)
	if err != nil {
		return nil, fmt.Errorf("Failed to resolve template '%s': %w", template, err)
	}
	var b strings.Builder
	for _, seg := range segments {
		if !seg.isExpr {
			b.WriteString(seg.text)
			continue
		}
		v, err := r.eval(seg.text, data)
		if err != nil {
			return nil, fmt.Errorf("Failed to resolve template '%s': %w", template, err)
		}
		b.WriteString(stringify(v))
	}
	return b.String(), nil
}

// ResolveString is Resolve with the result rendered to text.
func (r *Resolver) ResolveString(template string, data map[string]any) (string, error) {
	v, err := r.Resolve(template, data)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// EvaluateBool resolves a condition and coerces the result to a boolean.
// Bare expressions work with or without {{ }} markers; non-boolean results
// use tolerant truthiness (empty string, zero, nil, empty collection are
// false).
func (r *Resolver) EvaluateBool(expression string, data map[string]any) (bool, error) {
	t := expression
	if !strings.Contains(t, "{{") {
		t = "{{ " + t + " }}"
	}
	v, err := r.Resolve(t, data)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func (r *Resolver) eval(code string, data map[string]any) (any, error) {
	code = strings.TrimSpace(code)
	program, err := r.program(code)
	if err != nil {
		return nil, err
	}

	env := make(map[string]any, len(r.helpers)+len(data))
	for k, fn := range r.helpers {
		env[k] = fn
	}
	for k, v := range data {
		env[k] = v
	}
	return vm.Run(program, env)
}

func (r *Resolver) program(code string) (*vm.Program, error) {
	r.mu.RLock()
	p, ok := r.programs[code]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := expr.Compile(code, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.programs[code] = p
	r.mu.Unlock()
	return p, nil
}

type segment struct {
	text   string
	isExpr bool
}

func splitTemplate(t string) ([]segment, error) {
	var out []segment
	for {
		start := strings.Index(t, "{{")
		if start < 0 {
			if t != "" {
				out = append(out, segment{text: t})
			}
			return out, nil
		}
		if start > 0 {
			out = append(out, segment{text: t[:start]})
		}
		rest := t[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return nil, fmt.Errorf("unclosed expression")
		}
		out = append(out, segment{text: rest[:end], isExpr: true})
		t = rest[end+2:]
	}
}

// singleExpression reports whether the trimmed template is exactly one
// {{ ... }} block, the case where the native result type is preserved.
func singleExpression(t string) (string, bool) {
	t = strings.TrimSpace(t)
	if !strings.HasPrefix(t, "{{") || !strings.HasSuffix(t, "}}") {
		return "", false
	}
	inner := t[2 : len(t)-2]
	if strings.Contains(inner, "{{") || strings.Contains(inner, "}}") {
		return "", false
	}
	return inner, true
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func truthy(v any) bool {
	coerced, err := schema.Coerce(v, "bool", "")
	if err == nil {
		return coerced.(bool)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() > 0
	}
	return true
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) && !prevLetter {
			b.WriteRune(unicode.ToTitle(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
