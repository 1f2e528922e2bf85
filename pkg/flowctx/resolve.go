package flowctx

import (
	"errors"

	"github.com/wyrdbound/grimoire/pkg/ports"
)

// ErrNoResolver is returned when template resolution is requested on a
// context without an attached resolver.
var ErrNoResolver = errors.New("flowctx: no template resolver attached")

// WithResolver returns a context that resolves templates through r.
func (c Context) WithResolver(r ports.TemplateResolver) Context {
	c.resolver = r
	return c
}

// Resolver returns the attached template resolver, or nil.
func (c Context) Resolver() ports.TemplateResolver { return c.resolver }

// Resolve expands a template against the current data. A template that is
// exactly one expression keeps the expression's native type.
func (c Context) Resolve(template string) (any, error) {
	if c.resolver == nil {
		return nil, ErrNoResolver
	}
	return c.resolver.Resolve(template, c.data)
}

// ResolveString expands a template and renders the result as a string.
func (c Context) ResolveString(template string) (string, error) {
	if c.resolver == nil {
		return "", ErrNoResolver
	}
	return c.resolver.ResolveString(template, c.data)
}

// EvaluateBool evaluates a condition expression against the current data.
func (c Context) EvaluateBool(expression string) (bool, error) {
	if c.resolver == nil {
		return false, ErrNoResolver
	}
	return c.resolver.EvaluateBool(expression, c.data)
}

// ResolveMap resolves every string leaf of a nested mapping, recursing into
// maps and lists. Non-string leaves pass through untouched. Resolved strings
// keep their native type, so a map value may change type here.
func (c Context) ResolveMap(data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		rv, err := c.ResolveValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

// ResolveValue resolves templates inside an arbitrary value: strings are
// expanded, maps and lists are walked, everything else passes through.
func (c Context) ResolveValue(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return c.Resolve(t)
	case map[string]any:
		return c.ResolveMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			rv, err := c.ResolveValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}
