// Package flowctx provides the execution context threaded through a running
// flow: a logically immutable mapping from dotted paths to plain data
// (maps, slices and scalars).
//
// Every mutator returns a NEW Context and leaves the receiver untouched.
// Discarding the returned context drops the write, so callers must thread it
// onward:
//
//	ctx = ctx.Set("variables.hp", 12)
//
// This is deliberate. Holding an older Context keeps an isolated snapshot,
// which flow execution relies on when a step fails halfway through.
package flowctx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wyrdbound/grimoire/pkg/ports"
)

// Context is an immutable view over flow data. The zero value is usable and
// empty.
type Context struct {
	data     map[string]any
	resolver ports.TemplateResolver
}

// New builds a context over the given top-level namespaces. The map is
// copied one level deep; nested values are shared until written through Set.
func New(initial map[string]any) Context {
	data := make(map[string]any, len(initial))
	for k, v := range initial {
		data[k] = v
	}
	return Context{data: data}
}

// Get returns the value at a dotted path. Path segments traverse nested
// maps; numeric segments index into lists.
func (c Context) Get(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	return lookup(c.data, strings.Split(path, "."))
}

// GetDefault returns the value at path, or def when the path is not set.
func (c Context) GetDefault(path string, def any) any {
	if v, ok := c.Get(path); ok {
		return v
	}
	return def
}

// MustGet returns the value at path and panics when it is absent. Reserved
// for callers that already checked Has.
func (c Context) MustGet(path string) any {
	v, ok := c.Get(path)
	if !ok {
		panic(fmt.Sprintf("flowctx: path %q not set", path))
	}
	return v
}

// Has reports whether a value exists at path.
func (c Context) Has(path string) bool {
	_, ok := c.Get(path)
	return ok
}

// Set returns a new context with value stored at path. Only the maps along
// the touched spine are copied; untouched subtrees are shared with the
// receiver. Missing intermediate maps are created; intermediate values that
// are not maps are replaced.
func (c Context) Set(path string, value any) Context {
	if path == "" {
		return c
	}
	next := c
	next.data = setPath(c.data, strings.Split(path, "."), value)
	return next
}

// Delete returns a new context without the value at path. Deleting a path
// that is not set returns the receiver unchanged.
func (c Context) Delete(path string) Context {
	if path == "" {
		return c
	}
	data, changed := deletePath(c.data, strings.Split(path, "."))
	if !changed {
		return c
	}
	next := c
	next.data = data
	return next
}

// Keys returns the sorted keys of the map at prefix. An empty prefix lists
// the top-level namespaces. A prefix that is unset or not a map yields nil.
func (c Context) Keys(prefix string) []string {
	var node any = c.data
	if prefix != "" {
		v, ok := c.Get(prefix)
		if !ok {
			return nil
		}
		node = v
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the whole context data. Mutating the copy
// never affects the context.
func (c Context) Snapshot() map[string]any {
	return copyMap(c.data)
}

func lookup(cur any, segs []string) (any, bool) {
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func setPath(data map[string]any, segs []string, value any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	if len(segs) == 1 {
		out[segs[0]] = value
		return out
	}
	// Ranging over a nil child map is fine, so a missing or non-map
	// intermediate simply becomes a fresh map.
	child, _ := data[segs[0]].(map[string]any)
	out[segs[0]] = setPath(child, segs[1:], value)
	return out
}

func deletePath(data map[string]any, segs []string) (map[string]any, bool) {
	key := segs[0]
	if len(segs) == 1 {
		if _, ok := data[key]; !ok {
			return data, false
		}
		out := make(map[string]any, len(data))
		for k, v := range data {
			if k != key {
				out[k] = v
			}
		}
		return out, true
	}
	child, ok := data[key].(map[string]any)
	if !ok {
		return data, false
	}
	newChild, changed := deletePath(child, segs[1:])
	if !changed {
		return data, false
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	out[key] = newChild
	return out, true
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
