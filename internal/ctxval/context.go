package ctxval

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Context is the mutable key/value execution context a host pipeline
// threads through its phases. Fields are addressed by dot-paths
// ("config.db.host") resolved against nested Objects.
//
// Thread-safety: Context performs no internal synchronization. One
// pipeline execution lineage owns one Context; concurrent lineages need
// their own (see the guard package for the same rule on records).
type Context struct {
	root Object
}

// NewContext creates an empty execution context.
func NewContext() *Context {
	return &Context{root: Object{}}
}

// FromMap builds a Context from decoded YAML/JSON data.
func FromMap(m map[string]any) (*Context, error) {
	v, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("context root must be a mapping, got %T", v)
	}
	return &Context{root: obj}, nil
}

// FromYAML parses a YAML document into a Context.
// The document root must be a mapping.
func FromYAML(data []byte) (*Context, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse context: %w", err)
	}
	if raw == nil {
		return NewContext(), nil
	}
	return FromMap(raw)
}

// NormalizePath returns the NFC-normalized form of a dot-path.
// Contract documents and contexts are authored by humans; NFC keeps
// visually-identical field names comparable.
func NormalizePath(path string) string {
	return norm.NFC.String(path)
}

// Resolve walks a dot-path through nested objects.
// Returns (value, true) when every segment exists, (nil, false) otherwise.
// An explicit null resolves to (Null{}, true) - absence and null are
// distinct states and validators treat them differently.
func (c *Context) Resolve(path string) (Value, bool) {
	segments := strings.Split(NormalizePath(path), ".")
	var current Value = c.root
	for _, seg := range segments {
		obj, ok := current.(Object)
		if !ok {
			return nil, false
		}
		next, present := obj[seg]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Set writes a value at a dot-path, creating intermediate objects as
// needed. A non-object intermediate value is overwritten: defaults
// declared by a contract always win over scalar debris.
func (c *Context) Set(path string, v Value) {
	segments := strings.Split(NormalizePath(path), ".")
	obj := c.root
	for i, seg := range segments {
		if i == len(segments)-1 {
			obj[seg] = v
			return
		}
		next, present := obj[seg]
		child, ok := next.(Object)
		if !present || !ok {
			child = Object{}
			obj[seg] = child
		}
		obj = child
	}
}

// Delete removes the value at a dot-path. Missing paths are a no-op.
func (c *Context) Delete(path string) {
	segments := strings.Split(NormalizePath(path), ".")
	obj := c.root
	for i, seg := range segments {
		if i == len(segments)-1 {
			delete(obj, seg)
			return
		}
		next, present := obj[seg]
		child, ok := next.(Object)
		if !present || !ok {
			return
		}
		obj = child
	}
}

// Len returns the number of top-level keys.
func (c *Context) Len() int {
	return len(c.root)
}

// ToMap exports the context as plain Go types for serialization or
// expression evaluation.
func (c *Context) ToMap() map[string]any {
	return ToNative(c.root).(map[string]any)
}
