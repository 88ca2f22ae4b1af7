// Package variables implements the flat variable table shared by the steps of a
// workflow and the {{name}} template substitution over it.
package variables

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/aretw0/weave/pkg/domain"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Context maps variable names to string values. Last write wins.
// A Context is owned by a single controller and is not safe for concurrent use.
type Context struct {
	values map[string]string
}

// New creates an empty context.
func New() *Context {
	return &Context{values: make(map[string]string)}
}

// FromMap creates a context holding a copy of values.
func FromMap(values map[string]string) *Context {
	c := New()
	maps.Copy(c.values, values)
	return c
}

// Get returns the value of key.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is set.
func (c *Context) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Set stores value under key. Empty keys are rejected.
func (c *Context) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: variable name cannot be empty", domain.ErrInputInvalid)
	}
	c.values[key] = value
	return nil
}

// SetDefault stores value under key unless key is already set.
func (c *Context) SetDefault(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.values[key] = value
	}
}

// Delete removes key.
func (c *Context) Delete(key string) {
	delete(c.values, key)
}

// Len returns the number of variables.
func (c *Context) Len() int {
	return len(c.values)
}

// Keys returns the variable names in sorted order.
func (c *Context) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Snapshot returns a copy of the table.
func (c *Context) Snapshot() map[string]string {
	return maps.Clone(c.values)
}

// Substitute replaces every {{name}} with the value of name.
// Placeholders without a value are left verbatim. Substitution is a single pass:
// values containing placeholder syntax are not expanded again.
func (c *Context) Substitute(template string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := c.values[key]; ok {
			return v
		}
		return m
	})
}

// Unresolved lists the placeholder names in template that have no value.
func (c *Context) Unresolved(template string) []string {
	var missing []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if _, ok := c.values[m[1]]; !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	return missing
}
