// Package changeset tracks unsaved field edits and issues temporary IDs for
// rows that have not been persisted yet.
package changeset

import (
	"sort"
	"sync/atomic"
)

// Change is one pending edit. OldValue is the value last persisted.
type Change struct {
	Value    *string `json:"value"`
	OldValue *string `json:"old_value"`
}

// Changes maps a field path to its pending edit.
type Changes map[string]Change

// Record registers next as the pending value of field. The entry keeps the
// persisted value as OldValue and is removed once next equals it again.
func (c Changes) Record(field string, persisted, next *string) {
	if equal(persisted, next) {
		delete(c, field)
		return
	}
	if prev, ok := c[field]; ok {
		prev.Value = clone(next)
		c[field] = prev
		return
	}
	c[field] = Change{Value: clone(next), OldValue: clone(persisted)}
}

// Dirty reports whether any field has a pending edit.
func (c Changes) Dirty() bool { return len(c) > 0 }

// Fields returns the changed field paths in sorted order.
func (c Changes) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Patch returns the pending values keyed by field path.
func (c Changes) Patch() map[string]*string {
	out := make(map[string]*string, len(c))
	for f, ch := range c {
		out[f] = clone(ch.Value)
	}
	return out
}

func equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TempIDs issues negative IDs for unsaved rows, starting at -1.
type TempIDs struct {
	n atomic.Int64
}

// Next returns the next temporary ID.
func (t *TempIDs) Next() int64 {
	return -t.n.Add(1)
}

// IsTemp reports whether id was issued for an unsaved row.
func IsTemp(id int64) bool { return id < 0 }
