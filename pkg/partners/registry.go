// Package partners maintains the ordered roster of signing parties for an
// editor session. Every field belongs to exactly one partner; the cascading
// effects of partner mutations on fields live in the session layer, which
// pairs this registry with the field store.
package partners

import (
	"fmt"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/dahlia/pkg/errors"
)

// DefaultPartnerName seeds the registry when a template has no partnered
// fields at all.
const DefaultPartnerName = "First Party"

// palette is the per-partner color coding, assigned by registry ordinal.
var palette = []string{
	"#2563eb", // blue
	"#dc2626", // red
	"#16a34a", // green
	"#d97706", // amber
	"#9333ea", // purple
	"#0891b2", // cyan
	"#db2777", // pink
	"#65a30d", // lime
}

// Registry is the ordered list of distinct non-empty partner names plus
// the current selection used as the default assignment target for newly
// drawn fields.
type Registry struct {
	names   []string
	current string
}

// NewRegistry builds a registry from observed partner names, dropping
// empty strings and duplicates while preserving first-seen order. The
// current selection starts at the first entry.
func NewRegistry(names []string) *Registry {
	r := &Registry{}
	for _, name := range names {
		if name == "" || r.Contains(name) {
			continue
		}
		r.names = append(r.names, name)
	}
	if len(r.names) > 0 {
		r.current = r.names[0]
	}
	return r
}

// Names returns the roster in order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the roster size.
func (r *Registry) Len() int {
	return len(r.names)
}

// Contains reports whether the name is registered.
func (r *Registry) Contains(name string) bool {
	return ectolinq.Contains(r.names, name)
}

// Current returns the current selection, or "" when the roster is empty.
func (r *Registry) Current() string {
	return r.current
}

// SetCurrent selects the default assignment target.
func (r *Registry) SetCurrent(name string) error {
	if !r.Contains(name) {
		return errors.NewEditorError("partner is not registered").AddPartner(name)
	}
	r.current = name
	return nil
}

// Add registers a new partner. An empty name generates the next ordinal
// one ("Partner 2", "Partner 3", ...). The added name is returned.
func (r *Registry) Add(name string) (string, error) {
	if name == "" {
		name = r.nextOrdinalName()
	}
	if r.Contains(name) {
		return "", errors.NewEditorError("partner already exists").AddPartner(name)
	}

	r.names = append(r.names, name)
	if r.current == "" {
		r.current = name
	}
	return name, nil
}

// Rename replaces oldName with newName in place, preserving order. The
// caller is responsible for rewriting fields that reference oldName in the
// same operation.
func (r *Registry) Rename(oldName, newName string) error {
	if newName == "" {
		return errors.NewEditorError("partner name must not be empty")
	}
	if oldName != newName && r.Contains(newName) {
		return errors.NewEditorError("partner already exists").AddPartner(newName)
	}

	for i, n := range r.names {
		if n == oldName {
			r.names[i] = newName
			if r.current == oldName {
				r.current = newName
			}
			return nil
		}
	}

	return errors.NewEditorError("partner is not registered").AddPartner(oldName)
}

// Remove drops the partner from the roster. When the removed partner was
// the current selection, current moves to the new first entry, or "" if
// none remain.
func (r *Registry) Remove(name string) error {
	if !r.Contains(name) {
		return errors.NewEditorError("partner is not registered").AddPartner(name)
	}

	r.names = ectolinq.Filter(r.names, func(n string) bool {
		return n != name
	})
	if r.current == name {
		r.current = ectolinq.First(r.names)
	}
	return nil
}

// First returns the first roster entry, the auto-assignment target for
// orphaned fields.
func (r *Registry) First() string {
	return ectolinq.First(r.names)
}

// Colors maps every registered partner to its palette color.
func (r *Registry) Colors() map[string]string {
	colors := make(map[string]string, len(r.names))
	for i, n := range r.names {
		colors[n] = palette[i%len(palette)]
	}
	return colors
}

func (r *Registry) nextOrdinalName() string {
	for i := len(r.names) + 1; ; i++ {
		candidate := fmt.Sprintf("Partner %d", i)
		if !r.Contains(candidate) {
			return candidate
		}
	}
}
