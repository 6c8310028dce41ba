package dom

import (
	"sort"
	"strings"
	"sync"
)

// Element is a page element bound to build-status display.
//
// All accessors are safe for concurrent use. Changes to the class set happen
// only inside [Document.Transition], which holds the element's write lock for
// the whole hide/mutate/reveal sequence.
type Element struct {
	id string

	mu          sync.RWMutex
	classes     map[string]struct{}
	data        map[string]string
	hidden      bool
	transitions int
}

// Snapshot is a point-in-time copy of an [Element], shaped for JSON.
type Snapshot struct {
	ID          string            `json:"id"`
	Classes     []string          `json:"classes"`
	Data        map[string]string `json:"data"`
	Visible     bool              `json:"visible"`
	Transitions int               `json:"transitions"`
}

// NewElement creates a visible element with the given id and classes.
// Empty class names are ignored.
func NewElement(id string, classes ...string) *Element {
	e := &Element{
		id:      id,
		classes: make(map[string]struct{}, len(classes)),
		data:    make(map[string]string),
	}
	for _, c := range classes {
		if c = strings.TrimSpace(c); c != "" {
			e.classes[c] = struct{}{}
		}
	}
	return e
}

// ID returns the element id.
func (e *Element) ID() string {
	return e.id
}

// Classes returns the element's classes in sorted order.
func (e *Element) Classes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedClasses(e.classes)
}

// HasClass reports whether the element carries class c.
func (e *Element) HasClass(c string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.classes[c]
	return ok
}

// Data returns the data attribute stored under key.
func (e *Element) Data(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.data[key]
	return v, ok
}

// Visible reports whether the element is shown.
func (e *Element) Visible() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.hidden
}

// Transitions returns how many transitions have been applied to the element.
func (e *Element) Transitions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transitions
}

// Snapshot returns a copy of the element's current state.
func (e *Element) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *Element) snapshotLocked() Snapshot {
	data := make(map[string]string, len(e.data))
	for k, v := range e.data {
		data[k] = v
	}
	return Snapshot{
		ID:          e.id,
		Classes:     sortedClasses(e.classes),
		Data:        data,
		Visible:     !e.hidden,
		Transitions: e.transitions,
	}
}

// Mutator edits an element while [Document.Transition] holds its lock.
// A Mutator must not be retained after the transition function returns.
type Mutator struct {
	e *Element
}

// Hide marks the element hidden.
func (m *Mutator) Hide() {
	m.e.hidden = true
}

// Show marks the element visible.
func (m *Mutator) Show() {
	m.e.hidden = false
}

// HasClass reports whether the element carries class c.
func (m *Mutator) HasClass(c string) bool {
	_, ok := m.e.classes[c]
	return ok
}

// AddClass adds class c. Empty names are ignored.
func (m *Mutator) AddClass(c string) {
	if c == "" {
		return
	}
	m.e.classes[c] = struct{}{}
}

// RemoveClass removes class c if present.
func (m *Mutator) RemoveClass(c string) {
	delete(m.e.classes, c)
}

// RemoveClassesFunc strips every class for which match returns true and
// returns the removed names in sorted order.
func (m *Mutator) RemoveClassesFunc(match func(class string) bool) []string {
	var removed []string
	for c := range m.e.classes {
		if match(c) {
			removed = append(removed, c)
		}
	}
	sort.Strings(removed)
	for _, c := range removed {
		delete(m.e.classes, c)
	}
	return removed
}

// Data returns the data attribute stored under key.
func (m *Mutator) Data(key string) (string, bool) {
	v, ok := m.e.data[key]
	return v, ok
}

// SetData stores a data attribute.
func (m *Mutator) SetData(key, value string) {
	m.e.data[key] = value
}

// DeleteData removes a data attribute if present.
func (m *Mutator) DeleteData(key string) {
	delete(m.e.data, key)
}

func sortedClasses(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Edit runs fn with the element locked. It is meant for setting up an
// element before it is bound; status changes go through [Document.Transition].
func (e *Element) Edit(fn func(m *Mutator)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&Mutator{e: e})
}
