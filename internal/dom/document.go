package dom

import (
	"fmt"
	"sync"
	"time"
)

// subscriberBuffer is the channel buffer handed to each subscriber.
const subscriberBuffer = 100

// EventKind identifies what happened to an element.
type EventKind string

const (
	// EventTransition is published after an element completed a
	// hide/mutate/reveal transition.
	EventTransition EventKind = "transition"

	// EventSnapshot carries an element's current state without a change.
	// Servers send one per element when a client connects.
	EventSnapshot EventKind = "snapshot"
)

// Event describes a change to a single element.
type Event struct {
	Kind    EventKind `json:"kind"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to"`
	Element Snapshot  `json:"element"`
	At      time.Time `json:"at"`
}

// Document is the set of elements known to the page.
//
// Document is safe for concurrent use. Subscribers receive events via
// buffered channels; if a subscriber's buffer is full the event is dropped
// for that subscriber rather than blocking the reconciler.
type Document struct {
	mu       sync.RWMutex
	elements map[string]*Element
	order    []string

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewDocument creates an empty [Document].
func NewDocument() *Document {
	return &Document{
		elements:    make(map[string]*Element),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Add inserts an element. Element ids must be unique within a document.
func (d *Document) Add(el *Element) error {
	if el == nil {
		return fmt.Errorf("element cannot be nil")
	}
	if el.ID() == "" {
		return fmt.Errorf("element id cannot be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.elements[el.ID()]; exists {
		return fmt.Errorf("duplicate element id: %q", el.ID())
	}
	d.elements[el.ID()] = el
	d.order = append(d.order, el.ID())
	return nil
}

// Get returns the element with the given id.
func (d *Document) Get(id string) (*Element, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	el, ok := d.elements[id]
	return el, ok
}

// Len returns the number of elements.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Select returns the elements carrying class, in insertion order.
func (d *Document) Select(class string) []*Element {
	d.mu.RLock()
	all := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		all = append(all, d.elements[id])
	}
	d.mu.RUnlock()

	out := make([]*Element, 0, len(all))
	for _, el := range all {
		if el.HasClass(class) {
			out = append(out, el)
		}
	}
	return out
}

// Snapshot returns copies of all elements in insertion order.
func (d *Document) Snapshot() []Snapshot {
	d.mu.RLock()
	all := make([]*Element, 0, len(d.order))
	for _, id := range d.order {
		all = append(all, d.elements[id])
	}
	d.mu.RUnlock()

	out := make([]Snapshot, 0, len(all))
	for _, el := range all {
		out = append(out, el.Snapshot())
	}
	return out
}

// Transition hides el, runs fn, reveals el and publishes an [EventTransition].
//
// The element's write lock is held for the whole sequence, so concurrent
// readers see either the state before or the state after, never the hidden
// intermediate one.
func (d *Document) Transition(el *Element, from, to string, fn func(m *Mutator)) Event {
	el.mu.Lock()
	m := &Mutator{e: el}
	m.Hide()
	fn(m)
	m.Show()
	el.transitions++
	snap := el.snapshotLocked()
	el.mu.Unlock()

	ev := Event{
		Kind:    EventTransition,
		From:    from,
		To:      to,
		Element: snap,
		At:      time.Now(),
	}
	d.notifySubscribers(ev)
	return ev
}

// SnapshotEvents returns one [EventSnapshot] per element, in insertion order.
func (d *Document) SnapshotEvents() []Event {
	now := time.Now()
	snaps := d.Snapshot()
	out := make([]Event, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Event{
			Kind:    EventSnapshot,
			To:      s.Data["status"],
			Element: s,
			At:      now,
		})
	}
	return out
}

// Subscribe returns a channel that receives element events.
//
// Caller must call [Document.Unsubscribe] when done.
func (d *Document) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	d.subMu.Lock()
	d.subscribers[ch] = struct{}{}
	d.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (d *Document) Unsubscribe(ch <-chan Event) {
	d.subMu.Lock()
	defer d.subMu.Unlock()

	for subCh := range d.subscribers {
		if subCh == ch {
			delete(d.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends ev to all subscribers without blocking.
func (d *Document) notifySubscribers(ev Event) {
	d.subMu.RLock()
	defer d.subMu.RUnlock()

	for ch := range d.subscribers {
		select {
		case ch <- ev:
		default:
			// subscriber is slow, drop the event
		}
	}
}
