package buildwatch

import (
	"fmt"
	"time"

	"github.com/jpalmerr/buildwatch/internal/dom"
)

const (
	statusDataKey = "status"
	titleDataKey  = "title"
)

// Phase is one step of a visual status transition.
type Phase string

const (
	PhaseHide   Phase = "hide"
	PhaseStrip  Phase = "strip"
	PhaseApply  Phase = "apply"
	PhaseStore  Phase = "store"
	PhaseReveal Phase = "reveal"
)

// transitionPhases is the fixed order every non-empty plan follows.
var transitionPhases = []Phase{PhaseHide, PhaseStrip, PhaseApply, PhaseStore, PhaseReveal}

// TransitionPlan describes what reconciling one element requires.
// A plan with no phases is a no-op.
type TransitionPlan struct {
	From   Status
	To     Status
	Phases []Phase
}

// IsNoop reports whether the plan leaves the element untouched.
func (p TransitionPlan) IsNoop() bool {
	return len(p.Phases) == 0
}

// Plan decides how an element whose last-applied label is stored moves to
// next. Equal labels yield a no-op; anything else yields the full
// hide/strip/apply/store/reveal sequence. Plan has no side effects.
func Plan(stored, next Status) TransitionPlan {
	p := TransitionPlan{From: stored, To: next}
	if stored == next {
		return p
	}
	p.Phases = append([]Phase(nil), transitionPhases...)
	return p
}

// Transition reports a plan that was applied to a bound element.
type Transition struct {
	ElementID string
	From      Status
	To        Status
	At        time.Time
}

// Binding is a snapshot of one element bound to build-status display.
type Binding struct {
	ID          string
	Status      Status
	Classes     []string
	Title       string
	Visible     bool
	Transitions int
}

// newBindingElement creates an element marked with [BindingClass]. A
// non-empty initial label is rendered and stored so the element starts out
// satisfying the class/label invariant.
func newBindingElement(id string, initial Status) *dom.Element {
	el := dom.NewElement(id, BindingClass)
	if initial != "" {
		el.Edit(func(m *dom.Mutator) {
			applyStatus(m, initial)
		})
	}
	return el
}

// applyPlan executes the mutating phases of p. Hide and reveal are carried
// out by dom.Document.Transition around this call.
func applyPlan(m *dom.Mutator, p TransitionPlan) {
	for _, phase := range p.Phases {
		switch phase {
		case PhaseStrip:
			stripStatusClasses(m, p.From)
		case PhaseApply:
			m.AddClass(p.To.ClassName())
		case PhaseStore:
			m.SetData(statusDataKey, string(p.To))
			if tip := p.To.Tooltip(); tip != "" {
				m.SetData(titleDataKey, tip)
			} else {
				m.DeleteData(titleDataKey)
			}
		}
	}
}

// applyStatus renders s on an element outside of a transition.
func applyStatus(m *dom.Mutator, s Status) {
	applyPlan(m, TransitionPlan{
		To:     s,
		Phases: []Phase{PhaseStrip, PhaseApply, PhaseStore},
	})
}

// stripStatusClasses removes the tags of every known label and of the
// stored one. The binding marker and unrelated build-* classes stay.
func stripStatusClasses(m *dom.Mutator, stored Status) {
	m.RemoveClassesFunc(func(c string) bool {
		if stored != "" && c == stored.ClassName() {
			return true
		}
		_, ok := statusFromClass(c)
		return ok
	})
}

// reconcile applies rec to every bound element of doc and returns the
// transitions that were performed, in document order.
func reconcile(doc *dom.Document, rec StatusRecord) []Transition {
	var out []Transition
	for _, el := range doc.Select(BindingClass) {
		stored, _ := el.Data(statusDataKey)
		plan := Plan(Status(stored), rec.Status)
		if plan.IsNoop() {
			continue
		}

		ev := doc.Transition(el, string(plan.From), string(plan.To), func(m *dom.Mutator) {
			applyPlan(m, plan)
		})
		out = append(out, Transition{
			ElementID: el.ID(),
			From:      plan.From,
			To:        plan.To,
			At:        ev.At,
		})
	}
	return out
}

// bindingFromSnapshot converts an element snapshot to the public type.
func bindingFromSnapshot(s dom.Snapshot) Binding {
	return Binding{
		ID:          s.ID,
		Status:      Status(s.Data[statusDataKey]),
		Classes:     s.Classes,
		Title:       s.Data[titleDataKey],
		Visible:     s.Visible,
		Transitions: s.Transitions,
	}
}

// bindingElementFromClasses creates a bound element from existing markup.
// A single known status tag among classes seeds the stored label; more than
// one would break the one-tag invariant and is rejected. Other build-*
// classes are kept as they are.
func bindingElementFromClasses(id string, classes []string) (*dom.Element, error) {
	var seeded []Status
	for _, c := range classes {
		if s, ok := statusFromClass(c); ok {
			seeded = append(seeded, s)
		}
	}
	if len(seeded) > 1 {
		return nil, fmt.Errorf("element %q carries %d status classes, want at most 1", id, len(seeded))
	}

	el := dom.NewElement(id, append([]string{BindingClass}, classes...)...)
	if len(seeded) == 1 {
		el.Edit(func(m *dom.Mutator) {
			applyStatus(m, seeded[0])
		})
	}
	return el, nil
}
