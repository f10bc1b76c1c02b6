package form

import "github.com/goliatone/go-formctx/pkg/model"

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventValueChanged    EventKind = "valueChanged"
	EventContextSwitched EventKind = "contextSwitched"
	EventReset           EventKind = "reset"
	EventExternalChanged EventKind = "externalChanged"
	EventOptionsChanged  EventKind = "optionsChanged"
	EventFieldRegistered EventKind = "fieldRegistered"
	EventRecalculated    EventKind = "recalculated"
)

// Event is delivered to observers after a mutation has completed and the
// form has been recalculated.
type Event struct {
	Kind EventKind
	// Field is set for field-scoped events.
	Field  model.QualifiedName
	Active []string
	Valid  bool
}

// Observer receives events synchronously. Observers must not mutate the
// controller they observe; such calls fail with ErrReentrantMutation.
type Observer func(Event)

type subscription struct {
	id int
	fn Observer
}

// Subscribe registers an observer and returns a function removing it.
func (c *Controller) Subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}
	c.nextObserver++
	id := c.nextObserver
	c.observers = append(c.observers, subscription{id: id, fn: observer})
	return func() {
		for i, sub := range c.observers {
			if sub.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) notify(kind EventKind, field model.QualifiedName) {
	if len(c.observers) == 0 {
		return
	}
	event := Event{
		Kind:   kind,
		Field:  field,
		Active: c.ActiveContexts(),
		Valid:  c.IsValid(),
	}

	c.notifying = true
	defer func() { c.notifying = false }()

	for _, sub := range append([]subscription(nil), c.observers...) {
		sub.fn(event)
	}
}
