// Package events carries the routing core's change notifications: every
// committed mutation of a source or source output posts one fire-and-forget
// event that subscribers observe after the fact.
package events

// Facility names the kind of object an event is about.
type Facility uint8

const (
	FacilitySource Facility = iota
	FacilitySourceOutput
)

func (f Facility) String() string {
	switch f {
	case FacilitySource:
		return "source"
	case FacilitySourceOutput:
		return "source-output"
	default:
		return "unknown"
	}
}

// Action names what happened to the object.
type Action uint8

const (
	ActionNew Action = iota
	ActionChange
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionNew:
		return "new"
	case ActionChange:
		return "change"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event identifies one committed mutation by facility, action and object
// index.
type Event struct {
	Facility Facility `json:"facility"`
	Action   Action   `json:"action"`
	Index    uint32   `json:"index"`
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus fans events out to subscribers synchronously, in subscription order.
// Posting happens strictly after the mutation it reports, so a callback
// always observes consistent state. The bus is confined to the goroutine
// owning the routing core.
type Bus struct {
	subs   []subscriber
	nextID uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns its cancel function. Cancelling inside
// a callback is allowed; the current fan-out still completes.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range b.subs {
			if sub.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Post delivers ev to every current subscriber.
func (b *Bus) Post(ev Event) {
	// Snapshot so a callback cancelling itself does not skip others.
	subs := b.subs
	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	return len(b.subs)
}
