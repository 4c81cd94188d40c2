package battle

// EventKind classifies a MatchEvent.
type EventKind string

const (
	EventSkill    EventKind = "skill"
	EventBurst    EventKind = "burst"
	EventDamage   EventKind = "damage"
	EventHeal     EventKind = "heal"
	EventDodge    EventKind = "dodge"
	EventStatus   EventKind = "status"
	EventEcho     EventKind = "echo"
	EventPassive  EventKind = "passive"
	EventModifier EventKind = "modifier"
)

// Event is one append-only entry of the battle narrative.
type Event struct {
	Kind   EventKind      `json:"type"`
	Detail string         `json:"detail"`
	Data   map[string]any `json:"data,omitempty"`
}

// Sink receives events in the order they happen.
type Sink func(Event)

// Collect returns a Sink appending to *dst.
func Collect(dst *[]Event) Sink {
	return func(e Event) { *dst = append(*dst, e) }
}
