package sim

// EventKind enumerates the closed set of event types the engine dispatches
// on. Keeping the set closed lets the dispatch switch be exhaustive.
type EventKind int

const (
	// Arrival is an agent entering a queue, either from outside the network
	// or routed onward after service elsewhere.
	Arrival EventKind = iota
	// Departure is an agent completing service at a queue.
	Departure
)

func (k EventKind) String() string {
	switch k {
	case Arrival:
		return "ARRIVAL"
	case Departure:
		return "DEPARTURE"
	default:
		return "UNKNOWN"
	}
}

// Event is one timestamped state transition. Events are plain values,
// scheduled once and consumed exactly once when popped from the EventQueue.
type Event struct {
	Time  float64
	Kind  EventKind
	Queue int
	Agent int
	// Server identifies the slot being freed; meaningful for Departure only.
	Server int
	// External marks an arrival from outside the network. Only external
	// arrivals trigger the draw for the next one, so a routed transition into
	// the arrival queue cannot multiply the external stream.
	External bool

	seq uint64 // insertion order, assigned by EventQueue.Schedule
}
