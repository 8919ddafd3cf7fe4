package sim

import (
	"container/heap"
	"fmt"
)

// eventHeap implements heap.Interface and orders events by (time, sequence).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// EventQueue yields pending events in nondecreasing time order. Ties are
// broken by insertion order: among events with equal timestamps, the one
// scheduled first is popped first. A departure that routes its agent onward
// at the same instant therefore interleaves with already-pending
// same-timestamp events in exact FIFO insertion order; replay with a fixed
// seed depends on this convention.
type EventQueue struct {
	events     eventHeap
	nextSeq    uint64
	lastPopped float64
}

// NewEventQueue returns an empty queue whose clock floor is zero.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// Len returns the number of pending events.
func (eq *EventQueue) Len() int { return len(eq.events) }

// Schedule inserts ev keyed by (ev.Time, insertion sequence). Scheduling
// strictly before the last popped time is a logic defect in the caller, not
// a modeled condition, and panics.
func (eq *EventQueue) Schedule(ev Event) {
	if ev.Time < eq.lastPopped {
		panic(fmt.Sprintf("sim: %v scheduled at t=%.6f, before current time t=%.6f",
			ev.Kind, ev.Time, eq.lastPopped))
	}
	ev.seq = eq.nextSeq
	eq.nextSeq++
	heap.Push(&eq.events, ev)
}

// PopNext removes and returns the event with the smallest (time, sequence)
// key. The second return value is false when the queue is empty.
func (eq *EventQueue) PopNext() (Event, bool) {
	if len(eq.events) == 0 {
		return Event{}, false
	}
	ev := heap.Pop(&eq.events).(Event)
	eq.lastPopped = ev.Time
	return ev, true
}
