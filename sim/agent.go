// Record types for agents moving through the network. These are pure data
// carriers consumed by downstream reporting; they hold no references back
// into engine state.

package sim

// Visit is one agent's completed record at one queue. Visits are appended
// to the run's log in departure order.
type Visit struct {
	AgentID              int
	Category             int
	QueueID              int
	ArrivalTime          float64
	ServiceStartTime     float64
	DepartureTime        float64
	ServerID             int
	QueueLengthOnArrival int
}

// WaitingTime is the time spent in the FIFO list before service began.
func (v Visit) WaitingTime() float64 { return v.ServiceStartTime - v.ArrivalTime }

// ServiceTime is the time spent occupying a server.
func (v Visit) ServiceTime() float64 { return v.DepartureTime - v.ServiceStartTime }

// SystemTime is the total time at the queue, waiting plus service.
func (v Visit) SystemTime() float64 { return v.DepartureTime - v.ArrivalTime }

// Rejection records an arrival turned away by admission control. A
// rejection is a normal simulated outcome, counted in statistics and never
// raised as an error; the rejected agent's journey ends entirely.
type Rejection struct {
	AgentID  int
	Category int
	QueueID  int
	Time     float64
}

// Agent is an entity moving through the network. The engine keeps one Agent
// per active entity; visit holds the in-progress record at the agent's
// current queue and is copied into the completed log on departure. The same
// logical agent opens a fresh visit at each queue it is routed to.
type Agent struct {
	ID       int
	Category int

	visit Visit
}
