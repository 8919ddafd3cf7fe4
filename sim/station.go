// Implements the Station, the mutable per-queue state: server slots and the
// FIFO waiting list. Agents wait by id; service starts in arrival order.

package sim

// Station is one queue's runtime state. The immutable shape lives in the
// QueueSpec it was built from.
type Station struct {
	ID      int
	Spec    QueueSpec
	Servers []*Server

	waiting []int // agent ids in arrival order
}

func newStation(id int, spec QueueSpec) *Station {
	st := &Station{ID: id, Spec: spec}
	st.Servers = make([]*Server, spec.NumServers)
	for i := range st.Servers {
		st.Servers[i] = newServer(i)
	}
	return st
}

// freeServer returns the lowest-indexed idle server, or nil when all are
// busy.
func (st *Station) freeServer() *Server {
	for _, s := range st.Servers {
		if !s.Busy() {
			return s
		}
	}
	return nil
}

// InServiceCount returns the number of busy servers.
func (st *Station) InServiceCount() int {
	n := 0
	for _, s := range st.Servers {
		if s.Busy() {
			n++
		}
	}
	return n
}

// WaitingCount returns the number of agents in the FIFO list.
func (st *Station) WaitingCount() int { return len(st.waiting) }

// Full reports whether the station is at capacity: agents in service plus
// agents waiting have reached the configured bound. Infinite-capacity
// stations are never full.
func (st *Station) Full() bool {
	if st.Spec.Infinite() {
		return false
	}
	return st.InServiceCount()+st.WaitingCount() >= st.Spec.Capacity
}

// enqueue appends an agent to the back of the waiting list.
func (st *Station) enqueue(agentID int) {
	st.waiting = append(st.waiting, agentID)
}

// dequeue pops the head of the waiting list, or noAgent when empty.
func (st *Station) dequeue() int {
	if len(st.waiting) == 0 {
		return noAgent
	}
	id := st.waiting[0]
	st.waiting = st.waiting[1:]
	return id
}
