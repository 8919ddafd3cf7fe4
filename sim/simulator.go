// Package sim implements a discrete-event simulator for open multi-class
// queueing networks. Agents arrive from outside in a Poisson stream, move
// between stations by per-category probabilistic routing, compete for
// parallel servers under FIFO discipline and finite or infinite capacity,
// and eventually leave the network. A run is strictly sequential: the
// virtual clock advances only by popping the next event, and all randomness
// comes from one seeded VariateSource, so the same topology and seed replay
// the exact same trajectory.
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Results carries everything one run produces: the per-agent-per-queue
// visit log in departure order, the rejection log, and the final statistics.
type Results struct {
	Visits     []Visit
	Rejections []Rejection
	Stats      *NetworkStats
}

// Simulator is the core object that holds simulation time, network state,
// and the event loop. It owns its VariateSource and Stations exclusively;
// nothing mutates them mid-run.
type Simulator struct {
	topo     *Topology
	rng      *VariateSource
	events   *EventQueue
	stations []*Station
	stats    *Aggregator

	clock   float64
	horizon float64

	active      map[int]*Agent
	nextAgentID int

	// arrivalProbs[c] caches Categories[c].ArrivalProbability for the
	// categorical draw on each external arrival.
	arrivalProbs []float64

	visits     []Visit
	rejections []Rejection
}

// NewSimulator validates topo and builds a simulator with its own variate
// source seeded by seed. Validation failing here means the external loader
// let a defect through; the engine refuses to run rather than produce
// garbage statistics.
func NewSimulator(topo *Topology, seed uint64, horizon float64) (*Simulator, error) {
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %g", horizon)
	}

	s := &Simulator{
		topo:    topo,
		rng:     NewVariateSource(seed),
		events:  NewEventQueue(),
		stats:   newAggregator(topo),
		horizon: horizon,
		active:  make(map[int]*Agent),
	}
	for i, spec := range topo.Queues {
		s.stations = append(s.stations, newStation(i, spec))
	}
	s.arrivalProbs = make([]float64, len(topo.Categories))
	for c, cat := range topo.Categories {
		s.arrivalProbs[c] = cat.ArrivalProbability
	}
	return s, nil
}

// Clock returns the current simulation time.
func (s *Simulator) Clock() float64 { return s.clock }

// Station exposes the runtime state of queue q, mainly for tests and
// post-run inspection.
func (s *Simulator) Station(q int) *Station { return s.stations[q] }

// Run executes the event loop until the event queue drains or the next
// event lies past the horizon, then finalizes statistics at the horizon.
func (s *Simulator) Run() *Results {
	s.scheduleNextExternalArrival()

	for {
		ev, ok := s.events.PopNext()
		if !ok || ev.Time > s.horizon {
			break
		}
		s.clock = ev.Time
		logrus.Debugf("[t=%10.4f] %v queue=%d agent=%d", s.clock, ev.Kind, ev.Queue, ev.Agent)
		switch ev.Kind {
		case Arrival:
			s.handleArrival(ev)
		case Departure:
			s.handleDeparture(ev)
		}
	}

	stats := s.stats.finalize(s.horizon)
	logrus.Infof("simulation ended at t=%.4f: %d visits, %d rejections",
		s.clock, len(s.visits), len(s.rejections))
	return &Results{Visits: s.visits, Rejections: s.rejections, Stats: stats}
}

// scheduleNextExternalArrival draws the next interarrival interval and the
// arriving agent's category, in that order. Both draws are consumed even
// when the arrival would land past the horizon (the event is then simply
// not scheduled), so the draw sequence does not depend on where the horizon
// falls.
func (s *Simulator) scheduleNextExternalArrival() {
	interval := s.rng.Exponential(s.topo.Arrivals.Rate)
	category := s.rng.Categorical(s.arrivalProbs)

	t := s.clock + interval
	if t > s.horizon {
		return
	}
	ag := &Agent{ID: s.nextAgentID, Category: category}
	s.nextAgentID++
	s.active[ag.ID] = ag
	s.events.Schedule(Event{
		Time:     t,
		Kind:     Arrival,
		Queue:    s.topo.Arrivals.Queue,
		Agent:    ag.ID,
		Server:   noAgent,
		External: true,
	})
}

// handleArrival runs admission control and either starts service, appends
// the agent to the FIFO list, or rejects it. The capacity check and server
// assignment are atomic within this event; processing is strictly
// sequential so no other event can interleave mid-decision.
func (s *Simulator) handleArrival(ev Event) {
	ag := s.active[ev.Agent]
	st := s.stations[ev.Queue]

	s.stats.recordArrival(ev.Queue, ag.Category)

	if st.Full() {
		s.stats.recordRejection(ev.Queue, ag.Category)
		s.rejections = append(s.rejections, Rejection{
			AgentID:  ag.ID,
			Category: ag.Category,
			QueueID:  ev.Queue,
			Time:     ev.Time,
		})
		delete(s.active, ag.ID)
		logrus.Debugf("queue %d full, agent %d rejected", ev.Queue, ag.ID)
	} else {
		queueLen := st.WaitingCount()
		ag.visit = Visit{
			AgentID:              ag.ID,
			Category:             ag.Category,
			QueueID:              ev.Queue,
			ArrivalTime:          ev.Time,
			ServerID:             noAgent,
			QueueLengthOnArrival: queueLen,
		}
		if srv := st.freeServer(); srv != nil {
			s.stats.recordAdmission(ev.Queue, ag.Category, ev.Time, true, queueLen)
			s.startService(st, srv, ag, ev.Time)
		} else {
			s.stats.recordAdmission(ev.Queue, ag.Category, ev.Time, false, queueLen)
			st.enqueue(ag.ID)
		}
	}

	if ev.External {
		s.scheduleNextExternalArrival()
	}
}

// handleDeparture frees the server, hands it to the waiting-list head if
// any, then routes the departing agent onward or out of the network.
func (s *Simulator) handleDeparture(ev Event) {
	ag := s.active[ev.Agent]
	st := s.stations[ev.Queue]
	srv := st.Servers[ev.Server]

	if held := srv.release(); held != ag.ID {
		panic(fmt.Sprintf("sim: server %d at queue %d held agent %d, not departing agent %d",
			ev.Server, ev.Queue, held, ag.ID))
	}
	ag.visit.DepartureTime = ev.Time
	s.stats.recordDeparture(ev.Queue, ag.Category, ev.Time, ag.visit)
	s.visits = append(s.visits, ag.visit)

	if next := st.dequeue(); next != noAgent {
		nextAg := s.active[next]
		s.stats.recordServiceStart(st.ID, nextAg.Category, ev.Time)
		s.startService(st, srv, nextAg, ev.Time)
	}

	if dest := s.route(ag.Category, ev.Queue); dest != exitNetwork {
		// Zero-delay transition: the destination arrival goes through the
		// event queue at the departure instant rather than being handled
		// inline, so same-timestamp ordering stays FIFO.
		s.events.Schedule(Event{
			Time:   ev.Time,
			Kind:   Arrival,
			Queue:  dest,
			Agent:  ag.ID,
			Server: noAgent,
		})
	} else {
		delete(s.active, ag.ID)
	}
}

// startService puts ag on srv, draws the service duration from the agent's
// own category rate at this queue, and schedules the departure.
func (s *Simulator) startService(st *Station, srv *Server, ag *Agent, t float64) {
	srv.assign(ag.ID)
	ag.visit.ServiceStartTime = t
	ag.visit.ServerID = srv.ID

	rate := s.topo.Categories[ag.Category].ServiceRates[st.ID]
	duration := s.rng.Exponential(rate)
	s.events.Schedule(Event{
		Time:   t + duration,
		Kind:   Departure,
		Queue:  st.ID,
		Agent:  ag.ID,
		Server: srv.ID,
	})
}

// exitNetwork is the routing outcome for an agent leaving the system.
const exitNetwork = -1

// route draws the departing agent's next destination with one uniform draw
// walked over the cumulative routing row; landing beyond the row's total
// mass means the agent exits.
func (s *Simulator) route(category, queue int) int {
	row := s.topo.Categories[category].Routing[queue]
	u := s.rng.Uniform()
	cum := 0.0
	for j, p := range row {
		cum += p
		if u < cum {
			return j
		}
	}
	return exitNetwork
}
