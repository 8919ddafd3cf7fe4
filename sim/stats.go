// Statistics aggregation: per-queue and per-(queue, category) counters,
// time-weighted occupancy integrals, customer-weighted time sums, and the
// Little's-law cross-checks derived from them at the end of a run.

package sim

import "math"

// littleLawTolerance is the relative slack allowed before a Little's-law
// cross-check is flagged inconsistent.
const littleLawTolerance = 0.10

// occupancy accumulates one scope's raw material: a whole queue, or one
// category at one queue. Each integral advances by count-before-change ×
// elapsed whenever the occupancy changes; this is the standard time-average
// accumulator, not a snapshot average.
type occupancy struct {
	totalArrivals int
	accepted      int
	rejected      int
	served        int

	inSystem  int
	inQueue   int
	inService int

	lastChange  float64
	areaSystem  float64
	areaQueue   float64
	areaService float64

	sumWaiting float64
	sumService float64
	sumSystem  float64

	sumQueueLenOnArrival int
	maxQueueLenOnArrival int
}

// advance folds the interval since the last change into the integrals.
// Callers invoke it before mutating any occupancy count.
func (o *occupancy) advance(t float64) {
	dt := t - o.lastChange
	o.areaSystem += float64(o.inSystem) * dt
	o.areaQueue += float64(o.inQueue) * dt
	o.areaService += float64(o.inService) * dt
	o.lastChange = t
}

// Aggregator consumes the engine's state transitions as they happen and
// produces the final NetworkStats when the run completes.
type Aggregator struct {
	topo   *Topology
	queues []occupancy   // aggregate, per queue
	perCat [][]occupancy // [queue][category]
}

func newAggregator(topo *Topology) *Aggregator {
	a := &Aggregator{topo: topo}
	a.queues = make([]occupancy, len(topo.Queues))
	a.perCat = make([][]occupancy, len(topo.Queues))
	for q := range a.perCat {
		a.perCat[q] = make([]occupancy, len(topo.Categories))
	}
	return a
}

// scopes returns the aggregate and per-category accumulators a transition
// at (q, c) must update.
func (a *Aggregator) scopes(q, c int) [2]*occupancy {
	return [2]*occupancy{&a.queues[q], &a.perCat[q][c]}
}

func (a *Aggregator) recordArrival(q, c int) {
	for _, o := range a.scopes(q, c) {
		o.totalArrivals++
	}
}

func (a *Aggregator) recordRejection(q, c int) {
	for _, o := range a.scopes(q, c) {
		o.rejected++
	}
}

// recordAdmission notes an accepted arrival at time t. inService reports
// whether the agent went straight onto a server or joined the waiting list;
// queueLen is the waiting-list length the agent observed on arrival.
func (a *Aggregator) recordAdmission(q, c int, t float64, inService bool, queueLen int) {
	for _, o := range a.scopes(q, c) {
		o.accepted++
		o.sumQueueLenOnArrival += queueLen
		if queueLen > o.maxQueueLenOnArrival {
			o.maxQueueLenOnArrival = queueLen
		}
		o.advance(t)
		o.inSystem++
		if inService {
			o.inService++
		} else {
			o.inQueue++
		}
	}
}

// recordServiceStart moves one agent from the waiting list onto a server.
func (a *Aggregator) recordServiceStart(q, c int, t float64) {
	for _, o := range a.scopes(q, c) {
		o.advance(t)
		o.inQueue--
		o.inService++
	}
}

// recordDeparture removes the agent from the scope and folds its completed
// visit into the customer-weighted sums.
func (a *Aggregator) recordDeparture(q, c int, t float64, v Visit) {
	for _, o := range a.scopes(q, c) {
		o.advance(t)
		o.inService--
		o.inSystem--
		o.served++
		o.sumWaiting += v.WaitingTime()
		o.sumService += v.ServiceTime()
		o.sumSystem += v.SystemTime()
	}
}

// LittleLawCheck compares a time-averaged population against the product
// lambda_eff × W predicted by Little's Law.
type LittleLawCheck struct {
	Expected   float64
	Ratio      float64
	Consistent bool
}

func littleCheck(observed, lambdaEff, w float64) LittleLawCheck {
	chk := LittleLawCheck{Expected: lambdaEff * w}
	if chk.Expected > 0 {
		chk.Ratio = observed / chk.Expected
		chk.Consistent = math.Abs(chk.Ratio-1) <= littleLawTolerance
	}
	return chk
}

// QueueStats is the derived measure set for one scope: a queue, or one
// category's share of a queue.
type QueueStats struct {
	TotalArrivals int
	Accepted      int
	Rejected      int
	Served        int

	// Time-averaged populations: in system, waiting, in service.
	L, Lq, Ls float64
	// Server utilization, Ls / num_servers.
	Rho float64
	// Customer-averaged times over completed visits: system, waiting, service.
	W, Wq, Ws float64

	LambdaEff float64 // accepted / horizon
	PLoss     float64 // rejected / total arrivals

	AvgQueueLengthOnArrival float64
	MaxQueueLengthOnArrival int

	// End-of-run occupancy, for conservation checks:
	// accepted == served + WaitingAtEnd + InServiceAtEnd.
	WaitingAtEnd   int
	InServiceAtEnd int

	LittleL  LittleLawCheck // L vs lambda_eff × W
	LittleLq LittleLawCheck // Lq vs lambda_eff × Wq
}

// NetworkStats is the full statistics structure for one run.
type NetworkStats struct {
	Horizon float64
	// Queues[q] aggregates all categories at queue q.
	Queues []QueueStats
	// PerCategory[q][c] restricts queue q's measures to category c's agents.
	PerCategory [][]QueueStats
}

func derive(o *occupancy, horizon float64, numServers int) QueueStats {
	st := QueueStats{
		TotalArrivals: o.totalArrivals,
		Accepted:      o.accepted,
		Rejected:      o.rejected,
		Served:        o.served,

		L:  o.areaSystem / horizon,
		Lq: o.areaQueue / horizon,
		Ls: o.areaService / horizon,

		LambdaEff: float64(o.accepted) / horizon,

		MaxQueueLengthOnArrival: o.maxQueueLenOnArrival,
		WaitingAtEnd:            o.inQueue,
		InServiceAtEnd:          o.inService,
	}
	st.Rho = st.Ls / float64(numServers)
	if o.served > 0 {
		st.W = o.sumSystem / float64(o.served)
		st.Wq = o.sumWaiting / float64(o.served)
		st.Ws = o.sumService / float64(o.served)
	}
	if o.totalArrivals > 0 {
		st.PLoss = float64(o.rejected) / float64(o.totalArrivals)
	}
	if o.accepted > 0 {
		st.AvgQueueLengthOnArrival = float64(o.sumQueueLenOnArrival) / float64(o.accepted)
	}
	st.LittleL = littleCheck(st.L, st.LambdaEff, st.W)
	st.LittleLq = littleCheck(st.Lq, st.LambdaEff, st.Wq)
	return st
}

// finalize advances every integral to the horizon and derives the measures.
func (a *Aggregator) finalize(horizon float64) *NetworkStats {
	ns := &NetworkStats{
		Horizon:     horizon,
		Queues:      make([]QueueStats, 0, len(a.queues)),
		PerCategory: make([][]QueueStats, len(a.queues)),
	}
	for q := range a.queues {
		o := &a.queues[q]
		o.advance(horizon)
		ns.Queues = append(ns.Queues, derive(o, horizon, a.topo.Queues[q].NumServers))
	}
	for q := range a.perCat {
		for c := range a.perCat[q] {
			o := &a.perCat[q][c]
			o.advance(horizon)
			ns.PerCategory[q] = append(ns.PerCategory[q], derive(o, horizon, a.topo.Queues[q].NumServers))
		}
	}
	return ns
}
