package sim

import (
	"fmt"
	"math"
)

// CapacityInfinite marks a queue with unbounded room.
const CapacityInfinite = -1

// probTolerance bounds floating-point slack when checking probability sums.
const probTolerance = 1e-6

// QueueSpec describes one service station: its parallel server count and
// its total capacity (agents in service plus agents waiting).
type QueueSpec struct {
	NumServers int
	Capacity   int
}

// Infinite reports whether the queue admits every arrival.
func (q QueueSpec) Infinite() bool { return q.Capacity == CapacityInfinite }

// Category is one customer class: its share of external arrivals, its
// service rate at each queue, and its routing behavior. Immutable after
// validation.
type Category struct {
	Name               string
	ArrivalProbability float64
	// ServiceRates[q] is the exponential service rate for this category at
	// queue q.
	ServiceRates []float64
	// Routing[q] is a probability distribution over destination queues after
	// service at queue q. The row's deficit from 1.0 is the probability of
	// leaving the network.
	Routing [][]float64
}

// ArrivalSpec configures the external Poisson arrival stream.
type ArrivalSpec struct {
	Rate  float64 // external arrival rate (lambda)
	Queue int     // index of the queue receiving external arrivals
}

// Topology is the immutable post-validation description of a network.
// Queues and categories are identified by contiguous indices fixed at load
// time; the engine trusts a validated Topology and performs no per-event
// checks against it.
type Topology struct {
	Queues     []QueueSpec
	Categories []Category
	Arrivals   ArrivalSpec
}

// Validate checks the structural invariants an external loader is expected
// to have established. The engine refuses to run on a Topology that fails
// here: a configuration defect must surface as an error, never as silently
// wrong statistics.
func (t *Topology) Validate() error {
	n := len(t.Queues)
	if n == 0 {
		return fmt.Errorf("topology has no queues")
	}
	for i, q := range t.Queues {
		if q.NumServers <= 0 {
			return fmt.Errorf("queue %d: num_servers must be positive, got %d", i, q.NumServers)
		}
		if q.Capacity != CapacityInfinite && q.Capacity <= 0 {
			return fmt.Errorf("queue %d: finite capacity must be positive, got %d", i, q.Capacity)
		}
	}

	if len(t.Categories) == 0 {
		return fmt.Errorf("topology has no categories")
	}
	totalProb := 0.0
	for _, cat := range t.Categories {
		if cat.ArrivalProbability < 0 || cat.ArrivalProbability > 1 {
			return fmt.Errorf("category %q: arrival_probability must be in [0, 1], got %g",
				cat.Name, cat.ArrivalProbability)
		}
		totalProb += cat.ArrivalProbability

		if len(cat.ServiceRates) != n {
			return fmt.Errorf("category %q: service_rates has %d entries, want %d",
				cat.Name, len(cat.ServiceRates), n)
		}
		for i, rate := range cat.ServiceRates {
			if rate <= 0 {
				return fmt.Errorf("category %q: service rate at queue %d must be positive, got %g",
					cat.Name, i, rate)
			}
		}

		if len(cat.Routing) != n {
			return fmt.Errorf("category %q: routing matrix has %d rows, want %d",
				cat.Name, len(cat.Routing), n)
		}
		for i, row := range cat.Routing {
			if len(row) != n {
				return fmt.Errorf("category %q: routing row %d has %d columns, want %d",
					cat.Name, i, len(row), n)
			}
			rowSum := 0.0
			for j, p := range row {
				if p < 0 || p > 1 {
					return fmt.Errorf("category %q: routing[%d][%d] must be in [0, 1], got %g",
						cat.Name, i, j, p)
				}
				rowSum += p
			}
			if rowSum > 1+probTolerance {
				return fmt.Errorf("category %q: routing row %d sums to %g > 1", cat.Name, i, rowSum)
			}
		}
	}
	if math.Abs(totalProb-1) > probTolerance {
		return fmt.Errorf("category arrival probabilities sum to %g, want 1", totalProb)
	}

	if t.Arrivals.Rate <= 0 {
		return fmt.Errorf("external arrival rate must be positive, got %g", t.Arrivals.Rate)
	}
	if t.Arrivals.Queue < 0 || t.Arrivals.Queue >= n {
		return fmt.Errorf("arrival queue %d out of range [0, %d)", t.Arrivals.Queue, n)
	}
	return nil
}
