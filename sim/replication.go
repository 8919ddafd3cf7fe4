package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Replication pairs one independent run's seed with its results.
type Replication struct {
	Seed    uint64
	Results *Results
}

// Estimate summarizes one measure across replications with a normal-theory
// 95% confidence interval.
type Estimate struct {
	Mean      float64
	StdDev    float64
	HalfWidth float64
}

func estimate(samples []float64) Estimate {
	mean, std := stat.MeanStdDev(samples, nil)
	e := Estimate{Mean: mean, StdDev: std}
	if n := len(samples); n > 1 {
		e.HalfWidth = 1.96 * std / math.Sqrt(float64(n))
	}
	return e
}

// ReplicationSummary aggregates the headline per-queue measures across
// replications, indexed by queue.
type ReplicationSummary struct {
	L     []Estimate
	Lq    []Estimate
	W     []Estimate
	Wq    []Estimate
	PLoss []Estimate
}

// RunReplications executes n independent replications of topo over the same
// horizon. Replication i is seeded with baseSeed+i and owns its generator
// and network state, so the runs are statistically independent and each one
// is individually reproducible. Replications run sequentially; parallelism
// inside a single run is never permissible, but callers needing wall-clock
// speed can shard seeds across processes with the same contract.
func RunReplications(topo *Topology, horizon float64, n int, baseSeed uint64) ([]Replication, *ReplicationSummary, error) {
	reps := make([]Replication, 0, n)
	for i := 0; i < n; i++ {
		seed := baseSeed + uint64(i)
		s, err := NewSimulator(topo, seed, horizon)
		if err != nil {
			return nil, nil, err
		}
		reps = append(reps, Replication{Seed: seed, Results: s.Run()})
	}

	numQueues := len(topo.Queues)
	summary := &ReplicationSummary{
		L:     make([]Estimate, numQueues),
		Lq:    make([]Estimate, numQueues),
		W:     make([]Estimate, numQueues),
		Wq:    make([]Estimate, numQueues),
		PLoss: make([]Estimate, numQueues),
	}
	for q := 0; q < numQueues; q++ {
		var l, lq, w, wq, ploss []float64
		for _, r := range reps {
			qs := r.Results.Stats.Queues[q]
			l = append(l, qs.L)
			lq = append(lq, qs.Lq)
			w = append(w, qs.W)
			wq = append(wq, qs.Wq)
			ploss = append(ploss, qs.PLoss)
		}
		summary.L[q] = estimate(l)
		summary.Lq[q] = estimate(lq)
		summary.W[q] = estimate(w)
		summary.Wq[q] = estimate(wq)
		summary.PLoss[q] = estimate(ploss)
	}
	return reps, summary, nil
}
