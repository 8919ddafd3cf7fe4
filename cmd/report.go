// Plain-text report tables for simulation results, printed at the end of a
// run. Layout follows the measure set reported by the statistics
// aggregator: populations (L, Lq, Ls), times (W, Wq, Ws), utilization,
// effective arrival rate, loss probability, and the Little's-law checks.

package cmd

import (
	"fmt"
	"io"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/analytic"
)

func printQueueStats(w io.Writer, st sim.QueueStats) {
	fmt.Fprintf(w, "  Arrivals (total/accepted/rejected): %d / %d / %d\n",
		st.TotalArrivals, st.Accepted, st.Rejected)
	fmt.Fprintf(w, "  Served:              %d\n", st.Served)
	fmt.Fprintf(w, "  L / Lq / Ls:         %.4f / %.4f / %.4f\n", st.L, st.Lq, st.Ls)
	fmt.Fprintf(w, "  W / Wq / Ws:         %.4f / %.4f / %.4f\n", st.W, st.Wq, st.Ws)
	fmt.Fprintf(w, "  Utilization (rho):   %.4f\n", st.Rho)
	fmt.Fprintf(w, "  Effective lambda:    %.4f\n", st.LambdaEff)
	if st.Rejected > 0 {
		fmt.Fprintf(w, "  P(loss):             %.4f\n", st.PLoss)
	}
	fmt.Fprintf(w, "  Queue length on arrival (avg/max): %.2f / %d\n",
		st.AvgQueueLengthOnArrival, st.MaxQueueLengthOnArrival)
	fmt.Fprintf(w, "  Little's Law L=lambda*W:   ratio %.3f (%s)\n",
		st.LittleL.Ratio, consistency(st.LittleL))
	fmt.Fprintf(w, "  Little's Law Lq=lambda*Wq: ratio %.3f (%s)\n",
		st.LittleLq.Ratio, consistency(st.LittleLq))
}

func consistency(chk sim.LittleLawCheck) string {
	if chk.Consistent {
		return "consistent"
	}
	return "INCONSISTENT"
}

// PrintResults writes the per-queue statistics tables, plus per-category
// breakdowns when requested.
func PrintResults(w io.Writer, topo *sim.Topology, res *sim.Results, perCategory bool) {
	fmt.Fprintln(w, "=== Simulation Results ===")
	fmt.Fprintf(w, "Horizon: %g   Visits: %d   Rejections: %d\n",
		res.Stats.Horizon, len(res.Visits), len(res.Rejections))

	for q, st := range res.Stats.Queues {
		spec := topo.Queues[q]
		capacity := "inf"
		if !spec.Infinite() {
			capacity = fmt.Sprintf("%d", spec.Capacity)
		}
		fmt.Fprintf(w, "\nQueue %d (%d server(s), capacity=%s):\n", q, spec.NumServers, capacity)
		printQueueStats(w, st)
	}

	if perCategory {
		for c, cat := range topo.Categories {
			fmt.Fprintf(w, "\n--- Category %q ---\n", cat.Name)
			for q := range res.Stats.PerCategory {
				fmt.Fprintf(w, "\nQueue %d:\n", q)
				printQueueStats(w, res.Stats.PerCategory[q][c])
			}
		}
	}
}

// PrintComparison writes simulated and closed-form measures side by side.
func PrintComparison(w io.Writer, stats *sim.NetworkStats, theory *analytic.NetworkResult) {
	fmt.Fprintln(w, "=== Simulated vs Theoretical ===")
	fmt.Fprintf(w, "%-8s %12s %12s %12s %12s %12s %12s\n",
		"queue", "L(sim)", "L(theory)", "Lq(sim)", "Lq(theory)", "W(sim)", "W(theory)")
	for q, st := range stats.Queues {
		th := theory.Queues[q]
		fmt.Fprintf(w, "%-8d %12.4f %12.4f %12.4f %12.4f %12.4f %12.4f\n",
			q, st.L, th.L, st.Lq, th.Lq, st.W, th.W)
	}
	fmt.Fprintf(w, "\nEffective arrival rates (theory): %v\n", theory.Effective)
	fmt.Fprintf(w, "Utilizations (theory):            %v\n", theory.Rho)
}

// PrintReplicationSummary writes cross-replication estimates with 95%
// confidence half-widths.
func PrintReplicationSummary(w io.Writer, topo *sim.Topology, summary *sim.ReplicationSummary, n int) {
	fmt.Fprintf(w, "=== Replication Summary (%d runs) ===\n", n)
	for q := range topo.Queues {
		fmt.Fprintf(w, "\nQueue %d:\n", q)
		fmt.Fprintf(w, "  L:  %8.4f ± %.4f\n", summary.L[q].Mean, summary.L[q].HalfWidth)
		fmt.Fprintf(w, "  Lq: %8.4f ± %.4f\n", summary.Lq[q].Mean, summary.Lq[q].HalfWidth)
		fmt.Fprintf(w, "  W:  %8.4f ± %.4f\n", summary.W[q].Mean, summary.W[q].HalfWidth)
		fmt.Fprintf(w, "  Wq: %8.4f ± %.4f\n", summary.Wq[q].Mean, summary.Wq[q].HalfWidth)
		if summary.PLoss[q].Mean > 0 {
			fmt.Fprintf(w, "  P(loss): %.4f ± %.4f\n", summary.PLoss[q].Mean, summary.PLoss[q].HalfWidth)
		}
	}
}
