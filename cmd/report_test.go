package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/analytic"
)

func lossTopology() *sim.Topology {
	return &sim.Topology{
		Queues: []sim.QueueSpec{{NumServers: 1, Capacity: 3}},
		Categories: []sim.Category{{
			Name:               "default",
			ArrivalProbability: 1.0,
			ServiceRates:       []float64{1.0},
			Routing:            [][]float64{{0}},
		}},
		Arrivals: sim.ArrivalSpec{Rate: 2.0, Queue: 0},
	}
}

func TestPrintResults(t *testing.T) {
	topo := lossTopology()
	s, err := sim.NewSimulator(topo, 42, 500)
	require.NoError(t, err)
	res := s.Run()

	var buf bytes.Buffer
	PrintResults(&buf, topo, res, true)

	out := buf.String()
	assert.Contains(t, out, "=== Simulation Results ===")
	assert.Contains(t, out, "Queue 0 (1 server(s), capacity=3):")
	assert.Contains(t, out, "P(loss):")
	assert.Contains(t, out, `--- Category "default" ---`)
	assert.Contains(t, out, "Little's Law")
}

func TestPrintComparison(t *testing.T) {
	topo := lossTopology()
	s, err := sim.NewSimulator(topo, 7, 500)
	require.NoError(t, err)
	res := s.Run()

	theory, err := analytic.Solve(analytic.Network{
		ExternalRates: []float64{0.5},
		ServiceRates:  []float64{1.0},
		NumServers:    []int{1},
		Routing:       [][]float64{{0}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintComparison(&buf, res.Stats, theory)

	out := buf.String()
	assert.Contains(t, out, "=== Simulated vs Theoretical ===")
	assert.Contains(t, out, "L(theory)")
	assert.NotContains(t, out, "%!", "format verbs and arguments out of sync")
}

func TestPrintReplicationSummary(t *testing.T) {
	topo := lossTopology()
	_, summary, err := sim.RunReplications(topo, 500, 3, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintReplicationSummary(&buf, topo, summary, 3)

	out := buf.String()
	assert.Contains(t, out, "=== Replication Summary (3 runs) ===")
	assert.Contains(t, out, "Lq:")
	assert.Contains(t, out, "±")
}
