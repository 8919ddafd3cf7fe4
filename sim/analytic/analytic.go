// Package analytic provides closed-form steady-state measures for Markovian
// queues (M/M/1, M/M/c, M/M/1/k, M/M/c/k) and open Jackson networks. The
// simulator does not depend on these formulas; they exist for post-hoc
// comparison of simulated measures against theory.
package analytic

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Measures is the standard steady-state measure set for a single queue.
type Measures struct {
	L, Lq, Ls float64 // mean populations: system, waiting, in service
	W, Wq, Ws float64 // mean times: system, waiting, service
	Rho       float64 // server utilization
	LambdaEff float64 // effective (admitted) arrival rate
	PLoss     float64 // probability an arrival is turned away; 0 for infinite capacity
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// MM1 returns the measures of an M/M/1 queue. Requires lambda < mu.
func MM1(lambda, mu float64) (Measures, error) {
	rho := lambda / mu
	if rho >= 1 {
		return Measures{}, fmt.Errorf("unstable M/M/1 queue: rho=%.4f >= 1", rho)
	}
	return Measures{
		L:         rho / (1 - rho),
		Lq:        rho * rho / (1 - rho),
		Ls:        rho,
		W:         1 / (mu - lambda),
		Wq:        rho / (mu - lambda),
		Ws:        1 / mu,
		Rho:       rho,
		LambdaEff: lambda,
	}, nil
}

// MMC returns the measures of an M/M/c queue with c parallel servers.
// Requires lambda < c*mu.
func MMC(lambda, mu float64, c int) (Measures, error) {
	if c < 1 {
		return Measures{}, fmt.Errorf("M/M/c requires at least one server, got %d", c)
	}
	rho := lambda / (float64(c) * mu)
	if rho >= 1 {
		return Measures{}, fmt.Errorf("unstable M/M/%d queue: rho=%.4f >= 1", c, rho)
	}
	r := lambda / mu
	sum := 0.0
	for n := 0; n < c; n++ {
		sum += math.Pow(r, float64(n)) / factorial(n)
	}
	p0 := 1 / (sum + math.Pow(r, float64(c))/factorial(c)*(1/(1-rho)))

	m := Measures{Rho: rho, LambdaEff: lambda, Ws: 1 / mu}
	m.Lq = math.Pow(r, float64(c)) * rho * p0 / (factorial(c) * (1 - rho) * (1 - rho))
	m.L = m.Lq + r
	m.Ls = r
	m.W = m.L / lambda
	m.Wq = m.Lq / lambda
	return m, nil
}

// MM1K returns the measures of an M/M/1/k loss queue with total capacity k
// (in service plus waiting). Stable for any rho, including rho >= 1.
func MM1K(lambda, mu float64, k int) (Measures, error) {
	return MMCK(lambda, mu, 1, k)
}

// MMCK returns the measures of an M/M/c/k loss queue: c servers, total
// capacity k. The state distribution is computed directly, which also
// covers rho == 1 where the geometric-sum shortcuts divide by zero.
func MMCK(lambda, mu float64, c, k int) (Measures, error) {
	if c < 1 {
		return Measures{}, fmt.Errorf("M/M/c/k requires at least one server, got %d", c)
	}
	if k < c {
		return Measures{}, fmt.Errorf("M/M/c/k capacity %d must be >= server count %d", k, c)
	}

	r := lambda / mu
	// Unnormalized state weights pn/p0 for n = 0..k.
	weights := make([]float64, k+1)
	for n := 0; n <= k; n++ {
		if n <= c {
			weights[n] = math.Pow(r, float64(n)) / factorial(n)
		} else {
			weights[n] = math.Pow(r, float64(n)) / (math.Pow(float64(c), float64(n-c)) * factorial(c))
		}
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	p0 := 1 / total

	var l, lq float64
	for n := 0; n <= k; n++ {
		pn := weights[n] * p0
		l += float64(n) * pn
		if n > c {
			lq += float64(n-c) * pn
		}
	}
	pk := weights[k] * p0

	m := Measures{
		L:         l,
		Lq:        lq,
		Ls:        l - lq,
		Rho:       lambda / (float64(c) * mu),
		LambdaEff: lambda * (1 - pk),
		PLoss:     pk,
		Ws:        1 / mu,
	}
	m.W = m.L / m.LambdaEff
	m.Wq = m.Lq / m.LambdaEff
	return m, nil
}

// Network describes an open Jackson network: infinite-capacity Markovian
// queues with probabilistic routing and external Poisson input.
type Network struct {
	ExternalRates []float64   // external arrival rate into each queue
	ServiceRates  []float64   // mu per queue
	NumServers    []int       // c per queue
	Routing       [][]float64 // Routing[i][j]: probability of moving from queue i to queue j
}

// NetworkResult holds the solved traffic equations and per-queue measures.
type NetworkResult struct {
	Effective []float64 // effective arrival rate per queue
	Rho       []float64 // utilization per queue
	Queues    []Measures
}

// Solve computes effective arrival rates from the traffic equations
// lambda = r + lambda P, i.e. (I - Pᵀ) lambda = r, then derives M/M/c
// measures per queue. Every queue must end up stable.
func Solve(net Network) (*NetworkResult, error) {
	n := len(net.ServiceRates)
	if n == 0 || len(net.ExternalRates) != n || len(net.NumServers) != n || len(net.Routing) != n {
		return nil, fmt.Errorf("network dimensions are inconsistent")
	}

	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -net.Routing[j][i]
			if i == j {
				v++
			}
			a.Set(i, j, v)
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), net.ExternalRates...))

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("traffic equations are singular: %w", err)
	}

	res := &NetworkResult{
		Effective: make([]float64, n),
		Rho:       make([]float64, n),
		Queues:    make([]Measures, n),
	}
	for i := 0; i < n; i++ {
		lambda := x.AtVec(i)
		res.Effective[i] = lambda
		res.Rho[i] = lambda / (float64(net.NumServers[i]) * net.ServiceRates[i])

		var (
			m   Measures
			err error
		)
		if net.NumServers[i] == 1 {
			m, err = MM1(lambda, net.ServiceRates[i])
		} else {
			m, err = MMC(lambda, net.ServiceRates[i], net.NumServers[i])
		}
		if err != nil {
			return nil, fmt.Errorf("queue %d: %w", i, err)
		}
		res.Queues[i] = m
	}
	return res, nil
}
