// Package netcfg loads declarative queueing-network descriptions from YAML
// and validates them into a sim.Topology. The simulator core never parses
// files; this package is the boundary where configuration defects must be
// caught.
package netcfg

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/qnet-sim/qnet-sim/sim"
)

const probTolerance = 1e-6

// File mirrors the on-disk YAML layout:
//
//	network:
//	  num_queues: 2
//	  max_time: 10000
//	queues:
//	  - queue_id: 0
//	    num_servers: 1
//	    capacity: inf
//	  - queue_id: 1
//	    num_servers: 2
//	    capacity: 10
//	categories:
//	  standard:
//	    arrival_probability: 1.0
//	    service_rates: [1.0, 2.0]
//	    routing_matrix:
//	      - [0.0, 1.0]
//	      - [0.0, 0.0]
//	arrivals:
//	  external_arrival_rate: 0.8
//	  arrival_queue: 0
type File struct {
	Network    NetworkSection             `yaml:"network"`
	Queues     []QueueSection             `yaml:"queues"`
	Categories map[string]CategorySection `yaml:"categories"`
	Arrivals   ArrivalsSection            `yaml:"arrivals"`
}

// NetworkSection carries run-wide parameters.
type NetworkSection struct {
	NumQueues int     `yaml:"num_queues"`
	MaxTime   float64 `yaml:"max_time"`
}

// QueueSection describes one station. Capacity is a positive integer or the
// literal "inf"; omitting it means infinite.
type QueueSection struct {
	QueueID    int       `yaml:"queue_id"`
	NumServers int       `yaml:"num_servers"`
	Capacity   *Capacity `yaml:"capacity,omitempty"`
}

// CategorySection describes one customer class.
type CategorySection struct {
	ArrivalProbability float64     `yaml:"arrival_probability"`
	ServiceRates       []float64   `yaml:"service_rates"`
	RoutingMatrix      [][]float64 `yaml:"routing_matrix"`
}

// ArrivalsSection configures the external arrival stream.
type ArrivalsSection struct {
	ExternalArrivalRate float64 `yaml:"external_arrival_rate"`
	ArrivalQueue        int     `yaml:"arrival_queue"`
}

// Capacity is a positive integer or the literal "inf".
type Capacity struct {
	Infinite bool
	Value    int
}

// UnmarshalYAML accepts either an integer node or the scalar "inf".
func (c *Capacity) UnmarshalYAML(node *yaml.Node) error {
	if node.Value == "inf" {
		c.Infinite = true
		return nil
	}
	if err := node.Decode(&c.Value); err != nil {
		return fmt.Errorf("capacity must be a positive integer or \"inf\": %w", err)
	}
	return nil
}

// Load reads, parses and validates the YAML file at path, returning the
// immutable topology and the configured time horizon.
func Load(path string) (*sim.Topology, float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, 0, fmt.Errorf("parse config %s: %w", path, err)
	}
	topo, maxTime, err := Build(&f)
	if err != nil {
		return nil, 0, fmt.Errorf("config %s: %w", path, err)
	}
	logrus.Debugf("loaded network config from %s: %d queues, %d categories",
		path, len(topo.Queues), len(topo.Categories))
	return topo, maxTime, nil
}

// Build validates f and assembles the topology. Category names are sorted
// so the same file always yields the same category indexing regardless of
// map iteration order.
func Build(f *File) (*sim.Topology, float64, error) {
	numQueues := f.Network.NumQueues
	if numQueues <= 0 {
		return nil, 0, fmt.Errorf("network.num_queues must be a positive integer, got %d", numQueues)
	}
	if f.Network.MaxTime <= 0 {
		return nil, 0, fmt.Errorf("network.max_time must be positive, got %g", f.Network.MaxTime)
	}

	queues, err := buildQueues(f.Queues, numQueues)
	if err != nil {
		return nil, 0, err
	}
	categories, err := buildCategories(f.Categories, numQueues)
	if err != nil {
		return nil, 0, err
	}

	if f.Arrivals.ExternalArrivalRate <= 0 {
		return nil, 0, fmt.Errorf("arrivals.external_arrival_rate must be positive, got %g",
			f.Arrivals.ExternalArrivalRate)
	}
	if f.Arrivals.ArrivalQueue < 0 || f.Arrivals.ArrivalQueue >= numQueues {
		return nil, 0, fmt.Errorf("arrivals.arrival_queue must be a valid queue id (0 to %d), got %d",
			numQueues-1, f.Arrivals.ArrivalQueue)
	}

	topo := &sim.Topology{
		Queues:     queues,
		Categories: categories,
		Arrivals: sim.ArrivalSpec{
			Rate:  f.Arrivals.ExternalArrivalRate,
			Queue: f.Arrivals.ArrivalQueue,
		},
	}
	// Cross-check with the core's own validator; a failure here is a defect
	// in this loader.
	if err := topo.Validate(); err != nil {
		return nil, 0, fmt.Errorf("assembled topology failed validation: %w", err)
	}
	return topo, f.Network.MaxTime, nil
}

func buildQueues(sections []QueueSection, numQueues int) ([]sim.QueueSpec, error) {
	if len(sections) != numQueues {
		return nil, fmt.Errorf("%d queue definitions for network.num_queues=%d",
			len(sections), numQueues)
	}
	specs := make([]sim.QueueSpec, numQueues)
	seen := make(map[int]bool, numQueues)
	for i, q := range sections {
		if q.QueueID < 0 || q.QueueID >= numQueues {
			return nil, fmt.Errorf("queue %d: queue_id %d out of range [0, %d)", i, q.QueueID, numQueues)
		}
		if seen[q.QueueID] {
			return nil, fmt.Errorf("duplicate queue_id %d", q.QueueID)
		}
		seen[q.QueueID] = true

		if q.NumServers <= 0 {
			return nil, fmt.Errorf("queue %d: num_servers must be a positive integer, got %d",
				q.QueueID, q.NumServers)
		}
		spec := sim.QueueSpec{NumServers: q.NumServers, Capacity: sim.CapacityInfinite}
		if q.Capacity != nil && !q.Capacity.Infinite {
			if q.Capacity.Value <= 0 {
				return nil, fmt.Errorf("queue %d: capacity must be a positive integer or \"inf\", got %d",
					q.QueueID, q.Capacity.Value)
			}
			if q.Capacity.Value < q.NumServers {
				logrus.Warnf("queue %d: capacity %d is below num_servers %d; some servers can never fill",
					q.QueueID, q.Capacity.Value, q.NumServers)
			}
			spec.Capacity = q.Capacity.Value
		}
		specs[q.QueueID] = spec
	}
	// seen covers exactly 0..numQueues-1 when lengths matched and no id was
	// duplicated or out of range.
	return specs, nil
}

func buildCategories(sections map[string]CategorySection, numQueues int) ([]sim.Category, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("at least one category must be defined")
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	categories := make([]sim.Category, 0, len(names))
	totalProb := 0.0
	for _, name := range names {
		spec := sections[name]
		if spec.ArrivalProbability < 0 || spec.ArrivalProbability > 1 {
			return nil, fmt.Errorf("category %q: arrival_probability must be in [0, 1], got %g",
				name, spec.ArrivalProbability)
		}
		totalProb += spec.ArrivalProbability

		if len(spec.ServiceRates) != numQueues {
			return nil, fmt.Errorf("category %q: service_rates must have %d values, got %d",
				name, numQueues, len(spec.ServiceRates))
		}
		for i, rate := range spec.ServiceRates {
			if rate <= 0 {
				return nil, fmt.Errorf("category %q: service_rates[%d] must be positive, got %g",
					name, i, rate)
			}
		}

		if len(spec.RoutingMatrix) != numQueues {
			return nil, fmt.Errorf("category %q: routing_matrix must have %d rows, got %d",
				name, numQueues, len(spec.RoutingMatrix))
		}
		for i, row := range spec.RoutingMatrix {
			if len(row) != numQueues {
				return nil, fmt.Errorf("category %q: routing_matrix row %d must have %d columns, got %d",
					name, i, numQueues, len(row))
			}
			rowSum := 0.0
			for j, p := range row {
				if p < 0 || p > 1 {
					return nil, fmt.Errorf("category %q: routing_matrix[%d][%d] must be in [0, 1], got %g",
						name, i, j, p)
				}
				rowSum += p
			}
			if rowSum > 1+probTolerance {
				return nil, fmt.Errorf("category %q: routing_matrix row %d sums to %g > 1.0",
					name, i, rowSum)
			}
		}

		categories = append(categories, sim.Category{
			Name:               name,
			ArrivalProbability: spec.ArrivalProbability,
			ServiceRates:       append([]float64(nil), spec.ServiceRates...),
			Routing:            copyMatrix(spec.RoutingMatrix),
		})
	}
	if math.Abs(totalProb-1) > probTolerance {
		return nil, fmt.Errorf("category arrival probabilities sum to %g, must sum to 1.0", totalProb)
	}
	return categories, nil
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
