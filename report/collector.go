package report

import (
	"sort"
	"sync"

	"raycheck/types"
)

// Collector accumulates metric tuples from concurrent workers
type Collector struct {
	mu     sync.Mutex
	tuples []types.MetricTuple
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a tuple
func (c *Collector) Add(t types.MetricTuple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tuples = append(c.tuples, t)
}

// Len returns the number of tuples collected so far
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tuples)
}

// Tuples returns the tuples in discovery order
func (c *Collector) Tuples() []types.MetricTuple {
	c.mu.Lock()
	out := make([]types.MetricTuple, len(c.tuples))
	copy(out, c.tuples)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}

// Sorted returns the tuples ordered by ascending SSIM, worst first
func (c *Collector) Sorted() []types.MetricTuple {
	return SortBySSIM(c.Tuples())
}

// SortBySSIM orders tuples by ascending SSIM; ties keep their input order
func SortBySSIM(tuples []types.MetricTuple) []types.MetricTuple {
	out := make([]types.MetricTuple, len(tuples))
	copy(out, tuples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SSIM < out[j].SSIM
	})
	return out
}
