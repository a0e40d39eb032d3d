package builder

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sitetree/engine/internal/content"
)

// Metrics is what one build invocation cost.
type Metrics struct {
	Runtime    float64 `json:"runtime"`
	NumQueries int64   `json:"num_queries"`
	NumItems   int     `json:"num_items"`
	NumImages  int64   `json:"num_images,omitempty"`
}

// Builder is the closed set of document builders. Each Build runs
// synchronously within one request and may be called once per builder.
type Builder interface {
	Build(ctx context.Context) (string, error)
	Slug() string
	Metrics() Metrics
}

// Core carries the state every builder shares: the output buffer, the item
// counter against the building capacity, and the runtime/query counters
// captured around the build.
type Core struct {
	out      strings.Builder
	store    content.Querier
	slug     string
	numItems int
	capacity int
	metrics  Metrics

	startTime    time.Time
	startQueries int64
}

func newCore(slug string, capacity int, store content.Querier) Core {
	return Core{
		slug:     slug,
		capacity: capacity,
		store:    store,
	}
}

func (c *Core) Slug() string { return c.slug }

// Metrics is valid after Build has returned.
func (c *Core) Metrics() Metrics { return c.metrics }

// NumItems returns how many items the build has emitted so far.
func (c *Core) NumItems() int { return c.numItems }

// run is the build template: counters started, the process executed,
// counters stopped, output collected.
func (c *Core) run(ctx context.Context, process func(context.Context) error) (string, error) {
	c.startCounters()
	err := process(ctx)
	c.stopCounters()

	if err != nil {
		return "", err
	}
	return c.out.String(), nil
}

func (c *Core) startCounters() {
	c.startTime = time.Now()
	c.startQueries = c.store.NumQueries()
}

func (c *Core) stopCounters() {
	c.metrics.NumItems = c.numItems
	c.metrics.NumQueries = c.store.NumQueries() - c.startQueries
	c.metrics.Runtime = roundRuntime(time.Since(c.startTime).Seconds())
}

func (c *Core) countItem() {
	c.numItems++
}

// capacityLeft is how many more items this build may emit.
func (c *Core) capacityLeft() int {
	return c.capacity - c.numItems
}

func (c *Core) write(s string) {
	c.out.WriteString(s)
}

func roundRuntime(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}

// Database timestamps are site-local wall clock without a zone marker.
const (
	dbTimeLayout  = "2006-01-02 15:04:05"
	lastmodLayout = "2006-01-02T15:04:05"
)
