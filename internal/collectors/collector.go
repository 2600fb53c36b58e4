package collectors

import (
	"context"

	"github.com/yairfalse/netpilot/pkg/types"
)

// Collector fetches the raw device records of one inventory source
type Collector interface {
	// Name identifies the collector in logs and source status
	Name() string

	// Collect returns every record the source holds. Implementations must
	// honour ctx cancellation.
	Collect(ctx context.Context) (*Result, error)
}

// Result is what one collector delivered
type Result struct {
	Records []types.RawRecord
	// Origin names where the records came from, e.g. a file path, a URL or "sample"
	Origin string
	// Degraded carries the primary error when a fallback produced the records
	Degraded error
}

// CollectorFunc adapts a function into a Collector
type CollectorFunc struct {
	ID string
	Fn func(ctx context.Context) (*Result, error)
}

// Name returns the collector id
func (f CollectorFunc) Name() string { return f.ID }

// Collect calls Fn
func (f CollectorFunc) Collect(ctx context.Context) (*Result, error) { return f.Fn(ctx) }
