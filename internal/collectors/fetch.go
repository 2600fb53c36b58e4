package collectors

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/types"
)

// Fetch outcomes passed to an Observer
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Observer is told about every side's fetch once it completes
type Observer func(source types.Source, outcome string, elapsed time.Duration)

// Fetched holds both sides of one fetch. A failed side is empty and its
// SourceStatus carries the error.
type Fetched struct {
	Local  []types.RawRecord
	Remote []types.RawRecord
	Status []types.SourceStatus
}

// FetchOption customises FetchAll
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	logger   logger.Logger
	observer Observer
}

// WithLogger logs degraded and failed sides
func WithLogger(l logger.Logger) FetchOption {
	return func(o *fetchOptions) { o.logger = l }
}

// WithObserver registers a completion callback, typically metrics
func WithObserver(fn Observer) FetchOption {
	return func(o *fetchOptions) { o.observer = fn }
}

// FetchAll runs both collectors concurrently, each bounded by timeout.
// A failing side never fails the fetch. Only cancellation of ctx does, in
// which case partial results are discarded.
func FetchAll(ctx context.Context, local, remote Collector, timeout time.Duration, opts ...FetchOption) (*Fetched, error) {
	o := fetchOptions{logger: logger.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	type sideResult struct {
		records []types.RawRecord
		status  types.SourceStatus
	}

	var (
		wg      sync.WaitGroup
		results [2]sideResult
	)

	run := func(i int, source types.Source, c Collector) {
		defer wg.Done()
		records, status := fetchSide(ctx, source, c, timeout, &o)
		results[i] = sideResult{records: records, status: status}
	}

	wg.Add(2)
	go run(0, types.SourceLocal, local)
	go run(1, types.SourceRemote, remote)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Fetched{
		Local:  results[0].records,
		Remote: results[1].records,
		Status: []types.SourceStatus{results[0].status, results[1].status},
	}, nil
}

func fetchSide(ctx context.Context, source types.Source, c Collector, timeout time.Duration, o *fetchOptions) ([]types.RawRecord, types.SourceStatus) {
	status := types.SourceStatus{Source: source}
	if c == nil {
		status.Origin = "none"
		status.Error = "no collector configured"
		return nil, status
	}
	status.Origin = c.Name()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := c.Collect(ctx)
	elapsed := time.Since(start)

	log := o.logger.WithFields(map[string]interface{}{
		"source":    string(source),
		"collector": c.Name(),
		"duration":  elapsed.String(),
	})

	if err == nil && result == nil {
		err = context.DeadlineExceeded
	}
	if err != nil {
		unavailable := apperrors.SourceUnavailable(apperrors.Component(source), err)
		log.Error("inventory source unavailable", unavailable)
		status.Error = unavailable.Error()
		if o.observer != nil {
			o.observer(source, OutcomeError, elapsed)
		}
		return nil, status
	}

	if result.Origin != "" {
		status.Origin = result.Origin
	}
	status.DeviceCount = len(result.Records)

	outcome := OutcomeOK
	if result.Degraded != nil {
		outcome = OutcomeFallback
		status.Degraded = result.Degraded.Error()
		log.WithField("origin", status.Origin).Warn("inventory source degraded: " + status.Degraded)
	} else {
		log.WithField("devices", status.DeviceCount).Debug("inventory source fetched")
	}
	if o.observer != nil {
		o.observer(source, outcome, elapsed)
	}
	return result.Records, status
}
