package netbox

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/internal/collectors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/config"
)

// ErrNoCredentials is the degraded reason when no usable token is configured
var ErrNoCredentials = errors.New("no NetBox credentials configured")

// FallbackCollector serves the live catalog when it can and the static
// fixture otherwise. Primary is nil when no credentials are configured.
type FallbackCollector struct {
	Primary  *Client
	Fallback *SampleCollector
	logger   logger.Logger
}

var _ collectors.Collector = (*FallbackCollector)(nil)

// NewFallbackCollector builds the remote collector from configuration
func NewFallbackCollector(cfg config.NetBoxConfig, log logger.Logger, opts ...Option) *FallbackCollector {
	if log == nil {
		log = logger.NewNop()
	}
	f := &FallbackCollector{
		Fallback: &SampleCollector{Path: cfg.SamplePath},
		logger:   log,
	}
	if cfg.HasCredentials() {
		f.Primary = NewClient(cfg, append([]Option{WithLogger(log)}, opts...)...)
	}
	return f
}

// Name identifies the collector
func (f *FallbackCollector) Name() string {
	if f.Primary != nil {
		return f.Primary.BaseURL()
	}
	return "netbox"
}

// Collect tries the live API first. Any failure is reported through
// Result.Degraded and answered from the fixture.
func (f *FallbackCollector) Collect(ctx context.Context) (*collectors.Result, error) {
	reason := ErrNoCredentials
	if f.Primary != nil {
		records, err := f.Primary.Devices(ctx)
		if err == nil {
			return &collectors.Result{Records: records, Origin: f.Primary.BaseURL()}, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		reason = err
		f.logger.Error("NetBox fetch failed, falling back to sample catalog", err)
	} else {
		f.logger.Info("NetBox credentials not provided, loading sample catalog")
	}

	if f.Fallback == nil {
		return nil, reason
	}
	result, err := f.Fallback.Collect(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "fallback after: %v", reason)
	}
	result.Degraded = reason
	return result, nil
}

// Topology returns devices and links from the live API or the fixture
func (f *FallbackCollector) Topology(ctx context.Context) (*Topology, error) {
	reason := ErrNoCredentials
	if f.Primary != nil {
		topo, err := f.Primary.Topology(ctx)
		if err == nil {
			return topo, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		reason = err
		f.logger.Error("NetBox topology fetch failed, falling back to sample catalog", err)
	}

	if f.Fallback == nil {
		return nil, reason
	}
	topo, err := f.Fallback.Topology()
	if err != nil {
		return nil, errors.Wrapf(err, "fallback after: %v", reason)
	}
	topo.Note = "Using sample data: " + reason.Error()
	return topo, nil
}
