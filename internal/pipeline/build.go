package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yairfalse/netpilot/internal/collectors/local"
	"github.com/yairfalse/netpilot/internal/collectors/netbox"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/metrics"
	"github.com/yairfalse/netpilot/internal/output"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/internal/transport"
	"github.com/yairfalse/netpilot/internal/verifier"
	"github.com/yairfalse/netpilot/pkg/config"
)

// Components is everything the CLI and the servers share, built once from
// configuration.
type Components struct {
	Config    *config.Config
	Pipeline  *Pipeline
	NetBox    *netbox.FallbackCollector
	Transport transport.Transport
	Renderer  *output.Renderer
	Metrics   *metrics.Metrics
	Logger    logger.Logger
}

// Build wires the pipeline from cfg. reg may be nil.
func Build(cfg *config.Config, log logger.Logger, reg prometheus.Registerer, extra ...Option) (*Components, error) {
	if log == nil {
		log = logger.NewNop()
	}
	m := metrics.New(reg)

	classifier, err := router.FromConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	renderer := output.NewRenderer(output.Options{NoColor: cfg.Output.NoColor})
	remote := netbox.NewFallbackCollector(cfg.NetBox, log)
	chain := transport.FromConfig(cfg, log)

	v := verifier.New(chain, cfg.Verifier.Workers, cfg.Verifier.Timeout,
		verifier.WithLogger(log),
		verifier.WithObserver(func(verdict verifier.Verdict) { m.Verification(string(verdict)) }),
	)

	opts := []Option{
		WithLogger(log),
		WithMetrics(m),
		WithVerifier(v),
		WithFetchTimeout(fetchTimeout(cfg)),
		WithDefaultEncoding(cfg.Output.Format),
		WithClassifier(classifier),
		WithRouter(router.New(router.WithThreshold(cfg.Router.Threshold), router.WithLogger(log))),
	}
	if cfg.Export.Dir != "" {
		opts = append(opts, WithExporter(output.NewExporter(renderer, cfg.Export.Dir)))
	}
	opts = append(opts, extra...)

	p := New(local.New(cfg.Local, local.WithLogger(log)), remote, renderer, opts...)
	return &Components{
		Config:    cfg,
		Pipeline:  p,
		NetBox:    remote,
		Transport: chain,
		Renderer:  renderer,
		Metrics:   m,
		Logger:    log,
	}, nil
}

// fetchTimeout is the larger of the two source timeouts
func fetchTimeout(cfg *config.Config) time.Duration {
	d := cfg.Local.Timeout
	if cfg.NetBox.Timeout > d {
		d = cfg.NetBox.Timeout
	}
	if d <= 0 {
		d = 10 * time.Second
	}
	return d
}
