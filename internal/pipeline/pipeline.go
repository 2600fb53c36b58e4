package pipeline

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/netpilot/internal/collectors"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/metrics"
	"github.com/yairfalse/netpilot/internal/normalizer"
	"github.com/yairfalse/netpilot/internal/output"
	"github.com/yairfalse/netpilot/internal/reconciler"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/internal/verifier"
	"github.com/yairfalse/netpilot/pkg/types"
)

const tracerName = "netpilot"

// Pipeline executes routing decisions against the two inventory sources.
// It keeps no per-request state and is safe for concurrent use.
type Pipeline struct {
	local        collectors.Collector
	remote       collectors.Collector
	verifier     *verifier.Verifier
	renderer     *output.Renderer
	exporter     *output.Exporter
	metrics      *metrics.Metrics
	logger       logger.Logger
	tracer       trace.Tracer
	fetchTimeout time.Duration
	encoding     string
	now          func() time.Time
	classifier   router.Classifier
	router       *router.Router
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithVerifier enables the verify step
func WithVerifier(v *verifier.Verifier) Option {
	return func(p *Pipeline) { p.verifier = v }
}

// WithExporter enables the export step
func WithExporter(e *output.Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithMetrics records pipeline activity
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline logger
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithFetchTimeout bounds each source fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.fetchTimeout = d }
}

// WithDefaultEncoding sets the encoding used when a render step names none
func WithDefaultEncoding(enc string) Option {
	return func(p *Pipeline) { p.encoding = enc }
}

// WithClock overrides the reconciliation timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline over the local and remote collectors
func New(local, remote collectors.Collector, renderer *output.Renderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		local:        local,
		remote:       remote,
		renderer:     renderer,
		logger:       logger.NewNop(),
		tracer:       otel.Tracer(tracerName),
		fetchTimeout: 10 * time.Second,
		encoding:     string(output.EncodingTable),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = output.NewRenderer(output.Options{})
	}
	if p.classifier == nil {
		p.classifier = router.PatternClassifier{}
	}
	if p.router == nil {
		p.router = router.New(router.WithLogger(p.logger))
	}
	return p
}

// Result is the outcome of one executed decision
type Result struct {
	Decision     types.RoutingDecision `json:"decision"`
	View         output.View           `json:"view,omitempty"`
	Encoding     string                `json:"encoding,omitempty"`
	Output       []byte                `json:"-"`
	ArtifactPath string                `json:"artifact_path,omitempty"`
	Verification *verifier.Stats       `json:"verification,omitempty"`
	Document     *output.Document      `json:"-"`
}

// Inventory fetches, normalizes and reconciles both sources, optionally
// running the identity check. It is the reconcile and verify steps of
// Execute without rendering.
func (p *Pipeline) Inventory(ctx context.Context, verify bool) (*types.UnifiedInventory, *verifier.Stats, error) {
	inv, err := p.reconcile(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !verify {
		return inv, nil, nil
	}
	verified, stats := p.verify(ctx, inv)
	return verified, stats, nil
}

// Execute runs every step of decision in order
func (p *Pipeline) Execute(ctx context.Context, decision types.RoutingDecision) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.execute", trace.WithAttributes(
		attribute.String("intent", string(decision.Intent)),
		attribute.Bool("fallback", decision.FallbackUsed),
	))
	defer span.End()

	res := &Result{Decision: decision, Document: &output.Document{Decision: &decision}}
	doc := res.Document

	for _, step := range decision.Steps {
		var err error
		switch step.Operation {
		case types.OpReconcile:
			doc.Inventory, err = p.reconcile(ctx)

		case types.OpVerify:
			if doc.Inventory == nil {
				err = apperrors.InvalidRequest(apperrors.ComponentPipeline, "verify scheduled before reconcile")
				break
			}
			doc.Inventory, res.Verification = p.verify(ctx, doc.Inventory)

		case types.OpFilter:
			err = p.filter(doc, step.Param("by", ""), step.Param("value", ""))

		case types.OpGroup:
			err = p.group(doc, step.Param("by", "vendor"))

		case types.OpRender:
			p.attachReport(doc, res.Verification)
			view, ok := output.ParseView(step.Param("view", ""))
			if !ok {
				err = apperrors.InvalidRequest(apperrors.ComponentPipeline, "unknown view "+strconv.Quote(step.Param("view", "")))
				break
			}
			res.View = view
			res.Encoding = step.Param("encoding", p.encoding)
			res.Output, err = p.render(ctx, view, doc, res.Encoding)

		case types.OpExport:
			p.attachReport(doc, res.Verification)
			res.View = output.ViewReport
			res.Encoding = step.Param("encoding", string(output.EncodingMarkdown))
			res.ArtifactPath, err = p.export(ctx, doc, res.Encoding)

		default:
			err = apperrors.InvalidRequest(apperrors.ComponentPipeline, "unknown operation "+strconv.Quote(string(step.Operation)))
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	return res, nil
}

func (p *Pipeline) reconcile(ctx context.Context) (*types.UnifiedInventory, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.reconcile")
	defer span.End()

	fetched, err := collectors.FetchAll(ctx, p.local, p.remote, p.fetchTimeout,
		collectors.WithLogger(p.logger),
		collectors.WithObserver(func(source types.Source, outcome string, elapsed time.Duration) {
			p.metrics.ObserveFetch(string(source), outcome, elapsed)
		}),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var causes []string
	for _, st := range fetched.Status {
		if st.Error != "" {
			causes = append(causes, st.Error)
		}
	}
	if len(causes) == len(fetched.Status) && len(causes) > 0 {
		err := apperrors.NoSourceAvailable(causes...)
		span.RecordError(err)
		return nil, err
	}

	local := normalizer.Normalize(types.SourceLocal, fetched.Local)
	remote := normalizer.Normalize(types.SourceRemote, fetched.Remote)
	inv := reconciler.New(reconciler.WithClock(p.now)).Reconcile(local, remote, fetched.Status...)

	for _, m := range inv.Mismatches {
		p.metrics.Mismatch(string(m.Field), string(m.Severity))
	}
	span.SetAttributes(
		attribute.Int("devices", len(inv.Devices)),
		attribute.Int("mismatches", len(inv.Mismatches)),
	)
	p.logger.WithFields(map[string]interface{}{
		"devices":    len(inv.Devices),
		"mismatches": len(inv.Mismatches),
	}).Debug("inventory reconciled")
	return inv, nil
}

func (p *Pipeline) verify(ctx context.Context, inv *types.UnifiedInventory) (*types.UnifiedInventory, *verifier.Stats) {
	if p.verifier == nil {
		p.logger.Warn("identity check requested but no verifier is configured")
		return inv, &verifier.Stats{}
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.verify")
	defer span.End()

	verified, stats := p.verifier.Verify(ctx, inv)
	span.SetAttributes(
		attribute.Int("checked", stats.Checked),
		attribute.Int("consistent", stats.Consistent),
		attribute.Int("contradicted", stats.Contradicted),
		attribute.Int("not_run", stats.NotRun),
	)
	return verified, &stats
}

func (p *Pipeline) filter(doc *output.Document, by, value string) error {
	if doc.Inventory == nil {
		return apperrors.InvalidRequest(apperrors.ComponentPipeline, "filter scheduled before reconcile")
	}
	devices, err := reconciler.Filter(doc.Inventory, by, value)
	if err != nil {
		return apperrors.InvalidRequest(apperrors.ComponentPipeline, err.Error())
	}
	if devices == nil {
		devices = []types.DeviceRecord{}
	}
	doc.Devices = devices
	if by != "" {
		doc.Filter = &output.FilterSpec{By: by, Value: value}
	}
	return nil
}

func (p *Pipeline) group(doc *output.Document, by string) error {
	if doc.Inventory == nil {
		return apperrors.InvalidRequest(apperrors.ComponentPipeline, "group scheduled before reconcile")
	}
	groups, err := reconciler.GroupBy(doc.Inventory, by)
	if err != nil {
		return apperrors.InvalidRequest(apperrors.ComponentPipeline, err.Error())
	}
	key, _ := reconciler.CanonicalKey(by)
	doc.GroupBy, doc.Groups = key, groups
	return nil
}

func (p *Pipeline) attachReport(doc *output.Document, stats *verifier.Stats) {
	if doc.Inventory == nil || doc.Report != nil {
		return
	}
	notRun := 0
	if stats != nil {
		notRun = stats.NotRun
	}
	report := reconciler.BuildReport(doc.Inventory, notRun)
	doc.Report = &report
}

func (p *Pipeline) render(ctx context.Context, view output.View, doc *output.Document, encoding string) ([]byte, error) {
	_, span := p.tracer.Start(ctx, "pipeline.render", trace.WithAttributes(
		attribute.String("view", string(view)),
		attribute.String("encoding", encoding),
	))
	defer span.End()
	return p.renderer.Render(view, doc, encoding)
}

func (p *Pipeline) export(ctx context.Context, doc *output.Document, encoding string) (string, error) {
	_, span := p.tracer.Start(ctx, "pipeline.export", trace.WithAttributes(
		attribute.String("encoding", encoding),
	))
	defer span.End()

	if p.exporter == nil {
		return "", apperrors.ArtifactWriteFailed("", apperrors.ConfigurationError("export.dir is not configured"))
	}
	path, err := p.exporter.Export(doc, encoding)
	if err != nil {
		return "", err
	}
	p.logger.WithField("path", path).Info("report exported")
	return path, nil
}
