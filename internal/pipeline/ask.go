package pipeline

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/pkg/types"
)

// WithClassifier sets the intent classifier used by Ask
func WithClassifier(c router.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithRouter sets the router used by Ask
func WithRouter(r *router.Router) Option {
	return func(p *Pipeline) { p.router = r }
}

// Decide classifies utterance and routes it without executing anything.
// Classifier errors degrade to the fallback decision.
func (p *Pipeline) Decide(ctx context.Context, utterance string) (types.RoutingDecision, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return types.RoutingDecision{}, apperrors.InvalidRequest(apperrors.ComponentRouter, "empty question")
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.decide")
	defer span.End()

	candidates, err := p.classifier.Classify(ctx, utterance)
	if err != nil {
		if ctx.Err() != nil {
			return types.RoutingDecision{}, ctx.Err()
		}
		p.logger.WithField("error", err.Error()).Warn("intent classification failed")
		candidates = nil
	}

	decision := p.router.RouteUtterance(utterance, candidates)
	p.metrics.Routed(string(decision.Intent), decision.FallbackUsed)
	span.SetAttributes(
		attribute.String("intent", string(decision.Intent)),
		attribute.Float64("confidence", decision.Confidence),
		attribute.Bool("fallback", decision.FallbackUsed),
	)
	return decision, nil
}

// Ask answers a free-form question: classify, route, execute
func (p *Pipeline) Ask(ctx context.Context, utterance string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.ask")
	defer span.End()

	decision, err := p.Decide(ctx, utterance)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return p.Execute(ctx, decision)
}

// WithEncoding returns a copy of decision whose render step uses encoding.
// Decisions that export or carry no render step are returned unchanged.
func WithEncoding(decision types.RoutingDecision, encoding string) types.RoutingDecision {
	if encoding == "" || decision.Has(types.OpExport) {
		return decision
	}
	steps := make([]types.Step, len(decision.Steps))
	for i, s := range decision.Steps {
		if s.Operation == types.OpRender {
			params := make(map[string]string, len(s.Parameters)+1)
			for k, v := range s.Parameters {
				params[k] = v
			}
			params["encoding"] = encoding
			s.Parameters = params
		}
		steps[i] = s
	}
	decision.Steps = steps
	return decision
}
