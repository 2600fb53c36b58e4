package router

import (
	"sort"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/types"
)

// DefaultThreshold is the score a candidate must exceed to be routed
const DefaultThreshold = 0.5

// Views understood by the renderer
const (
	ViewDevices    = "devices"
	ViewSummary    = "summary"
	ViewMismatches = "mismatches"
	ViewReport     = "report"
	ViewGroups     = "groups"
	ViewVLANs      = "vlans"
)

// specificity breaks score ties; higher wins
var specificity = map[types.Intent]int{
	types.IntentMismatches: 5,
	types.IntentReport:     4,
	types.IntentGroupBy:    3,
	types.IntentList:       2,
	types.IntentSummary:    1,
}

// Router maps classifier candidates to an ordered operation plan. It holds no
// per-request state.
type Router struct {
	threshold float64
	logger    logger.Logger
}

// Option customises a Router
type Option func(*Router)

// WithThreshold overrides DefaultThreshold
func WithThreshold(t float64) Option {
	return func(r *Router) { r.threshold = t }
}

// WithLogger sets the router logger
func WithLogger(l logger.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a Router
func New(opts ...Option) *Router {
	r := &Router{threshold: DefaultThreshold, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Threshold returns the confidence threshold in use
func (r *Router) Threshold() float64 {
	return r.threshold
}

// Route picks the best candidate and expands it into steps. When nothing
// clears the threshold the decision falls back to a summary table.
func (r *Router) Route(candidates []types.Candidate) types.RoutingDecision {
	return r.route("", candidates)
}

// RouteUtterance is Route with the utterance kept for the fallback log line
func (r *Router) RouteUtterance(utterance string, candidates []types.Candidate) types.RoutingDecision {
	return r.route(utterance, candidates)
}

func (r *Router) route(utterance string, candidates []types.Candidate) types.RoutingDecision {
	ranked := rank(candidates)

	var top types.Candidate
	if len(ranked) > 0 {
		top = ranked[0]
	}
	if len(ranked) == 0 || !top.Intent.Valid() || top.Score <= r.threshold {
		err := apperrors.NoIntentMatched(utterance)
		r.logger.WithFields(map[string]interface{}{
			"error_type": string(err.Type),
			"candidates": len(ranked),
			"score":      top.Score,
			"threshold":  r.threshold,
		}).Info(err.Error())
		return Fallback(top.Score)
	}

	return types.RoutingDecision{
		Intent:     top.Intent,
		Steps:      Plan(top),
		Confidence: top.Score,
	}
}

// Fallback is the decision used when no intent matched
func Fallback(confidence float64) types.RoutingDecision {
	return types.RoutingDecision{
		Intent: types.IntentSummary,
		Steps: []types.Step{
			{Operation: types.OpReconcile},
			{Operation: types.OpRender, Parameters: map[string]string{"view": ViewSummary, "encoding": "table"}},
		},
		Confidence:   confidence,
		FallbackUsed: true,
	}
}

// rank sorts a copy of candidates by score then specificity
func rank(candidates []types.Candidate) []types.Candidate {
	ranked := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Intent.Valid() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return specificity[ranked[i].Intent] > specificity[ranked[j].Intent]
	})
	return ranked
}

// Plan expands a candidate into its ordered steps
func Plan(c types.Candidate) []types.Step {
	slot := func(k string) string { return c.Slots[k] }
	steps := []types.Step{{Operation: types.OpReconcile}}

	render := func(view, defaultEncoding string) types.Step {
		params := map[string]string{"view": view}
		if enc := slot(SlotFormat); enc != "" {
			params["encoding"] = enc
		} else if defaultEncoding != "" {
			params["encoding"] = defaultEncoding
		}
		return types.Step{Operation: types.OpRender, Parameters: params}
	}
	verify := func() {
		if slot(SlotIdentityCheck) == "true" {
			steps = append(steps, types.Step{Operation: types.OpVerify})
		}
	}

	switch c.Intent {
	case types.IntentList:
		if slot(SlotBy) != "" && slot(SlotValue) != "" {
			steps = append(steps, types.Step{Operation: types.OpFilter, Parameters: map[string]string{
				"by":    slot(SlotBy),
				"value": slot(SlotValue),
			}})
		}
		view := ViewDevices
		if slot(SlotView) == ViewVLANs {
			view = ViewVLANs
		}
		steps = append(steps, render(view, ""))

	case types.IntentSummary:
		steps = append(steps, render(ViewSummary, ""))

	case types.IntentMismatches:
		verify()
		steps = append(steps, render(ViewMismatches, ""))

	case types.IntentReport:
		verify()
		if exp := slot(SlotExport); exp != "" {
			steps = append(steps, types.Step{Operation: types.OpExport, Parameters: map[string]string{"encoding": exp}})
		} else {
			steps = append(steps, render(ViewReport, "markdown"))
		}

	case types.IntentGroupBy:
		by := slot(SlotBy)
		if by == "" {
			by = "vendor"
		}
		steps = append(steps,
			types.Step{Operation: types.OpGroup, Parameters: map[string]string{"by": by}},
			render(ViewGroups, ""),
		)
	}
	return steps
}
