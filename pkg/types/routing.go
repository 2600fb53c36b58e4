package types

// Intent is the operator goal an utterance was classified as
type Intent string

const (
	IntentList       Intent = "list"
	IntentSummary    Intent = "summary"
	IntentMismatches Intent = "mismatches"
	IntentReport     Intent = "report"
	IntentGroupBy    Intent = "group_by"
)

// Intents lists every routable intent
var Intents = []Intent{IntentList, IntentSummary, IntentMismatches, IntentReport, IntentGroupBy}

// Valid reports whether i is a routable intent
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// Operation is a pipeline stage the router can schedule
type Operation string

const (
	OpReconcile Operation = "reconcile"
	OpVerify    Operation = "verify"
	OpFilter    Operation = "filter"
	OpGroup     Operation = "group"
	OpRender    Operation = "render"
	OpExport    Operation = "export"
)

// Step is one scheduled operation and its parameters
type Step struct {
	Operation  Operation         `json:"operation"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Param returns a parameter value or def when absent
func (s Step) Param(key, def string) string {
	if v, ok := s.Parameters[key]; ok && v != "" {
		return v
	}
	return def
}

// Candidate is one ranked guess produced by an intent classifier.
type Candidate struct {
	Intent Intent            `json:"intent"`
	Slots  map[string]string `json:"slots,omitempty"`
	Score  float64           `json:"score"`
}

// RoutingDecision is the ordered plan the router selected for a request.
type RoutingDecision struct {
	Intent       Intent  `json:"intent"`
	Steps        []Step  `json:"steps"`
	Confidence   float64 `json:"confidence"`
	FallbackUsed bool    `json:"fallback_used"`
}

// Has reports whether the decision schedules op
func (d RoutingDecision) Has(op Operation) bool {
	_, ok := d.Step(op)
	return ok
}

// Step returns the first step scheduling op
func (d RoutingDecision) Step(op Operation) (Step, bool) {
	for _, s := range d.Steps {
		if s.Operation == op {
			return s, true
		}
	}
	return Step{}, false
}
