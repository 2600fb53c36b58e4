package router

import (
	"context"
	"regexp"
	"strings"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/config"
	"github.com/yairfalse/netpilot/pkg/types"
)

// Slot names carried by candidates
const (
	SlotBy            = "by"
	SlotValue         = "value"
	SlotFormat        = "format"
	SlotView          = "view"
	SlotExport        = "export"
	SlotIdentityCheck = "identity_check"
)

// Classifier turns an operator utterance into ranked intent candidates
type Classifier interface {
	Classify(ctx context.Context, utterance string) ([]types.Candidate, error)
}

// PatternClassifier recognises intents from keywords. It never fails and
// needs no network access.
type PatternClassifier struct{}

var (
	vlanPattern    = regexp.MustCompile(`\bvlan\s+(\d+)\b`)
	groupByPattern = regexp.MustCompile(`\bby\s+(vendor|role|site|region|os|os_family|platform)\b`)
	rolePattern    = regexp.MustCompile(`\b(leaf|spine|core|edge|border)s?\b`)
	mdPattern      = regexp.MustCompile(`\bmd\b`)
)

// Classify implements Classifier
func (PatternClassifier) Classify(_ context.Context, utterance string) ([]types.Candidate, error) {
	q := strings.ToLower(strings.TrimSpace(utterance))
	if q == "" {
		return nil, nil
	}

	identity := containsAny(q, "verify", "identity", "live check")
	withIdentity := func(slots map[string]string) map[string]string {
		if identity {
			if slots == nil {
				slots = make(map[string]string)
			}
			slots[SlotIdentityCheck] = "true"
		}
		return slots
	}

	format := exportEncoding(q)

	var out []types.Candidate
	add := func(intent types.Intent, score float64, slots map[string]string) {
		if format != "" && intent != types.IntentReport {
			if slots == nil {
				slots = make(map[string]string)
			}
			slots[SlotFormat] = format
		}
		out = append(out, types.Candidate{Intent: intent, Score: score, Slots: slots})
	}

	if containsAny(q, "mismatch", "discrepanc", "drift") ||
		(strings.Contains(q, "yam") && strings.Contains(q, "netbox")) {
		add(types.IntentMismatches, 0.9, withIdentity(nil))
	}

	if strings.Contains(q, "report") &&
		containsAny(q, "generate", "export", "inventory report", "create", "produce") {
		var slots map[string]string
		if format != "" {
			slots = map[string]string{SlotExport: format}
		}
		add(types.IntentReport, 0.9, withIdentity(slots))
	} else if strings.Contains(q, "report") {
		var slots map[string]string
		if format != "" {
			slots = map[string]string{SlotFormat: format}
		}
		add(types.IntentReport, 0.6, withIdentity(slots))
	}

	if m := groupByPattern.FindStringSubmatch(q); m != nil && containsAny(q, "group", "break down", "breakdown", "count") {
		add(types.IntentGroupBy, 0.85, map[string]string{SlotBy: canonicalField(m[1])})
	} else if strings.Contains(q, "group") {
		add(types.IntentGroupBy, 0.55, map[string]string{SlotBy: "vendor"})
	}

	switch {
	case vlanPattern.MatchString(q):
		m := vlanPattern.FindStringSubmatch(q)
		add(types.IntentList, 0.85, map[string]string{SlotBy: "vlan", SlotValue: m[1]})
	case strings.Contains(q, "vlan table") || strings.Contains(q, "show vlan"):
		add(types.IntentList, 0.8, map[string]string{SlotView: "vlans"})
	case strings.Contains(q, "sonic") && containsAny(q, "leaf", "spine", "switch", "device"):
		slots := map[string]string{SlotBy: "os_family", SlotValue: types.OSFamilySONiC}
		if m := rolePattern.FindStringSubmatch(q); m != nil {
			slots = map[string]string{SlotBy: "role", SlotValue: m[1]}
		}
		add(types.IntentList, 0.8, slots)
	case containsAny(q, "list all", "show all"):
		if strings.Contains(q, "sonic") {
			add(types.IntentList, 0.8, map[string]string{SlotBy: "os_family", SlotValue: types.OSFamilySONiC})
		} else {
			add(types.IntentList, 0.8, nil)
		}
	case containsAny(q, "devices", "switches", "inventory list"):
		add(types.IntentList, 0.6, nil)
	}

	if containsAny(q, "summary", "summarize", "summarise", "overview", "how many") {
		add(types.IntentSummary, 0.7, nil)
	}

	return out, nil
}

// exportEncoding sniffs a requested output encoding
func exportEncoding(q string) string {
	switch {
	case strings.Contains(q, "html"):
		return "html"
	case strings.Contains(q, "markdown") || mdPattern.MatchString(q):
		return "markdown"
	case strings.Contains(q, "json"):
		return "json"
	}
	return ""
}

func canonicalField(f string) string {
	switch f {
	case "region":
		return "site"
	case "os", "platform":
		return "os_family"
	}
	return f
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Chain asks each classifier in turn and returns the first non-empty
// candidate list. Errors are logged and the next classifier is tried.
type Chain struct {
	classifiers []Classifier
	logger      logger.Logger
}

// NewChain builds a classifier chain
func NewChain(log logger.Logger, classifiers ...Classifier) *Chain {
	if log == nil {
		log = logger.NewNop()
	}
	return &Chain{classifiers: classifiers, logger: log}
}

// Classify implements Classifier
func (c *Chain) Classify(ctx context.Context, utterance string) ([]types.Candidate, error) {
	var lastErr error
	for _, cl := range c.classifiers {
		candidates, err := cl.Classify(ctx, utterance)
		if err != nil {
			c.logger.Warn("classifier failed, trying next: " + err.Error())
			lastErr = err
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	if lastErr != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, nil
}

// FromConfig builds the configured classifier. "claude" chains the model in
// front of the pattern classifier; anything else uses patterns alone.
func FromConfig(cfg *config.Config, log logger.Logger) (Classifier, error) {
	if cfg.Router.Classifier != "claude" {
		return PatternClassifier{}, nil
	}
	claude, err := NewClaudeClassifier(cfg.Claude.APIKey, cfg.Claude.Model)
	if err != nil {
		return nil, apperrors.ConfigurationError(err.Error()).
			WithSolutions("Set ANTHROPIC_API_KEY", "Or set router.classifier to pattern")
	}
	return NewChain(log, claude, PatternClassifier{}), nil
}
