package reconciler

import "github.com/yairfalse/netpilot/pkg/types"

// DefaultClassifier assigns severity from a per-field rule table
type DefaultClassifier struct {
	rules map[types.Field]ClassificationRule
}

// ClassificationRule defines how to classify a mismatch on one field
type ClassificationRule struct {
	Severity    types.Severity
	Description string
}

// NewDefaultClassifier creates a classifier with default rules
func NewDefaultClassifier() *DefaultClassifier {
	classifier := &DefaultClassifier{
		rules: make(map[types.Field]ClassificationRule),
	}

	classifier.initializeRules()
	return classifier
}

// initializeRules sets up the default classification rules
func (c *DefaultClassifier) initializeRules() {
	// Reachability and segmentation (CRITICAL)
	c.rules[types.FieldManagementIP] = ClassificationRule{
		Severity:    types.SeverityCritical,
		Description: "Management address disagreement breaks reachability",
	}
	c.rules[types.FieldVLANSet] = ClassificationRule{
		Severity:    types.SeverityCritical,
		Description: "VLAN membership disagreement breaks segmentation",
	}

	// Everything else (WARNING)
	c.rules[types.FieldPresence] = ClassificationRule{
		Severity:    types.SeverityWarning,
		Description: "Device is recorded in only one source",
	}
	c.rules[types.FieldVendor] = ClassificationRule{
		Severity:    types.SeverityWarning,
		Description: "Vendor disagreement",
	}
	c.rules[types.FieldOSFamily] = ClassificationRule{
		Severity:    types.SeverityWarning,
		Description: "Operating system family disagreement",
	}
	c.rules[types.FieldRole] = ClassificationRule{
		Severity:    types.SeverityWarning,
		Description: "Fabric role disagreement",
	}
	c.rules[types.FieldReachability] = ClassificationRule{
		Severity:    types.SeverityWarning,
		Description: "Sources disagree on whether the device is reachable",
	}
}

// Classify returns the severity for entry's field
func (c *DefaultClassifier) Classify(entry types.MismatchEntry) types.Severity {
	if rule, ok := c.rules[entry.Field]; ok {
		return rule.Severity
	}
	return types.SeverityWarning
}

// Describe returns the rule description for a field
func (c *DefaultClassifier) Describe(field types.Field) string {
	return c.rules[field].Description
}
