package reconciler

import "github.com/yairfalse/netpilot/pkg/types"

// DeviceMatcher pairs the two sides by reconciliation key
type DeviceMatcher interface {
	Match(local, remote []types.DeviceRecord) MatchResult
}

// FieldComparer reports field disagreements between two records of one device
type FieldComparer interface {
	CompareDevices(local, remote types.DeviceRecord) []types.MismatchEntry
}

// SeverityClassifier assigns a severity to a mismatch
type SeverityClassifier interface {
	Classify(entry types.MismatchEntry) types.Severity
}

// MatchResult holds the output of a DeviceMatcher. All slices are sorted by name.
type MatchResult struct {
	Both       []MatchedPair
	OnlyLocal  []types.DeviceRecord
	OnlyRemote []types.DeviceRecord
}

// MatchedPair is a device present in both sources
type MatchedPair struct {
	Name   string
	Local  types.DeviceRecord
	Remote types.DeviceRecord
}
