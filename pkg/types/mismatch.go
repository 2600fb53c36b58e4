package types

import (
	"errors"
	"fmt"
)

// Field names the attribute a MismatchEntry disagrees on
type Field string

const (
	FieldPresence     Field = "presence"
	FieldVendor       Field = "vendor"
	FieldOSFamily     Field = "os_family"
	FieldRole         Field = "role"
	FieldManagementIP Field = "management_ip"
	FieldVLANSet      Field = "vlan_set"
	FieldReachability Field = "reachability"
)

// FieldOrder is the fixed enumeration order used to sort mismatches of one device.
var FieldOrder = []Field{
	FieldPresence,
	FieldVendor,
	FieldOSFamily,
	FieldRole,
	FieldManagementIP,
	FieldVLANSet,
	FieldReachability,
}

// Rank returns the position of f in FieldOrder
func (f Field) Rank() int {
	for i, o := range FieldOrder {
		if o == f {
			return i
		}
	}
	return len(FieldOrder)
}

// Severity of a mismatch
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Weight orders severities: critical > warning > info.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// MismatchEntry is one disagreement between the local and remote inventories.
type MismatchEntry struct {
	DeviceName  string   `json:"device_name"`
	Field       Field    `json:"field"`
	LocalValue  *string  `json:"local_value"`
	RemoteValue *string  `json:"remote_value"`
	Severity    Severity `json:"severity"`
	Verified    bool     `json:"verified"`
	Details     string   `json:"details,omitempty"`
}

// Validate enforces the side-population invariant
func (m *MismatchEntry) Validate() error {
	if m.DeviceName == "" {
		return errors.New("mismatch device name is required")
	}
	if m.Field == FieldPresence {
		if (m.LocalValue == nil) == (m.RemoteValue == nil) {
			return fmt.Errorf("presence mismatch for %s must populate exactly one side", m.DeviceName)
		}
		return nil
	}
	if m.LocalValue == nil || m.RemoteValue == nil {
		return fmt.Errorf("%s mismatch for %s must populate both sides", m.Field, m.DeviceName)
	}
	return nil
}

// Side returns the populated value of a presence mismatch and the source it came from.
func (m *MismatchEntry) Side() (Source, string) {
	if m.LocalValue != nil {
		return SourceLocal, *m.LocalValue
	}
	if m.RemoteValue != nil {
		return SourceRemote, *m.RemoteValue
	}
	return "", ""
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
