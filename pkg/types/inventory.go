package types

import (
	"sort"
	"time"
)

// SourceStatus records what one side of a reconciliation actually delivered.
type SourceStatus struct {
	Source      Source `json:"source"`
	Origin      string `json:"origin"`
	DeviceCount int    `json:"device_count"`
	// Degraded holds the primary error when a fallback served the records
	Degraded string `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Available reports whether the side produced data without error
func (s SourceStatus) Available() bool {
	return s.Error == ""
}

// UnifiedInventory is the merged view built by one reconciliation.
// It is never mutated after construction.
type UnifiedInventory struct {
	Devices     map[string]DeviceRecord `json:"devices"`
	Mismatches  []MismatchEntry         `json:"mismatches"`
	GeneratedAt time.Time               `json:"generated_at"`
	Sources     []SourceStatus          `json:"sources"`
}

// DeviceNames returns device names in sorted order
func (u *UnifiedInventory) DeviceNames() []string {
	names := make([]string, 0, len(u.Devices))
	for name := range u.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedDevices returns the merged devices sorted by name
func (u *UnifiedInventory) SortedDevices() []DeviceRecord {
	names := u.DeviceNames()
	out := make([]DeviceRecord, 0, len(names))
	for _, name := range names {
		out = append(out, u.Devices[name])
	}
	return out
}

// MismatchesFor returns the mismatches recorded against one device
func (u *UnifiedInventory) MismatchesFor(name string) []MismatchEntry {
	var out []MismatchEntry
	for _, m := range u.Mismatches {
		if m.DeviceName == name {
			out = append(out, m)
		}
	}
	return out
}

// WithMismatches returns a copy of the inventory carrying a different mismatch list.
func (u *UnifiedInventory) WithMismatches(mismatches []MismatchEntry) *UnifiedInventory {
	devices := make(map[string]DeviceRecord, len(u.Devices))
	for name, d := range u.Devices {
		devices[name] = d.Clone()
	}
	var sources []SourceStatus
	if u.Sources != nil {
		sources = make([]SourceStatus, len(u.Sources))
		copy(sources, u.Sources)
	}
	return &UnifiedInventory{
		Devices:     devices,
		Mismatches:  mismatches,
		GeneratedAt: u.GeneratedAt,
		Sources:     sources,
	}
}

// Group is one bucket of a grouped inventory view
type Group struct {
	Key     string         `json:"key"`
	Devices []DeviceRecord `json:"devices"`
}

// Report carries the pass/fail tallies of an inventory validation.
type Report struct {
	Passed     int                       `json:"passed"`
	Failed     int                       `json:"failed"`
	NotRun     int                       `json:"not_run"`
	Mismatches []MismatchEntry           `json:"mismatches"`
	Groups     map[string]map[string]int `json:"groups"`
}

// VLANUsage maps one VLAN id to the devices carrying it
type VLANUsage struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Devices []string `json:"devices"`
}
