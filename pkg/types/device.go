package types

import (
	"errors"
	"sort"
	"strings"
)

// Unknown is the sentinel carried by any optional attribute a source did not report.
const Unknown = "unknown"

// Source identifies one of the two inventories being reconciled
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Valid reports whether s names a known inventory source
func (s Source) Valid() bool {
	return s == SourceLocal || s == SourceRemote
}

// OS families
const (
	OSFamilySONiC    = "SONiC"
	OSFamilyNonSONiC = "non-SONiC"
)

// Roles
const (
	RoleLeaf  = "leaf"
	RoleSpine = "spine"
	RoleOther = "other"
)

// Reachability states
const (
	Reachable   = "reachable"
	Unreachable = "unreachable"
)

// Interface states
const (
	InterfaceUp   = "up"
	InterfaceDown = "down"
)

// RawRecord is one device entry exactly as an adapter decoded it.
type RawRecord map[string]any

// VLAN is a device-scoped VLAN membership
type VLAN struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// InterfaceRecord is an interface owned by a DeviceRecord
type InterfaceRecord struct {
	Name    string `json:"name"`
	VLANIDs []int  `json:"vlan_ids"`
	Status  string `json:"status"`
}

// DeviceRecord is the common shape both sources are normalized into.
type DeviceRecord struct {
	Name         string            `json:"name"`
	Vendor       string            `json:"vendor"`
	OSFamily     string            `json:"os_family"`
	OSName       string            `json:"os_name"`
	Role         string            `json:"role"`
	ManagementIP string            `json:"management_ip"`
	Site         string            `json:"site"`
	Reachability string            `json:"reachability"`
	VLANs        []VLAN            `json:"vlans"`
	Interfaces   []InterfaceRecord `json:"interfaces"`
	Provenance   []Source          `json:"provenance"`
	Tags         map[string]string `json:"tags"`
}

// Validate checks the record invariants
func (d *DeviceRecord) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("device name is required")
	}
	if len(d.Provenance) == 0 {
		return errors.New("device provenance must name at least one source")
	}
	for _, s := range d.Provenance {
		if !s.Valid() {
			return errors.New("device provenance contains unknown source " + string(s))
		}
	}
	return nil
}

// HasSource reports whether s contributed to the record
func (d *DeviceRecord) HasSource(s Source) bool {
	for _, p := range d.Provenance {
		if p == s {
			return true
		}
	}
	return false
}

// VLANSet returns the sorted union of device and interface VLAN ids.
func (d *DeviceRecord) VLANSet() []int {
	seen := make(map[int]struct{})
	for _, v := range d.VLANs {
		seen[v.ID] = struct{}{}
	}
	for _, iface := range d.Interfaces {
		for _, id := range iface.VLANIDs {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// InterfaceNames returns the interface names in record order
func (d *DeviceRecord) InterfaceNames() []string {
	names := make([]string, 0, len(d.Interfaces))
	for _, iface := range d.Interfaces {
		names = append(names, iface.Name)
	}
	return names
}

// Clone returns a deep copy of the record.
func (d DeviceRecord) Clone() DeviceRecord {
	out := d
	if d.VLANs != nil {
		out.VLANs = make([]VLAN, len(d.VLANs))
		copy(out.VLANs, d.VLANs)
	}
	if d.Interfaces != nil {
		out.Interfaces = make([]InterfaceRecord, len(d.Interfaces))
		for i, iface := range d.Interfaces {
			out.Interfaces[i] = iface
			if iface.VLANIDs != nil {
				out.Interfaces[i].VLANIDs = make([]int, len(iface.VLANIDs))
				copy(out.Interfaces[i].VLANIDs, iface.VLANIDs)
			}
		}
	}
	if d.Provenance != nil {
		out.Provenance = make([]Source, len(d.Provenance))
		copy(out.Provenance, d.Provenance)
	}
	if d.Tags != nil {
		out.Tags = make(map[string]string, len(d.Tags))
		for k, v := range d.Tags {
			out.Tags[k] = v
		}
	}
	return out
}

// Summary is the one-line attribute rendering used for presence mismatches.
func (d *DeviceRecord) Summary() string {
	return d.Name + " (vendor=" + d.Vendor + ", os=" + d.OSFamily + ", role=" + d.Role + ", ip=" + d.ManagementIP + ")"
}

// IsKnown reports whether v carries real data rather than the sentinel
func IsKnown(v string) bool {
	return v != "" && v != Unknown
}
