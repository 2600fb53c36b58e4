package output

import (
	"sort"
	"strconv"
	"strings"

	"github.com/yairfalse/netpilot/internal/reconciler"
	"github.com/yairfalse/netpilot/pkg/types"
)

// View selects what part of a Document is rendered
type View string

const (
	ViewDevices    View = "devices"
	ViewSummary    View = "summary"
	ViewMismatches View = "mismatches"
	ViewReport     View = "report"
	ViewGroups     View = "groups"
	ViewVLANs      View = "vlans"
)

// Views lists every renderable view
var Views = []View{ViewDevices, ViewSummary, ViewMismatches, ViewReport, ViewGroups, ViewVLANs}

// ParseView resolves a view name, defaulting to summary
func ParseView(s string) (View, bool) {
	if s == "" {
		return ViewSummary, true
	}
	for _, v := range Views {
		if strings.EqualFold(s, string(v)) {
			return v, true
		}
	}
	return "", false
}

// Document is everything a renderer may need for one answer. Only
// Inventory is required; the other fields narrow or extend it.
type Document struct {
	Inventory *types.UnifiedInventory
	// Devices is a filtered selection; nil means every device
	Devices  []types.DeviceRecord
	Filter   *FilterSpec
	GroupBy  string
	Groups   []types.Group
	VLANs    []types.VLANUsage
	Report   *types.Report
	Decision *types.RoutingDecision
}

// FilterSpec records the filter that produced Document.Devices
type FilterSpec struct {
	By    string `json:"by"`
	Value string `json:"value"`
}

// devices returns the selected devices sorted by name
func (d *Document) devices() []types.DeviceRecord {
	if d.Devices == nil {
		if d.Inventory == nil {
			return nil
		}
		return d.Inventory.SortedDevices()
	}
	out := append([]types.DeviceRecord(nil), d.Devices...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// mismatches returns the inventory mismatches in display order
func (d *Document) mismatches() []types.MismatchEntry {
	if d.Inventory == nil {
		return nil
	}
	out := append([]types.MismatchEntry(nil), d.Inventory.Mismatches...)
	reconciler.SortBySeverity(out)
	return out
}

// report returns the attached report or builds one from the inventory
func (d *Document) report() types.Report {
	if d.Report != nil {
		return *d.Report
	}
	if d.Inventory == nil {
		return types.Report{}
	}
	return reconciler.BuildReport(d.Inventory, 0)
}

// groups returns the attached groups, grouping by vendor when none were computed
func (d *Document) groups() (string, []types.Group) {
	if d.Groups != nil || d.Inventory == nil {
		return d.GroupBy, d.Groups
	}
	key := d.GroupBy
	if key == "" {
		key = "vendor"
	}
	groups, err := reconciler.GroupBy(d.Inventory, key)
	if err != nil {
		return key, nil
	}
	return key, groups
}

func (d *Document) vlans() []types.VLANUsage {
	if d.VLANs != nil || d.Inventory == nil {
		return d.VLANs
	}
	return reconciler.VLANTable(d.Inventory)
}

// summary holds the headline counts shown by every encoding
type summary struct {
	Total      int
	Both       int
	LocalOnly  int
	RemoteOnly int
	Critical   int
	Warning    int
	Info       int
	Report     types.Report
	Sources    []types.SourceStatus
}

func (d *Document) summarize() summary {
	s := summary{Report: d.report()}
	if d.Inventory == nil {
		return s
	}
	s.Sources = d.Inventory.Sources
	for _, dev := range d.Inventory.Devices {
		s.Total++
		local, remote := dev.HasSource(types.SourceLocal), dev.HasSource(types.SourceRemote)
		switch {
		case local && remote:
			s.Both++
		case local:
			s.LocalOnly++
		case remote:
			s.RemoteOnly++
		}
	}
	for _, m := range d.Inventory.Mismatches {
		switch m.Severity {
		case types.SeverityCritical:
			s.Critical++
		case types.SeverityWarning:
			s.Warning++
		default:
			s.Info++
		}
	}
	return s
}

// sections picks the report sections a view shows
type sections struct {
	Summary    bool
	Groupings  bool
	Groups     bool
	Mismatches bool
	Devices    bool
	VLANs      bool
}

func sectionsFor(v View) sections {
	switch v {
	case ViewDevices:
		return sections{Devices: true}
	case ViewMismatches:
		return sections{Mismatches: true}
	case ViewGroups:
		return sections{Groups: true}
	case ViewVLANs:
		return sections{VLANs: true}
	case ViewReport:
		return sections{Summary: true, Groupings: true, Mismatches: true, Devices: true}
	default:
		return sections{Summary: true}
	}
}

// groupCounts returns the report group counts with stable key order
func groupCounts(counts map[string]map[string]int) []groupCount {
	var out []groupCount
	for _, key := range reconciler.GroupKeys {
		c, ok := counts[key]
		if !ok {
			continue
		}
		gc := groupCount{Key: key}
		for value, n := range c {
			gc.Buckets = append(gc.Buckets, bucket{Value: value, Count: n})
		}
		sort.Slice(gc.Buckets, func(i, j int) bool { return gc.Buckets[i].Value < gc.Buckets[j].Value })
		out = append(out, gc)
	}
	return out
}

type groupCount struct {
	Key     string
	Buckets []bucket
}

type bucket struct {
	Value string
	Count int
}

func vlanList(d types.DeviceRecord, limit int) string {
	ids := d.VLANSet()
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ids))
	for i, id := range ids {
		if limit > 0 && i == limit {
			parts = append(parts, "+"+strconv.Itoa(len(ids)-limit)+" more")
			break
		}
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ", ")
}

func provenance(d types.DeviceRecord) string {
	parts := make([]string, len(d.Provenance))
	for i, s := range d.Provenance {
		parts[i] = string(s)
	}
	return strings.Join(parts, "+")
}

func valueOrNull(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
