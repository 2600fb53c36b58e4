package reconciler

import (
	"sort"
	"time"

	"github.com/yairfalse/netpilot/pkg/types"
)

// Reconciler merges the local and remote inventories and enumerates their disagreements.
type Reconciler struct {
	matcher    DeviceMatcher
	comparer   FieldComparer
	classifier SeverityClassifier
	now        func() time.Time
}

// Option customises a Reconciler
type Option func(*Reconciler)

// WithClock fixes the GeneratedAt source, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// New creates a Reconciler with the default matcher, comparer and classifier
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		matcher:    &NameMatcher{},
		comparer:   &DefaultComparer{},
		classifier: NewDefaultClassifier(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile builds a fresh UnifiedInventory. It never fails: an empty side
// turns every device of the other side into a presence mismatch.
func (r *Reconciler) Reconcile(local, remote []types.DeviceRecord, sources ...types.SourceStatus) *types.UnifiedInventory {
	match := r.matcher.Match(local, remote)

	devices := make(map[string]types.DeviceRecord, len(match.Both)+len(match.OnlyLocal)+len(match.OnlyRemote))
	var mismatches []types.MismatchEntry

	for _, d := range match.OnlyLocal {
		merged := d.Clone()
		merged.Provenance = []types.Source{types.SourceLocal}
		devices[merged.Name] = merged
		mismatches = append(mismatches, r.presence(merged, types.SourceLocal))
	}

	for _, d := range match.OnlyRemote {
		merged := d.Clone()
		merged.Provenance = []types.Source{types.SourceRemote}
		devices[merged.Name] = merged
		mismatches = append(mismatches, r.presence(merged, types.SourceRemote))
	}

	for _, pair := range match.Both {
		devices[pair.Name] = mergePair(pair)
		for _, entry := range r.comparer.CompareDevices(pair.Local, pair.Remote) {
			entry.DeviceName = pair.Name
			entry.Severity = r.classifier.Classify(entry)
			mismatches = append(mismatches, entry)
		}
	}

	SortByDevice(mismatches)

	var status []types.SourceStatus
	if len(sources) > 0 {
		status = append(status, sources...)
	}

	return &types.UnifiedInventory{
		Devices:     devices,
		Mismatches:  mismatches,
		GeneratedAt: r.now().UTC(),
		Sources:     status,
	}
}

func (r *Reconciler) presence(d types.DeviceRecord, side types.Source) types.MismatchEntry {
	entry := types.MismatchEntry{
		DeviceName: d.Name,
		Field:      types.FieldPresence,
	}
	summary := d.Summary()
	if side == types.SourceLocal {
		entry.LocalValue = &summary
		entry.Details = "present in local inventory only"
	} else {
		entry.RemoteValue = &summary
		entry.Details = "present in remote catalog only"
	}
	entry.Severity = r.classifier.Classify(entry)
	return entry
}

// mergePair applies the authority rules: remote wins identity attributes,
// local wins role, and unknown never overrides a known value.
func mergePair(p MatchedPair) types.DeviceRecord {
	l, rm := p.Local.Clone(), p.Remote.Clone()

	merged := types.DeviceRecord{
		Name:         p.Name,
		Vendor:       prefer(rm.Vendor, l.Vendor),
		ManagementIP: prefer(rm.ManagementIP, l.ManagementIP),
		Site:         prefer(rm.Site, l.Site),
		Reachability: prefer(rm.Reachability, l.Reachability),
		Provenance:   []types.Source{types.SourceLocal, types.SourceRemote},
	}

	if types.IsKnown(rm.OSFamily) {
		merged.OSFamily, merged.OSName = rm.OSFamily, rm.OSName
	} else {
		merged.OSFamily, merged.OSName = l.OSFamily, l.OSName
	}

	if types.IsKnown(l.Role) {
		merged.Role, merged.Tags = l.Role, l.Tags
	} else {
		merged.Role, merged.Tags = rm.Role, rm.Tags
	}

	if len(l.VLANs) > 0 {
		merged.VLANs = l.VLANs
	} else {
		merged.VLANs = rm.VLANs
	}
	if len(l.Interfaces) > 0 {
		merged.Interfaces = l.Interfaces
	} else {
		merged.Interfaces = rm.Interfaces
	}

	return merged
}

func prefer(primary, fallback string) string {
	if types.IsKnown(primary) {
		return primary
	}
	if fallback == "" {
		return types.Unknown
	}
	return fallback
}

// SortByDevice orders mismatches by device name, then field enumeration order.
func SortByDevice(entries []types.MismatchEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DeviceName != entries[j].DeviceName {
			return entries[i].DeviceName < entries[j].DeviceName
		}
		return entries[i].Field.Rank() < entries[j].Field.Rank()
	})
}

// SortBySeverity orders mismatches by severity desc, device name, then field.
func SortBySeverity(entries []types.MismatchEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		wi, wj := entries[i].Severity.Weight(), entries[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		if entries[i].DeviceName != entries[j].DeviceName {
			return entries[i].DeviceName < entries[j].DeviceName
		}
		return entries[i].Field.Rank() < entries[j].Field.Rank()
	})
}
