package reconciler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
)

// GroupKeys lists the canonical grouping keys
var GroupKeys = []string{"vendor", "role", "site", "os_family"}

// CanonicalKey resolves grouping/filter aliases (region, os) to their canonical key.
func CanonicalKey(key string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "vendor", "manufacturer":
		return "vendor", nil
	case "role":
		return "role", nil
	case "site", "region":
		return "site", nil
	case "os", "os_family", "platform":
		return "os_family", nil
	case "name", "device", "hostname":
		return "name", nil
	case "vlan", "vlan_id":
		return "vlan", nil
	case "ip", "management_ip":
		return "management_ip", nil
	default:
		return "", fmt.Errorf("unknown device attribute %q", key)
	}
}

func attribute(d types.DeviceRecord, key string) string {
	switch key {
	case "vendor":
		return d.Vendor
	case "role":
		return d.Role
	case "site":
		return d.Site
	case "os_family":
		return d.OSFamily
	case "name":
		return d.Name
	case "management_ip":
		return d.ManagementIP
	default:
		return ""
	}
}

// GroupBy buckets the merged devices by key. Groups and members are sorted.
func GroupBy(inv *types.UnifiedInventory, key string) ([]types.Group, error) {
	canonical, err := CanonicalKey(key)
	if err != nil {
		return nil, err
	}
	if canonical == "vlan" || canonical == "name" || canonical == "management_ip" {
		return nil, fmt.Errorf("cannot group by %q, use one of %s", key, strings.Join(GroupKeys, ", "))
	}

	buckets := make(map[string][]types.DeviceRecord)
	for _, d := range inv.SortedDevices() {
		k := attribute(d, canonical)
		buckets[k] = append(buckets[k], d)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]types.Group, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, types.Group{Key: k, Devices: buckets[k]})
	}
	return groups, nil
}

// Filter returns the devices whose attribute by matches value, case-insensitively.
// An empty by returns every device.
func Filter(inv *types.UnifiedInventory, by, value string) ([]types.DeviceRecord, error) {
	all := inv.SortedDevices()
	if strings.TrimSpace(by) == "" {
		return all, nil
	}

	canonical, err := CanonicalKey(by)
	if err != nil {
		return nil, err
	}

	if canonical == "vlan" {
		id, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("vlan filter needs a numeric id, got %q", value)
		}
		return DevicesByVLAN(inv, id), nil
	}

	var out []types.DeviceRecord
	for _, d := range all {
		if strings.EqualFold(attribute(d, canonical), strings.TrimSpace(value)) ||
			(canonical == "os_family" && strings.EqualFold(d.OSName, strings.TrimSpace(value))) {
			out = append(out, d)
		}
	}
	return out, nil
}

// DevicesByVLAN returns devices carrying vlan id on the device or any interface
func DevicesByVLAN(inv *types.UnifiedInventory, id int) []types.DeviceRecord {
	var out []types.DeviceRecord
	for _, d := range inv.SortedDevices() {
		for _, v := range d.VLANSet() {
			if v == id {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// VLANTable lists every VLAN id with the devices carrying it, sorted by id.
func VLANTable(inv *types.UnifiedInventory) []types.VLANUsage {
	byID := make(map[int]*types.VLANUsage)
	for _, d := range inv.SortedDevices() {
		names := make(map[int]string)
		for _, v := range d.VLANs {
			names[v.ID] = v.Name
		}
		for _, id := range d.VLANSet() {
			usage, ok := byID[id]
			if !ok {
				usage = &types.VLANUsage{ID: id, Name: types.Unknown}
				byID[id] = usage
			}
			if n := names[id]; types.IsKnown(n) && !types.IsKnown(usage.Name) {
				usage.Name = n
			}
			usage.Devices = append(usage.Devices, d.Name)
		}
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	table := make([]types.VLANUsage, 0, len(ids))
	for _, id := range ids {
		table = append(table, *byID[id])
	}
	return table
}

// BuildReport tallies passed/failed devices and group counts. notRun is the
// number of identity checks that were requested but inconclusive.
func BuildReport(inv *types.UnifiedInventory, notRun int) types.Report {
	failing := make(map[string]bool)
	for _, m := range inv.Mismatches {
		if m.Severity != types.SeverityInfo {
			failing[m.DeviceName] = true
		}
	}

	report := types.Report{
		NotRun:     notRun,
		Mismatches: append([]types.MismatchEntry(nil), inv.Mismatches...),
		Groups:     make(map[string]map[string]int),
	}
	SortBySeverity(report.Mismatches)

	for _, d := range inv.SortedDevices() {
		switch {
		case failing[d.Name]:
			report.Failed++
		case d.HasSource(types.SourceLocal) && d.HasSource(types.SourceRemote):
			report.Passed++
		}
	}

	for _, key := range GroupKeys {
		counts := make(map[string]int)
		for _, d := range inv.Devices {
			counts[attribute(d, key)]++
		}
		report.Groups[key] = counts
	}
	return report
}
