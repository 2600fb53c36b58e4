package normalizer

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
)

// Field aliases, in lookup order. Local documents use the short names,
// NetBox uses the long ones.
var (
	nameKeys     = []string{"name", "hostname", "display"}
	ipKeys       = []string{"primary_ip", "primary_ip4", "management_ip", "mgmt_ip", "ip"}
	vendorKeys   = []string{"manufacturer", "vendor"}
	osKeys       = []string{"platform", "os", "os_family"}
	roleKeys     = []string{"role", "device_role"}
	siteKeys     = []string{"site", "region"}
	statusKeys   = []string{"status", "reachable", "reachability"}
	nestedLabels = []string{"name", "display", "value", "address", "model", "label", "slug"}
)

// Normalize maps the raw records of one source into DeviceRecords. Every raw
// record yields exactly one DeviceRecord, with provenance set to source.
func Normalize(source types.Source, raws []types.RawRecord) []types.DeviceRecord {
	devices := make([]types.DeviceRecord, 0, len(raws))
	for i, raw := range raws {
		devices = append(devices, normalizeDevice(source, i, raw))
	}
	return devices
}

func normalizeDevice(source types.Source, index int, raw types.RawRecord) types.DeviceRecord {
	ip := normalizeIP(lookupString(raw, ipKeys...))

	name := NormalizeName(lookupString(raw, nameKeys...))
	if name == "" {
		if types.IsKnown(ip) {
			name = ip
		} else {
			name = fmt.Sprintf("unnamed-%s-%d", source, index)
		}
	}

	vendor := lookupString(raw, vendorKeys...)
	if vendor == "" {
		vendor = nestedString(raw, "device_type", "manufacturer")
	}

	osRaw := lookupString(raw, osKeys...)
	if dt, ok := raw["device_type"].(string); ok && osRaw == "" {
		osRaw = dt
	}
	family, osName := NormalizeOS(osRaw)
	role, roleDetail := NormalizeRole(lookupString(raw, roleKeys...))

	site := strings.TrimSpace(lookupString(raw, siteKeys...))
	if site == "" {
		site = types.Unknown
	}

	device := types.DeviceRecord{
		Name:         name,
		Vendor:       NormalizeVendor(vendor),
		OSFamily:     family,
		OSName:       osName,
		Role:         role,
		ManagementIP: ip,
		Site:         site,
		Reachability: NormalizeReachability(lookupString(raw, statusKeys...)),
		VLANs:        parseVLANs(raw["vlans"]),
		Interfaces:   parseInterfaces(raw["interfaces"]),
		Provenance:   []types.Source{source},
	}
	if roleDetail != "" {
		device.Tags = map[string]string{"role_detail": roleDetail}
	}
	return device
}

// normalizeIP strips a CIDR suffix and canonicalises the address when it parses.
func normalizeIP(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return types.Unknown
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String()
	}
	return s
}

func lookupString(raw types.RawRecord, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s := stringify(v); s != "" {
			return s
		}
	}
	return ""
}

func nestedString(raw types.RawRecord, outer, inner string) string {
	m, ok := raw[outer].(map[string]any)
	if !ok {
		return ""
	}
	return stringify(m[inner])
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, k := range nestedLabels {
			if s := stringify(t[k]); s != "" {
				return s
			}
		}
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func parseVLANs(v any) []types.VLAN {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	seen := make(map[int]bool)
	vlans := make([]types.VLAN, 0, len(list))
	for _, item := range list {
		vlan, ok := parseVLAN(item)
		if !ok || seen[vlan.ID] {
			continue
		}
		seen[vlan.ID] = true
		vlans = append(vlans, vlan)
	}
	sort.Slice(vlans, func(i, j int) bool { return vlans[i].ID < vlans[j].ID })
	return vlans
}

func parseVLAN(item any) (types.VLAN, bool) {
	if m, ok := item.(map[string]any); ok {
		// NetBox carries both a row id and the 802.1Q vid
		id, ok := toInt(m["vid"])
		if !ok {
			id, ok = toInt(m["id"])
		}
		if !ok {
			return types.VLAN{}, false
		}
		name := stringify(m["name"])
		if name == "" {
			name = types.Unknown
		}
		return types.VLAN{ID: id, Name: name}, true
	}
	id, ok := toInt(item)
	if !ok {
		return types.VLAN{}, false
	}
	return types.VLAN{ID: id, Name: types.Unknown}, true
}

func parseInterfaces(v any) []types.InterfaceRecord {
	list, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]types.InterfaceRecord, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, types.InterfaceRecord{Name: strings.TrimSpace(t), VLANIDs: []int{}, Status: types.Unknown})
		case map[string]any:
			out = append(out, parseInterface(t))
		}
	}
	return out
}

func parseInterface(m map[string]any) types.InterfaceRecord {
	iface := types.InterfaceRecord{
		Name:   stringify(m["name"]),
		Status: types.Unknown,
	}

	ids := make(map[int]bool)
	for _, key := range []string{"vlans", "vlan_ids", "tagged_vlans"} {
		if list, ok := m[key].([]any); ok {
			for _, item := range list {
				if vlan, ok := parseVLAN(item); ok {
					ids[vlan.ID] = true
				}
			}
		}
	}
	if untagged, ok := parseVLAN(m["untagged_vlan"]); ok && m["untagged_vlan"] != nil {
		ids[untagged.ID] = true
	}
	iface.VLANIDs = make([]int, 0, len(ids))
	for id := range ids {
		iface.VLANIDs = append(iface.VLANIDs, id)
	}
	sort.Ints(iface.VLANIDs)

	if s := stringify(m["status"]); s != "" {
		iface.Status = NormalizeInterfaceStatus(s)
	} else if enabled, ok := m["enabled"].(bool); ok {
		iface.Status = NormalizeInterfaceStatus(strconv.FormatBool(enabled))
	}
	return iface
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
