package normalizer

import (
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

var vendorAliases = map[string]string{
	"edgecore":           "EdgeCore",
	"edge-core":          "EdgeCore",
	"accton":             "EdgeCore",
	"cisco":              "Cisco",
	"cisco systems":      "Cisco",
	"arista":             "Arista",
	"arista networks":    "Arista",
	"celtica":            "Celtica",
	"dell":               "Dell",
	"dell emc":           "Dell",
	"juniper":            "Juniper",
	"juniper networks":   "Juniper",
	"mellanox":           "Mellanox",
	"nvidia":             "NVIDIA",
	"nvidia corporation": "NVIDIA",
}

// NormalizeName returns the reconciliation key for a device name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeVendor maps a manufacturer string to its canonical spelling
func NormalizeVendor(vendor string) string {
	v := strings.ToLower(strings.TrimSpace(vendor))
	if v == "" {
		return types.Unknown
	}
	if canonical, ok := vendorAliases[v]; ok {
		return canonical
	}
	return titleCaser.String(v)
}

// NormalizeOS returns the os_family and a detailed os_name.
func NormalizeOS(os string) (family, name string) {
	o := strings.ToLower(strings.TrimSpace(os))
	switch {
	case o == "":
		return types.Unknown, types.Unknown
	case strings.Contains(o, "sonic"):
		return types.OSFamilySONiC, "SONiC"
	case strings.Contains(o, "nx-os"), strings.Contains(o, "nxos"), strings.Contains(o, "nexus"):
		return types.OSFamilyNonSONiC, "NX-OS"
	case strings.Contains(o, "eos"):
		return types.OSFamilyNonSONiC, "EOS"
	case strings.Contains(o, "junos"):
		return types.OSFamilyNonSONiC, "Junos"
	case strings.Contains(o, "ios"):
		return types.OSFamilyNonSONiC, "IOS"
	case strings.Contains(o, "cumulus"):
		return types.OSFamilyNonSONiC, "Cumulus"
	default:
		return types.OSFamilyNonSONiC, titleCaser.String(o)
	}
}

// NormalizeRole returns the canonical role and, for folded roles, the original detail.
func NormalizeRole(role string) (canonical, detail string) {
	r := strings.ToLower(strings.TrimSpace(role))
	switch {
	case r == "":
		return types.Unknown, ""
	case strings.Contains(r, "spine"):
		return types.RoleSpine, ""
	case strings.Contains(r, "leaf"), r == "tor":
		return types.RoleLeaf, ""
	case strings.Contains(r, "core"):
		return types.RoleOther, "core"
	case strings.Contains(r, "agg"):
		return types.RoleOther, "aggregation"
	default:
		return types.RoleOther, r
	}
}

// NormalizeReachability folds a source status into reachable/unreachable/unknown
func NormalizeReachability(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "up", "reachable", "online", "true":
		return types.Reachable
	case "offline", "failed", "down", "unreachable", "false":
		return types.Unreachable
	default:
		return types.Unknown
	}
}

// NormalizeInterfaceStatus folds an interface status into up/down/unknown
func NormalizeInterfaceStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "up", "connected", "active", "enabled", "true":
		return types.InterfaceUp
	case "down", "disabled", "notconnect", "false":
		return types.InterfaceDown
	default:
		return types.Unknown
	}
}
