package output

import (
	"fmt"
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
)

func renderMarkdown(view View, doc *Document) string {
	var b strings.Builder
	sec := sectionsFor(view)

	b.WriteString("# Inventory Report\n\n")
	if doc.Inventory != nil && !doc.Inventory.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s\n\n", doc.Inventory.GeneratedAt.UTC().Format(timeFormat))
	}

	if sec.Summary {
		s := doc.summarize()
		b.WriteString("## Summary\n\n")
		fmt.Fprintf(&b, "- **Total Devices:** %d\n", s.Total)
		fmt.Fprintf(&b, "- **In Both Sources:** %d\n", s.Both)
		fmt.Fprintf(&b, "- **Local Only:** %d\n", s.LocalOnly)
		fmt.Fprintf(&b, "- **Remote Only:** %d\n", s.RemoteOnly)
		fmt.Fprintf(&b, "- **Validation Passed:** %d\n", s.Report.Passed)
		fmt.Fprintf(&b, "- **Validation Failed:** %d\n", s.Report.Failed)
		fmt.Fprintf(&b, "- **Not Run:** %d\n", s.Report.NotRun)
		for _, st := range s.Sources {
			status := "ok"
			switch {
			case st.Error != "":
				status = "unavailable: " + st.Error
			case st.Degraded != "":
				status = "fallback: " + st.Degraded
			}
			fmt.Fprintf(&b, "- **Source %s:** %s, %d device(s), %s\n", st.Source, mdEscape(st.Origin), st.DeviceCount, mdEscape(status))
		}
		b.WriteString("\n")
	}

	if sec.Groupings {
		b.WriteString("## Device Groupings\n\n")
		for _, gc := range groupCounts(doc.report().Groups) {
			fmt.Fprintf(&b, "### By %s\n\n", groupTitle(gc.Key))
			for _, bk := range gc.Buckets {
				fmt.Fprintf(&b, "- **%s:** %d device(s)\n", mdEscape(bk.Value), bk.Count)
			}
			b.WriteString("\n")
		}
	}

	if sec.Groups {
		key, groups := doc.groups()
		fmt.Fprintf(&b, "## Device Groupings\n\n### By %s\n\n", groupTitle(key))
		for _, g := range groups {
			names := make([]string, len(g.Devices))
			for i, d := range g.Devices {
				names[i] = d.Name
			}
			fmt.Fprintf(&b, "- **%s** (%d): %s\n", mdEscape(g.Key), len(g.Devices), mdEscape(strings.Join(names, ", ")))
		}
		b.WriteString("\n")
	}

	if sec.VLANs {
		b.WriteString("## VLAN Table\n\n")
		b.WriteString("| VLAN | Name | Devices |\n")
		b.WriteString("|------|------|---------|\n")
		for _, v := range doc.vlans() {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", v.ID, mdEscape(v.Name), mdEscape(strings.Join(v.Devices, ", ")))
		}
		b.WriteString("\n")
	}

	if sec.Mismatches {
		b.WriteString("## Mismatches\n\n")
		mismatches := doc.mismatches()
		if len(mismatches) == 0 {
			b.WriteString("No mismatches found.\n\n")
		} else {
			b.WriteString("| Severity | Device | Field | Local | Remote | Verified | Details |\n")
			b.WriteString("|----------|--------|-------|-------|--------|----------|---------|\n")
			for _, m := range mismatches {
				fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %t | %s |\n",
					m.Severity, mdEscape(m.DeviceName), m.Field,
					mdEscape(valueOrNull(m.LocalValue)), mdEscape(valueOrNull(m.RemoteValue)),
					m.Verified, mdEscape(m.Details))
			}
			b.WriteString("\n")
		}
	}

	if sec.Devices {
		b.WriteString("## Device Inventory\n\n")
		if doc.Filter != nil {
			fmt.Fprintf(&b, "Filtered by %s = %s\n\n", mdEscape(doc.Filter.By), mdEscape(doc.Filter.Value))
		}
		b.WriteString("| Name | IP | Vendor | OS | Role | Site | VLANs | Sources |\n")
		b.WriteString("|------|----|--------|----|------|------|-------|---------|\n")
		for _, d := range doc.devices() {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				mdEscape(d.Name), d.ManagementIP, mdEscape(d.Vendor), mdEscape(deviceOS(d)),
				mdEscape(d.Role), mdEscape(d.Site), vlanList(d, 5), provenance(d))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func groupTitle(key string) string {
	switch key {
	case "os_family":
		return "OS"
	case "":
		return "Vendor"
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// deviceOS prefers the reported OS name over the coarse family
func deviceOS(d types.DeviceRecord) string {
	if types.IsKnown(d.OSName) {
		return d.OSName
	}
	return d.OSFamily
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}
