package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/yairfalse/netpilot/pkg/types"
)

const timeFormat = "2006-01-02 15:04:05 MST"

// palette holds the colours used by table output
type palette struct {
	critical *color.Color
	warning  *color.Color
	info     *color.Color
	heading  *color.Color
	ok       *color.Color
}

func (r *Renderer) palette() palette {
	p := palette{
		critical: color.New(color.FgRed),
		warning:  color.New(color.FgYellow),
		info:     color.New(color.FgBlue),
		heading:  color.New(color.FgCyan),
		ok:       color.New(color.FgGreen),
	}
	if r.noColor {
		for _, c := range []*color.Color{p.critical, p.warning, p.info, p.heading, p.ok} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s types.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case types.SeverityCritical:
		return p.critical.Sprint(label)
	case types.SeverityWarning:
		return p.warning.Sprint(label)
	default:
		return p.info.Sprint(label)
	}
}

func (r *Renderer) renderTable(view View, doc *Document) string {
	var buf bytes.Buffer
	p := r.palette()
	sec := sectionsFor(view)

	if sec.Summary {
		r.tableSummary(&buf, p, doc, view == ViewReport)
	}
	if sec.Groupings {
		r.tableGroupCounts(&buf, p, doc)
	}
	if sec.Groups {
		r.tableGroups(&buf, p, doc)
	}
	if sec.VLANs {
		r.tableVLANs(&buf, p, doc)
	}
	if sec.Mismatches {
		r.tableMismatches(&buf, p, doc)
	}
	if sec.Devices {
		r.tableDevices(&buf, p, doc)
	}
	return buf.String()
}

func (r *Renderer) heading(buf *bytes.Buffer, p palette, title string) {
	if buf.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString(p.heading.Sprint(title))
	buf.WriteString("\n")
	buf.WriteString(p.heading.Sprint(strings.Repeat("=", len(title))))
	buf.WriteString("\n")
}

func (r *Renderer) tableSummary(buf *bytes.Buffer, p palette, doc *Document, withReport bool) {
	s := doc.summarize()
	r.heading(buf, p, "Inventory Summary")

	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	if doc.Inventory != nil && !doc.Inventory.GeneratedAt.IsZero() {
		fmt.Fprintf(w, "Generated:\t%s\n", doc.Inventory.GeneratedAt.UTC().Format(timeFormat))
	}
	fmt.Fprintf(w, "Devices:\t%d\n", s.Total)
	fmt.Fprintf(w, "In both sources:\t%d\n", s.Both)
	fmt.Fprintf(w, "Local only:\t%d\n", s.LocalOnly)
	fmt.Fprintf(w, "Remote only:\t%d\n", s.RemoteOnly)
	fmt.Fprintf(w, "Mismatches:\t%d (critical %d, warning %d, info %d)\n",
		s.Critical+s.Warning+s.Info, s.Critical, s.Warning, s.Info)
	if withReport {
		fmt.Fprintf(w, "Validation passed:\t%d\n", s.Report.Passed)
		fmt.Fprintf(w, "Validation failed:\t%d\n", s.Report.Failed)
		fmt.Fprintf(w, "Not run:\t%d\n", s.Report.NotRun)
	}
	w.Flush()

	if len(s.Sources) > 0 {
		buf.WriteString("\n")
		w = tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "SOURCE\tORIGIN\tDEVICES\tSTATUS\n")
		for _, st := range s.Sources {
			status := p.ok.Sprint("ok")
			switch {
			case st.Error != "":
				status = p.critical.Sprint("unavailable: ") + r.truncate(st.Error, r.width/2)
			case st.Degraded != "":
				status = p.warning.Sprint("fallback: ") + r.truncate(st.Degraded, r.width/2)
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", st.Source, r.truncate(st.Origin, r.width/4), st.DeviceCount, status)
		}
		w.Flush()
	}
}

func (r *Renderer) tableGroupCounts(buf *bytes.Buffer, p palette, doc *Document) {
	r.heading(buf, p, "Device Groupings")
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tVALUE\tDEVICES\n")
	for _, gc := range groupCounts(doc.report().Groups) {
		for _, b := range gc.Buckets {
			fmt.Fprintf(w, "%s\t%s\t%d\n", gc.Key, b.Value, b.Count)
		}
	}
	w.Flush()
}

func (r *Renderer) tableGroups(buf *bytes.Buffer, p palette, doc *Document) {
	key, groups := doc.groups()
	r.heading(buf, p, "Devices by "+key)
	if len(groups) == 0 {
		buf.WriteString("No devices found\n")
		return
	}
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tCOUNT\tDEVICES\n", strings.ToUpper(key))
	for _, g := range groups {
		names := make([]string, len(g.Devices))
		for i, d := range g.Devices {
			names[i] = d.Name
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", g.Key, len(g.Devices), r.truncate(strings.Join(names, ", "), r.width/2))
	}
	w.Flush()
}

func (r *Renderer) tableVLANs(buf *bytes.Buffer, p palette, doc *Document) {
	r.heading(buf, p, "VLAN Table")
	vlans := doc.vlans()
	if len(vlans) == 0 {
		buf.WriteString("No VLANs found\n")
		return
	}
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "VLAN\tNAME\tDEVICES\n")
	for _, v := range vlans {
		fmt.Fprintf(w, "%d\t%s\t%s\n", v.ID, v.Name, r.truncate(strings.Join(v.Devices, ", "), r.width/2))
	}
	w.Flush()
}

func (r *Renderer) tableMismatches(buf *bytes.Buffer, p palette, doc *Document) {
	r.heading(buf, p, "Mismatches")
	mismatches := doc.mismatches()
	if len(mismatches) == 0 {
		buf.WriteString(p.ok.Sprint("No mismatches - local and remote inventories agree"))
		buf.WriteString("\n")
		return
	}
	cell := r.width / 6
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEVERITY\tDEVICE\tFIELD\tLOCAL\tREMOTE\tVERIFIED\n")
	for _, m := range mismatches {
		verified := "no"
		if m.Verified {
			verified = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.severity(m.Severity),
			m.DeviceName,
			m.Field,
			r.truncate(valueOrNull(m.LocalValue), cell),
			r.truncate(valueOrNull(m.RemoteValue), cell),
			verified,
		)
	}
	w.Flush()
}

func (r *Renderer) tableDevices(buf *bytes.Buffer, p palette, doc *Document) {
	title := "Device Inventory"
	if doc.Filter != nil {
		title = fmt.Sprintf("Devices where %s = %s", doc.Filter.By, doc.Filter.Value)
	}
	r.heading(buf, p, title)

	devices := doc.devices()
	if len(devices) == 0 {
		buf.WriteString("No devices found\n")
		return
	}
	w := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tMGMT IP\tVENDOR\tOS\tROLE\tSITE\tVLANS\tSOURCES\n")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.ManagementIP, d.Vendor, d.OSFamily, d.Role, d.Site,
			r.truncate(vlanList(d, 0), r.width/6), provenance(d))
	}
	w.Flush()
	fmt.Fprintf(buf, "\n%d device(s)\n", len(devices))
}

// truncate shortens s to max runes with an ellipsis
func (r *Renderer) truncate(s string, max int) string {
	if max < 8 {
		max = 8
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
