package output

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/pkg/types"
)

type htmlDevice struct {
	types.DeviceRecord
	OS      string
	VLANs   string
	Sources string
}

type htmlGroup struct {
	Key     string
	Count   int
	Members string
}

type htmlPage struct {
	Title      string
	Generated  string
	Sections   sections
	Summary    summary
	Counts     []groupCount
	GroupBy    string
	Groups     []htmlGroup
	VLANs      []types.VLANUsage
	Mismatches []types.MismatchEntry
	Devices    []htmlDevice
	Filter     *FilterSpec
}

var htmlFuncs = template.FuncMap{
	"value": valueOrNull,
	"title": groupTitle,
	"join":  strings.Join,
}

var reportTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; color: #333; max-width: 1200px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
.container { background: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
h2 { color: #34495e; margin-top: 30px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 8px 12px; text-align: left; }
th { background: #3498db; color: white; }
tr:nth-child(even) { background: #f9f9f9; }
.critical { color: #c0392b; font-weight: 600; }
.warning { color: #d68910; font-weight: 600; }
.info { color: #2471a3; }
.footer { margin-top: 40px; padding-top: 20px; border-top: 1px solid #ddd; color: #7f8c8d; font-size: 0.9em; }
</style>
</head>
<body>
<div class="container">
<h1>{{.Title}}</h1>
{{- if .Sections.Summary}}
<h2>Summary</h2>
<ul>
<li><strong>Total Devices:</strong> {{.Summary.Total}}</li>
<li><strong>In Both Sources:</strong> {{.Summary.Both}}</li>
<li><strong>Local Only:</strong> {{.Summary.LocalOnly}}</li>
<li><strong>Remote Only:</strong> {{.Summary.RemoteOnly}}</li>
<li><strong>Validation Passed:</strong> {{.Summary.Report.Passed}}</li>
<li><strong>Validation Failed:</strong> {{.Summary.Report.Failed}}</li>
<li><strong>Not Run:</strong> {{.Summary.Report.NotRun}}</li>
{{- range .Summary.Sources}}
<li><strong>Source {{.Source}}:</strong> {{.Origin}}, {{.DeviceCount}} device(s){{if .Error}}, unavailable: {{.Error}}{{else if .Degraded}}, fallback: {{.Degraded}}{{end}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Sections.Groupings}}
<h2>Device Groupings</h2>
{{- range .Counts}}
<h3>By {{title .Key}}</h3>
<ul>
{{- range .Buckets}}
<li><strong>{{.Value}}:</strong> {{.Count}} device(s)</li>
{{- end}}
</ul>
{{- end}}
{{- end}}
{{- if .Sections.Groups}}
<h2>Device Groupings</h2>
<h3>By {{title .GroupBy}}</h3>
<table>
<thead><tr><th>{{title .GroupBy}}</th><th>Count</th><th>Devices</th></tr></thead>
<tbody>
{{- range .Groups}}
<tr><td>{{.Key}}</td><td>{{.Count}}</td><td>{{.Members}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
{{- if .Sections.VLANs}}
<h2>VLAN Table</h2>
<table>
<thead><tr><th>VLAN</th><th>Name</th><th>Devices</th></tr></thead>
<tbody>
{{- range .VLANs}}
<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{join .Devices ", "}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
{{- if .Sections.Mismatches}}
<h2>Mismatches</h2>
{{- if .Mismatches}}
<table>
<thead><tr><th>Severity</th><th>Device</th><th>Field</th><th>Local</th><th>Remote</th><th>Verified</th><th>Details</th></tr></thead>
<tbody>
{{- range .Mismatches}}
<tr><td class="{{.Severity}}">{{.Severity}}</td><td>{{.DeviceName}}</td><td>{{.Field}}</td><td>{{value .LocalValue}}</td><td>{{value .RemoteValue}}</td><td>{{.Verified}}</td><td>{{.Details}}</td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No mismatches found.</p>
{{- end}}
{{- end}}
{{- if .Sections.Devices}}
<h2>Device Inventory</h2>
{{- with .Filter}}
<p>Filtered by {{.By}} = {{.Value}}</p>
{{- end}}
<table>
<thead><tr><th>Name</th><th>IP</th><th>Vendor</th><th>OS</th><th>Role</th><th>Site</th><th>VLANs</th><th>Sources</th></tr></thead>
<tbody>
{{- range .Devices}}
<tr><td>{{.Name}}</td><td>{{.ManagementIP}}</td><td>{{.Vendor}}</td><td>{{.OS}}</td><td>{{.Role}}</td><td>{{.Site}}</td><td>{{.VLANs}}</td><td>{{.Sources}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
<div class="footer"><p>Generated: {{.Generated}}</p></div>
</div>
</body>
</html>
`))

func renderHTML(view View, doc *Document) ([]byte, error) {
	sec := sectionsFor(view)
	page := htmlPage{
		Title:    "Inventory Report",
		Sections: sec,
		Filter:   doc.Filter,
	}
	if doc.Inventory != nil {
		page.Generated = doc.Inventory.GeneratedAt.UTC().Format(timeFormat)
	}
	if sec.Summary {
		page.Summary = doc.summarize()
	}
	if sec.Groupings {
		page.Counts = groupCounts(doc.report().Groups)
	}
	if sec.Groups {
		key, groups := doc.groups()
		page.GroupBy = key
		for _, g := range groups {
			names := make([]string, len(g.Devices))
			for i, d := range g.Devices {
				names[i] = d.Name
			}
			page.Groups = append(page.Groups, htmlGroup{Key: g.Key, Count: len(g.Devices), Members: strings.Join(names, ", ")})
		}
	}
	if sec.VLANs {
		page.VLANs = doc.vlans()
	}
	if sec.Mismatches {
		page.Mismatches = doc.mismatches()
	}
	if sec.Devices {
		for _, d := range doc.devices() {
			page.Devices = append(page.Devices, htmlDevice{
				DeviceRecord: d,
				OS:           deviceOS(d),
				VLANs:        vlanList(d, 5),
				Sources:      provenance(d),
			})
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, page); err != nil {
		return nil, errors.Wrap(err, "render html report")
	}
	return buf.Bytes(), nil
}
