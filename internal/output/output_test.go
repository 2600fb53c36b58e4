package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/reconciler"
	"github.com/yairfalse/netpilot/pkg/types"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) }

func device(name string, src types.Source, mutate ...func(*types.DeviceRecord)) types.DeviceRecord {
	d := types.DeviceRecord{
		Name: name, Vendor: types.Unknown, OSFamily: types.Unknown, OSName: types.Unknown,
		Role: types.Unknown, ManagementIP: types.Unknown, Site: types.Unknown, Reachability: types.Unknown,
		Provenance: []types.Source{src},
	}
	for _, m := range mutate {
		m(&d)
	}
	return d
}

func sampleInventory() *types.UnifiedInventory {
	local := []types.DeviceRecord{
		device("sonic-leaf-01", types.SourceLocal, func(d *types.DeviceRecord) {
			d.Vendor, d.OSFamily, d.Role, d.ManagementIP = "EdgeCore", types.OSFamilySONiC, "leaf", "10.10.0.11"
			d.VLANs = []types.VLAN{{ID: 101, Name: "servers"}, {ID: 103, Name: types.Unknown}}
		}),
		device("sonic-leaf-02", types.SourceLocal, func(d *types.DeviceRecord) {
			d.Vendor, d.ManagementIP = "Dell", "10.10.0.12"
		}),
		device("edge-03", types.SourceLocal, func(d *types.DeviceRecord) {
			d.Vendor, d.Role = "Cisco|IOS", "core"
		}),
	}
	remote := []types.DeviceRecord{
		device("sonic-leaf-01", types.SourceRemote, func(d *types.DeviceRecord) {
			d.Vendor, d.OSFamily, d.ManagementIP = "Dell", types.OSFamilySONiC, "10.10.0.11"
			d.VLANs = []types.VLAN{{ID: 103, Name: types.Unknown}, {ID: 101, Name: types.Unknown}}
		}),
		device("sonic-leaf-02", types.SourceRemote, func(d *types.DeviceRecord) {
			d.Vendor, d.ManagementIP = "Dell", "10.10.0.22"
		}),
		device("spine-01", types.SourceRemote, func(d *types.DeviceRecord) {
			d.Vendor, d.Role = "Arista", "spine"
		}),
	}
	return reconciler.New(reconciler.WithClock(fixedNow)).Reconcile(local, remote,
		types.SourceStatus{Source: types.SourceLocal, Origin: "data/devices.yaml", DeviceCount: 3},
		types.SourceStatus{Source: types.SourceRemote, Origin: "sample", DeviceCount: 3, Degraded: "no credentials"},
	)
}

func init() {
	color.NoColor = true
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want Encoding
	}{
		{"", EncodingTable},
		{"table", EncodingTable},
		{"JSON", EncodingJSON},
		{"md", EncodingMarkdown},
		{"markdown", EncodingMarkdown},
		{"html", EncodingHTML},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseEncoding("yaml")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRenderEncodingUnsupported))
}

func TestRender_UnsupportedEncoding(t *testing.T) {
	_, err := NewRenderer(Options{Width: 120}).Render(ViewSummary, &Document{Inventory: sampleInventory()}, "pdf")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRenderEncodingUnsupported))
}

func TestRender_JSONRoundTrip(t *testing.T) {
	inv := sampleInventory()
	r := NewRenderer(Options{Width: 120})

	for _, view := range Views {
		t.Run(string(view), func(t *testing.T) {
			data, err := r.Render(view, &Document{Inventory: inv}, "json")
			require.NoError(t, err)

			gotView, doc, err := DecodeJSON(data)
			require.NoError(t, err)
			assert.Equal(t, view, gotView)
			assert.Equal(t, inv, doc.Inventory)

			again, err := r.Render(view, doc, "json")
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}
}

func TestRender_JSONShape(t *testing.T) {
	data, err := NewRenderer(Options{}).Render(ViewMismatches, &Document{Inventory: sampleInventory()}, "json")
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"inventory"`)
	assert.Contains(t, s, `"generated_at": "2026-03-01T12:30:45Z"`)
	assert.Contains(t, s, `"remote_value": null`)

	_, doc, err := DecodeJSON(data)
	require.NoError(t, err)
	assert.Nil(t, doc.Report)

	_, _, err = DecodeJSON([]byte(`{"mismatches":[]}`))
	assert.Error(t, err)
}

func TestRender_MismatchOrder(t *testing.T) {
	out, err := NewRenderer(Options{NoColor: true, Width: 200}).Render(ViewMismatches, &Document{Inventory: sampleInventory()}, "table")
	require.NoError(t, err)

	s := string(out)
	critical := strings.Index(s, "CRITICAL")
	warning := strings.Index(s, "WARNING")
	require.NotEqual(t, -1, critical)
	require.NotEqual(t, -1, warning)
	assert.Less(t, critical, warning, "critical before warning")

	edge := strings.Index(s, "edge-03")
	spine := strings.Index(s, "spine-01")
	assert.Less(t, edge, spine, "same severity ordered by device")
	assert.NotContains(t, s, "\x1b[")
}

func TestRender_TableViews(t *testing.T) {
	inv := sampleInventory()
	r := NewRenderer(Options{NoColor: true, Width: 120})

	tests := []struct {
		view     View
		doc      *Document
		contains []string
		excludes []string
	}{
		{
			view:     ViewSummary,
			doc:      &Document{Inventory: inv},
			contains: []string{"Inventory Summary", "Devices:", "4", "fallback: no credentials", "data/devices.yaml"},
			excludes: []string{"Validation passed"},
		},
		{
			view:     ViewDevices,
			doc:      &Document{Inventory: inv},
			contains: []string{"NAME", "edge-03", "sonic-leaf-01", "101, 103", "local+remote", "4 device(s)"},
		},
		{
			view: ViewDevices,
			doc: &Document{
				Inventory: inv,
				Devices:   []types.DeviceRecord{inv.Devices["spine-01"]},
				Filter:    &FilterSpec{By: "role", Value: "spine"},
			},
			contains: []string{"Devices where role = spine", "spine-01", "1 device(s)"},
			excludes: []string{"edge-03"},
		},
		{
			view:     ViewGroups,
			doc:      &Document{Inventory: inv, GroupBy: "vendor"},
			contains: []string{"Devices by vendor", "Arista", "Dell", "sonic-leaf-01, sonic-leaf-02"},
		},
		{
			view:     ViewVLANs,
			doc:      &Document{Inventory: inv},
			contains: []string{"VLAN Table", "101", "servers"},
		},
		{
			view:     ViewReport,
			doc:      &Document{Inventory: inv},
			contains: []string{"Validation passed", "Device Groupings", "Mismatches", "Device Inventory"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			out, err := r.Render(tt.view, tt.doc, "table")
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(out), want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, string(out), not)
			}
		})
	}
}

func TestRender_Markdown(t *testing.T) {
	out, err := NewRenderer(Options{}).Render(ViewReport, &Document{Inventory: sampleInventory()}, "markdown")
	require.NoError(t, err)

	s := string(out)
	sections := []string{"## Summary", "## Device Groupings", "## Mismatches", "## Device Inventory"}
	last := -1
	for _, sec := range sections {
		i := strings.Index(s, sec)
		require.NotEqual(t, -1, i, sec)
		assert.Greater(t, i, last, sec)
		last = i
	}
	assert.Contains(t, s, "### By Vendor")
	assert.Contains(t, s, `Cisco\|IOS`, "pipes in cells are escaped")
	assert.Contains(t, s, "| critical | sonic-leaf-02 | management_ip | 10.10.0.12 | 10.10.0.22 |")
}

func TestRender_HTML(t *testing.T) {
	inv := sampleInventory()
	d := inv.Devices["edge-03"]
	d.Site = "<script>alert(1)</script>"
	inv.Devices["edge-03"] = d

	out, err := NewRenderer(Options{}).Render(ViewReport, &Document{Inventory: inv}, "html")
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, "<!DOCTYPE html>"))
	assert.Contains(t, s, "<h2>Summary</h2>")
	assert.Contains(t, s, "<h2>Mismatches</h2>")
	assert.Contains(t, s, `<td class="critical">critical</td>`)
	assert.NotContains(t, s, "<script>")
	assert.Contains(t, s, "&lt;script&gt;")
}

func TestFileName(t *testing.T) {
	name := FileName(fixedNow(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427", EncodingMarkdown)
	assert.Equal(t, "inventory-report-20260301-123045-1b4e28ba.md", name)

	local := time.Date(2026, 3, 1, 14, 30, 45, 0, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "inventory-report-20260301-123045-abcd.html", FileName(local, "abcd", EncodingHTML))
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	ids := []string{"aaaaaaaa-0000", "aaaaaaaa-1111", "bbbbbbbb-2222"}
	next := 0
	e := NewExporter(NewRenderer(Options{}), dir,
		WithClock(fixedNow),
		WithIDSource(func() string { id := ids[next]; next++; return id }),
	)

	doc := &Document{Inventory: sampleInventory()}
	path, err := e.Export(doc, "html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inventory-report-20260301-123045-aaaaaaaa.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Device Inventory")

	// same name must not overwrite
	_, err = e.Export(doc, "html")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeArtifactWriteFailed))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)

	path, err = e.Export(doc, "json")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "-bbbbbbbb.json"))

	_, err = e.Export(doc, "table")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRenderEncodingUnsupported))
}
