package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/netpilot/internal/collectors"
	"github.com/yairfalse/netpilot/internal/collectors/netbox"
	"github.com/yairfalse/netpilot/internal/metrics"
	"github.com/yairfalse/netpilot/internal/output"
	"github.com/yairfalse/netpilot/internal/pipeline"
	"github.com/yairfalse/netpilot/internal/transport"
	"github.com/yairfalse/netpilot/pkg/types"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) }

func collector(id string, records ...types.RawRecord) collectors.Collector {
	return collectors.CollectorFunc{ID: id, Fn: func(ctx context.Context) (*collectors.Result, error) {
		return &collectors.Result{Records: records, Origin: id}, nil
	}}
}

func down(id string) collectors.Collector {
	return collectors.CollectorFunc{ID: id, Fn: func(ctx context.Context) (*collectors.Result, error) {
		return nil, errors.New(id + " unreachable")
	}}
}

type fakeTopology struct{}

func (fakeTopology) Topology(ctx context.Context) (*netbox.Topology, error) {
	return &netbox.Topology{
		Devices:    []types.RawRecord{{"name": "spine-01"}},
		Links:      []netbox.Link{{SourceDevice: "spine-01", SourceInterface: "Ethernet1", TargetDevice: "sonic-leaf-01", TargetInterface: "Ethernet0"}},
		Statistics: netbox.Statistics{TotalDevices: 1, TotalLinks: 1},
		Origin:     netbox.SampleOrigin,
	}, nil
}

type fakeTransport struct{ last transport.Request }

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Run(ctx context.Context, req transport.Request) transport.Result {
	f.last = req
	if req.Host == "10.10.0.11" {
		return transport.Result{Success: true, Method: "ssh", Output: "SONiC Software Version: 202311"}
	}
	return transport.Result{Method: "ssh", Error: "connection refused"}
}

type fixture struct {
	registry  *Registry
	reg       *prometheus.Registry
	transport *fakeTransport
	exportDir string
}

func newFixture(t *testing.T, local, remote collectors.Collector) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	dir := filepath.Join(t.TempDir(), "reports")
	renderer := output.NewRenderer(output.Options{NoColor: true})

	p := pipeline.New(local, remote, renderer,
		pipeline.WithClock(fixedNow),
		pipeline.WithMetrics(m),
		pipeline.WithExporter(output.NewExporter(renderer, dir, output.WithClock(fixedNow))),
	)
	ft := &fakeTransport{}
	r := NewRegistry(nil, m)
	b := &Backend{Pipeline: p, Topology: fakeTopology{}, Transport: ft}
	require.NoError(t, b.Register(r))
	return &fixture{registry: r, reg: reg, transport: ft, exportDir: dir}
}

func defaultFixture(t *testing.T) *fixture {
	return newFixture(t,
		collector("devices.yaml",
			types.RawRecord{"name": "sonic-leaf-01", "ip": "10.10.0.11", "vendor": "EdgeCore", "os": "sonic", "role": "leaf",
				"vlans": []interface{}{map[string]interface{}{"id": 101, "name": "servers"}, 103}},
			types.RawRecord{"name": "sonic-leaf-02", "ip": "10.10.0.12", "vendor": "Dell", "os": "sonic", "role": "leaf", "vlans": []interface{}{101}},
			types.RawRecord{"name": "edge-03", "ip": "10.10.0.30", "vendor": "Cisco", "role": "core", "region": "dc2"},
		),
		collector("sample",
			types.RawRecord{"name": "sonic-leaf-01", "primary_ip": "10.10.0.11/24", "manufacturer": "Dell", "platform": "sonic", "role": "leaf"},
			types.RawRecord{"name": "sonic-leaf-02", "primary_ip": "10.10.0.12/24", "manufacturer": "Dell", "platform": "sonic", "role": "leaf"},
			types.RawRecord{"name": "spine-01", "primary_ip": "10.10.0.1/24", "manufacturer": "Arista", "role": "spine", "site": "dc1"},
		),
	)
}

func call(t *testing.T, f *fixture, name, args string) map[string]interface{} {
	t.Helper()
	out := f.registry.Execute(context.Background(), name, args)
	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &obj), out)
	return obj
}

func TestRegistry_Tools(t *testing.T) {
	f := defaultFixture(t)
	var names []string
	for _, tool := range f.registry.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"get_device_info",
		"get_device_status",
		"get_topology_from_netbox",
		"get_vlan_table",
		"inventory_group_by",
		"inventory_mismatches",
		"inventory_query",
		"inventory_report",
		"inventory_summary",
		"list_devices_by_vlan",
	}, names)

	err := f.registry.Register(Tool{Name: "get_vlan_table", Handler: func(context.Context, Args) (interface{}, error) { return nil, nil }})
	assert.Error(t, err, "duplicate names are rejected")
}

func TestRegistry_ErrorsAreEmbedded(t *testing.T) {
	f := defaultFixture(t)
	tests := []struct {
		name     string
		tool     string
		args     string
		wantType string
	}{
		{"unknown tool", "reboot_everything", `{}`, "Validation"},
		{"args not an object", "get_vlan_table", `[1,2]`, "Validation"},
		{"malformed json", "get_vlan_table", `{"a":`, "Validation"},
		{"missing required", "list_devices_by_vlan", `{}`, "Validation"},
		{"vlan not a number", "list_devices_by_vlan", `{"vlan_id":"abc"}`, "Validation"},
		{"vlan out of range", "list_devices_by_vlan", `{"vlan_id":5000}`, "Validation"},
		{"unknown device", "get_device_info", `{"device_name":"nope"}`, "Validation"},
		{"bad group key", "inventory_group_by", `{"by":"colour"}`, "Validation"},
		{"bad export format", "inventory_report", `{"export":true,"format":"pdf"}`, "RenderEncodingUnsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := call(t, f, tt.tool, tt.args)
			assert.NotEmpty(t, obj["error"])
			assert.Equal(t, tt.wantType, obj["type"])
		})
	}
}

func TestRegistry_NoSourceAvailable(t *testing.T) {
	f := newFixture(t, down("devices.yaml"), down("netbox"))
	obj := call(t, f, "inventory_summary", "")
	assert.Equal(t, "SourceUnavailable", obj["type"])
	assert.NotEmpty(t, obj["solutions"])
}

func TestGetDeviceInfo(t *testing.T) {
	f := defaultFixture(t)

	obj := call(t, f, "get_device_info", `{"device_name":"SONIC-LEAF-01"}`)
	device := obj["device"].(map[string]interface{})
	assert.Equal(t, "sonic-leaf-01", device["name"])
	assert.Len(t, obj["mismatches"], 1, "vendor differs")

	obj = call(t, f, "get_device_info", `{"by":"vendor","value":"dell"}`)
	assert.Equal(t, 2.0, obj["count"])

	obj = call(t, f, "get_device_info", "")
	assert.Equal(t, 4.0, obj["count"])

	obj = call(t, f, "get_device_info", `{"by":"role","value":"router"}`)
	assert.Equal(t, 0.0, obj["count"])
	assert.NotNil(t, obj["devices"])
}

func TestListDevicesByVLAN(t *testing.T) {
	f := defaultFixture(t)
	for _, args := range []string{`{"vlan_id":101}`, `{"vlan_id":"101"}`} {
		obj := call(t, f, "list_devices_by_vlan", args)
		assert.Equal(t, 101.0, obj["vlan_id"])
		assert.Equal(t, 2.0, obj["count"])

		first := obj["devices"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "sonic-leaf-01", first["name"])
		assert.Equal(t, "servers", first["vlan"].(map[string]interface{})["name"])
	}

	obj := call(t, f, "list_devices_by_vlan", `{"vlan_id":999}`)
	assert.Equal(t, 0.0, obj["count"])
}

func TestGetVLANTable(t *testing.T) {
	obj := call(t, defaultFixture(t), "get_vlan_table", "{}")
	assert.Equal(t, 2.0, obj["total_vlans"])
	assert.Equal(t, 4.0, obj["total_devices"])
}

func TestRenderedTools(t *testing.T) {
	f := defaultFixture(t)
	tests := []struct {
		tool string
		args string
		view string
		key  string
	}{
		{"inventory_summary", "", "summary", "inventory"},
		{"inventory_mismatches", `{"identity_check":false}`, "mismatches", "mismatches"},
		{"inventory_group_by", `{"by":"region"}`, "groups", "groups"},
		{"inventory_report", `{}`, "report", "report"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			obj := call(t, f, tt.tool, tt.args)
			assert.Nil(t, obj["error"])
			assert.Equal(t, tt.view, obj["view"])
			assert.Contains(t, obj, tt.key)
		})
	}

	obj := call(t, f, "inventory_group_by", `{"by":"region"}`)
	assert.Equal(t, "site", obj["group_by"])
}

func TestInventoryReport_Export(t *testing.T) {
	f := defaultFixture(t)
	obj := call(t, f, "inventory_report", `{"export":true,"format":"html"}`)
	require.Nil(t, obj["error"], obj)

	path, _ := obj["artifact_path"].(string)
	assert.Equal(t, f.exportDir, filepath.Dir(path))
	assert.Equal(t, ".html", filepath.Ext(path))
	assert.Equal(t, "html", obj["encoding"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h2>Mismatches</h2>")
}

func TestInventoryQuery(t *testing.T) {
	f := defaultFixture(t)
	obj := call(t, f, "inventory_query", `{"query":"which devices are on vlan 103?"}`)
	require.Nil(t, obj["error"], obj)

	decision := obj["decision"].(map[string]interface{})
	assert.Equal(t, "list", decision["intent"])
	result := obj["result"].(map[string]interface{})
	devices := result["devices"].([]interface{})
	require.Len(t, devices, 1)
	assert.Equal(t, "sonic-leaf-01", devices[0].(map[string]interface{})["name"])

	obj = call(t, f, "inventory_query", `{"query":"sing me a song"}`)
	assert.Equal(t, true, obj["decision"].(map[string]interface{})["fallback_used"])
}

func TestGetTopologyFromNetBox(t *testing.T) {
	obj := call(t, defaultFixture(t), "get_topology_from_netbox", "")
	assert.Equal(t, "sample", obj["origin"])
	assert.Len(t, obj["links"], 1)
}

func TestGetDeviceStatus(t *testing.T) {
	f := defaultFixture(t)

	obj := call(t, f, "get_device_status", `{"host":"10.10.0.11"}`)
	assert.Equal(t, true, obj["success"])
	assert.Equal(t, DefaultStatusCommand, f.transport.last.Command)
	assert.Contains(t, obj["output"], "SONiC")

	obj = call(t, f, "get_device_status", `{"host":"10.10.0.99","command":"show hostname"}`)
	assert.Equal(t, false, obj["success"])
	assert.Equal(t, "connection refused", obj["error"])
	assert.Equal(t, "show hostname", f.transport.last.Command)
}

func TestRegistry_Metrics(t *testing.T) {
	f := defaultFixture(t)
	call(t, f, "get_vlan_table", "")
	call(t, f, "list_devices_by_vlan", `{}`)

	n, err := testutil.GatherAndCount(f.reg, "netpilot_tool_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
