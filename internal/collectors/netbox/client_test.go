package netbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/netpilot/pkg/config"
	"gopkg.in/h2non/gock.v1"
)

const baseURL = "http://netbox.test"

func testConfig() config.NetBoxConfig {
	return config.NetBoxConfig{
		URL:      baseURL,
		Token:    "abc123",
		Timeout:  2 * time.Second,
		PageSize: 2,
	}
}

func mockDevicePages() {
	gock.New(baseURL).
		Get("/api/dcim/devices/").
		MatchHeader("Authorization", "^Token abc123$").
		MatchHeader("Accept", "application/json").
		MatchParam("limit", "2").
		MatchParam("offset", "2").
		Reply(200).
		JSON(map[string]interface{}{
			"count": 3,
			"next":  nil,
			"results": []map[string]interface{}{
				{"id": 3, "name": "spine-01", "device_type": map[string]interface{}{"manufacturer": map[string]interface{}{"name": "Arista"}}},
			},
		})
	gock.New(baseURL).
		Get("/api/dcim/devices/").
		MatchHeader("Authorization", "^Token abc123$").
		MatchParam("limit", "2").
		Reply(200).
		JSON(map[string]interface{}{
			"count": 3,
			"next":  baseURL + "/api/dcim/devices/?limit=2&offset=2",
			"results": []map[string]interface{}{
				{"id": 1, "name": "sonic-leaf-01"},
				{"id": 2, "name": "sonic-leaf-02"},
			},
		})
}

func mockInterfaces() {
	gock.New(baseURL).
		Get("/api/dcim/interfaces/").
		MatchParam("limit", "2").
		Reply(200).
		JSON(map[string]interface{}{
			"count": 2,
			"next":  nil,
			"results": []map[string]interface{}{
				{"id": 100, "name": "Ethernet0", "device": map[string]interface{}{"id": 1, "name": "sonic-leaf-01"}, "enabled": true},
				{"id": 101, "name": "Ethernet4", "device": map[string]interface{}{"id": 1, "name": "sonic-leaf-01"}, "enabled": false},
			},
		})
}

func TestClient_DevicesPaging(t *testing.T) {
	defer gock.Off()
	mockDevicePages()
	mockInterfaces()

	client := NewClient(testConfig())
	records, err := client.Devices(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "sonic-leaf-01", records[0]["name"])
	assert.Equal(t, "spine-01", records[2]["name"])

	ifaces, ok := records[0]["interfaces"].([]interface{})
	require.True(t, ok)
	assert.Len(t, ifaces, 2)
	assert.NotContains(t, records[1], "interfaces")
	assert.True(t, gock.IsDone())
}

func TestClient_HTTPError(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Get("/api/dcim/devices/").
		Reply(403).
		JSON(map[string]string{"detail": "Invalid token"})

	client := NewClient(testConfig())
	_, err := client.Devices(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "Invalid token")
}

func TestClient_Links(t *testing.T) {
	defer gock.Off()
	gock.New(baseURL).
		Get("/api/dcim/cables/").
		Reply(200).
		JSON(map[string]interface{}{
			"count": 3,
			"results": []map[string]interface{}{
				{
					"id":     7,
					"status": map[string]interface{}{"value": "connected"},
					"a_terminations": []interface{}{
						map[string]interface{}{"object": map[string]interface{}{"name": "Ethernet0", "device": map[string]interface{}{"name": "leaf-01"}}},
					},
					"b_terminations": []interface{}{
						map[string]interface{}{"object": map[string]interface{}{"name": "Ethernet1", "device": map[string]interface{}{"name": "spine-01"}}},
					},
				},
				{
					"id": 8,
					"terminations": []interface{}{
						map[string]interface{}{"device": map[string]interface{}{"name": "leaf-02"}, "interface": map[string]interface{}{"name": "Ethernet0"}},
						map[string]interface{}{"device": map[string]interface{}{"name": "spine-01"}, "interface": map[string]interface{}{"name": "Ethernet2"}},
					},
				},
				{"id": 9},
			},
		})

	client := NewClient(testConfig())
	links, err := client.Links(context.Background())

	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, Link{ID: 7, SourceDevice: "leaf-01", SourceInterface: "Ethernet0", TargetDevice: "spine-01", TargetInterface: "Ethernet1", Status: "connected"}, links[0])
	assert.Equal(t, "leaf-02", links[1].SourceDevice)
	assert.Equal(t, "Ethernet2", links[1].TargetInterface)
}

func TestFallbackCollector(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		mock         func()
		wantOrigin   string
		wantDegraded bool
		wantDevices  int
	}{
		{
			name:        "live catalog",
			token:       "abc123",
			mock:        func() { mockDevicePages(); mockInterfaces() },
			wantOrigin:  baseURL,
			wantDevices: 3,
		},
		{
			name:         "placeholder token",
			token:        config.PlaceholderToken,
			mock:         func() {},
			wantOrigin:   SampleOrigin,
			wantDegraded: true,
			wantDevices:  4,
		},
		{
			name:         "empty token",
			token:        "",
			mock:         func() {},
			wantOrigin:   SampleOrigin,
			wantDegraded: true,
			wantDevices:  4,
		},
		{
			name:  "api failure",
			token: "abc123",
			mock: func() {
				gock.New(baseURL).Get("/api/dcim/devices/").Reply(500)
			},
			wantOrigin:   SampleOrigin,
			wantDegraded: true,
			wantDevices:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			tt.mock()

			cfg := testConfig()
			cfg.Token = tt.token
			result, err := NewFallbackCollector(cfg, nil).Collect(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantOrigin, result.Origin)
			assert.Equal(t, tt.wantDegraded, result.Degraded != nil)
			assert.Len(t, result.Records, tt.wantDevices)
		})
	}
}

func TestFallbackCollector_SamplePathOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"results":[{"name":"only-one"}]}`), 0o644))

	f := NewFallbackCollector(config.NetBoxConfig{SamplePath: path}, nil)
	result, err := f.Collect(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "only-one", result.Records[0]["name"])
	assert.ErrorIs(t, result.Degraded, ErrNoCredentials)
}

func TestFallbackCollector_BrokenSample(t *testing.T) {
	f := NewFallbackCollector(config.NetBoxConfig{SamplePath: filepath.Join(t.TempDir(), "absent.json")}, nil)

	_, err := f.Collect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no NetBox credentials")
}

func TestFallbackCollector_Topology(t *testing.T) {
	f := NewFallbackCollector(config.NetBoxConfig{}, nil)

	topo, err := f.Topology(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SampleOrigin, topo.Origin)
	assert.Equal(t, 4, topo.Statistics.TotalDevices)
	assert.Equal(t, 3, topo.Statistics.TotalLinks)
	assert.Equal(t, 2, topo.Statistics.TotalInterfaces)
	assert.Contains(t, topo.Note, "sample")
}
