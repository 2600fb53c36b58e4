package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		device  DeviceRecord
		wantErr bool
	}{
		{
			name:   "valid local device",
			device: DeviceRecord{Name: "sonic-leaf-01", Provenance: []Source{SourceLocal}},
		},
		{
			name:   "valid merged device",
			device: DeviceRecord{Name: "spine-01", Provenance: []Source{SourceLocal, SourceRemote}},
		},
		{
			name:    "missing name",
			device:  DeviceRecord{Name: "  ", Provenance: []Source{SourceLocal}},
			wantErr: true,
		},
		{
			name:    "empty provenance",
			device:  DeviceRecord{Name: "edge-03"},
			wantErr: true,
		},
		{
			name:    "unknown source",
			device:  DeviceRecord{Name: "edge-03", Provenance: []Source{"ipam"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.device.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeviceRecord_VLANSet(t *testing.T) {
	d := DeviceRecord{
		VLANs: []VLAN{{ID: 103, Name: "data"}, {ID: 101, Name: "mgmt"}},
		Interfaces: []InterfaceRecord{
			{Name: "Ethernet0", VLANIDs: []int{200, 101}},
			{Name: "Ethernet4"},
		},
	}

	assert.Equal(t, []int{101, 103, 200}, d.VLANSet())
	assert.Empty(t, (&DeviceRecord{}).VLANSet())
}

func TestDeviceRecord_Clone(t *testing.T) {
	orig := DeviceRecord{
		Name:       "sonic-leaf-01",
		VLANs:      []VLAN{{ID: 101}},
		Interfaces: []InterfaceRecord{{Name: "Ethernet0", VLANIDs: []int{101}}},
		Provenance: []Source{SourceLocal},
		Tags:       map[string]string{"role_detail": "leaf"},
	}

	clone := orig.Clone()
	clone.VLANs[0].ID = 999
	clone.Interfaces[0].VLANIDs[0] = 999
	clone.Provenance[0] = SourceRemote
	clone.Tags["role_detail"] = "changed"

	assert.Equal(t, 101, orig.VLANs[0].ID)
	assert.Equal(t, 101, orig.Interfaces[0].VLANIDs[0])
	assert.Equal(t, SourceLocal, orig.Provenance[0])
	assert.Equal(t, "leaf", orig.Tags["role_detail"])
}

func TestDeviceRecord_HasSource(t *testing.T) {
	d := DeviceRecord{Name: "spine-01", Provenance: []Source{SourceRemote}}
	assert.True(t, d.HasSource(SourceRemote))
	assert.False(t, d.HasSource(SourceLocal))
}

func TestIsKnown(t *testing.T) {
	assert.False(t, IsKnown(""))
	assert.False(t, IsKnown(Unknown))
	assert.True(t, IsKnown("Dell"))
}
