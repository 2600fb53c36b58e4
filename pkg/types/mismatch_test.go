package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMismatchEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   MismatchEntry
		wantErr bool
	}{
		{
			name:  "presence with local side",
			entry: MismatchEntry{DeviceName: "edge-03", Field: FieldPresence, LocalValue: StringPtr("edge-03")},
		},
		{
			name:    "presence with both sides",
			entry:   MismatchEntry{DeviceName: "edge-03", Field: FieldPresence, LocalValue: StringPtr("a"), RemoteValue: StringPtr("b")},
			wantErr: true,
		},
		{
			name:    "presence with no side",
			entry:   MismatchEntry{DeviceName: "edge-03", Field: FieldPresence},
			wantErr: true,
		},
		{
			name:  "vendor with both sides",
			entry: MismatchEntry{DeviceName: "leaf-01", Field: FieldVendor, LocalValue: StringPtr("EdgeCore"), RemoteValue: StringPtr("Dell")},
		},
		{
			name:    "vendor with one side",
			entry:   MismatchEntry{DeviceName: "leaf-01", Field: FieldVendor, RemoteValue: StringPtr("Dell")},
			wantErr: true,
		},
		{
			name:    "missing device",
			entry:   MismatchEntry{Field: FieldVendor, LocalValue: StringPtr("a"), RemoteValue: StringPtr("b")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSeverity_Weight(t *testing.T) {
	assert.Greater(t, SeverityCritical.Weight(), SeverityWarning.Weight())
	assert.Greater(t, SeverityWarning.Weight(), SeverityInfo.Weight())
	assert.Equal(t, 0, Severity("bogus").Weight())
}

func TestField_Rank(t *testing.T) {
	assert.Equal(t, 0, FieldPresence.Rank())
	assert.Equal(t, 6, FieldReachability.Rank())
	assert.Less(t, FieldManagementIP.Rank(), FieldVLANSet.Rank())
	assert.Equal(t, len(FieldOrder), Field("other").Rank())
}

func TestMismatchEntry_Side(t *testing.T) {
	m := MismatchEntry{Field: FieldPresence, RemoteValue: StringPtr("spine-09")}
	src, v := m.Side()
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, "spine-09", v)
}
