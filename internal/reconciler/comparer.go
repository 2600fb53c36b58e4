package reconciler

import (
	"strconv"
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
)

// DefaultComparer compares the comparable fields of a matched pair.
// A field is compared only when both sides carry a known value.
type DefaultComparer struct{}

// CompareDevices returns one entry per disagreeing field, in field order
func (c *DefaultComparer) CompareDevices(local, remote types.DeviceRecord) []types.MismatchEntry {
	var entries []types.MismatchEntry

	add := func(field types.Field, l, r string) {
		entries = append(entries, types.MismatchEntry{
			DeviceName:  remote.Name,
			Field:       field,
			LocalValue:  types.StringPtr(l),
			RemoteValue: types.StringPtr(r),
		})
	}

	if attributeDiffers(local.Vendor, remote.Vendor) {
		add(types.FieldVendor, local.Vendor, remote.Vendor)
	}
	if attributeDiffers(local.OSFamily, remote.OSFamily) {
		add(types.FieldOSFamily, local.OSFamily, remote.OSFamily)
	}
	if attributeDiffers(local.Role, remote.Role) {
		add(types.FieldRole, local.Role, remote.Role)
	}
	if attributeDiffers(local.ManagementIP, remote.ManagementIP) {
		add(types.FieldManagementIP, local.ManagementIP, remote.ManagementIP)
	}

	localVLANs, remoteVLANs := local.VLANSet(), remote.VLANSet()
	if len(localVLANs) > 0 && len(remoteVLANs) > 0 && !equalSets(localVLANs, remoteVLANs) {
		add(types.FieldVLANSet, FormatVLANSet(localVLANs), FormatVLANSet(remoteVLANs))
	}

	if attributeDiffers(local.Reachability, remote.Reachability) {
		add(types.FieldReachability, local.Reachability, remote.Reachability)
	}

	return entries
}

func attributeDiffers(l, r string) bool {
	if !types.IsKnown(l) || !types.IsKnown(r) {
		return false
	}
	return !strings.EqualFold(l, r)
}

// equalSets compares two sorted, de-duplicated id slices
func equalSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FormatVLANSet renders sorted VLAN ids as "101,103"
func FormatVLANSet(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
