package output

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/pkg/types"
)

// jsonDocument is the wire form of a rendered Document. The top-level
// mismatches are the inventory mismatches in display order.
type jsonDocument struct {
	View       View                    `json:"view"`
	Inventory  *types.UnifiedInventory `json:"inventory"`
	Mismatches []types.MismatchEntry   `json:"mismatches"`
	Devices    []types.DeviceRecord    `json:"devices,omitempty"`
	Filter     *FilterSpec             `json:"filter,omitempty"`
	GroupBy    string                  `json:"group_by,omitempty"`
	Groups     []types.Group           `json:"groups,omitempty"`
	VLANs      []types.VLANUsage       `json:"vlans,omitempty"`
	Report     *types.Report           `json:"report,omitempty"`
	Decision   *types.RoutingDecision  `json:"decision,omitempty"`
}

func renderJSON(view View, doc *Document) ([]byte, error) {
	out := jsonDocument{
		View:       view,
		Inventory:  doc.Inventory,
		Mismatches: doc.mismatches(),
		Decision:   doc.Decision,
	}
	if out.Mismatches == nil {
		out.Mismatches = []types.MismatchEntry{}
	}

	switch view {
	case ViewDevices:
		out.Devices = doc.devices()
		out.Filter = doc.Filter
	case ViewGroups:
		out.GroupBy, out.Groups = doc.groups()
	case ViewVLANs:
		out.VLANs = doc.vlans()
	case ViewReport:
		rep := doc.report()
		out.Report = &rep
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, errors.Wrap(err, "encode json document")
	}
	return buf.Bytes(), nil
}

// DecodeJSON reads a document produced by the json encoding
func DecodeJSON(data []byte) (View, *Document, error) {
	var in jsonDocument
	if err := json.Unmarshal(data, &in); err != nil {
		return "", nil, errors.Wrap(err, "decode json document")
	}
	if in.Inventory == nil {
		return "", nil, errors.New("json document has no inventory")
	}
	doc := &Document{
		Inventory: in.Inventory,
		Devices:   in.Devices,
		Filter:    in.Filter,
		GroupBy:   in.GroupBy,
		Groups:    in.Groups,
		VLANs:     in.VLANs,
		Report:    in.Report,
		Decision:  in.Decision,
	}
	return in.View, doc, nil
}
