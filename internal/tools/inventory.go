package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yairfalse/netpilot/internal/collectors/netbox"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/pipeline"
	"github.com/yairfalse/netpilot/internal/reconciler"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/internal/transport"
	"github.com/yairfalse/netpilot/pkg/types"
)

// DefaultStatusCommand runs when get_device_status names no command
const DefaultStatusCommand = "show version"

// TopologySource serves the catalog's device graph
type TopologySource interface {
	Topology(ctx context.Context) (*netbox.Topology, error)
}

// Backend is what the inventory tools run against
type Backend struct {
	Pipeline  *pipeline.Pipeline
	Topology  TopologySource
	Transport transport.Transport
	// IdentityCheck is the default for tools taking identity_check
	IdentityCheck bool
}

// NewInventoryRegistry registers every inventory tool on a fresh registry
func NewInventoryRegistry(c *pipeline.Components) (*Registry, error) {
	r := NewRegistry(c.Logger, c.Metrics)
	b := &Backend{
		Pipeline:      c.Pipeline,
		Topology:      c.NetBox,
		Transport:     c.Transport,
		IdentityCheck: c.Config.Verifier.IdentityCheckEnabled,
	}
	if err := b.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds the inventory tools to r
func (b *Backend) Register(r *Registry) error {
	identity := Param{Name: "identity_check", Type: TypeBoolean, Description: "Cross-check presence mismatches against the live device"}

	tools := []Tool{
		{
			Name:        "get_device_info",
			Description: "Look up one device by name, or list devices whose attribute matches a value",
			Params: []Param{
				{Name: "device_name", Type: TypeString, Description: "Exact device name"},
				{Name: "by", Type: TypeString, Description: "Attribute to filter on: vendor, role, site, os_family, vlan"},
				{Name: "value", Type: TypeString, Description: "Value the attribute must equal"},
			},
			Handler: b.deviceInfo,
		},
		{
			Name:        "list_devices_by_vlan",
			Description: "List the devices carrying a VLAN",
			Params:      []Param{{Name: "vlan_id", Type: TypeInteger, Description: "VLAN id", Required: true}},
			Handler:     b.devicesByVLAN,
		},
		{
			Name:        "get_vlan_table",
			Description: "Every VLAN in the unified inventory with the devices carrying it",
			Handler:     b.vlanTable,
		},
		{
			Name:        "inventory_summary",
			Description: "Device counts per source and validation status",
			Handler:     b.summary,
		},
		{
			Name:        "inventory_mismatches",
			Description: "Differences between the local inventory and the catalog, most severe first",
			Params:      []Param{identity},
			Handler:     b.mismatches,
		},
		{
			Name:        "inventory_report",
			Description: "Full inventory report, optionally written to the export directory",
			Params: []Param{
				{Name: "export", Type: TypeBoolean, Description: "Write the report as a file and return its path"},
				{Name: "format", Type: TypeString, Description: "Export encoding: markdown, html or json"},
				identity,
			},
			Handler: b.report,
		},
		{
			Name:        "inventory_group_by",
			Description: "Group devices by vendor, role, site or os_family",
			Params:      []Param{{Name: "by", Type: TypeString, Description: "Grouping key", Required: true}},
			Handler:     b.groupBy,
		},
		{
			Name:        "inventory_query",
			Description: "Answer a free-form inventory question",
			Params:      []Param{{Name: "query", Type: TypeString, Description: "The question", Required: true}},
			Handler:     b.query,
		},
		{
			Name:        "get_topology_from_netbox",
			Description: "Devices and cabling held by the NetBox catalog",
			Handler:     b.topology,
		},
		{
			Name:        "get_device_status",
			Description: "Run a command on a device over the configured management transports",
			Params: []Param{
				{Name: "host", Type: TypeString, Description: "Management address", Required: true},
				{Name: "command", Type: TypeString, Description: "Command to run, default " + DefaultStatusCommand},
			},
			Handler: b.deviceStatus,
		},
	}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) deviceInfo(ctx context.Context, args Args) (interface{}, error) {
	inv, _, err := b.Pipeline.Inventory(ctx, false)
	if err != nil {
		return nil, err
	}

	if name := args.String("device_name"); name != "" {
		for _, d := range inv.SortedDevices() {
			if strings.EqualFold(d.Name, name) {
				return map[string]interface{}{
					"device":     d,
					"mismatches": nonNil(inv.MismatchesFor(d.Name)),
				}, nil
			}
		}
		return nil, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("device %q not found", name)).
			WithSolutions("Call get_device_info without arguments to list every device")
	}

	devices, err := reconciler.Filter(inv, args.String("by"), args.String("value"))
	if err != nil {
		return nil, apperrors.InvalidRequest(apperrors.ComponentTools, err.Error())
	}
	devices = nonNil(devices)
	return map[string]interface{}{"devices": devices, "count": len(devices)}, nil
}

type vlanDevice struct {
	types.DeviceRecord
	VLAN types.VLAN `json:"vlan"`
}

func (b *Backend) devicesByVLAN(ctx context.Context, args Args) (interface{}, error) {
	id, _, err := args.Int("vlan_id")
	if err != nil {
		return nil, err
	}
	if id < 1 || id > 4094 {
		return nil, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("vlan_id %d out of range 1-4094", id))
	}

	inv, _, err := b.Pipeline.Inventory(ctx, false)
	if err != nil {
		return nil, err
	}

	devices := make([]vlanDevice, 0)
	for _, d := range reconciler.DevicesByVLAN(inv, id) {
		vlan := types.VLAN{ID: id, Name: types.Unknown}
		for _, v := range d.VLANs {
			if v.ID == id {
				vlan = v
			}
		}
		devices = append(devices, vlanDevice{DeviceRecord: d, VLAN: vlan})
	}
	return map[string]interface{}{"vlan_id": id, "devices": devices, "count": len(devices)}, nil
}

func (b *Backend) vlanTable(ctx context.Context, _ Args) (interface{}, error) {
	inv, _, err := b.Pipeline.Inventory(ctx, false)
	if err != nil {
		return nil, err
	}
	table := reconciler.VLANTable(inv)
	if table == nil {
		table = []types.VLANUsage{}
	}
	return map[string]interface{}{
		"vlan_table":    table,
		"total_vlans":   len(table),
		"total_devices": len(inv.Devices),
	}, nil
}

func (b *Backend) summary(ctx context.Context, _ Args) (interface{}, error) {
	return b.render(ctx, types.IntentSummary, nil)
}

func (b *Backend) mismatches(ctx context.Context, args Args) (interface{}, error) {
	return b.render(ctx, types.IntentMismatches, b.identitySlots(args))
}

func (b *Backend) groupBy(ctx context.Context, args Args) (interface{}, error) {
	key, err := reconciler.CanonicalKey(args.String("by"))
	if err != nil || key == "vlan" {
		return nil, apperrors.InvalidRequest(apperrors.ComponentTools, fmt.Sprintf("cannot group by %q", args.String("by"))).
			WithSolutions("Use one of: " + strings.Join(reconciler.GroupKeys, ", "))
	}
	return b.render(ctx, types.IntentGroupBy, map[string]string{router.SlotBy: key})
}

func (b *Backend) report(ctx context.Context, args Args) (interface{}, error) {
	slots := b.identitySlots(args)
	if args.Bool("export", false) {
		format := args.String("format")
		if format == "" {
			format = "markdown"
		}
		slots[router.SlotExport] = format
		res, err := b.execute(ctx, types.IntentReport, slots)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"artifact_path": res.ArtifactPath,
			"encoding":      res.Encoding,
			"verification":  res.Verification,
		}, nil
	}
	return b.render(ctx, types.IntentReport, slots)
}

func (b *Backend) query(ctx context.Context, args Args) (interface{}, error) {
	decision, err := b.Pipeline.Decide(ctx, args.String("query"))
	if err != nil {
		return nil, err
	}
	res, err := b.Pipeline.Execute(ctx, pipeline.WithEncoding(decision, "json"))
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{"decision": res.Decision}
	if res.ArtifactPath != "" {
		out["artifact_path"] = res.ArtifactPath
	} else {
		out["result"] = json.RawMessage(res.Output)
	}
	return out, nil
}

func (b *Backend) topology(ctx context.Context, _ Args) (interface{}, error) {
	if b.Topology == nil {
		return nil, apperrors.ConfigurationError("no NetBox catalog configured")
	}
	return b.Topology.Topology(ctx)
}

func (b *Backend) deviceStatus(ctx context.Context, args Args) (interface{}, error) {
	if b.Transport == nil {
		return nil, apperrors.ConfigurationError("no management transport configured").
			WithSolutions("Set telnet, ssh or snmp credentials in the configuration")
	}
	command := args.String("command")
	if command == "" {
		command = DefaultStatusCommand
	}
	res := b.Transport.Run(ctx, transport.Request{Host: args.String("host"), Command: command})
	return map[string]interface{}{
		"host":    args.String("host"),
		"command": command,
		"success": res.Success,
		"method":  res.Method,
		"output":  res.Output,
		"error":   res.Error,
	}, nil
}

// render plans intent, forces JSON output and returns the rendered document
func (b *Backend) render(ctx context.Context, intent types.Intent, slots map[string]string) (interface{}, error) {
	res, err := b.execute(ctx, intent, slots)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(res.Output), nil
}

func (b *Backend) execute(ctx context.Context, intent types.Intent, slots map[string]string) (*pipeline.Result, error) {
	decision := types.RoutingDecision{
		Intent:     intent,
		Steps:      router.Plan(types.Candidate{Intent: intent, Score: 1, Slots: slots}),
		Confidence: 1,
	}
	return b.Pipeline.Execute(ctx, pipeline.WithEncoding(decision, "json"))
}

func (b *Backend) identitySlots(args Args) map[string]string {
	slots := make(map[string]string)
	if args.Bool("identity_check", b.IdentityCheck) {
		slots[router.SlotIdentityCheck] = "true"
	}
	return slots
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
