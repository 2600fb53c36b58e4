package netbox

import (
	"github.com/yairfalse/netpilot/pkg/types"
)

// Link is one cable between two device interfaces
type Link struct {
	ID              int    `json:"id,omitempty"`
	SourceDevice    string `json:"source_device"`
	SourceInterface string `json:"source_interface"`
	TargetDevice    string `json:"target_device"`
	TargetInterface string `json:"target_interface"`
	Status          string `json:"status,omitempty"`
	Type            string `json:"type,omitempty"`
}

// Statistics summarises a topology
type Statistics struct {
	TotalDevices    int `json:"total_devices"`
	TotalInterfaces int `json:"total_interfaces"`
	TotalLinks      int `json:"total_links"`
}

// Topology is the device graph held by the catalog
type Topology struct {
	Devices    []types.RawRecord `json:"devices"`
	Links      []Link            `json:"links"`
	Statistics Statistics        `json:"statistics"`
	Origin     string            `json:"origin"`
	Note       string            `json:"note,omitempty"`
}

func newTopology(devices []types.RawRecord, links []Link, origin string) *Topology {
	if devices == nil {
		devices = []types.RawRecord{}
	}
	if links == nil {
		links = []Link{}
	}

	interfaces := 0
	for _, d := range devices {
		if ifaces, ok := d["interfaces"].([]interface{}); ok {
			interfaces += len(ifaces)
		}
	}

	return &Topology{
		Devices: devices,
		Links:   links,
		Statistics: Statistics{
			TotalDevices:    len(devices),
			TotalInterfaces: interfaces,
			TotalLinks:      len(links),
		},
		Origin: origin,
	}
}

// linkFromCable reads both NetBox cable layouts: a_terminations/b_terminations
// (3.3+) and the older two-element terminations list.
func linkFromCable(cable map[string]interface{}) (Link, bool) {
	link := Link{
		ID:     toInt(cable["id"]),
		Status: choiceValue(cable["status"]),
		Type:   choiceValue(cable["type"]),
	}

	a, aok := firstTermination(cable["a_terminations"])
	b, bok := firstTermination(cable["b_terminations"])
	if !aok || !bok {
		terms, _ := cable["terminations"].([]interface{})
		if len(terms) < 2 {
			return Link{}, false
		}
		a, aok = terms[0].(map[string]interface{})
		b, bok = terms[1].(map[string]interface{})
		if !aok || !bok {
			return Link{}, false
		}
	}

	link.SourceDevice, link.SourceInterface = endpoint(a)
	link.TargetDevice, link.TargetInterface = endpoint(b)
	if link.SourceDevice == "" || link.TargetDevice == "" {
		return Link{}, false
	}
	return link, true
}

func firstTermination(v interface{}) (map[string]interface{}, bool) {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return nil, false
	}
	m, ok := list[0].(map[string]interface{})
	return m, ok
}

// endpoint returns device and interface names of one termination
func endpoint(term map[string]interface{}) (string, string) {
	if obj, ok := term["object"].(map[string]interface{}); ok {
		return nestedName(obj["device"]), nestedName(obj)
	}
	return nestedName(term["device"]), nestedName(term["interface"])
}

func choiceValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if s, ok := t["value"].(string); ok {
			return s
		}
	}
	return ""
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	}
	return 0
}
