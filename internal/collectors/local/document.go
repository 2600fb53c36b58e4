package local

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/pkg/types"
	"gopkg.in/yaml.v3"
)

// document is the devices.yaml layout
type document struct {
	Devices []map[string]interface{} `yaml:"devices"`
}

// ParseDocument decodes a devices.yaml payload. A document without a
// devices key yields no records rather than an error.
func ParseDocument(data []byte) ([]types.RawRecord, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parse devices document")
	}

	records := make([]types.RawRecord, 0, len(doc.Devices))
	for i, d := range doc.Devices {
		if d == nil {
			return nil, fmt.Errorf("devices[%d] is empty", i)
		}
		records = append(records, types.RawRecord(d))
	}
	return records, nil
}
