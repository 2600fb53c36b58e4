package netbox

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/yairfalse/netpilot/internal/collectors"
	"github.com/yairfalse/netpilot/pkg/types"
)

//go:embed sample.json
var embeddedSample []byte

// SampleOrigin marks records served from the static fixture
const SampleOrigin = "sample"

// SampleCollector serves the static catalog fixture
type SampleCollector struct {
	// Path overrides the embedded fixture when set
	Path string
}

var _ collectors.Collector = (*SampleCollector)(nil)

type sampleDocument struct {
	Devices []map[string]interface{} `json:"devices"`
	Results []map[string]interface{} `json:"results"`
	Links   []Link                   `json:"links"`
}

// Name identifies the fixture
func (s *SampleCollector) Name() string {
	if s.Path != "" {
		return s.Path
	}
	return SampleOrigin
}

// Load decodes the fixture. Both {"devices": [...]} and the raw API
// {"results": [...]} layouts are accepted.
func (s *SampleCollector) Load() ([]types.RawRecord, []Link, error) {
	data := embeddedSample
	if s.Path != "" {
		b, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read sample %s", s.Path)
		}
		data = b
	}

	var doc sampleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(err, "decode sample catalog")
	}

	devices := doc.Devices
	if devices == nil {
		devices = doc.Results
	}

	records := make([]types.RawRecord, 0, len(devices))
	for _, d := range devices {
		records = append(records, types.RawRecord(d))
	}
	return records, doc.Links, nil
}

// Collect returns the fixture devices
func (s *SampleCollector) Collect(ctx context.Context) (*collectors.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, _, err := s.Load()
	if err != nil {
		return nil, err
	}
	return &collectors.Result{Records: records, Origin: SampleOrigin}, nil
}

// Topology returns the fixture as a topology view
func (s *SampleCollector) Topology() (*Topology, error) {
	records, links, err := s.Load()
	if err != nil {
		return nil, err
	}
	return newTopology(records, links, SampleOrigin), nil
}
