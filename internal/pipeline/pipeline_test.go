package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/netpilot/internal/collectors"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/metrics"
	"github.com/yairfalse/netpilot/internal/output"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/internal/transport"
	"github.com/yairfalse/netpilot/internal/verifier"
	"github.com/yairfalse/netpilot/pkg/types"
)

func init() {
	color.NoColor = true
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) }

func staticCollector(id, origin string, records ...types.RawRecord) collectors.Collector {
	return collectors.CollectorFunc{ID: id, Fn: func(ctx context.Context) (*collectors.Result, error) {
		return &collectors.Result{Records: records, Origin: origin}, nil
	}}
}

func failingCollector(id string, err error) collectors.Collector {
	return collectors.CollectorFunc{ID: id, Fn: func(ctx context.Context) (*collectors.Result, error) {
		return nil, err
	}}
}

func localRecords() []types.RawRecord {
	return []types.RawRecord{
		{"name": "sonic-leaf-01", "ip": "10.10.0.11", "vendor": "EdgeCore", "os": "sonic", "role": "leaf", "vlans": []interface{}{101, 103}},
		{"name": "sonic-leaf-02", "ip": "10.10.0.12", "vendor": "Dell", "os": "sonic", "role": "leaf", "vlans": []interface{}{101}},
		{"name": "edge-03", "ip": "10.10.0.30", "vendor": "Cisco", "role": "core"},
	}
}

func remoteRecords() []types.RawRecord {
	return []types.RawRecord{
		{"name": "sonic-leaf-01", "primary_ip": "10.10.0.11/24", "manufacturer": "Dell", "platform": "sonic", "role": "leaf"},
		{"name": "sonic-leaf-02", "primary_ip": "10.10.0.12/24", "manufacturer": "Dell", "platform": "sonic", "role": "leaf"},
		{"name": "spine-01", "primary_ip": "10.10.0.1/24", "manufacturer": "Arista", "role": "spine"},
	}
}

type fakeTransport struct {
	outputs map[string]transport.Result
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Run(ctx context.Context, req transport.Request) transport.Result {
	if res, ok := f.outputs[req.Host]; ok {
		return res
	}
	return transport.Result{Method: "fake", Error: "connection refused"}
}

func newTestPipeline(opts ...Option) *Pipeline {
	base := []Option{WithClock(fixedNow), WithFetchTimeout(time.Second)}
	return New(
		staticCollector("devices.yaml", "data/devices.yaml", localRecords()...),
		staticCollector("netbox", "sample", remoteRecords()...),
		output.NewRenderer(output.Options{NoColor: true, Width: 160}),
		append(base, opts...)...,
	)
}

// counterValue sums the samples of name whose labels include want
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func decode(t *testing.T, res *Result) *output.Document {
	t.Helper()
	_, doc, err := output.DecodeJSON(res.Output)
	require.NoError(t, err)
	return doc
}

func TestExecute_ListFiltered(t *testing.T) {
	p := newTestPipeline(WithDefaultEncoding("json"))
	decision := types.RoutingDecision{
		Intent: types.IntentList,
		Steps: router.Plan(types.Candidate{Intent: types.IntentList, Score: 0.85, Slots: map[string]string{
			router.SlotBy: "vlan", router.SlotValue: "101",
		}}),
	}

	res, err := p.Execute(context.Background(), decision)
	require.NoError(t, err)
	assert.Equal(t, output.ViewDevices, res.View)
	assert.Equal(t, "json", res.Encoding)

	doc := decode(t, res)
	var names []string
	for _, d := range doc.Devices {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"sonic-leaf-01", "sonic-leaf-02"}, names)
	require.NotNil(t, doc.Filter)
	assert.Equal(t, "vlan", doc.Filter.By)
	assert.Len(t, doc.Inventory.Devices, 4)
}

func TestExecute_FilterMatchesNothing(t *testing.T) {
	p := newTestPipeline()
	res, err := p.Execute(context.Background(), types.RoutingDecision{
		Intent: types.IntentList,
		Steps: []types.Step{
			{Operation: types.OpReconcile},
			{Operation: types.OpFilter, Parameters: map[string]string{"by": "vendor", "value": "Juniper"}},
			{Operation: types.OpRender, Parameters: map[string]string{"view": "devices"}},
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Document.Devices)
	assert.Empty(t, res.Document.Devices)
	assert.Contains(t, string(res.Output), "0 device(s)")
	assert.NotContains(t, string(res.Output), "spine-01")
}

func TestExecute_InvalidSteps(t *testing.T) {
	p := newTestPipeline()
	tests := []struct {
		name  string
		steps []types.Step
	}{
		{"filter before reconcile", []types.Step{{Operation: types.OpFilter}}},
		{"unknown group key", []types.Step{{Operation: types.OpReconcile}, {Operation: types.OpGroup, Parameters: map[string]string{"by": "colour"}}}},
		{"non numeric vlan", []types.Step{{Operation: types.OpReconcile}, {Operation: types.OpFilter, Parameters: map[string]string{"by": "vlan", "value": "abc"}}}},
		{"unknown view", []types.Step{{Operation: types.OpReconcile}, {Operation: types.OpRender, Parameters: map[string]string{"view": "graph"}}}},
		{"unknown operation", []types.Step{{Operation: "teleport"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Execute(context.Background(), types.RoutingDecision{Intent: types.IntentList, Steps: tt.steps})
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "%v", err)
		})
	}
}

func TestExecute_UnsupportedEncoding(t *testing.T) {
	p := newTestPipeline()
	_, err := p.Execute(context.Background(), WithEncoding(router.Fallback(0), "pdf"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRenderEncodingUnsupported))
}

func TestExecute_OneSourceDown(t *testing.T) {
	p := New(
		staticCollector("devices.yaml", "data/devices.yaml", localRecords()...),
		failingCollector("netbox", errors.New("dial tcp: connection refused")),
		output.NewRenderer(output.Options{NoColor: true}),
		WithClock(fixedNow), WithDefaultEncoding("json"),
	)

	res, err := p.Execute(context.Background(), WithEncoding(router.Fallback(0), "json"))
	require.NoError(t, err)
	inv := decode(t, res).Inventory
	assert.Len(t, inv.Devices, 3)
	for _, d := range inv.Devices {
		assert.Equal(t, []types.Source{types.SourceLocal}, d.Provenance)
	}
	var remote types.SourceStatus
	for _, st := range inv.Sources {
		if st.Source == types.SourceRemote {
			remote = st
		}
	}
	assert.Contains(t, remote.Error, "connection refused")
}

func TestExecute_NoSourceAvailable(t *testing.T) {
	p := New(
		failingCollector("devices.yaml", errors.New("file not found")),
		failingCollector("netbox", errors.New("timeout")),
		nil,
	)

	_, err := p.Execute(context.Background(), router.Fallback(0))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSourceUnavailable))
	assert.Contains(t, err.Error(), "no inventory source")
}

func TestExecute_VerifyAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	fake := &fakeTransport{outputs: map[string]transport.Result{
		"10.10.0.30": {Success: true, Method: "ssh", Output: "edge-03\n"},
		"10.10.0.1":  {Success: true, Method: "telnet", Output: "other-box\n"},
	}}
	v := verifier.New(fake, 2, time.Second,
		verifier.WithObserver(func(verdict verifier.Verdict) { m.Verification(string(verdict)) }))
	p := newTestPipeline(WithVerifier(v), WithMetrics(m), WithDefaultEncoding("json"))

	res, err := p.Execute(context.Background(), types.RoutingDecision{
		Intent: types.IntentMismatches,
		Steps: router.Plan(types.Candidate{Intent: types.IntentMismatches, Score: 0.9, Slots: map[string]string{
			router.SlotIdentityCheck: "true",
		}}),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Verification)
	assert.Equal(t, 2, res.Verification.Checked)
	assert.Equal(t, 1, res.Verification.Consistent)
	assert.Equal(t, 1, res.Verification.Contradicted)

	bySeverity := make(map[string]types.Severity)
	for _, e := range decode(t, res).Inventory.Mismatches {
		if e.Field == types.FieldPresence {
			bySeverity[e.DeviceName] = e.Severity
			assert.True(t, e.Verified, e.DeviceName)
		}
	}
	assert.Equal(t, types.SeverityInfo, bySeverity["edge-03"])
	assert.Equal(t, types.SeverityCritical, bySeverity["spine-01"])

	assert.Equal(t, 1.0, counterValue(t, reg, "netpilot_verifications_total", map[string]string{"outcome": "consistent"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "netpilot_verifications_total", map[string]string{"outcome": "contradicts"}))
	n, err := testutil.GatherAndCount(reg, "netpilot_mismatches_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestExecute_VerifyWithoutVerifier(t *testing.T) {
	p := newTestPipeline()
	res, err := p.Execute(context.Background(), types.RoutingDecision{
		Intent: types.IntentMismatches,
		Steps: []types.Step{
			{Operation: types.OpReconcile},
			{Operation: types.OpVerify},
			{Operation: types.OpRender, Parameters: map[string]string{"view": "mismatches"}},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Verification)
	assert.Zero(t, res.Verification.Checked)
}

func TestExecute_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	renderer := output.NewRenderer(output.Options{NoColor: true})
	p := newTestPipeline(WithExporter(output.NewExporter(renderer, dir,
		output.WithClock(fixedNow),
		output.WithIDSource(func() string { return "0123abcd-ffff" }),
	)))

	res, err := p.Execute(context.Background(), types.RoutingDecision{
		Intent: types.IntentReport,
		Steps: router.Plan(types.Candidate{Intent: types.IntentReport, Score: 0.9, Slots: map[string]string{
			router.SlotExport: "markdown",
		}}),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inventory-report-20260301-123045-0123abcd.md"), res.ArtifactPath)
	assert.Empty(t, res.Output)

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Inventory Report"))
	assert.Contains(t, string(data), "## Mismatches")
}

func TestExecute_ExportWithoutDir(t *testing.T) {
	p := newTestPipeline()
	_, err := p.Execute(context.Background(), types.RoutingDecision{
		Intent: types.IntentReport,
		Steps: []types.Step{
			{Operation: types.OpReconcile},
			{Operation: types.OpExport, Parameters: map[string]string{"encoding": "html"}},
		},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeArtifactWriteFailed))
}

func TestExecute_Cancelled(t *testing.T) {
	p := newTestPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Execute(ctx, router.Fallback(0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInventory(t *testing.T) {
	p := newTestPipeline()
	inv, stats, err := p.Inventory(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, stats)
	assert.Len(t, inv.Devices, 4)
	assert.Equal(t, fixedNow(), inv.GeneratedAt)
}

func TestAsk(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := newTestPipeline(WithMetrics(m), WithDefaultEncoding("json"))

	tests := []struct {
		question string
		intent   types.Intent
		view     output.View
		fallback bool
	}{
		{"show devices in vlan 103", types.IntentList, output.ViewDevices, false},
		{"group devices by vendor", types.IntentGroupBy, output.ViewGroups, false},
		{"what drifted between yaml and netbox?", types.IntentMismatches, output.ViewMismatches, false},
		{"tell me a joke", types.IntentSummary, output.ViewSummary, true},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			res, err := p.Ask(context.Background(), tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, res.Decision.Intent)
			assert.Equal(t, tt.view, res.View)
			assert.Equal(t, tt.fallback, res.Decision.FallbackUsed)
			assert.NotEmpty(t, res.Output)
		})
	}

	assert.Equal(t, 1.0, counterValue(t, reg, "netpilot_routing_decisions_total", map[string]string{"intent": "summary", "fallback": "true"}))

	_, err := p.Ask(context.Background(), "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

type brokenClassifier struct{}

func (brokenClassifier) Classify(context.Context, string) ([]types.Candidate, error) {
	return nil, errors.New("model unavailable")
}

func TestDecide_ClassifierError(t *testing.T) {
	p := newTestPipeline(WithClassifier(brokenClassifier{}))
	decision, err := p.Decide(context.Background(), "list all devices")
	require.NoError(t, err)
	assert.True(t, decision.FallbackUsed)
	assert.Equal(t, types.IntentSummary, decision.Intent)
}

func TestWithEncoding(t *testing.T) {
	d := router.Fallback(0)
	got := WithEncoding(d, "json")
	step, ok := got.Step(types.OpRender)
	require.True(t, ok)
	assert.Equal(t, "json", step.Param("encoding", ""))

	orig, _ := d.Step(types.OpRender)
	assert.Equal(t, "table", orig.Param("encoding", ""), "input decision untouched")

	export := types.RoutingDecision{Steps: []types.Step{{Operation: types.OpExport, Parameters: map[string]string{"encoding": "html"}}}}
	assert.Equal(t, export, WithEncoding(export, "json"))
	assert.Equal(t, d, WithEncoding(d, ""))
}
