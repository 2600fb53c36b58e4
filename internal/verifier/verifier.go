package verifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"
	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/transport"
	"github.com/yairfalse/netpilot/pkg/types"
)

// Stats tallies one verification run
type Stats struct {
	Checked      int `json:"checked"`
	Consistent   int `json:"consistent"`
	Contradicted int `json:"contradicted"`
	// NotRun counts devices whose check was inconclusive
	NotRun int `json:"not_run"`
}

// Observer is told the verdict of every check
type Observer func(v Verdict)

// Verifier cross-checks presence and reachability mismatches against the
// live device.
type Verifier struct {
	transport transport.Transport
	workers   int
	timeout   time.Duration
	logger    logger.Logger
	observer  Observer
}

// Option customises a Verifier
type Option func(*Verifier)

// WithLogger sets the verifier logger
func WithLogger(l logger.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithObserver registers a verdict callback, typically metrics
func WithObserver(fn Observer) Option {
	return func(v *Verifier) { v.observer = fn }
}

// New creates a Verifier running at most workers checks at once, each
// bounded by timeout.
func New(t transport.Transport, workers int, timeout time.Duration, opts ...Option) *Verifier {
	if workers <= 0 {
		workers = 1
	}
	v := &Verifier{
		transport: t,
		workers:   workers,
		timeout:   timeout,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type check struct {
	verdict  Verdict
	identity Identity
	method   string
}

// Verify returns a new inventory whose presence and reachability entries
// reflect live identity checks. The input is not modified. Inconclusive
// checks leave their entries untouched and unverified.
func (v *Verifier) Verify(ctx context.Context, inv *types.UnifiedInventory) (*types.UnifiedInventory, Stats) {
	targets := targetDevices(inv)
	if len(targets) == 0 {
		return inv.WithMismatches(copyEntries(inv.Mismatches)), Stats{}
	}

	var (
		mu      sync.Mutex
		results = make(map[string]check, len(targets))
	)

	pool := workerpool.New(v.workers)
	for _, name := range targets {
		device := inv.Devices[name]
		pool.Submit(func() {
			c := v.check(ctx, device)
			mu.Lock()
			results[device.Name] = c
			mu.Unlock()
		})
	}
	pool.StopWait()

	var stats Stats
	for _, name := range targets {
		stats.Checked++
		switch results[name].verdict {
		case VerdictConsistent:
			stats.Consistent++
		case VerdictContradicts:
			stats.Contradicted++
		default:
			stats.NotRun++
		}
	}

	updated := copyEntries(inv.Mismatches)
	for i, entry := range updated {
		if !verifiable(entry.Field) {
			continue
		}
		c, ok := results[entry.DeviceName]
		if !ok || c.verdict == VerdictInconclusive {
			continue
		}
		entry.Verified = true
		if c.verdict == VerdictConsistent {
			entry.Severity = types.SeverityInfo
		} else {
			entry.Severity = types.SeverityCritical
		}
		entry.Details = appendDetail(entry.Details, describe(c))
		updated[i] = entry
	}

	return inv.WithMismatches(updated), stats
}

func (v *Verifier) check(ctx context.Context, device types.DeviceRecord) check {
	log := v.logger.WithField("device", device.Name)
	inconclusive := func(cause error) check {
		log.Warn(apperrors.VerificationInconclusive(device.Name, cause).Error())
		v.observe(VerdictInconclusive)
		return check{verdict: VerdictInconclusive}
	}

	if !types.IsKnown(device.ManagementIP) {
		return inconclusive(errors.New("no management IP recorded"))
	}
	if err := ctx.Err(); err != nil {
		return inconclusive(err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	res := v.transport.Run(ctx, transport.Request{
		Host:    device.ManagementIP,
		Command: IdentityCommand(device.OSFamily),
	})
	if !res.Success {
		return inconclusive(errors.New(res.Error))
	}

	id := ParseIdentity(res.Output)
	verdict := Judge(id, device)
	if verdict == VerdictInconclusive {
		return inconclusive(errors.New("device output carried no hostname or known interface"))
	}

	log.WithFields(map[string]interface{}{
		"verdict":  string(verdict),
		"hostname": id.Hostname,
		"method":   res.Method,
	}).Debug("identity checked")
	v.observe(verdict)
	return check{verdict: verdict, identity: id, method: res.Method}
}

func (v *Verifier) observe(verdict Verdict) {
	if v.observer != nil {
		v.observer(verdict)
	}
}

func verifiable(f types.Field) bool {
	return f == types.FieldPresence || f == types.FieldReachability
}

// targetDevices returns the sorted, de-duplicated devices with a verifiable entry
func targetDevices(inv *types.UnifiedInventory) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range inv.Mismatches {
		if !verifiable(m.Field) || seen[m.DeviceName] {
			continue
		}
		if _, ok := inv.Devices[m.DeviceName]; !ok {
			continue
		}
		seen[m.DeviceName] = true
		names = append(names, m.DeviceName)
	}
	sort.Strings(names)
	return names
}

func copyEntries(entries []types.MismatchEntry) []types.MismatchEntry {
	if entries == nil {
		return nil
	}
	out := make([]types.MismatchEntry, len(entries))
	for i, e := range entries {
		if e.LocalValue != nil {
			e.LocalValue = types.StringPtr(*e.LocalValue)
		}
		if e.RemoteValue != nil {
			e.RemoteValue = types.StringPtr(*e.RemoteValue)
		}
		out[i] = e
	}
	return out
}

func describe(c check) string {
	if c.identity.Hostname != "" {
		return fmt.Sprintf("live identity via %s: hostname %s (%s)", c.method, c.identity.Hostname, c.verdict)
	}
	return fmt.Sprintf("live identity via %s: interfaces %v (%s)", c.method, c.identity.Interfaces, c.verdict)
}

func appendDetail(existing, detail string) string {
	if existing == "" {
		return detail
	}
	return existing + "; " + detail
}
