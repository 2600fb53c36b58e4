package transport

import (
	"context"
	"strings"

	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/pkg/config"
)

// Chain tries each transport in order and returns the first success
type Chain struct {
	transports []Transport
	logger     logger.Logger
}

var _ Transport = (*Chain)(nil)

// NewChain builds a chain over the given transports
func NewChain(log logger.Logger, transports ...Transport) *Chain {
	if log == nil {
		log = logger.NewNop()
	}
	return &Chain{transports: transports, logger: log}
}

// FromConfig builds the default chain: SSH, then Telnet, then SNMP when
// enabled. Transports without credentials are left out.
func FromConfig(cfg *config.Config, log logger.Logger) *Chain {
	var ts []Transport
	if cfg.SSH.Username != "" && cfg.SSH.Password != "" {
		ts = append(ts, &SSH{
			Username:   cfg.SSH.Username,
			Password:   cfg.SSH.Password,
			Port:       cfg.SSH.Port,
			Timeout:    cfg.SSH.Timeout,
			KnownHosts: cfg.SSH.KnownHosts,
		})
	}
	if cfg.Telnet.Username != "" && cfg.Telnet.Password != "" {
		ts = append(ts, &Telnet{
			Username: cfg.Telnet.Username,
			Password: cfg.Telnet.Password,
			Port:     cfg.Telnet.Port,
			Timeout:  cfg.Telnet.Timeout,
		})
	}
	if cfg.SNMP.Enabled {
		ts = append(ts, &SNMP{
			Community: cfg.SNMP.Community,
			Port:      cfg.SNMP.Port,
			Timeout:   cfg.SNMP.Timeout,
		})
	}
	return NewChain(log, ts...)
}

// Name lists the chained transports, e.g. "ssh,telnet"
func (c *Chain) Name() string {
	names := make([]string, len(c.transports))
	for i, t := range c.transports {
		names[i] = t.Name()
	}
	return strings.Join(names, ",")
}

// Len returns the number of chained transports
func (c *Chain) Len() int {
	return len(c.transports)
}

// Run returns the first successful result. When every transport fails the
// errors are joined in order.
func (c *Chain) Run(ctx context.Context, req Request) Result {
	if len(c.transports) == 0 {
		return Result{Method: "none", Error: "no transport configured: set ssh, telnet or snmp credentials"}
	}

	var errs []string
	for _, t := range c.transports {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err.Error())
			break
		}
		res := t.Run(ctx, req)
		if res.Success {
			return res
		}
		c.logger.WithFields(map[string]interface{}{
			"host":      req.Host,
			"transport": t.Name(),
		}).Debug("transport failed: " + res.Error)
		errs = append(errs, t.Name()+": "+res.Error)
	}
	return Result{Method: c.Name(), Error: strings.Join(errs, "; ")}
}
