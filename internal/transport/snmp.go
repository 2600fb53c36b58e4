package transport

import (
	"context"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/pkg/errors"
)

const (
	oidSysName = "1.3.6.1.2.1.1.5.0"
	oidIfName  = "1.3.6.1.2.1.31.1.1.1.1" // IF-MIB::ifName
)

// SNMP reads the device identity over SNMPv2c. It ignores the command and
// answers with sysName on the first line followed by one ifName per line,
// the same shape the CLI identity commands produce.
type SNMP struct {
	Community string
	Port      int
	Timeout   time.Duration
}

var _ Transport = (*SNMP)(nil)

// Name returns "snmp"
func (s *SNMP) Name() string { return "snmp" }

// Run queries sysName and walks ifName
func (s *SNMP) Run(ctx context.Context, req Request) Result {
	port := s.Port
	if req.Port != 0 {
		port = req.Port
	}

	g := &gosnmp.GoSNMP{
		Target:    req.Host,
		Port:      uint16(port),
		Community: s.Community,
		Version:   gosnmp.Version2c,
		Timeout:   s.Timeout,
		Retries:   1,
		MaxOids:   gosnmp.MaxOids,
		Context:   ctx,
	}

	if err := g.Connect(); err != nil {
		return failed(s.Name(), errors.Wrap(err, req.Host))
	}
	defer g.Conn.Close()

	pkt, err := g.Get([]string{oidSysName})
	if err != nil {
		return failed(s.Name(), errors.Wrapf(err, "%s sysName", req.Host))
	}

	var hostname string
	for _, v := range pkt.Variables {
		if strings.TrimPrefix(v.Name, ".") == oidSysName {
			hostname = pduString(v)
		}
	}
	if hostname == "" {
		return failed(s.Name(), errors.Errorf("%s returned no sysName", req.Host))
	}

	pdus, err := g.BulkWalkAll(oidIfName)
	if err != nil {
		return failed(s.Name(), errors.Wrapf(err, "%s ifName", req.Host))
	}

	lines := make([]string, 0, len(pdus)+1)
	lines = append(lines, hostname)
	for _, pdu := range pdus {
		if name := pduString(pdu); name != "" {
			lines = append(lines, name)
		}
	}
	return succeeded(s.Name(), strings.Join(lines, "\n"))
}

func pduString(v gosnmp.SnmpPDU) string {
	switch t := v.Value.(type) {
	case []byte:
		return strings.TrimSpace(string(t))
	case string:
		return strings.TrimSpace(t)
	}
	return ""
}
