package verifier

import (
	"regexp"
	"strings"

	"github.com/yairfalse/netpilot/pkg/types"
)

// Identity commands per OS family
const (
	SONiCIdentityCommand   = "show hostname; show interfaces status"
	DefaultIdentityCommand = "show hostname; show interface brief"
)

var interfacePattern = regexp.MustCompile(`\b(Ethernet\d+(?:/\d+)*|eth\d+|Eth\d+/\d+(?:/\d+)?|(?:Gi|Te|Fa|Hu|Fo|Tw)[A-Za-z]*\d+/\d+(?:/\d+)?|swp\d+(?:s\d+)?)\b`)

// IdentityCommand returns the command that prints hostname and interfaces
func IdentityCommand(osFamily string) string {
	if osFamily == types.OSFamilySONiC {
		return SONiCIdentityCommand
	}
	return DefaultIdentityCommand
}

// Identity is what a device reported about itself
type Identity struct {
	Hostname   string   `json:"hostname"`
	Interfaces []string `json:"interfaces"`
}

// ParseIdentity reads the hostname from the first non-empty line and every
// interface token from the whole output. A first line that looks like
// interface table output means the device printed no hostname.
func ParseIdentity(output string) Identity {
	var id Identity
	lines := strings.Split(strings.ReplaceAll(output, "\r", ""), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.ContainsAny(line, " \t") && !interfacePattern.MatchString(line) {
			id.Hostname = line
		}
		break
	}

	seen := make(map[string]bool)
	for _, m := range interfacePattern.FindAllString(output, -1) {
		if !seen[m] {
			seen[m] = true
			id.Interfaces = append(id.Interfaces, m)
		}
	}
	return id
}

// Verdict is the outcome of comparing an Identity against a device record
type Verdict string

const (
	VerdictConsistent   Verdict = "consistent"
	VerdictContradicts  Verdict = "contradicts"
	VerdictInconclusive Verdict = "inconclusive"
)

// Judge compares what the device said with what the record claims
func Judge(id Identity, device types.DeviceRecord) Verdict {
	if id.Hostname != "" {
		if sameHost(id.Hostname, device.Name) {
			return VerdictConsistent
		}
		return VerdictContradicts
	}

	if len(id.Interfaces) == 0 {
		return VerdictInconclusive
	}
	recorded := make(map[string]bool)
	for _, name := range device.InterfaceNames() {
		recorded[strings.ToLower(name)] = true
	}
	if len(recorded) == 0 {
		return VerdictInconclusive
	}
	for _, name := range id.Interfaces {
		if recorded[strings.ToLower(name)] {
			return VerdictConsistent
		}
	}
	return VerdictContradicts
}

// sameHost compares hostnames ignoring case and any domain suffix
func sameHost(reported, name string) bool {
	short := func(s string) string {
		s = strings.ToLower(strings.TrimSpace(s))
		if i := strings.IndexByte(s, '.'); i > 0 {
			s = s[:i]
		}
		return s
	}
	return short(reported) == short(name)
}
