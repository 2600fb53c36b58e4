package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Capability describes whether one optional integration can be used
type Capability struct {
	Name      string
	Available bool
	Status    string
}

// Detect reports which integrations the configuration enables.
func Detect(c *Config) []Capability {
	return []Capability{
		detectLocal(c.Local),
		detectNetBox(c.NetBox),
		detectTransport("ssh", c.SSH.Username, c.SSH.Password),
		detectTransport("telnet", c.Telnet.Username, c.Telnet.Password),
		detectSNMP(c.SNMP),
		detectClaude(c.Claude),
	}
}

func detectLocal(l LocalConfig) Capability {
	c := Capability{Name: "local inventory"}

	if u, err := url.Parse(l.Path); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		c.Available = true
		c.Status = "remote document at " + u.Scheme + "://" + u.Host
		return c
	}

	info, err := os.Stat(l.Path)
	switch {
	case err != nil:
		c.Status = "not found: " + l.Path
	case info.IsDir():
		c.Status = "is a directory: " + l.Path
	default:
		abs, _ := filepath.Abs(l.Path)
		c.Available = true
		c.Status = abs
	}
	return c
}

func detectNetBox(n NetBoxConfig) Capability {
	c := Capability{Name: "netbox"}
	switch {
	case n.HasCredentials():
		c.Available = true
		c.Status = strings.TrimRight(n.URL, "/")
	case n.SamplePath != "":
		c.Status = "no credentials, using sample " + n.SamplePath
	default:
		c.Status = "no credentials, using built-in sample"
	}
	return c
}

func detectTransport(name, user, pass string) Capability {
	c := Capability{Name: name}
	if user != "" && pass != "" {
		c.Available = true
		c.Status = "credentials for " + user
	} else {
		c.Status = "no credentials"
	}
	return c
}

func detectSNMP(s SNMPConfig) Capability {
	c := Capability{Name: "snmp", Available: s.Enabled}
	if s.Enabled {
		c.Status = "enabled"
	} else {
		c.Status = "disabled"
	}
	return c
}

func detectClaude(cl ClaudeConfig) Capability {
	c := Capability{Name: "claude classifier", Available: cl.APIKey != ""}
	if c.Available {
		c.Status = cl.Model
	} else {
		c.Status = "ANTHROPIC_API_KEY not set"
	}
	return c
}
