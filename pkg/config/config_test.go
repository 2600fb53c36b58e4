package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{ConfigFile: writeConfig(t, "{}\n")})
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.NetBox.Timeout)
	assert.Equal(t, 0.5, cfg.Router.Threshold)
	assert.Equal(t, "pattern", cfg.Router.Classifier)
	assert.Equal(t, 23, cfg.Telnet.Port)
	assert.False(t, cfg.Verifier.IdentityCheckEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
netbox:
  url: https://netbox.example.com
  timeout: 3s
telnet:
  username: admin
verifier:
  identity_check_enabled: true
router:
  threshold: 0.7
`)
	t.Setenv("NETBOX_TOKEN", "secret")
	t.Setenv("TELNET_PASSWORD", "hunter2")

	cfg, err := Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "https://netbox.example.com", cfg.NetBox.URL)
	assert.Equal(t, "secret", cfg.NetBox.Token)
	assert.Equal(t, 3*time.Second, cfg.NetBox.Timeout)
	assert.Equal(t, "admin", cfg.Telnet.Username)
	assert.Equal(t, "hunter2", cfg.Telnet.Password)
	assert.True(t, cfg.Verifier.IdentityCheckEnabled)
	assert.Equal(t, 0.7, cfg.Router.Threshold)
	assert.True(t, cfg.NetBox.HasCredentials())
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	path := writeConfig(t, "output:\n  format: json\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "table", "")
	require.NoError(t, flags.Parse([]string{"--format", "markdown"}))

	cfg, err := Load(LoadOptions{
		ConfigFile: path,
		Flags:      map[string]*pflag.Flag{"output.format": flags.Lookup("format")},
	})
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.Output.Format)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: writeConfig(t, "netbox: [unterminated\n")})
	assert.Error(t, err)
}

func TestNetBoxConfig_HasCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  NetBoxConfig
		want bool
	}{
		{name: "complete", cfg: NetBoxConfig{URL: "http://nb", Token: "abc"}, want: true},
		{name: "no token", cfg: NetBoxConfig{URL: "http://nb"}, want: false},
		{name: "placeholder", cfg: NetBoxConfig{URL: "http://nb", Token: PlaceholderToken}, want: false},
		{name: "no url", cfg: NetBoxConfig{Token: "abc"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.HasCredentials())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "threshold too high", mutate: func(c *Config) { c.Router.Threshold = 1.5 }, wantErr: true},
		{name: "unknown classifier", mutate: func(c *Config) { c.Router.Classifier = "oracle" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.NetBox.Timeout = 0 }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.Verifier.Workers = 0 }, wantErr: true},
		{name: "no export dir", mutate: func(c *Config) { c.Export.Dir = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestExpandPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Export.Dir = "~/reports"
	cfg.Local.Path = "s3://bucket/~devices.yaml"
	require.NoError(t, cfg.ExpandPaths())

	assert.Equal(t, filepath.Join(home, "reports"), cfg.Export.Dir)
	assert.Equal(t, "s3://bucket/~devices.yaml", cfg.Local.Path)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "devices.yaml")
	require.NoError(t, os.WriteFile(inv, []byte("devices: []\n"), 0644))

	cfg := DefaultConfig()
	cfg.Local.Path = inv
	cfg.SSH.Username = "admin"
	cfg.SSH.Password = "pw"

	caps := Detect(cfg)
	byName := make(map[string]Capability)
	for _, c := range caps {
		byName[c.Name] = c
	}

	assert.True(t, byName["local inventory"].Available)
	assert.False(t, byName["netbox"].Available)
	assert.Contains(t, byName["netbox"].Status, "built-in sample")
	assert.True(t, byName["ssh"].Available)
	assert.False(t, byName["telnet"].Available)
	assert.False(t, byName["snmp"].Available)
}
