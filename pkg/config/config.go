package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PlaceholderToken is the token value shipped in example configs; it is treated as absent.
const PlaceholderToken = "your-api-token-here"

// Config represents the complete netpilot configuration
type Config struct {
	NetBox   NetBoxConfig   `mapstructure:"netbox"`
	Local    LocalConfig    `mapstructure:"local"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	SSH      SSHConfig      `mapstructure:"ssh"`
	SNMP     SNMPConfig     `mapstructure:"snmp"`
	Verifier VerifierConfig `mapstructure:"verifier"`
	Router   RouterConfig   `mapstructure:"router"`
	Claude   ClaudeConfig   `mapstructure:"claude"`
	Export   ExportConfig   `mapstructure:"export"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
}

// NetBoxConfig configures the remote catalog
type NetBoxConfig struct {
	URL        string        `mapstructure:"url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SamplePath string        `mapstructure:"sample_path"`
	PageSize   int           `mapstructure:"page_size"`
}

// HasCredentials reports whether a live NetBox fetch should be attempted
func (n NetBoxConfig) HasCredentials() bool {
	return n.URL != "" && n.Token != "" && n.Token != PlaceholderToken
}

// LocalConfig configures the declarative inventory document
type LocalConfig struct {
	Path        string        `mapstructure:"path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Kubeconfig  string        `mapstructure:"kubeconfig"`
	KubeContext string        `mapstructure:"kube_context"`
}

// TelnetConfig contains Telnet transport credentials
type TelnetConfig struct {
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Port     int           `mapstructure:"port"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SSHConfig contains SSH transport credentials
type SSHConfig struct {
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Port       int           `mapstructure:"port"`
	Timeout    time.Duration `mapstructure:"timeout"`
	KnownHosts string        `mapstructure:"known_hosts"`
}

// SNMPConfig enables the SNMP identity fallback
type SNMPConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Community string        `mapstructure:"community"`
	Port      int           `mapstructure:"port"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VerifierConfig controls live identity checks
type VerifierConfig struct {
	IdentityCheckEnabled bool          `mapstructure:"identity_check_enabled"`
	Workers              int           `mapstructure:"workers"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// RouterConfig controls intent routing
type RouterConfig struct {
	Threshold  float64 `mapstructure:"threshold"`
	Classifier string  `mapstructure:"classifier"`
}

// ClaudeConfig contains Claude AI configuration
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ExportConfig contains report artifact settings
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig contains tool server settings
type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NetBox: NetBoxConfig{
			Timeout:  10 * time.Second,
			PageSize: 100,
		},
		Local: LocalConfig{
			Path:    "data/devices.yaml",
			Timeout: 10 * time.Second,
		},
		Telnet: TelnetConfig{
			Port:    23,
			Timeout: 10 * time.Second,
		},
		SSH: SSHConfig{
			Port:    22,
			Timeout: 10 * time.Second,
		},
		SNMP: SNMPConfig{
			Enabled:   false,
			Community: "public",
			Port:      161,
			Timeout:   2 * time.Second,
		},
		Verifier: VerifierConfig{
			IdentityCheckEnabled: false,
			Workers:              4,
			Timeout:              15 * time.Second,
		},
		Router: RouterConfig{
			Threshold:  0.5,
			Classifier: "pattern",
		},
		Claude: ClaudeConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Export: ExportConfig{
			Dir: "reports",
		},
		Output: OutputConfig{
			Format: "table",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
	}
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile overrides the search path when set.
	ConfigFile string
	// Flags maps config keys to command-line flags that override them.
	Flags map[string]*pflag.Flag
}

// Load loads configuration from file, environment and flags, in increasing precedence.
func Load(opts LoadOptions) (*Config, error) {
	config := DefaultConfig()
	v := viper.New()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".netpilot"))
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v, config)

	v.SetEnvPrefix("NETPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known variables used by existing deployments
	bindings := map[string][]string{
		"netbox.url":                      {"NETBOX_URL"},
		"netbox.token":                    {"NETBOX_TOKEN"},
		"telnet.username":                 {"TELNET_USERNAME"},
		"telnet.password":                 {"TELNET_PASSWORD"},
		"ssh.username":                    {"SSH_USERNAME"},
		"ssh.password":                    {"SSH_PASSWORD"},
		"verifier.identity_check_enabled": {"IDENTITY_CHECK_ENABLED"},
		"claude.api_key":                  {"CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"logging.level":                   {"LOG_LEVEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key, "NETPILOT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so NETPILOT_* variables reach keys that
// no file or flag mentions.
func setDefaults(v *viper.Viper, c *Config) {
	defaults := map[string]interface{}{
		"netbox.url":                      c.NetBox.URL,
		"netbox.token":                    c.NetBox.Token,
		"netbox.timeout":                  c.NetBox.Timeout,
		"netbox.sample_path":              c.NetBox.SamplePath,
		"netbox.page_size":                c.NetBox.PageSize,
		"local.path":                      c.Local.Path,
		"local.timeout":                   c.Local.Timeout,
		"local.kubeconfig":                c.Local.Kubeconfig,
		"local.kube_context":              c.Local.KubeContext,
		"telnet.username":                 c.Telnet.Username,
		"telnet.password":                 c.Telnet.Password,
		"telnet.port":                     c.Telnet.Port,
		"telnet.timeout":                  c.Telnet.Timeout,
		"ssh.username":                    c.SSH.Username,
		"ssh.password":                    c.SSH.Password,
		"ssh.port":                        c.SSH.Port,
		"ssh.timeout":                     c.SSH.Timeout,
		"ssh.known_hosts":                 c.SSH.KnownHosts,
		"snmp.enabled":                    c.SNMP.Enabled,
		"snmp.community":                  c.SNMP.Community,
		"snmp.port":                       c.SNMP.Port,
		"snmp.timeout":                    c.SNMP.Timeout,
		"verifier.identity_check_enabled": c.Verifier.IdentityCheckEnabled,
		"verifier.workers":                c.Verifier.Workers,
		"verifier.timeout":                c.Verifier.Timeout,
		"router.threshold":                c.Router.Threshold,
		"router.classifier":               c.Router.Classifier,
		"claude.api_key":                  c.Claude.APIKey,
		"claude.model":                    c.Claude.Model,
		"export.dir":                      c.Export.Dir,
		"output.format":                   c.Output.Format,
		"output.no_color":                 c.Output.NoColor,
		"logging.level":                   c.Logging.Level,
		"logging.format":                  c.Logging.Format,
		"logging.file":                    c.Logging.File,
		"server.http_addr":                c.Server.HTTPAddr,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Router.Threshold < 0 || c.Router.Threshold > 1 {
		return fmt.Errorf("router threshold must be within [0,1], got %v", c.Router.Threshold)
	}
	switch c.Router.Classifier {
	case "pattern", "claude":
	default:
		return fmt.Errorf("unknown router classifier %q", c.Router.Classifier)
	}
	if c.NetBox.Timeout <= 0 || c.Local.Timeout <= 0 || c.Verifier.Timeout <= 0 {
		return fmt.Errorf("source and verifier timeouts must be positive")
	}
	if c.Verifier.Workers <= 0 {
		return fmt.Errorf("verifier workers must be positive")
	}
	if c.Export.Dir == "" {
		return fmt.Errorf("export dir is required")
	}
	return nil
}

// HasAIFeatures checks if the Claude classifier can be used
func (c *Config) HasAIFeatures() bool {
	return c.Claude.APIKey != ""
}

// ExpandPaths expands home directory paths
func (c *Config) ExpandPaths() error {
	var err error
	if c.Export.Dir, err = expandPath(c.Export.Dir); err != nil {
		return fmt.Errorf("failed to expand export dir: %w", err)
	}
	if !strings.Contains(c.Local.Path, "://") {
		if c.Local.Path, err = expandPath(c.Local.Path); err != nil {
			return fmt.Errorf("failed to expand local inventory path: %w", err)
		}
	}
	if c.NetBox.SamplePath, err = expandPath(c.NetBox.SamplePath); err != nil {
		return fmt.Errorf("failed to expand netbox sample path: %w", err)
	}
	if c.Local.Kubeconfig, err = expandPath(c.Local.Kubeconfig); err != nil {
		return fmt.Errorf("failed to expand kubeconfig path: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("failed to expand log file path: %w", err)
	}
	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}
