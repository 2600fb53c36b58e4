package commands

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/logger"
	"github.com/yairfalse/netpilot/internal/pipeline"
	"github.com/yairfalse/netpilot/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	log     logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netpilot",
	Short: "Reconcile a local device inventory with NetBox and answer questions about it",
	Long: `netpilot merges the devices declared in a local YAML inventory with the
devices held by a NetBox catalog, reports where the two disagree and, when
asked, checks disputed devices over their management plane.

Questions can be asked in plain language:
  netpilot ask "which devices are on vlan 101"
  netpilot ask "show mismatches with identity check"
  netpilot ask "export the report as html"

Or through the structured commands:
  netpilot inventory summary
  netpilot inventory list --by vendor --value dell
  netpilot inventory report --export markdown

The same operations are served to agents with 'netpilot serve --mcp'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			runVersion(cmd, []string{})
			return nil
		}
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		apperrors.DisplayError(os.Stderr, err, noColor())
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.netpilot/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Bool("version", false, "show version information")

	rootCmd.AddCommand(newInventoryCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newDeviceCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newVersionCommand())
}

// initConfig loads configuration and builds the logger
func initConfig(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()

	var err error
	cfg, err = config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		Flags: map[string]*pflag.Flag{
			"logging.level":   changed(flags, "log-level"),
			"logging.format":  changed(flags, "log-format"),
			"output.no_color": changed(flags, "no-color"),
		},
	})
	if err != nil {
		return apperrors.ConfigurationError("failed to load configuration").WithCause(err).WithPath(cfgFile)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return apperrors.ConfigurationError("failed to expand config paths").WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.ConfigurationError(err.Error()).
			WithSolutions("Check the file passed with --config or the NETPILOT_* environment variables")
	}

	level := cfg.Logging.Level
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = "debug"
	}
	if debug, _ := flags.GetBool("debug"); debug {
		level = "debug"
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return apperrors.ConfigurationError("cannot open log file").WithCause(err).WithPath(cfg.Logging.File)
		}
		out = f
	}

	log, err = logger.New(logger.Options{Level: level, Format: cfg.Logging.Format, Output: out})
	if err != nil {
		return apperrors.ConfigurationError(err.Error())
	}
	log.WithFields(map[string]interface{}{
		"command": cmd.CommandPath(),
		"local":   cfg.Local.Path,
		"netbox":  cfg.NetBox.HasCredentials(),
	}).Debug("configuration loaded")
	return nil
}

// changed returns the flag only when it was set on the command line, so an
// unset flag default never overrides the file or environment.
func changed(flags *pflag.FlagSet, name string) *pflag.Flag {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	return f
}

// components wires the pipeline from the loaded configuration
func components(reg prometheus.Registerer) (*pipeline.Components, error) {
	return pipeline.Build(cfg, log, reg)
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

func noColor() bool {
	if cfg != nil {
		return cfg.Output.NoColor
	}
	v, _ := rootCmd.PersistentFlags().GetBool("no-color")
	return v
}

func exitCode(err error) int {
	if code := apperrors.ExitCode(err); code != 0 {
		return code
	}
	return 1
}
