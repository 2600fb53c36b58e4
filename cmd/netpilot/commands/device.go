package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/tools"
	"github.com/yairfalse/netpilot/internal/transport"
)

func newDeviceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Talk to a device over its management plane",
	}
	cmd.AddCommand(newDeviceStatusCommand())
	return cmd
}

func newDeviceStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <host>",
		Short: "Run a command on a device over Telnet, SSH or SNMP",
		Long: `Status tries each configured transport in order until one answers and
prints the command output together with the transport that succeeded.`,
		Example: `  netpilot device status 10.10.0.11
  netpilot device status 10.10.0.11 --command "show interfaces status"`,
		Args: cobra.ExactArgs(1),
		RunE: runDeviceStatus,
	}
	cmd.Flags().String("command", tools.DefaultStatusCommand, "command to run")
	cmd.Flags().Int("port", 0, "port override for the first transport")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	return cmd
}

func runDeviceStatus(cmd *cobra.Command, args []string) error {
	c, err := components(nil)
	if err != nil {
		return err
	}
	command, _ := cmd.Flags().GetString("command")
	port, _ := cmd.Flags().GetInt("port")

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	res := c.Transport.Run(ctx, transport.Request{Host: args[0], Port: port, Command: command})

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else if res.Success {
		fmt.Fprintf(out, "%s %s via %s\n\n%s\n", color.GreenString("✓"), args[0], res.Method, strings.TrimRight(res.Output, "\n"))
	}

	if !res.Success {
		return apperrors.SourceUnavailable(apperrors.ComponentVerifier, fmt.Errorf("%s", res.Error)).
			WithPath(args[0]).
			WithSolutions("Check telnet, ssh and snmp credentials with 'netpilot status'")
	}
	return nil
}
