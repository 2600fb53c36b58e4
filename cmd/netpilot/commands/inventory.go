package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/output"
	"github.com/yairfalse/netpilot/internal/pipeline"
	"github.com/yairfalse/netpilot/internal/reconciler"
	"github.com/yairfalse/netpilot/internal/router"
	"github.com/yairfalse/netpilot/pkg/types"
)

func newInventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Query the reconciled device inventory",
		Long: `Inventory commands fetch both sources, reconcile them and print one view
of the result. Every command accepts --format to pick the output encoding.`,
		Example: `  # Device counts per source and validation status
  netpilot inventory summary

  # Every Dell device, as JSON
  netpilot inventory list --by vendor --value dell --format json

  # Mismatches, with presence disputes checked against the live device
  netpilot inventory mismatches --identity-check

  # Write an HTML report to the export directory
  netpilot inventory report --export html`,
	}
	cmd.PersistentFlags().StringP("format", "f", "", "output format (table, json, markdown, html)")

	cmd.AddCommand(
		newInventoryListCommand(),
		newInventorySummaryCommand(),
		newInventoryMismatchesCommand(),
		newInventoryReportCommand(),
		newInventoryGroupCommand(),
		newInventoryVLANCommand(),
	)
	return cmd
}

func newInventoryListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices, optionally filtered by one attribute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			value, _ := cmd.Flags().GetString("value")
			if (by == "") != (value == "") {
				return apperrors.InvalidRequest(apperrors.ComponentRouter, "--by and --value must be given together")
			}
			if vlans, _ := cmd.Flags().GetBool("vlans"); vlans {
				return runPlanned(cmd, types.IntentList, map[string]string{router.SlotView: router.ViewVLANs})
			}
			return runPlanned(cmd, types.IntentList, map[string]string{router.SlotBy: by, router.SlotValue: value})
		},
	}
	cmd.Flags().String("by", "", "attribute to filter on (vendor, role, site, os_family, vlan)")
	cmd.Flags().String("value", "", "value the attribute must equal")
	cmd.Flags().Bool("vlans", false, "list the VLAN table instead of devices")
	return cmd
}

func newInventorySummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Device counts per source and validation status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanned(cmd, types.IntentSummary, nil)
		},
	}
}

func newInventoryMismatchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mismatches",
		Short: "Differences between the local inventory and NetBox, most severe first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanned(cmd, types.IntentMismatches, identitySlots(cmd))
		},
	}
	cmd.Flags().Bool("identity-check", false, "check presence and reachability mismatches against the live device")
	return cmd
}

func newInventoryReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Full inventory report, printed or written to the export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slots := identitySlots(cmd)
			if export, _ := cmd.Flags().GetString("export"); export != "" {
				slots[router.SlotExport] = export
			}
			return runPlanned(cmd, types.IntentReport, slots)
		},
	}
	cmd.Flags().Bool("identity-check", false, "check presence and reachability mismatches against the live device")
	cmd.Flags().String("export", "", "write the report in this encoding (markdown, html, json)")
	return cmd
}

func newInventoryGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group devices by one attribute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetString("by")
			return runPlanned(cmd, types.IntentGroupBy, map[string]string{router.SlotBy: by})
		},
	}
	cmd.Flags().String("by", "vendor", "grouping key (vendor, role, site, os_family)")
	return cmd
}

func newInventoryVLANCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vlan <id>",
		Short: "List the devices carrying a VLAN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 || id > 4094 {
				return apperrors.InvalidRequest(apperrors.ComponentRouter, fmt.Sprintf("invalid VLAN id %q", args[0])).
					WithSolutions("VLAN ids are integers from 1 to 4094")
			}
			return runPlanned(cmd, types.IntentList, map[string]string{router.SlotBy: "vlan", router.SlotValue: args[0]})
		},
	}
}

// identitySlots honours --identity-check, defaulting to the configured value
func identitySlots(cmd *cobra.Command) map[string]string {
	check := cfg.Verifier.IdentityCheckEnabled
	if f := cmd.Flags().Lookup("identity-check"); f != nil && f.Changed {
		check, _ = cmd.Flags().GetBool("identity-check")
	}
	slots := make(map[string]string)
	if check {
		slots[router.SlotIdentityCheck] = "true"
	}
	return slots
}

// runPlanned executes the plan for intent with full confidence
func runPlanned(cmd *cobra.Command, intent types.Intent, slots map[string]string) error {
	if by := slots[router.SlotBy]; by != "" {
		if _, err := reconciler.CanonicalKey(by); err != nil {
			return apperrors.InvalidRequest(apperrors.ComponentRouter, err.Error())
		}
	}
	decision := types.RoutingDecision{
		Intent:     intent,
		Steps:      router.Plan(types.Candidate{Intent: intent, Score: 1, Slots: slots}),
		Confidence: 1,
	}
	return runDecision(cmd, decision, nil)
}

// runDecision executes decision and prints its output. p is built from the
// configuration when nil.
func runDecision(cmd *cobra.Command, decision types.RoutingDecision, p *pipeline.Pipeline) error {
	if p == nil {
		c, err := components(nil)
		if err != nil {
			return err
		}
		p = c.Pipeline
	}
	format, _ := cmd.Flags().GetString("format")
	decision = pipeline.WithEncoding(decision, format)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	spinner := output.NewSpinner(os.Stderr, noColor())
	spinner.Start("Reconciling inventory sources...")
	res, err := p.Execute(ctx, decision)
	spinner.Stop()
	if err != nil {
		return err
	}
	printResult(cmd, res)
	return nil
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	if res.Verification != nil && res.Verification.Checked > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Identity check: %d checked, %d consistent, %d contradicted, %d inconclusive\n",
			res.Verification.Checked, res.Verification.Consistent, res.Verification.Contradicted, res.Verification.NotRun)
	}
	if res.ArtifactPath != "" {
		fmt.Fprintf(out, "Report written to %s\n", res.ArtifactPath)
		return
	}
	out.Write(res.Output)
	if n := len(res.Output); n > 0 && res.Output[n-1] != '\n' {
		fmt.Fprintln(out)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
