package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a plain-language question about the inventory",
		Long: `Ask classifies the question, routes it to an inventory operation and runs
it. Questions that match nothing with enough confidence get the summary.`,
		Example: `  netpilot ask "list dell devices"
  netpilot ask "which devices are on vlan 103"
  netpilot ask "group by site" --format markdown
  netpilot ask "what would you do for: show mismatches" --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
	cmd.Flags().StringP("format", "f", "", "output format (table, json, markdown, html)")
	cmd.Flags().Bool("explain", false, "print the routing decision instead of running it")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	c, err := components(nil)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	decision, err := c.Pipeline.Decide(ctx, question)
	if err != nil {
		return err
	}

	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		data, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if decision.FallbackUsed {
		log.WithField("question", question).Debug("no confident intent, answering with the summary")
	}
	return runDecision(cmd, decision, c.Pipeline)
}
