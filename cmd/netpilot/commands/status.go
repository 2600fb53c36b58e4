package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yairfalse/netpilot/pkg/config"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which sources and integrations the configuration enables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			color.NoColor = noColor()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "netpilot %s\n\n", Version)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, c := range config.Detect(cfg) {
				mark := color.RedString("✗")
				if c.Available {
					mark = color.GreenString("✓")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", mark, c.Name, c.Status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nRouter: %s classifier, threshold %.2f\n", cfg.Router.Classifier, cfg.Router.Threshold)
			fmt.Fprintf(out, "Exports: %s\n", cfg.Export.Dir)
			return nil
		},
	}
}
