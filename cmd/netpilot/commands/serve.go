package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	apperrors "github.com/yairfalse/netpilot/internal/errors"
	"github.com/yairfalse/netpilot/internal/server"
	"github.com/yairfalse/netpilot/internal/tools"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory tools over MCP stdio or HTTP",
		Long: `Serve exposes the inventory tools to agents. With --mcp it speaks the
Model Context Protocol on stdin and stdout; otherwise it serves JSON over HTTP
with Prometheus metrics on /metrics.`,
		Example: `  # For an MCP client configuration
  netpilot serve --mcp

  # HTTP on a custom address
  netpilot serve --http 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().Bool("mcp", false, "serve the Model Context Protocol on stdio")
	cmd.Flags().String("http", "", "HTTP listen address (default from server.http_addr)")
	cmd.Flags().Bool("no-access-log", false, "do not write an access log line per request")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	useMCP, _ := cmd.Flags().GetBool("mcp")
	addr, _ := cmd.Flags().GetString("http")
	if useMCP && addr != "" {
		return apperrors.InvalidRequest(apperrors.ComponentTools, "--mcp and --http are mutually exclusive")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, err := components(reg)
	if err != nil {
		return err
	}
	registry, err := tools.NewInventoryRegistry(c)
	if err != nil {
		return err
	}

	if useMCP {
		log.WithField("tools", len(registry.Tools())).Info("serving MCP on stdio")
		return server.ServeStdio(server.NewMCPServer(registry, Version))
	}

	if addr == "" {
		addr = cfg.Server.HTTPAddr
	}
	var accessLog io.Writer
	if off, _ := cmd.Flags().GetBool("no-access-log"); !off {
		accessLog = os.Stderr
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %d tools on http://%s\n", len(registry.Tools()), addr)
	h := server.NewHTTPHandler(registry, reg, accessLog, c.Logger)
	return server.ListenAndServe(ctx, addr, h, c.Logger)
}
