package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yairfalse/netpilot/internal/tools"
)

const instructions = `netpilot reconciles a local YAML device inventory with a NetBox catalog.
Start with inventory_summary or inventory_mismatches. Use inventory_query for
free-form questions and get_device_status to reach a device directly.`

// NewMCPServer exposes every registry tool over the Model Context Protocol
func NewMCPServer(reg *tools.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"netpilot",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range reg.Tools() {
		s.AddTool(mcpTool(t), mcpHandler(reg, t.Name))
	}
	return s
}

// ServeStdio serves s on stdin and stdout until the client disconnects
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func mcpTool(t tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		switch p.Type {
		case tools.TypeInteger:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		case tools.TypeBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func mcpHandler(reg *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out := reg.Execute(ctx, name, string(args))
		if isErrorObject(out) {
			return mcp.NewToolResultError(out), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func isErrorObject(out string) bool {
	if !strings.HasPrefix(out, `{"error":`) {
		return false
	}
	var obj tools.ErrorObject
	return json.Unmarshal([]byte(out), &obj) == nil && obj.Type != ""
}
