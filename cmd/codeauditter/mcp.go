package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kluth/npm-code-auditter/internal/audit"
	"github.com/kluth/npm-code-auditter/internal/reporter"
)

type toolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newMcpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the Model Context Protocol (MCP) server",
		Long: `Starts a JSON-RPC server implementing the Model Context Protocol (MCP)
over stdio, so AI assistants can scan local projects with codeauditter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd, opts); err != nil {
				return err
			}
			// stdout carries the protocol.
			opts.quiet = true
			return runMcpServer(opts)
		},
	}
}

func newMcpServer(opts *options) *server.MCPServer {
	s := server.NewMCPServer(
		"npm-code-auditter",
		version,
		server.WithLogging(),
	)

	scanProjectTool := mcp.NewTool("scan_project",
		mcp.WithDescription("Scan the installed dependencies of a local npm project and return the JSON report"),
		mcp.WithString("path",
			mcp.Description("Path to the project directory containing package.json and package-lock.json"),
			mcp.Required(),
		),
		mcp.WithBoolean("verbose",
			mcp.Description("Include every individual finding with its location and code extract"),
		),
	)
	s.AddTool(scanProjectTool, handleScanProject(opts))

	listRulesTool := mcp.NewTool("list_rules",
		mcp.WithDescription("List every detection rule with its severity"),
	)
	s.AddTool(listRulesTool, handleListRules)

	return s
}

func runMcpServer(opts *options) error {
	if err := server.ServeStdio(newMcpServer(opts)); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func handleScanProject(opts *options) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("arguments must be a map"), nil
		}
		path, ok := args["path"].(string)
		if !ok || path == "" {
			return mcp.NewToolResultError("path must be a non-empty string"), nil
		}
		verbose, _ := args["verbose"].(bool)

		runner, err := opts.newRunner()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		report, err := runner.Run(ctx, path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
		}

		var buf bytes.Buffer
		if err := reporter.New(&buf, reporter.FormatJSON, verbose).Render(report); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to render report: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	}
}

func handleListRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	audit.PrintRuleList(&buf)
	return mcp.NewToolResultText(buf.String()), nil
}
