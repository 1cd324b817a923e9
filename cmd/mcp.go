package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/okian/dedidash/internal/adapters/mcp"
	service "github.com/okian/dedidash/internal/app"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the reports as MCP tools over stdio",
		Long:  "Launch a Model Context Protocol server on stdin/stdout exposing the leaderboard, weekly report, player analytics and database status tools. Logs go to stderr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withService(ctx, func(svc *service.Service) error {
				return mcpserver.Serve(ctx, svc, version, c.log.Named("mcp"))
			})
		},
	}
}
