package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdf-rag/internal/mcpserver"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server exposing the ask and ingest_file tools.

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pipeline, closeFn, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		server, err := mcpserver.NewServer(pipeline)
		if err != nil {
			return err
		}

		if mcpPort > 0 {
			addr := fmt.Sprintf(":%d", mcpPort)
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(cmd.Context(), addr)
		}
		return server.Run(cmd.Context())
	},
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}
