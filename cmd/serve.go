package main

import (
	"github.com/spf13/cobra"

	"pdf-rag/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pipeline, closeFn, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		return server.New(pipeline, cfg.Server).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
