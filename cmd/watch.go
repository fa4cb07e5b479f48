package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdf-rag/internal/watcher"
)

var watchUser string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest every document dropped into a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, closeFn, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ingest := func(ctx context.Context, path string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			_, err = pipeline.IngestDocument(ctx, watchUser, filepath.Base(path), data)
			return err
		}
		return watcher.New(args[0], watcher.DefaultDebounce, ingest).Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchUser, "user", "u", "local", "owner of the ingested documents")
	rootCmd.AddCommand(watchCmd)
}
