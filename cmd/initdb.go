package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
)

var initDBDrop bool

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the documents table and match_documents function",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.VectorStore.Type != config.StorePostgres {
			log.Info().Str("vector_store", cfg.VectorStore.Type).Msg("Nothing to initialise")
			return nil
		}

		bunDB, err := db.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer bunDB.Close()

		ctx := cmd.Context()
		if initDBDrop {
			if err := db.DropDocuments(ctx, bunDB); err != nil {
				return fmt.Errorf("error clearing documents: %w", err)
			}
			log.Warn().Msg("Dropped documents table")
		}
		if err := db.InitDB(ctx, bunDB, cfg.Database.VectorSize); err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database ready")
		return nil
	},
}

func init() {
	initDBCmd.Flags().BoolVar(&initDBDrop, "drop", false, "drop existing documents before creating the schema")
	rootCmd.AddCommand(initDBCmd)
}
