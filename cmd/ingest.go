package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
)

var (
	ingestUser   string
	ingestDryRun bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract, chunk, embed and store a document",
	Long: `Ingest a PDF, Word, PowerPoint, Excel, Markdown or text file for a user.

With --dry-run the document is only extracted and chunked, and the chunks are
printed instead of being embedded and stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "local", "owner of the document")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "print chunks, do not embed or store")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)

	if ingestDryRun {
		chunks, err := dryRunChunks(name, data)
		if err != nil {
			return err
		}
		helper.PrettyPrint(chunks)
		return nil
	}

	pipeline, closeFn, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := pipeline.IngestDocument(cmd.Context(), ingestUser, name, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d chunks from %s for user %s\n", res.ChunksCount, res.FileName, res.UserID)
	return nil
}

func dryRunChunks(name string, data []byte) ([]models.Chunk, error) {
	r, err := rag.NewRAG(cfg.RAG, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	text, err := parser.New().ExtractText(name, data)
	if err != nil {
		return nil, err
	}
	return r.Chunk(ingestUser, name, text), nil
}
