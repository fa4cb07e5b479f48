package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askUser string
	askTopK int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from a user's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, closeFn, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		answer, err := pipeline.AskTopK(cmd.Context(), askUser, strings.Join(args, " "), askTopK)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Text)
		if answer.SourcesUsed > 0 {
			fmt.Fprintf(out, "\n%d passages from: %s\n", answer.SourcesUsed, strings.Join(answer.Sources, ", "))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "local", "owner of the documents to search")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "maximum passages to retrieve (0 = config search_top_k)")
	rootCmd.AddCommand(askCmd)
}
