package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pdf-rag/internal/tui"
)

var chatUser string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat over a user's documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("chat needs an interactive terminal, use `pdf-rag ask` in scripts")
		}

		pipeline, closeFn, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		return tui.Run(cmd.Context(), pipeline, chatUser)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "local", "owner of the documents to search")
	rootCmd.AddCommand(chatCmd)
}
