package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for criticat.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "criticat",
		Short: "Formatting review for PDF documents, with cats",
		Long: `criticat reviews PDF documents for formatting and layout problems.

Each page is rendered to an image and inspected by a Gemini vision model on
Vertex AI against a rubric: spacing, margins, alignment, fonts, lists,
tables, figures, pagination, orphaned headings and more. The verdict is
written to criticat_feedback.json and can be posted to a GitHub pull request.

Depending on the joke mode, a cat may have opinions about your document.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewReviewCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
