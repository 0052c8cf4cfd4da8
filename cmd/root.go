package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rag-service",
	Short: "RAG knowledge service for the CNSS assistant",
	Long: `rag-service ingests documents, splits and embeds them into a pgvector
store, and answers natural-language questions by retrieving relevant
chunks and prompting a language model with them.

Run "rag-service serve" to start the HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
