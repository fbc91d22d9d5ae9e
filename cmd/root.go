package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Concierge - WhatsApp RAG assistant",
	Long: `Concierge is a WhatsApp assistant backed by retrieval-augmented
generation. It receives messages through the WhatsApp Cloud API webhook,
answers with a Gemini model grounded in a pgvector knowledge base, and can
search the web or send stored documents back to the user.

Run "concierge serve" to start the webhook server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
