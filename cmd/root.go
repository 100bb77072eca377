package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "screenagent",
		Short: "Hotkey-driven screenshot capture, archival and AI analysis agent",
		Long: `Screenagent captures screenshots on hotkey presses, archives them to a
Telegram chat, analyzes the batch with a multimodal model and posts the
report back to the chat.

Press the toggle hotkey to start collecting, the capture hotkey for extra
screenshots, and the toggle hotkey again to submit the session.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newRunCmd())

	return cmd
}
