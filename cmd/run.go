package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/screenagent/screenagent/internal/agent"
	"github.com/screenagent/screenagent/internal/capture"
	"github.com/screenagent/screenagent/internal/config"
	"github.com/screenagent/screenagent/internal/gemini"
	"github.com/screenagent/screenagent/internal/input"
	"github.com/screenagent/screenagent/internal/ledger"
	"github.com/screenagent/screenagent/internal/storage"
	"github.com/screenagent/screenagent/internal/telegram"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the agent and listen for hotkeys",
		Long: `Starts the capture loop. The agent listens for the configured hotkeys,
collects screenshots into a session, and on submit uploads the images to
Telegram, analyzes them with Gemini and posts the chunked report back.

Credentials come from the config file, the environment, or a .env file
(TELEGRAM_TOKEN, TELEGRAM_CHAT_ID, GEMINI_API_KEY).`,
		Example: `  # Start with defaults (f8 toggle, f9 capture, f10 exit)
  screenagent run

  # Start with a config file
  screenagent run --config screenagent.yml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.StorageDir)
			if err != nil {
				return err
			}
			sessions, err := ledger.New(cfg.StorageDir)
			if err != nil {
				return err
			}

			orch := agent.New(
				capture.NewScreenCapturer(),
				telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID),
				gemini.New(cfg.GeminiAPIKey, cfg.Model, cfg.Temperature),
				store,
				sessions,
				cfg.Prompt,
				cfg.ChunkLimit,
			)

			// Cancelling the context tears down the keyboard hook,
			// which in turn closes the signal channel.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			slog.Info("Screenshot agent starting",
				"storage", cfg.StorageDir,
				"model", cfg.Model,
				"chunk_limit", cfg.ChunkLimit)

			source := input.New(cfg.ToggleHotkey, cfg.CaptureHotkey, cfg.ExitHotkey)
			err = orch.Run(ctx, source.Signals(ctx))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "screenagent.yml", "Path to the YAML config file")

	return cmd
}
