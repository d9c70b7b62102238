/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"captionbot/pkg/channel/telegram"
	"captionbot/pkg/config"
	"captionbot/pkg/handlers"
	"captionbot/pkg/logger"
	"captionbot/pkg/router"
	"captionbot/pkg/wait"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram caption bot",
	Long:  "Runs CaptionBot against the Telegram API, in webhook mode when a webhook URL is configured and long-polling mode otherwise.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.bot")

		adapter, err := telegram.NewAdapter(cfg.Telegram, cfg.Webhook, log)
		if err != nil {
			log.Error("Bot configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		registry := wait.NewRegistry(log)
		dispatcher := router.NewDispatcher(registry, log)
		handlers.Register(dispatcher, registry, cfg.Wait.Timeout(), log)

		log.Info("Bot started", "channel", adapter.Name(), "mode", runMode(cfg), "wait_timeout", cfg.Wait.Timeout())
		if err := adapter.Run(runCtx, dispatcher.Dispatch); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Bot runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}

// runMode names the configured update delivery mode.
func runMode(cfg *config.Config) string {
	if strings.TrimSpace(cfg.Webhook.URL) != "" {
		return "webhook"
	}

	return "polling"
}
