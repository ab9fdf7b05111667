package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nimbus-ai/nimbus-cli/internal/config"
	"github.com/nimbus-ai/nimbus-cli/internal/credstore"
	"github.com/nimbus-ai/nimbus-cli/internal/session"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nimbus",
		Short: "Turn UI screenshots into AI-ready prompts",
		Long: `Nimbus is the terminal client for the Nimbus image-to-prompt analysis service.

Upload one or more UI screenshots, get back generated prompt text per image
consolidated into a single copy-ready artifact, and revisit past analysis
sessions.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// openSession loads config and restores the session from the durable
// slot. Every command goes through here so gating decisions always see
// initialized state.
func openSession() (*config.Config, *session.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	store := session.NewStore(credstore.NewFileSlot(cfg.TokenPath))
	store.Initialize()
	return cfg, store, nil
}
