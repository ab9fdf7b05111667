package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimbus-ai/nimbus-cli/internal/auth"
)

func newLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in via the browser",
		Long: `Opens the provider login page in your browser and waits for the redirect
carrying your session token. Use --token to paste a token directly instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openSession()
			if err != nil {
				return err
			}

			if state := store.State(); state.Authenticated {
				fmt.Printf("Already logged in as %s. Use 'nimbus logout' first.\n", state.User.Email)
				return nil
			}

			if token == "" {
				fmt.Println("Opening browser for login...")
				token, err = auth.WaitForToken(cmd.Context(), cfg.ServerURL)
				if err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
			}

			if err := store.Login(token); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Printf("Logged in as %s\n", store.State().User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Session token to use instead of the browser flow")

	return cmd
}
