package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimbus-ai/nimbus-cli/internal/authtoken"
	"github.com/nimbus-ai/nimbus-cli/internal/routegate"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openSession()
			if err != nil {
				return err
			}

			state := store.State()
			if routegate.Decide(state, store.StoredTokenPresent()) == routegate.Redirect {
				fmt.Println("Not logged in. Run 'nimbus login' to sign in.")
				return nil
			}
			if !state.Authenticated {
				// Token present in storage but unusable (expired or corrupt).
				fmt.Println("Session expired. Run 'nimbus login' to sign in again.")
				return nil
			}

			fmt.Printf("%s <%s>\n", state.User.DisplayName, state.User.Email)
			fmt.Printf("User ID: %s\n", state.User.ID)
			if claims, err := authtoken.Decode(state.Token); err == nil {
				fmt.Printf("Session expires: %s\n", time.Unix(claims.ExpiresAt, 0).Format(time.RFC1123))
			}
			return nil
		},
	}
}
