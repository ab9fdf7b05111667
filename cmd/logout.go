package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openSession()
			if err != nil {
				return err
			}

			store.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}
