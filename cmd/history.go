package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nimbus-ai/nimbus-cli/internal/api"
	"github.com/nimbus-ai/nimbus-cli/internal/clipboard"
	"github.com/nimbus-ai/nimbus-cli/internal/histexport"
	"github.com/nimbus-ai/nimbus-cli/internal/models"
	"github.com/nimbus-ai/nimbus-cli/internal/prompts"
	"github.com/nimbus-ai/nimbus-cli/internal/routegate"
)

func newHistoryCmd() *cobra.Command {
	var page int
	var limit int
	var sessionID string
	var copyResult bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analysis sessions",
		Example: `  # Second page of history, 20 sessions per page
  nimbus history --page 2 --limit 20

  # Show one session's consolidated prompt and copy it
  nimbus history --id 42 --copy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := fetchHistory(cmd, page, limit)
			if err != nil {
				return err
			}

			if sessionID != "" {
				return showSession(sessions, sessionID, copyResult)
			}

			if len(sessions) == 0 {
				fmt.Println("No history found. Run 'nimbus analyze' to analyze your first image.")
				return nil
			}
			for _, s := range sessions {
				name := s.SessionName
				if name == "" {
					name = "Session " + s.ID
				}
				fmt.Printf("%s  %s\n", s.ID, name)
				if s.ImageFilename != "" {
					fmt.Printf("    Analyzed: %s\n", s.ImageFilename)
				}
				fmt.Printf("    Created: %s  Prompts: %d\n",
					s.CreatedAt.Format(time.RFC1123), len(s.Prompts))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page of history to fetch")
	cmd.Flags().IntVar(&limit, "limit", 10, "Sessions per page")
	cmd.Flags().StringVar(&sessionID, "id", "", "Show one session's consolidated prompt")
	cmd.Flags().BoolVarP(&copyResult, "copy", "c", false, "Copy the consolidated prompt to the clipboard (with --id)")

	cmd.AddCommand(newHistoryExportCmd())

	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var page int
	var limit int

	cmd := &cobra.Command{
		Use:   "export <file.parquet|file.yaml>",
		Short: "Export history sessions to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := fetchHistory(cmd, page, limit)
			if err != nil {
				return err
			}
			if err := histexport.Export(args[0], sessions); err != nil {
				return err
			}
			fmt.Printf("Exported %d sessions to %s\n", len(sessions), args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page of history to fetch")
	cmd.Flags().IntVar(&limit, "limit", 100, "Sessions per page")

	return cmd
}

func fetchHistory(cmd *cobra.Command, page, limit int) ([]models.HistorySession, error) {
	cfg, store, err := openSession()
	if err != nil {
		return nil, err
	}

	if routegate.Decide(store.State(), store.StoredTokenPresent()) == routegate.Redirect {
		return nil, errors.New("please log in to view your history: run 'nimbus login'")
	}

	if page < 1 {
		page = 1
	}
	skip := (page - 1) * limit

	client := api.NewClient(cfg.ServerURL)
	sessions, err := client.History(cmd.Context(), store.Token(), skip, limit)
	if err != nil {
		var httpErr *api.HTTPError
		switch {
		case errors.Is(err, api.ErrNotAuthenticated):
			return nil, errors.New("session expired; run 'nimbus login' to sign in again")
		case errors.As(err, &httpErr):
			return nil, fmt.Errorf("failed to fetch history: %s", httpErr.Detail)
		default:
			return nil, fmt.Errorf("failed to fetch history: %w", err)
		}
	}
	return sessions, nil
}

func showSession(sessions []models.HistorySession, id string, copyResult bool) error {
	for _, s := range sessions {
		if s.ID != id {
			continue
		}
		name := s.SessionName
		if name == "" {
			name = "ID " + s.ID
		}
		fmt.Printf("Session: %s\n", name)
		if s.ImageFilename != "" {
			fmt.Printf("Image: %s\n", s.ImageFilename)
		}
		fmt.Printf("Created: %s\n", s.CreatedAt.Format(time.RFC1123))

		artifact := prompts.Consolidate(s.Prompts)
		if artifact == "" {
			fmt.Println("No consolidated prompt available.")
			return nil
		}
		fmt.Println("\n" + artifact)

		if copyResult {
			notice, _ := clipboard.Copy(artifact)
			fmt.Println("\n" + notice)
		}
		return nil
	}
	return fmt.Errorf("session %s not found in the fetched page; adjust --page/--limit", id)
}
