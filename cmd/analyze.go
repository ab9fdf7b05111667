package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nimbus-ai/nimbus-cli/internal/api"
	"github.com/nimbus-ai/nimbus-cli/internal/clipboard"
	"github.com/nimbus-ai/nimbus-cli/internal/prompts"
	"github.com/nimbus-ai/nimbus-cli/internal/routegate"
	"github.com/nimbus-ai/nimbus-cli/internal/upload"
)

func newAnalyzeCmd() *cobra.Command {
	var sessionName string
	var titles []string
	var copyResult bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <image> [image...]",
		Short: "Submit UI screenshots for prompt analysis",
		Long: `Uploads the given screenshots as one batch and prints the generated
prompts consolidated into a single copy-ready artifact.

Only PNG, JPEG and WEBP files are accepted. Each image gets a title derived
from its filename; override per image with repeated --title flags, matched
to the images in order.`,
		Example: `  # Analyze two screenshots as one session
  nimbus analyze cart.png payment.png --session-name "Checkout Flow"

  # Name the pages and copy the artifact to the clipboard
  nimbus analyze cart.png --title "Cart Page" --copy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := openSession()
			if err != nil {
				return err
			}

			if routegate.Decide(store.State(), store.StoredTokenPresent()) == routegate.Redirect {
				fmt.Println("Not logged in. Run 'nimbus login' to sign in.")
				return nil
			}

			client := api.NewClient(cfg.ServerURL)
			batch := upload.NewBatch(upload.NewFileAllocator(cfg.PreviewsDir), client, store)
			defer batch.Reset()

			files := make([]upload.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				files = append(files, upload.File{Name: filepath.Base(path), Data: data})
			}

			rejected, err := batch.AddFiles(files)
			if err != nil {
				return err
			}
			for _, name := range rejected {
				fmt.Printf("Skipping %s: only PNG, JPEG and WEBP images are accepted.\n", name)
			}

			entries := batch.Entries()
			for i, title := range titles {
				if i >= len(entries) {
					break
				}
				batch.SetEntryTitle(entries[i].ID, title)
			}
			batch.SetSessionName(sessionName)

			for _, e := range batch.Entries() {
				dims := ""
				if e.Width > 0 {
					dims = fmt.Sprintf(" (%dx%d)", e.Width, e.Height)
				}
				fmt.Printf("  %s — %s%s\n", e.Title, e.Filename, dims)
			}

			fmt.Println("Analyzing...")
			result, err := batch.Submit(cmd.Context())
			if err != nil {
				return renderSubmitError(err)
			}

			if asJSON {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding result: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Println("\nAnalysis complete!")
			if result.SessionName != "" {
				fmt.Printf("Session: %s\n", result.SessionName)
			}
			if result.ImageFilename != "" {
				fmt.Printf("Image(s) processed: %s\n", result.ImageFilename)
			}

			artifact := prompts.Consolidate(result.Prompts)
			if artifact == "" {
				fmt.Println("No prompts were generated.")
				return nil
			}
			fmt.Println("\n" + artifact)

			if copyResult {
				notice, _ := clipboard.Copy(artifact)
				fmt.Println("\n" + notice)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionName, "session-name", "s", "", "Overall session name (optional)")
	cmd.Flags().StringArrayVarP(&titles, "title", "t", nil, "Page title per image, in order (repeatable)")
	cmd.Flags().BoolVarP(&copyResult, "copy", "c", false, "Copy the consolidated prompt to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw analysis result as JSON")

	return cmd
}

// renderSubmitError turns the error taxonomy into the inline messages
// the user sees; classification stays intact for exit-code purposes.
func renderSubmitError(err error) error {
	var httpErr *api.HTTPError
	var urlErr *url.Error
	switch {
	case errors.Is(err, upload.ErrEmptyBatch):
		return errors.New("please select at least one image file")
	case errors.Is(err, upload.ErrAlreadyInFlight):
		return errors.New("an analysis is already in progress")
	case errors.As(err, &httpErr):
		return fmt.Errorf("analysis failed: %s", httpErr.Detail)
	case errors.As(err, &urlErr):
		return errors.New("could not reach the analysis service; check your connection and server URL")
	default:
		return err
	}
}
