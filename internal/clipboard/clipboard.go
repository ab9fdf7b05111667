// Package clipboard copies the consolidated artifact verbatim to the
// system clipboard. Failure is surfaced as a notice, never an error the
// caller has to handle beyond telling the user.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Copy writes text to the clipboard and returns the user-facing notice.
func Copy(text string) (notice string, ok bool) {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Sprintf("Failed to copy prompt: %v", err), false
	}
	return "Prompt copied!", true
}
