// Package prompts turns the backend's generated prompts into the single
// consolidated artifact shown to the user and copied to the clipboard.
package prompts

import (
	"strings"

	"github.com/nimbus-ai/nimbus-cli/internal/models"
)

// Consolidate renders the prompts, in input order, as labeled blocks:
// an upper-cased comment header per prompt type, the prompt text, then
// a blank line. Trailing whitespace is trimmed. Empty input yields ""
// which callers must treat as "nothing to display", not an error.
func Consolidate(generated []models.GeneratedPrompt) string {
	var b strings.Builder
	for _, p := range generated {
		label := strings.ToUpper(strings.ReplaceAll(p.PromptType, "_", " "))
		b.WriteString("<!-- " + label + " -->\n")
		b.WriteString(p.PromptText)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
