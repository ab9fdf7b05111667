// Package histexport writes fetched history sessions to local files
// for offline inspection. Parquet for bulk analysis, YAML for reading.
package histexport

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/nimbus-ai/nimbus-cli/internal/models"
	"github.com/nimbus-ai/nimbus-cli/internal/prompts"
)

// Record is the flattened per-session row written to disk. The prompt
// list is collapsed into the consolidated artifact so exported rows
// match what the user sees on screen.
type Record struct {
	ID                 string `parquet:"id" yaml:"id"`
	SessionName        string `parquet:"session_name" yaml:"sessionname"`
	ImageFilename      string `parquet:"image_filename" yaml:"imagefilename"`
	CreatedAt          string `parquet:"created_at" yaml:"createdat"`
	PromptCount        int32  `parquet:"prompt_count" yaml:"promptcount"`
	ConsolidatedPrompt string `parquet:"consolidated_prompt" yaml:"consolidatedprompt"`
}

type yamlExport struct {
	ExportedAt string   `yaml:"exportedat"`
	Sessions   []Record `yaml:"sessions"`
}

// Export writes the sessions to path; the extension picks the format.
func Export(path string, sessions []models.HistorySession) error {
	records := make([]Record, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, Record{
			ID:                 s.ID,
			SessionName:        s.SessionName,
			ImageFilename:      s.ImageFilename,
			CreatedAt:          s.CreatedAt.Format(time.RFC3339),
			PromptCount:        int32(len(s.Prompts)),
			ConsolidatedPrompt: prompts.Consolidate(s.Prompts),
		})
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		return exportParquet(path, records)
	case ".yaml", ".yml":
		return exportYAML(path, records)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: .parquet, .yaml)", ext)
	}
}

func exportParquet(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Record](file)
	if _, err := writer.Write(records); err != nil {
		return fmt.Errorf("writing parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalizing parquet file: %w", err)
	}

	slog.Debug("Exported history", "path", path, "format", "parquet", "sessions", len(records))
	return nil
}

func exportYAML(path string, records []Record) error {
	data, err := yaml.Marshal(yamlExport{
		ExportedAt: time.Now().Format(time.RFC3339),
		Sessions:   records,
	})
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing YAML file: %w", err)
	}

	slog.Debug("Exported history", "path", path, "format", "yaml", "sessions", len(records))
	return nil
}
