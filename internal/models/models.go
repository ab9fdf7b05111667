package models

import "time"

// GeneratedPrompt is one labeled prompt produced by the analysis backend.
type GeneratedPrompt struct {
	PromptType string `json:"prompt_type"`
	PromptText string `json:"prompt_text"`
}

// AnalysisResult is the response to a live analyze-image submission.
type AnalysisResult struct {
	SessionName   string            `json:"session_name,omitempty"`
	ImageFilename string            `json:"image_filename,omitempty"`
	Prompts       []GeneratedPrompt `json:"prompts"`
}

// HistorySession is one past analysis session as returned by the
// history endpoint. Same shape as AnalysisResult except the backend
// names the prompt list "generated_prompts" on this path.
type HistorySession struct {
	ID            string            `json:"id"`
	SessionName   string            `json:"session_name,omitempty"`
	ImageFilename string            `json:"image_filename,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Prompts       []GeneratedPrompt `json:"generated_prompts"`
}

// User is the identity decoded from the bearer token.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
