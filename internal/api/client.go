// Package api is the HTTP client for the Nimbus analysis backend. The
// endpoint shapes are a fixed contract; this package only builds
// requests and classifies responses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/nimbus-ai/nimbus-cli/internal/models"
)

const (
	analyzePath = "/prompts/analyze-image"
	historyPath = "/prompts/history"

	// Substituted for an empty image title when building the form.
	untitledPlaceholder = "Untitled"
)

// ErrNotAuthenticated is a local precondition failure: the call needs a
// token and none is available. Never sent to the server.
var ErrNotAuthenticated = errors.New("not authenticated")

// HTTPError is a non-2xx response with its parsed detail message.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Detail)
}

// ImagePart is one file in an analyze submission.
type ImagePart struct {
	Filename string
	Title    string
	Data     []byte
}

// AnalyzeRequest is a batch submission.
type AnalyzeRequest struct {
	SessionName string
	Images      []ImagePart
}

type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
	}
}

// AnalyzeImage posts the batch as multipart form data: optional
// session_name, then one image_files/image_titles pair per image in
// order. The token is attached as a bearer header when non-empty.
func (c *Client) AnalyzeImage(ctx context.Context, token string, req AnalyzeRequest) (*models.AnalysisResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if req.SessionName != "" {
		if err := writer.WriteField("session_name", req.SessionName); err != nil {
			return nil, fmt.Errorf("writing session_name field: %w", err)
		}
	}
	for _, img := range req.Images {
		part, err := writer.CreateFormFile("image_files", img.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating form file: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("writing image data: %w", err)
		}
		title := img.Title
		if title == "" {
			title = untitledPlaceholder
		}
		if err := writer.WriteField("image_titles", title); err != nil {
			return nil, fmt.Errorf("writing image_titles field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	slog.Debug("Submitting analyze request", "images", len(req.Images), "session_name", req.SessionName)

	var result models.AnalysisResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History fetches past analysis sessions. Requires a token; an absent
// token fails locally before any network activity.
func (c *Client) History(ctx context.Context, token string, skip, limit int) ([]models.HistorySession, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	url := c.baseURL + historyPath + "?skip=" + strconv.Itoa(skip) + "&limit=" + strconv.Itoa(limit)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	var sessions []models.HistorySession
	if err := c.do(httpReq, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Detail: parseErrorDetail(body, resp)}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// parseErrorDetail extracts the backend's detail message. The detail is
// either a plain string or a list of field-level errors with a loc path
// and a msg; anything unparseable falls back to the status text.
func parseErrorDetail(body []byte, resp *http.Response) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(envelope.Detail, &msg); err == nil && msg != "" {
			return msg
		}

		var fieldErrs []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &fieldErrs); err == nil && len(fieldErrs) > 0 {
			lines := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				loc := make([]string, 0, len(fe.Loc))
				for _, l := range fe.Loc {
					loc = append(loc, fmt.Sprint(l))
				}
				prefix := "Error"
				if len(loc) > 0 {
					prefix = strings.Join(loc, " -> ")
				}
				lines = append(lines, prefix+": "+fe.Msg)
			}
			return strings.Join(lines, "; ")
		}
	}

	text := http.StatusText(resp.StatusCode)
	if text == "" {
		text = resp.Status
	}
	return text
}
