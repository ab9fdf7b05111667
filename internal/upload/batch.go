// Package upload collects user-selected screenshots into a batch,
// owns their preview resources, and submits the batch as one analyze
// request.
package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nimbus-ai/nimbus-cli/internal/api"
	"github.com/nimbus-ai/nimbus-cli/internal/models"
)

var (
	ErrEmptyBatch      = errors.New("no images selected")
	ErrAlreadyInFlight = errors.New("a submission is already in flight")
)

// SubmissionState tracks the batch's single-submission lifecycle.
type SubmissionState int

const (
	Idle SubmissionState = iota
	InFlight
	Succeeded
	Failed
)

func (s SubmissionState) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Media types the batch accepts, sniffed from content.
var acceptedMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// File is a user-selected blob before it becomes an entry.
type File struct {
	Name string
	Data []byte
}

// Entry is one image in the batch. The batch exclusively owns the blob
// and the preview handle; the handle is released exactly once, on
// removal or reset.
type Entry struct {
	ID       string
	Title    string
	Filename string
	Width    int
	Height   int

	data    []byte
	preview PreviewHandle
}

// TokenSource yields the bearer token as of dispatch time. An expired
// token must read as "".
type TokenSource interface {
	Token() string
}

// Submitter sends the analyze request. *api.Client satisfies this.
type Submitter interface {
	AnalyzeImage(ctx context.Context, token string, req api.AnalyzeRequest) (*models.AnalysisResult, error)
}

// Batch is the upload aggregate. At most one submission is in flight at
// a time; a fresh file selection invalidates any previous result.
type Batch struct {
	mu          sync.Mutex
	sessionName string
	entries     []*Entry
	state       SubmissionState
	result      *models.AnalysisResult

	previews Allocator
	client   Submitter
	tokens   TokenSource

	subMu sync.Mutex
	subs  map[chan SubmissionState]struct{}
}

func NewBatch(previews Allocator, client Submitter, tokens TokenSource) *Batch {
	return &Batch{
		previews: previews,
		client:   client,
		tokens:   tokens,
		subs:     make(map[chan SubmissionState]struct{}),
	}
}

// AddFiles appends accepted files as entries in arrival order and
// returns the names of rejected files. Rejected files leave no side
// effects. Any accepted file resets the submission state to Idle and
// discards a previous result.
func (b *Batch) AddFiles(files []File) (rejected []string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	accepted := 0
	for _, f := range files {
		mediaType := sniffMediaType(f.Data)
		if !acceptedMediaTypes[mediaType] {
			slog.Debug("Rejected file", "name", f.Name, "media_type", mediaType)
			rejected = append(rejected, f.Name)
			continue
		}

		preview, err := b.previews.Allocate(f.Name, f.Data)
		if err != nil {
			return rejected, err
		}

		width, height := decodeDimensions(f.Data)
		b.entries = append(b.entries, &Entry{
			ID:       uuid.NewString(),
			Title:    strings.TrimSuffix(f.Name, filepath.Ext(f.Name)),
			Filename: f.Name,
			Width:    width,
			Height:   height,
			data:     f.Data,
			preview:  preview,
		})
		accepted++
	}

	if accepted > 0 {
		b.result = nil
		b.setStateLocked(Idle)
	}
	return rejected, nil
}

// SetEntryTitle updates the title of the matching entry. No-op when the
// id is absent.
func (b *Batch) SetEntryTitle(id, title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.ID == id {
			e.Title = title
			return
		}
	}
}

// RemoveEntry removes the entry and releases its preview handle. No-op
// when the id is absent.
func (b *Batch) RemoveEntry(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.ID == id {
			if err := e.preview.Release(); err != nil {
				slog.Warn("Unable to release preview", "id", id, "err", err)
			}
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// SetSessionName stores a trimmed session-name override; empty after
// trimming means no override.
func (b *Batch) SetSessionName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionName = strings.TrimSpace(name)
}

// Reset releases every preview handle and returns the batch to its
// initial state.
func (b *Batch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if err := e.preview.Release(); err != nil {
			slog.Warn("Unable to release preview", "id", e.ID, "err", err)
		}
	}
	b.entries = nil
	b.sessionName = ""
	b.result = nil
	b.setStateLocked(Idle)
}

// Entries returns a snapshot of the current entries.
func (b *Batch) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = *e
	}
	return out
}

// State returns the current submission state.
func (b *Batch) State() SubmissionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Result returns the last successful analysis result, if any.
func (b *Batch) Result() *models.AnalysisResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

// Submit sends the batch. Precondition failures (empty batch, already
// in flight) are rejected synchronously before any network activity.
// The bearer token is captured at dispatch; a login or logout during
// the round trip does not alter the in-flight request. Entries are kept
// after success so the user can inspect or resubmit.
func (b *Batch) Submit(ctx context.Context) (*models.AnalysisResult, error) {
	b.mu.Lock()
	if len(b.entries) == 0 {
		b.mu.Unlock()
		return nil, ErrEmptyBatch
	}
	if b.state == InFlight {
		b.mu.Unlock()
		return nil, ErrAlreadyInFlight
	}
	b.result = nil
	b.setStateLocked(InFlight)

	req := api.AnalyzeRequest{SessionName: b.sessionName}
	for _, e := range b.entries {
		req.Images = append(req.Images, api.ImagePart{
			Filename: e.Filename,
			Title:    e.Title,
			Data:     e.data,
		})
	}
	token := b.tokens.Token()
	b.mu.Unlock()

	result, err := b.client.AnalyzeImage(ctx, token, req)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.setStateLocked(Failed)
		return nil, err
	}
	b.result = result
	b.setStateLocked(Succeeded)
	return result, nil
}

// Subscribe registers for submission-state notifications. The returned
// cancel releases the subscription.
func (b *Batch) Subscribe() (<-chan SubmissionState, func()) {
	ch := make(chan SubmissionState, 8)
	b.subMu.Lock()
	b.subs[ch] = struct{}{}
	b.subMu.Unlock()
	return ch, func() {
		b.subMu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.subMu.Unlock()
	}
}

func (b *Batch) setStateLocked(state SubmissionState) {
	b.state = state
	b.subMu.Lock()
	for ch := range b.subs {
		select {
		case ch <- state:
		default:
		}
	}
	b.subMu.Unlock()
}

func sniffMediaType(data []byte) string {
	mediaType := http.DetectContentType(data)
	// DetectContentType returns parameters for some types.
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return mediaType
}

func decodeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Failed to get image dimensions", "error", err)
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
