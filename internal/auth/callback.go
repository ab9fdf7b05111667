// Package auth runs the local half of the identity provider's redirect
// flow: a loopback HTTP server on the fixed callback path that waits
// for the provider to hand back the bearer token as a query parameter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	CallbackPort = 48612
	CallbackPath = "/auth/callback"

	loginTimeout = 5 * time.Minute
)

// ErrNoToken means the provider redirected back without a token
// parameter, which counts as a failed login attempt.
var ErrNoToken = errors.New("no token in callback")

type callbackResult struct {
	token string
	err   error
}

// WaitForToken opens the provider login page in the browser and blocks
// until the redirect arrives, the context is canceled, or the flow
// times out.
func WaitForToken(ctx context.Context, serverURL string) (string, error) {
	state := uuid.NewString()
	resultCh := make(chan callbackResult, 1)

	router := mux.NewRouter()
	router.HandleFunc(CallbackPath, callbackHandler(state, resultCh)).Methods(http.MethodGet)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", CallbackPort))
	if err != nil {
		return "", fmt.Errorf("starting callback server: %w", err)
	}

	server := &http.Server{Handler: router}
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Callback server shutdown failed", "err", err)
		}
	}()

	loginURL := LoginURL(serverURL, state)
	if err := openBrowser(loginURL); err != nil {
		fmt.Printf("Could not open browser automatically.\nPlease visit: %s\n", loginURL)
	}

	select {
	case result := <-resultCh:
		return result.token, result.err
	case err := <-serverErr:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(loginTimeout):
		return "", fmt.Errorf("login timed out after %s", loginTimeout)
	}
}

func callbackHandler(state string, resultCh chan<- callbackResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		returnedState := r.URL.Query().Get("state")

		w.Header().Set("Content-Type", "text/html")
		switch {
		case returnedState != state:
			fmt.Fprint(w, "<html><body><h2>Login failed: state mismatch.</h2><p>Please try again.</p></body></html>")
			resultCh <- callbackResult{err: errors.New("state mismatch")}
		case token == "":
			fmt.Fprint(w, "<html><body><h2>Login failed.</h2><p>You can close this tab.</p></body></html>")
			resultCh <- callbackResult{err: ErrNoToken}
		default:
			fmt.Fprint(w, "<html><body><h2>Login successful!</h2><p>You can close this tab and return to the terminal.</p></body></html>")
			resultCh <- callbackResult{token: token}
		}
	}
}

// LoginURL builds the provider login URL with our loopback redirect.
func LoginURL(serverURL, state string) string {
	redirect := fmt.Sprintf("http://127.0.0.1:%d%s", CallbackPort, CallbackPath)
	return fmt.Sprintf("%s/auth/login/google?redirect_uri=%s&state=%s",
		serverURL, url.QueryEscape(redirect), url.QueryEscape(state))
}

func openBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
