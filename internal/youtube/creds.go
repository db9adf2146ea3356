package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"
)

// ErrCredentials marks unreadable or empty credential material. The CLI
// maps it to a distinct process exit status.
var ErrCredentials = errors.New("credential material unavailable")

// headlessHint is appended when no usable OAuth token exists: this
// deployment runs on a headless host, so the token must be minted elsewhere.
const headlessHint = "no valid OAuth token; run 'livestream auth login' on a machine with a browser and copy the token file here (chmod 600)"

func oauthConfig(clientSecretsPath string) (*oauth2.Config, error) {
	secrets, err := os.ReadFile(clientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secrets: %v", ErrCredentials, err)
	}
	cfg, err := google.ConfigFromJSON(secrets, yt.YoutubeScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secrets: %v", ErrCredentials, err)
	}
	return cfg, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCredentials, headlessHint, err)
	}
	token := new(oauth2.Token)
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("%w: parse token file: %v", ErrCredentials, err)
	}
	if token.RefreshToken == "" && !token.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrCredentials, headlessHint)
	}
	return token, nil
}

// SaveToken writes an OAuth token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// tokenSource returns a source that refreshes as needed and persists
// refreshed tokens back to the token file so restarts pick up the newest
// access token.
func tokenSource(ctx context.Context, cfg *oauth2.Config, tokenPath string) (oauth2.TokenSource, error) {
	token, err := loadToken(tokenPath)
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		path:    tokenPath,
		wrapped: cfg.TokenSource(ctx, token),
		last:    token.AccessToken,
	}, nil
}

type savingTokenSource struct {
	mu      sync.Mutex
	path    string
	wrapped oauth2.TokenSource
	last    string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.wrapped.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		// Best-effort: streaming continues on the in-memory token even if
		// the file write fails.
		_ = SaveToken(s.path, token)
	}
	return token, nil
}

// ReadStreamKey loads the stream key file. The key is stored outside the
// platform API (it is never exposed by list calls on some accounts), so an
// empty or unreadable file is a credential error.
func ReadStreamKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read stream key file: %v", ErrCredentials, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%w: stream key file %s is empty", ErrCredentials, path)
	}
	return key, nil
}
