package youtube_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"

	"github.com/lolovespi/reolink-livestream-youtube/internal/youtube"
)

func TestSaveTokenOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := youtube.SaveToken(path, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}
}

func TestReadStreamKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_key")
	if err := os.WriteFile(path, []byte("  abcd-1234-efgh \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := youtube.ReadStreamKey(path)
	if err != nil {
		t.Fatalf("ReadStreamKey: %v", err)
	}
	if key != "abcd-1234-efgh" {
		t.Errorf("key = %q, want trimmed value", key)
	}
}

func TestReadStreamKeyEmptyIsCredentialError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_key")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := youtube.ReadStreamKey(path); !errors.Is(err, youtube.ErrCredentials) {
		t.Errorf("err = %v, want ErrCredentials", err)
	}
}

func TestReadStreamKeyMissingFile(t *testing.T) {
	if _, err := youtube.ReadStreamKey(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, youtube.ErrCredentials) {
		t.Errorf("err = %v, want ErrCredentials", err)
	}
}
