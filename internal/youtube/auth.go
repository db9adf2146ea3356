package youtube

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
)

// Authorize runs the interactive OAuth consent flow and writes the
// resulting token to tokenPath. It prints the consent URL on out and
// reads the authorization code from in, so it works over SSH as long
// as the operator has a browser somewhere.
func Authorize(ctx context.Context, clientSecretsPath, tokenPath string, in io.Reader, out io.Writer) error {
	cfg, err := oauthConfig(clientSecretsPath)
	if err != nil {
		return err
	}

	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open the following URL in a browser and approve access:\n\n  %s\n\nPaste the authorization code here: ", url)

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("%w: empty authorization code", ErrCredentials)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: exchanging authorization code: %v", ErrCredentials, err)
	}
	if err := SaveToken(tokenPath, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", tokenPath)
	return nil
}
