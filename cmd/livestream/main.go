package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/youtube"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps error classes onto distinct process statuses so a service
// manager can tell configuration problems from runtime failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrMissing):
		return 2
	case errors.Is(err, youtube.ErrCredentials):
		return 3
	default:
		return 1
	}
}
