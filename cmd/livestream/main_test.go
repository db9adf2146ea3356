package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lolovespi/reolink-livestream-youtube/internal/config"
	"github.com/lolovespi/reolink-livestream-youtube/internal/youtube"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing config", fmt.Errorf("load: %w", config.ErrMissing), 2},
		{"credentials", fmt.Errorf("token: %w", youtube.ErrCredentials), 3},
		{"generic", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
