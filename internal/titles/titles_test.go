package titles_test

import (
	"testing"
	"time"

	"github.com/lolovespi/reolink-livestream-youtube/internal/titles"
)

func TestMakeMorningAndAfternoon(t *testing.T) {
	morning := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	if got := titles.Make("weather stream", morning); got != "weather stream – 03/02/26 (Morning)" {
		t.Fatalf("morning title: %q", got)
	}

	afternoon := time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC)
	if got := titles.Make("weather stream", afternoon); got != "weather stream – 12/31/26 (Afternoon)" {
		t.Fatalf("afternoon title: %q", got)
	}
}
