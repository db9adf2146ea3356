// Package titles generates human-readable broadcast titles.
package titles

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Make builds a broadcast title for the given local time, e.g.
// "weather stream – 03/02/26 (Morning)". The caller supplies now already
// converted to the configured timezone.
func Make(prefix string, now time.Time) string {
	dayPart := "afternoon"
	if now.Hour() < 12 {
		dayPart = "morning"
	}
	return fmt.Sprintf("%s – %s (%s)", prefix, now.Format("01/02/06"), titleCaser.String(dayPart))
}
