package catalog

import (
	"fmt"
	"time"
)

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDate renders an ISO-8601 date as dd/mm/yyyy, returning the input when it cannot be parsed.
func FormatDate(iso string) string {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return iso
}
