package models

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Video is an immutable catalog entry.
type Video struct {
	VideoID     string `json:"video_id"`
	PackNumber  int    `json:"pack_number"`
	RankInPack  int    `json:"rank_in_pack"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	DurationISO string `json:"duration_iso,omitempty"`
	DurationS   int    `json:"duration_s"`
}

// Student is a learner assigned to a single pack.
type Student struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PackNumber int    `json:"pack_number"`
}

// SortKey names a catalog ordering.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByDuration SortKey = "duration"
	SortByTitle    SortKey = "title"
	SortByRank     SortKey = "rank"
)

// SortOrder is the direction applied to a SortKey.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// VideoQuery describes a catalog view: filters, ordering and the requested page.
type VideoQuery struct {
	Search      string
	Pack        *int
	MinDuration *int
	MaxDuration *int
	From        string
	To          string
	SortKey     SortKey
	SortOrder   SortOrder
	Page        int
	PerPage     int
}

// FoldSearch is the case-folded form a title search matches on; blank queries fold to "".
func FoldSearch(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	return cases.Fold().String(query)
}

// FilterKey fingerprints the filtering fields of the query. Sorting and paging are excluded
// so that only a change of the filtered set invalidates a page number.
func (q VideoQuery) FilterKey() string {
	raw := fmt.Sprintf("s=%s|p=%s|min=%s|max=%s|from=%s|to=%s",
		FoldSearch(q.Search),
		optionalInt(q.Pack),
		optionalInt(q.MinDuration),
		optionalInt(q.MaxDuration),
		q.From,
		q.To,
	)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// VideoView pairs a catalog entry with the viewer's effective status.
type VideoView struct {
	Video
	Status NoteStatus `json:"status"`
}
