package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// DefaultLanguage drives title collation when no language is configured.
var DefaultLanguage = language.French

// Search keeps videos whose title contains query, ignoring case. A blank query is a no-op.
func Search(videos []models.Video, query string) []models.Video {
	needle := models.FoldSearch(query)
	if needle == "" {
		return videos
	}
	fold := cases.Fold()
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if strings.Contains(fold.String(v.Title), needle) {
			out = append(out, v)
		}
	}
	return out
}

// FilterByPack keeps videos of one pack; nil pack is a no-op.
func FilterByPack(videos []models.Video, pack *int) []models.Video {
	if pack == nil {
		return videos
	}
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if v.PackNumber == *pack {
			out = append(out, v)
		}
	}
	return out
}

// FilterByDuration keeps videos whose duration lies within the inclusive bounds.
func FilterByDuration(videos []models.Video, minSec, maxSec *int) []models.Video {
	if minSec == nil && maxSec == nil {
		return videos
	}
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if minSec != nil && v.DurationS < *minSec {
			continue
		}
		if maxSec != nil && v.DurationS > *maxSec {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FilterByDate compares ISO-8601 publication dates lexicographically. Empty bounds are open.
func FilterByDate(videos []models.Video, from, to string) []models.Video {
	if from == "" && to == "" {
		return videos
	}
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if from != "" && v.PublishedAt < from {
			continue
		}
		if to != "" && v.PublishedAt > to {
			continue
		}
		out = append(out, v)
	}
	return out
}

// SortBy returns a stably sorted copy using the default collation language.
func SortBy(videos []models.Video, key models.SortKey, order models.SortOrder) []models.Video {
	return sortWith(videos, key, order, DefaultLanguage)
}

func sortWith(videos []models.Video, key models.SortKey, order models.SortOrder, lang language.Tag) []models.Video {
	out := slices.Clone(videos)
	if out == nil {
		out = []models.Video{}
	}

	var compare func(a, b models.Video) int
	switch key {
	case models.SortByDate:
		compare = func(a, b models.Video) int { return strings.Compare(a.PublishedAt, b.PublishedAt) }
	case models.SortByDuration:
		compare = func(a, b models.Video) int { return cmp.Compare(a.DurationS, b.DurationS) }
	case models.SortByTitle:
		// collators keep internal buffers and are not shared across calls
		col := collate.New(lang)
		compare = func(a, b models.Video) int { return col.CompareString(a.Title, b.Title) }
	case models.SortByRank:
		compare = func(a, b models.Video) int {
			if c := cmp.Compare(a.PackNumber, b.PackNumber); c != 0 {
				return c
			}
			return cmp.Compare(a.RankInPack, b.RankInPack)
		}
	default:
		return out
	}

	if order == models.SortAsc {
		slices.SortStableFunc(out, compare)
	} else {
		slices.SortStableFunc(out, func(a, b models.Video) int { return -compare(a, b) })
	}
	return out
}

// Paginate returns the 1-indexed page. Out-of-range pages are empty.
func Paginate(videos []models.Video, page, perPage int) []models.Video {
	if page < 1 || perPage < 1 {
		return []models.Video{}
	}
	start := (page - 1) * perPage
	if start >= len(videos) {
		return []models.Video{}
	}
	end := min(start+perPage, len(videos))
	return slices.Clone(videos[start:end])
}

// TotalPages is ceil(total/perPage), zero for an empty set.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage < 1 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Result is one page of a catalog view.
type Result struct {
	Items      []models.Video
	Total      int
	TotalPages int
	Page       int
	PerPage    int
}

// Engine composes the pipeline with a fixed collation language.
type Engine struct {
	lang language.Tag
}

// NewEngine parses a BCP 47 tag, falling back to DefaultLanguage.
func NewEngine(lang string) *Engine {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		tag = DefaultLanguage
	}
	return &Engine{lang: tag}
}

// Sort orders videos with the engine's collation.
func (e *Engine) Sort(videos []models.Video, key models.SortKey, order models.SortOrder) []models.Video {
	return sortWith(videos, key, order, e.lang)
}

// Filter runs search, pack, duration and date filters then sorts; it does not paginate.
func (e *Engine) Filter(videos []models.Video, q models.VideoQuery) []models.Video {
	result := Search(videos, q.Search)
	result = FilterByPack(result, q.Pack)
	result = FilterByDuration(result, q.MinDuration, q.MaxDuration)
	result = FilterByDate(result, q.From, q.To)
	return e.Sort(result, q.SortKey, q.SortOrder)
}

// Apply runs the full pipeline; pagination is always last.
func (e *Engine) Apply(videos []models.Video, q models.VideoQuery) Result {
	filtered := e.Filter(videos, q)
	return Result{
		Items:      Paginate(filtered, q.Page, q.PerPage),
		Total:      len(filtered),
		TotalPages: TotalPages(len(filtered), q.PerPage),
		Page:       q.Page,
		PerPage:    q.PerPage,
	}
}
