package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

func intPtr(v int) *int { return &v }

func scenarioCatalog() []models.Video {
	return []models.Video{
		{VideoID: "v1", PackNumber: 1, DurationS: 300, Title: "Intro to Maps", PublishedAt: "2023-01-10"},
		{VideoID: "v2", PackNumber: 1, DurationS: 900, Title: "Borders", PublishedAt: "2022-05-02"},
		{VideoID: "v3", PackNumber: 2, DurationS: 500, Title: "Trade Routes", PublishedAt: "2024-03-15"},
	}
}

func ids(videos []models.Video) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.VideoID)
	}
	return out
}

func numbered(n int) []models.Video {
	out := make([]models.Video, n)
	for i := range out {
		out[i] = models.Video{
			VideoID:     fmt.Sprintf("v%03d", i+1),
			PackNumber:  i%3 + 1,
			Title:       fmt.Sprintf("Video %03d", i+1),
			DurationS:   (i * 37) % 1200,
			PublishedAt: fmt.Sprintf("2023-%02d-%02d", i%12+1, i%28+1),
		}
	}
	return out
}

func TestFilterByPackThenSortByDuration(t *testing.T) {
	packOne := FilterByPack(scenarioCatalog(), intPtr(1))
	assert.Equal(t, []string{"v1", "v2"}, ids(packOne))

	sorted := SortBy(packOne, models.SortByDuration, models.SortAsc)
	assert.Equal(t, []string{"v1", "v2"}, ids(sorted))
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	got := Search(scenarioCatalog(), "ROUTES")
	assert.Equal(t, []string{"v3"}, ids(got))

	assert.Empty(t, Search(scenarioCatalog(), "volcano"))
}

func TestSearchMatchesAccentedTitles(t *testing.T) {
	videos := []models.Video{{VideoID: "a", Title: "Révolution ÉCONOMIQUE"}}
	assert.Len(t, Search(videos, "économique"), 1)
}

func TestUnconstrainedFiltersAreIdentity(t *testing.T) {
	catalog := numbered(20)

	assert.Equal(t, catalog, Search(catalog, ""))
	assert.Equal(t, catalog, Search(catalog, "   \t"))
	assert.Equal(t, catalog, FilterByPack(catalog, nil))
	assert.Equal(t, catalog, FilterByDuration(catalog, nil, nil))
	assert.Equal(t, catalog, FilterByDate(catalog, "", ""))
}

func TestFilterByDurationBounds(t *testing.T) {
	catalog := scenarioCatalog()

	assert.Equal(t, []string{"v2", "v3"}, ids(FilterByDuration(catalog, intPtr(500), nil)))
	assert.Equal(t, []string{"v1", "v3"}, ids(FilterByDuration(catalog, nil, intPtr(500))))
	assert.Equal(t, []string{"v3"}, ids(FilterByDuration(catalog, intPtr(500), intPtr(500))))
}

func TestFilterByDateIsLexicographic(t *testing.T) {
	catalog := scenarioCatalog()

	assert.Equal(t, []string{"v1", "v3"}, ids(FilterByDate(catalog, "2023-01-01", "")))
	assert.Equal(t, []string{"v1", "v2"}, ids(FilterByDate(catalog, "", "2023-12-31")))
}

func TestSortByDoesNotMutateInput(t *testing.T) {
	catalog := scenarioCatalog()
	before := ids(catalog)

	sorted := SortBy(catalog, models.SortByTitle, models.SortAsc)
	assert.Equal(t, []string{"v2", "v1", "v3"}, ids(sorted))
	assert.Equal(t, before, ids(catalog))
}

func TestSortByDateDescending(t *testing.T) {
	sorted := SortBy(scenarioCatalog(), models.SortByDate, models.SortDesc)
	assert.Equal(t, []string{"v3", "v1", "v2"}, ids(sorted))
}

func TestSortByTitleIsDeterministic(t *testing.T) {
	videos := []models.Video{
		{VideoID: "a", Title: "Zèbre"},
		{VideoID: "b", Title: "zebre"},
		{VideoID: "c", Title: "Alpha"},
		{VideoID: "d", Title: "Zèbre"},
	}
	first := SortBy(videos, models.SortByTitle, models.SortDesc)
	second := SortBy(videos, models.SortByTitle, models.SortDesc)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, "c", first[len(first)-1].VideoID)
}

func TestSortIsStableForTies(t *testing.T) {
	videos := []models.Video{
		{VideoID: "x1", DurationS: 60},
		{VideoID: "x2", DurationS: 30},
		{VideoID: "x3", DurationS: 60},
	}
	assert.Equal(t, []string{"x2", "x1", "x3"}, ids(SortBy(videos, models.SortByDuration, models.SortAsc)))
	assert.Equal(t, []string{"x1", "x3", "x2"}, ids(SortBy(videos, models.SortByDuration, models.SortDesc)))
}

func TestSortByRank(t *testing.T) {
	videos := []models.Video{
		{VideoID: "b", PackNumber: 2, RankInPack: 1},
		{VideoID: "a2", PackNumber: 1, RankInPack: 2},
		{VideoID: "a1", PackNumber: 1, RankInPack: 1},
	}
	assert.Equal(t, []string{"a1", "a2", "b"}, ids(SortBy(videos, models.SortByRank, models.SortAsc)))
}

func TestUnknownSortKeyKeepsOrder(t *testing.T) {
	catalog := scenarioCatalog()
	assert.Equal(t, ids(catalog), ids(SortBy(catalog, "popularity", models.SortAsc)))
}

func TestPaginateLastPage(t *testing.T) {
	catalog := numbered(105)

	assert.Equal(t, 3, TotalPages(105, 50))
	page := Paginate(catalog, 3, 50)
	require.Len(t, page, 5)
	assert.Equal(t, "v101", page[0].VideoID)
}

func TestPaginateOutOfRange(t *testing.T) {
	catalog := numbered(10)

	assert.Empty(t, Paginate(catalog, 3, 5))
	assert.Empty(t, Paginate(catalog, 0, 5))
	assert.Empty(t, Paginate(catalog, -1, 5))
	assert.Empty(t, Paginate(catalog, 1, 0))
	assert.NotNil(t, Paginate(catalog, 9, 5))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 50))
	assert.Equal(t, 1, TotalPages(50, 50))
	assert.Equal(t, 2, TotalPages(51, 50))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestPagesReconstructFilteredSequence(t *testing.T) {
	engine := NewEngine("fr")
	catalog := numbered(137)
	q := models.VideoQuery{Search: "video", MinDuration: intPtr(100), SortKey: models.SortByDuration, SortOrder: models.SortDesc, PerPage: 20}

	filtered := engine.Filter(catalog, q)
	total := TotalPages(len(filtered), q.PerPage)

	var rebuilt []models.Video
	for p := 1; p <= total; p++ {
		rebuilt = append(rebuilt, Paginate(filtered, p, q.PerPage)...)
	}
	assert.Equal(t, ids(filtered), ids(rebuilt))
}

func TestEngineApplyRunsPipelineInOrder(t *testing.T) {
	engine := NewEngine("")
	q := models.VideoQuery{
		Search:    "o",
		Pack:      intPtr(1),
		SortKey:   models.SortByDuration,
		SortOrder: models.SortDesc,
		Page:      1,
		PerPage:   1,
	}

	res := engine.Apply(scenarioCatalog(), q)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, []string{"v2"}, ids(res.Items))
}

func TestNewEngineFallsBackOnBadTag(t *testing.T) {
	assert.Equal(t, DefaultLanguage, NewEngine("not a tag!").lang)
}

func TestSearchMatchesFullCaseFolding(t *testing.T) {
	videos := []models.Video{{VideoID: "a", Title: "Die Straße der Händler"}, {VideoID: "b", Title: "Harbours"}}

	got := Search(videos, "STRASSE")
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].VideoID)
}
