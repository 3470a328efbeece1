package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
)

var errStoreDown = errors.New("connection refused")

type fakeNoteRepo struct {
	mu      sync.Mutex
	notes   map[string]models.Note
	err     error
	calls   int
	creates int
	updates int
	seq     int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]models.Note)}
}

func (f *fakeNoteRepo) put(n models.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == "" {
		f.seq++
		n.ID = fmt.Sprintf("n%d", f.seq)
	}
	f.notes[noteKey(n.AuthorID, n.VideoID)] = n
}

func (f *fakeNoteRepo) FindByAuthorAndVideo(ctx context.Context, authorID, videoID string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	n, ok := f.notes[noteKey(authorID, videoID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &n, nil
}

func (f *fakeNoteRepo) Create(ctx context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.creates++
	f.seq++
	note.ID = fmt.Sprintf("n%d", f.seq)
	f.notes[noteKey(note.AuthorID, note.VideoID)] = *note
	return nil
}

func (f *fakeNoteRepo) Update(ctx context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.updates++
	f.notes[noteKey(note.AuthorID, note.VideoID)] = *note
	return nil
}

func (f *fakeNoteRepo) ListClass(ctx context.Context, limit int) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Note, 0, len(f.notes))
	for _, n := range f.notes {
		if n.Visibility == models.VisibilityClass {
			out = append(out, n)
		}
	}
	// newest first, like the store
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].UpdatedAt.After(out[j-1].UpdatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNoteRepo) ListStatuses(ctx context.Context, authorID string, videoIDs []string) ([]models.NoteStatusRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = true
	}
	var rows []models.NoteStatusRow
	for _, n := range f.notes {
		if n.AuthorID != authorID || (len(wanted) > 0 && !wanted[n.VideoID]) {
			continue
		}
		rows = append(rows, models.NoteStatusRow{VideoID: n.VideoID, Status: n.Status})
	}
	return rows, nil
}

func (f *fakeNoteRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

func (f *fakeNoteRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeNoteRepo) get(authorID, videoID string) (models.Note, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteKey(authorID, videoID)]
	return n, ok
}

type brokenDeviceCache struct{}

func (brokenDeviceCache) GetStatus(context.Context, string, string) (models.NoteStatus, bool, error) {
	return "", false, errStoreDown
}
func (brokenDeviceCache) SetStatus(context.Context, string, string, models.NoteStatus) error {
	return errStoreDown
}
func (brokenDeviceCache) ListStatuses(context.Context, string) (map[string]models.NoteStatus, error) {
	return nil, errStoreDown
}
func (brokenDeviceCache) GetNote(context.Context, string, string) (*models.LocalNote, error) {
	return nil, errStoreDown
}
func (brokenDeviceCache) SetNote(context.Context, string, string, string) error {
	return errStoreDown
}
func (brokenDeviceCache) ListNotes(context.Context, string) (map[string]models.LocalNote, error) {
	return nil, errStoreDown
}

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	videos := []models.Video{
		{VideoID: "v1", PackNumber: 1, RankInPack: 2, Title: "Intro to Maps", PublishedAt: "2024-01-10T00:00:00Z", DurationS: 300},
		{VideoID: "v2", PackNumber: 1, RankInPack: 1, Title: "Borders", PublishedAt: "2024-02-10T00:00:00Z", DurationS: 900},
		{VideoID: "v3", PackNumber: 2, RankInPack: 1, Title: "Trade Routes", PublishedAt: "2024-03-10T00:00:00Z", DurationS: 500},
		{VideoID: "v5", PackNumber: 2, RankInPack: 2, Title: "Élevage", PublishedAt: "2024-04-10T00:00:00Z", DurationS: 125},
		{VideoID: "v9", PackNumber: 3, RankInPack: 1, Title: "Rivers", PublishedAt: "2024-05-10T00:00:00Z", DurationS: 60},
	}
	students := []models.Student{
		{ID: "s1", Name: "Ada", PackNumber: 1},
		{ID: "s2", Name: "Blaise", PackNumber: 2},
	}
	store, err := catalog.New(videos, students)
	require.NoError(t, err)
	return store
}

func intPtr(v int) *int { return &v }

func studentIdentity(id string, pack *int) *models.Identity {
	return &models.Identity{UserID: id, Profile: &models.Profile{ID: id, Role: models.RoleStudent, PackNumber: pack}}
}

func visitorIdentity(id string) *models.Identity {
	return &models.Identity{UserID: id, Profile: &models.Profile{ID: id, Role: models.RoleVisitor}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func (f *fakeNoteRepo) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeNoteRepo) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}
