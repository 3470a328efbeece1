package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/pkg/devicecache"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

func newNoteService(t *testing.T, repo *fakeNoteRepo, cache deviceCache) *NoteService {
	t.Helper()
	svc := NewNoteService(repo, testCatalog(t), cache, nil, NewMetricsService(), nil, NoteConfig{
		AutoSaveDelay: 30 * time.Millisecond,
		WriteWorkers:  2,
	})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func TestUpsertRequiresIdentityWithoutTouchingStore(t *testing.T) {
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())

	_, err := svc.Upsert(context.Background(), nil, SaveNoteRequest{VideoID: "v1", Status: models.NoteStatusDone})
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)

	_, err = svc.Upsert(context.Background(), &models.Identity{}, SaveNoteRequest{VideoID: "v1", Status: models.NoteStatusDone})
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
	assert.Zero(t, repo.callCount())
}

func TestUpsertKeepsOneNotePerAuthorAndVideo(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	user := studentIdentity("u1", nil)

	first, err := svc.Upsert(ctx, user, SaveNoteRequest{VideoID: "v1", ContentMD: "a", Status: models.NoteStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityClass, first.Visibility)

	second, err := svc.Upsert(ctx, user, SaveNoteRequest{VideoID: "v1", ContentMD: "b", Status: models.NoteStatusDone, Visibility: models.VisibilityPrivate})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1, repo.createCount())
	assert.Equal(t, 1, repo.updateCount())
	assert.Equal(t, "b", second.ContentMD)
	assert.Equal(t, models.VisibilityPrivate, second.Visibility)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	user := studentIdentity("u1", nil)
	req := SaveNoteRequest{VideoID: "v2", ContentMD: "same", Status: models.NoteStatusDone}

	a, err := svc.Upsert(ctx, user, req)
	require.NoError(t, err)
	b, err := svc.Upsert(ctx, user, req)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.ContentMD, b.ContentMD)
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, 1, repo.count())
}

func TestUpsertValidatesInput(t *testing.T) {
	svc := newNoteService(t, newFakeNoteRepo(), devicecache.NewMemory())
	user := studentIdentity("u1", nil)

	_, err := svc.Upsert(context.Background(), user, SaveNoteRequest{VideoID: "v1", Status: "finished"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Upsert(context.Background(), user, SaveNoteRequest{VideoID: "missing", Status: models.NoteStatusDone})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUpsertReportsStoreUnavailable(t *testing.T) {
	repo := newFakeNoteRepo()
	repo.err = errStoreDown
	svc := newNoteService(t, repo, devicecache.NewMemory())

	_, err := svc.Upsert(context.Background(), studentIdentity("u1", nil), SaveNoteRequest{VideoID: "v1", Status: models.NoteStatusDone})
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	assert.True(t, errors.Is(err, errStoreDown))
}

func TestConcurrentUpsertsNeverDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	user := studentIdentity("u1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Upsert(ctx, user, SaveNoteRequest{VideoID: "v3", Status: models.NoteStatusInProgress})
			if err != nil {
				assert.ErrorIs(t, err, appErrors.ErrSuperseded)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, repo.count())
	assert.Equal(t, 1, repo.createCount())
}

func TestOvertakenWriteIsSuperseded(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	key := noteKey("u1", "v1")

	stale := svc.nextRevision(key)
	fresh := svc.nextRevision(key)

	_, err := svc.write(ctx, "u1", SaveNoteRequest{VideoID: "v1", ContentMD: "new", Status: models.NoteStatusDone, Visibility: models.VisibilityClass}, key, fresh)
	require.NoError(t, err)
	_, err = svc.write(ctx, "u1", SaveNoteRequest{VideoID: "v1", ContentMD: "old", Status: models.NoteStatusTodo, Visibility: models.VisibilityClass}, key, stale)
	assert.ErrorIs(t, err, appErrors.ErrSuperseded)

	note, ok := repo.get("u1", "v1")
	require.True(t, ok)
	assert.Equal(t, "new", note.ContentMD)
}

func trackedRevisions(svc *NoteService) int {
	svc.revMu.Lock()
	defer svc.revMu.Unlock()
	return len(svc.revisions)
}

func TestRevisionsAreForgottenAfterWrites(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	user := studentIdentity("u1", nil)

	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := svc.Upsert(ctx, user, SaveNoteRequest{VideoID: id, ContentMD: "x", Status: models.NoteStatusDone})
		require.NoError(t, err)
	}
	assert.Zero(t, trackedRevisions(svc))

	_, err := svc.SaveDraft(ctx, user, "", SaveNoteRequest{VideoID: "v5", ContentMD: "typing", Status: models.NoteStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, 1, trackedRevisions(svc))

	require.Eventually(t, func() bool {
		_, ok := repo.get("u1", "v5")
		return ok && trackedRevisions(svc) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRetiredKeyStillRejectsOldRevision(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	key := noteKey("u1", "v1")
	req := SaveNoteRequest{VideoID: "v1", Status: models.NoteStatusDone, Visibility: models.VisibilityClass}

	stale := svc.nextRevision(key)
	_, err := svc.write(ctx, "u1", req, key, svc.nextRevision(key))
	require.NoError(t, err)
	require.Zero(t, trackedRevisions(svc))

	fresh := svc.nextRevision(key)
	assert.Greater(t, fresh, stale)
	_, err = svc.write(ctx, "u1", req, key, stale)
	assert.ErrorIs(t, err, appErrors.ErrSuperseded)
}

func TestSaveDraftRefusedForVisitors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	cache := devicecache.NewMemory()
	svc := newNoteService(t, repo, cache)

	_, err := svc.SaveDraft(ctx, visitorIdentity("u2"), "d1", SaveNoteRequest{VideoID: "v1", ContentMD: "x", Status: models.NoteStatusTodo})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.SaveDraft(ctx, nil, "d1", SaveNoteRequest{VideoID: "v1", ContentMD: "x", Status: models.NoteStatusTodo})
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)

	assert.False(t, svc.PendingDraft(visitorIdentity("u2"), "v1"))
	draft, err := cache.GetNote(ctx, "d1", "v1")
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.Zero(t, repo.callCount())
}

func TestSaveDraftPersistsOnlyLastEdit(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	cache := devicecache.NewMemory()
	svc := newNoteService(t, repo, cache)
	user := studentIdentity("u1", nil)

	for _, content := range []string{"d", "dr", "dra", "draft"} {
		_, err := svc.SaveDraft(ctx, user, "d1", SaveNoteRequest{VideoID: "v2", ContentMD: content, Status: models.NoteStatusInProgress})
		require.NoError(t, err)
	}

	local, err := cache.GetNote(ctx, "d1", "v2")
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "draft", local.Content)

	waitFor(t, func() bool {
		n, ok := repo.get("u1", "v2")
		return ok && n.ContentMD == "draft"
	})
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, repo.createCount())
	assert.Zero(t, repo.updateCount())
}

func TestUpsertCancelsPendingDraft(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	svc := newNoteService(t, repo, devicecache.NewMemory())
	user := studentIdentity("u1", nil)

	_, err := svc.SaveDraft(ctx, user, "", SaveNoteRequest{VideoID: "v1", ContentMD: "draft", Status: models.NoteStatusInProgress})
	require.NoError(t, err)
	assert.True(t, svc.PendingDraft(user, "v1"))

	_, err = svc.Upsert(ctx, user, SaveNoteRequest{VideoID: "v1", ContentMD: "explicit", Status: models.NoteStatusDone})
	require.NoError(t, err)
	assert.False(t, svc.PendingDraft(user, "v1"))

	time.Sleep(90 * time.Millisecond)
	note, ok := repo.get("u1", "v1")
	require.True(t, ok)
	assert.Equal(t, "explicit", note.ContentMD)
	assert.Equal(t, 1, repo.createCount())
}

func TestGetOwnNote(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	repo.put(models.Note{AuthorID: "u1", VideoID: "v1", ContentMD: "mine", Status: models.NoteStatusDone})
	svc := newNoteService(t, repo, devicecache.NewMemory())

	note, err := svc.Get(ctx, studentIdentity("u1", nil), "v1")
	require.NoError(t, err)
	assert.Equal(t, "mine", note.ContentMD)

	note, err = svc.Get(ctx, studentIdentity("u1", nil), "v2")
	require.NoError(t, err)
	assert.Nil(t, note)

	_, err = svc.Get(ctx, nil, "v1")
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestListClassNotesJoinsAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	now := time.Now().UTC()
	repo.put(models.Note{AuthorID: "u1", VideoID: "v1", Status: models.NoteStatusDone, Visibility: models.VisibilityClass, UpdatedAt: now.Add(-2 * time.Hour)})
	repo.put(models.Note{AuthorID: "u2", VideoID: "v3", Status: models.NoteStatusTodo, Visibility: models.VisibilityClass, UpdatedAt: now.Add(-time.Hour)})
	repo.put(models.Note{AuthorID: "u3", VideoID: "gone", Status: models.NoteStatusTodo, Visibility: models.VisibilityClass, UpdatedAt: now})
	repo.put(models.Note{AuthorID: "u4", VideoID: "v2", Status: models.NoteStatusTodo, Visibility: models.VisibilityPrivate, UpdatedAt: now})
	svc := newNoteService(t, repo, devicecache.NewMemory())

	notes, err := svc.ListClassNotes(ctx, ClassNoteFilter{})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "v3", notes[0].VideoID)
	assert.Equal(t, "Trade Routes", notes[0].Video.Title)
	assert.Equal(t, "v1", notes[1].VideoID)

	notes, err = svc.ListClassNotes(ctx, ClassNoteFilter{Search: "MAPS"})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "v1", notes[0].VideoID)

	notes, err = svc.ListClassNotes(ctx, ClassNoteFilter{Pack: intPtr(2)})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "v3", notes[0].VideoID)

	repo.err = errStoreDown
	_, err = svc.ListClassNotes(ctx, ClassNoteFilter{})
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}

func TestListClassNotesSorts(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	now := time.Now().UTC()
	repo.put(models.Note{AuthorID: "u1", VideoID: "v1", Visibility: models.VisibilityClass, UpdatedAt: now.Add(-3 * time.Hour)})
	repo.put(models.Note{AuthorID: "u2", VideoID: "v5", Visibility: models.VisibilityClass, UpdatedAt: now.Add(-2 * time.Hour)})
	repo.put(models.Note{AuthorID: "u3", VideoID: "v2", Visibility: models.VisibilityClass, UpdatedAt: now.Add(-time.Hour)})
	repo.put(models.Note{AuthorID: "u4", VideoID: "v3", Visibility: models.VisibilityClass, UpdatedAt: now})
	svc := newNoteService(t, repo, devicecache.NewMemory())

	videoIDs := func(notes []ClassNote) []string {
		ids := make([]string, len(notes))
		for i, n := range notes {
			ids[i] = n.VideoID
		}
		return ids
	}

	notes, err := svc.ListClassNotes(ctx, ClassNoteFilter{Sort: models.SortByDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "v2", "v5", "v1"}, videoIDs(notes))

	notes, err = svc.ListClassNotes(ctx, ClassNoteFilter{Sort: models.SortByDuration})
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v3", "v1", "v5"}, videoIDs(notes))

	// French collation puts "Élevage" between "Borders" and "Intro to Maps".
	notes, err = svc.ListClassNotes(ctx, ClassNoteFilter{Sort: models.SortByTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "v5", "v1", "v3"}, videoIDs(notes))

	_, err = svc.ListClassNotes(ctx, ClassNoteFilter{Sort: "views"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestListMyStatuses(t *testing.T) {
	ctx := context.Background()
	repo := newFakeNoteRepo()
	repo.put(models.Note{AuthorID: "u1", VideoID: "v1", Status: models.NoteStatusDone})
	repo.put(models.Note{AuthorID: "u1", VideoID: "v2", Status: models.NoteStatusInProgress})
	repo.put(models.Note{AuthorID: "u2", VideoID: "v1", Status: models.NoteStatusTodo})
	svc := newNoteService(t, repo, devicecache.NewMemory())

	all, err := svc.ListMyStatuses(ctx, studentIdentity("u1", nil), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.NoteStatus{"v1": models.NoteStatusDone, "v2": models.NoteStatusInProgress}, all)

	some, err := svc.ListMyStatuses(ctx, studentIdentity("u1", nil), []string{"v2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.NoteStatus{"v2": models.NoteStatusInProgress}, some)

	_, err = svc.ListMyStatuses(ctx, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthenticated)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	assert.Empty(t, k.locks)
}
