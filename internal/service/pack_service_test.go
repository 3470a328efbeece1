package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/pkg/devicecache"
)

func TestResolveSelection(t *testing.T) {
	students := []models.Student{{ID: "s1", Name: "Ada", PackNumber: 1}, {ID: "s2", Name: "Blaise", PackNumber: 2}}
	profile := &models.Profile{ID: "u1", Role: models.RoleStudent, PackNumber: intPtr(2)}

	sel := ResolveSelection(students, intPtr(1), profile)
	require.NotNil(t, sel.Student)
	assert.Equal(t, "s1", sel.Student.ID)
	assert.Equal(t, SourceRequest, sel.Source)

	sel = ResolveSelection(students, intPtr(9), profile)
	assert.Nil(t, sel.Student, "an unmatched request must not fall back to the profile")
	assert.Nil(t, sel.Pack())
	assert.Equal(t, SourceRequest, sel.Source)

	sel = ResolveSelection(students, nil, profile)
	require.NotNil(t, sel.Student)
	assert.Equal(t, 2, *sel.Pack())
	assert.Equal(t, SourceProfile, sel.Source)

	sel = ResolveSelection(students, nil, &models.Profile{ID: "u2", Role: models.RoleVisitor})
	assert.Nil(t, sel.Student)
	assert.Equal(t, SourceNone, sel.Source)

	assert.Equal(t, SourceNone, ResolveSelection(students, nil, nil).Source)
}

func TestPackOverviewOrdersByRank(t *testing.T) {
	ctx := context.Background()
	idx := testCatalog(t)
	cache := devicecache.NewMemory()
	require.NoError(t, cache.SetStatus(ctx, "d1", "v1", models.NoteStatusDone))
	svc := NewPackService(idx, nil, NewStatusService(newFakeNoteRepo(), cache, idx, nil, nil), nil)

	overview := svc.Overview(ctx, studentIdentity("u1", intPtr(1)), "d1", nil)
	require.Len(t, overview.Videos, 2)
	assert.Equal(t, "v2", overview.Videos[0].VideoID)
	assert.Equal(t, "v1", overview.Videos[1].VideoID)
	assert.Equal(t, models.NoteStatusDone, overview.Videos[1].Status)
	assert.Equal(t, models.ProgressStats{Todo: 1, Done: 1, Total: 2}, overview.Stats)

	none := svc.Overview(ctx, studentIdentity("u1", intPtr(1)), "d1", intPtr(3))
	assert.Nil(t, none.Selection.Student)
	assert.Empty(t, none.Videos)
	assert.Equal(t, []int{1, 2, 3}, svc.Packs())
}
