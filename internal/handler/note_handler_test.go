package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pack-progress-api/internal/dto"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/internal/service"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
)

type fakeNoteService struct {
	lastReq    service.SaveNoteRequest
	lastDevice string
	lastFilter service.ClassNoteFilter
	lastIDs    []string
	note       *models.Note
	receipt    *service.DraftReceipt
	classNotes []service.ClassNote
	statuses   map[string]models.NoteStatus
	err        error
}

func (f *fakeNoteService) Upsert(_ context.Context, _ *models.Identity, req service.SaveNoteRequest) (*models.Note, error) {
	f.lastReq = req
	return f.note, f.err
}

func (f *fakeNoteService) SaveDraft(_ context.Context, _ *models.Identity, deviceID string, req service.SaveNoteRequest) (*service.DraftReceipt, error) {
	f.lastReq = req
	f.lastDevice = deviceID
	return f.receipt, f.err
}

func (f *fakeNoteService) ListClassNotes(_ context.Context, filter service.ClassNoteFilter) ([]service.ClassNote, error) {
	f.lastFilter = filter
	return f.classNotes, f.err
}

func (f *fakeNoteService) ListMyStatuses(_ context.Context, _ *models.Identity, ids []string) (map[string]models.NoteStatus, error) {
	f.lastIDs = ids
	return f.statuses, f.err
}

func TestNoteHandlerUpsertUsesPathVideo(t *testing.T) {
	svc := &fakeNoteService{note: &models.Note{ID: "n1", VideoID: "v1", Status: models.NoteStatusDone}}
	h := NewNoteHandler(svc)

	c, rec := newTestContext(t, testRequest{
		method:   http.MethodPut,
		target:   "/videos/v1/note",
		body:     map[string]string{"video_id": "other", "content_md": "# hi", "status": "done"},
		identity: student("u1", 1),
		params:   gin.Params{{Key: "id", Value: "v1"}},
	})
	h.Upsert(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", svc.lastReq.VideoID)
	assert.Equal(t, "# hi", svc.lastReq.ContentMD)
	assert.Equal(t, models.NoteStatusDone, svc.lastReq.Status)
}

func TestNoteHandlerUpsertMapsSuperseded(t *testing.T) {
	h := NewNoteHandler(&fakeNoteService{err: appErrors.ErrSuperseded})

	c, rec := newTestContext(t, testRequest{
		method: http.MethodPut,
		target: "/videos/v1/note",
		body:   map[string]string{"status": "todo"},
		params: gin.Params{{Key: "id", Value: "v1"}},
	})
	h.Upsert(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestNoteHandlerUpsertRejectsMalformedBody(t *testing.T) {
	h := NewNoteHandler(&fakeNoteService{})

	c, rec := newTestContext(t, testRequest{
		method: http.MethodPut,
		target: "/videos/v1/note",
		body:   []int{1, 2},
		params: gin.Params{{Key: "id", Value: "v1"}},
	})
	h.Upsert(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoteHandlerSaveDraftAccepted(t *testing.T) {
	svc := &fakeNoteService{receipt: &service.DraftReceipt{VideoID: "v1", Revision: 3, FlushAfter: "2s"}}
	h := NewNoteHandler(svc)

	c, rec := newTestContext(t, testRequest{
		method:   http.MethodPost,
		target:   "/videos/v1/note/draft",
		body:     map[string]string{"content_md": "draft", "status": "in_progress"},
		identity: student("u1", 1),
		deviceID: "dev-9",
		params:   gin.Params{{Key: "id", Value: "v1"}},
	})
	h.SaveDraft(c)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "dev-9", svc.lastDevice)

	var receipt service.DraftReceipt
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &receipt))
	assert.Equal(t, uint64(3), receipt.Revision)
}

func TestNoteHandlerClassNotesFilter(t *testing.T) {
	svc := &fakeNoteService{classNotes: []service.ClassNote{{Note: models.Note{ID: "n1"}}}}
	h := NewNoteHandler(svc)

	c, rec := newTestContext(t, testRequest{method: http.MethodGet, target: "/notes/class?search=maps&pack=2&sort=Title&limit=5"})
	h.ClassNotes(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "maps", svc.lastFilter.Search)
	assert.Equal(t, 2, *svc.lastFilter.Pack)
	assert.Equal(t, 5, svc.lastFilter.Limit)
	assert.Equal(t, models.SortByTitle, svc.lastFilter.Sort)
	assert.Equal(t, float64(1), decodeEnvelope(t, rec).Meta["count"])
}

func TestNoteHandlerMyStatusesSplitsIDs(t *testing.T) {
	svc := &fakeNoteService{statuses: map[string]models.NoteStatus{"v1": models.NoteStatusDone}}
	h := NewNoteHandler(svc)

	c, rec := newTestContext(t, testRequest{
		method:   http.MethodGet,
		target:   "/notes/statuses?videoIds=v1,%20v2&videoIds=v3",
		identity: student("u1", 1),
	})
	h.MyStatuses(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"v1", "v2", "v3"}, svc.lastIDs)

	var body dto.StatusMap
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, models.NoteStatusDone, body.Statuses["v1"])
}

func TestNoteHandlerMyStatusesUnauthenticated(t *testing.T) {
	h := NewNoteHandler(&fakeNoteService{err: appErrors.ErrUnauthenticated})

	c, rec := newTestContext(t, testRequest{method: http.MethodGet, target: "/notes/statuses"})
	h.MyStatuses(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
