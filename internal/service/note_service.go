package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/catalog"
	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/pkg/autosave"
	appErrors "github.com/noah-isme/pack-progress-api/pkg/errors"
	"github.com/noah-isme/pack-progress-api/pkg/jobs"
)

const autoSaveJobType = "note.autosave"

type noteRepository interface {
	FindByAuthorAndVideo(ctx context.Context, authorID, videoID string) (*models.Note, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	ListClass(ctx context.Context, limit int) ([]models.Note, error)
	ListStatuses(ctx context.Context, authorID string, videoIDs []string) ([]models.NoteStatusRow, error)
}

// SaveNoteRequest is the payload of a note save. Empty visibility means class.
type SaveNoteRequest struct {
	VideoID    string                `json:"-" validate:"required"`
	ContentMD  string                `json:"content_md"`
	Status     models.NoteStatus     `json:"status" validate:"required,oneof=todo in_progress done"`
	Visibility models.NoteVisibility `json:"visibility" validate:"omitempty,oneof=class private"`
}

// DraftReceipt acknowledges a scheduled auto-save.
type DraftReceipt struct {
	VideoID    string    `json:"video_id"`
	Revision   uint64    `json:"revision"`
	FlushAfter string    `json:"flush_after"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// ClassNoteFilter narrows the class feed by the joined video. Sort is date (newest note
// first, the default), duration (longest video first) or title (collated, ascending).
type ClassNoteFilter struct {
	Search string
	Pack   *int
	Sort   models.SortKey
	Limit  int
}

// ClassNote is a class-visible note joined with its catalog video.
type ClassNote struct {
	models.Note
	Video models.Video `json:"video"`
}

// NoteConfig tunes auto-save and the write queue.
type NoteConfig struct {
	Language        string
	AutoSaveDelay   time.Duration
	ClassNotesLimit int
	WriteWorkers    int
	WriteBuffer     int
}

type draftJob struct {
	AuthorID string
	Request  SaveNoteRequest
	Revision uint64
}

// NoteService keeps one note per (author, video). Saves for the same pair are serialized
// in-process and numbered; a save overtaken by a newer one before reaching the store is
// dropped. Two processes saving the same pair can still both create.
type NoteService struct {
	repo      noteRepository
	catalog   catalogIndex
	engine    *catalog.Engine
	device    deviceCache
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    NoteConfig

	feed      *CacheService
	debouncer *autosave.Debouncer
	queue     *jobs.Queue
	locks     *keyedMutex

	revMu     sync.Mutex
	revSeq    uint64
	revisions map[string]uint64
}

// NewNoteService constructs a NoteService and its auto-save queue. Call Start before
// accepting drafts.
func NewNoteService(repo noteRepository, idx catalogIndex, device deviceCache, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, config NoteConfig) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ClassNotesLimit <= 0 {
		config.ClassNotesLimit = 200
	}
	s := &NoteService{
		repo:      repo,
		catalog:   idx,
		engine:    catalog.NewEngine(config.Language),
		device:    device,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		config:    config,
		debouncer: autosave.New(config.AutoSaveDelay),
		locks:     newKeyedMutex(),
		revisions: make(map[string]uint64),
	}
	s.queue = jobs.NewQueue("note-writes", s.handleJob, jobs.QueueConfig{
		Workers:    config.WriteWorkers,
		BufferSize: config.WriteBuffer,
		Logger:     logger,
	})
	return s
}

// UseClassFeedCache caches the class notes feed. Every successful write invalidates it.
func (s *NoteService) UseClassFeedCache(feed *CacheService) {
	s.feed = feed
}

// Start launches the write workers.
func (s *NoteService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drops pending drafts and waits for the workers.
func (s *NoteService) Stop() {
	s.debouncer.Stop()
	s.queue.Stop()
}

func noteKey(authorID, videoID string) string {
	return authorID + ":" + videoID
}

// nextRevision draws from one process-wide sequence, so a retired key never hands out a
// number an older queued save still carries.
func (s *NoteService) nextRevision(key string) uint64 {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	s.revSeq++
	s.revisions[key] = s.revSeq
	return s.revSeq
}

func (s *NoteService) currentRevision(key string) uint64 {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	return s.revisions[key]
}

// retireRevision forgets key once its latest save has run and no draft is armed.
func (s *NoteService) retireRevision(key string, revision uint64) {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	if s.revisions[key] == revision && !s.debouncer.Pending(key) {
		delete(s.revisions, key)
	}
}

func (s *NoteService) check(req *SaveNoteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	if !s.catalog.Has(req.VideoID) {
		return appErrors.Clone(appErrors.ErrNotFound, "video not found")
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityClass
	}
	return nil
}

// Upsert creates or updates the caller's note for a video. A pending auto-save for the same
// note is cancelled.
func (s *NoteService) Upsert(ctx context.Context, identity *models.Identity, req SaveNoteRequest) (*models.Note, error) {
	if !identity.Authenticated() {
		return nil, appErrors.ErrUnauthenticated
	}
	if err := s.check(&req); err != nil {
		return nil, err
	}
	key := noteKey(identity.UserID, req.VideoID)
	if s.debouncer.Cancel(key) {
		s.metrics.RecordAutoSave(AutoSaveCancelled)
	}
	return s.write(ctx, identity.UserID, req, key, s.nextRevision(key))
}

func (s *NoteService) write(ctx context.Context, authorID string, req SaveNoteRequest, key string, revision uint64) (*models.Note, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	if s.currentRevision(key) != revision {
		s.metrics.RecordNoteWrite(WriteSuperseded)
		return nil, appErrors.ErrSuperseded
	}
	defer s.retireRevision(key, revision)

	start := time.Now()
	existing, err := s.repo.FindByAuthorAndVideo(ctx, authorID, req.VideoID)
	s.metrics.ObserveStore("find", time.Since(start))
	now := time.Now().UTC()

	switch {
	case err == nil:
		existing.ContentMD = req.ContentMD
		existing.Status = req.Status
		existing.Visibility = req.Visibility
		existing.UpdatedAt = now
		start = time.Now()
		err = s.repo.Update(ctx, existing)
		s.metrics.ObserveStore("update", time.Since(start))
		if err != nil {
			s.metrics.RecordNoteWrite(WriteFailed)
			return nil, appErrors.StoreUnavailable(err, "failed to update note")
		}
		s.metrics.RecordNoteWrite(WriteUpdated)
		s.feed.InvalidateClassNotes(ctx)
		return existing, nil
	case errors.Is(err, sql.ErrNoRows):
		note := &models.Note{
			AuthorID:   authorID,
			VideoID:    req.VideoID,
			ContentMD:  req.ContentMD,
			Status:     req.Status,
			Visibility: req.Visibility,
			UpdatedAt:  now,
		}
		start = time.Now()
		err = s.repo.Create(ctx, note)
		s.metrics.ObserveStore("create", time.Since(start))
		if err != nil {
			s.metrics.RecordNoteWrite(WriteFailed)
			return nil, appErrors.StoreUnavailable(err, "failed to create note")
		}
		s.metrics.RecordNoteWrite(WriteCreated)
		s.feed.InvalidateClassNotes(ctx)
		return note, nil
	default:
		s.metrics.RecordNoteWrite(WriteFailed)
		return nil, appErrors.StoreUnavailable(err, "failed to load note")
	}
}

// SaveDraft mirrors the draft into the device cache and (re)arms the auto-save timer. Only
// the last draft of a quiet period is written. Identities that cannot edit are refused.
func (s *NoteService) SaveDraft(ctx context.Context, identity *models.Identity, deviceID string, req SaveNoteRequest) (*DraftReceipt, error) {
	if !identity.Authenticated() {
		return nil, appErrors.ErrUnauthenticated
	}
	if !identity.CanEdit() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "auto-save is disabled for this role")
	}
	if err := s.check(&req); err != nil {
		return nil, err
	}

	if deviceID != "" && s.device != nil {
		err := s.device.SetNote(ctx, deviceID, req.VideoID, req.ContentMD)
		s.metrics.RecordDeviceCache("set_note", err)
		if err != nil {
			s.logger.Warn("draft not mirrored to device cache", zap.String("device_id", deviceID), zap.Error(err))
		}
	}

	key := noteKey(identity.UserID, req.VideoID)
	revision := s.nextRevision(key)
	job := jobs.Job{
		ID:      uuid.NewString(),
		Key:     key,
		Type:    autoSaveJobType,
		Payload: draftJob{AuthorID: identity.UserID, Request: req, Revision: revision},
	}
	if !s.debouncer.Schedule(key, func() { s.flush(job) }) {
		return nil, appErrors.Clone(appErrors.ErrStoreUnavailable, "auto-save is shutting down")
	}
	s.metrics.RecordAutoSave(AutoSaveScheduled)

	return &DraftReceipt{
		VideoID:    req.VideoID,
		Revision:   revision,
		FlushAfter: s.debouncer.Delay().String(),
		AcceptedAt: time.Now().UTC(),
	}, nil
}

func (s *NoteService) flush(job jobs.Job) {
	if err := s.queue.Enqueue(job); err != nil {
		if p, ok := job.Payload.(draftJob); ok {
			s.retireRevision(job.Key, p.Revision)
		}
		s.metrics.RecordAutoSave(AutoSaveDropped)
		s.logger.Warn("auto-save not queued", zap.String("key", job.Key), zap.Error(err))
		return
	}
	s.metrics.RecordAutoSave(AutoSaveFlushed)
}

func (s *NoteService) handleJob(ctx context.Context, job jobs.Job) error {
	p, ok := job.Payload.(draftJob)
	if !ok {
		return errors.New("unexpected auto-save payload")
	}
	_, err := s.write(ctx, p.AuthorID, p.Request, job.Key, p.Revision)
	if errors.Is(err, appErrors.ErrSuperseded) {
		s.logger.Debug("auto-save superseded", zap.String("key", job.Key), zap.Uint64("revision", p.Revision))
		return nil
	}
	return err
}

// PendingDraft reports whether an auto-save is armed for the caller's note.
func (s *NoteService) PendingDraft(identity *models.Identity, videoID string) bool {
	if !identity.Authenticated() {
		return false
	}
	return s.debouncer.Pending(noteKey(identity.UserID, videoID))
}

// Get returns the caller's note for a video, nil when none exists.
func (s *NoteService) Get(ctx context.Context, identity *models.Identity, videoID string) (*models.Note, error) {
	if !identity.Authenticated() {
		return nil, appErrors.ErrUnauthenticated
	}
	note, err := s.repo.FindByAuthorAndVideo(ctx, identity.UserID, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.StoreUnavailable(err, "failed to load note")
	}
	return note, nil
}

// Draft returns the device's cached draft for a video.
func (s *NoteService) Draft(ctx context.Context, deviceID, videoID string) (*models.LocalNote, error) {
	if deviceID == "" || s.device == nil {
		return nil, nil
	}
	note, err := s.device.GetNote(ctx, deviceID, videoID)
	s.metrics.RecordDeviceCache("get_note", err)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "device cache unavailable")
	}
	return note, nil
}

// ListClassNotes returns class-visible notes joined with their videos, ordered by filter.Sort.
// Notes on videos missing from the catalog are dropped.
func (s *NoteService) ListClassNotes(ctx context.Context, filter ClassNoteFilter) ([]ClassNote, error) {
	switch filter.Sort {
	case "", models.SortByDate, models.SortByDuration, models.SortByTitle:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown sort key")
	}
	limit := filter.Limit
	if limit <= 0 || limit > s.config.ClassNotesLimit {
		limit = s.config.ClassNotesLimit
	}
	notes, cached := s.feed.ClassNotes(ctx, limit)
	if !cached {
		var err error
		notes, err = s.repo.ListClass(ctx, limit)
		if err != nil {
			return nil, appErrors.StoreUnavailable(err, "failed to list class notes")
		}
		s.feed.StoreClassNotes(ctx, limit, notes)
	}

	joined := make([]models.Video, 0, len(notes))
	for _, n := range notes {
		if v, ok := s.catalog.FindVideo(n.VideoID); ok {
			joined = append(joined, v)
		}
	}
	allowed := make(map[string]struct{}, len(joined))
	for _, v := range catalog.FilterByPack(catalog.Search(joined, filter.Search), filter.Pack) {
		allowed[v.VideoID] = struct{}{}
	}

	out := make([]ClassNote, 0, len(notes))
	for _, n := range notes {
		if _, ok := allowed[n.VideoID]; !ok {
			continue
		}
		v, _ := s.catalog.FindVideo(n.VideoID)
		out = append(out, ClassNote{Note: n, Video: v})
	}
	s.sortClassNotes(out, joined, filter.Sort)
	return out, nil
}

func (s *NoteService) sortClassNotes(notes []ClassNote, videos []models.Video, key models.SortKey) {
	switch key {
	case models.SortByDuration, models.SortByTitle:
		order := models.SortDesc
		if key == models.SortByTitle {
			order = models.SortAsc
		}
		rank := make(map[string]int, len(videos))
		for i, v := range s.engine.Sort(videos, key, order) {
			if _, seen := rank[v.VideoID]; !seen {
				rank[v.VideoID] = i
			}
		}
		slices.SortStableFunc(notes, func(a, b ClassNote) int { return rank[a.VideoID] - rank[b.VideoID] })
	default:
		slices.SortStableFunc(notes, func(a, b ClassNote) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	}
}

// ListMyStatuses returns the caller's stored statuses, optionally restricted to videoIDs.
func (s *NoteService) ListMyStatuses(ctx context.Context, identity *models.Identity, videoIDs []string) (map[string]models.NoteStatus, error) {
	if !identity.Authenticated() {
		return nil, appErrors.ErrUnauthenticated
	}
	rows, err := s.repo.ListStatuses(ctx, identity.UserID, videoIDs)
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to list statuses")
	}
	out := make(map[string]models.NoteStatus, len(rows))
	for _, r := range rows {
		out[r.VideoID] = r.Status
	}
	return out, nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
