package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

const noteColumns = "id, author_id, video_id, content_md, status, visibility, updated_at"

// NoteRepository persists notes. Lookups that find nothing return sql.ErrNoRows unwrapped.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// FindByAuthorAndVideo fetches the single note an author keeps for a video.
func (r *NoteRepository) FindByAuthorAndVideo(ctx context.Context, authorID, videoID string) (*models.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE author_id = $1 AND video_id = $2 LIMIT 1"
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, authorID, videoID); err != nil {
		return nil, err
	}
	return &note, nil
}

// Create inserts a note, assigning its id and timestamp when missing.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notes (id, author_id, video_id, content_md, status, visibility, updated_at)
        VALUES (:id, :author_id, :video_id, :content_md, :status, :visibility, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update overwrites content, status and visibility of an existing note.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE notes SET content_md = :content_md, status = :status, visibility = :visibility, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// ListClass returns class-visible notes, newest first.
func (r *NoteRepository) ListClass(ctx context.Context, limit int) ([]models.Note, error) {
	query := "SELECT " + noteColumns + " FROM notes WHERE visibility = $1 ORDER BY updated_at DESC LIMIT $2"
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, models.VisibilityClass, limit); err != nil {
		return nil, fmt.Errorf("list class notes: %w", err)
	}
	return notes, nil
}

// ListStatuses returns the author's statuses, restricted to videoIDs when any are given.
func (r *NoteRepository) ListStatuses(ctx context.Context, authorID string, videoIDs []string) ([]models.NoteStatusRow, error) {
	query := "SELECT video_id, status FROM notes WHERE author_id = $1"
	args := []interface{}{authorID}
	if len(videoIDs) > 0 {
		query += " AND video_id = ANY($2)"
		args = append(args, pq.Array(videoIDs))
	}
	var rows []models.NoteStatusRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list note statuses: %w", err)
	}
	return rows, nil
}
