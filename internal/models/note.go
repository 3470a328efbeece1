package models

import (
	"fmt"
	"time"
)

// NoteStatus tracks completion of one video by one learner.
type NoteStatus string

const (
	NoteStatusTodo       NoteStatus = "todo"
	NoteStatusInProgress NoteStatus = "in_progress"
	NoteStatusDone       NoteStatus = "done"
)

// Valid reports whether the status is one of the known values.
func (s NoteStatus) Valid() bool {
	switch s {
	case NoteStatusTodo, NoteStatusInProgress, NoteStatusDone:
		return true
	}
	return false
}

// ParseNoteStatus converts raw input, rejecting unknown values.
func ParseNoteStatus(raw string) (NoteStatus, error) {
	s := NoteStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown note status %q", raw)
	}
	return s, nil
}

// NoteVisibility controls who can read a note.
type NoteVisibility string

const (
	VisibilityClass   NoteVisibility = "class"
	VisibilityPrivate NoteVisibility = "private"
)

// Note is one author's work on one video. At most one exists per (author, video).
type Note struct {
	ID         string         `db:"id" json:"id"`
	AuthorID   string         `db:"author_id" json:"author_id"`
	VideoID    string         `db:"video_id" json:"video_id"`
	ContentMD  string         `db:"content_md" json:"content_md"`
	Status     NoteStatus     `db:"status" json:"status"`
	Visibility NoteVisibility `db:"visibility" json:"visibility"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// NoteStatusRow is the projection used to build status maps.
type NoteStatusRow struct {
	VideoID string     `db:"video_id"`
	Status  NoteStatus `db:"status"`
}

// LocalNote is a draft mirrored in the device cache.
type LocalNote struct {
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
