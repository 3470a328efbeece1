// Package devicecache stores per-device status and draft entries under the
// status:<video_id>, notes:<video_id> and notes_updated_at:<video_id> keys.
package devicecache

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

const (
	StatusPrefix       = "status:"
	NotesPrefix        = "notes:"
	NotesUpdatedPrefix = "notes_updated_at:"
)

// ErrNoDevice is returned by writes that carry no device id.
var ErrNoDevice = errors.New("device id required")

func StatusKey(videoID string) string      { return StatusPrefix + videoID }
func NoteKey(videoID string) string        { return NotesPrefix + videoID }
func NoteUpdatedKey(videoID string) string { return NotesUpdatedPrefix + videoID }

// FormatTime is the encoding used for notes_updated_at values.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// StatusesFromEntries extracts valid status entries from a raw key/value dump.
func StatusesFromEntries(entries map[string]string) map[string]models.NoteStatus {
	out := make(map[string]models.NoteStatus)
	for key, raw := range entries {
		videoID, ok := strings.CutPrefix(key, StatusPrefix)
		if !ok || videoID == "" {
			continue
		}
		if status := models.NoteStatus(raw); status.Valid() {
			out[videoID] = status
		}
	}
	return out
}

// NotesFromEntries extracts drafts from a raw key/value dump. Drafts without a timestamp are
// stamped with now.
func NotesFromEntries(entries map[string]string, now time.Time) map[string]models.LocalNote {
	out := make(map[string]models.LocalNote)
	for key, content := range entries {
		videoID, ok := strings.CutPrefix(key, NotesPrefix)
		if !ok || videoID == "" || content == "" {
			continue
		}
		out[videoID] = models.LocalNote{Content: content, UpdatedAt: parseTime(entries[NoteUpdatedKey(videoID)], now)}
	}
	return out
}

// NoteFromValues builds a draft from its content and timestamp values; empty content is absent.
func NoteFromValues(content, updatedAt string, now time.Time) *models.LocalNote {
	if content == "" {
		return nil
	}
	return &models.LocalNote{Content: content, UpdatedAt: parseTime(updatedAt, now)}
}

func parseTime(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fallback
	}
	return t
}
