package devicecache

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// Memory keeps device entries in process memory. Entries never expire.
type Memory struct {
	mu      sync.RWMutex
	devices map[string]map[string]string
	now     func() time.Time
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{devices: make(map[string]map[string]string), now: time.Now}
}

func (m *Memory) get(deviceID, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[deviceID][key]
}

func (m *Memory) put(deviceID string, kv ...string) error {
	if deviceID == "" {
		return ErrNoDevice
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.devices[deviceID]
	if !ok {
		entries = make(map[string]string)
		m.devices[deviceID] = entries
	}
	for i := 0; i+1 < len(kv); i += 2 {
		entries[kv[i]] = kv[i+1]
	}
	return nil
}

func (m *Memory) snapshot(deviceID string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.devices[deviceID]))
	for k, v := range m.devices[deviceID] {
		out[k] = v
	}
	return out
}

func (m *Memory) GetStatus(_ context.Context, deviceID, videoID string) (models.NoteStatus, bool, error) {
	status := models.NoteStatus(m.get(deviceID, StatusKey(videoID)))
	if !status.Valid() {
		return "", false, nil
	}
	return status, true, nil
}

func (m *Memory) SetStatus(_ context.Context, deviceID, videoID string, status models.NoteStatus) error {
	return m.put(deviceID, StatusKey(videoID), string(status))
}

func (m *Memory) ListStatuses(_ context.Context, deviceID string) (map[string]models.NoteStatus, error) {
	return StatusesFromEntries(m.snapshot(deviceID)), nil
}

func (m *Memory) GetNote(_ context.Context, deviceID, videoID string) (*models.LocalNote, error) {
	m.mu.RLock()
	entries := m.devices[deviceID]
	content, updated := entries[NoteKey(videoID)], entries[NoteUpdatedKey(videoID)]
	m.mu.RUnlock()
	return NoteFromValues(content, updated, m.now().UTC()), nil
}

func (m *Memory) SetNote(_ context.Context, deviceID, videoID, content string) error {
	return m.put(deviceID, NoteKey(videoID), content, NoteUpdatedKey(videoID), FormatTime(m.now()))
}

func (m *Memory) ListNotes(_ context.Context, deviceID string) (map[string]models.LocalNote, error) {
	return NotesFromEntries(m.snapshot(deviceID), m.now().UTC()), nil
}
