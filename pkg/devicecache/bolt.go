package devicecache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// Bolt persists device entries in a BoltDB file, one bucket per device.
type Bolt struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the cache file, creating parent directories.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &Bolt{db: db, now: time.Now}, nil
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Bolt) get(deviceID string, keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	if deviceID == "" {
		return values, nil
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(deviceID))
		if bucket == nil {
			return nil
		}
		for i, key := range keys {
			values[i] = string(bucket.Get([]byte(key)))
		}
		return nil
	})
	return values, err
}

func (b *Bolt) put(deviceID string, kv ...string) error {
	if deviceID == "" {
		return ErrNoDevice
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(deviceID))
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(kv); i += 2 {
			if err := bucket.Put([]byte(kv[i]), []byte(kv[i+1])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) snapshot(deviceID string) (map[string]string, error) {
	out := make(map[string]string)
	if deviceID == "" {
		return out, nil
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(deviceID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out, err
}

// GetStatus reads the stored status of a video; unknown values count as absent.
func (b *Bolt) GetStatus(_ context.Context, deviceID, videoID string) (models.NoteStatus, bool, error) {
	values, err := b.get(deviceID, StatusKey(videoID))
	if err != nil {
		return "", false, err
	}
	status := models.NoteStatus(values[0])
	if !status.Valid() {
		return "", false, nil
	}
	return status, true, nil
}

// SetStatus stores a status for a video.
func (b *Bolt) SetStatus(_ context.Context, deviceID, videoID string, status models.NoteStatus) error {
	return b.put(deviceID, StatusKey(videoID), string(status))
}

// ListStatuses returns every valid status stored for the device.
func (b *Bolt) ListStatuses(_ context.Context, deviceID string) (map[string]models.NoteStatus, error) {
	entries, err := b.snapshot(deviceID)
	if err != nil {
		return nil, err
	}
	return StatusesFromEntries(entries), nil
}

// GetNote returns the cached draft for a video, nil when absent.
func (b *Bolt) GetNote(_ context.Context, deviceID, videoID string) (*models.LocalNote, error) {
	values, err := b.get(deviceID, NoteKey(videoID), NoteUpdatedKey(videoID))
	if err != nil {
		return nil, err
	}
	return NoteFromValues(values[0], values[1], b.now().UTC()), nil
}

// SetNote stores a draft and stamps it with the current time.
func (b *Bolt) SetNote(_ context.Context, deviceID, videoID, content string) error {
	return b.put(deviceID, NoteKey(videoID), content, NoteUpdatedKey(videoID), FormatTime(b.now()))
}

// ListNotes returns every draft cached for the device.
func (b *Bolt) ListNotes(_ context.Context, deviceID string) (map[string]models.LocalNote, error) {
	entries, err := b.snapshot(deviceID)
	if err != nil {
		return nil, err
	}
	return NotesFromEntries(entries, b.now().UTC()), nil
}
