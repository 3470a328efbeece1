package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/pack-progress-api/internal/models"
	"github.com/noah-isme/pack-progress-api/pkg/devicecache"
)

// DeviceCacheRepository keeps each device's statuses and drafts in one Redis hash.
// A nil client behaves as an empty cache that rejects writes.
type DeviceCacheRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewDeviceCacheRepository constructs the Redis-backed device cache.
func NewDeviceCacheRepository(client *redis.Client, prefix string, logger *zap.Logger) *DeviceCacheRepository {
	if prefix == "" {
		prefix = "device"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceCacheRepository{client: client, prefix: prefix, logger: logger}
}

func (r *DeviceCacheRepository) key(deviceID string) string {
	return r.prefix + ":" + deviceID
}

// GetStatus reads status:<videoID>.
func (r *DeviceCacheRepository) GetStatus(ctx context.Context, deviceID, videoID string) (models.NoteStatus, bool, error) {
	if r.client == nil || deviceID == "" {
		return "", false, nil
	}
	raw, err := r.client.HGet(ctx, r.key(deviceID), devicecache.StatusKey(videoID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget status %s: %w", videoID, err)
	}
	status, err := models.ParseNoteStatus(raw)
	if err != nil {
		r.logger.Debug("ignoring unreadable cached status", zap.String("device_id", deviceID), zap.String("video_id", videoID))
		return "", false, nil
	}
	return status, true, nil
}

// SetStatus writes status:<videoID>.
func (r *DeviceCacheRepository) SetStatus(ctx context.Context, deviceID, videoID string, status models.NoteStatus) error {
	if err := r.writable(deviceID); err != nil {
		return err
	}
	if err := r.client.HSet(ctx, r.key(deviceID), devicecache.StatusKey(videoID), string(status)).Err(); err != nil {
		return fmt.Errorf("redis hset status %s: %w", videoID, err)
	}
	return nil
}

// ListStatuses returns every cached status of the device.
func (r *DeviceCacheRepository) ListStatuses(ctx context.Context, deviceID string) (map[string]models.NoteStatus, error) {
	entries, err := r.all(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return devicecache.StatusesFromEntries(entries), nil
}

// GetNote reads the cached draft for a video, nil when absent.
func (r *DeviceCacheRepository) GetNote(ctx context.Context, deviceID, videoID string) (*models.LocalNote, error) {
	if r.client == nil || deviceID == "" {
		return nil, nil
	}
	values, err := r.client.HMGet(ctx, r.key(deviceID), devicecache.NoteKey(videoID), devicecache.NoteUpdatedKey(videoID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget note %s: %w", videoID, err)
	}
	content, ok := values[0].(string)
	if !ok {
		return nil, nil
	}
	updatedAt, _ := values[1].(string)
	return devicecache.NoteFromValues(content, updatedAt, time.Now().UTC()), nil
}

// SetNote stores the draft and its timestamp together.
func (r *DeviceCacheRepository) SetNote(ctx context.Context, deviceID, videoID, content string) error {
	if err := r.writable(deviceID); err != nil {
		return err
	}
	err := r.client.HSet(ctx, r.key(deviceID),
		devicecache.NoteKey(videoID), content,
		devicecache.NoteUpdatedKey(videoID), devicecache.FormatTime(time.Now().UTC()),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset note %s: %w", videoID, err)
	}
	return nil
}

// ListNotes returns every cached draft of the device.
func (r *DeviceCacheRepository) ListNotes(ctx context.Context, deviceID string) (map[string]models.LocalNote, error) {
	entries, err := r.all(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return devicecache.NotesFromEntries(entries, time.Now().UTC()), nil
}

func (r *DeviceCacheRepository) all(ctx context.Context, deviceID string) (map[string]string, error) {
	if r.client == nil || deviceID == "" {
		return map[string]string{}, nil
	}
	entries, err := r.client.HGetAll(ctx, r.key(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", deviceID, err)
	}
	return entries, nil
}

func (r *DeviceCacheRepository) writable(deviceID string) error {
	if deviceID == "" {
		return devicecache.ErrNoDevice
	}
	if r.client == nil {
		return fmt.Errorf("device cache not configured")
	}
	return nil
}
