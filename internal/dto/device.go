package dto

import "github.com/noah-isme/pack-progress-api/internal/models"

// SetDeviceStatusRequest is the payload for storing a device-local status.
type SetDeviceStatusRequest struct {
	Status models.NoteStatus `json:"status" validate:"required,oneof=todo in_progress done"`
}

// DeviceStatuses lists what a device has cached.
type DeviceStatuses struct {
	DeviceID string                       `json:"device_id"`
	Statuses map[string]models.NoteStatus `json:"statuses"`
}

// DeviceStatus is one device-local status; Status is nil when the device stored none.
type DeviceStatus struct {
	VideoID string             `json:"video_id"`
	Status  *models.NoteStatus `json:"status"`
}

// DeviceDrafts lists the note drafts a device has cached.
type DeviceDrafts struct {
	DeviceID string                      `json:"device_id"`
	Notes    map[string]models.LocalNote `json:"notes"`
}
