package model

import "time"

// Backup records an encrypted copy of the local cache uploaded from this device.
type Backup struct {
	ID        int64     `json:"id"`
	NestID    int64     `json:"nest_id"`
	S3Key     string    `json:"s3_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
