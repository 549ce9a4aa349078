// internal/domain/models/backup.go
package models

import "time"

// BackupStatusID is the _id of the single backup status document.
const BackupStatusID = "latest"

// BackupStatus reports the outcome of the most recent automated backup.
type BackupStatus struct {
	Failed       bool      `bson:"failed" json:"Failed"`
	TimestampUTC time.Time `bson:"timestamp_utc" json:"TimestampUTC"`
	Message      string    `bson:"message,omitempty" json:"Message,omitempty"`
}
