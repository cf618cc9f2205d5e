package models

import "time"

// ExportFile represents metadata about a generated export file on disk.
type ExportFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	RunID     string    `json:"runId"`
	Kind      TableKind `json:"kind"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
