package models

// RunStatus is the lifecycle state of a calculation run.
type RunStatus string

const (
	RunStatusPending     RunStatus = "pending"
	RunStatusCalculating RunStatus = "calculating"
	RunStatusGenerating  RunStatus = "generating"
	RunStatusComplete    RunStatus = "complete"
	RunStatusError       RunStatus = "error"
)

// GenerationRun tracks one query -> calculate -> generate pass.
type GenerationRun struct {
	ID              string      `json:"id"`
	Project         ProjectInfo `json:"project"`
	Status          RunStatus   `json:"status"`
	Progress        float64     `json:"progress"` // 0-100
	ItemCount       int         `json:"itemCount"`
	AssignmentCount int         `json:"assignmentCount,omitempty"`
	Kinds           []TableKind `json:"kinds"`
	InputHash       string      `json:"inputHash,omitempty"`
	CatalogVersion  string      `json:"catalogVersion,omitempty"`
	Memoized        bool        `json:"memoized,omitempty"`
	StartTime       int64       `json:"startTime,omitempty"` // Unix ms
	EndTime         int64       `json:"endTime,omitempty"`   // Unix ms
	Error           string      `json:"error,omitempty"`
}

// NewGenerationRun creates a run in pending status.
func NewGenerationRun(id string, project ProjectInfo, kinds []TableKind) *GenerationRun {
	return &GenerationRun{
		ID:      id,
		Project: project,
		Status:  RunStatusPending,
		Kinds:   kinds,
	}
}
