package workflows

import "time"

const (
	StatusPending  = "pending"
	StatusAnalyzed = "analyzed"
)

// Workflow is the analyzed counterpart of an uploaded video. TeamID is set
// when ownership has been migrated to a team.
type Workflow struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	TeamID      string     `json:"teamId,omitempty"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Step is one structured unit of extracted workflow information. Steps are
// written once in a single bulk insert and never updated.
type Step struct {
	ID               string    `json:"id"`
	WorkflowID       string    `json:"workflowId"`
	SequenceNo       int       `json:"sequenceNo"`
	Type             string    `json:"type"`
	Action           string    `json:"action"`
	Description      string    `json:"description"`
	Confidence       int       `json:"confidence"`
	TimestampSeconds *float64  `json:"timestampSeconds,omitempty"`
	ScreenshotURL    string    `json:"screenshotUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Share grants a team read access to a personally owned workflow. Distinct
// from migration, which moves ownership itself.
type Share struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	TeamID     string    `json:"teamId"`
	SharedBy   string    `json:"sharedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
