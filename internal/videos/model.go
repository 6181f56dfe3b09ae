package videos

import "time"

const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Video is an uploaded source video and the analysis status that clients
// poll. Status and the linked workflow move to terminal states together.
type Video struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	WorkflowID   string    `json:"workflowId"`
	FileName     string    `json:"fileName"`
	StoragePath  string    `json:"storagePath"`
	SizeBytes    int64     `json:"sizeBytes"`
	MimeType     string    `json:"mimeType"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
