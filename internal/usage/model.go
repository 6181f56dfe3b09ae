package usage

import "time"

// Usage represents a user's plan consumption snapshot.
type Usage struct {
	Plan              string    `json:"plan"`
	AnalysisLimit     int       `json:"analysisLimit"`
	AnalysesUsed      int       `json:"analysesUsed"`
	StorageLimitBytes int64     `json:"storageLimitBytes"`
	StorageUsedBytes  int64     `json:"storageUsedBytes"`
	ResetsAt          time.Time `json:"resetsAt"`
}
