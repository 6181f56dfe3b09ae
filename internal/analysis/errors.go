package analysis

import "fmt"

// DownloadError indicates the source video could not be fetched from
// object storage.
type DownloadError struct {
	StoragePath string
	Err         error
}

func (e *DownloadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("download video %q", e.StoragePath)
	}
	return fmt.Sprintf("download video %q: %v", e.StoragePath, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError indicates frame extraction produced no usable frames.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "frame extraction failed"
	}
	return "frame extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ResponseFormatError indicates the model response could not be parsed into
// a steps array.
type ResponseFormatError struct {
	Reason string
}

func (e *ResponseFormatError) Error() string {
	return "model response format: " + e.Reason
}
