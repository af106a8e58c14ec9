package models

import "fmt"

// ObjectReference identifies one storage object named by a change notification.
type ObjectReference struct {
	Bucket  string `json:"bucket"`            // Source bucket name
	Key     string `json:"key"`               // Object key, may contain path separators
	Version string `json:"version,omitempty"` // Object version identifier, empty for non-versioned buckets
}

// String renders the reference as an s3 URI with an optional version suffix.
func (r ObjectReference) String() string {
	if r.Version == "" {
		return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Key)
	}
	return fmt.Sprintf("s3://%s/%s?versionId=%s", r.Bucket, r.Key, r.Version)
}

// Label is a single classification returned by label detection.
type Label struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"` // Percent (0-100) as reported by the provider
}

// NotificationMessage is the email composed for a positive text detection.
type NotificationMessage struct {
	Recipient   string
	Sender      string
	Subject     string
	Body        string
	ContentType string
}
