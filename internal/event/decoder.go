// Package event decodes storage change notifications into object references.
//
// The decoder is the parsing boundary of the pipeline: raw notification
// payloads are turned into strongly typed records here, and any problem with a
// single record is reported as a *DecodeError on that record only.
//
// Field paths read from every record:
//   - s3.bucket.name     (required)
//   - s3.object.key      (required, URL-encoded by S3)
//   - s3.object.versionId (optional, empty for non-versioned buckets)
//   - eventName          (optional, non ObjectCreated events are skipped)
package event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"textalert/pkg/models"
)

// ObjectCreatedPrefix is the event name prefix of object creation notifications.
const ObjectCreatedPrefix = "ObjectCreated:"

// Record is the decoded form of one notification record.
type Record struct {
	// Index is the position of the record in the batch.
	Index int

	// Ref is the object reference. Only valid when Err is nil.
	Ref models.ObjectReference

	// EventName is the raw event name (e.g., "ObjectCreated:Put").
	EventName string

	// Skipped is set for well-formed records that do not announce a new object.
	Skipped bool

	// Err is set when the record could not be decoded.
	Err *DecodeError
}

// OK reports whether the record decoded into a usable object reference.
func (r Record) OK() bool {
	return r.Err == nil && !r.Skipped
}

// rawBatch keeps each record as raw JSON so a bad record cannot fail its siblings.
type rawBatch struct {
	Records []json.RawMessage `json:"Records"`
}

// ParseBatch decodes a raw notification payload. It returns an error only when
// the payload as a whole is unusable; per-record problems are reported on the
// returned records.
func ParseBatch(data []byte) ([]Record, error) {
	var batch rawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	records := make([]Record, len(batch.Records))
	for i, raw := range batch.Records {
		var rec events.S3EventRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			records[i] = Record{Index: i, Err: NewDecodeError(i, "", fmt.Errorf("%w: %v", ErrMalformedRecord, err))}
			continue
		}
		records[i] = DecodeRecord(i, rec)
	}

	return records, nil
}

// Decode turns an already unmarshalled batch into records, preserving order.
func Decode(batch events.S3Event) []Record {
	records := make([]Record, len(batch.Records))
	for i, rec := range batch.Records {
		records[i] = DecodeRecord(i, rec)
	}
	return records
}

// DecodeRecord extracts the object reference from a single record.
func DecodeRecord(index int, rec events.S3EventRecord) Record {
	record := Record{
		Index:     index,
		EventName: rec.EventName,
	}

	bucket := strings.TrimSpace(rec.S3.Bucket.Name)
	if bucket == "" {
		record.Err = NewDecodeError(index, "s3.bucket.name", ErrMissingField)
		return record
	}

	if rec.S3.Object.Key == "" {
		record.Err = NewDecodeError(index, "s3.object.key", ErrMissingField)
		return record
	}

	// S3 URL-encodes keys in notifications (space becomes "+")
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		record.Err = NewDecodeError(index, "s3.object.key", fmt.Errorf("%w: %v", ErrInvalidKey, err))
		return record
	}

	record.Ref = models.ObjectReference{
		Bucket:  bucket,
		Key:     key,
		Version: rec.S3.Object.VersionID,
	}

	if rec.EventName != "" && !strings.HasPrefix(rec.EventName, ObjectCreatedPrefix) {
		record.Skipped = true
	}

	return record
}
