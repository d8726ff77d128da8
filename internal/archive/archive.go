// Package archive writes raw import payloads to Google Cloud Storage so a
// disputed or failed import can be replayed and audited. Archiving is
// best-effort: the pipeline treats a failed archive as a warning.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader archives import payloads to a GCS bucket.
// It assumes Application Default Credentials are configured.
type Uploader struct {
	bucket string
}

// NewUploader creates an uploader targeting the given bucket.
func NewUploader(bucket string) *Uploader {
	return &Uploader{bucket: bucket}
}

// ArchiveImport serializes the payload as JSON and writes it under
// imports/YYYY/MM/DD/<importID>.json. It returns the gs:// URI of the
// written object.
func (u *Uploader) ArchiveImport(ctx context.Context, importID string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ArchiveImport: marshaling payload: %w", err)
	}

	objectName := fmt.Sprintf("imports/%s/%s.json", time.Now().Format("2006/01/02"), importID)

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("ArchiveImport: creating storage client: %w", err)
	}
	defer client.Close()

	wc := client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = "application/json"

	if err := writeObject(wc, data); err != nil {
		return "", fmt.Errorf("ArchiveImport: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// writeObject writes data through the object writer and closes it on both
// paths, so a failed write does not leak the upload session.
func writeObject(wc io.WriteCloser, data []byte) error {
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}
	return nil
}
