package port

import "context"

// BlobStore uploads document bytes under a key and returns the blob URL.
// Re-uploading the same key overwrites the previous blob.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}
