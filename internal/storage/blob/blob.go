// Package blob provides disk-namespaced file storage for product images.
// A disk is a namespace (e.g. "public"); paths are relative to the disk.
package blob

import "context"

// Store is the blob store consumed by the product workflow.
type Store interface {
	// Put writes data under path on the named disk and returns the stored path.
	Put(ctx context.Context, disk, path string, data []byte) (string, error)
	// Delete removes the blob at path on the named disk. Deleting a blob
	// that does not exist is not an error.
	Delete(ctx context.Context, disk, path string) error
}
