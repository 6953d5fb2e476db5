package common

import "time"

// FileEntry represents a stored object.
type FileEntry struct {
	Path         string
	Size         int64
	LastModified time.Time
}
