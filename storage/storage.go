// Package storage defines the operations a blob store offers to the command line.
package storage

import (
	"context"
	"io"

	"github.com/meltwater/azstorage/storage/common"
)

// Backend is a container of named objects.
type Backend interface {
	// Get writes the contents of the object at p to w.
	Get(ctx context.Context, p string, w io.Writer) error

	// Put uploads the contents of r to the object at p.
	Put(ctx context.Context, p string, r io.Reader) error

	// Exists reports whether the object at p exists.
	Exists(ctx context.Context, p string) (bool, error)

	// List returns the objects whose names start with prefix.
	List(ctx context.Context, prefix string) ([]common.FileEntry, error)

	// Delete removes the object at p.
	Delete(ctx context.Context, p string) error
}
