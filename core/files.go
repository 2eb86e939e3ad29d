package core

import (
	"context"
	"io"
)

// Upload is a user-provided file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// FileStore persists uploaded files and rejects unsupported ones with a ValidationError.
type FileStore interface {
	// Save stores the upload under dir and returns a reference to it.
	Save(ctx context.Context, dir string, up Upload) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}
