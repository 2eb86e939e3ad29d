// Package files stores uploaded files on local disk or in a Backblaze B2 bucket.
package files

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

// AllowedTypes lists the accepted upload formats, detected from the file content.
var AllowedTypes = []string{
	"application/pdf",
	"application/zip",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"image/png",
	"image/jpeg",
	"image/gif",
	"text/plain",
}

// sniffed is an upload read into memory along with its detected format.
type sniffed struct {
	data []byte
	mime *mimetype.MIME
}

// sniff reads the upload, enforcing maxSize (when > 0) and the allowed formats.
func sniff(up core.Upload, maxSize int64) (*sniffed, error) {
	if up.Content == nil {
		return nil, core.NewFieldError("file", "this field is required")
	}

	r := up.Content
	if maxSize > 0 {
		r = io.LimitReader(up.Content, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	switch {
	case len(data) == 0:
		return nil, core.NewFieldError("file", "the submitted file is empty")
	case maxSize > 0 && int64(len(data)) > maxSize:
		return nil, core.NewFieldError("file", fmt.Sprintf("the file is too large (max %d bytes)", maxSize))
	}

	mtype := mimetype.Detect(data)
	if mimetype.EqualsAny(mtype.String(), AllowedTypes...) {
		return &sniffed{data: data, mime: mtype}, nil
	}
	return nil, core.NewFieldError("file", "unsupported file type: "+mtype.String())
}

// key builds a unique object key under dir, keeping the detected extension.
func (s *sniffed) key(dir, filename string) string {
	ext := s.mime.Extension()
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}
	return path.Join(dir, uuid.NewString()+ext)
}

func (s *sniffed) reader() io.Reader {
	return bytes.NewReader(s.data)
}
