package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartclass/portal/core"
)

var pdfContent = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

func newLocalStore(t *testing.T, maxSize int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "/media/", maxSize)
	require.NoError(t, err)
	return store
}

func TestLocalStore_Save(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, 1024)

	tests := []struct {
		name     string
		upload   core.Upload
		wantExt  string
		wantErr  bool
		errField string
	}{
		{name: "pdf", upload: core.Upload{Filename: "notes.pdf", Content: strings.NewReader(pdfContent)}, wantExt: ".pdf"},
		{name: "plain text", upload: core.Upload{Filename: "answer.txt", Content: strings.NewReader("my answer")}, wantExt: ".txt"},
		{name: "missing content", upload: core.Upload{Filename: "x.pdf"}, wantErr: true, errField: "file"},
		{name: "empty", upload: core.Upload{Filename: "x.txt", Content: strings.NewReader("")}, wantErr: true, errField: "file"},
		{name: "too large", upload: core.Upload{Filename: "big.txt", Content: strings.NewReader(strings.Repeat("a", 1025))}, wantErr: true, errField: "file"},
		{name: "unsupported", upload: core.Upload{Filename: "prog", Content: strings.NewReader("\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00")}, wantErr: true, errField: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := store.Save(ctx, "submissions", tt.upload)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err))
				verr := err.(*core.ValidationError)
				require.NotEmpty(t, verr.Fields)
				assert.Equal(t, tt.errField, verr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ref, "submissions/"))
			assert.Equal(t, tt.wantExt, filepath.Ext(ref))
			assert.Equal(t, "/media/"+ref, store.URL(ref))

			_, err = os.Stat(filepath.Join(store.Root(), filepath.FromSlash(ref)))
			assert.NoError(t, err)
		})
	}
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newLocalStore(t, 0)

	ref, err := store.Save(ctx, "course_materials", core.Upload{Filename: "a.txt", Content: strings.NewReader("hello")})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(store.Root(), filepath.FromSlash(ref)))
	assert.True(t, os.IsNotExist(err))

	// deleting a missing file is not an error
	assert.NoError(t, store.Delete(ctx, ref))
}

func TestNewLocalStore_requiresRoot(t *testing.T) {
	_, err := NewLocalStore("", "/media", 0)
	assert.Error(t, err)
}

func TestLocalStore_URL_empty(t *testing.T) {
	store := newLocalStore(t, 0)
	assert.Equal(t, "", store.URL(""))
}
