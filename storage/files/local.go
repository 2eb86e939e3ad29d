package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

// LocalStore keeps uploads under a root directory served at baseURL.
type LocalStore struct {
	root    string
	baseURL string
	maxSize int64
}

var _ core.FileStore = (*LocalStore)(nil)

func NewLocalStore(root, baseURL string, maxSize int64) (*LocalStore, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(root, "root"),
		vala.StringNotEmpty(baseURL, "baseURL"),
	).Check(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSize: maxSize}, nil
}

// Root is the directory holding the stored files.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(ref string) string {
	return filepath.Join(s.root, filepath.FromSlash(ref))
}

func (s *LocalStore) Save(_ context.Context, dir string, up core.Upload) (string, error) {
	sn, err := sniff(up, s.maxSize)
	if err != nil {
		return "", err
	}

	ref := sn.key(dir, up.Filename)
	fp := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}
	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating upload file")
	}
	if _, err := io.Copy(f, sn.reader()); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing upload file")
	}
	return ref, errors.Wrap(f.Close(), "closing upload file")
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if err := os.Remove(s.path(ref)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload file")
	}
	return nil
}

func (s *LocalStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + ref
}
