package files

import (
	"context"
	"io"

	"github.com/kat-co/vala"
	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/smartclass/portal/core"
)

// B2Store keeps uploads in a Backblaze B2 bucket.
type B2Store struct {
	bucket  *b2.Bucket
	maxSize int64
}

var _ core.FileStore = (*B2Store)(nil)

func NewB2Store(ctx context.Context, accountID, appKey, bucketName string, maxSize int64) (*B2Store, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(accountID, "accountID"),
		vala.StringNotEmpty(appKey, "appKey"),
		vala.StringNotEmpty(bucketName, "bucketName"),
	).Check(); err != nil {
		return nil, err
	}

	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &B2Store{bucket: bucket, maxSize: maxSize}, nil
}

func (s *B2Store) Save(ctx context.Context, dir string, up core.Upload) (string, error) {
	sn, err := sniff(up, s.maxSize)
	if err != nil {
		return "", err
	}

	ref := sn.key(dir, up.Filename)
	w := s.bucket.Object(ref).NewWriter(ctx)
	if _, err := io.Copy(w, sn.reader()); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing b2 object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing b2 object")
	}
	return ref, nil
}

func (s *B2Store) Delete(ctx context.Context, ref string) error {
	return errors.Wrap(s.bucket.Object(ref).Delete(ctx), "deleting b2 object")
}

func (s *B2Store) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.bucket.Object(ref).URL()
}

// Healthy reports whether the bucket is reachable.
func (s *B2Store) Healthy(ctx context.Context) bool {
	_, err := s.bucket.Attrs(ctx)
	return err == nil
}
