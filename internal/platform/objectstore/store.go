// Package objectstore writes pipeline outputs to a gocloud.dev bucket so the
// same code targets a local directory, S3-compatible storage or GCS.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/memblob"  // mem:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"gocloud.dev/gcerrors"
)

// Store is a bucket plus a key prefix.
type Store struct {
	bucket    *blob.Bucket
	bucketURL string
	prefix    string
}

// Open opens the bucket behind bucketURL, e.g. "file:///var/lib/churn_prep",
// "s3://ml-features?region=eu-west-1" or "mem://". Local directories are
// created if missing.
func Open(ctx context.Context, bucketURL string) (*Store, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("parse bucket url %q: %w", bucketURL, err)
	}
	if u.Scheme == "file" {
		if err := os.MkdirAll(u.Path, 0750); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", u.Path, err)
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return &Store{bucket: bucket, bucketURL: bucketURL}, nil
}

// WithPrefix returns a view of the store whose keys are nested under prefix.
func (s *Store) WithPrefix(prefix string) *Store {
	return &Store{bucket: s.bucket, bucketURL: s.bucketURL, prefix: path.Join(s.prefix, prefix)}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Write stores data under name, replacing any existing object.
func (s *Store) Write(ctx context.Context, name string, data []byte, contentType string) error {
	key := s.key(name)
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Read returns the object stored under name.
func (s *Store) Read(ctx context.Context, name string) ([]byte, error) {
	key := s.key(name)
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an object is stored under name.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, s.key(name))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", s.key(name), err)
	}
	return ok, nil
}

// Delete removes the object stored under name. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.bucket.Delete(ctx, s.key(name)); err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete %s: %w", s.key(name), err)
	}
	return nil
}

// List returns the names below the store's prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var names []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	return names, nil
}

// URI returns a human readable location for name.
func (s *Store) URI(name string) string {
	base := s.bucketURL
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, "/") + "/" + s.key(name)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}
