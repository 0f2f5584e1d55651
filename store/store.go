// Package store persists capture artifacts in an S3-compatible bucket.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("store: object not found")

// Config configures the artifact store.
type Config struct {
	// Endpoint is the S3-compatible host, e.g. "s3.amazonaws.com" or a
	// local minio address.
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

// Store is an S3-backed artifact store.
type Store struct {
	client *minio.Client
	bucket string
	log    *slog.Logger
}

// Object describes a stored artifact.
type Object struct {
	Key          string
	Size         int64
	LastModified int64 // unix seconds
}

// New connects the store. Credentials are static; rotation and retry policy
// belong to the caller's environment.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("store: endpoint and bucket are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.Endpoint, err)
	}

	return &Store{client: client, bucket: cfg.Bucket, log: cfg.Logger}, nil
}

// Put uploads an artifact under dir/name and returns its object key. The
// content type is guessed from the file extension when not supplied.
func (s *Store) Put(ctx context.Context, dir, name string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(dir, name)
	ct := contentTypeFor(name, contentType)

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: ct,
	})
	if err != nil {
		return "", fmt.Errorf("store: put %s: %w", key, err)
	}

	s.log.Debug("store: uploaded", "key", key, "bytes", size, "content_type", ct)
	return key, nil
}

// Get retrieves an artifact's content.
func (s *Store) Get(ctx context.Context, dir, name string) ([]byte, error) {
	key := objectKey(dir, name)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", key, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("store: get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// Exists reports whether an artifact is present.
func (s *Store) Exists(ctx context.Context, dir, name string) (bool, error) {
	key := objectKey(dir, name)

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("store: stat %s: %w", key, err)
	}
	return true, nil
}

// List returns the objects under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    strings.Trim(prefix, "/"),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("store: list %s: %w", prefix, info.Err)
		}
		objects = append(objects, Object{
			Key:          info.Key,
			Size:         info.Size,
			LastModified: info.LastModified.Unix(),
		})
	}
	return objects, nil
}

// MostRecent returns the most recently modified object in the list, or
// false when the list is empty.
func MostRecent(objects []Object) (Object, bool) {
	if len(objects) == 0 {
		return Object{}, false
	}
	latest := objects[0]
	for _, o := range objects[1:] {
		if o.LastModified > latest.LastModified {
			latest = o
		}
	}
	return latest, true
}

// PublicURL builds the unauthenticated URL of an artifact. Only meaningful
// for buckets with public read access.
func (s *Store) PublicURL(dir, name string) string {
	u := *s.client.EndpointURL()
	u.Path = path.Join("/", s.bucket, objectKey(dir, name))
	return u.String()
}

// objectKey joins a directory path and file name into a clean key with no
// leading, trailing, or doubled slashes.
func objectKey(dir, name string) string {
	dir = strings.Trim(dir, "/")
	name = strings.Trim(name, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// contentTypeFor picks the MIME type for an upload: the explicit override
// when given, the extension's registered type otherwise.
func contentTypeFor(name, override string) string {
	if override != "" {
		return override
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
