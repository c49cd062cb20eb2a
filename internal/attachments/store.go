// Package attachments stores files learners attach to submissions in an
// S3 compatible bucket. The object key is what the backend keeps as the
// submission's file_ref.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// KeyPrefix starts every key written by this package.
const KeyPrefix = "submissions/"

// DefaultMaxBytes caps an upload at 10 MiB.
const DefaultMaxBytes = 10 << 20

// ErrTooLarge is returned for uploads above the configured size.
var ErrTooLarge = errors.New("attachment too large")

// Config holds bucket settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	MaxBytes  int64
	URLExpiry time.Duration
}

// Store uploads attachments and signs download links.
type Store struct {
	client *minio.Client
	cfg    Config
}

// New creates a store. No request is made until the first call.
func New(cfg Config) (*Store, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &Store{client: client, cfg: cfg}, nil
}

// MaxBytes is the upload limit.
func (s *Store) MaxBytes() int64 {
	return s.cfg.MaxBytes
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Upload stores r under a fresh key for projectID and returns the key.
func (s *Store) Upload(ctx context.Context, projectID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if size > s.cfg.MaxBytes {
		return "", ErrTooLarge
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(projectID, uuid.New(), filename)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// PresignedURL returns a time-limited download link for key.
func (s *Store) PresignedURL(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", `attachment; filename="`+path.Base(key)+`"`)
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.URLExpiry, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// ObjectKey builds submissions/<project>/<id>/<name> with name reduced to a
// safe base name.
func ObjectKey(projectID string, id uuid.UUID, filename string) string {
	return KeyPrefix + sanitize(projectID) + "/" + id.String() + "/" + sanitize(path.Base(strings.ReplaceAll(filename, `\`, "/")))
}

// IsKey reports whether ref was produced by ObjectKey.
func IsKey(ref string) bool {
	return strings.HasPrefix(ref, KeyPrefix) && !strings.Contains(ref, "..")
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 120 {
		out = out[len(out)-120:]
	}
	return out
}
