package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ashwinibhardwaj/sqlassist/internal/logging"
	"github.com/ashwinibhardwaj/sqlassist/pkg/domain"
)

// ErrObjectNotFound is returned by an objectClient for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// S3Config points the mirror at an S3-compatible bucket.
type S3Config struct {
	Endpoint         string `yaml:"endpoint"`
	Region           string `yaml:"region"`
	Bucket           string `yaml:"bucket"`
	AccessKeyID      string `yaml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key"`
	UseSSL           bool   `yaml:"use_ssl"`
	Prefix           string `yaml:"prefix"`
	AutoCreateBucket bool   `yaml:"auto_create_bucket"`
}

type objectClient interface {
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64) error
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, region string) error
}

// Mirror implements ports.UploadStore with a local working copy backed by a bucket.
// Dumps uploaded through another replica are fetched on first Resolve.
type Mirror struct {
	local  *Dir
	client objectClient
	bucket string
	prefix string
	logger *slog.Logger
}

// NewMirror connects to the bucket and keeps working copies under local.
func NewMirror(ctx context.Context, local *Dir, cfg S3Config, logger *slog.Logger) (*Mirror, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	mc, err := newMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	m, err := newMirrorWithClient(local, cfg.Bucket, cfg.Prefix, mc, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreateBucket {
		if err := m.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func newMirrorWithClient(local *Dir, bucket, prefix string, c objectClient, logger *slog.Logger) (*Mirror, error) {
	if local == nil {
		return nil, fmt.Errorf("local directory is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mirror{
		local:  local,
		client: c,
		bucket: strings.TrimSpace(bucket),
		prefix: cleanPrefix(prefix),
		logger: logger,
	}, nil
}

func (m *Mirror) Save(ctx context.Context, filename string, content io.Reader) (string, error) {
	name, err := m.local.Save(ctx, filename, content)
	if err != nil {
		return "", err
	}

	localPath, err := m.local.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("uploads: reopen %s: %w", name, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("uploads: stat %s: %w", name, err)
	}

	if err := m.client.Put(ctx, m.bucket, m.key(name), f, info.Size()); err != nil {
		return "", fmt.Errorf("put object %q: %w", m.key(name), err)
	}
	return name, nil
}

func (m *Mirror) Resolve(ctx context.Context, filename string) (string, error) {
	localPath, err := m.local.Resolve(ctx, filename)
	if err == nil {
		return localPath, nil
	}
	if !errors.Is(err, domain.ErrSourceMissing) {
		return "", err
	}

	name := SecureFilename(filename)
	reader, err := m.client.Get(ctx, m.bucket, m.key(name))
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return "", fmt.Errorf("%w: %s", domain.ErrSourceMissing, filename)
		}
		return "", fmt.Errorf("get object %q: %w", m.key(name), err)
	}
	defer reader.Close()

	m.logger.InfoContext(ctx, "fetching dump from object storage", "filename", name, "bucket", m.bucket)
	if _, err := m.local.Save(ctx, name, reader); err != nil {
		return "", err
	}
	return m.local.Resolve(ctx, name)
}

func (m *Mirror) List(ctx context.Context) ([]string, error) {
	local, err := m.local.List(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := m.client.List(ctx, m.bucket, m.prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	seen := make(map[string]bool, len(local)+len(keys))
	for _, name := range local {
		seen[name] = true
	}
	for _, key := range keys {
		name := path.Base(key)
		if strings.EqualFold(path.Ext(name), AllowedExtension) {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mirror) Delete(ctx context.Context, filename string) error {
	if err := m.local.Delete(ctx, filename); err != nil {
		return err
	}
	key := m.key(SecureFilename(filename))
	if err := m.client.Delete(ctx, m.bucket, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (m *Mirror) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.CreateBucket(ctx, m.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", m.bucket, err)
	}
	return nil
}

func (m *Mirror) key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func newMinioClient(cfg S3Config) (*minioClient, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	clientImpl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &minioClient{client: clientImpl}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint URL: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint host is required")
	}
	return parsed.Host, parsed.Scheme == "https" || useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64) error {
	_, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: "application/sql"})
	return mapMinioErr(err)
}

func (m *minioClient) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapMinioErr(err)
	}
	return obj, nil
}

func (m *minioClient) Delete(ctx context.Context, bucket, key string) error {
	return mapMinioErr(m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (m *minioClient) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if prefix != "" {
		opts.Prefix = prefix + "/"
	}
	var keys []string
	for obj := range m.client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, mapMinioErr(obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, mapMinioErr(err)
	}
	return exists, nil
}

func (m *minioClient) CreateBucket(ctx context.Context, bucket, region string) error {
	return mapMinioErr(m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}))
}

func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	var response minio.ErrorResponse
	if errors.As(err, &response) {
		switch response.Code {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return ErrObjectNotFound
		}
	}
	return err
}
