// Package storage bridges the local filesystem and the object store. Matched
// images are shared by uploading them under a fresh shares/ prefix with
// public read access; the reference gallery is filled by downloading an
// existing share into a local directory.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/snapmatch/snapmatch/internal/apperr"
	"github.com/snapmatch/snapmatch/internal/config"
)

const sharePrefix = "shares/"

// Bridge wraps a MinIO client with the share-folder conventions.
type Bridge struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// credentialsFile is the shape of the uploaded credentials artifact. When the
// file exists at the configured path it overrides the env credentials.
type credentialsFile struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// loadCredentials prefers the uploaded credentials artifact over env config.
func loadCredentials(cfg config.StorageConfig, credsPath string) (string, string) {
	data, err := os.ReadFile(credsPath) //nolint:gosec // fixed path from config
	if err != nil {
		return cfg.AccessKey, cfg.SecretKey
	}
	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil || creds.AccessKey == "" {
		log.Printf("ignoring malformed credentials file %s", credsPath)
		return cfg.AccessKey, cfg.SecretKey
	}
	return creds.AccessKey, creds.SecretKey
}

// New creates a bridge and makes sure the bucket exists with public read
// access on the shares/ prefix. A bucket setup failure is logged, not fatal;
// uploads will surface the real error when attempted.
func New(ctx context.Context, cfg config.StorageConfig, credsPath string) (*Bridge, error) {
	accessKey, secretKey := loadCredentials(cfg, credsPath)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	b := &Bridge{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}

	if err := b.ensureBucket(ctx); err != nil {
		log.Printf("Warning: object store bucket setup failed: %v", err)
	}
	return b, nil
}

func (b *Bridge) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		log.Printf("Created bucket: %s", b.bucket)
	}

	// Anonymous read on shares/ only; everything else stays private.
	policy := fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/%s*"]
    }
  ]
}`, b.bucket, sharePrefix)
	if err := b.client.SetBucketPolicy(ctx, b.bucket, policy); err != nil {
		return fmt.Errorf("setting bucket policy: %w", err)
	}
	return nil
}

// ShareFiles uploads the given local files into a new share folder and
// returns its public link. Any single upload failure aborts the whole
// operation and no link is returned.
func (b *Bridge) ShareFiles(ctx context.Context, folderName string, paths []string) (string, error) {
	shareID := folderName + "-" + uuid.NewString()
	prefix := sharePrefix + shareID + "/"

	for _, p := range paths {
		objectName := prefix + filepath.Base(p)
		opts := minio.PutObjectOptions{ContentType: contentTypeFor(filepath.Ext(p))}
		if _, err := b.client.FPutObject(ctx, b.bucket, objectName, p, opts); err != nil {
			return "", apperr.Wrap(apperr.Transport,
				fmt.Sprintf("uploading %s failed", filepath.Base(p)), err)
		}
	}

	return fmt.Sprintf("%s/%s/%s", b.publicURL, b.bucket, prefix), nil
}

// shareMarker is the substring every valid share link must contain.
func shareMarker(bucket string) string {
	return "/" + bucket + "/" + sharePrefix
}

// ParseShareLink extracts the object prefix from a share link. The link must
// contain the bucket's share marker; anything else is a validation error, a
// cheap reject before any network call.
func ParseShareLink(link, bucket string) (string, error) {
	marker := shareMarker(bucket)
	idx := strings.Index(link, marker)
	if idx < 0 {
		return "", apperr.New(apperr.Validation, "link does not look like a share link")
	}
	prefix := strings.TrimLeft(link[idx+len(marker)-len(sharePrefix):], "/")
	prefix = strings.TrimRight(prefix, "/") + "/"
	if prefix == sharePrefix || !strings.HasPrefix(prefix, sharePrefix) {
		return "", apperr.New(apperr.Validation, "share link is missing a folder id")
	}
	return prefix, nil
}

// ShareObjects lists the object keys under a share link's prefix.
func (b *Bridge) ShareObjects(ctx context.Context, link string) ([]string, error) {
	prefix, err := ParseShareLink(link, b.bucket)
	if err != nil {
		return nil, err
	}

	var keys []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, apperr.Wrap(apperr.Transport, "listing share failed", obj.Err)
		}
		if obj.Key != "" && !strings.HasSuffix(obj.Key, "/") {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, apperr.New(apperr.NotFound, "share contains no files")
	}
	return keys, nil
}

// FetchObject downloads one object into dir, named after its base key.
func (b *Bridge) FetchObject(ctx context.Context, key, dir string) error {
	local := filepath.Join(dir, path.Base(key))
	if err := b.client.FGetObject(ctx, b.bucket, key, local, minio.GetObjectOptions{}); err != nil {
		return apperr.Wrap(apperr.Transport, fmt.Sprintf("downloading %s failed", path.Base(key)), err)
	}
	return nil
}

// DownloadShare fetches every file of a share into dir and returns how many
// files were written. Bad links fail before any transfer starts.
func (b *Bridge) DownloadShare(ctx context.Context, link, dir string) (int, error) {
	keys, err := b.ShareObjects(ctx, link)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("creating target directory: %w", err)
	}

	for i, key := range keys {
		if err := b.FetchObject(ctx, key, dir); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

func contentTypeFor(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
