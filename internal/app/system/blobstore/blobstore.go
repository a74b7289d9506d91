// Package blobstore stores idea documents in an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO) and returns their public URLs.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Uploader is what the submission workflow needs from blob storage.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
}

// Object is a stored blob.
type Object struct {
	Key  string
	URL  string
	ETag string
}

// Config holds the credential triple plus addressing for the bucket.
type Config struct {
	Endpoint        string // empty for AWS; https://<account>.r2.cloudflarestorage.com for R2
	Region          string // "auto" for R2
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	UploadTimeout   time.Duration
}

// Validate reports the first missing required field.
func (c Config) Validate() error {
	switch {
	case c.AccessKeyID == "":
		return errors.New("blob storage access key id is required")
	case c.SecretAccessKey == "":
		return errors.New("blob storage secret access key is required")
	case c.Bucket == "":
		return errors.New("blob storage bucket is required")
	case c.PublicBaseURL == "":
		return errors.New("blob storage public base URL is required")
	}
	if _, err := url.Parse(c.PublicBaseURL); err != nil {
		return fmt.Errorf("blob storage public base URL: %w", err)
	}
	return nil
}

// S3 is an Uploader backed by the AWS SDK.
type S3 struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	timeout       time.Duration
}

// NewS3 builds an S3 uploader from static credentials.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws sdk config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	timeout := cfg.UploadTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &S3{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: cfg.PublicBaseURL,
		timeout:       timeout,
	}, nil
}

// Upload puts body under key. The upload has its own timeout on top of ctx.
func (u *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	out, err := u.client.PutObject(ctx, in)
	if err != nil {
		return Object{}, fmt.Errorf("upload object %s: %w", key, err)
	}

	obj := Object{Key: key, URL: PublicURL(u.publicBaseURL, key)}
	if out.ETag != nil {
		// S3-compatible APIs quote the ETag.
		obj.ETag = strings.Trim(*out.ETag, `"`)
	}
	return obj, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (u *S3) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// PublicURL joins base and key with exactly one slash.
func PublicURL(base, key string) string {
	if base == "" || key == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// ObjectKey builds a unique key under folder:
// folder/<8 hex chars>-<sanitized filename>.
func ObjectKey(folder, filename string) string {
	name := fmt.Sprintf("%s-%s", uuid.New().String()[:8], SanitizeFilename(filename))
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// SanitizeFilename keeps the base name, replaces anything outside
// [A-Za-z0-9._-] with '_', and caps the length at 100 bytes while
// preserving a short extension.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '.' || c == '-' || c == '_'
}
