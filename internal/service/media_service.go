package service

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/models"
	"go.uber.org/zap"
)

// MediaStorage stores uploaded media and returns stable public URLs.
type MediaStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Upload.
	Delete(ctx context.Context, mediaURL string) error
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Storage keeps media in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
}

func NewR2Storage(ctx context.Context, cfg config.R2) (*R2Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return newR2Storage(client, cfg.BucketName, cfg.PublicURL), nil
}

func newR2Storage(client objectAPI, bucket, publicURL string) *R2Storage {
	return &R2Storage{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (r *R2Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		zap.S().Infow("r2 upload failed", "key", key, "error", err)
		return "", err
	}
	return r.publicURL + "/" + key, nil
}

func (r *R2Storage) Delete(ctx context.Context, mediaURL string) error {
	key := r.KeyFromURL(mediaURL)
	if key == "" {
		return fmt.Errorf("no object key in %q", mediaURL)
	}

	input := &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}
	if _, err := r.client.DeleteObject(ctx, input); err != nil {
		zap.S().Infow("r2 delete failed", "key", key, "error", err)
		return err
	}
	return nil
}

// KeyFromURL derives the object key from a public media URL. URLs outside
// the bucket's public base fall back to their last path segment.
func (r *R2Storage) KeyFromURL(mediaURL string) string {
	if r.publicURL != "" && strings.HasPrefix(mediaURL, r.publicURL+"/") {
		return strings.TrimPrefix(mediaURL, r.publicURL+"/")
	}
	u, err := url.Parse(mediaURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return ""
	}
	return path.Base(u.Path)
}

// DetectMediaKind sniffs the content type of data. Only images and videos
// are accepted; gif is reported as its own kind.
func DetectMediaKind(data []byte) (models.MediaKind, string, bool) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", "", false
	}

	switch {
	case kind.Extension == "gif":
		return models.MediaKindGif, kind.MIME.Value, true
	case kind.MIME.Type == "image":
		return models.MediaKindImage, kind.MIME.Value, true
	case kind.MIME.Type == "video":
		return models.MediaKindVideo, kind.MIME.Value, true
	}
	return "", "", false
}
