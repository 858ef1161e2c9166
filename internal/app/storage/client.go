package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
	"duochat/internal/pkg/randx"
)

// KeyPrefix is the bucket folder attachments are written to.
const KeyPrefix = "attachments"

// S3Config holds the connection settings of an S3-compatible bucket.
type S3Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string

	// PublicBaseURL, when set, is joined with the object key to form the content URL.
	// Otherwise the location reported by the upload is used.
	PublicBaseURL string
}

// objectPutter is the part of manager.Uploader used here.
type objectPutter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// s3Uploader uploads attachments straight into the bucket.
type s3Uploader struct {
	cfg      S3Config
	uploader objectPutter
	logger   zerolog.Logger
}

// newS3Uploader builds the S3 client with static credentials and a custom, path-style endpoint.
func newS3Uploader(ctx context.Context, cfg S3Config) (*s3Uploader, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load S3 client configuration: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &s3Uploader{
		cfg:      cfg,
		uploader: manager.NewUploader(client),
		logger:   logx.Component("s3_uploader"),
	}, nil
}

// ObjectKey builds the bucket key for an attachment named fileName.
func ObjectKey(fileName string) string {
	return fmt.Sprintf("%s/%s%s", KeyPrefix, randx.MessageID(), strings.ToLower(filepath.Ext(fileName)))
}

func (u *s3Uploader) Upload(ctx context.Context, f File) (string, error) {
	key := ObjectKey(f.Name)

	out, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.BucketName),
		Key:         aws.String(key),
		Body:        f.Body,
		ContentType: aws.String(f.MimeType),
	})
	if err != nil {
		u.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed")
		return "", errs.Wrap(err, errs.ErrFileStorageFailed)
	}

	u.logger.Debug().Str("key", key).Int64("size", f.Size).Msg("Attachment uploaded")

	if u.cfg.PublicBaseURL != "" {
		return strings.TrimRight(u.cfg.PublicBaseURL, "/") + "/" + key, nil
	}

	return out.Location, nil
}
