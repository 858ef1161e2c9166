/*
Package storage resolves message attachments to content URLs.

An Uploader either posts the file to the chat API's upload endpoint or puts it
directly into an S3-compatible bucket; both return the URL that becomes the
message content.
*/
package storage

import (
	"context"
	"fmt"
	"io"

	"duochat/internal/configs"
)

// File is an attachment waiting to be uploaded.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Uploader stores a file and returns the URL it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// MultipartPoster is the slice of the chat API client used for uploads.
type MultipartPoster interface {
	Upload(ctx context.Context, fileName, mimeType string, body io.Reader) (string, error)
}

// apiUploader sends files through the chat API.
type apiUploader struct {
	api MultipartPoster
}

// NewAPIUploader returns an Uploader backed by the chat API's upload endpoint.
func NewAPIUploader(api MultipartPoster) Uploader {
	return &apiUploader{api: api}
}

func (u *apiUploader) Upload(ctx context.Context, f File) (string, error) {
	return u.api.Upload(ctx, f.Name, f.MimeType, f.Body)
}

// NewUploader picks the Uploader configured by cfg.UploadBackend.
func NewUploader(ctx context.Context, cfg *configs.AppConfig, api MultipartPoster) (Uploader, error) {
	switch cfg.UploadBackend {
	case configs.UploadBackendS3:
		return newS3Uploader(ctx, S3Config{
			BucketName:      cfg.S3BucketName,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	case configs.UploadBackendAPI, "":
		return NewAPIUploader(api), nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
	}
}
