package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duochat/internal/configs"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/logx"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	raw, _ := io.ReadAll(input.Body)
	f.body = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Location: "https://s3.local/bucket/" + aws.ToString(input.Key)}, nil
}

type fakePoster struct {
	name string
}

func (f *fakePoster) Upload(_ context.Context, fileName, _ string, _ io.Reader) (string, error) {
	f.name = fileName
	return "http://api.local/files/" + fileName, nil
}

func TestS3UploaderPublicBaseURL(t *testing.T) {
	putter := &fakePutter{}
	u := &s3Uploader{
		cfg:      S3Config{BucketName: "chat", PublicBaseURL: "https://cdn.local/"},
		uploader: putter,
		logger:   logx.Component("test"),
	}

	url, err := u.Upload(context.Background(), File{Name: "Cat.PNG", MimeType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)

	key := aws.ToString(putter.input.Key)
	assert.True(t, strings.HasPrefix(key, KeyPrefix+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "chat", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "png", putter.body)
	assert.Equal(t, "https://cdn.local/"+key, url)
}

func TestS3UploaderLocationAndError(t *testing.T) {
	putter := &fakePutter{}
	u := &s3Uploader{cfg: S3Config{BucketName: "chat"}, uploader: putter, logger: logx.Component("test")}

	url, err := u.Upload(context.Background(), File{Name: "a.gif", MimeType: "image/gif", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://s3.local/bucket/attachments/"))

	putter.err = errors.New("access denied")
	_, err = u.Upload(context.Background(), File{Name: "a.gif", MimeType: "image/gif", Body: strings.NewReader("x")})
	assert.True(t, errs.Is(err, errs.ErrFileStorageFailed))
}

func TestNewUploaderAPI(t *testing.T) {
	poster := &fakePoster{}
	u, err := NewUploader(context.Background(), configs.Default(), poster)
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), File{Name: "a.png", Body: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "a.png", poster.name)
	assert.Equal(t, "http://api.local/files/a.png", url)
}
