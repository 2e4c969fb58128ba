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

	"workorder-tracker/internal/domain"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	out   *manager.UploadOutput
	err   error
}

func (f *fakePutter) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	if input.Body != nil {
		b, _ := io.ReadAll(input.Body)
		f.body = string(b)
	}
	return f.out, f.err
}

func TestS3Upload_PublicBaseURL(t *testing.T) {
	putter := &fakePutter{out: &manager.UploadOutput{Location: "https://s3.example/bucket/x"}}
	svc := NewS3ServiceWithUploader(putter, S3Config{
		Bucket:        "photos",
		KeyPrefix:     "/comments/",
		PublicBaseURL: "https://cdn.example.com/",
	})

	res, err := svc.Upload(context.Background(), strings.NewReader("jpeg"), UploadOptions{
		Filename:    "../../etc/pump room #2.jpg",
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)

	assert.Equal(t, "photos", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "image/jpeg", aws.ToString(putter.input.ContentType))
	assert.Equal(t, "jpeg", putter.body)
	assert.True(t, strings.HasPrefix(res.Key, "comments/"))
	assert.True(t, strings.HasSuffix(res.Key, "-pump-room-2.jpg"))
	assert.NotContains(t, res.Key, "..")
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
}

func TestS3Upload_FallsBackToLocation(t *testing.T) {
	putter := &fakePutter{out: &manager.UploadOutput{Location: "https://s3.example/photos/k"}}
	svc := NewS3ServiceWithUploader(putter, S3Config{Bucket: "photos"})

	res, err := svc.Upload(context.Background(), strings.NewReader("x"), UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example/photos/k", res.URL)
	assert.True(t, strings.HasSuffix(res.Key, "-upload"))
}

func TestS3Upload_Errors(t *testing.T) {
	svc := NewS3ServiceWithUploader(&fakePutter{}, S3Config{})
	_, err := svc.Upload(context.Background(), strings.NewReader("x"), UploadOptions{})
	require.ErrorIs(t, err, domain.ErrUpload)

	svc = NewS3ServiceWithUploader(&fakePutter{err: errors.New("access denied")}, S3Config{Bucket: "photos"})
	_, err = svc.Upload(context.Background(), strings.NewReader("x"), UploadOptions{Filename: "a.png"})
	require.ErrorIs(t, err, domain.ErrUpload)
	assert.Contains(t, err.Error(), "access denied")
}
