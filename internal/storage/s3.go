package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"workorder-tracker/internal/domain"
)

// ObjectPutter is the subset of manager.Uploader used here.
type ObjectPutter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Config struct {
	Bucket    string
	KeyPrefix string
	// PublicBaseURL, when set, is joined with the object key to form the returned URL.
	PublicBaseURL string
}

// S3Service uploads photos to Amazon S3 (or compatible APIs).
type S3Service struct {
	uploader ObjectPutter
	cfg      S3Config
}

func NewS3Service(client *s3.Client, cfg S3Config) *S3Service {
	return NewS3ServiceWithUploader(manager.NewUploader(client), cfg)
}

func NewS3ServiceWithUploader(uploader ObjectPutter, cfg S3Config) *S3Service {
	return &S3Service{
		uploader: uploader,
		cfg:      cfg,
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *S3Service) Upload(ctx context.Context, body io.Reader, opts UploadOptions) (*UploadResult, error) {
	if s.cfg.Bucket == "" {
		return nil, domain.E(domain.KindUpload, "storage bucket is not configured", nil)
	}

	key := s.objectKey(opts.Filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
		ACL:    types.ObjectCannedACLPublicRead,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return nil, domain.E(domain.KindUpload, "", fmt.Errorf("upload %s: %w", key, err))
	}

	url := ""
	if base := strings.TrimRight(s.cfg.PublicBaseURL, "/"); base != "" {
		url = base + "/" + key
	} else if out != nil {
		url = out.Location
	}
	return &UploadResult{Key: key, URL: url}, nil
}

func (s *S3Service) objectKey(filename string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(filename), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "upload"
	}
	key := uuid.NewString() + "-" + name
	if prefix := strings.Trim(s.cfg.KeyPrefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}

var _ Uploader = (*S3Service)(nil)
