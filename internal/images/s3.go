package images

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client the mirror uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror copies downloaded images into a bucket under the same relative key
// they have on disk.
type S3Mirror struct {
	client S3API
	bucket string
}

func NewS3Mirror(ctx context.Context, region, bucket string) (*S3Mirror, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3MirrorWithClient(s3.NewFromConfig(cfg), bucket), nil
}

func NewS3MirrorWithClient(client S3API, bucket string) *S3Mirror {
	return &S3Mirror{client: client, bucket: bucket}
}

func (m *S3Mirror) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}
