package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const defaultS3Region = "us-east-1"

// S3Backend implements Backend using the AWS SDK against S3 or any
// S3-compatible endpoint.
type S3Backend struct {
	client    *s3.Client
	presigner *s3.PresignClient
	region    string
}

// NewS3Backend creates an S3 client. When an endpoint is configured the
// client uses it with path-style addressing.
func NewS3Backend(cfg Config) (*S3Backend, error) {
	region := cfg.GetStorageRegion()
	if region == "" {
		region = defaultS3Region
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = region
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.GetStorageAccessKey(),
				cfg.GetStorageSecretKey(),
				"",
			)
		},
	}

	if endpoint := endpointURL(cfg.GetStorageEndpoint(), cfg.GetStorageUseSSL()); endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.New(s3.Options{}, opts...)

	return &S3Backend{
		client:    client,
		presigner: s3.NewPresignClient(client),
		region:    region,
	}, nil
}

// BucketExists reports whether the bucket exists.
func (b *S3Backend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, err
}

// MakeBucket creates the bucket in the configured region.
func (b *S3Backend) MakeBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if b.region != defaultS3Region {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}
	_, err := b.client.CreateBucket(ctx, input)
	return err
}

// PutObject uploads body to bucket/key. Non-seekable bodies are buffered so
// the request can be signed.
func (b *S3Backend) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		seeker = bytes.NewReader(data)
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          seeker,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	return err
}

// RemoveObject deletes bucket/key.
func (b *S3Backend) RemoveObject(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && isS3NotFound(err) {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}

// PresignGetObject returns a signed GET URL valid for expiry.
func (b *S3Backend) PresignGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	req, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = expiry
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

// endpointURL turns a configured endpoint into the absolute URL the SDK expects.
func endpointURL(endpoint string, useSSL bool) string {
	host, secure := splitEndpoint(endpoint, useSSL)
	if host == "" {
		return ""
	}
	if secure {
		return "https://" + host
	}
	return "http://" + host
}

// Compile-time check that S3Backend implements Backend.
var _ Backend = (*S3Backend)(nil)
