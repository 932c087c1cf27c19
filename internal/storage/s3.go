package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Compile-time check that S3Source implements ObjectSource.
var _ ObjectSource = (*S3Source)(nil)

// S3Config holds the configuration for the S3 source.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// S3Source reads inbound media objects from an S3 bucket. Object sizes come
// from HeadObject so oversized inputs are rejected before any transfer.
type S3Source struct {
	client *s3.Client
	bucket string
}

// NewS3Source creates a new S3Source from cfg.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
	}, nil
}

// Bucket returns the configured bucket name.
func (s *S3Source) Bucket() string {
	return s.bucket
}

// FetchFileRef issues a HeadObject for key and reports its content length.
func (s *S3Source) FetchFileRef(ctx context.Context, key string) (FileRef, error) {
	if key == "" {
		return FileRef{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return FileRef{}, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return FileRef{}, fmt.Errorf("head object %s: %w", key, err)
	}
	return FileRef{Path: key, Size: aws.ToInt64(out.ContentLength)}, nil
}

// DownloadToMemory fetches the object body into memory.
func (s *S3Source) DownloadToMemory(ctx context.Context, ref FileRef) ([]byte, error) {
	body, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", ref.Path, err)
	}
	return data, nil
}

// DownloadTo streams the object body into w.
func (s *S3Source) DownloadTo(ctx context.Context, ref FileRef, w io.Writer) error {
	body, err := s.open(ctx, ref)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("copy object %s: %w", ref.Path, err)
	}
	return nil
}

func (s *S3Source) open(ctx context.Context, ref FileRef) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, ref.Path)
		}
		return nil, fmt.Errorf("get object %s: %w", ref.Path, err)
	}
	return out.Body, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
