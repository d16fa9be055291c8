package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

// S3API is the subset of *s3.Client the sink uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // MinIO, LocalStack
	Prefix   string
	// PublicBaseURL overrides the virtual-hosted bucket URL, e.g. a CDN.
	PublicBaseURL string
}

var _ Sink = (*S3Sink)(nil)

type S3Sink struct {
	metadataSink  metadata.MetadataSink
	client        S3API
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Client loads the default AWS credential chain for cfg.Region.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Sink(metadataSink metadata.MetadataSink, client S3API, cfg S3Config) *S3Sink {
	base := strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket)
		}
	}
	return &S3Sink{
		metadataSink:  metadataSink,
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		publicBaseURL: base,
	}
}

func (s *S3Sink) objectKey(key string) string {
	return s.prefix + key
}

func (s *S3Sink) Put(ctx context.Context, key string, data []byte, contentType string) (WriteResult, failure.ClassifiedError) {
	if !ValidKey(key) {
		err := &StorageError{Message: key, Cause: ErrCauseInvalidKey, Path: key}
		s.recordError("S3Sink.Put", key, err)
		return WriteResult{}, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		storageErr := &StorageError{
			Message:   fmt.Sprintf("s3 put failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseWriteFailure,
			Path:      objectKey,
		}
		s.recordError("S3Sink.Put", key, storageErr)
		return WriteResult{}, storageErr
	}

	location := "s3://" + s.bucket + "/" + objectKey
	s.metadataSink.RecordArtifact(
		metadata.ArtifactBlob,
		location,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, key),
		},
	)
	return NewWriteResult(key, location, int64(len(data))), nil
}

func (s *S3Sink) Get(ctx context.Context, key string) ([]byte, failure.ClassifiedError) {
	objectKey := s.objectKey(key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		cause := ErrCauseReadFailure
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			cause = ErrCauseNotFound
		}
		storageErr := &StorageError{
			Message: fmt.Sprintf("s3 get failed: %v", err),
			Cause:   cause,
			Path:    objectKey,
		}
		s.recordError("S3Sink.Get", key, storageErr)
		return nil, storageErr
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		storageErr := &StorageError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseReadFailure,
			Path:      objectKey,
		}
		s.recordError("S3Sink.Get", key, storageErr)
		return nil, storageErr
	}
	return data, nil
}

func (s *S3Sink) URL(key string) string {
	return joinURL(s.publicBaseURL, s.objectKey(key))
}

func (s *S3Sink) recordError(action string, key string, err *StorageError) {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		action,
		mapStorageErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, err.Path),
			metadata.NewAttr(metadata.AttrField, key),
		},
	)
}
