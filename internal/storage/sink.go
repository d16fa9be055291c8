package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/pkg/failure"
	"github.com/rohmanhakim/webstory-importer/pkg/fileutil"
)

/*
Responsibilities
- Persist imported asset bytes under a slash separated key
- Read them back
- Produce the public URL an asset is served from

Output Characteristics
- Keys are relative and never escape the sink root
- Writes are atomic and overwrite-safe
*/

type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (WriteResult, failure.ClassifiedError)
	Get(ctx context.Context, key string) ([]byte, failure.ClassifiedError)
	URL(key string) string
}

var _ Sink = (*LocalSink)(nil)

// LocalSink stores blobs below rootDir and serves them from baseURL.
type LocalSink struct {
	metadataSink metadata.MetadataSink
	rootDir      string
	baseURL      string
}

func NewLocalSink(
	metadataSink metadata.MetadataSink,
	rootDir string,
	baseURL string,
) *LocalSink {
	return &LocalSink{
		metadataSink: metadataSink,
		rootDir:      rootDir,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *LocalSink) Put(ctx context.Context, key string, data []byte, contentType string) (WriteResult, failure.ClassifiedError) {
	target, err := s.write(key, data)
	if err != nil {
		s.recordError("LocalSink.Put", key, err)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(
		metadata.ArtifactBlob,
		target,
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, key),
		},
	)
	return NewWriteResult(key, target, int64(len(data))), nil
}

func (s *LocalSink) write(key string, data []byte) (string, *StorageError) {
	if !ValidKey(key) {
		return "", &StorageError{Message: key, Cause: ErrCauseInvalidKey, Path: key}
	}
	target := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if err := fileutil.WriteFileAtomic(target, data); err != nil {
		var fileErr *fileutil.FileError
		cause := ErrCauseWriteFailure
		if errors.As(err, &fileErr) && fileErr.Cause == fileutil.ErrCauseDiskFull {
			cause = ErrCauseDiskFull
		}
		return "", &StorageError{
			Message:   err.Error(),
			Retryable: err.Severity() == failure.SeverityRecoverable,
			Cause:     cause,
			Path:      target,
		}
	}
	return target, nil
}

func (s *LocalSink) Get(ctx context.Context, key string) ([]byte, failure.ClassifiedError) {
	if !ValidKey(key) {
		err := &StorageError{Message: key, Cause: ErrCauseInvalidKey, Path: key}
		s.recordError("LocalSink.Get", key, err)
		return nil, err
	}
	target := filepath.Join(s.rootDir, filepath.FromSlash(key))
	data, err := os.ReadFile(target)
	if err != nil {
		cause := ErrCauseReadFailure
		if errors.Is(err, fs.ErrNotExist) {
			cause = ErrCauseNotFound
		}
		storageErr := &StorageError{Message: err.Error(), Cause: cause, Path: target}
		s.recordError("LocalSink.Get", key, storageErr)
		return nil, storageErr
	}
	return data, nil
}

func (s *LocalSink) URL(key string) string {
	return joinURL(s.baseURL, key)
}

func (s *LocalSink) recordError(action string, key string, err *StorageError) {
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

// ValidKey reports whether key is a clean, relative, slash separated path
// that stays inside the sink root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return base + "/" + key
}
