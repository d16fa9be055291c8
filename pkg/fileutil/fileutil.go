package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rohmanhakim/webstory-importer/pkg/failure"
)

// GetFileExtension extracts the file extension from a path, or empty string if none
func GetFileExtension(p string) string {
	ext := filepath.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// BaseNameWithoutExt returns the last element of a slash separated path with
// its extension removed: "/media/My Photo.jpg" gives "My Photo".
func BaseNameWithoutExt(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// EnsureDir check if a given directory plus the following path exist, then create one if not
func EnsureDir(dir string, p ...string) failure.ClassifiedError {
	targetPath := append([]string{dir}, p...)

	if err := os.MkdirAll(filepath.Join(targetPath...), 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to target and renames
// it into place, so readers never observe a partially written file.
func WriteFileAtomic(target string, data []byte) failure.ClassifiedError {
	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return writeError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return writeError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return writeError(err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return writeError(err)
	}
	return nil
}

func writeError(err error) *FileError {
	if errors.Is(err, syscall.ENOSPC) {
		return &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseDiskFull,
		}
	}
	return &FileError{
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseWriteError,
	}
}
