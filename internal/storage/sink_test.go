package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/webstory-importer/internal/metadata"
	"github.com/rohmanhakim/webstory-importer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSink_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	sink := &metadataSinkMock{}
	local := storage.NewLocalSink(sink, dir, "https://media.example.com/media/")

	result, err := local.Put(context.Background(), "images/wagtails-da39a3e.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.Nil(t, err)

	assert.Equal(t, "images/wagtails-da39a3e.jpg", result.Key())
	assert.Equal(t, filepath.Join(dir, "images", "wagtails-da39a3e.jpg"), result.Location())
	assert.Equal(t, int64(10), result.SizeByte())

	onDisk, readErr := os.ReadFile(result.Location())
	require.NoError(t, readErr)
	assert.Equal(t, "jpeg-bytes", string(onDisk))

	data, err := local.Get(context.Background(), "images/wagtails-da39a3e.jpg")
	require.Nil(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	assert.Equal(t, "https://media.example.com/media/images/wagtails-da39a3e.jpg", local.URL("images/wagtails-da39a3e.jpg"))
	assert.Equal(t, []string{result.Location()}, sink.artifacts)
}

func TestLocalSink_PutOverwrites(t *testing.T) {
	local := storage.NewLocalSink(&metadataSinkMock{}, t.TempDir(), "")

	_, err := local.Put(context.Background(), "a.bin", []byte("first"), "")
	require.Nil(t, err)
	_, err = local.Put(context.Background(), "a.bin", []byte("second"), "")
	require.Nil(t, err)

	data, err := local.Get(context.Background(), "a.bin")
	require.Nil(t, err)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, "/a.bin", local.URL("a.bin"))
}

func TestLocalSink_GetMissing(t *testing.T) {
	sink := &metadataSinkMock{}
	local := storage.NewLocalSink(sink, t.TempDir(), "")

	_, err := local.Get(context.Background(), "nope.jpg")
	require.NotNil(t, err)

	var storageErr *storage.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, storage.ErrCauseNotFound, storageErr.Cause)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseStorageFailure}, sink.errorCauses)
}

func TestLocalSink_RejectsEscapingKeys(t *testing.T) {
	local := storage.NewLocalSink(&metadataSinkMock{}, t.TempDir(), "")

	for _, key := range []string{"", "/etc/passwd", "../outside", "a/../../b", "a//b", `a\b`, "."} {
		t.Run(key, func(t *testing.T) {
			_, err := local.Put(context.Background(), key, []byte("x"), "")
			require.NotNil(t, err)

			var storageErr *storage.StorageError
			require.True(t, errors.As(err, &storageErr))
			assert.Equal(t, storage.ErrCauseInvalidKey, storageErr.Cause)
		})
	}
}

func TestValidKey(t *testing.T) {
	assert.True(t, storage.ValidKey("images/a.jpg"))
	assert.True(t, storage.ValidKey("a.jpg"))
	assert.False(t, storage.ValidKey("images/./a.jpg"))
	assert.False(t, storage.ValidKey("images/"))
}
