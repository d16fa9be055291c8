package storage

type WriteResult struct {
	key      string // identity within the sink
	location string
	sizeByte int64
}

func NewWriteResult(
	key string,
	location string,
	sizeByte int64,
) WriteResult {
	return WriteResult{
		key:      key,
		location: location,
		sizeByte: sizeByte,
	}
}

func (w *WriteResult) Key() string {
	return w.key
}

// Location is the filesystem path or object URI the bytes were written to.
func (w *WriteResult) Location() string {
	return w.location
}

func (w *WriteResult) SizeByte() int64 {
	return w.sizeByte
}
