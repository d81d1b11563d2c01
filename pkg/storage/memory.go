package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ FileStore = (*MemoryStore)(nil)

// MemoryStore 进程内附件存储
type MemoryStore struct {
	mu    sync.Mutex
	files map[string]memFile
}

type memFile struct {
	info FileInfo
	data []byte
}

// NewMemoryStore 创建内存附件存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]memFile)}
}

func (m *MemoryStore) Upload(ctx context.Context, filename string, meta FileMeta, src io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	info := FileInfo{
		FileID:     primitive.NewObjectID().Hex(),
		Filename:   filename,
		Length:     int64(len(data)),
		UploadedAt: time.Now().UTC(),
		Meta:       meta,
	}
	m.mu.Lock()
	m.files[info.FileID] = memFile{info: info, data: data}
	m.mu.Unlock()
	return &info, nil
}

func (m *MemoryStore) Download(ctx context.Context, fileID string, dst io.Writer) (*FileInfo, error) {
	m.mu.Lock()
	f, ok := m.files[fileID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	if _, err := io.Copy(dst, bytes.NewReader(f.data)); err != nil {
		return nil, err
	}
	info := f.info
	return &info, nil
}

func (m *MemoryStore) Info(ctx context.Context, fileID string) (*FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return nil, ErrFileNotFound
	}
	info := f.info
	return &info, nil
}

func (m *MemoryStore) Delete(ctx context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[fileID]; !ok {
		return ErrFileNotFound
	}
	delete(m.files, fileID)
	return nil
}

func (m *MemoryStore) ListByParent(ctx context.Context, kind, parentID string) ([]FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FileInfo, 0)
	for _, f := range m.files {
		if f.info.Meta.ParentKind == kind && f.info.Meta.ParentID == parentID {
			out = append(out, f.info)
		}
	}
	return out, nil
}
