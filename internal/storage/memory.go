package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"snapgram/internal/models"

	"github.com/google/uuid"
)

type memoryFile struct {
	meta models.StoredFile
	data []byte
}

// MemoryStore is an in-process BlobStore used when no object storage is
// configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	bucket string
	files  map[string]memoryFile
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, files: make(map[string]memoryFile)}
}

func (s *MemoryStore) CreateFile(_ context.Context, upload Upload) (*models.StoredFile, error) {
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return nil, models.NewValidationError("could not read upload: " + err.Error())
	}
	meta := models.StoredFile{
		ID:          uuid.NewString(),
		Bucket:      s.bucket,
		Name:        upload.Name,
		ContentType: upload.ContentType,
		SizeBytes:   int64(len(data)),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.files[meta.ID] = memoryFile{meta: meta, data: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryStore) GetFile(_ context.Context, fileID string) (*models.StoredFile, io.ReadCloser, error) {
	s.mu.RLock()
	f, ok := s.files[fileID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, models.NewNotFoundError("File", fileID)
	}
	meta := f.meta
	return &meta, io.NopCloser(bytes.NewReader(f.data)), nil
}

func (s *MemoryStore) DeleteFile(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[fileID]; !ok {
		return models.NewNotFoundError("File", fileID)
	}
	delete(s.files, fileID)
	return nil
}

// Len reports how many files are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
