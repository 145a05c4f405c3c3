package models

import "time"

// Document is anything stored in one of the document collections.
type Document interface {
	DocumentID() string
}

// DocumentList is one page of a list query. Total counts every document that
// matched the filters, ignoring limit and cursor.
type DocumentList[T any] struct {
	Total     int64 `json:"total"`
	Documents []T   `json:"documents"`
}

// StoredFile describes a blob held by the storage service.
type StoredFile struct {
	ID          string    `json:"id"`
	Bucket      string    `json:"bucket"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
