package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key  string
	URL  string
	ETag string
}

// FileUploader — хранилище статики (эмблемы команд). Ключ строится
// вызывающей стороной, публичный URL — производное от ключа.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	PublicURL(key string) string
}
