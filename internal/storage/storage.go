package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/livebook-backend/internal/config"
)

// FileStore - хранилище файлов сдачи работ. В БД попадает только ключ.
type FileStore interface {
	Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Backend() string
}

// New выбирает реализацию по STORAGE_BACKEND.
func New(cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseBucket), nil
	case "s3":
		return NewS3Store(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
	case "", "local":
		return NewLocalStore(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	}
	return nil, fmt.Errorf("storage: неизвестный бэкенд %q", cfg.Backend)
}

// DeliverableKey строит ключ объекта: bookings/{booking}/{uuid}{ext}.
// Версия в ключ не входит, она назначается уже в транзакции.
func DeliverableKey(bookingID uuid.UUID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(sanitizeFilename(fileName)))
	return path.Join("bookings", bookingID.String(), uuid.NewString()+ext)
}

// DetectMIME определяет тип по магическим байтам и возвращает позицию чтения в начало.
// Если сигнатура неизвестна, используется заявленный клиентом тип.
func DetectMIME(r io.ReadSeeker, declared string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("storage: не удалось сбросить позицию файла: %w", err)
	}

	kind, err := filetype.Match(head[:n])
	if err == nil && kind != filetype.Unknown {
		return kind.MIME.Value, nil
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared, nil
	}
	return "application/octet-stream", nil
}

// sanitizeFilename удаляет потенциально опасные символы.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" || name == "." {
		name = "file"
	}
	return name
}
