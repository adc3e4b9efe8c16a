package storage

import (
	"context"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore кладёт файлы в бакет Supabase Storage.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

func NewSupabaseStore(supabaseURL, serviceKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		client: storage_go.NewClient(supabaseURL+"/storage/v1", serviceKey, nil),
		bucket: bucket,
	}
}

func (s *SupabaseStore) Backend() string { return "supabase" }

// Put не перезаписывает существующий объект: ключи уникальны.
func (s *SupabaseStore) Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	upsert := false
	if _, err := s.client.UploadFile(s.bucket, key, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return fmt.Errorf("storage: supabase upload %s: %w", key, err)
	}
	return nil
}

func (s *SupabaseStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("storage: supabase delete %s: %w", key, err)
	}
	return nil
}
