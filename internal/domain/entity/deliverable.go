package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/validation"
)

// MaxFilesPerSubmission ограничивает размер одной партии материалов.
const MaxFilesPerSubmission = 20

// Deliverable - один файл в версии сдачи. После записи не изменяется.
type Deliverable struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	CreatorID   uuid.UUID
	Version     int
	FileName    string
	MimeType    string
	SizeBytes   int64
	StorageKey  string
	Description *string
	Notes       *string
	CreatedAt   time.Time
}

// UploadedFile - файл, уже положенный в хранилище, но ещё не записанный в БД.
type UploadedFile struct {
	FileName    string
	MimeType    string
	SizeBytes   int64
	StorageKey  string
	Description *string
}

// NewDeliverableBatch собирает строки одной версии. Все файлы получают общий номер версии и заметку.
func NewDeliverableBatch(booking *Booking, version int, files []UploadedFile, notes string, now time.Time) ([]Deliverable, error) {
	if len(files) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "нужен хотя бы один файл")
	}
	if len(files) > MaxFilesPerSubmission {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много файлов в одной сдаче")
	}
	if version < 1 {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная версия материалов")
	}

	trimmed, err := validation.ValidateText("комментарий к сдаче", notes, false, validation.MaxRevisionNotesLength)
	if err != nil {
		return nil, err
	}
	var batchNotes *string
	if trimmed != "" {
		batchNotes = &trimmed
	}

	batch := make([]Deliverable, 0, len(files))
	for _, f := range files {
		if f.StorageKey == "" {
			return nil, apperror.New(apperror.ErrCodeValidation, "файл не был сохранён в хранилище")
		}
		batch = append(batch, Deliverable{
			ID:          uuid.New(),
			BookingID:   booking.ID,
			CreatorID:   booking.CreatorID,
			Version:     version,
			FileName:    f.FileName,
			MimeType:    f.MimeType,
			SizeBytes:   f.SizeBytes,
			StorageKey:  f.StorageKey,
			Description: f.Description,
			Notes:       batchNotes,
			CreatedAt:   now,
		})
	}
	return batch, nil
}
