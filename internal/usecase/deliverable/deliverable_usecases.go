package deliverable

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/jobs"
	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/metrics"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
	"github.com/ignatzorin/livebook-backend/internal/storage"
	"github.com/ignatzorin/livebook-backend/internal/usecase/booking"
	"github.com/ignatzorin/livebook-backend/internal/validation"
)

// File - загружаемый файл. Content должен поддерживать Seek для определения типа.
type File struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
	Description string
}

type SubmitInput struct {
	BookingID uuid.UUID
	CreatorID uuid.UUID
	Files     []File
	Notes     string
}

type SubmitResult struct {
	Booking *entity.Booking
	Version int
	Files   []entity.Deliverable
}

type SubmitConfig struct {
	AutoReleaseAfter time.Duration
	MaxUploadBytes   int64
}

// SubmitDeliverablesUseCase загружает партию файлов и переводит бронирование в delivered.
// Файлы кладутся в хранилище до транзакции. Если что-то пошло не так, загруженное удаляется.
type SubmitDeliverablesUseCase struct {
	bookingRepo     repository.BookingRepository
	deliverableRepo repository.DeliverableRepository
	store           storage.FileStore
	scheduler       jobs.Scheduler
	notifier        notify.Notifier
	clock           clock.Clock
	config          SubmitConfig
	log             *logrus.Entry
}

func NewSubmitDeliverablesUseCase(
	bookingRepo repository.BookingRepository,
	deliverableRepo repository.DeliverableRepository,
	store storage.FileStore,
	scheduler jobs.Scheduler,
	notifier notify.Notifier,
	clk clock.Clock,
	cfg SubmitConfig,
) *SubmitDeliverablesUseCase {
	return &SubmitDeliverablesUseCase{
		bookingRepo:     bookingRepo,
		deliverableRepo: deliverableRepo,
		store:           store,
		scheduler:       scheduler,
		notifier:        notifier,
		clock:           clk,
		config:          cfg,
		log:             logger.Component("deliverables"),
	}
}

func (uc *SubmitDeliverablesUseCase) Execute(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	if err := uc.validateFiles(input.Files); err != nil {
		return nil, err
	}

	// Проверяем переход заранее, чтобы не загружать файлы для заведомо неверного запроса.
	// Номер версии берётся из хранилища материалов так же, как в транзакции сдачи.
	current, err := uc.bookingRepo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	latest, err := uc.deliverableRepo.LatestVersion(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	dryRun := *current
	if err := dryRun.SubmitDeliverables(input.CreatorID, latest+1, uc.clock.Now()); err != nil {
		return nil, err
	}

	uploaded, err := uc.upload(ctx, input.BookingID, input.Files)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	b, batch, err := uc.deliverableRepo.SubmitVersion(ctx, input.BookingID, func(b *entity.Booking, version int) ([]entity.Deliverable, error) {
		if err := b.SubmitDeliverables(input.CreatorID, version, now); err != nil {
			return nil, err
		}
		return entity.NewDeliverableBatch(b, version, uploaded, input.Notes, now)
	})
	if err != nil {
		if apperror.IsConflict(err) {
			metrics.StaleWritesTotal.Inc()
		}
		uc.cleanup(ctx, uploaded)
		return nil, err
	}
	metrics.ObserveTransition(entity.ActionDelivered)

	version := b.DeliverableVersion
	dueAt := now.Add(uc.config.AutoReleaseAfter)
	if err := uc.scheduler.Schedule(ctx, jobs.TypeDeliveryAutoRelease, jobs.BookingPayload{BookingID: b.ID, Version: version}, dueAt); err != nil {
		uc.log.WithError(err).WithField("booking_id", b.ID).Error("не удалось запланировать автоподтверждение")
	}

	uc.notifier.Notify(ctx, notify.DeliverablesSubmitted{
		BookingRef:  notify.RefOf(b),
		Version:     version,
		FileCount:   len(batch),
		SubmittedAt: now,
	})

	return &SubmitResult{Booking: b, Version: version, Files: batch}, nil
}

func (uc *SubmitDeliverablesUseCase) validateFiles(files []File) error {
	if len(files) == 0 {
		return apperror.New(apperror.ErrCodeValidation, "нужен хотя бы один файл")
	}
	if len(files) > entity.MaxFilesPerSubmission {
		return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("не более %d файлов за одну сдачу", entity.MaxFilesPerSubmission))
	}
	for _, f := range files {
		if f.Content == nil || f.Size == 0 {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("файл %q пустой", f.FileName))
		}
		if uc.config.MaxUploadBytes > 0 && f.Size > uc.config.MaxUploadBytes {
			return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("файл %q превышает допустимый размер", f.FileName))
		}
		if err := validation.ValidateFileName(f.FileName); err != nil {
			return err
		}
		if err := validation.ValidateLength("описание файла", f.Description, 0, validation.MaxFileDescriptionLength); err != nil {
			return err
		}
	}
	return nil
}

func (uc *SubmitDeliverablesUseCase) upload(ctx context.Context, bookingID uuid.UUID, files []File) ([]entity.UploadedFile, error) {
	uploaded := make([]entity.UploadedFile, 0, len(files))
	backend := uc.store.Backend()

	for _, f := range files {
		mime, err := storage.DetectMIME(f.Content, f.ContentType)
		if err == nil {
			key := storage.DeliverableKey(bookingID, f.FileName)
			err = uc.store.Put(ctx, key, f.Content, f.Size, mime)
			if err == nil {
				uploaded = append(uploaded, entity.UploadedFile{
					FileName:    f.FileName,
					MimeType:    mime,
					SizeBytes:   f.Size,
					StorageKey:  key,
					Description: optional(f.Description),
				})
				metrics.DeliverableFilesTotal.WithLabelValues(backend, "stored").Inc()
				continue
			}
		}

		metrics.DeliverableFilesTotal.WithLabelValues(backend, "failed").Inc()
		uc.log.WithError(err).WithFields(logrus.Fields{"booking_id": bookingID, "file": f.FileName}).Warn("загрузка файла не удалась")
		uc.cleanup(ctx, uploaded)
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, fmt.Sprintf("не удалось загрузить файл %q, повторите попытку", f.FileName))
	}
	return uploaded, nil
}

// cleanup удаляет файлы несостоявшейся сдачи. Ошибки только логируются.
func (uc *SubmitDeliverablesUseCase) cleanup(ctx context.Context, files []entity.UploadedFile) {
	ctx = context.WithoutCancel(ctx)
	for _, f := range files {
		if err := uc.store.Delete(ctx, f.StorageKey); err != nil {
			uc.log.WithError(err).WithField("key", f.StorageKey).Warn("не удалось удалить файл несостоявшейся сдачи")
		}
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

type CurrentSetUseCase struct {
	bookingRepo     repository.BookingRepository
	deliverableRepo repository.DeliverableRepository
}

func NewCurrentSetUseCase(bookingRepo repository.BookingRepository, deliverableRepo repository.DeliverableRepository) *CurrentSetUseCase {
	return &CurrentSetUseCase{bookingRepo: bookingRepo, deliverableRepo: deliverableRepo}
}

func (uc *CurrentSetUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, role valueobject.PartyRole) ([]entity.Deliverable, error) {
	if _, err := booking.LoadVisible(ctx, uc.bookingRepo, bookingID, userID, role); err != nil {
		return nil, err
	}
	return uc.deliverableRepo.CurrentSet(ctx, bookingID)
}

type HistoryUseCase struct {
	bookingRepo     repository.BookingRepository
	deliverableRepo repository.DeliverableRepository
}

func NewHistoryUseCase(bookingRepo repository.BookingRepository, deliverableRepo repository.DeliverableRepository) *HistoryUseCase {
	return &HistoryUseCase{bookingRepo: bookingRepo, deliverableRepo: deliverableRepo}
}

func (uc *HistoryUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, role valueobject.PartyRole) ([]entity.Deliverable, error) {
	if _, err := booking.LoadVisible(ctx, uc.bookingRepo, bookingID, userID, role); err != nil {
		return nil, err
	}
	return uc.deliverableRepo.History(ctx, bookingID)
}
