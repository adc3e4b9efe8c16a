package dispute

import (
	"context"
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
	"github.com/ignatzorin/livebook-backend/internal/usecase/booking"
)

// Задачи ставятся на секунду позже дедлайна: переходы требуют строго now > deadline.
const deadlineGrace = time.Second

// completeRetries - сколько раз перечитываем бронирование при конфликте версий.
const completeRetries = 3

type OpenInput struct {
	BookingID  uuid.UUID
	OpenerID   uuid.UUID
	OpenerRole valueobject.PartyRole
	Reason     string
	Evidence   string
}

type OpenDisputeUseCase struct {
	bookingRepo    repository.BookingRepository
	disputeRepo    repository.DisputeRepository
	scheduler      jobs.Scheduler
	notifier       notify.Notifier
	clock          clock.Clock
	responseWindow time.Duration
	log            *logrus.Entry
}

func NewOpenDisputeUseCase(
	bookingRepo repository.BookingRepository,
	disputeRepo repository.DisputeRepository,
	scheduler jobs.Scheduler,
	notifier notify.Notifier,
	clk clock.Clock,
	responseWindow time.Duration,
) *OpenDisputeUseCase {
	return &OpenDisputeUseCase{
		bookingRepo:    bookingRepo,
		disputeRepo:    disputeRepo,
		scheduler:      scheduler,
		notifier:       notifier,
		clock:          clk,
		responseWindow: responseWindow,
		log:            logger.Component("disputes"),
	}
}

func (uc *OpenDisputeUseCase) Execute(ctx context.Context, input OpenInput) (*entity.Dispute, error) {
	b, err := uc.bookingRepo.FindByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}

	_, err = uc.disputeRepo.FindUnresolvedByBooking(ctx, b.ID)
	switch {
	case err == nil:
		return nil, apperror.ErrDisputeExists
	case !apperror.IsNotFound(err):
		return nil, err
	}

	var evidence *string
	if input.Evidence != "" {
		evidence = &input.Evidence
	}
	d, err := entity.OpenDispute(b, input.OpenerID, input.OpenerRole, input.Reason, evidence, uc.responseWindow, uc.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := uc.disputeRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	metrics.DisputesTotal.WithLabelValues(string(d.Status)).Inc()

	if err := uc.scheduler.Schedule(ctx, jobs.TypeDisputeResponseExpired, jobs.DisputePayload{DisputeID: d.ID}, d.ResponseDeadline.Add(deadlineGrace)); err != nil {
		uc.log.WithError(err).WithField("dispute_id", d.ID).Error("не удалось запланировать эскалацию спора")
	}

	uc.notifier.Notify(ctx, notify.DisputeOpened{
		BookingRef:       notify.RefOf(b),
		DisputeID:        d.ID,
		RecipientRole:    counterpart(d.OpenerRole),
		Reason:           d.Reason,
		ResponseDeadline: d.ResponseDeadline,
	})
	return d, nil
}

type RespondInput struct {
	DisputeID   uuid.UUID
	ResponderID uuid.UUID
	Response    string
}

type RespondDisputeUseCase struct {
	bookingRepo repository.BookingRepository
	disputeRepo repository.DisputeRepository
	notifier    notify.Notifier
	clock       clock.Clock
}

func NewRespondDisputeUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository, notifier notify.Notifier, clk clock.Clock) *RespondDisputeUseCase {
	return &RespondDisputeUseCase{bookingRepo: bookingRepo, disputeRepo: disputeRepo, notifier: notifier, clock: clk}
}

func (uc *RespondDisputeUseCase) Execute(ctx context.Context, input RespondInput) (*entity.Dispute, error) {
	d, err := uc.disputeRepo.FindByID(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	if err := d.Respond(input.ResponderID, input.Response, uc.clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.disputeRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	metrics.DisputesTotal.WithLabelValues(string(d.Status)).Inc()

	b, err := uc.bookingRepo.FindByID(ctx, d.BookingID)
	if err != nil {
		return nil, err
	}
	uc.notifier.Notify(ctx, notify.DisputeResponseReceived{
		BookingRef:  notify.RefOf(b),
		DisputeID:   d.ID,
		OpenerID:    d.OpenerID,
		RespondedAt: *d.RespondedAt,
	})
	return d, nil
}

// EscalateDisputeUseCase передаёт спор без ответа администратору.
// Вызывается воркером по истечении окна ответа или администратором вручную.
type EscalateDisputeUseCase struct {
	bookingRepo      repository.BookingRepository
	disputeRepo      repository.DisputeRepository
	scheduler        jobs.Scheduler
	notifier         notify.Notifier
	clock            clock.Clock
	resolutionWindow time.Duration
	log              *logrus.Entry
}

func NewEscalateDisputeUseCase(
	bookingRepo repository.BookingRepository,
	disputeRepo repository.DisputeRepository,
	scheduler jobs.Scheduler,
	notifier notify.Notifier,
	clk clock.Clock,
	resolutionWindow time.Duration,
) *EscalateDisputeUseCase {
	return &EscalateDisputeUseCase{
		bookingRepo:      bookingRepo,
		disputeRepo:      disputeRepo,
		scheduler:        scheduler,
		notifier:         notifier,
		clock:            clk,
		resolutionWindow: resolutionWindow,
		log:              logger.Component("disputes"),
	}
}

func (uc *EscalateDisputeUseCase) Execute(ctx context.Context, disputeID uuid.UUID) (*entity.Dispute, error) {
	d, err := uc.disputeRepo.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.Escalate(uc.resolutionWindow, uc.clock.Now()); err != nil {
		return nil, err
	}
	if err := uc.disputeRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	metrics.DisputesTotal.WithLabelValues(string(d.Status)).Inc()

	if err := uc.scheduler.Schedule(ctx, jobs.TypeDisputeResolutionOverdue, jobs.DisputePayload{DisputeID: d.ID}, d.ResolutionDeadline.Add(deadlineGrace)); err != nil {
		uc.log.WithError(err).WithField("dispute_id", d.ID).Error("не удалось запланировать напоминание о сроке решения")
	}

	b, err := uc.bookingRepo.FindByID(ctx, d.BookingID)
	if err != nil {
		return nil, err
	}
	uc.notifier.Notify(ctx, notify.DisputeEscalated{
		BookingRef:         notify.RefOf(b),
		DisputeID:          d.ID,
		Reason:             d.Reason,
		ResolutionDeadline: *d.ResolutionDeadline,
	})
	return d, nil
}

type ResolveInput struct {
	DisputeID        uuid.UUID
	AdminID          uuid.UUID
	Role             valueobject.PartyRole
	Reason           string
	RefundPercentage int
}

type ResolveDisputeUseCase struct {
	bookingRepo repository.BookingRepository
	disputeRepo repository.DisputeRepository
	notifier    notify.Notifier
	clock       clock.Clock
}

func NewResolveDisputeUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository, notifier notify.Notifier, clk clock.Clock) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{bookingRepo: bookingRepo, disputeRepo: disputeRepo, notifier: notifier, clock: clk}
}

// Execute решает спор. Бронирование закрывается раньше записи спора,
// поэтому повторный вызов после сбоя доводит решение до конца.
func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, input ResolveInput) (*entity.Dispute, error) {
	if input.Role != valueobject.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	refund, err := valueobject.NewRefundPercentage(input.RefundPercentage)
	if err != nil {
		return nil, err
	}

	d, err := uc.disputeRepo.FindByID(ctx, input.DisputeID)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	if err := d.Resolve(input.AdminID, input.Reason, refund, now); err != nil {
		return nil, err
	}

	b, err := uc.completeBooking(ctx, d.BookingID, input.AdminID, now)
	if err != nil {
		return nil, err
	}
	if err := uc.disputeRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	metrics.DisputesTotal.WithLabelValues(string(d.Status)).Inc()

	refundCents := b.TotalPrice.Percent(int(refund)).Int64()
	for _, role := range []valueobject.PartyRole{valueobject.RoleBrand, valueobject.RoleCreator} {
		uc.notifier.Notify(ctx, notify.DisputeResolved{
			BookingRef:       notify.RefOf(b),
			DisputeID:        d.ID,
			RecipientRole:    role,
			RefundPercentage: int(refund),
			RefundCents:      refundCents,
			DecisionReason:   *d.AdminDecisionReason,
			ResolvedAt:       now,
		})
	}
	return d, nil
}

func (uc *ResolveDisputeUseCase) completeBooking(ctx context.Context, bookingID, adminID uuid.UUID, now time.Time) (*entity.Booking, error) {
	for attempt := 0; ; attempt++ {
		b, err := uc.bookingRepo.FindByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if !b.CompleteByDispute(adminID, now) {
			return b, nil
		}

		err = uc.bookingRepo.Update(ctx, b)
		if err == nil {
			metrics.ObserveTransition(entity.ActionCompletedByDispute)
			return b, nil
		}
		if !apperror.IsConflict(err) || attempt+1 >= completeRetries {
			return nil, err
		}
		metrics.StaleWritesTotal.Inc()
	}
}

// RemindOverdueUseCase повторно уведомляет администраторов о просроченном решении.
type RemindOverdueUseCase struct {
	bookingRepo repository.BookingRepository
	disputeRepo repository.DisputeRepository
	notifier    notify.Notifier
	clock       clock.Clock
}

func NewRemindOverdueUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository, notifier notify.Notifier, clk clock.Clock) *RemindOverdueUseCase {
	return &RemindOverdueUseCase{bookingRepo: bookingRepo, disputeRepo: disputeRepo, notifier: notifier, clock: clk}
}

func (uc *RemindOverdueUseCase) Execute(ctx context.Context, disputeID uuid.UUID) error {
	d, err := uc.disputeRepo.FindByID(ctx, disputeID)
	if err != nil {
		return err
	}
	if !d.IsResolutionOverdue(uc.clock.Now()) {
		return apperror.New(apperror.ErrCodeValidation, "спор решён или срок решения ещё не истёк")
	}

	b, err := uc.bookingRepo.FindByID(ctx, d.BookingID)
	if err != nil {
		return err
	}
	uc.notifier.Notify(ctx, notify.DisputeOverdue{
		BookingRef:         notify.RefOf(b),
		DisputeID:          d.ID,
		ResolutionDeadline: *d.ResolutionDeadline,
	})
	return nil
}

type GetDisputeUseCase struct {
	bookingRepo repository.BookingRepository
	disputeRepo repository.DisputeRepository
}

func NewGetDisputeUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository) *GetDisputeUseCase {
	return &GetDisputeUseCase{bookingRepo: bookingRepo, disputeRepo: disputeRepo}
}

func (uc *GetDisputeUseCase) Execute(ctx context.Context, disputeID, userID uuid.UUID, role valueobject.PartyRole) (*entity.Dispute, error) {
	d, err := uc.disputeRepo.FindByID(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if _, err := booking.LoadVisible(ctx, uc.bookingRepo, d.BookingID, userID, role); err != nil {
		return nil, err
	}
	return d, nil
}

// GetByBookingUseCase возвращает последний спор по бронированию.
type GetByBookingUseCase struct {
	bookingRepo repository.BookingRepository
	disputeRepo repository.DisputeRepository
}

func NewGetByBookingUseCase(bookingRepo repository.BookingRepository, disputeRepo repository.DisputeRepository) *GetByBookingUseCase {
	return &GetByBookingUseCase{bookingRepo: bookingRepo, disputeRepo: disputeRepo}
}

func (uc *GetByBookingUseCase) Execute(ctx context.Context, bookingID, userID uuid.UUID, role valueobject.PartyRole) (*entity.Dispute, error) {
	if _, err := booking.LoadVisible(ctx, uc.bookingRepo, bookingID, userID, role); err != nil {
		return nil, err
	}
	return uc.disputeRepo.FindLatestByBooking(ctx, bookingID)
}

type ListForAdminUseCase struct {
	disputeRepo repository.DisputeRepository
}

func NewListForAdminUseCase(disputeRepo repository.DisputeRepository) *ListForAdminUseCase {
	return &ListForAdminUseCase{disputeRepo: disputeRepo}
}

func (uc *ListForAdminUseCase) Execute(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	if filter.Status != "" {
		if _, err := valueobject.NewDisputeStatus(filter.Status); err != nil {
			return nil, 0, err
		}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.disputeRepo.List(ctx, filter)
}

func counterpart(role valueobject.PartyRole) valueobject.PartyRole {
	if role == valueobject.RoleCreator {
		return valueobject.RoleBrand
	}
	return valueobject.RoleCreator
}
