package valueobject

import (
	"slices"

	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusAccepted, BookingStatusDeclined, BookingStatusCancelled},
	BookingStatusAccepted:  {BookingStatusCompleted},
	BookingStatusDeclined:  {},
	BookingStatusCancelled: {},
	BookingStatusCompleted: {},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return slices.Contains(bookingTransitions[s], next)
}

func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус бронирования")
	}
	return s, nil
}

// DeliveryStatus - этап сдачи работы. Пустое значение означает, что сдача ещё не началась.
type DeliveryStatus string

const (
	DeliveryStatusNone              DeliveryStatus = ""
	DeliveryStatusInProgress        DeliveryStatus = "in_progress"
	DeliveryStatusDelivered         DeliveryStatus = "delivered"
	DeliveryStatusRevisionRequested DeliveryStatus = "revision_requested"
	DeliveryStatusConfirmed         DeliveryStatus = "confirmed"
)

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusNone, DeliveryStatusInProgress, DeliveryStatusDelivered, DeliveryStatusRevisionRequested, DeliveryStatusConfirmed:
		return true
	}
	return false
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusNone:              {DeliveryStatusInProgress},
	DeliveryStatusInProgress:        {DeliveryStatusDelivered},
	DeliveryStatusDelivered:         {DeliveryStatusConfirmed, DeliveryStatusRevisionRequested},
	DeliveryStatusRevisionRequested: {DeliveryStatusDelivered},
	DeliveryStatusConfirmed:         {},
}

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	return slices.Contains(deliveryTransitions[s], next)
}

// AcceptsSubmission - можно ли загрузить новую версию материалов.
func (s DeliveryStatus) AcceptsSubmission() bool {
	return s.CanTransitionTo(DeliveryStatusDelivered)
}

// Ptr переводит статус в nullable-представление для БД.
func (s DeliveryStatus) Ptr() *string {
	if s == DeliveryStatusNone {
		return nil
	}
	v := string(s)
	return &v
}

func NewDeliveryStatus(status *string) (DeliveryStatus, error) {
	if status == nil {
		return DeliveryStatusNone, nil
	}
	s := DeliveryStatus(*status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус сдачи")
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if s != PaymentStatusPending && s != PaymentStatusPaid {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус оплаты")
	}
	return s, nil
}

type DisputeStatus string

const (
	DisputeStatusOpen        DisputeStatus = "open"
	DisputeStatusUnderReview DisputeStatus = "under_review"
	DisputeStatusEscalated   DisputeStatus = "escalated"
	DisputeStatusResolved    DisputeStatus = "resolved"
)

func (s DisputeStatus) IsValid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusUnderReview, DisputeStatusEscalated, DisputeStatusResolved:
		return true
	}
	return false
}

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeStatusOpen:        {DisputeStatusUnderReview, DisputeStatusEscalated, DisputeStatusResolved},
	DisputeStatusUnderReview: {DisputeStatusResolved},
	DisputeStatusEscalated:   {DisputeStatusResolved},
	DisputeStatusResolved:    {},
}

func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	return slices.Contains(disputeTransitions[s], next)
}

func (s DisputeStatus) IsResolved() bool {
	return s == DisputeStatusResolved
}

func NewDisputeStatus(status string) (DisputeStatus, error) {
	s := DisputeStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус спора")
	}
	return s, nil
}

// PartyRole - роль участника платформы.
type PartyRole string

const (
	RoleBrand   PartyRole = "brand"
	RoleCreator PartyRole = "creator"
	RoleAdmin   PartyRole = "admin"
)

func NewPartyRole(role string) (PartyRole, error) {
	r := PartyRole(role)
	switch r {
	case RoleBrand, RoleCreator, RoleAdmin:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль")
}
