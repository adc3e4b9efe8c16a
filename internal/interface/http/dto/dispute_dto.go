package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
)

type OpenDisputeRequest struct {
	Reason     string `json:"reason" binding:"required"`
	Evidence   string `json:"evidence"`
	OpenerRole string `json:"opener_role" binding:"required"`
}

type RespondDisputeRequest struct {
	Response string `json:"response" binding:"required"`
}

type ResolveDisputeRequest struct {
	Reason           string `json:"reason" binding:"required"`
	RefundPercentage *int   `json:"refund_percentage" binding:"required"`
}

type DisputeResponse struct {
	ID                  uuid.UUID  `json:"id"`
	BookingID           uuid.UUID  `json:"booking_id"`
	OpenerID            uuid.UUID  `json:"opener_id"`
	OpenerRole          string     `json:"opener_role"`
	RespondentID        uuid.UUID  `json:"respondent_id"`
	Reason              string     `json:"reason"`
	Evidence            *string    `json:"evidence"`
	Status              string     `json:"status"`
	Response            *string    `json:"response"`
	RespondedAt         *time.Time `json:"responded_at"`
	ResponseDeadline    time.Time  `json:"response_deadline"`
	EscalatedToAdmin    bool       `json:"escalated_to_admin"`
	EscalatedAt         *time.Time `json:"escalated_at"`
	ResolutionDeadline  *time.Time `json:"resolution_deadline"`
	RefundPercentage    *int       `json:"refund_percentage"`
	AdminDecisionReason *string    `json:"admin_decision_reason"`
	ResolvedBy          *uuid.UUID `json:"resolved_by"`
	ResolvedAt          *time.Time `json:"resolved_at"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func ToDisputeResponse(d *entity.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:                  d.ID,
		BookingID:           d.BookingID,
		OpenerID:            d.OpenerID,
		OpenerRole:          string(d.OpenerRole),
		RespondentID:        d.RespondentID,
		Reason:              d.Reason,
		Evidence:            d.Evidence,
		Status:              string(d.Status),
		Response:            d.ResponseText,
		RespondedAt:         d.RespondedAt,
		ResponseDeadline:    d.ResponseDeadline,
		EscalatedToAdmin:    d.EscalatedToAdmin,
		EscalatedAt:         d.EscalatedAt,
		ResolutionDeadline:  d.ResolutionDeadline,
		RefundPercentage:    d.RefundPercentage,
		AdminDecisionReason: d.AdminDecisionReason,
		ResolvedBy:          d.ResolvedBy,
		ResolvedAt:          d.ResolvedAt,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

func ToDisputeListResponse(items []*entity.Dispute) []DisputeResponse {
	out := make([]DisputeResponse, 0, len(items))
	for _, d := range items {
		out = append(out, ToDisputeResponse(d))
	}
	return out
}
