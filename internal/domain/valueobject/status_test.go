package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"pending -> accepted", BookingStatusPending.CanTransitionTo(BookingStatusAccepted), true},
		{"accepted -> completed", BookingStatusAccepted.CanTransitionTo(BookingStatusCompleted), true},
		{"accepted -> cancelled", BookingStatusAccepted.CanTransitionTo(BookingStatusCancelled), false},
		{"declined terminal", BookingStatusDeclined.CanTransitionTo(BookingStatusAccepted), false},
		{"unknown booking status", BookingStatus("archived").CanTransitionTo(BookingStatusCompleted), false},

		{"none -> in_progress", DeliveryStatusNone.CanTransitionTo(DeliveryStatusInProgress), true},
		{"delivered -> revision", DeliveryStatusDelivered.CanTransitionTo(DeliveryStatusRevisionRequested), true},
		{"revision -> confirmed", DeliveryStatusRevisionRequested.CanTransitionTo(DeliveryStatusConfirmed), false},
		{"confirmed terminal", DeliveryStatusConfirmed.CanTransitionTo(DeliveryStatusDelivered), false},

		{"open -> escalated", DisputeStatusOpen.CanTransitionTo(DisputeStatusEscalated), true},
		{"under_review -> escalated", DisputeStatusUnderReview.CanTransitionTo(DisputeStatusEscalated), false},
		{"resolved terminal", DisputeStatusResolved.CanTransitionTo(DisputeStatusOpen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDeliveryStatus_AcceptsSubmission(t *testing.T) {
	assert.True(t, DeliveryStatusInProgress.AcceptsSubmission())
	assert.True(t, DeliveryStatusRevisionRequested.AcceptsSubmission())
	assert.False(t, DeliveryStatusDelivered.AcceptsSubmission())
	assert.False(t, DeliveryStatusConfirmed.AcceptsSubmission())
	assert.False(t, DeliveryStatusNone.AcceptsSubmission())
}
