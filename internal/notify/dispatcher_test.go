package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

type stubDirectory struct {
	parties map[uuid.UUID]*entity.Party
	admins  []*entity.Party
}

func (s *stubDirectory) FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error) {
	return s.parties[id], nil
}

func (s *stubDirectory) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Party, error) {
	out := make(map[uuid.UUID]*entity.Party)
	for _, id := range ids {
		if p, ok := s.parties[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubDirectory) ListAdmins(ctx context.Context) ([]*entity.Party, error) {
	return s.admins, nil
}

type sentEmail struct {
	to, subject, html string
}

type recordingSender struct {
	sent []sentEmail
	err  error
}

func (r *recordingSender) Send(ctx context.Context, to, subject, html string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

type pushed struct {
	userID uuid.UUID
	event  string
	data   any
}

type recordingPusher struct {
	pushed []pushed
}

func (r *recordingPusher) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	r.pushed = append(r.pushed, pushed{userID: userID, event: event, data: data})
	return nil
}

type recordingPublisher struct {
	keys   []string
	values [][]byte
}

func (r *recordingPublisher) Publish(ctx context.Context, key string, value []byte) error {
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
	return nil
}

type fixture struct {
	dispatcher *Dispatcher
	sender     *recordingSender
	pusher     *recordingPusher
	publisher  *recordingPublisher
	ref        BookingRef
	admin      *entity.Party
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	brand := &entity.Party{ID: uuid.New(), Email: "brand@example.com", DisplayName: "Acme", Role: "brand"}
	creator := &entity.Party{ID: uuid.New(), Email: "creator@example.com", DisplayName: "Ann Live", Role: "creator"}
	admin := &entity.Party{ID: uuid.New(), Email: "admin@example.com", DisplayName: "Ops", Role: "admin"}

	renderer, err := NewRenderer()
	require.NoError(t, err)

	f := &fixture{
		sender:    &recordingSender{},
		pusher:    &recordingPusher{},
		publisher: &recordingPublisher{},
		ref:       BookingRef{BookingID: uuid.New(), BrandID: brand.ID, CreatorID: creator.ID},
		admin:     admin,
	}
	dir := &stubDirectory{
		parties: map[uuid.UUID]*entity.Party{brand.ID: brand, creator.ID: creator},
		admins:  []*entity.Party{admin},
	}
	f.dispatcher = NewDispatcher(dir, renderer, f.sender, f.pusher, f.publisher,
		clock.NewManual(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
		DispatcherConfig{AdminEmails: []string{"ops@example.com", "lead@example.com"}, AppBaseURL: "https://app.example.com/"})
	return f
}

func TestRenderer_CoversEveryType(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	for typ := range emailTemplates {
		_, _, err := renderer.Render(Message{Type: typ, Data: map[string]any{"amount_cents": int64(100)}})
		assert.NoError(t, err, typ)
	}
	assert.Len(t, emailTemplates, 14)
}

func TestDispatch_DeliveryConfirmed(t *testing.T) {
	f := newFixture(t)
	confirmedAt := time.Date(2026, 3, 12, 8, 30, 0, 0, time.UTC)

	err := f.dispatcher.Dispatch(context.Background(), DeliveryConfirmed{
		BookingRef:  f.ref,
		AmountCents: 10000,
		ConfirmedAt: confirmedAt,
	})
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "creator@example.com", f.sender.sent[0].to)
	assert.Contains(t, f.sender.sent[0].subject, "100.00")
	assert.Contains(t, f.sender.sent[0].html, "Acme")

	require.Len(t, f.pusher.pushed, 1)
	assert.Equal(t, f.ref.CreatorID, f.pusher.pushed[0].userID)
	assert.Equal(t, string(TypeCreatorDeliveryConfirmed), f.pusher.pushed[0].event)
	data := f.pusher.pushed[0].data.(map[string]any)
	assert.Equal(t, int64(10000), data["amount_cents"])
	assert.Equal(t, "2026-03-12T08:30:00Z", data["confirmed_at"])
	assert.Equal(t, "https://app.example.com/bookings/"+f.ref.BookingID.String(), data["booking_url"])

	require.Len(t, f.publisher.values, 1)
	assert.Equal(t, f.ref.BookingID.String(), f.publisher.keys[0])
	var rec Record
	require.NoError(t, json.Unmarshal(f.publisher.values[0], &rec))
	assert.Equal(t, TypeCreatorDeliveryConfirmed, rec.Type)
	require.NotNil(t, rec.Recipient)
	assert.Equal(t, f.ref.CreatorID, *rec.Recipient)
}

func TestDispatch_AdminEventsGoToAdminEmails(t *testing.T) {
	f := newFixture(t)

	err := f.dispatcher.Dispatch(context.Background(), DisputeEscalated{
		BookingRef:         f.ref,
		DisputeID:          uuid.New(),
		Reason:             "no show",
		ResolutionDeadline: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "ops@example.com", f.sender.sent[0].to)
	assert.Equal(t, "lead@example.com", f.sender.sent[1].to)
	require.Len(t, f.pusher.pushed, 1)
	assert.Equal(t, f.admin.ID, f.pusher.pushed[0].userID)
}

func TestDispatch_DisputeTypeFollowsRecipient(t *testing.T) {
	f := newFixture(t)
	opened := DisputeOpened{
		BookingRef:       f.ref,
		DisputeID:        uuid.New(),
		RecipientRole:    valueobject.RoleBrand,
		Reason:           "late",
		ResponseDeadline: time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, f.dispatcher.Dispatch(context.Background(), opened))

	assert.Equal(t, TypeBrandDisputeOpened, opened.Type())
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "brand@example.com", f.sender.sent[0].to)
}

func TestDispatch_RejectsMalformedEvent(t *testing.T) {
	f := newFixture(t)

	err := f.dispatcher.Dispatch(context.Background(), DeliveryConfirmed{BookingRef: f.ref, AmountCents: -1, ConfirmedAt: time.Now()})

	require.Error(t, err)
	assert.Empty(t, f.sender.sent)
	assert.Empty(t, f.pusher.pushed)
	assert.Empty(t, f.publisher.values)
}

func TestDispatch_EmailFailureDoesNotStopOtherChannels(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("resend down")

	err := f.dispatcher.Dispatch(context.Background(), BookingDeclined{BookingRef: f.ref})

	require.Error(t, err)
	assert.Len(t, f.pusher.pushed, 1)
	assert.Len(t, f.publisher.values, 1)
}

func TestDisputeResolved_RefundBounds(t *testing.T) {
	ref := BookingRef{BookingID: uuid.New(), BrandID: uuid.New(), CreatorID: uuid.New()}
	base := DisputeResolved{BookingRef: ref, DisputeID: uuid.New(), RecipientRole: valueobject.RoleCreator}

	base.RefundPercentage = 100
	assert.NoError(t, base.Validate())

	base.RefundPercentage = 101
	assert.Error(t, base.Validate())

	base.RefundPercentage = 50
	base.RecipientRole = valueobject.RoleAdmin
	assert.Error(t, base.Validate())
}
