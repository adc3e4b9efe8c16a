package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/goroutine"
	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/metrics"
	"github.com/ignatzorin/livebook-backend/internal/pkg/clock"
)

// Message - контракт письма: {type, to_email, to_name?, data}.
type Message struct {
	Type    Type           `json:"type"`
	ToEmail string         `json:"to_email"`
	ToName  string         `json:"to_name,omitempty"`
	Data    map[string]any `json:"data"`
}

// Record - запись события в поток для внешних потребителей.
type Record struct {
	Type       Type           `json:"type"`
	BookingID  uuid.UUID      `json:"booking_id"`
	Recipient  *uuid.UUID     `json:"recipient_id,omitempty"`
	Admins     bool           `json:"admins,omitempty"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EmailSender отправляет готовое письмо.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// InAppPusher сохраняет уведомление и отправляет его в открытые websocket-соединения.
type InAppPusher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// EventPublisher пишет запись в поток событий.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Notifier - то, что видят сценарии: отправка не возвращает ошибку и не блокирует переход.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type DispatcherConfig struct {
	AdminEmails []string
	AppBaseURL  string
}

// Dispatcher разворачивает событие в письма, in-app уведомления и запись в поток.
type Dispatcher struct {
	directory repository.PartyDirectory
	renderer  *Renderer
	email     EmailSender
	inApp     InAppPusher
	publisher EventPublisher
	clock     clock.Clock
	config    DispatcherConfig
	log       *logrus.Entry
}

func NewDispatcher(
	directory repository.PartyDirectory,
	renderer *Renderer,
	email EmailSender,
	inApp InAppPusher,
	publisher EventPublisher,
	clk clock.Clock,
	cfg DispatcherConfig,
) *Dispatcher {
	return &Dispatcher{
		directory: directory,
		renderer:  renderer,
		email:     email,
		inApp:     inApp,
		publisher: publisher,
		clock:     clk,
		config:    cfg,
		log:       logger.Component("notify"),
	}
}

// Dispatch доставляет событие по всем каналам. Ошибки каналов собираются вместе,
// сбой одного канала не мешает остальным.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		metrics.NotificationsTotal.WithLabelValues("all", string(e.Type()), "rejected").Inc()
		return err
	}

	data, parties, err := d.buildData(ctx, e)
	if err != nil {
		return err
	}

	audience := e.Audience()
	var errs []error

	for _, msg := range d.messages(ctx, e.Type(), audience, parties, data) {
		errs = append(errs, d.sendEmail(ctx, msg))
	}

	if d.inApp != nil {
		for _, userID := range d.inAppRecipients(ctx, audience) {
			err := d.inApp.BroadcastToUser(userID, string(e.Type()), data)
			d.count("in_app", e.Type(), err)
			if err != nil {
				errs = append(errs, fmt.Errorf("in-app %s: %w", userID, err))
			}
		}
	}

	if d.publisher != nil {
		errs = append(errs, d.publish(ctx, e, audience, data))
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) buildData(ctx context.Context, e Event) (map[string]any, map[uuid.UUID]*entity.Party, error) {
	ref := e.Parties()
	ids := []uuid.UUID{ref.BrandID, ref.CreatorID}
	if a := e.Audience(); !a.Admins && a.UserID != ref.BrandID && a.UserID != ref.CreatorID {
		ids = append(ids, a.UserID)
	}

	parties, err := d.directory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("notify: контакты участников: %w", err)
	}

	data := e.Fields()
	data["booking_id"] = ref.BookingID.String()
	data["brand_name"] = displayName(parties[ref.BrandID])
	data["creator_name"] = displayName(parties[ref.CreatorID])
	data["booking_url"] = strings.TrimRight(d.config.AppBaseURL, "/") + "/bookings/" + ref.BookingID.String()
	return data, parties, nil
}

// messages строит письма: одно участнику либо по одному на каждый адрес из ADMIN_EMAILS.
func (d *Dispatcher) messages(ctx context.Context, t Type, audience Audience, parties map[uuid.UUID]*entity.Party, data map[string]any) []Message {
	if audience.Admins {
		msgs := make([]Message, 0, len(d.config.AdminEmails))
		for _, addr := range d.config.AdminEmails {
			msgs = append(msgs, Message{Type: t, ToEmail: addr, ToName: "Администратор", Data: withName(data, "Администратор")})
		}
		return msgs
	}

	party := parties[audience.UserID]
	if party == nil || party.Email == "" {
		d.log.WithFields(logrus.Fields{"type": t, "user_id": audience.UserID}).Warn("нет email получателя, письмо пропущено")
		metrics.NotificationsTotal.WithLabelValues("email", string(t), "skipped").Inc()
		return nil
	}
	name := displayName(party)
	return []Message{{Type: t, ToEmail: party.Email, ToName: name, Data: withName(data, name)}}
}

func (d *Dispatcher) inAppRecipients(ctx context.Context, audience Audience) []uuid.UUID {
	if !audience.Admins {
		return []uuid.UUID{audience.UserID}
	}
	admins, err := d.directory.ListAdmins(ctx)
	if err != nil {
		d.log.WithError(err).Warn("не удалось получить список администраторов")
		return nil
	}
	ids := make([]uuid.UUID, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
	}
	return ids
}

func (d *Dispatcher) sendEmail(ctx context.Context, msg Message) error {
	subject, html, err := d.renderer.Render(msg)
	if err == nil {
		err = d.email.Send(ctx, msg.ToEmail, subject, html)
	}
	d.count("email", msg.Type, err)
	if err != nil {
		return fmt.Errorf("email %s: %w", msg.Type, err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, e Event, audience Audience, data map[string]any) error {
	rec := Record{
		Type:       e.Type(),
		BookingID:  e.Booking(),
		Admins:     audience.Admins,
		Data:       data,
		OccurredAt: d.clock.Now(),
	}
	if !audience.Admins {
		id := audience.UserID
		rec.Recipient = &id
	}

	raw, err := json.Marshal(rec)
	if err == nil {
		err = d.publisher.Publish(ctx, e.Booking().String(), raw)
	}
	d.count("stream", e.Type(), err)
	if err != nil {
		return fmt.Errorf("stream %s: %w", e.Type(), err)
	}
	return nil
}

func (d *Dispatcher) count(channel string, t Type, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	metrics.NotificationsTotal.WithLabelValues(channel, string(t), result).Inc()
}

func withName(data map[string]any, name string) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["to_name"] = name
	return out
}

func displayName(p *entity.Party) string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// AsyncNotifier отправляет события в фоне со своим таймаутом.
// Некорректное событие отклоняется сразу и в фон не уходит.
type AsyncNotifier struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	log        *logrus.Entry
}

func NewAsyncNotifier(d *Dispatcher, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncNotifier{dispatcher: d, timeout: timeout, log: logger.Component("notify")}
}

func (n *AsyncNotifier) Notify(ctx context.Context, e Event) {
	entry := n.log.WithFields(logrus.Fields{"type": e.Type(), "booking_id": e.Booking()})
	if err := e.Validate(); err != nil {
		metrics.NotificationsTotal.WithLabelValues("all", string(e.Type()), "rejected").Inc()
		entry.WithError(err).Error("уведомление отклонено")
		return
	}

	goroutine.SafeGo(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.dispatcher.Dispatch(sendCtx, e); err != nil {
			entry.WithError(err).Warn("уведомление доставлено не по всем каналам")
		}
	})
}
