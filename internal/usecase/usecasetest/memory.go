// Package usecasetest содержит in-memory реализации репозиториев и коллабораторов
// для тестов сценариев.
package usecasetest

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/repository"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/notify"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

// Bookings хранит копии бронирований и повторяет проверку версии из SQL-адаптера.
type Bookings struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]entity.Booking
	history  map[uuid.UUID][]entity.BookingEvent
}

func NewBookings() *Bookings {
	return &Bookings{
		bookings: make(map[uuid.UUID]entity.Booking),
		history:  make(map[uuid.UUID][]entity.BookingEvent),
	}
}

func (m *Bookings) Create(ctx context.Context, b *entity.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[b.ID] = append(m.history[b.ID], b.PendingHistory()...)
	m.bookings[b.ID] = *b
	return nil
}

func (m *Bookings) Update(ctx context.Context, b *entity.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(b)
}

func (m *Bookings) updateLocked(b *entity.Booking) error {
	stored, ok := m.bookings[b.ID]
	if !ok {
		return apperror.ErrBookingNotFound
	}
	if stored.Version != b.Version {
		return apperror.ErrStaleBooking
	}
	b.Version++
	m.history[b.ID] = append(m.history[b.ID], b.PendingHistory()...)
	m.bookings[b.ID] = *b
	return nil
}

func (m *Bookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperror.ErrBookingNotFound
	}
	return &b, nil
}

func (m *Bookings) ListByParty(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Booking
	for _, b := range m.bookings {
		b := b
		switch filter.Role {
		case string(valueobject.RoleBrand):
			if b.BrandID != filter.UserID {
				continue
			}
		case string(valueobject.RoleCreator):
			if b.CreatorID != filter.UserID {
				continue
			}
		default:
			if !b.IsParty(filter.UserID) {
				continue
			}
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *Bookings) History(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.BookingEvent(nil), m.history[bookingID]...), nil
}

// Put кладёт бронирование напрямую, минуя сценарии.
func (m *Bookings) Put(b *entity.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.PendingHistory()
	m.bookings[b.ID] = *b
}

// Deliverables - версионное хранилище поверх Bookings, сдача атомарна под общим мьютексом.
type Deliverables struct {
	bookings *Bookings
	rows     map[uuid.UUID][]entity.Deliverable
}

func NewDeliverables(bookings *Bookings) *Deliverables {
	return &Deliverables{bookings: bookings, rows: make(map[uuid.UUID][]entity.Deliverable)}
}

func (m *Deliverables) SubmitVersion(ctx context.Context, bookingID uuid.UUID, prepare repository.SubmitFunc) (*entity.Booking, []entity.Deliverable, error) {
	m.bookings.mu.Lock()
	defer m.bookings.mu.Unlock()

	stored, ok := m.bookings.bookings[bookingID]
	if !ok {
		return nil, nil, apperror.ErrBookingNotFound
	}
	b := stored

	batch, err := prepare(&b, m.maxVersion(bookingID)+1)
	if err != nil {
		return nil, nil, err
	}
	if err := m.bookings.updateLocked(&b); err != nil {
		return nil, nil, err
	}
	m.rows[bookingID] = append(m.rows[bookingID], batch...)
	return &b, batch, nil
}

func (m *Deliverables) maxVersion(bookingID uuid.UUID) int {
	latest := 0
	for _, d := range m.rows[bookingID] {
		if d.Version > latest {
			latest = d.Version
		}
	}
	return latest
}

func (m *Deliverables) CurrentSet(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error) {
	m.bookings.mu.Lock()
	defer m.bookings.mu.Unlock()
	latest := m.maxVersion(bookingID)
	var out []entity.Deliverable
	for _, d := range m.rows[bookingID] {
		if d.Version == latest {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Deliverables) History(ctx context.Context, bookingID uuid.UUID) ([]entity.Deliverable, error) {
	m.bookings.mu.Lock()
	defer m.bookings.mu.Unlock()
	out := append([]entity.Deliverable(nil), m.rows[bookingID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *Deliverables) LatestVersion(ctx context.Context, bookingID uuid.UUID) (int, error) {
	m.bookings.mu.Lock()
	defer m.bookings.mu.Unlock()
	return m.maxVersion(bookingID), nil
}

// Disputes повторяет частичный уникальный индекс: один нерешённый спор на бронирование.
type Disputes struct {
	mu       sync.Mutex
	disputes map[uuid.UUID]entity.Dispute
}

func NewDisputes() *Disputes {
	return &Disputes{disputes: make(map[uuid.UUID]entity.Dispute)}
}

func (m *Disputes) Create(ctx context.Context, d *entity.Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.disputes {
		if existing.BookingID == d.BookingID && existing.IsUnresolved() {
			return apperror.ErrDisputeExists
		}
	}
	m.disputes[d.ID] = *d
	return nil
}

func (m *Disputes) Update(ctx context.Context, d *entity.Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.disputes[d.ID]
	if !ok {
		return apperror.ErrDisputeNotFound
	}
	if !stored.IsUnresolved() {
		return apperror.New(apperror.ErrCodeConflict, "спор уже решён")
	}
	m.disputes[d.ID] = *d
	return nil
}

func (m *Disputes) FindByID(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return &d, nil
}

func (m *Disputes) FindUnresolvedByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.disputes {
		if d.BookingID == bookingID && d.IsUnresolved() {
			return &d, nil
		}
	}
	return nil, apperror.ErrDisputeNotFound
}

func (m *Disputes) FindLatestByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *entity.Dispute
	for _, d := range m.disputes {
		d := d
		if d.BookingID == bookingID && (latest == nil || d.CreatedAt.After(latest.CreatedAt)) {
			latest = &d
		}
	}
	if latest == nil {
		return nil, apperror.ErrDisputeNotFound
	}
	return latest, nil
}

func (m *Disputes) List(ctx context.Context, filter repository.DisputeFilter) ([]*entity.Dispute, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Dispute
	for _, d := range m.disputes {
		d := d
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, len(out), nil
}

type Services struct {
	mu       sync.Mutex
	services map[uuid.UUID]*entity.CreatorService
}

func NewServices() *Services {
	return &Services{services: make(map[uuid.UUID]*entity.CreatorService)}
}

func (m *Services) Create(ctx context.Context, s *entity.CreatorService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s
	return nil
}

func (m *Services) FindByID(ctx context.Context, id uuid.UUID) (*entity.CreatorService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, apperror.ErrServiceNotFound
	}
	return s, nil
}

func (m *Services) ListByCreator(ctx context.Context, creatorID uuid.UUID, onlyActive bool) ([]*entity.CreatorService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.CreatorService
	for _, s := range m.services {
		if s.CreatorID == creatorID && (!onlyActive || s.IsActive) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Notifier запоминает события вместо отправки.
type Notifier struct {
	mu     sync.Mutex
	Events []notify.Event
}

func (n *Notifier) Notify(ctx context.Context, e notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Events = append(n.Events, e)
}

// OfType возвращает события указанного типа.
func (n *Notifier) OfType(t notify.Type) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.Events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type ScheduledJob struct {
	Type    string
	Payload any
	DueAt   time.Time
}

// Scheduler запоминает поставленные задачи.
type Scheduler struct {
	mu   sync.Mutex
	Jobs []ScheduledJob
	Err  error
}

func (s *Scheduler) Schedule(ctx context.Context, jobType string, payload any, dueAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Jobs = append(s.Jobs, ScheduledJob{Type: jobType, Payload: payload, DueAt: dueAt})
	return nil
}

func (s *Scheduler) OfType(jobType string) []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ScheduledJob
	for _, j := range s.Jobs {
		if j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}

// FileStore держит содержимое в памяти. FailAfter > 0 роняет загрузку после N успешных.
type FileStore struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	FailAfter int
	puts      int
}

func NewFileStore() *FileStore {
	return &FileStore{Objects: make(map[string][]byte)}
}

func (s *FileStore) Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAfter > 0 && s.puts >= s.FailAfter {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.puts++
	s.Objects[key] = data
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	s.Deleted = append(s.Deleted, key)
	return nil
}

func (s *FileStore) Backend() string { return "memory" }

// Directory - справочник контактов для тестов.
type Directory struct {
	Parties map[uuid.UUID]*entity.Party
}

func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error) {
	if p, ok := d.Parties[id]; ok {
		return p, nil
	}
	return nil, apperror.ErrPartyNotFound
}

func (d *Directory) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Party, error) {
	out := make(map[uuid.UUID]*entity.Party)
	for _, id := range ids {
		if p, ok := d.Parties[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (d *Directory) ListAdmins(ctx context.Context) ([]*entity.Party, error) {
	var out []*entity.Party
	for _, p := range d.Parties {
		if p.Role == string(valueobject.RoleAdmin) {
			out = append(out, p)
		}
	}
	return out, nil
}
