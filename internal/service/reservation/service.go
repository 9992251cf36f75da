package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkrylov/tablebook/internal/availability"
	"github.com/mkrylov/tablebook/internal/domain"
	"github.com/mkrylov/tablebook/internal/email"
	"github.com/mkrylov/tablebook/internal/kafka"
	"github.com/mkrylov/tablebook/internal/repository"
	"github.com/mkrylov/tablebook/internal/schedule"
)

const dateLayout = "2006-01-02"

type ReservationUseCase interface {
	Availability(ctx context.Context) (*Page, error)
	Submit(ctx context.Context, input SubmitInput) (*domain.Snapshot, error)
	Rotate(ctx context.Context) (int, error)
}

// Locker is the process-wide admission lock. Acquire reports false when the
// bounded wait expired without obtaining the lock.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Notifier delivers the confirmation email synchronously; a delivery
// failure aborts the admission.
type Notifier interface {
	Send(ctx context.Context, msg email.Message) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Service struct {
	active             repository.RecordStore
	archive            repository.RecordStore
	settings           repository.SettingsSource
	locker             Locker
	mailer             Notifier
	producer           Producer
	notificationsTopic string
	now                func() time.Time
}

type ServiceOption func(*Service)

func WithNotificationsTopic(topic string) ServiceOption {
	return func(s *Service) {
		s.notificationsTopic = topic
	}
}

// WithClock overrides the service's notion of "today" for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	active repository.RecordStore,
	archive repository.RecordStore,
	settings repository.SettingsSource,
	locker Locker,
	mailer Notifier,
	producer Producer,
	opts ...ServiceOption,
) *Service {
	service := &Service{
		active:   active,
		archive:  archive,
		settings: settings,
		locker:   locker,
		mailer:   mailer,
		producer: producer,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SubmitInput is one reservation request. The end of the interval is
// derived from the start label and the configured occupancy duration, never
// taken from the client.
type SubmitInput struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	PartySize int    `json:"numberPersons"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Comment   string `json:"comment"`
}

// Page is the read-path response: the recomputed calendar plus the page
// copy the presentation layer renders around it.
type Page struct {
	Snapshot     *domain.Snapshot `json:"table"`
	Explanation  string           `json:"explanationOfReservationPage"`
	Agreements   string           `json:"agreementsForReservation"`
	ContactEmail string           `json:"contactEmail"`
}

// Availability rotates settled rows to the archive, then recomputes the
// calendar from the remaining active set. Reads take no lock; the snapshot
// is best-effort fresh as of the store read.
func (s *Service) Availability(ctx context.Context) (*Page, error) {
	settings, err := s.resolveSettings(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.rotate(ctx, settings); err != nil {
		return nil, err
	}

	records, err := s.active.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read active store: %w", err)
	}

	snapshot, anomalies := availability.Calculate(records, settings, s.now())
	s.reportAnomalies(ctx, settings, anomalies)

	return &Page{
		Snapshot:     snapshot,
		Explanation:  settings.Explanation,
		Agreements:   settings.Agreements,
		ContactEmail: settings.ContactEmail,
	}, nil
}

// Submit admits one reservation. The duplicate check, capacity check,
// confirmation delivery and append all run under the admission lock so that
// two concurrent submissions cannot both pass the check against the same
// stale snapshot.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Snapshot, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	ok, err := s.locker.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire admission lock: %w", err)
	}
	if !ok {
		return nil, ErrLockTimeout
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("release admission lock: %v", err)
		}
	}()

	settings, err := s.resolveSettings(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.rotate(ctx, settings); err != nil {
		return nil, err
	}

	records, err := s.active.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read active store: %w", err)
	}

	start, end, err := interval(input, settings)
	if err != nil {
		return nil, err
	}

	if availability.Duplicate(records, input.Email, input.Phone, start, end) {
		return nil, ErrDuplicateSubmission
	}

	snapshot, anomalies := availability.Calculate(records, settings, s.now())
	s.reportAnomalies(ctx, settings, anomalies)

	if err := s.checkCapacity(snapshot, input, settings); err != nil {
		return nil, err
	}

	endLabel, err := settings.EndLabel(input.StartTime)
	if err != nil {
		return nil, &ValidationError{Field: "startTime", Reason: err.Error()}
	}
	if err := s.sendConfirmation(ctx, settings, input, start, end); err != nil {
		s.publish(ctx, kafka.ReservationEvent{
			Type:      kafka.EventDeliveryFailed,
			Date:      input.Date,
			StartTime: input.StartTime,
			EndTime:   endLabel,
			Name:      input.Name,
			Email:     input.Email,
			Phone:     input.Phone,
			PartySize: input.PartySize,
			Detail:    err.Error(),
			At:        s.now(),
		})
		return nil, fmt.Errorf("%w: %v", ErrInvalidContact, err)
	}

	record := domain.Record{
		ID:        uuid.New(),
		CreatedAt: s.now(),
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		PartySize: input.PartySize,
		Start:     start,
		End:       end,
		Status:    domain.StatusNone,
		Comment:   input.Comment,
	}
	if err := s.active.Append(ctx, record); err != nil {
		return nil, &StoreWriteError{Err: err}
	}

	s.publish(ctx, kafka.ReservationEvent{
		Type:      kafka.EventReservationAccepted,
		Date:      input.Date,
		StartTime: input.StartTime,
		EndTime:   endLabel,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		PartySize: input.PartySize,
		At:        s.now(),
	})

	fresh, _ := availability.Calculate(append(records, record), settings, s.now())
	return fresh, nil
}

// Rotate moves settled rows to the archive outside a request cycle; the
// worker calls it periodically. Returns the number of rows moved.
func (s *Service) Rotate(ctx context.Context) (int, error) {
	settings, err := s.resolveSettings(ctx)
	if err != nil {
		return 0, err
	}
	return s.rotate(ctx, settings)
}

// rotate partitions rows whose interval starts before today's midnight
// into the archive and rewrites the active store with the rest. Running it
// again with nothing past is a no-op.
func (s *Service) rotate(ctx context.Context, settings *schedule.Settings) (int, error) {
	records, err := s.active.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read active store: %w", err)
	}

	today := s.now().In(settings.Location)
	cutoff := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, settings.Location)

	var past, current []domain.Record
	for _, r := range records {
		if r.Start.Before(cutoff) {
			past = append(past, r)
		} else {
			current = append(current, r)
		}
	}
	if len(past) == 0 {
		return 0, nil
	}

	if err := s.archive.Append(ctx, past...); err != nil {
		return 0, fmt.Errorf("append archive store: %w", err)
	}
	if err := s.active.Rewrite(ctx, current); err != nil {
		return 0, fmt.Errorf("rewrite active store: %w", err)
	}
	return len(past), nil
}

func (s *Service) resolveSettings(ctx context.Context) (*schedule.Settings, error) {
	raw, err := s.settings.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return schedule.Resolve(raw)
}

func (s *Service) checkCapacity(snapshot *domain.Snapshot, input SubmitInput, settings *schedule.Settings) error {
	span, err := settings.SpanLabels(input.StartTime)
	if err != nil {
		return &ValidationError{Field: "startTime", Reason: err.Error()}
	}
	day := snapshot.Day(input.Date)
	if day == nil || day.Holiday {
		return nil
	}
	var short []SlotShortfall
	for _, label := range span {
		slot := day.Slot(label)
		if slot != nil && slot.RemainingSeats-input.PartySize < 0 {
			short = append(short, SlotShortfall{Start: slot.Start, Remaining: slot.RemainingSeats})
		}
	}
	if len(short) > 0 {
		return &CapacityExceededError{Date: input.Date, Slots: short}
	}
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, settings *schedule.Settings, input SubmitInput, start, end time.Time) error {
	body := strings.Join([]string{
		"--- Reservation information ---",
		"",
		fmt.Sprintf("Date: %s to %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04")),
		fmt.Sprintf("Reserved seats: %d", input.PartySize),
		fmt.Sprintf("Name: %s", input.Name),
		fmt.Sprintf("Email: %s", input.Email),
		fmt.Sprintf("Phone: %s", input.Phone),
		fmt.Sprintf("Comment: %s", input.Comment),
	}, "\n")
	return s.mailer.Send(ctx, email.Message{
		To:      input.Email,
		Bcc:     settings.NotificationRecipients,
		Subject: "Reservation information",
		Body:    body,
	})
}

// reportAnomalies publishes overlapping holiday/booking rows as an operator
// alert. Failures only log: the anomaly path never blocks a read or write.
func (s *Service) reportAnomalies(ctx context.Context, settings *schedule.Settings, anomalies []domain.Record) {
	if len(anomalies) == 0 {
		return
	}
	detail, err := json.Marshal(anomalies)
	if err != nil {
		detail = []byte(fmt.Sprintf("%d conflicting records", len(anomalies)))
	}
	s.publish(ctx, kafka.ReservationEvent{
		Type:   kafka.EventAnomalyDetected,
		Detail: string(detail),
		At:     s.now(),
	})
}

func (s *Service) publish(ctx context.Context, event kafka.ReservationEvent) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, uuid.NewString(), event); err != nil {
		log.Printf("publish %s event: %v", event.Type, err)
	}
}

func validate(input SubmitInput) error {
	if input.PartySize <= 0 {
		return &ValidationError{Field: "numberPersons", Reason: "party size must be positive"}
	}
	if strings.TrimSpace(input.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if strings.TrimSpace(input.Email) == "" {
		return &ValidationError{Field: "email", Reason: "email is required"}
	}
	if strings.TrimSpace(input.Phone) == "" {
		return &ValidationError{Field: "phone", Reason: "phone is required"}
	}
	if _, err := time.Parse(dateLayout, input.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	if _, err := schedule.ParseClock(input.StartTime); err != nil {
		return &ValidationError{Field: "startTime", Reason: err.Error()}
	}
	return nil
}

func interval(input SubmitInput, settings *schedule.Settings) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, input.Date, settings.Location)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	min, err := schedule.ParseClock(input.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "startTime", Reason: err.Error()}
	}
	start := day.Add(time.Duration(min) * time.Minute)
	return start, start.Add(time.Duration(settings.MealMin) * time.Minute), nil
}

var _ ReservationUseCase = (*Service)(nil)
