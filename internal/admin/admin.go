// Package admin implements the write side of the calendar: manual fast
// overrides, holidays, custom events and festival management.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	appLog "trustcal/internal/log"
	"trustcal/internal/metrics"
	"trustcal/internal/model"
	"trustcal/internal/notify"
	"trustcal/internal/suntimes"
)

// ErrInvalidInput marks validation failures; callers map it to 400.
var ErrInvalidInput = errors.New("invalid input")

const defaultSunTimeout = 2 * time.Second

// Repository is the subset of the store the service writes through.
type Repository interface {
	UpsertEntry(ctx context.Context, e model.CalendarEntry) (model.CalendarEntry, error)
	CreateFestival(ctx context.Context, f model.Festival) (model.Festival, error)
	SetFestivalActive(ctx context.Context, id uuid.UUID, active bool) (model.Festival, error)
}

// Options wires optional collaborators. Nil fields are tolerated.
type Options struct {
	SunTimes   suntimes.Provider
	SunTimeout time.Duration
	Notifier   notify.Notifier
	Metrics    *metrics.Metrics
}

type Service struct {
	repo       Repository
	sun        suntimes.Provider
	sunTimeout time.Duration
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	validate   *validator.Validate
}

func NewService(repo Repository, opts Options) *Service {
	if opts.SunTimeout <= 0 {
		opts.SunTimeout = defaultSunTimeout
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Noop{}
	}
	return &Service{
		repo:       repo,
		sun:        opts.SunTimes,
		sunTimeout: opts.SunTimeout,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		validate:   validator.New(),
	}
}

type overrideInput struct {
	Status string `validate:"required,oneof=upass biyashna"`
}

type noteInput struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"max=4000"`
	Reason      string `validate:"max=4000"`
}

type festivalInput struct {
	Name        string `validate:"required,max=255"`
	Description string `validate:"max=4000"`
}

// SetOverride pins date to status permanently. Sun times are cached on the
// entry when the provider answers in time.
func (s *Service) SetOverride(ctx context.Context, date time.Time, status model.Status, adminID uuid.UUID) (model.CalendarEntry, error) {
	const op = "set_override"
	if err := s.check(date, overrideInput{Status: string(status)}); err != nil {
		s.metrics.AdminOperation(op, err)
		return model.CalendarEntry{}, err
	}

	e := model.CalendarEntry{
		Date:             model.DateOf(date),
		EntryType:        model.EntryType(status),
		IsManualOverride: true,
		CreatedBy:        adminID,
	}
	if st, ok := s.lookupSunTimes(ctx, e.Date); ok {
		e.SunriseTime, e.SunsetTime = st.Sunrise, st.Sunset
	}

	saved, err := s.repo.UpsertEntry(ctx, e)
	s.metrics.AdminOperation(op, err)
	if err != nil {
		return model.CalendarEntry{}, fmt.Errorf("set override: %w", err)
	}
	appLog.Info("override set", "date", model.DateKey(saved.Date), "status", status, "admin", adminID)
	return saved, nil
}

// MarkHoliday replaces whatever is stored for date with a holiday and
// announces it. Notification failures do not fail the call.
func (s *Service) MarkHoliday(ctx context.Context, date time.Time, title, description, reason string, adminID uuid.UUID) (model.CalendarEntry, error) {
	const op = "mark_holiday"
	in := noteInput{Title: strings.TrimSpace(title), Description: description, Reason: reason}
	if err := s.check(date, in); err != nil {
		s.metrics.AdminOperation(op, err)
		return model.CalendarEntry{}, err
	}

	saved, err := s.repo.UpsertEntry(ctx, model.CalendarEntry{
		Date:        model.DateOf(date),
		EntryType:   model.EntryHoliday,
		Title:       in.Title,
		Description: description,
		Reason:      reason,
		CreatedBy:   adminID,
	})
	s.metrics.AdminOperation(op, err)
	if err != nil {
		return model.CalendarEntry{}, fmt.Errorf("mark holiday: %w", err)
	}
	appLog.Info("holiday marked", "date", model.DateKey(saved.Date), "title", saved.Title, "admin", adminID)

	if err := s.notifier.Notify(ctx, "Holiday: "+saved.Title, holidayMessage(saved)); err != nil {
		appLog.Warn("holiday notification failed", "date", model.DateKey(saved.Date), "err", err)
	}
	return saved, nil
}

// AddCustomEvent stores a custom event for date. The day keeps its default
// fast status.
func (s *Service) AddCustomEvent(ctx context.Context, date time.Time, title, description string, adminID uuid.UUID) (model.CalendarEntry, error) {
	const op = "add_custom_event"
	in := noteInput{Title: strings.TrimSpace(title), Description: description}
	if err := s.check(date, in); err != nil {
		s.metrics.AdminOperation(op, err)
		return model.CalendarEntry{}, err
	}

	saved, err := s.repo.UpsertEntry(ctx, model.CalendarEntry{
		Date:        model.DateOf(date),
		EntryType:   model.EntryCustomEvent,
		Title:       in.Title,
		Description: description,
		CreatedBy:   adminID,
	})
	s.metrics.AdminOperation(op, err)
	if err != nil {
		return model.CalendarEntry{}, fmt.Errorf("add custom event: %w", err)
	}
	appLog.Info("custom event added", "date", model.DateKey(saved.Date), "title", saved.Title, "admin", adminID)
	return saved, nil
}

// AddFestival creates an active festival.
func (s *Service) AddFestival(ctx context.Context, name string, date time.Time, description string, recurring bool) (model.Festival, error) {
	const op = "add_festival"
	in := festivalInput{Name: strings.TrimSpace(name), Description: description}
	if err := s.check(date, in); err != nil {
		s.metrics.AdminOperation(op, err)
		return model.Festival{}, err
	}

	f, err := s.repo.CreateFestival(ctx, model.Festival{
		Name:        in.Name,
		Date:        model.DateOf(date),
		Description: description,
		IsRecurring: recurring,
		IsActive:    true,
	})
	s.metrics.AdminOperation(op, err)
	if err != nil {
		return model.Festival{}, fmt.Errorf("add festival: %w", err)
	}
	appLog.Info("festival added", "id", f.ID, "name", f.Name, "recurring", recurring)
	return f, nil
}

func (s *Service) SetFestivalActive(ctx context.Context, id uuid.UUID, active bool) (model.Festival, error) {
	const op = "set_festival_active"
	if id == uuid.Nil {
		err := fmt.Errorf("%w: festival id is required", ErrInvalidInput)
		s.metrics.AdminOperation(op, err)
		return model.Festival{}, err
	}
	f, err := s.repo.SetFestivalActive(ctx, id, active)
	s.metrics.AdminOperation(op, err)
	if err != nil {
		return model.Festival{}, fmt.Errorf("set festival %s active=%t: %w", id, active, err)
	}
	appLog.Info("festival toggled", "id", id, "active", active)
	return f, nil
}

func (s *Service) lookupSunTimes(ctx context.Context, date time.Time) (model.SunTimes, bool) {
	if s.sun == nil {
		return model.SunTimes{}, false
	}
	sctx, cancel := context.WithTimeout(ctx, s.sunTimeout)
	defer cancel()
	st, err := s.sun.SunTimes(sctx, date)
	if err != nil {
		appLog.Warn("sun times unavailable for override", "date", model.DateKey(date), "err", err)
		return model.SunTimes{}, false
	}
	return st, true
}

// check requires a date, runs struct validation, and folds failures into
// ErrInvalidInput.
func (s *Service) check(date time.Time, v any) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}

func holidayMessage(e model.CalendarEntry) string {
	var b strings.Builder
	b.WriteString(model.DateKey(e.Date))
	b.WriteString(": ")
	b.WriteString(e.Title)
	if e.Reason != "" {
		b.WriteString("\nReason: ")
		b.WriteString(e.Reason)
	}
	return b.String()
}
