package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trustcal/internal/model"
)

// CreateEvent inserts an event, assigning an ID when it has none.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Date = model.DateOf(e.Date)
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return model.Event{}, fmt.Errorf("create event %q: %w", e.Title, err)
	}
	return e, nil
}

// CreateTrip inserts a trip. A zero end date means a single-day trip.
func (s *Store) CreateTrip(ctx context.Context, t model.Trip) (model.Trip, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.StartDate = model.DateOf(t.StartDate)
	if t.EndDate.IsZero() {
		t.EndDate = t.StartDate
	}
	t.EndDate = model.DateOf(t.EndDate)
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return model.Trip{}, fmt.Errorf("create trip %q: %w", t.Title, err)
	}
	return t, nil
}

// PublishedEventsBetween returns published events dated within [from, to].
func (s *Store) PublishedEventsBetween(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	var out []model.Event
	err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Where("date BETWEEN ? AND ?", model.DateOf(from), model.DateOf(to)).
		Order("date").Order("title").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

// PublishedTripsOverlapping returns published trips whose span intersects
// [from, to].
func (s *Store) PublishedTripsOverlapping(ctx context.Context, from, to time.Time) ([]model.Trip, error) {
	var out []model.Trip
	err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Where("start_date <= ? AND end_date >= ?", model.DateOf(to), model.DateOf(from)).
		Order("start_date").Order("title").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return out, nil
}
