package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"trustcal/internal/model"
)

// entryUpdateColumns are overwritten when an entry for an existing date is
// saved. created_at is kept.
var entryUpdateColumns = []string{
	"entry_type",
	"is_manual_override",
	"title",
	"description",
	"reason",
	"sunrise_time",
	"sunset_time",
	"created_by",
	"updated_at",
}

// UpsertEntry stores e as the one entry for its date, replacing whatever
// was there, and returns the stored row.
func (s *Store) UpsertEntry(ctx context.Context, e model.CalendarEntry) (model.CalendarEntry, error) {
	e.ID = 0
	e.Date = model.DateOf(e.Date)

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns(entryUpdateColumns),
		}).
		Create(&e).Error
	if err != nil {
		return model.CalendarEntry{}, fmt.Errorf("upsert entry %s: %w", model.DateKey(e.Date), err)
	}
	return s.EntryByDate(ctx, e.Date)
}

// EntryByDate returns ErrNotFound when the date has no entry.
func (s *Store) EntryByDate(ctx context.Context, date time.Time) (model.CalendarEntry, error) {
	var e model.CalendarEntry
	err := s.db.WithContext(ctx).
		Where("date = ?", model.DateOf(date)).
		First(&e).Error
	if err != nil {
		return model.CalendarEntry{}, notFound(err)
	}
	return e, nil
}

// EntriesBetween returns entries dated within [from, to], inclusive.
func (s *Store) EntriesBetween(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	var out []model.CalendarEntry
	err := s.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", model.DateOf(from), model.DateOf(to)).
		Order("date").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}
