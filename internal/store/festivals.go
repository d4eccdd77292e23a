package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"trustcal/internal/model"
)

// CreateFestival inserts f, assigning an ID when it has none.
func (s *Store) CreateFestival(ctx context.Context, f model.Festival) (model.Festival, error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Date = model.DateOf(f.Date)
	if err := s.db.WithContext(ctx).Create(&f).Error; err != nil {
		return model.Festival{}, fmt.Errorf("create festival %q: %w", f.Name, err)
	}
	return f, nil
}

func (s *Store) FestivalByID(ctx context.Context, id uuid.UUID) (model.Festival, error) {
	var f model.Festival
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return model.Festival{}, notFound(err)
	}
	return f, nil
}

// SetFestivalActive toggles visibility without deleting the festival.
func (s *Store) SetFestivalActive(ctx context.Context, id uuid.UUID, active bool) (model.Festival, error) {
	f, err := s.FestivalByID(ctx, id)
	if err != nil {
		return model.Festival{}, err
	}
	if err := s.db.WithContext(ctx).Model(&f).Update("is_active", active).Error; err != nil {
		return model.Festival{}, fmt.Errorf("update festival %s: %w", id, err)
	}
	f.IsActive = active
	return f, nil
}

// ListFestivals returns festivals ordered by date then name.
func (s *Store) ListFestivals(ctx context.Context, includeInactive bool) ([]model.Festival, error) {
	q := s.db.WithContext(ctx).Order("date").Order("name")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []model.Festival
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list festivals: %w", err)
	}
	return out, nil
}

// ActiveFestivals returns every active festival. Recurrence is resolved
// per day by the caller.
func (s *Store) ActiveFestivals(ctx context.Context) ([]model.Festival, error) {
	return s.ListFestivals(ctx, false)
}

// UpsertFestivalByUID inserts or refreshes a feed-imported festival keyed
// by its ExternalUID. An admin's is_active choice survives refreshes.
func (s *Store) UpsertFestivalByUID(ctx context.Context, f model.Festival) error {
	if f.ExternalUID == nil || *f.ExternalUID == "" {
		return fmt.Errorf("festival %q has no external uid", f.Name)
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Date = model.DateOf(f.Date)

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "date", "description", "is_recurring", "updated_at"}),
		}).
		Create(&f).Error
	if err != nil {
		return fmt.Errorf("upsert festival %s: %w", *f.ExternalUID, err)
	}
	return nil
}
