// Package suntimes computes sunrise/sunset clock times for the trust's site.
package suntimes

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sj14/astral/pkg/astral"

	"trustcal/internal/model"
)

// ClockLayout is the "HH:MM" format sun times are reported in.
const ClockLayout = "15:04"

// Provider returns sun times for a civil date.
type Provider interface {
	SunTimes(ctx context.Context, date time.Time) (model.SunTimes, error)
}

// AstralProvider calculates sun times locally for a fixed observer.
type AstralProvider struct {
	observer astral.Observer
	loc      *time.Location
}

// NewAstralProvider creates a provider for the given coordinates; times are
// reported in loc (time.Local if nil).
func NewAstralProvider(latitude, longitude float64, loc *time.Location) *AstralProvider {
	if loc == nil {
		loc = time.Local
	}
	return &AstralProvider{
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		loc:      loc,
	}
}

// SunTimes fails when the sun does not rise or set on that date at the
// observer's latitude.
func (p *AstralProvider) SunTimes(ctx context.Context, date time.Time) (model.SunTimes, error) {
	if err := ctx.Err(); err != nil {
		return model.SunTimes{}, err
	}

	day := model.DateOf(date)

	sunrise, err := astral.Sunrise(p.observer, day)
	if err != nil {
		return model.SunTimes{}, fmt.Errorf("failed to calculate sunrise for %s: %w", model.DateKey(day), err)
	}
	sunset, err := astral.Sunset(p.observer, day)
	if err != nil {
		return model.SunTimes{}, fmt.Errorf("failed to calculate sunset for %s: %w", model.DateKey(day), err)
	}

	return model.SunTimes{
		Sunrise: sunrise.In(p.loc).Format(ClockLayout),
		Sunset:  sunset.In(p.loc).Format(ClockLayout),
	}, nil
}

// Cached memoizes successful lookups of another Provider by date.
// Failures are not cached.
type Cached struct {
	next  Provider
	cache *cache.Cache
}

// NewCached wraps next with a TTL cache. A zero cleanup interval disables
// the background janitor; expired items are then dropped on access.
func NewCached(next Provider, ttl, cleanup time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.New(ttl, cleanup),
	}
}

func (c *Cached) SunTimes(ctx context.Context, date time.Time) (model.SunTimes, error) {
	key := model.DateKey(model.DateOf(date))
	if v, ok := c.cache.Get(key); ok {
		return v.(model.SunTimes), nil
	}

	st, err := c.next.SunTimes(ctx, date)
	if err != nil {
		return model.SunTimes{}, err
	}
	c.cache.SetDefault(key, st)
	return st, nil
}

// Len reports the number of cached dates.
func (c *Cached) Len() int {
	return c.cache.ItemCount()
}
