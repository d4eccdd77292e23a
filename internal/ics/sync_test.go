package ics

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustcal/internal/config"
	"trustcal/internal/model"
)

type memWriter struct {
	mu   sync.Mutex
	rows map[string]model.Festival
}

func (w *memWriter) UpsertFestivalByUID(_ context.Context, f model.Festival) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rows == nil {
		w.rows = map[string]model.Festival{}
	}
	w.rows[*f.ExternalUID] = f
	return nil
}

func TestSyncAllIsIdempotent(t *testing.T) {
	f, mt := newMockFetcher(t)
	mt.RegisterResponder(http.MethodGet, testFeed.URL, httpmock.NewStringResponder(http.StatusOK, festivalFeed))

	w := &memWriter{}
	s := NewSyncer(f, w, []Feed{testFeed}, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	n, err := s.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = s.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, w.rows, 4)
}

func TestSyncAllReportsFailingFeed(t *testing.T) {
	f, mt := newMockFetcher(t)
	broken := Feed{ID: "broken", URL: "https://feeds.example.org/broken.ics"}
	mt.RegisterResponder(http.MethodGet, testFeed.URL, httpmock.NewStringResponder(http.StatusOK, festivalFeed))
	mt.RegisterResponder(http.MethodGet, broken.URL, httpmock.NewStringResponder(http.StatusOK, "not a calendar"))

	w := &memWriter{}
	s := NewSyncer(f, w, []Feed{testFeed, broken}, nil)

	_, err := s.SyncAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed broken")
	assert.NotEmpty(t, w.rows, "healthy feed still imported")
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := NewSyncer(NewFetcher(t.TempDir(), nil), &memWriter{}, nil, nil)
	_, err := s.Schedule(context.Background(), "every tuesday")
	assert.Error(t, err)

	stop, err := s.Schedule(context.Background(), "0 3 * * *")
	require.NoError(t, err)
	stop()
}

func TestFeedsFromConfig(t *testing.T) {
	feeds := FeedsFromConfig([]config.FeedConfig{
		{URL: "https://a.example/a.ics", ID: "a"},
		{URL: "https://b.example/b.ics"},
	})
	require.Len(t, feeds, 2)
	assert.Equal(t, "a", feeds[0].ID)
	assert.Equal(t, "feed-2", feeds[1].ID)
}
