package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustinTDCT/CineLog/internal/kv"
	"github.com/JustinTDCT/CineLog/internal/models"
)

var inception = models.CatalogEntry{
	ID:       "1",
	Title:    "Inception",
	Year:     "2010",
	Director: "Christopher Nolan",
	Genre:    "Action, Sci-Fi, Thriller",
}

func movie(id, title string) models.CatalogEntry {
	return models.CatalogEntry{ID: id, Title: title}
}

// countingStore wraps a backend and can be told to fail writes.
type countingStore struct {
	kv.Store
	mu      sync.Mutex
	sets    int
	failSet error
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	return c.Store.Set(ctx, key, value)
}

func (c *countingStore) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

type recordedEvent struct {
	name string
	data interface{}
}

type recorder struct {
	events []recordedEvent
}

func (r *recorder) Broadcast(event string, data interface{}) {
	r.events = append(r.events, recordedEvent{event, data})
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *countingStore) {
	t.Helper()
	backend := &countingStore{Store: kv.NewMemoryStore()}
	s := NewStore(backend, opts...)
	require.NoError(t, s.Load(context.Background()))
	return s, backend
}

func TestInceptionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Upsert(ctx, inception, models.WantToWatch{}, "")
	require.NoError(t, err)
	assert.Equal(t, models.Counts{WantToWatch: 1, Total: 1}, s.Counts())

	_, err = s.Upsert(ctx, inception, models.Watched{Rating: 5}, "")
	require.NoError(t, err)
	assert.Equal(t, models.Counts{Watched: 1, Total: 1}, s.Counts())

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, models.Rating(5), all[0].Rating())

	removed, err := s.Remove(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, s.Counts().Total)
}

func TestUpsertKeepsDateAddedAndMovie(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return now }))

	first, err := s.Upsert(ctx, inception, models.WantToWatch{}, "")
	require.NoError(t, err)
	assert.Equal(t, now, first.DateAdded)

	now = now.Add(48 * time.Hour)
	renamed := inception
	renamed.Title = "Inception (Director's Cut)"
	second, err := s.Upsert(ctx, renamed, models.CurrentlyWatching{}, "halfway")
	require.NoError(t, err)

	assert.Equal(t, first.DateAdded, second.DateAdded)
	assert.Equal(t, "Inception", second.Movie.Title)
	assert.Equal(t, "halfway", second.Notes)
	assert.Equal(t, 1, s.Len())
}

func TestRatingDroppedWhenLeavingWatched(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Upsert(ctx, inception, models.Watched{Rating: 4}, "")
	require.NoError(t, err)
	e, err := s.Update(ctx, "1", models.CurrentlyWatching{}, "")
	require.NoError(t, err)
	assert.Equal(t, models.Rating(0), e.Rating())

	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusCurrentlyWatching, got.Status())
	assert.Equal(t, models.Rating(0), got.Rating())
}

func TestUpdateMissing(t *testing.T) {
	s, backend := newTestStore(t)
	_, err := s.Update(context.Background(), "nope", models.WantToWatch{}, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, backend.writes())
}

func TestNilStateRejected(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Upsert(context.Background(), inception, nil, "")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
	assert.Equal(t, 0, s.Len())
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, err := s.Upsert(ctx, inception, models.WantToWatch{}, "")
	require.NoError(t, err)

	removed, err := s.Remove(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)
	writes := backend.writes()

	removed, err = s.Remove(ctx, "1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, writes, backend.writes())
	assert.Equal(t, 0, s.Len())
}

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s, backend := newTestStore(t)
	_, err := s.Upsert(ctx, inception, models.WantToWatch{}, "keep")
	require.NoError(t, err)

	backend.failSet = errors.New("disk full")

	_, err = s.Upsert(ctx, inception, models.Watched{Rating: 3}, "")
	assert.Error(t, err)
	_, err = s.Upsert(ctx, movie("2", "Heat"), models.WantToWatch{}, "")
	assert.Error(t, err)
	_, err = s.Update(ctx, "1", models.CurrentlyWatching{}, "")
	assert.Error(t, err)
	removed, err := s.Remove(ctx, "1")
	assert.Error(t, err)
	assert.False(t, removed)

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, models.StatusWantToWatch, all[0].Status())
	assert.Equal(t, "keep", all[0].Notes)
	_, ok := s.Get("2")
	assert.False(t, ok)
}

func TestReloadPreservesOrder(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	s := NewStore(backend)
	require.NoError(t, s.Load(ctx))

	ids := []string{"3", "1", "2"}
	for _, id := range ids {
		_, err := s.Upsert(ctx, movie(id, "m"+id), models.Watched{Rating: 2}, "n"+id)
		require.NoError(t, err)
	}

	reloaded := NewStore(backend)
	require.NoError(t, reloaded.Load(ctx))
	all := reloaded.All()
	require.Len(t, all, 3)
	for i, id := range ids {
		assert.Equal(t, id, all[i].ID())
		assert.Equal(t, "n"+id, all[i].Notes)
		assert.Equal(t, models.Rating(2), all[i].Rating())
	}
}

func TestLoadDropsDuplicates(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	v := kv.NewValue(backend, Key, []models.CollectionEntry{})
	require.NoError(t, v.Set(ctx, []models.CollectionEntry{
		{Movie: movie("1", "first"), State: models.WantToWatch{}},
		{Movie: movie("1", "second"), State: models.Watched{}},
	}))

	s := NewStore(backend)
	require.NoError(t, s.Load(ctx))
	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, "first", all[0].Movie.Title)
}

func TestLoadRepairsBadEntries(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, Key, []byte(`[
		{"movie":{"id":"1","title":"Inception"},"status":"watched","rating":9},
		{"movie":{"id":"2","title":"Heat"},"status":"watched","rating":-2},
		{"movie":{"id":"3","title":"Alien"},"status":"abandoned"},
		{"movie":{"id":"4","title":"Up"},"status":"want-to-watch","rating":7}
	]`)))

	s := NewStore(backend)
	require.NoError(t, s.Load(ctx))
	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, models.Rating(5), all[0].Rating())
	assert.Equal(t, models.StatusWatched, all[1].Status())
	assert.Equal(t, models.Rating(0), all[1].Rating())
	assert.Equal(t, "4", all[2].ID())
	assert.Equal(t, models.StatusWantToWatch, all[2].Status())
	assert.Equal(t, models.Rating(0), all[2].Rating())

	_, err := s.Upsert(ctx, movie("5", "Jaws"), models.WantToWatch{}, "")
	require.NoError(t, err)
	reloaded := NewStore(backend)
	require.NoError(t, reloaded.Load(ctx))
	require.Len(t, reloaded.All(), 4)
	assert.Equal(t, models.Rating(5), reloaded.All()[0].Rating())
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, models.Counts{}, s.Counts())
}

func TestListByStatusPartitions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	states := map[string]models.State{
		"a": models.Watched{Rating: 1},
		"b": models.CurrentlyWatching{},
		"c": models.WantToWatch{},
		"d": models.Watched{},
		"e": models.WantToWatch{},
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := s.Upsert(ctx, movie(id, id), states[id], "")
		require.NoError(t, err)
	}

	seen := map[string]int{}
	total := 0
	for _, status := range models.Statuses {
		for e := range s.ListByStatus(status) {
			assert.Equal(t, status, e.Status())
			seen[e.ID()]++
			total++
		}
	}
	assert.Equal(t, s.Len(), total)
	for id := range states {
		assert.Equal(t, 1, seen[id], id)
	}

	c := s.Counts()
	assert.Equal(t, models.Counts{Watched: 2, CurrentlyWatching: 1, WantToWatch: 2, Total: 5}, c)
	assert.Equal(t, c.Total, c.Watched+c.CurrentlyWatching+c.WantToWatch)
}

func TestListByStatusRestartable(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, id := range []string{"1", "2", "3"} {
		_, err := s.Upsert(ctx, movie(id, id), models.WantToWatch{}, "")
		require.NoError(t, err)
	}

	seq := s.ListByStatus(models.StatusWantToWatch)
	collect := func() []string {
		var ids []string
		for e := range seq {
			ids = append(ids, e.ID())
		}
		return ids
	}
	assert.Equal(t, []string{"1", "2", "3"}, collect())

	_, err := s.Remove(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, collect())

	// stopping early
	var first []string
	for e := range seq {
		first = append(first, e.ID())
		break
	}
	assert.Equal(t, []string{"1"}, first)
}

func TestListByStatusMutationDuringIteration(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, id := range []string{"1", "2"} {
		_, err := s.Upsert(ctx, movie(id, id), models.WantToWatch{}, "")
		require.NoError(t, err)
	}

	var ids []string
	for e := range s.ListByStatus(models.StatusWantToWatch) {
		ids = append(ids, e.ID())
		_, err := s.Remove(ctx, e.ID())
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, 0, s.Len())
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for i := 0; i < 4; i++ {
		id := string(rune('a' + i))
		_, err := s.Upsert(ctx, movie("w"+id, id), models.Watched{Rating: 3}, "")
		require.NoError(t, err)
		_, err = s.Upsert(ctx, movie("c"+id, id), models.CurrentlyWatching{}, "")
		require.NoError(t, err)
	}
	_, err := s.Upsert(ctx, movie("t", "t"), models.WantToWatch{}, "")
	require.NoError(t, err)

	ov := s.Overview(2)
	assert.Equal(t, models.Counts{Watched: 4, CurrentlyWatching: 4, WantToWatch: 1, Total: 9}, ov.Counts)
	assert.Len(t, ov.CurrentlyWatching, 4)
	require.Len(t, ov.RecentlyWatched, 2)
	assert.Equal(t, "wa", ov.RecentlyWatched[0].ID())
	assert.Len(t, ov.WantToWatch, 1)

	assert.Len(t, s.Overview(0).RecentlyWatched, 4)
}

func TestOverviewEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	ov := s.Overview(6)
	assert.NotNil(t, ov.CurrentlyWatching)
	assert.NotNil(t, ov.RecentlyWatched)
	assert.NotNil(t, ov.WantToWatch)
	assert.Equal(t, 0, ov.Counts.Total)
}

func TestNotifierEvents(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s, backend := newTestStore(t, WithNotifier(rec))

	_, err := s.Upsert(ctx, inception, models.WantToWatch{}, "")
	require.NoError(t, err)
	_, err = s.Remove(ctx, "1")
	require.NoError(t, err)
	_, err = s.Remove(ctx, "1")
	require.NoError(t, err)

	backend.failSet = errors.New("boom")
	_, err = s.Upsert(ctx, inception, models.WantToWatch{}, "")
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, EventUpsert, rec.events[0].name)
	entry, ok := rec.events[0].data.(models.CollectionEntry)
	require.True(t, ok)
	assert.Equal(t, "1", entry.ID())
	assert.Equal(t, EventRemove, rec.events[1].name)
	assert.Equal(t, map[string]string{"id": "1"}, rec.events[1].data)
}

func TestConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('A' + i))
			_, err := s.Upsert(ctx, movie(id, id), models.WantToWatch{}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Len())
}
