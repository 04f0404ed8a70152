// Package collection owns the user's tracked movies. Every mutation is
// written through to the key-value backend before it becomes visible.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"time"

	"github.com/JustinTDCT/CineLog/internal/kv"
	"github.com/JustinTDCT/CineLog/internal/models"
)

// Key is the single key the whole collection is stored under.
const Key = "user-movies"

const (
	EventUpsert = "collection:upsert"
	EventRemove = "collection:remove"
)

var ErrNotFound = errors.New("movie not in collection")

type Notifier interface {
	Broadcast(event string, data interface{})
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

type Store struct {
	mu       sync.Mutex
	value    *kv.Value[[]models.CollectionEntry]
	raw      *kv.Value[[]json.RawMessage]
	entries  []models.CollectionEntry
	index    map[string]int
	now      func() time.Time
	notifier Notifier
}

func NewStore(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		value: kv.NewValue(backend, Key, []models.CollectionEntry{}),
		raw:   kv.NewValue(backend, Key, []json.RawMessage{}),
		index: make(map[string]int),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory collection with the persisted one. A missing
// key yields an empty collection. Unreadable entries are dropped and
// out-of-range ratings clamped; the repair is persisted on the next write.
func (s *Store) Load(ctx context.Context) error {
	raws, err := s.raw.Get(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]models.CollectionEntry, 0, len(raws))
	s.index = make(map[string]int, len(raws))
	for i, data := range raws {
		e, repaired, err := models.DecodeStoredEntry(data)
		if err != nil {
			log.Printf("[collection] dropping unreadable entry %d: %v", i, err)
			continue
		}
		if repaired {
			log.Printf("[collection] rating for movie %s out of range, clamped to %d", e.ID(), e.Rating())
		}
		if _, dup := s.index[e.ID()]; dup {
			log.Printf("[collection] dropping duplicate entry for movie %s", e.ID())
			continue
		}
		s.index[e.ID()] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	log.Printf("[collection] loaded %d entries", len(s.entries))
	return nil
}

// Upsert adds movie with the given state, or replaces state and notes of the
// existing entry for movie.ID. dateAdded and the stored movie copy of an
// existing entry are kept.
func (s *Store) Upsert(ctx context.Context, movie models.CatalogEntry, state models.State, notes string) (models.CollectionEntry, error) {
	if state == nil {
		return models.CollectionEntry{}, models.ErrInvalidStatus
	}

	s.mu.Lock()
	next := s.cloneLocked()
	var entry models.CollectionEntry
	if i, ok := s.index[movie.ID]; ok {
		entry = next[i]
		entry.State = state
		entry.Notes = notes
		next[i] = entry
	} else {
		entry = models.CollectionEntry{
			Movie:     movie,
			State:     state,
			Notes:     notes,
			DateAdded: s.now().UTC(),
		}
		next = append(next, entry)
	}
	err := s.commitLocked(ctx, next)
	s.mu.Unlock()

	if err != nil {
		return models.CollectionEntry{}, err
	}
	s.notify(EventUpsert, entry)
	return entry, nil
}

// Update edits an existing entry.
func (s *Store) Update(ctx context.Context, id string, state models.State, notes string) (models.CollectionEntry, error) {
	if state == nil {
		return models.CollectionEntry{}, models.ErrInvalidStatus
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.CollectionEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := s.cloneLocked()
	next[i].State = state
	next[i].Notes = notes
	entry := next[i]
	err := s.commitLocked(ctx, next)
	s.mu.Unlock()

	if err != nil {
		return models.CollectionEntry{}, err
	}
	s.notify(EventUpsert, entry)
	return entry, nil
}

// Remove deletes the entry for id. Removing an absent id is a no-op and
// does not touch the backend.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	next := make([]models.CollectionEntry, 0, len(s.entries)-1)
	next = append(next, s.entries[:i]...)
	next = append(next, s.entries[i+1:]...)
	err := s.commitLocked(ctx, next)
	s.mu.Unlock()

	if err != nil {
		return false, err
	}
	s.notify(EventRemove, map[string]string{"id": id})
	return true, nil
}

func (s *Store) Get(id string) (models.CollectionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return models.CollectionEntry{}, false
	}
	return s.entries[i], true
}

// All returns the collection in insertion order.
func (s *Store) All() []models.CollectionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ListByStatus yields entries with the given status in insertion order.
// Each iteration sees the collection as it was when the iteration started.
func (s *Store) ListByStatus(status models.Status) iter.Seq[models.CollectionEntry] {
	return func(yield func(models.CollectionEntry) bool) {
		for _, e := range s.All() {
			if e.Status() != status {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (s *Store) Counts() models.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c models.Counts
	for _, e := range s.entries {
		c.Add(e.Status())
	}
	return c
}

// Overview groups the collection the way the home screen shows it. The
// watched and want-to-watch sections are capped at limit; currently
// watching is not.
func (s *Store) Overview(limit int) models.Overview {
	if limit <= 0 {
		limit = 6
	}
	ov := models.Overview{
		CurrentlyWatching: []models.CollectionEntry{},
		RecentlyWatched:   []models.CollectionEntry{},
		WantToWatch:       []models.CollectionEntry{},
	}
	for _, e := range s.All() {
		ov.Counts.Add(e.Status())
		switch e.Status() {
		case models.StatusCurrentlyWatching:
			ov.CurrentlyWatching = append(ov.CurrentlyWatching, e)
		case models.StatusWatched:
			if len(ov.RecentlyWatched) < limit {
				ov.RecentlyWatched = append(ov.RecentlyWatched, e)
			}
		case models.StatusWantToWatch:
			if len(ov.WantToWatch) < limit {
				ov.WantToWatch = append(ov.WantToWatch, e)
			}
		}
	}
	return ov
}

func (s *Store) cloneLocked() []models.CollectionEntry {
	return append(make([]models.CollectionEntry, 0, len(s.entries)+1), s.entries...)
}

// commitLocked persists next and only then installs it; on a failed write
// the in-memory collection is left untouched.
func (s *Store) commitLocked(ctx context.Context, next []models.CollectionEntry) error {
	if err := s.value.Set(ctx, next); err != nil {
		return fmt.Errorf("persist collection: %w", err)
	}
	s.entries = next
	s.index = make(map[string]int, len(next))
	for i, e := range next {
		s.index[e.ID()] = i
	}
	return nil
}

func (s *Store) notify(event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, data)
	}
}
