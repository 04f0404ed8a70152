package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatus = errors.New("invalid watch status")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// ──────────────────── Enums ────────────────────

type Status string

const (
	StatusWatched           Status = "watched"
	StatusCurrentlyWatching Status = "currently-watching"
	StatusWantToWatch       Status = "want-to-watch"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusCurrentlyWatching, StatusWatched, StatusWantToWatch}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusWatched, StatusCurrentlyWatching, StatusWantToWatch:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Label() string {
	switch s {
	case StatusWatched:
		return "Watched"
	case StatusCurrentlyWatching:
		return "Watching"
	case StatusWantToWatch:
		return "Want to Watch"
	}
	return string(s)
}

// Rating is a 1-5 star score. Zero means unrated.
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

func (r Rating) Validate() error {
	if r != 0 && (r < MinRating || r > MaxRating) {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, int(r))
	}
	return nil
}

func (r Rating) clamp() Rating {
	switch {
	case r < 0:
		return 0
	case r > MaxRating:
		return MaxRating
	}
	return r
}

// ──────────────────── Watch State ────────────────────

// State is the watch status of a collection entry. Only Watched carries a
// rating, so a rating can never outlive a move away from watched.
type State interface {
	Status() Status
	isState()
}

type Watched struct {
	Rating Rating
}

type CurrentlyWatching struct{}

type WantToWatch struct{}

func (Watched) Status() Status           { return StatusWatched }
func (CurrentlyWatching) Status() Status { return StatusCurrentlyWatching }
func (WantToWatch) Status() Status       { return StatusWantToWatch }

func (Watched) isState()           {}
func (CurrentlyWatching) isState() {}
func (WantToWatch) isState()       {}

// StateFor builds a State from loose input. The rating is dropped for any
// status other than watched.
func StateFor(status Status, rating Rating) (State, error) {
	switch status {
	case StatusWatched:
		if err := rating.Validate(); err != nil {
			return nil, err
		}
		return Watched{Rating: rating}, nil
	case StatusCurrentlyWatching:
		return CurrentlyWatching{}, nil
	case StatusWantToWatch:
		return WantToWatch{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
}

// RatingOf returns the rating carried by s, or zero.
func RatingOf(s State) Rating {
	if w, ok := s.(Watched); ok {
		return w.Rating
	}
	return 0
}

// ──────────────────── Catalog ────────────────────

// CatalogEntry is a searchable movie record. Collection entries hold a copy.
type CatalogEntry struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Year           string `json:"year" yaml:"year"`
	PosterURL      string `json:"poster" yaml:"poster"`
	Plot           string `json:"plot" yaml:"plot"`
	Director       string `json:"director" yaml:"director"`
	Genre          string `json:"genre" yaml:"genre"`
	Runtime        string `json:"runtime" yaml:"runtime"`
	ExternalRating string `json:"imdbRating" yaml:"imdb_rating"`
}

// Genres splits the comma-separated genre field into trimmed tags.
func (c CatalogEntry) Genres() []string {
	var out []string
	for _, g := range strings.Split(c.Genre, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// ──────────────────── Collection ────────────────────

type CollectionEntry struct {
	Movie     CatalogEntry
	State     State
	Notes     string
	DateAdded time.Time
}

func (e CollectionEntry) ID() string     { return e.Movie.ID }
func (e CollectionEntry) Status() Status { return e.State.Status() }
func (e CollectionEntry) Rating() Rating { return RatingOf(e.State) }

type collectionEntryJSON struct {
	Movie     CatalogEntry `json:"movie"`
	Status    Status       `json:"status"`
	Rating    *Rating      `json:"rating,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	DateAdded time.Time    `json:"dateAdded"`
}

func (e CollectionEntry) MarshalJSON() ([]byte, error) {
	if e.State == nil {
		return nil, fmt.Errorf("collection entry %s: %w", e.Movie.ID, ErrInvalidStatus)
	}
	out := collectionEntryJSON{
		Movie:     e.Movie,
		Status:    e.State.Status(),
		Notes:     e.Notes,
		DateAdded: e.DateAdded,
	}
	if r := RatingOf(e.State); r != 0 {
		out.Rating = &r
	}
	return json.Marshal(out)
}

func (e *CollectionEntry) UnmarshalJSON(data []byte) error {
	var in collectionEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	entry, err := in.entry()
	if err != nil {
		return err
	}
	*e = entry
	return nil
}

// DecodeStoredEntry decodes a persisted entry. A watched rating outside
// 0-5 is pulled back into range and repaired is set.
func DecodeStoredEntry(data []byte) (entry CollectionEntry, repaired bool, err error) {
	var in collectionEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return CollectionEntry{}, false, err
	}
	if in.Status == StatusWatched && in.Rating != nil {
		if r := in.Rating.clamp(); r != *in.Rating {
			in.Rating = &r
			repaired = true
		}
	}
	entry, err = in.entry()
	return entry, repaired, err
}

func (in collectionEntryJSON) entry() (CollectionEntry, error) {
	var rating Rating
	if in.Rating != nil {
		rating = *in.Rating
	}
	state, err := StateFor(in.Status, rating)
	if err != nil {
		return CollectionEntry{}, fmt.Errorf("collection entry %s: %w", in.Movie.ID, err)
	}
	return CollectionEntry{
		Movie:     in.Movie,
		State:     state,
		Notes:     in.Notes,
		DateAdded: in.DateAdded,
	}, nil
}

// Counts is the per-status partition of a collection.
type Counts struct {
	Watched           int `json:"watched"`
	CurrentlyWatching int `json:"currently_watching"`
	WantToWatch       int `json:"want_to_watch"`
	Total             int `json:"total"`
}

func (c *Counts) Add(s Status) {
	switch s {
	case StatusWatched:
		c.Watched++
	case StatusCurrentlyWatching:
		c.CurrentlyWatching++
	case StatusWantToWatch:
		c.WantToWatch++
	}
	c.Total++
}

// Overview is the grouped collection screen.
type Overview struct {
	Counts            Counts            `json:"counts"`
	CurrentlyWatching []CollectionEntry `json:"currently_watching"`
	RecentlyWatched   []CollectionEntry `json:"recently_watched"`
	WantToWatch       []CollectionEntry `json:"want_to_watch"`
}
