// Package editor turns the details form (status, rating, notes) into
// collection mutations.
package editor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/CineLog/internal/models"
)

var ErrTitleRequired = errors.New("title is required")

type Collection interface {
	Upsert(ctx context.Context, movie models.CatalogEntry, state models.State, notes string) (models.CollectionEntry, error)
	Update(ctx context.Context, id string, state models.State, notes string) (models.CollectionEntry, error)
	Remove(ctx context.Context, id string) (bool, error)
}

// Form is what the details dialog collects. Rating is only meaningful when
// Status is watched and is discarded otherwise.
type Form struct {
	Status models.Status `json:"status"`
	Rating models.Rating `json:"rating,omitempty"`
	Notes  string        `json:"notes,omitempty"`
}

func (f Form) State() (models.State, error) {
	status := f.Status
	if status == "" {
		status = models.StatusWantToWatch
	}
	return models.StateFor(status, f.Rating)
}

// CustomInput describes a movie that is not in the catalog.
type CustomInput struct {
	Title          string `json:"title"`
	Year           string `json:"year,omitempty"`
	Director       string `json:"director,omitempty"`
	Genre          string `json:"genre,omitempty"`
	Runtime        string `json:"runtime,omitempty"`
	Plot           string `json:"plot,omitempty"`
	PosterURL      string `json:"poster,omitempty"`
	ExternalRating string `json:"imdbRating,omitempty"`
}

// NewCustomEntry validates in and fills the blanks with placeholder values.
func NewCustomEntry(in CustomInput, now time.Time) (models.CatalogEntry, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.CatalogEntry{}, ErrTitleRequired
	}
	return models.CatalogEntry{
		ID:             "custom-" + uuid.NewString(),
		Title:          title,
		Year:           orDefault(in.Year, strconv.Itoa(now.Year())),
		Director:       orDefault(in.Director, "Unknown Director"),
		Genre:          orDefault(in.Genre, "Unknown"),
		Runtime:        orDefault(in.Runtime, "Unknown"),
		Plot:           orDefault(in.Plot, "No plot available."),
		PosterURL:      strings.TrimSpace(in.PosterURL),
		ExternalRating: orDefault(in.ExternalRating, "N/A"),
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

type Editor struct {
	store Collection
	now   func() time.Time
}

func New(store Collection) *Editor {
	return &Editor{store: store, now: time.Now}
}

// Save adds movie to the collection or updates it if already tracked.
func (e *Editor) Save(ctx context.Context, movie models.CatalogEntry, f Form) (models.CollectionEntry, error) {
	state, err := f.State()
	if err != nil {
		return models.CollectionEntry{}, err
	}
	return e.store.Upsert(ctx, movie, state, f.Notes)
}

func (e *Editor) SaveExisting(ctx context.Context, id string, f Form) (models.CollectionEntry, error) {
	state, err := f.State()
	if err != nil {
		return models.CollectionEntry{}, err
	}
	return e.store.Update(ctx, id, state, f.Notes)
}

// AddCustom creates a custom movie and adds it with the form's state.
func (e *Editor) AddCustom(ctx context.Context, in CustomInput, f Form) (models.CollectionEntry, error) {
	state, err := f.State()
	if err != nil {
		return models.CollectionEntry{}, err
	}
	movie, err := NewCustomEntry(in, e.now())
	if err != nil {
		return models.CollectionEntry{}, err
	}
	return e.store.Upsert(ctx, movie, state, f.Notes)
}

func (e *Editor) Remove(ctx context.Context, id string) (bool, error) {
	return e.store.Remove(ctx, id)
}
