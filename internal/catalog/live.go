package catalog

import (
	"github.com/JustinTDCT/CineLog/internal/debounce"
	"github.com/JustinTDCT/CineLog/internal/models"
)

type Searcher interface {
	Search(query string) []models.CatalogEntry
}

// ResultFunc receives the results of the query that survived debouncing.
type ResultFunc func(query string, results []models.CatalogEntry)

// LiveSearch runs a search only once typing has paused for the debounce
// window; intermediate queries are dropped.
type LiveSearch struct {
	searcher  Searcher
	debouncer *debounce.Debouncer
	onResult  ResultFunc
}

func NewLiveSearch(s Searcher, d *debounce.Debouncer, fn ResultFunc) *LiveSearch {
	return &LiveSearch{searcher: s, debouncer: d, onResult: fn}
}

func (l *LiveSearch) Input(query string) {
	l.debouncer.Trigger(func() {
		l.onResult(query, l.searcher.Search(query))
	})
}

func (l *LiveSearch) Close() {
	l.debouncer.Cancel()
}
