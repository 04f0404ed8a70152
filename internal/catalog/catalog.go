// Package catalog serves the fixed set of searchable movies.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/JustinTDCT/CineLog/internal/models"
)

//go:embed catalog.yaml
var builtin []byte

var ErrNotFound = errors.New("catalog entry not found")

// Catalog is safe for concurrent use. Reload swaps the whole index at once,
// so readers see either the old or the new catalog, never a mix.
type Catalog struct {
	cur atomic.Pointer[index]
}

type index struct {
	entries []models.CatalogEntry
	folded  []string
	byID    map[string]int
}

func New(entries []models.CatalogEntry) (*Catalog, error) {
	idx, err := buildIndex(entries)
	if err != nil {
		return nil, err
	}
	c := &Catalog{}
	c.cur.Store(idx)
	return c, nil
}

func buildIndex(entries []models.CatalogEntry) (*index, error) {
	idx := &index{
		entries: make([]models.CatalogEntry, 0, len(entries)),
		folded:  make([]string, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	fold := cases.Fold()
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", e.Title)
		}
		if _, dup := idx.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", e.ID)
		}
		idx.byID[e.ID] = len(idx.entries)
		idx.entries = append(idx.entries, e)
		// NUL never appears in a query, so matches cannot span two fields
		idx.folded = append(idx.folded, fold.String(e.Title+"\x00"+e.Director+"\x00"+e.Genre))
	}
	return idx, nil
}

func Parse(data []byte) (*Catalog, error) {
	var entries []models.CatalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(entries)
}

// Load reads the catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(builtin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Reload replaces the catalog with the contents of path. On error the
// current catalog stays in place.
func (c *Catalog) Reload(path string) error {
	next, err := Load(path)
	if err != nil {
		return err
	}
	c.cur.Store(next.cur.Load())
	return nil
}

func (c *Catalog) Len() int {
	return len(c.cur.Load().entries)
}

func (c *Catalog) All() []models.CatalogEntry {
	return append([]models.CatalogEntry(nil), c.cur.Load().entries...)
}

func (c *Catalog) Get(id string) (models.CatalogEntry, error) {
	idx := c.cur.Load()
	i, ok := idx.byID[id]
	if !ok {
		return models.CatalogEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return idx.entries[i], nil
}

// Search returns entries whose title, director or genre contains query,
// ignoring case, in catalog order. A blank query matches nothing.
func (c *Catalog) Search(query string) []models.CatalogEntry {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	needle := cases.Fold().String(query)

	idx := c.cur.Load()
	var out []models.CatalogEntry
	for i, hay := range idx.folded {
		if strings.Contains(hay, needle) {
			out = append(out, idx.entries[i])
		}
	}
	return out
}
