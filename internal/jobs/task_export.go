package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/afero"

	"github.com/JustinTDCT/CineLog/internal/models"
)

// Snapshotter is the read side of the collection store.
type Snapshotter interface {
	All() []models.CollectionEntry
}

type Snapshot struct {
	ID        string                   `json:"id"`
	Reason    string                   `json:"reason,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	Counts    models.Counts            `json:"counts"`
	Entries   []models.CollectionEntry `json:"entries"`
}

type ExportResult struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

// ──────── Exporter ────────

// Exporter writes JSON snapshots of the collection into dir.
type Exporter struct {
	fs     afero.Fs
	dir    string
	source Snapshotter
	now    func() time.Time
}

func NewExporter(fs afero.Fs, dir string, source Snapshotter) *Exporter {
	return &Exporter{fs: fs, dir: dir, source: source, now: time.Now}
}

func (e *Exporter) Export(ctx context.Context, reason string) (ExportResult, error) {
	if err := ctx.Err(); err != nil {
		return ExportResult{}, err
	}
	entries := e.source.All()
	snap := Snapshot{
		ID:        uuid.NewString(),
		Reason:    reason,
		CreatedAt: e.now().UTC(),
		Entries:   entries,
	}
	for _, entry := range entries {
		snap.Counts.Add(entry.Status())
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode export: %w", err)
	}
	if err := e.fs.MkdirAll(e.dir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("collection-%s-%s.json", snap.CreatedAt.Format("20060102T150405Z"), snap.ID[:8])
	final := path.Join(e.dir, name)
	tmp := final + ".tmp"
	if err := afero.WriteFile(e.fs, tmp, data, 0o644); err != nil {
		return ExportResult{}, fmt.Errorf("write export: %w", err)
	}
	if err := e.fs.Rename(tmp, final); err != nil {
		e.fs.Remove(tmp)
		return ExportResult{}, fmt.Errorf("finalize export: %w", err)
	}

	return ExportResult{ID: snap.ID, Path: final, Entries: len(snap.Entries), CreatedAt: snap.CreatedAt}, nil
}

// List returns the export file names, newest first.
func (e *Exporter) List() ([]string, error) {
	infos, err := afero.ReadDir(e.fs, e.dir)
	if err != nil {
		if exists, _ := afero.DirExists(e.fs, e.dir); !exists {
			return []string{}, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if !fi.IsDir() && strings.HasSuffix(fi.Name(), ".json") {
			names = append(names, fi.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// ──────── Export Handler ────────

type ExportHandler struct {
	exporter *Exporter
	notifier EventNotifier
}

func NewExportHandler(exp *Exporter, notifier EventNotifier) *ExportHandler {
	return &ExportHandler{exporter: exp, notifier: notifier}
}

func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	res, err := h.exporter.Export(ctx, p.Reason)
	if err != nil {
		return err
	}
	log.Printf("[jobs] exported %d entries to %s (%s)", res.Entries, res.Path, p.Reason)
	if h.notifier != nil {
		h.notifier.Broadcast(EventExportComplete, res)
	}
	return nil
}
