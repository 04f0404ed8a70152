// Package jobs runs background work on an asynq queue backed by Redis.
package jobs

import (
	"time"

	"github.com/hibiken/asynq"
)

const TaskCollectionExport = "collection:export"

// ExportUniqueID keeps at most one export queued at a time.
const ExportUniqueID = "collection-export"

const EventExportComplete = "export:complete"

// ──────── Payloads ────────

type ExportPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, exp *Exporter, notifier EventNotifier) {
	q.RegisterHandler(TaskCollectionExport, NewExportHandler(exp, notifier))
}

// EnqueueExport queues a collection export, collapsing with one already pending.
func EnqueueExport(q *Queue, reason string) (string, error) {
	return q.EnqueueUnique(TaskCollectionExport, ExportPayload{
		Reason:      reason,
		RequestedAt: time.Now().UTC(),
	}, ExportUniqueID, asynq.Queue("low"), asynq.MaxRetry(3))
}
