// Package scheduler runs periodic collection exports on a cron spec.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// OnExportDue is called each time the export schedule fires.
type OnExportDue func() error

type Scheduler struct {
	cron     *cron.Cron
	spec     string
	callback OnExportDue
}

// New validates spec (standard five fields or a descriptor such as @daily).
func New(spec string, cb OnExportDue) (*Scheduler, error) {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(log.Default())))
	s := &Scheduler{cron: c, spec: spec, callback: cb}
	if _, err := c.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[scheduler] export schedule %q started", s.spec)
}

// Stop waits for a running callback to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Println("[scheduler] stopped")
	case <-ctx.Done():
		log.Println("[scheduler] stop timed out")
	}
}

func (s *Scheduler) run() {
	if err := s.callback(); err != nil {
		log.Printf("[scheduler] export failed: %v", err)
	}
}
