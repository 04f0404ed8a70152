// Package watcher reloads the catalog file when it changes on disk.
package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JustinTDCT/CineLog/internal/debounce"
)

// DefaultSettle is how long the file must stay quiet before a reload.
const DefaultSettle = time.Second

// OnChange is called once a burst of writes to the watched file settles.
type OnChange func() error

// Watcher follows a single file. It watches the parent directory so that
// editors which save by rename are still seen.
type Watcher struct {
	path     string
	callback OnChange
	watcher  *fsnotify.Watcher
	settle   *debounce.Debouncer
	stop     chan struct{}
	done     chan struct{}
}

func New(path string, settle time.Duration, cb OnChange) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		path:     abs,
		callback: cb,
		watcher:  fw,
		settle:   debounce.New(settle, debounce.System),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() {
	go w.eventLoop()
	log.Printf("[watcher] watching %s", w.path)
}

// Stop ends the event loop and drops any pending reload.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done
	w.settle.Cancel()
}

func (w *Watcher) eventLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.settle.Trigger(w.fire)
}

func (w *Watcher) fire() {
	if err := w.callback(); err != nil {
		log.Printf("[watcher] reload %s failed, keeping previous version: %v", w.path, err)
		return
	}
	log.Printf("[watcher] reloaded %s", w.path)
}
