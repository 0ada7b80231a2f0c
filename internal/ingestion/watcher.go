package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/chaoslens/internal/debug"
)

// eventKind is the debounced outcome for a path: the last fsnotify event
// seen for it before the debounce window elapsed.
type eventKind int

const (
	eventWrite eventKind = iota
	eventRemove
)

// WatchStats reports cumulative watcher activity (spec §6 "Observable
// outputs"), mirroring the teacher's indexing.WatchStats shape.
type WatchStats struct {
	EventsProcessed int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// Watcher keeps C3 in sync with the filesystem after the initial ingest,
// re-running Coordinator's pipeline on changed files and deleting removed
// ones (spec §4.4 item on live updates). Structure mirrors a classic
// fsnotify-plus-debounce watcher: a raw event reader records the latest
// event per path, and a single timer shared by all paths, restarted on every
// event, flushes them once no event has arrived for the debounce interval.
// There is no separate debounce window per path.
type Watcher struct {
	coordinator *Coordinator
	watcher     *fsnotify.Watcher
	debounce    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	events map[string]eventKind
	timer  *time.Timer

	statsMu         sync.RWMutex
	eventsProcessed int64
	errorCount      int64
	lastEventTime   time.Time
}

// NewWatcher constructs a Watcher over coordinator's root, coalescing
// bursts of events within debounce (spec §6 default 250ms).
func NewWatcher(coordinator *Coordinator, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		coordinator: coordinator,
		watcher:     fsw,
		debounce:    debounce,
		ctx:         ctx,
		cancel:      cancel,
		events:      make(map[string]eventKind),
	}, nil
}

// Start adds recursive watches under root and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.coordinator.Walker.Root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run()
	debug.LogWatch("watcher started for %s\n", w.coordinator.Walker.Root)
	return nil
}

// Stop tears down the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

// addWatches recursively registers directory watches, skipping excluded
// directories and guarding against symlink cycles.
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[real] {
			return filepath.SkipDir
		}
		visited[real] = true

		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.coordinator.Walker.excluded(filepath.ToSlash(rel)+"/") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			debug.LogWatch("failed to watch %s: %v\n", path, err)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.statsMu.Lock()
			w.errorCount++
			w.statsMu.Unlock()
			debug.LogWatch("watcher error: %v\n", err)
		}
	}
}

// GetStats returns a snapshot of cumulative watcher activity.
func (w *Watcher) GetStats() WatchStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return WatchStats{
		EventsProcessed: w.eventsProcessed,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.coordinator.Walker.Root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if !w.coordinator.Walker.excluded(rel + "/") {
				_ = w.watcher.Add(ev.Name)
			}
			return
		}
	}
	if w.coordinator.Walker.excluded(rel) {
		return
	}

	kind := eventWrite
	if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
		kind = eventRemove
	} else if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.addEvent(rel, kind)
}

func (w *Watcher) addEvent(path string, kind eventKind) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events[path] = kind
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.events
	w.events = make(map[string]eventKind)
	w.mu.Unlock()

	if len(events) == 0 {
		return
	}
	debug.LogWatch("flushing %d debounced events\n", len(events))

	w.statsMu.Lock()
	w.eventsProcessed += int64(len(events))
	w.lastEventTime = time.Now()
	w.statsMu.Unlock()

	for path, kind := range events {
		switch kind {
		case eventRemove:
			if err := w.coordinator.Store.DeleteFile(w.ctx, path); err != nil {
				debug.LogWatch("delete_file failed for %s: %v\n", path, err)
			}
			w.coordinator.forgetHash(path)
		case eventWrite:
			t := &tally{}
			w.coordinator.processOne(w.ctx, path, t)
		}
	}
	if w.coordinator.Graph != nil {
		w.coordinator.Graph.Invalidate()
	}
}
