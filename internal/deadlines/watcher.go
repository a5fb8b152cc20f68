// Package deadlines watches a directory for newly dropped spreadsheet
// exports, reconciles pre-parsed rows into persisted DeadlineRecords, and
// parses natural language due-date entry. Spreadsheet/CSV parsing itself is
// an external collaborator's job — this package only watches, ingests, and
// persists.
package deadlines

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DroppedFile is one file the Watcher believes is a freshly written
// spreadsheet export, debounced so a multi-write save doesn't fire once per
// write syscall.
type DroppedFile struct {
	Path string
	Time time.Time
}

// Watcher notifies on new or rewritten files in a directory. Extensions
// narrows which files are reported; an empty slice reports every
// write/create.
type Watcher struct {
	fsw        *fsnotify.Watcher
	dir        string
	extensions map[string]bool
	debounce   time.Duration
	out        chan DroppedFile
	errs       chan error

	// pendingWG counts debounce timers that have fired and are in the
	// process of sending on out, so Close can wait for them to finish
	// before out is closed behind them.
	pendingWG sync.WaitGroup
}

// NewWatcher starts watching dir. extensions, if non-empty, are matched
// case-insensitively against each changed file's suffix (".csv", ".xlsx").
func NewWatcher(dir string, extensions []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch directory %s: %w", dir, err)
	}

	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extSet[strings.ToLower(e)] = true
	}

	w := &Watcher{
		fsw:        fsw,
		dir:        dir,
		extensions: extSet,
		debounce:   debounce,
		out:        make(chan DroppedFile, 16),
		errs:       make(chan error, 4),
	}
	go w.run()
	return w, nil
}

// Events yields a DroppedFile once per debounce window per path, after a
// Write or Create event. Closed when Close is called.
func (w *Watcher) Events() <-chan DroppedFile { return w.out }

// Errors surfaces fsnotify's own internal errors (permission issues, a
// watched directory being removed).
func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) matches(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) run() {
	pending := make(map[string]*time.Timer)
	defer func() {
		// Stop every still-pending timer so it never fires after out is
		// closed; Stop returning true means the callback will never run, so
		// compensate its Add here. A false return means the callback has
		// already fired (or is about to) and will call Done itself — wait
		// for it below instead of closing out out from under it.
		for _, t := range pending {
			if t.Stop() {
				w.pendingWG.Done()
			}
		}
		w.pendingWG.Wait()
		close(w.out)
		close(w.errs)
	}()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			path := event.Name
			if t, exists := pending[path]; exists {
				if t.Stop() {
					w.pendingWG.Done()
				}
			}
			w.pendingWG.Add(1)
			pending[path] = time.AfterFunc(w.debounce, func() {
				defer w.pendingWG.Done()
				w.out <- DroppedFile{Path: path, Time: time.Now()}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.errs <- err
		}
	}
}

// Close stops watching and releases the underlying inotify/kqueue handle.
// run's exit path waits for any debounce timer already in flight to finish
// sending before it closes the Events/Errors channels, so Close never races
// a timer callback into a send on a closed channel.
func (w *Watcher) Close() error { return w.fsw.Close() }

// WaitForOne blocks until the next DroppedFile, an Errors value, or ctx
// cancellation, whichever comes first — a convenience for callers (the TUI
// app's Perform closures) that want a single awaitable result rather than
// holding the channels open themselves.
func WaitForOne(ctx context.Context, w *Watcher) (DroppedFile, error) {
	select {
	case f, ok := <-w.Events():
		if !ok {
			return DroppedFile{}, fmt.Errorf("watcher closed")
		}
		return f, nil
	case err, ok := <-w.Errors():
		if !ok {
			return DroppedFile{}, fmt.Errorf("watcher closed")
		}
		return DroppedFile{}, err
	case <-ctx.Done():
		return DroppedFile{}, ctx.Err()
	}
}
