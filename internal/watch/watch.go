// Package watch adds audio files dropped into an inbox folder to the library.
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/errmsg"
	"github.com/llehouerou/ripple/internal/ingest"
	"github.com/llehouerou/ripple/internal/logger"
	"github.com/llehouerou/ripple/internal/track"
)

// DefaultSettle is how long a file must stay quiet before it is read.
const DefaultSettle = 500 * time.Millisecond

// Sink receives ingested tracks.
type Sink interface {
	AddToLibrary(tracks ...track.Track)
}

// Watcher monitors one folder.
type Watcher struct {
	dir    string
	sink   Sink
	settle time.Duration
	now    func() time.Time

	fs      *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides the quiet period before a file is ingested.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithClock overrides the clock used for track ids.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// New creates a watcher for dir. Call Start to begin watching.
func New(dir string, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		dir:     dir,
		sink:    sink,
		settle:  DefaultSettle,
		now:     time.Now,
		pending: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the folder if needed and starts watching it.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fs.Add(w.dir); err != nil {
		fs.Close()
		return err
	}
	w.fs = fs

	w.wg.Add(1)
	go w.loop()
	logger.Info("watching inbox", zap.String("dir", w.dir))
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn(errmsg.Format(errmsg.OpWatchInbox, err), zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return
	}
	if !track.IsAudioFile(name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	w.schedule(event.Name)
}

// schedule (re)arms the settle timer of path; writes keep pushing it back.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		closed := w.closed
		w.mu.Unlock()
		if !closed {
			w.ingest(path)
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) ingest(path string) {
	paths := append([]string{path}, ingest.Companions(path)...)
	files, err := ingest.FromPaths(paths)
	if err != nil {
		logger.Warn(errmsg.Format(errmsg.OpIngestFile, err), zap.String("path", path), zap.Error(err))
		return
	}
	tracks := ingest.Ingest(files, w.now())
	if len(tracks) == 0 {
		return
	}
	logger.Info("new file in inbox", zap.String("path", path))
	w.sink.AddToLibrary(tracks...)
}

// Close stops watching. Files still settling are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	var err error
	if w.fs != nil {
		err = w.fs.Close()
	}
	w.wg.Wait()
	return err
}
