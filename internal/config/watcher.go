package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"
)

// Change is what one [Watcher] poll found.
type Change struct {
	// Old and New are the configs before and after the poll. They are the
	// same pointer when only a data file changed.
	Old, New *Config

	// ConfigChanged is set when the config file was edited into another
	// valid config.
	ConfigChanged bool

	// CorpusFile and PolysemyFile are set when the YAML file the config
	// names was edited in place. A path that changed together with the
	// config is reported through the config diff instead.
	CorpusFile   bool
	PolysemyFile bool
}

// fileState fingerprints a watched file.
type fileState struct {
	mtime time.Time
	size  int64
	hash  [sha256.Size]byte
}

// Watcher polls the config file and the corpus and polysemy YAML files it
// refers to, and calls a callback with a [Change] when any of them is edited.
// Invalid config edits are logged and ignored. Data files are only
// fingerprinted; whoever reloads them validates their content.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(Change)

	mu      sync.Mutex
	current *Config

	// files is only touched by the polling goroutine after construction.
	files map[string]fileState

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path, fingerprints it and its data files,
// and starts polling in a background goroutine.
func NewWatcher(path string, onChange func(Change), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		files:    make(map[string]fileState),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	_, data, err := w.fingerprint(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	for _, f := range dataFiles(cfg) {
		w.touched(f, false)
	}

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	old := w.Current()
	ch := Change{Old: old, New: old}

	changed, data, err := w.fingerprint(w.path)
	switch {
	case err != nil:
		slog.Warn("config watcher: cannot read config", "path", w.path, "err", err)
	case changed:
		if cfg, err := LoadFromReader(bytes.NewReader(data)); err != nil {
			slog.Warn("config watcher: ignoring invalid config", "path", w.path, "err", err)
		} else {
			ch.New, ch.ConfigChanged = cfg, true
		}
	}

	was, now := dataFiles(old), dataFiles(ch.New)
	ch.CorpusFile = w.touched(now[0], now[0] == was[0])
	ch.PolysemyFile = w.touched(now[1], now[1] == was[1])
	w.forget(append(now[:], w.path)...)

	if !ch.ConfigChanged && !ch.CorpusFile && !ch.PolysemyFile {
		return
	}

	w.mu.Lock()
	w.current = ch.New
	w.mu.Unlock()

	slog.Info("config watcher: change detected",
		"config", ch.ConfigChanged,
		"corpus_file", ch.CorpusFile,
		"polysemy_file", ch.PolysemyFile,
	)
	// Outside the lock so the callback may call Current.
	if w.onChange != nil {
		w.onChange(ch)
	}
}

// dataFiles returns the YAML corpus file (the corpus itself, or the import
// seed of a database source) and the polysemy file of cfg. Unused slots are
// empty.
func dataFiles(cfg *Config) [2]string {
	corpus := cfg.Corpus.Path
	if corpus == "" {
		corpus = cfg.Corpus.ImportPath
	}
	return [2]string{corpus, cfg.Polysemy.Path}
}

// touched fingerprints a data file and reports whether its content changed
// since the last poll. The first sighting of a path only records it. With
// report false the change is recorded but not reported. A file that cannot
// be read is left for the next poll.
func (w *Watcher) touched(path string, report bool) bool {
	if path == "" {
		return false
	}
	changed, _, err := w.fingerprint(path)
	if err != nil {
		slog.Debug("config watcher: cannot read data file", "path", path, "err", err)
		return false
	}
	return changed && report
}

// fingerprint reads path when its mtime or size moved and reports whether
// its content hash differs from the recorded one. data is nil when the file
// was not read.
func (w *Watcher) fingerprint(path string) (changed bool, data []byte, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, nil, err
	}
	prev, seen := w.files[path]
	if seen && info.ModTime().Equal(prev.mtime) && info.Size() == prev.size {
		return false, nil, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return false, nil, err
	}
	st := fileState{mtime: info.ModTime(), size: info.Size(), hash: sha256.Sum256(data)}
	w.files[path] = st
	return seen && st.hash != prev.hash, data, nil
}

// forget drops fingerprints of paths no longer referenced.
func (w *Watcher) forget(keep ...string) {
	for p := range w.files {
		if !slices.Contains(keep, p) {
			delete(w.files, p)
		}
	}
}
