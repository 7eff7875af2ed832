package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 250 * time.Millisecond

// Watcher reloads the config file when it changes and hands every valid,
// changed version to its subscribers.
type Watcher struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	current *Config
	raw     []byte
	subs    []chan *Config
}

// NewWatcher creates a watcher for path, starting from the already loaded cfg.
func NewWatcher(path string, cfg *Config, log zerolog.Logger) *Watcher {
	path = ExpandHome(path)
	raw, _ := os.ReadFile(path)
	return &Watcher{path: path, log: log, current: cfg, raw: raw}
}

// Current returns the last committed config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Subscribe returns a channel that always holds the latest config. Slow
// readers only ever see the newest version.
func (w *Watcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Reload re-reads the file and publishes it when the content changed and is
// valid. It reports whether a new config was published.
func (w *Watcher) Reload() bool {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config read failed")
		return false
	}

	w.mu.Lock()
	unchanged := bytes.Equal(raw, w.raw)
	w.mu.Unlock()
	if unchanged {
		w.log.Debug().Str("path", w.path).Msg("config unchanged; skipping publish")
		return false
	}

	cfg, err := Parse(raw)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config rejected")
		return false
	}

	w.mu.Lock()
	w.current = cfg
	w.raw = raw
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- cfg
	}
	w.mu.Unlock()

	w.log.Info().Str("path", w.path).Msg("config reloaded")
	return true
}

// Run watches the config directory until ctx is done. Editors often replace
// the file instead of writing it, so the directory is watched, not the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	dir, file := filepath.Dir(w.path), filepath.Base(w.path)
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.log.Debug().Str("dir", dir).Str("file", file).Msg("config watcher started")

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounceDelay, func() { w.Reload() })
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				debounce()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Str("dir", dir).Msg("config watch error")
		}
	}
}
