package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"atsfit/internal/errors"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounceDelay = time.Second

// CertWatcher calls onChange once a burst of writes to the watched
// certificate files has settled for the debounce delay
type CertWatcher struct {
	mu sync.Mutex

	files    []string
	modTimes map[string]time.Time

	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	timer     *time.Timer
	fire      chan struct{}
	stop      chan struct{}
	running   bool

	onChange func()
	logger   *errors.Logger
}

// NewCertWatcher watches the non-empty paths among files
func NewCertWatcher(files []string, debounce time.Duration, onChange func(), logger *errors.Logger) *CertWatcher {
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}
	return &CertWatcher{
		files:    slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		modTimes: make(map[string]time.Time),
		debounce: debounce,
		fire:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. Directories are watched as well so that atomic
// rename-into-place updates are seen.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for _, file := range cw.files {
		if stat, err := os.Stat(file); err == nil {
			cw.modTimes[file] = stat.ModTime()
		}
		dirs[filepath.Dir(file)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cw.fsWatcher = watcher
	cw.running = true
	go cw.loop()

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce_delay", cw.debounce)
	return nil
}

// Stop stops watching. It is a no-op when the watcher is not running.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}
	cw.running = false
	close(cw.stop)
	if cw.timer != nil {
		cw.timer.Stop()
	}
	return cw.fsWatcher.Close()
}

// IsRunning returns whether the watcher is currently running
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// WatchedFiles returns the certificate files being watched
func (cw *CertWatcher) WatchedFiles() []string {
	return slices.Clone(cw.files)
}

func (cw *CertWatcher) loop() {
	for {
		select {
		case event, ok := <-cw.fsWatcher.Events:
			if !ok {
				return
			}
			if cw.relevant(event) {
				cw.schedule()
			}

		case err, ok := <-cw.fsWatcher.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "Certificate file watcher error")

		case <-cw.fire:
			if cw.changed() {
				cw.logger.Info("Certificate files changed, triggering reload")
				cw.onChange()
			}

		case <-cw.stop:
			return
		}
	}
}

// relevant reports whether event touches a watched file in a way that may change it
func (cw *CertWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(cw.files, func(f string) bool {
		return filepath.Clean(f) == name
	})
}

// schedule restarts the debounce timer
func (cw *CertWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		select {
		case cw.fire <- struct{}{}:
		default:
		}
	})
}

// changed compares modification times with the last seen ones and records the new ones
func (cw *CertWatcher) changed() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	changed := false
	for _, file := range cw.files {
		stat, err := os.Stat(file)
		if err != nil {
			if _, seen := cw.modTimes[file]; seen && os.IsNotExist(err) {
				delete(cw.modTimes, file)
				changed = true
			}
			continue
		}
		if last, seen := cw.modTimes[file]; !seen || !stat.ModTime().Equal(last) {
			cw.modTimes[file] = stat.ModTime()
			changed = true
		}
	}
	return changed
}
