package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"resumind/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// BankWatcher watches the question bank file for changes and triggers a
// reload so a running server picks up edited questions without a restart.
type BankWatcher struct {
	mu sync.RWMutex

	file        string
	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func()
	logger         *errors.Logger

	running bool
}

// NewBankWatcher creates a watcher for the question bank file.
func NewBankWatcher(file string, debounceDelay time.Duration, reloadCallback func(), logger *errors.Logger) *BankWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}

	return &BankWatcher{
		file:           file,
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1), // Buffered to prevent blocking
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start begins watching the question bank file for changes.
func (bw *BankWatcher) Start() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.running {
		return fmt.Errorf("question bank watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	bw.fsWatcher = watcher

	if stat, err := os.Stat(bw.file); err == nil {
		bw.lastModTime = stat.ModTime()
	}

	if err := bw.addFileToWatcher(); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			bw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return err
	}

	bw.running = true
	go bw.watchLoop()

	bw.logger.Info("Question bank file watcher started",
		"file", bw.file,
		"debounce_delay", bw.debounceDelay)
	return nil
}

// Stop stops the watcher.
func (bw *BankWatcher) Stop() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if !bw.running {
		return nil
	}

	close(bw.stopChan)

	if bw.debounceTimer != nil {
		bw.debounceTimer.Stop()
	}

	if err := bw.fsWatcher.Close(); err != nil {
		bw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	bw.running = false
	bw.logger.Info("Question bank file watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running.
func (bw *BankWatcher) IsRunning() bool {
	bw.mu.RLock()
	defer bw.mu.RUnlock()
	return bw.running
}

// addFileToWatcher watches the file and its directory. The directory watch
// catches atomic writes (rename operations) by editors.
func (bw *BankWatcher) addFileToWatcher() error {
	if err := bw.fsWatcher.Add(bw.file); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to watch file %s: %w", bw.file, err)
		}
		bw.logger.Info("Question bank file does not exist yet, watching directory",
			"file", bw.file)
	}

	dir := filepath.Dir(bw.file)
	if err := bw.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return nil
}

// watchLoop is the main event loop for file watching.
func (bw *BankWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-bw.fsWatcher.Events:
			if !ok {
				return
			}
			if bw.shouldProcessEvent(event) {
				bw.scheduleReload()
			}

		case err, ok := <-bw.fsWatcher.Errors:
			if !ok {
				return
			}
			bw.logger.LogError(err, "Question bank watcher error")

		case <-bw.reloadChan:
			// Debounced reload trigger
			if bw.hasFileChanged() {
				bw.logger.Info("Question bank file changed, triggering reload",
					"file", bw.file)
				bw.reloadCallback()
			}

		case <-bw.stopChan:
			return
		}
	}
}

func (bw *BankWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Name != bw.file && filepath.Base(event.Name) != filepath.Base(bw.file) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged checks if the file has been modified since last check.
func (bw *BankWatcher) hasFileChanged() bool {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	stat, err := os.Stat(bw.file)
	if err != nil {
		return false
	}
	if stat.ModTime().After(bw.lastModTime) {
		bw.lastModTime = stat.ModTime()
		return true
	}
	return false
}

// scheduleReload schedules a debounced reload.
func (bw *BankWatcher) scheduleReload() {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.debounceTimer != nil {
		bw.debounceTimer.Stop()
	}

	bw.debounceTimer = time.AfterFunc(bw.debounceDelay, func() {
		select {
		case bw.reloadChan <- struct{}{}:
		default:
			// Reload already scheduled
		}
	})
}
