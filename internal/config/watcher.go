// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/valpere/PageXpect/internal/utils"
)

// debounceDelay coalesces event bursts from editors that write a config
// file in several steps.
const debounceDelay = 200 * time.Millisecond

// ConfigWatcher watches a suite configuration file and reloads it on
// change.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	callbacks  []func(*SuiteConfig)
	mu         sync.Mutex
	stopped    bool
	timer      *time.Timer
	log        utils.Logger
}

// NewConfigWatcher creates a watcher for configPath and starts
// delivering reloads to registered callbacks.
func NewConfigWatcher(configPath string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configPath: filepath.Clean(configPath),
		log:        utils.NewNopLogger(),
	}

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Watch the directory as well (for editors that replace the file)
	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		cw.log.Warnf("failed to watch config directory: %v", err)
	}

	go cw.watch()

	return cw, nil
}

// SetLogger replaces the watcher logger.
func (cw *ConfigWatcher) SetLogger(log utils.Logger) {
	if log == nil {
		return
	}
	cw.mu.Lock()
	cw.log = log
	cw.mu.Unlock()
}

// OnChange registers a callback invoked with the freshly loaded
// configuration after each change.
func (cw *ConfigWatcher) OnChange(callback func(*SuiteConfig)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// watch handles file system events
func (cw *ConfigWatcher) watch() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != cw.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logf("config watcher error: %v", err)
		}
	}
}

// scheduleReload arms the debounce timer, restarting it while events
// keep arriving.
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.stopped {
		return
	}

	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(debounceDelay, cw.handleConfigChange)
}

// handleConfigChange reloads the configuration and notifies callbacks.
func (cw *ConfigWatcher) handleConfigChange() {
	cw.mu.Lock()
	if cw.stopped {
		cw.mu.Unlock()
		return
	}
	callbacks := make([]func(*SuiteConfig), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	config, err := LoadFromFile(cw.configPath)
	if err != nil {
		cw.logf("failed to reload config: %v", err)
		return
	}

	for _, callback := range callbacks {
		callback(config)
	}
}

func (cw *ConfigWatcher) logf(format string, args ...interface{}) {
	cw.mu.Lock()
	log := cw.log
	cw.mu.Unlock()
	log.Warnf(format, args...)
}

// Close stops the watcher and releases resources
func (cw *ConfigWatcher) Close() error {
	cw.mu.Lock()
	cw.stopped = true
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()

	return cw.watcher.Close()
}
