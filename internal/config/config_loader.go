package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Loader manages configuration loading and reloading on file changes.
type Loader struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	watcher    *fsnotify.Watcher
	onChange   func(*Config) error
	logger     *zap.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewLoader creates a new configuration loader. An empty configPath means
// defaults plus environment, with nothing to watch.
func NewLoader(configPath string, logger *zap.Logger) (*Loader, error) {
	loader := &Loader{
		configPath: configPath,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}

	if configPath == "" {
		return loader, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	loader.watcher = watcher

	return loader, nil
}

// Load loads the initial configuration.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		cfg *Config
		err error
	)
	if l.configPath == "" {
		cfg, err = LoadDefaults()
	} else {
		cfg, err = LoadFromFile(l.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l.config = cfg
	return cfg, nil
}

// StartWatching starts watching the configuration file for changes.
// The onChange callback is called when the configuration file changes.
func (l *Loader) StartWatching(onChange func(*Config) error) error {
	if l.watcher == nil {
		return nil
	}

	l.mu.Lock()
	l.onChange = onChange
	l.mu.Unlock()

	// Editors replace the file on save, so watch the directory and filter by name
	if err := l.watcher.Add(filepath.Dir(l.configPath)); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	l.wg.Add(1)
	go l.watchLoop()

	l.logger.Info("Started watching configuration file",
		zap.String("path", l.configPath))

	return nil
}

// watchLoop runs the file watching loop.
func (l *Loader) watchLoop() {
	defer l.wg.Done()

	var pending <-chan time.Time
	target := filepath.Clean(l.configPath)

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.After(ConfigReloadDebounce)
			}

		case <-pending:
			pending = nil
			l.handleFileChange()

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error("File watcher error", zap.Error(err))

		case <-l.stopChan:
			return
		}
	}
}

// handleFileChange handles configuration file changes.
func (l *Loader) handleFileChange() {
	l.logger.Info("Configuration file changed, reloading...")

	cfg, err := LoadFromFile(l.configPath)
	if err != nil {
		l.logger.Error("Failed to reload configuration, keeping the previous one",
			zap.String("path", l.configPath),
			zap.Error(err))
		return
	}

	l.mu.Lock()
	oldConfig := l.config
	l.config = cfg
	onChange := l.onChange
	l.mu.Unlock()

	if onChange != nil {
		if err := onChange(cfg); err != nil {
			l.logger.Error("Failed to apply configuration changes",
				zap.Error(err))

			// Rollback to old config
			l.mu.Lock()
			l.config = oldConfig
			l.mu.Unlock()
			return
		}
	}

	l.logger.Info("Configuration reloaded successfully")
}

// SetLogger replaces the logger used for reload messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
}

// ConfigPath returns the watched file, empty when running on defaults.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// GetConfig returns the current configuration (thread-safe).
func (l *Loader) GetConfig() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// Stop stops the file watcher and waits for the watch loop to exit.
func (l *Loader) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopChan)
		if l.watcher != nil {
			if cerr := l.watcher.Close(); cerr != nil {
				err = fmt.Errorf("failed to close watcher: %w", cerr)
			}
		}
		l.wg.Wait()
	})
	return err
}
