package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const debounce = 500 * time.Millisecond

// FileWatcher calls onChange after any of a fixed set of files is
// written, created or renamed into place. Bursts of events are coalesced.
type FileWatcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool
	onChange func()
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// WatchFiles starts watching paths. Directories are watched rather than
// the files themselves so editors that replace files are picked up.
func WatchFiles(paths []string, onChange func(), logger *zap.Logger) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &FileWatcher{
		fsw:      fsw,
		files:    make(map[string]bool),
		onChange: onChange,
		logger:   logger.Named("watch"),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *FileWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.logger.Debug("Watched file changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.fire)
}

// fire runs onChange unless the watcher was closed while the timer ran.
func (w *FileWatcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	w.onChange()
}

// Close stops watching.
func (w *FileWatcher) Close() error {
	close(w.done)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// WatchConfig re-reads config.yaml and the side files on change and then
// calls onChange.
func WatchConfig(onChange func(), logger *zap.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", zap.String("file", e.Name))
		mainFile := viper.ConfigFileUsed()
		if err := mergeSideFiles(logger); err != nil {
			logger.Error("Failed to merge side config files", zap.Error(err))
		}
		viper.SetConfigFile(mainFile)
		onChange()
	})
	viper.WatchConfig()
}
