package templates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML template pack:
//
//	generic:
//	  - "Erzähl mir mehr."
//	intents:
//	  compliment:
//	    - "Danke dir."
func LoadFile(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read template pack: %w", err)
	}
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Pack{}, fmt.Errorf("parse template pack %s: %w", path, err)
	}
	return p, nil
}

// LoadInto applies the pack at path to s. A missing file is not an error.
func LoadInto(s *Selector, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	p, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	s.Replace(p)
	return true, nil
}

// Watch reloads the pack into s whenever the file changes. It blocks until
// ctx is done. The parent directory is watched so editors that replace the
// file on save are handled.
func Watch(ctx context.Context, s *Selector, path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch templates: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			loaded, err := LoadInto(s, abs)
			if err != nil {
				logger.Warn("template reload failed", zap.String("path", abs), zap.Error(err))
				continue
			}
			if loaded {
				logger.Info("templates reloaded", zap.String("path", abs))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("template watcher error", zap.Error(err))
		}
	}
}
