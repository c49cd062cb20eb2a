package i18n

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch loads the override directory and reloads it whenever a catalog file
// in it is written. It blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context, dir string, log zerolog.Logger) error {
	if err := c.LoadDir(dir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Msg("watching translation overrides")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCatalogEvent(event) {
				continue
			}
			if err := c.LoadDir(dir); err != nil {
				log.Warn().Err(err).Str("file", event.Name).Msg("reload translations")
				continue
			}
			log.Info().Str("file", event.Name).Msg("translations reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("translation watcher error")
		}
	}
}

func isCatalogEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".yaml")
}
