package shader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the path of a watched shader file each time it is written or re-created.
// The parent directories are watched rather than the files, since editors commonly save by replacing
// the file. Watch blocks until ctx is done and then returns nil.
//
// Parameters:
//   - ctx: cancels the watch
//   - onChange: called from the watching goroutine for every change
//   - paths: the shader files to watch
//
// Returns:
//   - error: an error if the watcher could not be created or a directory could not be watched
func Watch(ctx context.Context, onChange func(path string), paths ...string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no shader paths to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create shader watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]string, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", p, err)
		}
		watched[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
		dirs[dir] = true
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if given, ok := watched[abs]; ok {
				onChange(given)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("shader watcher: %w", err)
		}
	}
}
