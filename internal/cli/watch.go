package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const watchDebounce = 500 * time.Millisecond

func newWatchCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Check the content collections and re-check on every change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			root := a.contentRoot(args)
			checker, closeFn, err := a.newChecker(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			run := func() {
				report, err := checker.CheckDir(ctx, root)
				if err != nil {
					if ctx.Err() == nil {
						a.log.Error().Err(err).Str("root", root).Msg("Check failed")
					}
					return
				}
				if err := printReport(a.out, report, asJSON); err != nil {
					a.log.Error().Err(err).Msg("Failed to print report")
				}
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create file watcher: %w", err)
			}
			defer watcher.Close()

			if err := addWatches(watcher, root, a.log); err != nil {
				return err
			}

			run()
			a.log.Info().Str("root", root).Msg("Watching for changes, press Ctrl+C to stop")
			watchLoop(ctx, watcher, watchDebounce, run, a.log)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")
	return cmd
}

// addWatches registers root and every directory below it; fsnotify is not recursive
func addWatches(watcher *fsnotify.Watcher, root string, log zerolog.Logger) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("Skipping unreadable path")
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(p); err != nil {
				log.Warn().Err(err).Str("path", p).Msg("Failed to watch directory")
			}
		}
		return nil
	})
}

// watchLoop calls run once events settle for debounce. It returns when ctx is
// done or the watcher is closed.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, run func(), log zerolog.Logger) {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("Change detected")

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatches(watcher, event.Name, log); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
					}
				}
			}
			resetTimer(timer, debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watcher error")

		case <-timer.C:
			run()
		}
	}
}

// resetTimer restarts t, dropping a fire that has not been received yet
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
