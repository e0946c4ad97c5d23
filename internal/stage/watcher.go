package stage

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls input-directory watching.
type WatchConfig struct {
	Dir         string
	InitialScan bool          // emit PDFs already present at start
	Debounce    time.Duration // coalesce rapid write bursts
}

// WatchInputs emits the path of each PDF that lands in the input
// directory until ctx is cancelled. Both channels close on shutdown.
func WatchInputs(ctx context.Context, cfg WatchConfig, log *slog.Logger) (<-chan string, <-chan error, error) {
	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		return nil, nil, err
	}

	if cfg.InitialScan {
		existing, err := sortedGlob(cfg.Dir, "*.pdf")
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, p := range existing {
			select {
			case evCh <- p:
			default:
			}
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() { _ = w.Close() }()

		// The debounce timer only arms a select case; the pending map
		// and evCh are touched on this goroutine alone.
		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()
		var flushC <-chan time.Time
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				select {
				case evCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flushC:
				flushC = nil
				sendPending()
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if !isPDF(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				if cfg.Debounce > 0 {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(cfg.Debounce)
					flushC = timer.C
				} else {
					sendPending()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("stage.watch_error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
