// Package progress prints line-oriented run feedback for the desktop
// front end that tails this process's stdout.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Emitter writes ordered status lines. An optional filter suppresses
// lines the front end should not surface, such as raw directory paths.
type Emitter struct {
	mu     sync.Mutex
	w      io.Writer
	filter func(string) bool
}

// NewEmitter wraps w. filter may be nil; when set, lines for which it
// returns false are dropped.
func NewEmitter(w io.Writer, filter func(string) bool) *Emitter {
	return &Emitter{w: w, filter: filter}
}

// Line writes one formatted status line.
func (e *Emitter) Line(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.filter != nil && !e.filter(msg) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.w, msg)
}

// Bar writes a text progress bar for step done of total.
func (e *Emitter) Bar(done, total int, suffix string) {
	if total <= 0 {
		return
	}
	const width = 30
	filled := width * done / total
	percent := 100 * float64(done) / float64(total)
	if r := []rune(suffix); len(r) > 20 {
		suffix = string(r[:17]) + "..."
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("-", width-filled)
	e.Line("Progress: |%s| %.1f%% %s", bar, percent, suffix)
}

// PathFilter returns a filter that drops lines mentioning any of the
// given path fragments.
func PathFilter(fragments []string) func(string) bool {
	return func(line string) bool {
		for _, f := range fragments {
			if f != "" && strings.Contains(line, f) {
				return false
			}
		}
		return true
	}
}
