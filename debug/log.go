// Package debug writes an optional trace of clock ticks, voice calls and
// MIDI traffic to a file, since the TUI owns the terminal.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// EnvCategories names the env var holding a comma separated category filter
const EnvCategories = "GO_TILES_DEBUG"

type logger struct {
	mu    sync.Mutex
	out   *os.File
	only  map[string]bool // nil logs every category
	seen  map[string]int
	start time.Time
}

var (
	std    logger
	dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
)

// DefaultPath is ~/.config/go-tiles/debug.log
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "go-tiles", "debug.log")
}

// ParseCategories splits a filter such as "clock, midi" into a set.
// An empty or "all" filter returns nil.
func ParseCategories(filter string) map[string]bool {
	var set map[string]bool
	for _, c := range strings.Split(filter, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if c == "all" {
			return nil
		}
		if set == nil {
			set = make(map[string]bool)
		}
		set[c] = true
	}
	return set
}

// Enable truncates path (DefaultPath when empty) and starts logging the
// categories named by GO_TILES_DEBUG, or all of them when it is unset.
// Calling it again while enabled is a no-op.
func Enable(path string) error {
	return EnableCategories(path, ParseCategories(os.Getenv(EnvCategories)))
}

// EnableCategories is Enable with an explicit filter; nil logs everything
func EnableCategories(path string, only map[string]bool) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.out != nil {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	std.out = f
	std.only = only
	std.seen = make(map[string]int)
	std.start = time.Now()
	fmt.Fprintf(f, "go-tiles trace %s\n", std.start.Format(time.RFC3339))
	return nil
}

// Disable closes the log file
func Disable() {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.out != nil {
		std.out.Close()
		std.out = nil
	}
	std.only = nil
}

// Enabled reports whether category would be written
func Enabled(category string) bool {
	std.mu.Lock()
	defer std.mu.Unlock()
	return std.wants(category)
}

func Log(category, format string, args ...any) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.wants(category) {
		std.write(category, fmt.Sprintf(format, args...))
	}
}

// Dump deep-prints v for state without a useful String
func Dump(category, label string, v any) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.wants(category) {
		std.write(category, label+"\n"+strings.TrimRight(dumper.Sdump(v), "\n"))
	}
}

// LogEvery writes one line per n calls sharing category and format.
// Use it on paths that run every clock tick.
func LogEvery(n int, category, format string, args ...any) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if !std.wants(category) {
		return
	}
	key := category + "\x00" + format
	std.seen[key]++
	if count := std.seen[key]; n <= 1 || count%n == 0 {
		std.write(category, fmt.Sprintf(format, args...)+fmt.Sprintf(" [%d calls]", count))
	}
}

// wants expects mu held
func (l *logger) wants(category string) bool {
	return l.out != nil && (l.only == nil || l.only[category])
}

// write expects mu held. Lines carry seconds since Enable so they line up
// with the audio clock.
func (l *logger) write(category, msg string) {
	elapsed := time.Since(l.start).Seconds()
	fmt.Fprintf(l.out, "%9.3f %-6s %s\n", elapsed, category, msg)
	l.out.Sync()
}
