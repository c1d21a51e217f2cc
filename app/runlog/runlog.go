// Package runlog writes the per-day processing log: one pipe-delimited
// line per feed processed plus a framed summary per run. These files
// are the only user-visible record of what each run did.
package runlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	fileDateFormat  = "2006-01-02"
	maxErrorLen     = 100
)

// Writer appends records to logs named by day under dir. A nil Writer
// is valid and discards everything, so the runner does not need to
// special-case disabled logging.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Record logs the outcome of one feed's processing.
func (w *Writer) Record(title, feedURL string, success bool, err error, newArticles int) {
	if w == nil {
		return
	}

	status := "Failed"
	if success {
		status = "Success"
	}

	errText := "None"
	if err != nil {
		errText = truncate(err.Error(), maxErrorLen)
	}

	line := strings.Join([]string{
		w.now().Format(timestampFormat),
		title,
		feedURL,
		status,
		errText,
		fmt.Sprintf("%d", newArticles),
	}, " | ")

	w.append(line + "\n")
}

// Summary logs the per-run totals, framed by dashes.
func (w *Writer) Summary(feedCount, totalNew int) {
	if w == nil {
		return
	}

	divider := strings.Repeat("-", 50)
	line := fmt.Sprintf("%s | Processed %d feeds | Total new articles: %d",
		w.now().Format(timestampFormat), feedCount, totalNew)

	w.append(fmt.Sprintf("\n%s\n%s\n%s\n", divider, line, divider))
}

func (w *Writer) append(text string) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		slog.Error("Failed to create log directory", "dir", w.dir, "error", err)
		return
	}

	path := filepath.Join(w.dir, w.now().Format(fileDateFormat)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("Failed to open log file", "path", path, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		slog.Error("Failed to write log record", "path", path, "error", err)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
