// Package tradelog appends account lifecycle events to daily JSON-lines files.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var mu sync.Mutex

// Event names
const (
	EventConnect    = "connect"
	EventSync       = "sync"
	EventDisconnect = "disconnect"
)

type Entry struct {
	Time         string         `json:"time"`
	Event        string         `json:"event"`
	AccountID    string         `json:"accountId"`
	Platform     string         `json:"platform"`
	Status       string         `json:"status,omitempty"`
	Balance      float64        `json:"balance,omitempty"`
	Equity       float64        `json:"equity,omitempty"`
	OpenTrades   int            `json:"openTrades,omitempty"`
	ClosedTrades int            `json:"closedTrades,omitempty"`
	UsedFallback bool           `json:"usedFallback,omitempty"`
	DurationMS   int64          `json:"durationMs,omitempty"`
	Error        string         `json:"error,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

func logDir() string {
	if v := os.Getenv("JOURNAL_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func dailyFilepath(t time.Time) string {
	return filepath.Join(logDir(), t.UTC().Format("2006-01-02")+".txt")
}

// Append stamps e with the current UTC time and writes it to today's file
func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	e.Time = now.Format(time.RFC3339)
	p := dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips log files last modified more than retentionDays ago.
// Files that cannot be read are left in place.
func CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	mu.Lock()
	defer mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	compressed := 0
	err := filepath.WalkDir(logDir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if gzipFile(p, gz) == nil {
			_ = os.Remove(p)
			compressed++
		}
		return nil
	})
	return compressed, err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	fileErr := out.Close()

	for _, err := range []error{copyErr, closeErr, fileErr} {
		if err != nil {
			_ = os.Remove(dst)
			return err
		}
	}
	return nil
}
