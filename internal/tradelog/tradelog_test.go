package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_LOG_DIR", dir)

	require.NoError(t, Append(Entry{Event: EventConnect, AccountID: "a1", Platform: "MT5"}))
	require.NoError(t, Append(Entry{Event: EventSync, AccountID: "a1", Platform: "MT5", OpenTrades: 2, UsedFallback: true}))

	f, err := os.Open(filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".txt"))
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, EventSync, entries[1].Event)
	assert.True(t, entries[1].UsedFallback)
	_, err = time.Parse(time.RFC3339, entries[0].Time)
	assert.NoError(t, err)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOURNAL_LOG_DIR", dir)

	old := filepath.Join(dir, "2024-01-01.txt")
	fresh := filepath.Join(dir, "2024-01-20.txt")
	require.NoError(t, os.WriteFile(old, []byte(`{"event":"sync"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte(`{"event":"sync"}`+"\n"), 0o644))
	past := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, past, past))

	n, err := CompressOlder(7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)

	gz, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer gz.Close()
	r, err := gzip.NewReader(gz)
	require.NoError(t, err)
	var e Entry
	require.NoError(t, json.NewDecoder(r).Decode(&e))
	assert.Equal(t, EventSync, e.Event)

	n, err = CompressOlder(0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
