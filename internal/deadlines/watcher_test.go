package deadlines

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherReportsNewFileMatchingExtension(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, []string{".csv"}, 20*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	path := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("entity,record_id\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := WaitForOne(ctx, w)
	require.NoError(t, err)
	require.Equal(t, path, f.Path)
}

func TestWatcherIgnoresNonMatchingExtension(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, []string{".csv"}, 20*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("irrelevant"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = WaitForOne(ctx, w)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
