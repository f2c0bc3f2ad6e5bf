package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webscout/webscout/internal/archive"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	data := []byte("<html>snapshot</html>")
	path := archive.SnapshotPath("snapshots", "example.com", "abc123")

	uri, err := s.PutObject(context.Background(), path, "text/html; charset=utf-8", data)
	require.NoError(t, err)
	require.Equal(t, "memory://snapshots/example.com/abc123.html", uri)

	data[0] = 'X'
	stored, ok := s.Object(path)
	require.True(t, ok)
	require.Equal(t, "<html>snapshot</html>", string(stored), "store must not alias caller memory")
}

func TestSnapshotPathWithoutPrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "example.com/abc.html", archive.SnapshotPath("", "example.com", "abc"))
	require.Equal(t, "p/example.com/abc.html", archive.SnapshotPath("/p/", "example.com", "abc"))
}
