package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_DeterministicAndContentSensitive(t *testing.T) {
	t.Parallel()

	h := New()
	a, err := h.Hash([]byte("<html>a</html>"))
	require.NoError(t, err)
	b, err := h.Hash([]byte("<html>a</html>"))
	require.NoError(t, err)
	c, err := h.Hash([]byte("<html>b</html>"))
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 64)
}

func TestWeakETagRoundTrip(t *testing.T) {
	t.Parallel()

	etag := WeakETag("abc123")
	require.Equal(t, `W/"abc123"`, etag)
	require.Equal(t, "abc123", ValidatorFromETag(etag))
	require.Equal(t, "abc123", ValidatorFromETag(`"abc123"`))
	require.Equal(t, "abc123", ValidatorFromETag("abc123"))
}
