package preview

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webscout/webscout/internal/scout"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct{ id string }

func (g fixedIDs) NewID() (string, error) { return g.id, nil }

func TestNewRecordDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	record, err := NewRecord("https://ex.com", "<script>x</script>", "", "", "", fixedIDs{id: "generated-id"}, fixedClock{now: now})
	require.NoError(t, err)
	require.Equal(t, "generated-id", record.ID)
	require.Equal(t, DefaultCategory, record.Category)
	require.Equal(t, now, record.CreatedAt)
}

func TestNewRecordValidation(t *testing.T) {
	t.Parallel()

	ids := fixedIDs{id: "generated-id"}
	clock := fixedClock{now: time.Unix(0, 0)}

	cases := []struct {
		name     string
		url      string
		script   string
		category string
		label    string
		id       string
		wantErr  bool
	}{
		{name: "valid", url: "https://ex.com", script: "s", id: "custom-id"},
		{name: "ftp url", url: "ftp://ex.com", script: "s", wantErr: true},
		{name: "relative url", url: "/page", script: "s", wantErr: true},
		{name: "empty script", url: "https://ex.com", script: "", wantErr: true},
		{name: "script too long", url: "https://ex.com", script: strings.Repeat("x", 20001), wantErr: true},
		{name: "category too long", url: "https://ex.com", script: "s", category: strings.Repeat("c", 101), wantErr: true},
		{name: "name too long", url: "https://ex.com", script: "s", label: strings.Repeat("n", 101), wantErr: true},
		{name: "short id", url: "https://ex.com", script: "s", id: "abc", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRecord(tc.url, tc.script, tc.category, tc.label, tc.id, ids, clock)
			if tc.wantErr {
				require.Error(t, err)
				var ve *scout.ValidationError
				require.ErrorAs(t, err, &ve)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	record := Record{ID: "abc123", WebsiteURL: "https://ex.com", ChatbotScript: "s", Category: DefaultCategory, CreatedAt: time.Unix(100, 0)}
	require.NoError(t, s.Create(ctx, record))

	got, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, record, got)

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "abc123"))
	require.ErrorIs(t, s.Delete(ctx, "abc123"), ErrNotFound)
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, Record{ID: "old-00", CreatedAt: time.Unix(100, 0)}))
	require.NoError(t, s.Create(ctx, Record{ID: "new-00", CreatedAt: time.Unix(300, 0)}))
	require.NoError(t, s.Create(ctx, Record{ID: "mid-00", CreatedAt: time.Unix(200, 0)}))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"new-00", "mid-00", "old-00"}, []string{records[0].ID, records[1].ID, records[2].ID})
}
