package preview

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestPostgresCreateInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	now := time.Unix(1700000000, 0).UTC()

	record := Record{
		ID:            "abc123",
		WebsiteURL:    "https://ex.com",
		ChatbotScript: "<script>x</script>",
		Category:      DefaultCategory,
		Name:          "Demo",
		CreatedAt:     now,
	}

	mock.ExpectExec("INSERT INTO previews").
		WithArgs(record.ID, record.WebsiteURL, record.ChatbotScript, record.Category, record.Name, record.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetScansRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT id, website_url, chatbot_script, category, name, created_at").
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{"id", "website_url", "chatbot_script", "category", "name", "created_at"}).
			AddRow("abc123", "https://ex.com", "s", DefaultCategory, "", now))

	record, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "https://ex.com", record.WebsiteURL)
	require.Equal(t, now, record.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery("SELECT id, website_url, chatbot_script, category, name, created_at").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "website_url", "chatbot_script", "category", "name", "created_at"}))

	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec("DELETE FROM previews").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.ErrorIs(t, store.Delete(context.Background(), "missing"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListNewestFirst(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT id, website_url, chatbot_script, category, name, created_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "website_url", "chatbot_script", "category", "name", "created_at"}).
			AddRow("new-00", "https://a.com", "s", DefaultCategory, "", now).
			AddRow("old-00", "https://b.com", "s", DefaultCategory, "", now.Add(-time.Hour)))

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "new-00", records[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
