package database

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestSaveArticleUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresWithPool(mock, "articles")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	row := Row{
		RunID:       "run-1",
		Section:     "ro_ar",
		Category:    "actualitati",
		URL:         "https://www.rri.ro/ro_ar/actualitati/alegeri-id12345.html",
		Filename:    "actualitati_12345.json",
		Title:       "Alegeri",
		ContentHash: "abc123",
		Payload:     []byte(`{"title":"Alegeri"}`),
		CrawledAt:   now,
	}

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(
			row.RunID,
			row.Section,
			row.Category,
			row.URL,
			row.Filename,
			row.Title,
			row.ContentHash,
			row.Payload,
			row.CrawledAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = provider.SaveArticle(context.Background(), row)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveArticleRequiresURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresWithPool(mock, "articles")
	require.NoError(t, err)

	err = provider.SaveArticle(context.Background(), Row{})
	require.Error(t, err)
}

func TestFindContainingReturnsSortedFilenames(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresWithPool(mock, "articles")
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"filename"}).
		AddRow("stiri_1.json").
		AddRow("stiri_2.json")

	mock.ExpectQuery("SELECT filename FROM articles").
		WithArgs("actualitate", "https://cdn.rri.ro/img/vot.jpg").
		WillReturnRows(rows)

	names, err := provider.FindContaining(context.Background(), "actualitate", "https://cdn.rri.ro/img/vot.jpg")
	require.NoError(t, err)
	require.Equal(t, []string{"stiri_1.json", "stiri_2.json"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindContainingSkipsEmptyLiteral(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	provider, err := NewPostgresWithPool(mock, "articles")
	require.NoError(t, err)

	names, err := provider.FindContaining(context.Background(), "actualitate", "")
	require.NoError(t, err)
	require.Empty(t, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresWithPool(nil, "articles")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(mock, "bad; drop table")
	require.Error(t, err)

	provider, err := NewPostgresWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "articles", provider.table)
}
