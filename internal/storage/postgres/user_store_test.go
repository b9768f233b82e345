package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/analysis"
)

func TestFindByEmail_ReturnsID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("owner@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("user-1"))

	id, err := store.FindByEmail(context.Background(), "owner@example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmail_NotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStoreWithPool(mock, &seqIDGen{})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id FROM users").
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.FindByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, analysis.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_InsertsUser(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStoreWithPool(mock, &seqIDGen{ids: []string{"user-1"}})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-1", "new@example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Create(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewUserStoreWithPool(mock, &seqIDGen{ids: []string{"user-2"}})
	require.NoError(t, err)

	// The conflicting insert affects zero rows.
	mock.ExpectExec("INSERT INTO users").
		WithArgs("user-2", "taken@example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	_, err = store.Create(context.Background(), "taken@example.com")
	require.ErrorIs(t, err, analysis.ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}
