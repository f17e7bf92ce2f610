package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/warden/internal/dbtest"
	"github.com/JaimeStill/warden/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

func TestMapError(t *testing.T) {
	other := errors.New("some other error")
	fk := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("find report: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"other pg error", fk, fk},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"wrapped deadlock", fmt.Errorf("cast vote: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.Retryable(tt.err))
		})
	}
}

func TestWithTxRetriesConflicts(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	calls := 0
	got, err := repository.WithTx(ctx, db, func(tx *sql.Tx) (int, error) {
		calls++
		if calls < 3 {
			return 0, &pgconn.PgError{Code: "40001"}
		}
		var n int
		err := tx.QueryRowContext(ctx, "SELECT 41 + 1").Scan(&n)
		return n, err
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestWithTxStopsOnPermanentError(t *testing.T) {
	db := dbtest.Open(t)

	calls := 0
	_, err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) (int, error) {
		calls++
		return 0, errNotFound
	})

	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithTxGivesUpAfterAttempts(t *testing.T) {
	db := dbtest.Open(t)

	calls := 0
	_, err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) (int, error) {
		calls++
		return 0, &pgconn.PgError{Code: "40P01"}
	})

	assert.True(t, repository.Retryable(err))
	assert.Equal(t, 4, calls)
}
