package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
)

// these use sqlmock to drive the error paths that an in-memory database
// cannot produce

func TestUserStore_GetUserQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM users`).WillReturnError(errors.New("connection reset"))

	store := NewUserStore(db)
	_, err = store.GetUser(context.Background(), "u-1")
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchStore_ListCountError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM branches`).WillReturnError(errors.New("relation missing"))

	store := NewBranchStore(db)
	_, _, err = store.List(context.Background(), httputil.Pagination{Page: 1, Limit: 10, Sort: "createdAt", Order: "desc"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusinessStore_DeleteRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM business_settings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM businesses`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	store := NewBusinessStore(db)
	err = store.Delete(context.Background(), "biz-1")
	assert.ErrorContains(t, err, "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
