package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/linkstash/internal/common"
	"github.com/dmitrijs2005/linkstash/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var (
	authTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	expires  = authTime.Add(24 * time.Hour)
	token    = models.RefreshToken{UserID: "u1", Digest: models.DigestRefreshToken("raw"), AuthTime: authTime, ExpiresAt: expires}
)

func TestPostgresCreate(t *testing.T) {
	q := regexp.QuoteMeta(`INSERT INTO refresh_tokens (digest, user_id, auth_time, expires_at)`)

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).
			WithArgs(token.Digest, "u1", authTime, expires).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), token))
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnError(errors.New("db down"))

		err := repo.Create(context.Background(), token)
		assert.ErrorContains(t, err, "insert refresh token: db down")
	})
}

func TestPostgresFind(t *testing.T) {
	q := regexp.QuoteMeta(`SELECT digest, user_id, auth_time, expires_at`)

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).
			WithArgs(token.Digest).
			WillReturnRows(sqlmock.NewRows([]string{"digest", "user_id", "auth_time", "expires_at"}).
				AddRow(token.Digest, "u1", authTime, expires))

		got, err := repo.Find(context.Background(), token.Digest)
		require.NoError(t, err)
		assert.Equal(t, token, *got)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		_, err := repo.Find(context.Background(), "missing")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errors.New("db err"))

		_, err := repo.Find(context.Background(), token.Digest)
		assert.ErrorContains(t, err, "select refresh token: db err")
	})
}

func TestPostgresDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	q := regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE digest = $1`)

	mock.ExpectExec(q).WithArgs("d1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("d2").WillReturnError(errors.New("db err"))

	require.NoError(t, repo.Delete(context.Background(), "d1"))
	assert.ErrorContains(t, repo.Delete(context.Background(), "d2"), "db err")
}

func TestPostgresDeleteByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByUser(context.Background(), "u1"))
}

func TestPostgresDeleteExpired(t *testing.T) {
	q := regexp.QuoteMeta(`DELETE FROM refresh_tokens WHERE user_id = $1 AND expires_at <= $2`)

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("u1", expires).WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repo.DeleteExpired(context.Background(), "u1", expires)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

		_, err := repo.DeleteExpired(context.Background(), "u1", expires)
		assert.ErrorContains(t, err, "no count")
	})
}
