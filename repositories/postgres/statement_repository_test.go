package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var statementRowColumns = []string{"id", "effect", "actions", "resource", "condition", "created_at"}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewDBFromConn(conn, zap.NewNop()), mock
}

func TestStatementRepository_CreateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts every statement in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO statements")).
			WithArgs("Allow get by anybody", models.EffectAllow, sqlmock.AnyArg(), "hoster:object:*", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO statements")).
			WithArgs("Allow delete / update own object", models.EffectAllow, sqlmock.AnyArg(), "hoster:object:*", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		statements := []*models.Statement{
			{ID: "Allow get by anybody", Effect: models.EffectAllow, Action: models.ActionList{"hoster:GetObject"}, Resource: "hoster:object:*"},
			{
				ID:       "Allow delete / update own object",
				Effect:   models.EffectAllow,
				Action:   models.ActionList{"hoster:DeleteObject", "hoster:UpdateObject"},
				Resource: "hoster:object:*",
				Condition: models.Condition{
					"owns hosted image": {models.OperatorEnsure: "resource.owner._id == user._id"},
				},
			},
		}

		err := repo.CreateBatch(ctx, statements)
		require.NoError(t, err)
		assert.False(t, statements[0].CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate key rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO statements")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO statements")).
			WillReturnError(&pq.Error{Code: uniqueViolation})
		mock.ExpectRollback()

		err := repo.CreateBatch(ctx, []*models.Statement{
			{ID: "a", Effect: models.EffectAllow, Action: models.ActionList{"x"}, Resource: "*"},
			{ID: "b", Effect: models.EffectDeny, Action: models.ActionList{"x"}, Resource: "*"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, repositories.ErrDuplicate))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins a transaction from the context", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())
		txMgr := NewTransactionManager(db, zap.NewNop())

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO statements")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
			return repo.CreateBatch(ctx, []*models.Statement{
				{ID: "a", Effect: models.EffectAllow, Action: models.ActionList{"x"}, Resource: "*"},
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("FROM statements WHERE id = $1")

	t.Run("found with condition", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery(query).
			WithArgs("owner").
			WillReturnRows(sqlmock.NewRows(statementRowColumns).AddRow(
				"owner", "allow", "{hoster:DeleteObject,hoster:UpdateObject}", "hoster:object:*",
				[]byte(`{"owns hosted image":{"%ensure":"resource.owner._id == user._id"}}`), created,
			))

		stmt, err := repo.GetByID(ctx, "owner")
		require.NoError(t, err)
		assert.Equal(t, models.EffectAllow, stmt.Effect)
		assert.Equal(t, models.ActionList{"hoster:DeleteObject", "hoster:UpdateObject"}, stmt.Action)
		assert.Equal(t, "resource.owner._id == user._id", stmt.Condition["owns hosted image"][models.OperatorEnsure])
		assert.Equal(t, created, stmt.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(sqlmock.NewRows(statementRowColumns))

		_, err := repo.GetByID(ctx, "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_ListByAction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatementRepository(db, zap.NewNop())

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE $1 = ANY(actions) ORDER BY seq")).
		WithArgs("hoster:GetObject").
		WillReturnRows(sqlmock.NewRows(statementRowColumns).
			AddRow("first", "allow", "{hoster:GetObject}", "hoster:object:*", nil, now).
			AddRow("second", "deny", "{hoster:GetObject,hoster:DeleteObject}", "hoster:image:*", nil, now))

	statements, err := repo.ListByAction(context.Background(), "hoster:GetObject")
	require.NoError(t, err)
	require.Len(t, statements, 2)
	assert.Equal(t, "first", statements[0].ID)
	assert.Equal(t, models.EffectDeny, statements[1].Effect)
	assert.Nil(t, statements[0].Condition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_List_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatementRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("FROM statements ORDER BY seq")).WillReturnError(errors.New("connection reset"))

	_, err := repo.List(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_ExistingIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatementRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM statements WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b"))

	existing, err := repo.ExistingIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, existing)

	none, err := repo.ExistingIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatementRepository_Delete(t *testing.T) {
	query := regexp.QuoteMeta("DELETE FROM statements WHERE id = $1")

	t.Run("deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		mock.ExpectExec(query).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Delete(context.Background(), "a"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatementRepository(db, zap.NewNop())

		mock.ExpectExec(query).WithArgs("a").WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.Delete(context.Background(), "a")
		assert.True(t, errors.Is(err, repositories.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_Count(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatementRepository(db, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM statements")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_HealthCheck(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
