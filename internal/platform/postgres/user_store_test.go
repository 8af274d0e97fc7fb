package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/teamtask-api/internal/domain"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "full_name", "email", "role", "team_id", "pref_email", "pref_in_app", "created_at", "updated_at",
}

func TestNewPostgresUserStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresUserStore(nil, nil) })
}

func TestPostgresUserStore_Create(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	user, err := domain.NewUser("Ada", "ada@example.com", domain.RoleUser)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(user.ID.String(), "Ada", "ada@example.com", "user", nil, false, true,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Create(context.Background(), user))
}

func TestPostgresUserStore_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	user, err := domain.NewUser("Ada", "ada@example.com", domain.RoleUser)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err = s.Create(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestPostgresUserStore_CreateInvalid(t *testing.T) {
	db, _ := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	err := s.Create(context.Background(), &domain.User{ID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrEmptyFullName)
}

func TestPostgresUserStore_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	id := uuid.New()
	teamID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(id.String(), "Ada", "ada@example.com", "manager", teamID.String(), true, false, now, now))

	user, err := s.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, domain.RoleManager, user.Role)
	require.NotNil(t, user.TeamID)
	assert.Equal(t, teamID, *user.TeamID)
	assert.Equal(t, domain.NotificationPreferences{Email: true, InApp: false}, user.NotificationPreferences)
}

func TestPostgresUserStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_GetByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	a, b := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1::uuid[])")).
		WithArgs("{" + a.String() + "," + b.String() + "}").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(a.String(), "A", "a@example.com", "user", nil, false, true, now, now))

	users, err := s.GetByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Nil(t, users[0].TeamID)

	empty, err := s.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgresUserStore_SetAndClearTeam(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	teamID := uuid.New()
	user := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs(teamID.String(), sqlmock.AnyArg(), "{"+user.String()+"}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs(nil, sqlmock.AnyArg(), "{"+user.String()+"}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET team_id = NULL")).
		WithArgs(sqlmock.AnyArg(), teamID.String()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	require.NoError(t, s.SetTeam(ctx, []uuid.UUID{user}, &teamID))
	require.NoError(t, s.SetTeam(ctx, []uuid.UUID{user}, nil))
	require.NoError(t, s.SetTeam(ctx, nil, &teamID), "empty list is a no-op")
	require.NoError(t, s.ClearTeam(ctx, teamID))
}

func TestPostgresUserStore_UpdatePreferencesNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	mock.ExpectExec(regexp.QuoteMeta("SET pref_email")).
		WithArgs(true, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdatePreferences(context.Background(), uuid.New(), domain.NotificationPreferences{Email: true})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestPostgresUserStore_WithTx(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresUserStore(db, logger.Discard())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, s.WithTx(tx).Delete(context.Background(), uuid.New()))
	require.NoError(t, tx.Commit())
}
