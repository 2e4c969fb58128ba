package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-tracker/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, NewUserRepository(db).Init(ctx))
	require.NoError(t, NewWorkorderRepository(db).Init(ctx))
	require.NoError(t, NewCommentRepository(db).Init(ctx))
	return db
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	ada := &domain.User{Email: "ada@example.com", Username: "ada", AuthyID: "42"}
	id, err := users.Create(ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, ada.Role)

	plain := &domain.User{Email: "bob@example.com", Username: "bob"}
	_, err = users.Create(ctx, plain)
	require.NoError(t, err, "several users without an authy id must coexist")
	_, err = users.Create(ctx, &domain.User{Email: "carol@example.com", Username: "carol"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &domain.User{Email: "ada@example.com", Username: "ada2"})
	require.ErrorIs(t, err, domain.ErrConflict)

	byLogin, err := users.GetByLogin(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byLogin.ID)
	byLogin, err = users.GetByLogin(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, plain.ID, byLogin.ID)

	byAuthy, err := users.GetByAuthyID(ctx, "42")
	require.NoError(t, err)
	assert.True(t, byAuthy.Enrolled())
	assert.False(t, plain.Enrolled())

	_, err = users.GetByID(ctx, 999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	all, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	deleted, err := users.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = users.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUserRepository_GetByLoginPrefersEmail(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	grace := &domain.User{Email: "grace@example.com", Username: "grace"}
	_, err := users.Create(ctx, grace)
	require.NoError(t, err)
	squatter := &domain.User{Email: "mallory@example.com", Username: "grace@example.com"}
	_, err = users.Create(ctx, squatter)
	require.NoError(t, err)

	got, err := users.GetByLogin(ctx, "Grace@Example.com")
	require.NoError(t, err)
	assert.Equal(t, grace.ID, got.ID)

	got, err = users.GetByLogin(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, grace.ID, got.ID)

	_, err = users.GetByLogin(ctx, "mallory")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_SetTwoFactor(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(openTestDB(t))

	ada := &domain.User{Email: "ada@example.com", Username: "ada", PasswordHash: "hash"}
	_, err := users.Create(ctx, ada)
	require.NoError(t, err)
	enrolled := &domain.User{Email: "bob@example.com", Username: "bob", AuthyID: "7"}
	_, err = users.Create(ctx, enrolled)
	require.NoError(t, err)

	updated, err := users.SetTwoFactor(ctx, ada.ID, "42", "+12015550123")
	require.NoError(t, err)
	assert.Equal(t, "42", updated.AuthyID)
	assert.Equal(t, "+12015550123", updated.Phone)
	assert.Equal(t, "hash", updated.PasswordHash)

	_, err = users.SetTwoFactor(ctx, ada.ID, "43", "+12015550123")
	require.ErrorIs(t, err, domain.ErrAlreadyEnrolled)

	plain := &domain.User{Email: "carol@example.com", Username: "carol"}
	_, err = users.Create(ctx, plain)
	require.NoError(t, err)
	_, err = users.SetTwoFactor(ctx, plain.ID, "7", "+12015550124")
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = users.SetTwoFactor(ctx, 999, "44", "+12015550125")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// no idle connections: each query below runs on a freshly opened one
	db.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		var on int
		require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&on))
		assert.Equal(t, 1, on)
	}
}

func TestWorkorderRepository_ListBefore(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	workorders := NewWorkorderRepository(db)

	owner := &domain.User{Email: "ada@example.com", Username: "ada"}
	_, err := users.Create(ctx, owner)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := workorders.Create(ctx, &domain.Workorder{
			QRCode:    "QR",
			UserID:    owner.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Nanosecond),
		})
		require.NoError(t, err)
	}

	all, err := workorders.ListBefore(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.Equal(base.Add(3*time.Nanosecond)), "timestamps keep nanosecond precision")
	assert.Equal(t, domain.WorkorderStatusOpen, all[0].Status)

	before := base.Add(2 * time.Nanosecond)
	older, err := workorders.ListBefore(ctx, &before, 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.True(t, older[0].CreatedAt.Equal(base.Add(time.Nanosecond)))

	limited, err := workorders.ListBefore(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err := workorders.GetByQRCode(ctx, "QR")
	require.NoError(t, err)
	assert.Equal(t, all[0].ID, latest.ID)
}

func TestWorkorderRepository_UpdateAndCascade(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	workorders := NewWorkorderRepository(db)
	comments := NewCommentRepository(db)

	owner := &domain.User{Email: "ada@example.com", Username: "ada"}
	_, err := users.Create(ctx, owner)
	require.NoError(t, err)

	wo := &domain.Workorder{QRCode: "QR-1", Title: "Leak", UserID: owner.ID}
	_, err = workorders.Create(ctx, wo)
	require.NoError(t, err)

	_, err = workorders.Create(ctx, &domain.Workorder{QRCode: "QR-X", UserID: 999})
	require.ErrorIs(t, err, domain.ErrDataAccess, "foreign keys are enforced")

	priority := 3
	updated, err := workorders.Update(ctx, wo.ID, domain.WorkorderPatch{Priority: &priority})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Priority)
	assert.Equal(t, "Leak", updated.Title)

	_, err = workorders.Update(ctx, 999, domain.WorkorderPatch{Priority: &priority})
	require.ErrorIs(t, err, domain.ErrNotFound)

	comment := &domain.Comment{Text: "on it", WorkorderID: wo.ID, UserID: owner.ID}
	_, err = comments.Create(ctx, comment)
	require.NoError(t, err)

	deleted, err := workorders.Delete(ctx, wo.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = comments.Get(ctx, comment.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
