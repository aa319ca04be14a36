package gormdb

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"usuarios-service/internal/domain/user"
	pkgerrors "usuarios-service/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&UserSchema{}))
	return db
}

func setupRepo(t *testing.T) *UserRepo {
	return NewUserRepo(setupTestDB(t), zaptest.NewLogger(t))
}

func birth(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUserRepo_SaveAssignsID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, user.User{Name: "Ana", Email: "a@x.com", CPF: "111", BirthDate: birth(1990, time.May, 4)})
	require.NoError(t, err)
	assert.Positive(t, saved.ID)

	got, found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "1990-05-04", user.FormatDate(got.BirthDate))
}

func TestUserRepo_Lookups(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, user.User{Name: "Ana", Email: "a@x.com", CPF: "111"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		lookup func() (user.User, bool, error)
		found  bool
	}{
		{"by id", func() (user.User, bool, error) { return repo.FindByID(ctx, saved.ID) }, true},
		{"by unknown id", func() (user.User, bool, error) { return repo.FindByID(ctx, saved.ID+100) }, false},
		{"by email", func() (user.User, bool, error) { return repo.FindByEmail(ctx, "a@x.com") }, true},
		{"by unknown email", func() (user.User, bool, error) { return repo.FindByEmail(ctx, "z@x.com") }, false},
		{"by cpf", func() (user.User, bool, error) { return repo.FindByCPF(ctx, "111") }, true},
		{"by unknown cpf", func() (user.User, bool, error) { return repo.FindByCPF(ctx, "999") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, found, err := tt.lookup()
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, saved.ID, u.ID)
			} else {
				assert.Zero(t, u.ID)
			}
		})
	}
}

func TestUserRepo_FindAllOrderedByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	users, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := repo.Save(ctx, user.User{Email: email, CPF: email})
		require.NoError(t, err)
	}

	users, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "c@x.com", users[2].Email)
	assert.Less(t, users[0].ID, users[1].ID)
}

func TestUserRepo_SaveReplacesExisting(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, user.User{Name: "Ana", Email: "a@x.com", CPF: "111", BirthDate: birth(1990, time.May, 4)})
	require.NoError(t, err)

	updated, err := repo.Save(ctx, user.User{ID: saved.ID, Name: "Ana Maria", Email: "a2@x.com", CPF: "111", BirthDate: birth(1991, time.June, 5)})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	got, found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ana Maria", got.Name)
	assert.Equal(t, "a2@x.com", got.Email)
	assert.Equal(t, "1991-06-05", user.FormatDate(got.BirthDate))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepo_UniqueIndexes(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.Save(ctx, user.User{Email: "a@x.com", CPF: "111"})
	require.NoError(t, err)

	_, err = repo.Save(ctx, user.User{Email: "a@x.com", CPF: "222"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	_, err = repo.Save(ctx, user.User{Email: "b@x.com", CPF: "111"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsAlreadyExists(err))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUserRepo_ExistsAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, user.User{Email: "a@x.com", CPF: "111"})
	require.NoError(t, err)

	exists, err := repo.ExistsByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.DeleteByID(ctx, saved.ID))

	exists, err = repo.ExistsByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"time", time.Date(2000, time.January, 2, 13, 0, 0, 0, time.UTC), "2000-01-02"},
		{"string", "2000-01-02", "2000-01-02"},
		{"datetime string", "2000-01-02 00:00:00+00:00", "2000-01-02"},
		{"bytes", []byte("1999-12-31"), "1999-12-31"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, user.FormatDate(time.Time(d)))
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("not a date"))
}

func TestDate_Value(t *testing.T) {
	v, err := Date(birth(2000, time.January, 1)).Value()
	require.NoError(t, err)
	assert.Equal(t, "2000-01-01", v)
}
