package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crumbandco/bakeshop-backend/pkg/db/models"
	"github.com/crumbandco/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/crumbandco/bakeshop-backend/pkg/errors"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	return db
}

func TestUserRepositoryCreateAndFind(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		ID:           uuid.New(),
		Email:        "baker@example.com",
		PasswordHash: "$argon2id$fake",
		DisplayName:  "Baker",
		Role:         enums.UserRoleCustomer,
	}
	created, err := repo.Create(ctx, user)
	require.NoError(t, err)
	require.Equal(t, user.ID, created.ID)

	found, err := repo.FindByEmail(ctx, "BAKER@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "baker@example.com", found.Email)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}

func TestUserRepositoryNotFound(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "ghost@example.com")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	_, err = repo.FindByID(ctx, uuid.New())
	require.Error(t, err)
}
