package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/logger"
	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxEvent{}))
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	return NewService(repo.NewRepository(db, nil, nil, log), log), context.Background()
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("ada_obi1"))
	assert.True(t, ValidUsername("abc"))
	assert.False(t, ValidUsername("ab"))
	assert.False(t, ValidUsername("way_too_long_username_here"))
	assert.False(t, ValidUsername("has space"))
	assert.False(t, ValidUsername("dash-ed"))
}

func TestValidPassword(t *testing.T) {
	assert.True(t, ValidPassword("sekret9!"))
	// no uppercase requirement
	assert.True(t, ValidPassword("alllower1?"))
	assert.False(t, ValidPassword("short1!"))
	assert.False(t, ValidPassword("nodigits!!"))
	assert.False(t, ValidPassword("nospecial99"))
	assert.False(t, ValidPassword("12345678!"))
}

func TestSignUpAndLogin(t *testing.T) {
	svc, ctx := newTestService(t)

	acct, err := svc.SignUp(ctx, "Ada Obi", "ada", "sekret9!", decimal.NewFromInt(2000))
	require.NoError(t, err)
	assert.Regexp(t, `^\d{8}$`, acct.AccountNumber)
	// credential is stored hashed, never in the clear
	assert.NotEqual(t, "sekret9!", acct.PasswordHash)
	assert.NotEmpty(t, acct.PasswordHash)

	got, err := svc.Login(ctx, "ada", "sekret9!")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	_, err = svc.Login(ctx, "ada", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody", "sekret9!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpValidation(t *testing.T) {
	svc, ctx := newTestService(t)
	opening := decimal.NewFromInt(2000)

	_, err := svc.SignUp(ctx, "Ada Obi", "a", "sekret9!", opening)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.SignUp(ctx, "", "ada", "sekret9!", opening)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.SignUp(ctx, "Ada Obi", "ada", "weak", opening)
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.SignUp(ctx, "Ada Obi", "ada", "sekret9!", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, repo.ErrBelowMinimumDeposit)

	_, err = svc.SignUp(ctx, "Ada Obi", "ada", "sekret9!", opening)
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "Other Ada", "ada", "sekret9!", opening)
	assert.ErrorIs(t, err, repo.ErrDuplicateUsername)
}
