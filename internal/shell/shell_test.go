package shell

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/auth"
	"github.com/Molayo2025/capstone-project/internal/ledger"
	"github.com/Molayo2025/capstone-project/internal/logger"
	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

func mustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func runScript(t *testing.T, lines ...string) string {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxEvent{}))

	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	rep := repo.NewRepository(db, nil, nil, log)
	eng := ledger.NewEngine(rep, 0, log)
	idp := auth.NewService(rep, log)

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	sh := New(idp, eng, in, &out, log)
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestSignUpLoginDepositFlow(t *testing.T) {
	out := runScript(t,
		"1",              // sign up
		"Ada Obi",        // full name
		"ada",            // username
		"sekret9!",       // password
		"sekret9!",       // confirm
		"2000",           // opening deposit
		"2",              // log in
		"ada", "sekret9!",
		"1", "500",       // deposit 500
		"3",              // check balance
		"6",              // account details
		"7",              // log out
		"3",              // quit
	)

	assert.Contains(t, out, "Sign up successful!")
	assert.Contains(t, out, "Your account number is")
	assert.Contains(t, out, "Hello, Ada Obi")
	assert.Contains(t, out, "Deposit successful. New balance: ₦2500.00")
	assert.Contains(t, out, "Your current balance is ₦2500.00")
	assert.Contains(t, out, "Username: ada")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Goodbye")
}

func TestSignUpRejectsMismatchedPasswords(t *testing.T) {
	out := runScript(t,
		"1",
		"Ada Obi", "ada", "sekret9!", "different!",
		"3",
	)
	assert.Contains(t, out, "Passwords don't match")
}

func TestLoginFailureReprompts(t *testing.T) {
	out := runScript(t,
		"2", "ghost", "whatever1!",
		"3",
	)
	assert.Contains(t, out, "Invalid username or password")
	assert.Contains(t, out, "Goodbye")
}

func TestWithdrawInsufficientFundsKeepsSession(t *testing.T) {
	out := runScript(t,
		"1", "Ada Obi", "ada", "sekret9!", "sekret9!", "2000",
		"2", "ada", "sekret9!",
		"2", "3000", // withdraw more than balance
		"3",         // balance unchanged
		"7",
		"3",
	)
	assert.Contains(t, out, "Insufficient funds")
	assert.Contains(t, out, "Your current balance is ₦2000.00")
}

func TestTransferFlowWithConfirmation(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxEvent{}))

	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	rep := repo.NewRepository(db, nil, nil, log)
	eng := ledger.NewEngine(rep, 0, log)
	idp := auth.NewService(rep, log)

	ctx := context.Background()
	_, err = idp.SignUp(ctx, "Ada Obi", "ada", "sekret9!", mustAmount("2000"))
	require.NoError(t, err)
	bob, err := idp.SignUp(ctx, "Bob Eze", "bob", "sekret9!", mustAmount("2000"))
	require.NoError(t, err)

	script := strings.Join([]string{
		"2", "ada", "sekret9!",
		"5", bob.AccountNumber, "yes", "1000",
		"4", // history shows the transfer
		"7",
		"3",
	}, "\n") + "\n"

	var out bytes.Buffer
	sh := New(idp, eng, strings.NewReader(script), &out, log)
	require.NoError(t, sh.Run(ctx))

	assert.Contains(t, out.String(), "Recipient Name: Bob Eze")
	assert.Contains(t, out.String(), "sent to "+bob.AccountNumber)
	assert.Contains(t, out.String(), "New balance: ₦1000.00")
	assert.Contains(t, out.String(), "transfer_out")
	assert.Contains(t, out.String(), "to Bob Eze")
}

func TestTransferCancelled(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxEvent{}))

	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	rep := repo.NewRepository(db, nil, nil, log)
	eng := ledger.NewEngine(rep, 0, log)
	idp := auth.NewService(rep, log)

	ctx := context.Background()
	_, err = idp.SignUp(ctx, "Ada Obi", "ada", "sekret9!", mustAmount("2000"))
	require.NoError(t, err)
	bob, err := idp.SignUp(ctx, "Bob Eze", "bob", "sekret9!", mustAmount("2000"))
	require.NoError(t, err)

	script := strings.Join([]string{
		"2", "ada", "sekret9!",
		"5", bob.AccountNumber, "no",
		"3",
		"7",
		"3",
	}, "\n") + "\n"

	var out bytes.Buffer
	sh := New(idp, eng, strings.NewReader(script), &out, log)
	require.NoError(t, sh.Run(ctx))

	assert.Contains(t, out.String(), "Transfer cancelled")
	assert.Contains(t, out.String(), "Your current balance is ₦2000.00")
}
