// Package shell is the terminal session surface: a menu loop that collects
// input, calls the identity gateway and ledger engine, and renders results.
// It holds no business rules beyond rejecting malformed input before the
// engine re-validates it.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Molayo2025/capstone-project/internal/auth"
	"github.com/Molayo2025/capstone-project/internal/ledger"
	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/money"
)

const mainMenu = `
Welcome to the Bank!

1. Sign Up
2. Log In
3. Quit
`

const sessionMenu = `
1. Deposit
2. Withdraw
3. Check Balance
4. Transaction History
5. Transfer
6. Account Details
7. Log out
`

// Shell drives one interactive session over the given reader and writer.
type Shell struct {
	idp *auth.Service
	eng *ledger.Engine
	in  *bufio.Scanner
	out io.Writer
	log *zap.SugaredLogger
}

func New(idp *auth.Service, eng *ledger.Engine, in io.Reader, out io.Writer, logger *zap.SugaredLogger) *Shell {
	return &Shell{idp: idp, eng: eng, in: bufio.NewScanner(in), out: out, log: logger}
}

// Run loops on the main menu until the user quits or input ends.
func (s *Shell) Run(ctx context.Context) error {
	for {
		s.printf("%s\n", mainMenu)
		choice, ok := s.prompt("Choose an option: ")
		if !ok {
			return nil
		}
		switch choice {
		case "1":
			s.signUp(ctx)
		case "2":
			s.logIn(ctx)
		case "3":
			s.printf("Goodbye\n")
			return nil
		default:
			s.printf("Invalid choice\n")
		}
	}
}

func (s *Shell) signUp(ctx context.Context) {
	fullName, ok := s.prompt("Enter your full name: ")
	if !ok {
		return
	}
	username, ok := s.prompt("Enter your username: ")
	if !ok {
		return
	}
	password, ok := s.prompt("Enter your password: ")
	if !ok {
		return
	}
	confirm, ok := s.prompt("Confirm your password: ")
	if !ok {
		return
	}
	if password != confirm {
		s.printf("Passwords don't match\n")
		return
	}
	raw, ok := s.prompt(fmt.Sprintf("Enter your initial deposit (min %s): ", money.MinOpeningDeposit.StringFixed(2)))
	if !ok {
		return
	}
	opening, err := money.Parse(raw)
	if err != nil {
		s.printf("Please enter a valid amount\n")
		return
	}
	acct, err := s.idp.SignUp(ctx, fullName, username, password, opening)
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Sign up successful!\nYour account number is %s\n", acct.AccountNumber)
}

func (s *Shell) logIn(ctx context.Context) {
	username, ok := s.prompt("Enter your username: ")
	if !ok {
		return
	}
	password, ok := s.prompt("Enter your password: ")
	if !ok {
		return
	}
	acct, err := s.idp.Login(ctx, username, password)
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Logged in successfully\nHello, %s\n", acct.FullName)
	s.session(ctx, acct)
}

// session is the authenticated menu loop. acct is the identity resolved by
// the gateway; only its id is presented to the engine.
func (s *Shell) session(ctx context.Context, acct *model.Account) {
	for {
		s.printf("%s\n", sessionMenu)
		choice, ok := s.prompt("Choose an option: ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			s.deposit(ctx, acct.ID)
		case "2":
			s.withdraw(ctx, acct.ID)
		case "3":
			s.checkBalance(ctx, acct.ID)
		case "4":
			s.history(ctx, acct.ID)
		case "5":
			s.transfer(ctx, acct.ID)
		case "6":
			s.details(acct)
		case "7":
			s.printf("Logged out.\n")
			return
		default:
			s.printf("Invalid option\n")
		}
	}
}

func (s *Shell) deposit(ctx context.Context, id uint64) {
	amt, ok := s.promptAmount("Enter deposit amount: ")
	if !ok {
		return
	}
	bal, err := s.eng.Deposit(ctx, id, amt, uuid.NewString())
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Deposit successful. New balance: %s\n", formatAmount(bal))
}

func (s *Shell) withdraw(ctx context.Context, id uint64) {
	amt, ok := s.promptAmount("Enter withdrawal amount: ")
	if !ok {
		return
	}
	bal, err := s.eng.Withdraw(ctx, id, amt, uuid.NewString())
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Withdrawal successful. New balance: %s\n", formatAmount(bal))
}

func (s *Shell) checkBalance(ctx context.Context, id uint64) {
	bal, err := s.eng.Balance(ctx, id)
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Your current balance is %s\n", formatAmount(bal))
}

func (s *Shell) history(ctx context.Context, id uint64) {
	txs, err := s.eng.History(ctx, id, 50)
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	if len(txs) == 0 {
		s.printf("No transactions yet.\n")
		return
	}
	s.printf("Your Transaction History:\n")
	for _, t := range txs {
		line := fmt.Sprintf("%s | %s | %s",
			t.CreatedAt.Format("2006-01-02 15:04:05"), t.Kind, formatAmount(t.Amount))
		if t.Counterparty != nil {
			if t.Credit() {
				line += " | from " + *t.Counterparty
			} else {
				line += " | to " + *t.Counterparty
			}
		}
		s.printf("%s\n", line)
	}
}

func (s *Shell) transfer(ctx context.Context, id uint64) {
	number, ok := s.prompt("Enter recipient account number: ")
	if !ok {
		return
	}
	recipient, err := s.eng.FindRecipient(ctx, number)
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("Recipient Name: %s\n", recipient.FullName)
	confirm, ok := s.prompt("Do you want to continue with the transfer? (yes/no): ")
	if !ok || !strings.EqualFold(confirm, "yes") {
		s.printf("Transfer cancelled. Returning to menu...\n")
		return
	}
	amt, ok := s.promptAmount("Enter transfer amount: ")
	if !ok {
		return
	}
	receipt, err := s.eng.Transfer(ctx, id, number, amt, uuid.NewString())
	if err != nil {
		s.printf("%s\n", render(err))
		return
	}
	s.printf("%s sent to %s, %s successfully. New balance: %s\n",
		formatAmount(receipt.Amount), receipt.RecipientNumber, receipt.RecipientName,
		formatAmount(receipt.NewBalance))
}

func (s *Shell) details(acct *model.Account) {
	s.printf("Full Name: %s\nUsername: %s\nAccount Number: %s\n",
		acct.FullName, acct.Username, acct.AccountNumber)
}

func (s *Shell) prompt(label string) (string, bool) {
	s.printf("%s", label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *Shell) promptAmount(label string) (decimal.Decimal, bool) {
	raw, ok := s.prompt(label)
	if !ok {
		return decimal.Zero, false
	}
	amt, err := money.Parse(raw)
	if err != nil {
		s.printf("Invalid amount.\n")
		return decimal.Zero, false
	}
	return amt, true
}

func (s *Shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

func formatAmount(amt decimal.Decimal) string {
	return "₦" + amt.StringFixed(2)
}

// render turns a typed failure into user-facing text. Business errors carry
// readable messages already; storage failures get a generic line and the
// detail stays in the logs.
func render(err error) string {
	if errors.Is(err, ledger.ErrStorage) {
		return "Something went wrong, please try again later."
	}
	return strings.ToUpper(err.Error()[:1]) + err.Error()[1:]
}
