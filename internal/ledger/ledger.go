// Package ledger implements the engine behind every balance mutation. Each
// public operation is one atomic unit: the balance write and its log append
// commit together or not at all, and units touching the same account never
// interleave.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/money"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

// Engine orchestrates the account store and transaction log. Only the
// engine writes balances or appends log records.
type Engine struct {
	repo     repo.RepositoryInterface
	locks    *lockTable
	lockWait time.Duration
	log      *zap.SugaredLogger
}

// NewEngine returns an Engine. lockWait bounds how long an operation may
// wait on account locks before failing busy.
func NewEngine(r repo.RepositoryInterface, lockWait time.Duration, logger *zap.SugaredLogger) *Engine {
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}
	return &Engine{repo: r, locks: newLockTable(), lockWait: lockWait, log: logger}
}

// TransferReceipt confirms a committed transfer back to the caller.
type TransferReceipt struct {
	Amount          decimal.Decimal
	RecipientName   string
	RecipientNumber string
	NewBalance      decimal.Decimal
}

// Deposit credits the account and appends one deposit record. A non-empty
// idemKey makes a repeated call return the previously committed balance.
func (e *Engine) Deposit(ctx context.Context, accountID uint64, amt decimal.Decimal, idemKey string) (decimal.Decimal, error) {
	if _, err := money.Validate(amt); err != nil {
		return decimal.Zero, wrap(err)
	}
	if err := e.locks.acquire(ctx, accountID, e.lockWait); err != nil {
		return decimal.Zero, wrap(err)
	}
	defer e.locks.release(accountID)

	var finalBal decimal.Decimal
	var replayed bool
	err := e.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, prior, err := e.repo.TxExists(ctx, tx, accountID, idemKey, model.KindDeposit)
		if err != nil {
			return err
		}
		if existed {
			finalBal = prior.BalanceAfter
			replayed = true
			return nil
		}
		acct, err := e.repo.GetAccountForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		newBal := acct.Balance.Add(amt)
		if err := e.repo.UpdateBalance(ctx, tx, accountID, newBal, acct.Version); err != nil {
			return err
		}
		rec := &model.Transaction{
			AccountID: accountID, Kind: model.KindDeposit, Amount: amt,
			BalanceBefore: acct.Balance, BalanceAfter: newBal,
			Details: "Deposited funds", IdempotencyKey: optKey(idemKey),
		}
		if err := e.repo.CreateTransaction(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.outbox(ctx, tx, accountID, "Deposit", map[string]interface{}{
			"account_id": accountID, "amount": amt, "balance": newBal,
		}); err != nil {
			return err
		}
		finalBal = newBal
		return nil
	})
	if err != nil {
		return decimal.Zero, wrap(err)
	}
	if !replayed {
		e.cache(ctx, accountID, finalBal)
	}
	return finalBal, nil
}

// Withdraw debits the account after checking funds inside the same atomic
// unit, and appends one withdrawal record.
func (e *Engine) Withdraw(ctx context.Context, accountID uint64, amt decimal.Decimal, idemKey string) (decimal.Decimal, error) {
	if _, err := money.Validate(amt); err != nil {
		return decimal.Zero, wrap(err)
	}
	if err := e.locks.acquire(ctx, accountID, e.lockWait); err != nil {
		return decimal.Zero, wrap(err)
	}
	defer e.locks.release(accountID)

	var finalBal decimal.Decimal
	var replayed bool
	err := e.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, prior, err := e.repo.TxExists(ctx, tx, accountID, idemKey, model.KindWithdrawal)
		if err != nil {
			return err
		}
		if existed {
			finalBal = prior.BalanceAfter
			replayed = true
			return nil
		}
		acct, err := e.repo.GetAccountForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if acct.Balance.LessThan(amt) {
			return ErrInsufficientFunds
		}
		newBal := acct.Balance.Sub(amt)
		if err := e.repo.UpdateBalance(ctx, tx, accountID, newBal, acct.Version); err != nil {
			return err
		}
		rec := &model.Transaction{
			AccountID: accountID, Kind: model.KindWithdrawal, Amount: amt,
			BalanceBefore: acct.Balance, BalanceAfter: newBal,
			Details: "Withdrawal", IdempotencyKey: optKey(idemKey),
		}
		if err := e.repo.CreateTransaction(ctx, tx, rec); err != nil {
			return err
		}
		if err := e.outbox(ctx, tx, accountID, "Withdraw", map[string]interface{}{
			"account_id": accountID, "amount": amt, "balance": newBal,
		}); err != nil {
			return err
		}
		finalBal = newBal
		return nil
	})
	if err != nil {
		return decimal.Zero, wrap(err)
	}
	if !replayed {
		e.cache(ctx, accountID, finalBal)
	}
	return finalBal, nil
}

// Transfer moves amt from the sender to the account resolved from
// recipientNumber, as one atomic unit producing exactly two log records:
// a transfer_out on the sender and a transfer_in on the recipient.
func (e *Engine) Transfer(ctx context.Context, senderID uint64, recipientNumber string, amt decimal.Decimal, idemKey string) (*TransferReceipt, error) {
	recipient, err := e.repo.FindByAccountNumber(ctx, recipientNumber)
	if err != nil {
		return nil, wrap(err)
	}
	if recipient.ID == senderID {
		return nil, ErrSelfTransfer
	}
	if _, err := money.Validate(amt); err != nil {
		return nil, wrap(err)
	}

	release, err := e.locks.acquireAll(ctx, e.lockWait, senderID, recipient.ID)
	if err != nil {
		return nil, wrap(err)
	}
	defer release()

	receipt := &TransferReceipt{
		Amount:          amt,
		RecipientName:   recipient.FullName,
		RecipientNumber: recipient.AccountNumber,
	}
	var senderBal, recipientBal decimal.Decimal
	var replayed bool
	err = e.repo.DB(ctx).Transaction(func(tx *gorm.DB) error {
		existed, priorOut, err := e.repo.TxExists(ctx, tx, senderID, idemKey, model.KindTransferOut)
		if err != nil {
			return err
		}
		if existed {
			senderBal = priorOut.BalanceAfter
			replayed = true
			return nil
		}

		// Row locks in ascending id order, same as the in-process locks.
		firstID, secondID := senderID, recipient.ID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		first, err := e.repo.GetAccountForUpdate(ctx, tx, firstID)
		if err != nil {
			return err
		}
		second, err := e.repo.GetAccountForUpdate(ctx, tx, secondID)
		if err != nil {
			return err
		}
		sender, rcpt := first, second
		if sender.ID != senderID {
			sender, rcpt = second, first
		}

		if sender.Balance.LessThan(amt) {
			return ErrInsufficientFunds
		}
		newSender := sender.Balance.Sub(amt)
		newRecipient := rcpt.Balance.Add(amt)
		if err := e.repo.UpdateBalance(ctx, tx, sender.ID, newSender, sender.Version); err != nil {
			return err
		}
		if err := e.repo.UpdateBalance(ctx, tx, rcpt.ID, newRecipient, rcpt.Version); err != nil {
			return err
		}

		out := &model.Transaction{
			AccountID: sender.ID, Kind: model.KindTransferOut, Amount: amt,
			BalanceBefore: sender.Balance, BalanceAfter: newSender,
			Counterparty: &rcpt.FullName, RelatedAccountID: &rcpt.ID,
			Details:        fmt.Sprintf("Transfer to %s", rcpt.AccountNumber),
			IdempotencyKey: optKey(idemKey),
		}
		in := &model.Transaction{
			AccountID: rcpt.ID, Kind: model.KindTransferIn, Amount: amt,
			BalanceBefore: rcpt.Balance, BalanceAfter: newRecipient,
			Counterparty: &sender.FullName, RelatedAccountID: &sender.ID,
			Details:        fmt.Sprintf("Received from %s", sender.FullName),
			IdempotencyKey: optKey(idemKey),
		}
		if err := e.repo.CreateTransaction(ctx, tx, out); err != nil {
			return err
		}
		if err := e.repo.CreateTransaction(ctx, tx, in); err != nil {
			return err
		}
		if err := e.outbox(ctx, tx, sender.ID, "Transfer", map[string]interface{}{
			"from": sender.ID, "to": rcpt.ID, "amount": amt,
		}); err != nil {
			return err
		}
		senderBal, recipientBal = newSender, newRecipient
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	if !replayed {
		e.cache(ctx, senderID, senderBal)
		e.cache(ctx, recipient.ID, recipientBal)
	}
	receipt.NewBalance = senderBal
	return receipt, nil
}

// FindRecipient resolves an account number ahead of a transfer so the
// caller can confirm the recipient's name before committing.
func (e *Engine) FindRecipient(ctx context.Context, accountNumber string) (*model.Account, error) {
	acct, err := e.repo.FindByAccountNumber(ctx, accountNumber)
	if err != nil {
		return nil, wrap(err)
	}
	return acct, nil
}

// Balance reads through the cache to the stored projection.
func (e *Engine) Balance(ctx context.Context, accountID uint64) (decimal.Decimal, error) {
	if bal, err := e.repo.GetCachedBalance(ctx, accountID); err == nil {
		return bal, nil
	}
	acct, err := e.repo.FindByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, wrap(err)
	}
	e.cache(ctx, accountID, acct.Balance)
	return acct.Balance, nil
}

// History returns the account's records, most recent first.
func (e *Engine) History(ctx context.Context, accountID uint64, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	txs, err := e.repo.ListTransactions(ctx, accountID, limit)
	if err != nil {
		return nil, wrap(err)
	}
	return txs, nil
}

func (e *Engine) outbox(ctx context.Context, tx *gorm.DB, aggregateID uint64, eventType string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return e.repo.CreateOutboxEvent(ctx, tx, &model.OutboxEvent{
		Aggregate: "Account", AggregateID: aggregateID,
		EventType: eventType, Payload: string(body),
	})
}

// cache failures only degrade reads, so they are logged and dropped.
func (e *Engine) cache(ctx context.Context, accountID uint64, bal decimal.Decimal) {
	if err := e.repo.CacheBalance(ctx, accountID, bal); err != nil {
		e.log.Warnf("cache balance for %d: %v", accountID, err)
	}
}

func optKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}
