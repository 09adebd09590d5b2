package repo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/money"
)

var (
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrDuplicateAccountNumber is returned when account creation keeps
	// losing the uniqueness race on the generated number.
	ErrDuplicateAccountNumber = errors.New("generated account number already exists")
	// ErrExhaustedAccountNumbers is returned when no free account number was
	// found within the bounded retry budget.
	ErrExhaustedAccountNumbers = errors.New("could not generate a free account number")
	// ErrBelowMinimumDeposit is the opening-balance policy failure; it is
	// part of the invalid-amount family.
	ErrBelowMinimumDeposit = money.ErrBelowMinimum
	// ErrVersionConflict means the optimistic version check failed.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrNegativeBalance means a write would take a balance below zero. The
	// engine checks funds first; this is the store's last line of defense.
	ErrNegativeBalance = errors.New("balance may not go negative")
)

// accountNumberAttempts bounds collision retries during generation. The
// identifier space has 9e7 slots, so exhausting this budget means the space
// is effectively full and the caller should give up rather than spin.
const accountNumberAttempts = 32

// RepositoryInterface restricts Repo methods so the engine can be tested
// against wrapped or partial implementations.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	CreateAccount(ctx context.Context, fullName, username, passwordHash string, opening decimal.Decimal) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByAccountNumber(ctx context.Context, accountNumber string) (*model.Account, error)
	FindByID(ctx context.Context, id uint64) (*model.Account, error)
	GetAccountForUpdate(ctx context.Context, tx *gorm.DB, id uint64) (*model.Account, error)
	UpdateBalance(ctx context.Context, tx *gorm.DB, id uint64, newBalance decimal.Decimal, oldVersion uint64) error
	CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error
	TxExists(ctx context.Context, tx *gorm.DB, accountID uint64, idemKey, kind string) (bool, *model.Transaction, error)
	ListTransactions(ctx context.Context, accountID uint64, limit int) ([]model.Transaction, error)
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	CacheBalance(ctx context.Context, accountID uint64, bal decimal.Decimal) error
	GetCachedBalance(ctx context.Context, accountID uint64) (decimal.Decimal, error)
}

// Repository implements RepositoryInterface over gorm, redis and kafka.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger

	// numberSource draws candidate account numbers; injectable so tests can
	// force collisions.
	numberSource func() string
}

// NewRepository constructs repo. rdb and writer may be nil; caching and
// publishing become no-ops then.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger, numberSource: randomAccountNumber}
}

func randomAccountNumber() string {
	return fmt.Sprintf("%08d", 10000000+rand.Int63n(90000000))
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// CreateAccount inserts a new account with a freshly generated account
// number. The opening balance becomes the initial balance directly; no log
// record is written for it.
//
// A unique violation on insert means a concurrent signup won the race after
// the in-transaction prechecks. A lost username race is final; a lost
// number race draws again, bounded.
func (r *Repository) CreateAccount(ctx context.Context, fullName, username, passwordHash string, opening decimal.Decimal) (*model.Account, error) {
	if _, err := money.Validate(opening); err != nil {
		return nil, err
	}
	if opening.LessThan(money.MinOpeningDeposit) {
		return nil, ErrBelowMinimumDeposit
	}
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		acct, err := r.createAccountOnce(ctx, fullName, username, passwordHash, opening)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		taken, cerr := r.usernameTaken(ctx, username)
		if cerr != nil {
			return nil, cerr
		}
		if taken {
			return nil, ErrDuplicateUsername
		}
	}
	return nil, ErrDuplicateAccountNumber
}

func (r *Repository) createAccountOnce(ctx context.Context, fullName, username, passwordHash string, opening decimal.Decimal) (*model.Account, error) {
	var acct *model.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateUsername
		}
		number, err := r.generateAccountNumber(tx)
		if err != nil {
			return err
		}
		acct = &model.Account{
			FullName:      fullName,
			Username:      username,
			PasswordHash:  passwordHash,
			AccountNumber: number,
			Balance:       opening,
		}
		return tx.Create(acct).Error
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// usernameTaken decides which unique constraint an insert lost to: a taken
// username ends the signup; otherwise the collision was on the generated
// account number and the caller may draw again.
func (r *Repository) usernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Account{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// generateAccountNumber draws 8-digit identifiers until one is free, giving
// up after a bounded number of attempts.
func (r *Repository) generateAccountNumber(tx *gorm.DB) (string, error) {
	for i := 0; i < accountNumberAttempts; i++ {
		number := r.numberSource()
		var count int64
		if err := tx.Model(&model.Account{}).Where("account_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", ErrExhaustedAccountNumbers
}

// FindByUsername looks up an account by login name.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByAccountNumber resolves the externally facing identifier.
func (r *Repository) FindByAccountNumber(ctx context.Context, accountNumber string) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("account_number = ?", accountNumber).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID fetches an account by internal id.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountForUpdate locks the account row for the rest of the transaction.
func (r *Repository) GetAccountForUpdate(ctx context.Context, tx *gorm.DB, id uint64) (*model.Account, error) {
	var a model.Account
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateBalance writes the new balance with an optimistic version check.
func (r *Repository) UpdateBalance(ctx context.Context, tx *gorm.DB, id uint64, newBalance decimal.Decimal, oldVersion uint64) error {
	if newBalance.IsNegative() {
		return ErrNegativeBalance
	}
	res := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", id, oldVersion).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CreateTransaction appends one ledger record. The log never stores signed
// deltas, so a non-positive amount is rejected outright.
func (r *Repository) CreateTransaction(ctx context.Context, tx *gorm.DB, t *model.Transaction) error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return money.ErrNotPositive
	}
	return tx.WithContext(ctx).Create(t).Error
}

// TxExists checks duplicate by idem key.
func (r *Repository) TxExists(ctx context.Context, tx *gorm.DB, accountID uint64, idemKey, kind string) (bool, *model.Transaction, error) {
	if idemKey == "" {
		return false, nil, nil
	}
	var t model.Transaction
	err := tx.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ? AND kind = ?", accountID, idemKey, kind).
		First(&t).Error
	if err == nil {
		return true, &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// ListTransactions returns a finite snapshot, most recent first. The id
// tie-break keeps same-timestamp entries in a deterministic order.
func (r *Repository) ListTransactions(ctx context.Context, accountID uint64, limit int) ([]model.Transaction, error) {
	var txs []model.Transaction
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = false").Order("created_at, id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	if r.writer == nil {
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.ID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// CacheBalance writes the committed balance to Redis.
func (r *Repository) CacheBalance(ctx context.Context, accountID uint64, bal decimal.Decimal) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, fmt.Sprintf("balance:%d", accountID), bal.String(), 5*time.Minute).Err()
}

// GetCachedBalance reads Redis.
func (r *Repository) GetCachedBalance(ctx context.Context, accountID uint64) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, redis.Nil
	}
	str, err := r.rdb.Get(ctx, fmt.Sprintf("balance:%d", accountID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}
