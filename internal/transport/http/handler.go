package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Molayo2025/capstone-project/internal/auth"
	"github.com/Molayo2025/capstone-project/internal/ledger"
	"github.com/Molayo2025/capstone-project/internal/money"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

func RegisterHandlers(r *gin.Engine, eng *ledger.Engine, idp *auth.Service) {
	v1 := r.Group("/v1")
	{
		v1.POST("/signup", signupHandler(idp))
		v1.POST("/login", loginHandler(idp))
		v1.POST("/accounts/:id/deposit", depositHandler(eng))
		v1.POST("/accounts/:id/withdraw", withdrawHandler(eng))
		v1.POST("/accounts/:id/transfer", transferHandler(eng))
		v1.GET("/accounts/:id/balance", balanceHandler(eng))
		v1.GET("/accounts/:id/history", historyHandler(eng))
	}
}

// statusFor maps the error taxonomy onto HTTP codes. Business errors are
// expected outcomes, not server failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, repo.ErrDuplicateUsername), errors.Is(err, repo.ErrDuplicateAccountNumber):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// accountID parses the :id path segment; a malformed id is the caller's
// mistake, not a missing account.
func accountID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return 0, false
	}
	return id, true
}

type signupReq struct {
	FullName       string `json:"full_name" binding:"required"`
	Username       string `json:"username" binding:"required"`
	Password       string `json:"password" binding:"required"`
	OpeningDeposit string `json:"opening_deposit" binding:"required"`
}

func signupHandler(idp *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		opening, err := money.Parse(req.OpeningDeposit)
		if err != nil {
			fail(c, err)
			return
		}
		acct, err := idp.SignUp(c, req.FullName, req.Username, req.Password, opening)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":             acct.ID,
			"account_number": acct.AccountNumber,
			"balance":        acct.Balance,
		})
	}
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(idp *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		acct, err := idp.Login(c, req.Username, req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":             acct.ID,
			"full_name":      acct.FullName,
			"account_number": acct.AccountNumber,
		})
	}
}

type amountReq struct {
	Amount         string `json:"amount" binding:"required"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (r *amountReq) key() string {
	if r.IdempotencyKey == "" {
		return uuid.NewString()
	}
	return r.IdempotencyKey
}

func depositHandler(eng *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req amountReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, ok := accountID(c)
		if !ok {
			return
		}
		amt, err := money.Parse(req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		bal, err := eng.Deposit(c, id, amt, req.key())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal})
	}
}

func withdrawHandler(eng *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req amountReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, ok := accountID(c)
		if !ok {
			return
		}
		amt, err := money.Parse(req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		bal, err := eng.Withdraw(c, id, amt, req.key())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal})
	}
}

type transferReq struct {
	RecipientAccountNumber string `json:"recipient_account_number" binding:"required"`
	Amount                 string `json:"amount" binding:"required"`
	IdempotencyKey         string `json:"idempotency_key"`
}

func (r *transferReq) key() string {
	if r.IdempotencyKey == "" {
		return uuid.NewString()
	}
	return r.IdempotencyKey
}

func transferHandler(eng *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transferReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, ok := accountID(c)
		if !ok {
			return
		}
		amt, err := money.Parse(req.Amount)
		if err != nil {
			fail(c, err)
			return
		}
		receipt, err := eng.Transfer(c, id, req.RecipientAccountNumber, amt, req.key())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"amount":         receipt.Amount,
			"recipient":      receipt.RecipientName,
			"recipient_acct": receipt.RecipientNumber,
			"balance":        receipt.NewBalance,
		})
	}
}

func balanceHandler(eng *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		bal, err := eng.Balance(c, id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": bal})
	}
}

func historyHandler(eng *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		txs, err := eng.History(c, id, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}
