package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"go.uber.org/zap"
)

type transferRequest struct {
	To     string        `json:"to" binding:"required"`
	Amount ledger.Amount `json:"amount"`
	Memo   []byte        `json:"memo,omitempty"`
}

type mintRequest struct {
	To     string        `json:"to" binding:"required"`
	Amount ledger.Amount `json:"amount"`
}

type balanceResponse struct {
	Account ledger.AccountID `json:"account"`
	Balance ledger.Amount    `json:"balance"`
}

type transactionsResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
}

// Token handles GET /token and returns the static token metadata.
func (h *Handler) Token(c *gin.Context) {
	var tok machine.TokenInfo
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		tok = m.Token()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tok)
}

// TotalSupply handles GET /token/total-supply.
func (h *Handler) TotalSupply(c *gin.Context) {
	var supply ledger.Amount
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		supply = m.TotalSupply()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_supply": supply})
}

// Circulating handles GET /token/circulating, the sum of all balances.
func (h *Handler) Circulating(c *gin.Context) {
	var circ ledger.Amount
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		circ = m.Circulating()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circulating": circ})
}

// BalanceOf handles GET /accounts/:account/balance.
func (h *Handler) BalanceOf(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	var bal ledger.Amount
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		bal = m.BalanceOf(account)
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Account: account, Balance: bal})
}

// Transfer handles POST /transfers, moving tokens from the caller.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := ledger.ParseAccountID(req.To)
	if err != nil {
		badRequest(c, "to: "+err.Error())
		return
	}

	var tx ledger.Transaction
	err = h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		tx, err = m.Transfer(call, to, req.Amount, req.Memo)
		return err
	})
	RecordTransfer(err)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("transfer recorded",
		zap.Int("index", tx.Index),
		zap.String("from", tx.From.String()),
		zap.String("to", tx.To.String()),
		zap.String("amount", tx.Amount.String()),
	)
	c.JSON(http.StatusCreated, tx)
}

// Mint handles POST /mint, crediting new tokens to an account.
func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	to, err := ledger.ParseAccountID(req.To)
	if err != nil {
		badRequest(c, "to: "+err.Error())
		return
	}

	var bal ledger.Amount
	if err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		if err := m.Mint(call, to, req.Amount); err != nil {
			return err
		}
		bal = m.BalanceOf(to)
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}

	RecordMint()
	h.logger.Info("tokens minted",
		zap.String("to", to.String()),
		zap.String("amount", req.Amount.String()),
	)
	c.JSON(http.StatusOK, balanceResponse{Account: to, Balance: bal})
}

// Transactions handles GET /transactions?start=&length=.
func (h *Handler) Transactions(c *gin.Context) {
	start, length, ok := h.page(c)
	if !ok {
		return
	}
	var resp transactionsResponse
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		resp.Transactions = m.Transactions(start, length)
		resp.Total = m.LogStatus().Length
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AccountTransactions handles GET /accounts/:account/transactions.
func (h *Handler) AccountTransactions(c *gin.Context) {
	account, ok := accountParam(c)
	if !ok {
		return
	}
	start, length, ok := h.page(c)
	if !ok {
		return
	}
	var resp transactionsResponse
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		resp.Transactions = m.AccountTransactions(account, start, length)
		resp.Total = m.AccountTransactionCount(account)
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetTransaction handles GET /transactions/:index.
func (h *Handler) GetTransaction(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		badRequest(c, "index must be a non-negative integer")
		return
	}

	var tx ledger.Transaction
	var found bool
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		tx, found = m.Transaction(idx)
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// VerifyTransactions handles GET /transactions/verify by walking the full hash
// chain and reports integrity.
func (h *Handler) VerifyTransactions(c *gin.Context) {
	var st machine.LogStatus
	var verifyErr error
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		st, verifyErr = m.VerifyLog()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}

	if verifyErr != nil {
		h.logger.Warn("transaction log integrity check failed", zap.Error(verifyErr))
		c.JSON(http.StatusOK, gin.H{
			"valid":  false,
			"length": st.Length,
			"root":   st.Root,
			"error":  verifyErr.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":  true,
		"length": st.Length,
		"root":   st.Root,
	})
}
