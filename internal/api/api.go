// Package api exposes the ledger state machine over HTTP.
//
// Every handler resolves its inputs, runs exactly one call through the
// machine.Dispatcher and renders the result as JSON. Domain errors are mapped
// to status codes in one place (respondError) so all routes agree.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/identity"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"go.uber.org/zap"
)

// DefaultMaxPageSize bounds the length of transaction pages when no limit
// is configured.
const DefaultMaxPageSize = 1000

// Options tunes a Handler.
type Options struct {
	MaxPageSize    int
	MaxModuleBytes int
}

// Handler serves every ledger call.
type Handler struct {
	d              *machine.Dispatcher
	maxPageSize    int
	maxModuleBytes int
	logger         *zap.Logger
}

// NewHandler creates a Handler that dispatches calls through d.
func NewHandler(d *machine.Dispatcher, opts Options, logger *zap.Logger) *Handler {
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	if opts.MaxModuleBytes <= 0 {
		opts.MaxModuleBytes = machine.DefaultConfig().MaxModuleBytes
	}
	return &Handler{
		d:              d,
		maxPageSize:    opts.MaxPageSize,
		maxModuleBytes: opts.MaxModuleBytes,
		logger:         logger,
	}
}

// Register mounts the ledger routes on the given router group. The group
// must already run identity.ResolveCaller.
func (h *Handler) Register(rg *gin.RouterGroup) {
	caller := identity.RequireCaller()
	jsonBody := LimitBody(1 << 20)

	rg.GET("/token", h.Token)
	rg.GET("/token/total-supply", h.TotalSupply)
	rg.GET("/token/circulating", h.Circulating)

	rg.GET("/accounts/:account/balance", h.BalanceOf)
	rg.GET("/accounts/:account/transactions", h.AccountTransactions)
	rg.POST("/transfers", caller, jsonBody, h.Transfer)
	rg.POST("/mint", caller, jsonBody, h.Mint)

	rg.GET("/transactions", h.Transactions)
	rg.GET("/transactions/verify", h.VerifyTransactions)
	rg.GET("/transactions/:index", h.GetTransaction)

	rg.GET("/challenge", h.Challenge)
	rg.POST("/challenge/rotate", caller, h.RotateChallenge)
	rg.POST("/solutions", caller, jsonBody, h.SubmitSolution)
	rg.GET("/solutions/best", h.BestSolution)

	rg.GET("/auction/supply", h.AvailableTokenSupply)
	rg.POST("/offers", caller, jsonBody, h.SubmitOffer)
	rg.GET("/offers/best", h.BestOffer)

	rg.GET("/proposals", h.ListProposals)
	rg.GET("/proposals/:id", h.GetProposal)
	rg.POST("/proposals/:id/votes", caller, jsonBody, h.Vote)

	rg.GET("/maintainers", h.Maintainers)
	rg.PUT("/maintainers", caller, jsonBody, h.UpdateMaintainers)

	rg.GET("/module", h.ModuleInfo)
	rg.POST("/module", caller, LimitBody(int64(h.maxModuleBytes)+1), h.UploadModule)
}

// call runs fn on the dispatcher on behalf of the request's caller.
func (h *Handler) call(c *gin.Context, fn func(*machine.Machine, machine.Call) error) error {
	RecordQueueDepth(h.d.QueueLen())
	return h.d.Do(c.Request.Context(), identity.CallerFromCtx(c), fn)
}

// respondError writes the status and body for err.
func (h *Handler) respondError(c *gin.Context, err error) {
	var solRej *registry.SolutionRejected
	var offerRej *registry.OfferRejected

	switch {
	case errors.As(err, &solRej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"rejection": string(solRej.Kind),
			"reason":    solRej.Reason,
		})
	case errors.As(err, &offerRej):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": offerRej.Reason})
	case errors.Is(err, machine.ErrAnonymousCaller):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, machine.ErrNotMaintainer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrAlreadyVoted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrSupplyCapExceeded),
		errors.Is(err, ledger.ErrOverflow),
		errors.Is(err, ledger.ErrUnderflow):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrZeroAmount),
		errors.Is(err, ledger.ErrMemoTooLong),
		errors.Is(err, machine.ErrNoMaintainers),
		errors.Is(err, machine.ErrEmptyModule),
		errors.Is(err, machine.ErrModuleTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, machine.ErrDispatcherClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("ledger call failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// accountParam parses the :account path parameter.
func accountParam(c *gin.Context) (ledger.AccountID, bool) {
	account, err := ledger.ParseAccountID(c.Param("account"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return account, true
}

// page parses ?start=&length=, clamping length to the configured maximum.
func (h *Handler) page(c *gin.Context) (start, length int, ok bool) {
	start, ok = nonNegativeQuery(c, "start", 0)
	if !ok {
		return 0, 0, false
	}
	length, ok = nonNegativeQuery(c, "length", h.maxPageSize)
	if !ok {
		return 0, 0, false
	}
	if length > h.maxPageSize {
		length = h.maxPageSize
	}
	return start, length, true
}

func nonNegativeQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
