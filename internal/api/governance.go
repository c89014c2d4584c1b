package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/identity"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"go.uber.org/zap"
)

type voteRequest struct {
	InFavor *bool `json:"in_favor" binding:"required"`
}

type proposalResponse struct {
	registry.Proposal
	Voted *bool `json:"voted,omitempty"`
}

type maintainersRequest struct {
	Accounts []string `json:"accounts"`
}

func proposalID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "id must be an unsigned integer")
		return 0, false
	}
	return id, true
}

// Vote handles POST /proposals/:id/votes.
func (h *Handler) Vote(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var p registry.Proposal
	if err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		p, err = m.VoteForProposal(call, id, *req.InFavor)
		return err
	}); err != nil {
		h.respondError(c, err)
		return
	}

	RecordVote(*req.InFavor)
	c.JSON(http.StatusOK, p)
}

// GetProposal handles GET /proposals/:id. Identified callers also learn
// whether they already voted.
func (h *Handler) GetProposal(c *gin.Context) {
	id, ok := proposalID(c)
	if !ok {
		return
	}

	var resp proposalResponse
	var found bool
	if err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		resp.Proposal, found = m.Proposal(id)
		if !call.Anonymous() {
			voted := m.HasVoted(call.Caller, id)
			resp.Voted = &voted
		}
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListProposals handles GET /proposals.
func (h *Handler) ListProposals(c *gin.Context) {
	var list []registry.Proposal
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		list = m.Proposals()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": list})
}

// Maintainers handles GET /maintainers.
func (h *Handler) Maintainers(c *gin.Context) {
	var list []ledger.AccountID
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		list = m.Maintainers()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintainers": list})
}

// UpdateMaintainers handles PUT /maintainers, replacing the maintainer set.
func (h *Handler) UpdateMaintainers(c *gin.Context) {
	var req maintainersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	accounts := make([]ledger.AccountID, 0, len(req.Accounts))
	for _, a := range req.Accounts {
		id, err := ledger.ParseAccountID(a)
		if err != nil {
			badRequest(c, "accounts: "+err.Error())
			return
		}
		accounts = append(accounts, id)
	}

	var n int
	if err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		n, err = m.UpdateMaintainers(call, accounts)
		return err
	}); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("maintainers updated",
		zap.String("by", identity.CallerFromCtx(c).String()),
		zap.Int("count", n),
	)
	c.JSON(http.StatusOK, gin.H{"count": n})
}
