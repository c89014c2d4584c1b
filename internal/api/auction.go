package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
)

// AvailableTokenSupply handles GET /auction/supply.
func (h *Handler) AvailableTokenSupply(c *gin.Context) {
	var supply registry.TokenSupply
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		supply = m.AvailableTokenSupply()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, supply)
}

// SubmitOffer handles POST /offers.
func (h *Handler) SubmitOffer(c *gin.Context) {
	var req registry.Offer
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var best registry.BestOffer
	err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		best, err = m.SubmitOffer(call, req)
		return err
	})
	RecordOffer(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, best)
}

// BestOffer handles GET /offers/best.
func (h *Handler) BestOffer(c *gin.Context) {
	var best registry.BestOffer
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		best = m.BestOffer()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, best)
}
