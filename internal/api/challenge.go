package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"github.com/jmerrifield20/ledgerd/internal/registry"
	"go.uber.org/zap"
)

// Challenge handles GET /challenge.
func (h *Handler) Challenge(c *gin.Context) {
	var ch registry.Challenge
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		ch = m.Challenge()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// RotateChallenge handles POST /challenge/rotate. Maintainers only once a
// maintainer set exists.
func (h *Handler) RotateChallenge(c *gin.Context) {
	var ch registry.Challenge
	if err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		ch, err = m.RotateChallenge(call)
		return err
	}); err != nil {
		h.respondError(c, err)
		return
	}

	RecordEpochRotation("api")
	h.logger.Info("challenge rotated", zap.Uint64("time", ch.Time))
	c.JSON(http.StatusOK, ch)
}

// SubmitSolution handles POST /solutions.
func (h *Handler) SubmitSolution(c *gin.Context) {
	var req registry.Solution
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var res registry.SolutionAccepted
	err := h.call(c, func(m *machine.Machine, call machine.Call) error {
		var err error
		res, err = m.SubmitSolution(call, req)
		return err
	})
	RecordSolution(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BestSolution handles GET /solutions/best.
func (h *Handler) BestSolution(c *gin.Context) {
	var res registry.SolutionAccepted
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		res = m.BestSolution()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
