package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/ledgerd/internal/machine"
	"go.uber.org/zap"
)

// UploadModule handles POST /module, storing the raw request body.
func (h *Handler) UploadModule(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, machine.ErrModuleTooLarge)
			return
		}
		badRequest(c, "read module: "+err.Error())
		return
	}

	var info machine.ModuleInfo
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		var err error
		info, err = m.UploadModule(data)
		return err
	}); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info("module uploaded",
		zap.Int("size", info.Size),
		zap.String("checksum", info.Checksum),
	)
	c.JSON(http.StatusCreated, info)
}

// ModuleInfo handles GET /module.
func (h *Handler) ModuleInfo(c *gin.Context) {
	var info machine.ModuleInfo
	var found bool
	if err := h.call(c, func(m *machine.Machine, _ machine.Call) error {
		info, found = m.ModuleInfo()
		return nil
	}); err != nil {
		h.respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no module uploaded"})
		return
	}
	c.JSON(http.StatusOK, info)
}
