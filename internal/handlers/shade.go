package handlers

import (
	"errors"
	"net/http"

	"controlling_shade/internal/config"
	"controlling_shade/internal/motion"
	"controlling_shade/internal/registry"
	"controlling_shade/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusHoming    = "homing"
	statusOpening   = "opening"
	statusClosing   = "closing"
	statusStopped   = "stopped"
	statusMoving    = "moving"
	statusOffset    = "offset_applied"
	statusRestart   = "restart_scheduled"
	statusUpdated   = "updated"
	errGetState     = "failed to load state"
	errInvalidBody  = "invalid body: "
	errLoopStopped  = "controller is not running"
	errInternalPref = "internal error"
)

// logAndJSONError logs err under logKey and writes userMsg with httpCode.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// commandError maps a rejected command to a status code. Rejections caused
// by the controller state are conflicts, bad input is a 400.
func (h *Handler) commandError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if id, ok := operatorID(c); ok {
		kv = append(kv, "operator", id)
	}
	switch {
	case errors.Is(err, motion.ErrNotHomed),
		errors.Is(err, motion.ErrAlreadyInPosition),
		errors.Is(err, motion.ErrHomingForbidden),
		errors.Is(err, motion.ErrHomingInProgress),
		errors.Is(err, motion.ErrNotStandBy):
		if h.log != nil {
			h.log.Infow(logKey, append([]interface{}{"err", err}, kv...)...)
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrUnknownField):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrInvalidValue),
		errors.Is(err, registry.ErrOutOfRange),
		errors.Is(err, config.ErrInvalidStepper),
		errors.Is(err, config.ErrInvalidCalibration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRestartUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRunnerStopped):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errLoopStopped, logKey, err, kv...)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errInternalPref, logKey, err, kv...)
	}
}

// respondWithStatusAndState includes the current state when it can be read.
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	if st, err := h.services.Monitoring.GetState(c.Request.Context()); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// MoveRequest is the body of POST /api/v1/shade/position.
type MoveRequest struct {
	// Position in percent, 0 open and 100 closed (swapped when invert_position is set)
	Position *float64 `json:"position" binding:"required" example:"40"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Start homing
// @Description  Rejected with 409 unless the controller is in StandBy
// @Tags         shade
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/shade/homing [post]
// @Security     BearerAuth
func (h *Handler) homing(c *gin.Context) {
	if err := h.services.Shade.Homing(c.Request.Context()); err != nil {
		h.commandError(c, "shade_homing_rejected", err)
		return
	}
	h.respondWithStatusAndState(c, statusHoming, nil)
}

// @Summary      Open the shade
// @Tags         shade
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/shade/open [post]
// @Security     BearerAuth
func (h *Handler) open(c *gin.Context) {
	if err := h.services.Shade.Open(c.Request.Context()); err != nil {
		h.commandError(c, "shade_open_rejected", err)
		return
	}
	h.respondWithStatusAndState(c, statusOpening, nil)
}

// @Summary      Close the shade
// @Tags         shade
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/shade/close [post]
// @Security     BearerAuth
func (h *Handler) close(c *gin.Context) {
	if err := h.services.Shade.Close(c.Request.Context()); err != nil {
		h.commandError(c, "shade_close_rejected", err)
		return
	}
	h.respondWithStatusAndState(c, statusClosing, nil)
}

// @Summary      Emergency stop
// @Description  Stops any motion and aborts homing
// @Tags         shade
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/shade/stop [post]
// @Security     BearerAuth
func (h *Handler) stop(c *gin.Context) {
	if err := h.services.Shade.Stop(c.Request.Context()); err != nil {
		h.commandError(c, "shade_stop_failed", err)
		return
	}
	h.respondWithStatusAndState(c, statusStopped, nil)
}

// @Summary      Move to a position
// @Tags         shade
// @Accept       json
// @Produce      json
// @Param        body  body   MoveRequest  true  "Target position"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/shade/position [post]
// @Security     BearerAuth
func (h *Handler) moveTo(c *gin.Context) {
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	if err := h.services.Shade.MoveTo(c.Request.Context(), *req.Position); err != nil {
		h.commandError(c, "shade_move_rejected", err, "position", *req.Position)
		return
	}
	h.respondWithStatusAndState(c, statusMoving, gin.H{"position": *req.Position})
}

// @Summary      Apply the calibration offset
// @Description  Shifts the home reference by the configured offset
// @Tags         shade
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/shade/apply-offset [post]
// @Security     BearerAuth
func (h *Handler) applyOffset(c *gin.Context) {
	if err := h.services.Shade.ApplyOffset(c.Request.Context()); err != nil {
		h.commandError(c, "shade_apply_offset_rejected", err)
		return
	}
	h.respondWithStatusAndState(c, statusOffset, nil)
}

// @Summary      Restart the controller
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      501  {object}  map[string]string
// @Router       /api/v1/shade/restart [post]
// @Security     BearerAuth
func (h *Handler) restart(c *gin.Context) {
	if err := h.services.Shade.Restart(c.Request.Context()); err != nil {
		h.commandError(c, "shade_restart_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRestart})
}

// @Summary      Get shade state
// @Tags         shade
// @Produce      json
// @Success      200  {object}  models.ShadeState
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/shade/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrRunnerStopped) {
			h.logAndJSONError(c, http.StatusServiceUnavailable, errLoopStopped, "shade_get_state_failed", err)
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "shade_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
