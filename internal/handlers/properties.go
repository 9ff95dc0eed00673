package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PropertyRequest is the body of PUT /api/v1/properties/{name}. Values are
// strings and parsed by the field's kind.
type PropertyRequest struct {
	Value string `json:"value" binding:"required" example:"650"`
}

// @Summary      Get device settings
// @Tags         properties
// @Produce      json
// @Success      200  {object}  config.Settings
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/config [get]
// @Security     BearerAuth
func (h *Handler) getConfig(c *gin.Context) {
	s, err := h.services.Properties.Settings(c.Request.Context())
	if err != nil {
		h.commandError(c, "config_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// @Summary      List properties
// @Description  Current values by wire name plus the field descriptions
// @Tags         properties
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "values, fields"
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/properties [get]
// @Security     BearerAuth
func (h *Handler) getProperties(c *gin.Context) {
	values, err := h.services.Properties.Properties(c.Request.Context())
	if err != nil {
		h.commandError(c, "properties_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"values": values,
		"fields": h.services.Properties.Fields(),
	})
}

// @Summary      Set a property
// @Description  position_target starts a move; calibration fields need StandBy
// @Tags         properties
// @Accept       json
// @Produce      json
// @Param        name  path   string           true  "Property name"  example(close_speed)
// @Param        body  body   PropertyRequest  true  "New value"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/properties/{name} [put]
// @Security     BearerAuth
func (h *Handler) setProperty(c *gin.Context) {
	name := c.Param("name")
	var req PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	if err := h.services.Properties.SetProperty(c.Request.Context(), name, req.Value); err != nil {
		h.commandError(c, "property_set_rejected", err, "name", name, "value", req.Value)
		return
	}
	h.respondWithStatusAndState(c, statusUpdated, gin.H{"name": name, "value": req.Value})
}
