package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus_marketplace/internal/listings/service"
	"campus_marketplace/platform/httpkit"
)

const msgInvalidID = "invalid listing id"

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GetByID returns the product detail and counts the view.
// GET /api/v1/listings/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.GetProduct(c.Request.Context(), tenantID, identity.UserID(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
