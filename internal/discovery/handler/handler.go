package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus_marketplace/internal/discovery/service"
	"campus_marketplace/platform/httpkit"
)

const msgInvalidProductID = "invalid product id"

// Handler serves discovery lists. Every endpoint answers 200 with a list,
// empty when the engine degraded.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/trending", h.Trending)
	rg.GET("/recommended", h.Recommended)
	rg.GET("/recently-viewed", h.RecentlyViewed)
	rg.GET("/similar/:productId", h.Similar)
	rg.GET("/viewed-together/:productId", h.ViewedTogether)
}

// GET /api/v1/discovery/trending
func (h *Handler) Trending(c *gin.Context) {
	_, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.Trending(c.Request.Context(), tenantID, limitParam(c, service.DefaultLimit)))
}

// GET /api/v1/discovery/recommended
func (h *Handler) Recommended(c *gin.Context) {
	identity, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.Recommended(c.Request.Context(), identity.UserID(), tenantID, limitParam(c, service.DefaultLimit)))
}

// GET /api/v1/discovery/recently-viewed
func (h *Handler) RecentlyViewed(c *gin.Context) {
	identity, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.RecentlyViewed(c.Request.Context(), identity.UserID(), tenantID, limitParam(c, service.DefaultLimit)))
}

// GET /api/v1/discovery/similar/:productId
func (h *Handler) Similar(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}
	_, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.Similar(c.Request.Context(), tenantID, productID, limitParam(c, service.DefaultSimilarLimit)))
}

// GET /api/v1/discovery/viewed-together/:productId
func (h *Handler) ViewedTogether(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidProductID, nil)
		return
	}
	_, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.ViewedTogether(c.Request.Context(), tenantID, productID, limitParam(c, service.DefaultSimilarLimit)))
}

// limitParam reads ?limit leniently; unparsable values use def and the
// service clamps the rest.
func limitParam(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return service.ClampLimit(limit, def)
}
