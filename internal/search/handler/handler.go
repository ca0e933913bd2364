package handler

import (
	"net/http"

	"campus_marketplace/internal/search/service"
	"campus_marketplace/internal/search/transport"
	"campus_marketplace/platform/httpkit"
	"campus_marketplace/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.SearchJSON)
	rg.GET("", h.SearchQuery)
	rg.GET("/autocomplete", h.Autocomplete)
	rg.GET("/history", h.History)
	rg.GET("/popular", h.Popular)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/cache/:namespace", h.InvalidateCache)
}

// POST /api/v1/search
func (h *Handler) SearchJSON(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	h.search(c, req)
}

// GET /api/v1/search
func (h *Handler) SearchQuery(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	h.search(c, req)
}

func (h *Handler) search(c *gin.Context, req transport.SearchRequest) {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}

	result, err := h.svc.Search(c.Request.Context(), tenantID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GET /api/v1/search/autocomplete?q=
func (h *Handler) Autocomplete(c *gin.Context) {
	var req transport.AutocompleteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	_, tenantID, ok := httpkit.MustGetScopedIdentity(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.Autocomplete(c.Request.Context(), tenantID, req.Query))
}

// GET /api/v1/search/history
func (h *Handler) History(c *gin.Context) {
	req, ok := h.bindHistory(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	httpkit.OK(c, h.svc.RecentSearches(c.Request.Context(), identity.UserID(), req.Limit))
}

// GET /api/v1/search/popular
func (h *Handler) Popular(c *gin.Context) {
	req, ok := h.bindHistory(c)
	if !ok {
		return
	}
	httpkit.OK(c, h.svc.PopularSearches(c.Request.Context(), req.Limit))
}

func (h *Handler) bindHistory(c *gin.Context) (transport.HistoryRequest, bool) {
	var req transport.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return req, false
	}
	return req, true
}

// DELETE /api/v1/admin/cache/:namespace
func (h *Handler) InvalidateCache(c *gin.Context) {
	namespace := c.Param("namespace")
	deleted, err := h.svc.InvalidateCache(c.Request.Context(), namespace)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.InvalidateCacheResponse{Namespace: namespace, Deleted: deleted})
}
