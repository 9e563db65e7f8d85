package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reqmatch-backend/internal/http/response"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

type RequirementHandler struct {
	log      *logger.Logger
	catalog  services.CatalogService
	matching services.MatchingService
}

func NewRequirementHandler(log *logger.Logger, catalog services.CatalogService, matching services.MatchingService) *RequirementHandler {
	return &RequirementHandler{log: log.With("handler", "RequirementHandler"), catalog: catalog, matching: matching}
}

// POST /api/requirements
func (h *RequirementHandler) Create(c *gin.Context) {
	var in services.RequirementInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	req, err := h.catalog.CreateRequirement(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"requirement": req})
}

// GET /api/requirements
func (h *RequirementHandler) List(c *gin.Context) {
	reqs, err := h.catalog.ListRequirements(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"requirements": reqs})
}

type syncRequest struct {
	Concurrency int `json:"concurrency"`
}

// POST /api/requirements/:id/sync
func (h *RequirementHandler) Sync(c *gin.Context) {
	id, ok := pathID(c, "invalid_requirement_id")
	if !ok {
		return
	}
	var body syncRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	res, err := h.matching.SyncRequirement(c.Request.Context(), id, services.RunOptions{Concurrency: body.Concurrency})
	if err != nil {
		h.log.Warn("Requirement sync failed", "requirement_id", id, "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, newRunResponse(res))
}

// GET /api/requirements/:id/classifications
func (h *RequirementHandler) ListClassifications(c *gin.Context) {
	id, ok := pathID(c, "invalid_requirement_id")
	if !ok {
		return
	}
	rows, err := h.matching.ListClassifications(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"classifications": rows})
}

// GET /api/requirements/:id/matches
func (h *RequirementHandler) ListMatches(c *gin.Context) {
	id, ok := pathID(c, "invalid_requirement_id")
	if !ok {
		return
	}
	rows, err := h.matching.ListMatches(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"matches": rows})
}

// GET /api/requirements/:id/sync-state
func (h *RequirementHandler) GetSyncState(c *gin.Context) {
	id, ok := pathID(c, "invalid_requirement_id")
	if !ok {
		return
	}
	st, err := h.matching.GetSyncState(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sync_state": st})
}
