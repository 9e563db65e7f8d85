package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/http/response"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
	"github.com/yungbote/reqmatch-backend/internal/services"
)

type DocumentHandler struct {
	log      *logger.Logger
	catalog  services.CatalogService
	matching services.MatchingService
}

func NewDocumentHandler(log *logger.Logger, catalog services.CatalogService, matching services.MatchingService) *DocumentHandler {
	return &DocumentHandler{log: log.With("handler", "DocumentHandler"), catalog: catalog, matching: matching}
}

type createDocumentRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// POST /api/documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var body createDocumentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	doc, err := h.catalog.CreateDocument(c.Request.Context(), body.Filename)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.catalog.ListDocuments(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

// PUT /api/documents/:id/chunks
func (h *DocumentHandler) IndexChunks(c *gin.Context) {
	id, ok := pathID(c, "invalid_document_id")
	if !ok {
		return
	}
	var body services.IndexInput
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	n, err := h.catalog.IndexChunks(c.Request.Context(), id, body)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document_id": id, "chunks": n})
}

type classifyRequest struct {
	RequirementIDs []uuid.UUID `json:"requirement_ids"`
	Concurrency    int         `json:"concurrency"`
}

// POST /api/documents/:id/classify
func (h *DocumentHandler) Classify(c *gin.Context) {
	id, ok := pathID(c, "invalid_document_id")
	if !ok {
		return
	}
	var body classifyRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	res, err := h.matching.ClassifyDocument(c.Request.Context(), id, body.RequirementIDs, services.RunOptions{Concurrency: body.Concurrency})
	if err != nil {
		h.log.Warn("Document classification failed", "document_id", id, "error", err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, newRunResponse(res))
}
