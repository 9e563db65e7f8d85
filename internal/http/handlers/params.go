package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/reqmatch-backend/internal/http/response"
	"github.com/yungbote/reqmatch-backend/internal/matching"
)

func pathID(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, out any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return false
	}
	return true
}

type runResponse struct {
	Classifications any                  `json:"classifications"`
	Errors          []matching.ErrorItem `json:"errors"`
	Status          string               `json:"status"`
	Version         int64                `json:"version,omitempty"`
}

func newRunResponse(res *matching.Result) runResponse {
	items := res.Errors.Items
	if items == nil {
		items = []matching.ErrorItem{}
	}
	return runResponse{
		Classifications: res.Classifications,
		Errors:          items,
		Status:          res.Status,
		Version:         res.Version,
	}
}
