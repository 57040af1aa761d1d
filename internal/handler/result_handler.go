package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/middleware"
	"github.com/cettopper/exam-portal/internal/response"
	"github.com/cettopper/exam-portal/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultHandler serves recorded results to students and admins.
type ResultHandler struct {
	resultService *service.ResultService
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// ListMyResults godoc
// GET /api/v1/user/results
// Lists the caller's own results, newest first.
func (h *ResultHandler) ListMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	results, err := h.resultService.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ListRecentResults godoc
// GET /api/v1/admin/results
// Lists the most recent results with student name and test title.
func (h *ResultHandler) ListRecentResults(c *gin.Context) {
	results, err := h.resultService.ListRecent(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ExportTestResults godoc
// GET /api/v1/admin/tests/:id/results/export
// Downloads every result of a test as an XLSX workbook.
func (h *ResultHandler) ExportTestResults(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.resultService.ExportTestResults(c.Request.Context(), testID, &buf); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, testID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
