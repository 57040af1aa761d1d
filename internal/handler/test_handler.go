package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/response"
	"github.com/cettopper/exam-portal/internal/service"
)

// TestHandler serves the student-facing test catalog.
type TestHandler struct {
	testService   *service.TestService
	maxViolations int
}

// NewTestHandler creates a new TestHandler. maxViolations is sent with every
// paper so clients proctor with the server's tolerance.
func NewTestHandler(testService *service.TestService, maxViolations int) *TestHandler {
	return &TestHandler{testService: testService, maxViolations: maxViolations}
}

// ListTests godoc
// GET /api/v1/tests
// Lists published tests without their questions.
func (h *TestHandler) ListTests(c *gin.Context) {
	tests, err := h.testService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTest godoc
// GET /api/v1/tests/:id
// Returns a published test paper with correct answers stripped.
func (h *TestHandler) GetTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.testService.GetPaper(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	paper.MaxViolations = h.maxViolations
	response.Success(c, http.StatusOK, gin.H{"test": paper})
}
