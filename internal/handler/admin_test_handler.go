package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/response"
	"github.com/cettopper/exam-portal/internal/service"
	"github.com/cettopper/exam-portal/internal/validator"
)

// AdminTestHandler handles test authoring endpoints.
type AdminTestHandler struct {
	testService *service.TestService
}

// NewAdminTestHandler creates a new AdminTestHandler.
func NewAdminTestHandler(testService *service.TestService) *AdminTestHandler {
	return &AdminTestHandler{testService: testService}
}

// CreateTest godoc
// POST /api/v1/admin/tests
// Creates a test with its questions; published tests are cached immediately.
func (h *AdminTestHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.Create(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAnswerKey):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidAnswerKey,
				map[string]string{"questions": err.Error()})
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:id
// Deletes a test. Recorded results are kept.
func (h *AdminTestHandler) DeleteTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID); err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": testID})
}
