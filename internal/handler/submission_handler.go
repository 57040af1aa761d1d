package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cettopper/exam-portal/internal/middleware"
	"github.com/cettopper/exam-portal/internal/model"
	"github.com/cettopper/exam-portal/internal/response"
	"github.com/cettopper/exam-portal/internal/service"
	"github.com/cettopper/exam-portal/internal/validator"
)

// SubmissionHandler accepts finished attempts for scoring.
type SubmissionHandler struct {
	scoringService *service.ScoringService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(scoringService *service.ScoringService) *SubmissionHandler {
	return &SubmissionHandler{scoringService: scoringService}
}

// Submit godoc
// POST /api/v1/submit
// Scores an attempt against the answer key and records the result for the caller.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SubmissionPayload
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	summary, err := h.scoringService.Submit(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInvalidAnswer):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidAnswer,
				map[string]string{"userAnswers": err.Error()})
		case errors.Is(err, service.ErrAttemptInProgress):
			response.Fail(c, http.StatusConflict, response.ErrAttemptInProgress)
		case errors.Is(err, service.ErrAttemptReused):
			response.Fail(c, http.StatusConflict, response.ErrAttemptReused)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"summary": summary})
}
