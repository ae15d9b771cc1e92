package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/TaskRupee/task_rupee_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type assignmentHandler struct {
	assignmentService portssvc.AssignmentSvcFacade
	withdrawalService portssvc.WithdrawalSvcFacade
}

func newAssignmentHandler(assignmentService portssvc.AssignmentSvcFacade, withdrawalService portssvc.WithdrawalSvcFacade) *assignmentHandler {
	return &assignmentHandler{assignmentService: assignmentService, withdrawalService: withdrawalService}
}

func RegisterAssignmentRoutes(rg *gin.RouterGroup, assignmentService portssvc.AssignmentSvcFacade, withdrawalService portssvc.WithdrawalSvcFacade) {
	h := newAssignmentHandler(assignmentService, withdrawalService)

	reviewers := rg.Group("/reviewers")
	{
		reviewers.POST("", h.createReviewer)
		reviewers.GET("", h.listReviewers)
		reviewers.GET("/:reviewerID", h.getReviewer)
		reviewers.GET("/:reviewerID/withdrawals", h.listReviewerWithdrawals)
		reviewers.POST("/:reviewerID/deactivate", h.deactivateReviewer)
	}

	assignments := rg.Group("/assignments")
	{
		assignments.POST("/auto", h.autoAssign)
		assignments.POST("/manual", h.manualAssign)
		assignments.POST("/redistribute", h.redistribute)
	}
}

func callerID(c *gin.Context) (string, bool) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	id, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return id, ok
}

// createReviewer godoc
// @Summary Register a reviewer
// @Tags reviewers
// @Accept  json
// @Produce  json
// @Param   reviewer body dto.CreateReviewerRequest true "Reviewer details"
// @Success 201 {object} dto.ReviewerResponse
// @Failure 400 {object} map[string]string "Invalid input or unknown capability"
// @Security BearerAuth
// @Router /reviewers [post]
func (h *assignmentHandler) createReviewer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for createReviewer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := callerID(c)
	if !ok {
		return
	}

	reviewer, err := h.assignmentService.CreateReviewer(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, logger, err, "Failed to create reviewer")
		return
	}

	c.JSON(http.StatusCreated, dto.ToReviewerResponse(reviewer))
}

// listReviewers godoc
// @Summary List all reviewers
// @Tags reviewers
// @Produce  json
// @Success 200 {array} dto.ReviewerResponse
// @Security BearerAuth
// @Router /reviewers [get]
func (h *assignmentHandler) listReviewers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	reviewers, err := h.assignmentService.ListReviewers(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to list reviewers")
		return
	}

	c.JSON(http.StatusOK, dto.ToReviewerResponses(reviewers))
}

// getReviewer godoc
// @Summary Get one reviewer
// @Description Includes the reviewer's assigned account and request lists
// @Tags reviewers
// @Produce  json
// @Param   reviewerID path string true "Reviewer ID"
// @Success 200 {object} dto.ReviewerResponse
// @Failure 404 {object} map[string]string "Reviewer not found"
// @Security BearerAuth
// @Router /reviewers/{reviewerID} [get]
func (h *assignmentHandler) getReviewer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reviewerID := c.Param("reviewerID")

	reviewer, err := h.assignmentService.GetReviewer(c.Request.Context(), reviewerID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve reviewer")
		return
	}

	c.JSON(http.StatusOK, dto.ToReviewerResponse(reviewer))
}

// listReviewerWithdrawals godoc
// @Summary List the requests assigned to a reviewer
// @Tags reviewers
// @Produce  json
// @Param   reviewerID path string true "Reviewer ID"
// @Param   state query string false "Filter by state"
// @Param   limit query int false "Page size (default 20, max 100)"
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.ListWithdrawalsResponse
// @Security BearerAuth
// @Router /reviewers/{reviewerID}/withdrawals [get]
func (h *assignmentHandler) listReviewerWithdrawals(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reviewerID := c.Param("reviewerID")

	var params dto.ListWithdrawalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for listReviewerWithdrawals", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	page, err := h.withdrawalService.ListByReviewer(c.Request.Context(), reviewerID, params)
	if err != nil {
		respondError(c, logger, err, "Failed to list reviewer withdrawals")
		return
	}

	c.JSON(http.StatusOK, page)
}

// deactivateReviewer godoc
// @Summary Retire a reviewer
// @Description Refused while assignments are outstanding unless reassign is set
// @Tags reviewers
// @Accept  json
// @Produce  json
// @Param   reviewerID path string true "Reviewer ID"
// @Param   options body dto.DeactivateReviewerRequest false "Deactivation options"
// @Success 204 "Reviewer deactivated"
// @Failure 404 {object} map[string]string "Reviewer not found"
// @Failure 409 {object} map[string]string "Assignments outstanding"
// @Security BearerAuth
// @Router /reviewers/{reviewerID}/deactivate [post]
func (h *assignmentHandler) deactivateReviewer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	reviewerID := c.Param("reviewerID")

	var req dto.DeactivateReviewerRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		logger.Warn("Failed to bind JSON for deactivateReviewer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.assignmentService.DeactivateReviewer(c.Request.Context(), reviewerID, req.Reassign, actorID); err != nil {
		respondError(c, logger, err, "Failed to deactivate reviewer")
		return
	}

	c.Status(http.StatusNoContent)
}

// autoAssign godoc
// @Summary Auto-assign unassigned accounts
// @Description Greedily assigns every unassigned tier-holding account to the least-loaded reviewer with capacity
// @Tags assignments
// @Produce  json
// @Success 200 {object} dto.AutoAssignResult
// @Security BearerAuth
// @Router /assignments/auto [post]
func (h *assignmentHandler) autoAssign(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actorID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.AutoAssign(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, logger, err, "Auto-assignment failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// manualAssign godoc
// @Summary Pin an account to a reviewer
// @Tags assignments
// @Accept  json
// @Produce  json
// @Param   assignment body dto.ManualAssignRequest true "Assignment"
// @Success 204 "Account assigned"
// @Failure 404 {object} map[string]string "Account or reviewer not found"
// @Failure 422 {object} map[string]string "Reviewer at capacity or account untiered"
// @Security BearerAuth
// @Router /assignments/manual [post]
func (h *assignmentHandler) manualAssign(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ManualAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for manualAssign", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actorID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.assignmentService.ManualAssign(c.Request.Context(), req.AccountID, req.ReviewerID, actorID); err != nil {
		respondError(c, logger, err, "Manual assignment failed")
		return
	}

	c.Status(http.StatusNoContent)
}

// redistribute godoc
// @Summary Redistribute all assignments
// @Description Clears every assignment and round-robins eligible accounts over active reviewers; destroys manual pinning
// @Tags assignments
// @Produce  json
// @Success 200 {object} dto.RedistributeResult
// @Failure 422 {object} map[string]string "No active reviewers"
// @Security BearerAuth
// @Router /assignments/redistribute [post]
func (h *assignmentHandler) redistribute(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	actorID, ok := callerID(c)
	if !ok {
		return
	}

	result, err := h.assignmentService.Redistribute(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, logger, err, "Redistribution failed")
		return
	}

	c.JSON(http.StatusOK, result)
}
