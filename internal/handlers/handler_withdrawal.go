package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/TaskRupee/task_rupee_app/internal/core/ports/services"
	"github.com/TaskRupee/task_rupee_app/internal/dto"
	"github.com/TaskRupee/task_rupee_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type withdrawalHandler struct {
	withdrawalService portssvc.WithdrawalSvcFacade
}

func newWithdrawalHandler(withdrawalService portssvc.WithdrawalSvcFacade) *withdrawalHandler {
	return &withdrawalHandler{withdrawalService: withdrawalService}
}

func RegisterWithdrawalRoutes(rg *gin.RouterGroup, withdrawalService portssvc.WithdrawalSvcFacade, submitLimiter gin.HandlerFunc) {
	h := newWithdrawalHandler(withdrawalService)

	withdrawals := rg.Group("/withdrawals")
	{
		if submitLimiter != nil {
			withdrawals.POST("", submitLimiter, h.submit)
		} else {
			withdrawals.POST("", h.submit)
		}
		withdrawals.GET("", h.listMine)
		withdrawals.GET("/:requestID", h.get)
		withdrawals.POST("/:requestID/review", h.review)
		withdrawals.POST("/:requestID/cancel", h.cancel)
		withdrawals.POST("/:requestID/hold", h.hold)
	}
}

// submit godoc
// @Summary Submit a withdrawal request
// @Description Runs the submission checks (minimum amount, payment method, tier, balance, quotas), assigns a reviewer and persists the request as PENDING
// @Tags withdrawals
// @Accept  json
// @Produce  json
// @Param   withdrawal body dto.SubmitWithdrawalRequest true "Withdrawal details"
// @Success 201 {object} dto.WithdrawalResponse
// @Failure 400 {object} map[string]string "Invalid input or incomplete payment method"
// @Failure 422 {object} map[string]string "Tier, balance, quota or capacity rejection"
// @Security BearerAuth
// @Router /withdrawals [post]
func (h *withdrawalHandler) submit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for submit", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.withdrawalService.Submit(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to submit withdrawal")
		return
	}

	c.JSON(http.StatusCreated, dto.ToWithdrawalResponse(request))
}

// listMine godoc
// @Summary List the caller's withdrawal requests
// @Tags withdrawals
// @Produce  json
// @Param   limit query int false "Page size (default 20, max 100)"
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.ListWithdrawalsResponse
// @Security BearerAuth
// @Router /withdrawals [get]
func (h *withdrawalHandler) listMine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var params dto.ListWithdrawalsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for listMine", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	page, err := h.withdrawalService.ListByAccount(c.Request.Context(), accountID, params)
	if err != nil {
		respondError(c, logger, err, "Failed to list withdrawals")
		return
	}

	c.JSON(http.StatusOK, page)
}

// get godoc
// @Summary Get one withdrawal request
// @Description Visible to the owning account, the assigned reviewer, and admin override holders
// @Tags withdrawals
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 403 {object} map[string]string "Caller may not view this request"
// @Failure 404 {object} map[string]string "Request not found"
// @Security BearerAuth
// @Router /withdrawals/{requestID} [get]
func (h *withdrawalHandler) get(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("requestID")

	callerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.withdrawalService.GetRequest(c.Request.Context(), requestID, callerID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve withdrawal")
		return
	}

	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(request))
}

// review godoc
// @Summary Review a withdrawal request
// @Description Applies approve, reject or process as the acting reviewer
// @Tags withdrawals
// @Accept  json
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Param   decision body dto.ReviewWithdrawalRequest true "Review decision"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 403 {object} map[string]string "Not the assigned reviewer or missing capability"
// @Failure 409 {object} map[string]string "Illegal state transition"
// @Security BearerAuth
// @Router /withdrawals/{requestID}/review [post]
func (h *withdrawalHandler) review(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("requestID")

	var req dto.ReviewWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for review", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.withdrawalService.Review(c.Request.Context(), requestID, reviewerID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to review withdrawal")
		return
	}

	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(request))
}

// cancel godoc
// @Summary Cancel a pending withdrawal
// @Description Owner only; legal while the request is still PENDING
// @Tags withdrawals
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 403 {object} map[string]string "Not the owning account"
// @Failure 409 {object} map[string]string "Request is no longer pending"
// @Security BearerAuth
// @Router /withdrawals/{requestID}/cancel [post]
func (h *withdrawalHandler) cancel(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("requestID")

	accountID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.withdrawalService.Cancel(c.Request.Context(), requestID, accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to cancel withdrawal")
		return
	}

	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(request))
}

// hold godoc
// @Summary Place a pending withdrawal under review
// @Description Administrative override moving a PENDING request to UNDER_REVIEW
// @Tags withdrawals
// @Produce  json
// @Param   requestID path string true "Request ID"
// @Success 200 {object} dto.WithdrawalResponse
// @Failure 403 {object} map[string]string "Caller lacks the admin override capability"
// @Failure 409 {object} map[string]string "Request is not pending"
// @Security BearerAuth
// @Router /withdrawals/{requestID}/hold [post]
func (h *withdrawalHandler) hold(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("requestID")

	reviewerID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Caller ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	request, err := h.withdrawalService.Hold(c.Request.Context(), requestID, reviewerID)
	if err != nil {
		respondError(c, logger, err, "Failed to place withdrawal under review")
		return
	}

	c.JSON(http.StatusOK, dto.ToWithdrawalResponse(request))
}
