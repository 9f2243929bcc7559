package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	interfaces "github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
)

// TransferHandler serves the transfer API on top of a TransferService.
type TransferHandler struct {
	service interfaces.TransferService
	log     *slog.Logger
}

func NewTransferHandler(service interfaces.TransferService, log *slog.Logger) *TransferHandler {
	return &TransferHandler{service: service, log: log.With("component", "api")}
}

func (h *TransferHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.POST("/transfers", h.CreateTransfer)
		api.GET("/transfers/stats", h.GetStats)
		api.GET("/accounts/:id/balance", h.GetBalance)
	}
}

// CreateTransfer answers 202 for a completed transfer and 422 for one
// rejected for insufficient funds; both carry the outcome.
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.service.Transfer(c.Request.Context(), req)
	if err != nil {
		h.log.Error("transfer failed", "request_id", c.GetString(RequestIDKey), "transfer_id", req.IdempotencyKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transfer could not be processed", "request_id": c.GetString(RequestIDKey)})
		return
	}

	if !out.Completed() {
		h.log.Debug("transfer rejected", "transfer_id", out.TransferID, "status", out.Status)
		c.JSON(http.StatusUnprocessableEntity, out)
		return
	}
	c.JSON(http.StatusAccepted, out)
}

func (h *TransferHandler) GetStats(c *gin.Context) {
	snapshot, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("stats failed", "request_id", c.GetString(RequestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetBalance never creates the account it is asked about.
func (h *TransferHandler) GetBalance(c *gin.Context) {
	accountID := c.Param("id")

	balance, err := h.service.Balance(c.Request.Context(), accountID)
	if errors.Is(err, models.ErrAccountNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("balance lookup failed", "request_id", c.GetString(RequestIDKey), "account_id", accountID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accountId":         accountID,
		"balanceMinorUnits": balance,
	})
}
