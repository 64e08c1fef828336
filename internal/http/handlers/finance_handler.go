package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawnlink/lawncare-backend/internal/http/handlers/common"
	"github.com/lawnlink/lawncare-backend/internal/service"
)

type FinanceHandler struct {
	finance *service.FinanceService
}

func NewFinanceHandler(finance *service.FinanceService) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

// GetJobInvoice GET /jobs/:id/invoice
func (h *FinanceHandler) GetJobInvoice(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	role, _ := common.CurrentUserRole(c)
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	invoice, err := h.finance.GetJobInvoice(c.Request.Context(), userID, role, jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListMyInvoices GET /invoices
func (h *FinanceHandler) ListMyInvoices(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	limit, offset := common.GetPagination(c)

	invoices, err := h.finance.ListCustomerInvoices(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// ListQueuedRefunds GET /admin/refunds
func (h *FinanceHandler) ListQueuedRefunds(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	refunds, err := h.finance.ListQueuedRefunds(c.Request.Context(), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}

// ListJobRefunds GET /admin/jobs/:id/refunds
func (h *FinanceHandler) ListJobRefunds(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	refunds, err := h.finance.ListJobRefunds(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"refunds": refunds})
}
