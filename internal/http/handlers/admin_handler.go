package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/courses-backend/internal/dto"
	"github.com/ignatzorin/courses-backend/internal/http/handlers/common"
	"github.com/ignatzorin/courses-backend/internal/repository"
	"github.com/ignatzorin/courses-backend/internal/service"
)

// AdminHandler обслуживает админку: модерация заявок на вывод,
// счета и сверка кошельков.
type AdminHandler struct {
	withdrawals *service.WithdrawalService
	ledger      *service.LedgerService
	invoices    *repository.InvoiceRepository
}

// NewAdminHandler создаёт новый хэндлер.
func NewAdminHandler(withdrawals *service.WithdrawalService, ledger *service.LedgerService, invoices *repository.InvoiceRepository) *AdminHandler {
	return &AdminHandler{
		withdrawals: withdrawals,
		ledger:      ledger,
		invoices:    invoices,
	}
}

// ListWithdrawals GET /admin/withdrawals?status=pending
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	limit, offset := common.GetPagination(c)
	status := c.Query("status")

	withdrawals, err := h.withdrawals.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, withdrawals)
}

// ApproveWithdrawal POST /admin/withdrawals/:id/approve
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	req, invoice, err := h.withdrawals.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ApproveWithdrawalResponse{
		Request: req,
		Invoice: dto.NewInvoiceResponse(invoice),
	})
}

// RejectWithdrawal POST /admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var body dto.RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		common.RespondBadRequest(c, "причина отклонения обязательна")
		return
	}

	req, err := h.withdrawals.Reject(c.Request.Context(), id, adminID, body.Reason)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListInvoices GET /admin/invoices
func (h *AdminHandler) ListInvoices(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	invoices, err := h.invoices.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	responses := make([]*dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, dto.NewInvoiceResponse(&invoices[i]))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": responses})
}

// GetInvoice GET /admin/invoices/:number
func (h *AdminHandler) GetInvoice(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil {
		common.RespondBadRequest(c, "неверный номер счёта")
		return
	}

	invoice, err := h.invoices.GetByNumber(c.Request.Context(), number)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(invoice))
}

// VoidInvoice POST /admin/invoices/:number/void
// Номер аннулированного счёта не переиспользуется.
func (h *AdminHandler) VoidInvoice(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil {
		common.RespondBadRequest(c, "неверный номер счёта")
		return
	}

	invoice, err := h.invoices.Void(c.Request.Context(), number)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInvoiceResponse(invoice))
}

// ListNegativeWallets GET /admin/wallets/negative
// Кошельки, ушедшие в минус после возврата: нужна ручная сверка.
func (h *AdminHandler) ListNegativeWallets(c *gin.Context) {
	wallets, err := h.ledger.ListNegative(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// AuditWallet GET /admin/wallets/:ownerId/audit
// Сверяет кешированный баланс с полной свёрткой журнала.
func (h *AdminHandler) AuditWallet(c *gin.Context) {
	ownerID, err := common.ParseUUIDParam(c, "ownerId")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	audit, err := h.ledger.Audit(c.Request.Context(), ownerID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
