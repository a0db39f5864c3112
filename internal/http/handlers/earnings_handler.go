package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/courses-backend/internal/dto"
	"github.com/ignatzorin/courses-backend/internal/http/handlers/common"
	"github.com/ignatzorin/courses-backend/internal/repository"
	"github.com/ignatzorin/courses-backend/internal/service"
)

// EarningsHandler принимает начисления и возвраты от сервиса заказов.
// Оба вызова идемпотентны по order_id: повтор отвечает 200 с уже
// сохранённой записью, чтобы ретраи на той стороне оставались простыми.
type EarningsHandler struct {
	ledger *service.LedgerService
}

// NewEarningsHandler создаёт новый хэндлер.
func NewEarningsHandler(ledger *service.LedgerService) *EarningsHandler {
	return &EarningsHandler{ledger: ledger}
}

// PostEarning POST /internal/earnings
func (h *EarningsHandler) PostEarning(c *gin.Context) {
	var req dto.PostEarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	instructorID, _ := uuid.Parse(req.InstructorID)
	orderID, _ := uuid.Parse(req.OrderID)

	entry, duplicate, err := h.ledger.PostEarning(c.Request.Context(), instructorID, orderID, req.Amount)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, dto.LedgerEntryResponse{Entry: entry, Duplicate: duplicate})
}

// PostRefund POST /internal/refunds
func (h *EarningsHandler) PostRefund(c *gin.Context) {
	var req dto.PostRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	instructorID, _ := uuid.Parse(req.InstructorID)
	orderID, _ := uuid.Parse(req.OrderID)

	entry, duplicate, err := h.ledger.PostRefund(c.Request.Context(), instructorID, orderID, req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrEarningNotFound) {
			common.RespondNotFound(c, "начисление по заказу не найдено")
			return
		}
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, dto.LedgerEntryResponse{Entry: entry, Duplicate: duplicate})
}
