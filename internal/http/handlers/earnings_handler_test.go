package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestEarningsHandler_PostEarning_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &EarningsHandler{ledger: nil}
	r.POST("/internal/earnings", handler.PostEarning)

	body := strings.NewReader(`{"instructor_id":"not-a-uuid","order_id":"also-bad","amount":-5}`)
	req, _ := http.NewRequest("POST", "/internal/earnings", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEarningsHandler_PostRefund_InvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &EarningsHandler{ledger: nil}
	r.POST("/internal/refunds", handler.PostRefund)

	req, _ := http.NewRequest("POST", "/internal/refunds", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
