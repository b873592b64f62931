package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vqhuy/go-storefront-orders/internal/orders"
	"github.com/vqhuy/go-storefront-orders/internal/payment"
)

type settlementApplier interface {
	ApplyReturn(ctx context.Context, res payment.ReturnResult) (*orders.Order, error)
}

type PaymentHandler struct {
	Gate *payment.Gateway
	Rec  settlementApplier
	Log  *zap.Logger
}

func (h *PaymentHandler) Register(r *chi.Mux) {
	r.Post("/payments/url", h.createPaymentURL)
	r.Get("/payments/return", h.paymentReturn)
}

type paymentURLReq struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Description string `json:"orderDescription"`
	BankCode    string `json:"bankCode,omitempty"`
}

func (h *PaymentHandler) createPaymentURL(w http.ResponseWriter, r *http.Request) {
	var req paymentURLReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	resp, err := h.Gate.BuildPaymentURL(payment.URLRequest{
		OrderCode:   req.OrderID,
		Amount:      req.Amount,
		Description: req.Description,
		BankCode:    req.BankCode,
		ClientIP:    r.RemoteAddr,
	})
	if err != nil {
		if errors.Is(err, payment.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "payment url could not be built"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"paymentUrl":  resp.PaymentURL,
		"orderId":     resp.OrderCode,
		"amount":      resp.Amount,
		"description": resp.Description,
	})
}

// paymentReturn is the gateway's redirect target. Signature verification is
// the only gate: a mismatch is rejected without touching any order, and is
// logged as a potential tampering event rather than an ordinary error.
func (h *PaymentHandler) paymentReturn(w http.ResponseWriter, r *http.Request) {
	res, err := h.Gate.VerifyReturn(r.URL.Query())
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			h.Log.Warn("rejected payment callback with invalid signature",
				zap.String("remote", r.RemoteAddr),
				zap.String("txn_ref", r.URL.Query().Get("vnp_TxnRef")))
			writeJSON(w, http.StatusBadRequest, map[string]any{"isValid": false})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Rec.ApplyReturn(ctx, res)
	if err != nil {
		writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"isValid":        true,
		"orderId":        o.Code,
		"amount":         res.Amount,
		"responseCode":   res.ResponseCode,
		"success":        res.Success,
		"order_status":   o.OrderStatus,
		"payment_status": o.PaymentStatus,
	})
}
