package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vqhuy/go-storefront-orders/internal/orders"
	"github.com/vqhuy/go-storefront-orders/internal/payment"
)

type stubApplier struct {
	calls int
	last  payment.ReturnResult
	order *orders.Order
	err   error
}

func (s *stubApplier) ApplyReturn(_ context.Context, res payment.ReturnResult) (*orders.Order, error) {
	s.calls++
	s.last = res
	return s.order, s.err
}

const testSecret = "testsecret"

func testPaymentHandler(rec *stubApplier) (*PaymentHandler, http.Handler) {
	gate := payment.New(payment.Config{
		TmnCode:    "DEMO01",
		HashSecret: testSecret,
		BaseURL:    "https://sandbox.example.com/pay",
		ReturnURL:  "http://localhost/payments/return",
		TTL:        30 * time.Minute,
		MaxAmount:  1_000_000_000,
	})
	h := &PaymentHandler{Gate: gate, Rec: rec, Log: zap.NewNop()}
	r := NewRouter()
	h.Register(r)
	return h, r
}

func TestCreatePaymentURLHandler(t *testing.T) {
	_, r := testPaymentHandler(&stubApplier{})

	body := `{"orderId":"ORD1","amount":230000,"orderDescription":"don hang ORD1"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/url", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	u, ok := resp["paymentUrl"].(string)
	if !ok || !strings.HasPrefix(u, "https://sandbox.example.com/pay?") {
		t.Errorf("paymentUrl = %v", resp["paymentUrl"])
	}
	if resp["orderId"] != "ORD1" {
		t.Errorf("orderId = %v", resp["orderId"])
	}
}

func TestCreatePaymentURLHandlerValidation(t *testing.T) {
	_, r := testPaymentHandler(&stubApplier{})

	body := `{"orderId":"","amount":230000,"orderDescription":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/url", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func signedQuery(secret string, overrides map[string]string) string {
	params := map[string]string{
		"vnp_TxnRef":        "ORD1",
		"vnp_Amount":        "23000000",
		"vnp_ResponseCode":  "00",
		"vnp_TransactionNo": "123",
		"vnp_BankCode":      "NCB",
		"vnp_PayDate":       "20240101120500",
	}
	for k, v := range overrides {
		params[k] = v
	}
	params["vnp_SecureHash"] = payment.Sign(params, secret)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q.Encode()
}

func TestPaymentReturnVerifiedSuccess(t *testing.T) {
	rec := &stubApplier{order: &orders.Order{
		Code:          "ORD1",
		OrderStatus:   orders.StatusConfirmed,
		PaymentStatus: orders.PayPaid,
	}}
	_, r := testPaymentHandler(rec)

	req := httptest.NewRequest(http.MethodGet, "/payments/return?"+signedQuery(testSecret, nil), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if rec.calls != 1 {
		t.Fatalf("reconciler calls = %d, want 1", rec.calls)
	}
	if !rec.last.Success || rec.last.Amount != 230000 {
		t.Errorf("decoded result = %+v", rec.last)
	}
}

func TestPaymentReturnTamperedSignature(t *testing.T) {
	rec := &stubApplier{}
	_, r := testPaymentHandler(rec)

	// success response code, but the amount was altered after signing
	q, _ := url.ParseQuery(signedQuery(testSecret, nil))
	q.Set("vnp_Amount", "100")

	req := httptest.NewRequest(http.MethodGet, "/payments/return?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if rec.calls != 0 {
		t.Fatal("unverified callback reached the reconciler")
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if valid, _ := resp["isValid"].(bool); valid {
		t.Error("isValid = true for tampered callback")
	}
}

func TestPaymentReturnWrongSecret(t *testing.T) {
	rec := &stubApplier{}
	_, r := testPaymentHandler(rec)

	req := httptest.NewRequest(http.MethodGet, "/payments/return?"+signedQuery("attacker", nil), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || rec.calls != 0 {
		t.Fatalf("status = %d, calls = %d; forged callback must be rejected", w.Code, rec.calls)
	}
}
