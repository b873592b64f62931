package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vqhuy/go-storefront-orders/internal/orders"
)

type fakeCheckout struct {
	created *orders.Order
	err     error
}

func (f *fakeCheckout) CreateOrder(_ context.Context, in orders.CreateOrderInput) (*orders.Order, error) {
	return f.created, f.err
}
func (f *fakeCheckout) GetOrder(_ context.Context, code string) (*orders.Order, error) {
	if f.created != nil && f.created.Code == code {
		return f.created, nil
	}
	return nil, orders.ErrNotFound
}
func (f *fakeCheckout) ListOrders(_ context.Context, userID string, _ orders.Status) ([]orders.Order, error) {
	if userID == "" {
		return nil, orders.ErrValidation
	}
	return nil, nil
}
func (f *fakeCheckout) OrderStatus(_ context.Context, code string) (orders.Status, orders.PaymentStatus, error) {
	if f.created != nil && f.created.Code == code {
		return f.created.OrderStatus, f.created.PaymentStatus, nil
	}
	return "", "", orders.ErrNotFound
}

type fakeCanceller struct{ err error }

func (f *fakeCanceller) Cancel(_ context.Context, code, userID string) (*orders.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &orders.Order{Code: code, UserID: userID, OrderStatus: orders.StatusCancelled}, nil
}

func mountOrders(svc *fakeCheckout, rec *fakeCanceller) http.Handler {
	r := NewRouter()
	(&OrdersHandler{Svc: svc, Rec: rec}).Register(r)
	return r
}

func TestCreateOrderHandler(t *testing.T) {
	svc := &fakeCheckout{created: &orders.Order{
		Code:          "ORD1",
		OrderStatus:   orders.StatusPending,
		PaymentStatus: orders.PayPending,
		FinalAmount:   230000,
	}}
	r := mountOrders(svc, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"user_id":"u1","items":[{"product_id":"p1","quantity":2}]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ORD1"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateOrderHandlerInvalidJSON(t *testing.T) {
	r := mountOrders(&fakeCheckout{}, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrderHandlerValidationError(t *testing.T) {
	r := mountOrders(&fakeCheckout{err: orders.ErrValidation}, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"items":[]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrderHandlerPersistenceErrorIsGeneric(t *testing.T) {
	r := mountOrders(&fakeCheckout{err: orders.ErrPersistence}, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"user_id":"u1","items":[{"product_id":"p1","quantity":1}]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	// no storage detail leaks to the caller
	if strings.Contains(w.Body.String(), "order write failed") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestGetOrderHandlerNotFound(t *testing.T) {
	r := mountOrders(&fakeCheckout{}, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodGet, "/orders/ORD404", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCancelHandlerInvalidTransition(t *testing.T) {
	r := mountOrders(&fakeCheckout{}, &fakeCanceller{err: orders.ErrInvalidTransition})

	req := httptest.NewRequest(http.MethodPost, "/orders/ORD1/cancel?user_id=u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCancelHandlerOK(t *testing.T) {
	r := mountOrders(&fakeCheckout{}, &fakeCanceller{})

	req := httptest.NewRequest(http.MethodPost, "/orders/ORD1/cancel?user_id=u1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), string(orders.StatusCancelled)) {
		t.Errorf("body = %s", w.Body.String())
	}
}
