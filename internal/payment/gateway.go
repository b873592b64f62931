// Package payment implements the signed-redirect protocol spoken by the
// VNPay-style gateway: outbound payment URL construction and inbound
// return-callback verification. All signing math is pure and synchronous;
// the only shared state is the immutable Config.
package payment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrValidation   = errors.New("invalid payment request")
	ErrBadSignature = errors.New("callback signature mismatch")
	ErrGateway      = errors.New("gateway request failed")
)

const (
	protocolVersion = "2.1.0"
	commandPay      = "pay"
	currencyCode    = "VND"
	orderTypeOther  = "other"
	localeDefault   = "vn"

	// ResponseCodeSuccess is the gateway's sentinel for a settled payment.
	// Any other signed response code is a valid failure verdict.
	ResponseCodeSuccess = "00"

	stampLayout = "20060102150405"
)

// Gateway timestamps are always GMT+7 regardless of server timezone.
var gatewayZone = time.FixedZone("GMT+7", 7*60*60)

// Config is read-only after startup and shared by all requests.
type Config struct {
	TmnCode    string
	HashSecret string
	BaseURL    string
	ReturnURL  string
	TTL        time.Duration
	MaxAmount  int64 // sandbox ceiling, major units
}

type Gateway struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Gateway {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Gateway{cfg: cfg, now: time.Now}
}

type URLRequest struct {
	OrderCode   string
	Amount      int64 // major units (VND)
	Description string
	BankCode    string
	ClientIP    string
	Locale      string
}

type URLResponse struct {
	PaymentURL  string
	OrderCode   string
	Amount      int64
	Description string
}

// BuildPaymentURL assembles the signed redirect URL for one payment attempt.
// Amount conversion to the gateway's minor-unit encoding is integer
// multiplication; no floats anywhere on this path.
func (g *Gateway) BuildPaymentURL(req URLRequest) (URLResponse, error) {
	if req.OrderCode == "" {
		return URLResponse{}, fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if req.Amount <= 0 {
		return URLResponse{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if req.Description == "" {
		return URLResponse{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if g.cfg.MaxAmount > 0 && req.Amount > g.cfg.MaxAmount {
		return URLResponse{}, fmt.Errorf("%w: amount %d exceeds ceiling %d", ErrValidation, req.Amount, g.cfg.MaxAmount)
	}

	now := g.now().In(gatewayZone)
	locale := req.Locale
	if locale == "" {
		locale = localeDefault
	}

	params := map[string]string{
		"vnp_Version":    protocolVersion,
		"vnp_Command":    commandPay,
		"vnp_TmnCode":    g.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   currencyCode,
		"vnp_TxnRef":     req.OrderCode,
		"vnp_OrderInfo":  base64.StdEncoding.EncodeToString([]byte(req.Description)),
		"vnp_OrderType":  orderTypeOther,
		"vnp_Locale":     locale,
		"vnp_ReturnUrl":  g.cfg.ReturnURL,
		"vnp_IpAddr":     req.ClientIP,
		"vnp_CreateDate": now.Format(stampLayout),
		"vnp_ExpireDate": now.Add(g.cfg.TTL).Format(stampLayout),
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}

	params[hashField] = Sign(params, g.cfg.HashSecret)

	base, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return URLResponse{}, fmt.Errorf("%w: parse base url: %v", ErrGateway, err)
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	base.RawQuery = q.Encode()

	return URLResponse{
		PaymentURL:  base.String(),
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
	}, nil
}

// ReturnResult is the decoded verdict of a verified callback. Success and
// failure are both legitimate signed outcomes; only a bad signature is an
// error.
type ReturnResult struct {
	OrderCode     string
	Amount        int64 // major units
	ResponseCode  string
	TransactionNo string
	BankCode      string
	PayDate       string
	Success       bool
}

// VerifyReturn checks the callback signature and, only if it holds, decodes
// the verdict. No field of an unverified callback may be trusted.
func (g *Gateway) VerifyReturn(query url.Values) (ReturnResult, error) {
	params := make(map[string]string, len(query))
	for k := range query {
		params[k] = query.Get(k)
	}

	if !VerifySignature(params, g.cfg.HashSecret) {
		return ReturnResult{}, ErrBadSignature
	}

	minor, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil {
		return ReturnResult{}, fmt.Errorf("%w: bad vnp_Amount %q", ErrValidation, params["vnp_Amount"])
	}

	code := params["vnp_ResponseCode"]
	return ReturnResult{
		OrderCode:     params["vnp_TxnRef"],
		Amount:        minor / 100,
		ResponseCode:  code,
		TransactionNo: params["vnp_TransactionNo"],
		BankCode:      params["vnp_BankCode"],
		PayDate:       params["vnp_PayDate"],
		Success:       code == ResponseCodeSuccess,
	}, nil
}
