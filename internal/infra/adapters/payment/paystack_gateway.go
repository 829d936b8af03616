// File: internal/infra/adapters/payment/paystack_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
	"github.com/itzhord/onecard-sub000/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*PaystackGateway)(nil)

const defaultBaseURL = "https://api.paystack.co"

// PaystackGateway implements adapter.PaymentGateway over Paystack's
// transaction REST API with a bearer secret key.
type PaystackGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

// NewPaystackGateway builds a gateway client; baseURL is overridable for
// tests and sandboxes.
func NewPaystackGateway(secretKey, baseURL string, timeout time.Duration) *PaystackGateway {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *PaystackGateway) Name() string { return "paystack" }

type initResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// Initialize calls /transaction/initialize and returns the hosted checkout
// handle. Amount is in minor units, as Paystack expects.
func (g *PaystackGateway) Initialize(ctx context.Context, email string, amount int64, currency, reference string, meta map[string]interface{}) (*adapter.InitResult, error) {
	if g.secretKey == "" {
		return nil, domain.ErrGatewayCredentials
	}
	payload := map[string]any{
		"email":    email,
		"amount":   amount,
		"currency": currency,
	}
	if reference != "" {
		payload["reference"] = reference
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.GatewayCalls.WithLabelValues("initialize", "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	var out initResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.GatewayCalls.WithLabelValues("initialize", "bad_json").Inc()
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Status {
		metrics.GatewayCalls.WithLabelValues("initialize", "rejected").Inc()
		return nil, fmt.Errorf("gateway initialize failed: %s", out.Message)
	}
	metrics.GatewayCalls.WithLabelValues("initialize", "ok").Inc()
	return &adapter.InitResult{
		Reference:        out.Data.Reference,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string                 `json:"status"`
		Reference string                 `json:"reference"`
		Amount    int64                  `json:"amount"`
		Currency  string                 `json:"currency"`
		Channel   string                 `json:"channel"`
		PaidAt    string                 `json:"paid_at"`
		CreatedAt string                 `json:"created_at"`
		Metadata  map[string]interface{} `json:"metadata"`
		Plan      struct {
			Name string `json:"name"`
		} `json:"plan_object"`
		Customer struct {
			Email string `json:"email"`
		} `json:"customer"`
		Subscription struct {
			SubscriptionCode string `json:"subscription_code"`
		} `json:"subscription"`
	} `json:"data"`
}

// Verify calls /transaction/verify/{reference}. One outbound call, no
// retries; any non-success HTTP response or status=false payload comes back
// as Confirmed=false with the gateway's message verbatim. A transaction
// status other than "success" is likewise unconfirmed.
func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	if g.secretKey == "" {
		return nil, domain.ErrGatewayCredentials
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		metrics.GatewayCalls.WithLabelValues("verify", "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.GatewayCalls.WithLabelValues("verify", "bad_json").Inc()
		return nil, fmt.Errorf("decode verify response: %w", err)
	}

	res := &adapter.VerifyResult{
		Message:          out.Message,
		Status:           out.Data.Status,
		Amount:           out.Data.Amount,
		Currency:         out.Data.Currency,
		Channel:          out.Data.Channel,
		Reference:        out.Data.Reference,
		SubscriptionCode: out.Data.Subscription.SubscriptionCode,
		PlanName:         out.Data.Plan.Name,
		CustomerEmail:    out.Data.Customer.Email,
	}
	if t, err := parseGatewayTime(out.Data.PaidAt); err == nil {
		res.PaidAt = &t
	}
	if t, err := parseGatewayTime(out.Data.CreatedAt); err == nil {
		res.CreatedAt = &t
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Status {
		metrics.GatewayCalls.WithLabelValues("verify", "rejected").Inc()
		res.Confirmed = false
		if res.Message == "" {
			res.Message = fmt.Sprintf("gateway returned http %d", resp.StatusCode)
		}
		return res, nil
	}

	res.Confirmed = out.Data.Status == "success"
	if res.Confirmed {
		metrics.GatewayCalls.WithLabelValues("verify", "ok").Inc()
	} else {
		metrics.GatewayCalls.WithLabelValues("verify", "not_success").Inc()
		if res.Message == "" || out.Status {
			res.Message = fmt.Sprintf("transaction status is %q", out.Data.Status)
		}
	}
	return res, nil
}

// parseGatewayTime accepts the two timestamp shapes Paystack emits.
func parseGatewayTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.000Z", s)
}
