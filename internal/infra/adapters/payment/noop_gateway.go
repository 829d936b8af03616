// File: internal/infra/adapters/payment/noop_gateway.go
package payment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway confirms everything. Dev mode only.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (n *NoopGateway) Name() string { return "noop" }

func (n *NoopGateway) Initialize(ctx context.Context, email string, amount int64, currency, reference string, meta map[string]interface{}) (*adapter.InitResult, error) {
	if reference == "" {
		reference = "noop-" + uuid.NewString()
	}
	return &adapter.InitResult{
		Reference:        reference,
		AuthorizationURL: "https://pay.example/" + reference,
		AccessCode:       reference,
	}, nil
}

func (n *NoopGateway) Verify(ctx context.Context, reference string) (*adapter.VerifyResult, error) {
	now := time.Now()
	return &adapter.VerifyResult{
		Confirmed: true,
		Message:   "Verification successful",
		Status:    "success",
		Reference: reference,
		Channel:   "card",
		PaidAt:    &now,
	}, nil
}
