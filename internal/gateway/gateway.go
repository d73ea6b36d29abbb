// Package gateway abstracts the operator-side mobile money APIs.
// The processing pipeline depends only on the Gateway capability and the
// provider registry, never on a concrete operator client.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/apperrors"
	"github.com/onepay-cm/onepay/internal/models"
)

// PaymentStatus is the gateway's answer to a settlement poll
type PaymentStatus struct {
	Status            string     `json:"status"` // PENDING, COMPLETED or FAILED
	Message           string     `json:"message"`
	OperatorReference *string    `json:"operator_reference"`
	CompletedAt       *time.Time `json:"completed_at"`
}

type Gateway interface {
	VerifyAccount(ctx context.Context, account *models.MobileMoneyAccount) (bool, error)
	GetBalance(ctx context.Context, account *models.MobileMoneyAccount) (decimal.Decimal, error)
	InitiatePayment(ctx context.Context, t *models.Transaction) (reference string, err error)
	CheckPaymentStatus(ctx context.Context, reference string) (PaymentStatus, error)
	PurchaseAirtime(ctx context.Context, t *models.Transaction) (bool, error)
	TransferMoney(ctx context.Context, t *models.Transaction) (bool, error)
}

// Registry holds the fixed provider -> gateway mapping
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(provider string, gw Gateway) {
	r.gateways[provider] = gw
}

// ForProvider returns the gateway serving provider. An unknown provider
// is a permanent failure: retrying cannot make it supported
func (r *Registry) ForProvider(provider string) (Gateway, error) {
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, apperrors.Permanent(fmt.Errorf("%w: %s", apperrors.ErrUnsupportedProvider, provider))
	}

	return gw, nil
}
