package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/gateway"
	"github.com/onepay-cm/onepay/internal/models"
)

// FakeGateway is a scriptable gateway.Gateway. Zero value succeeds
// every operation, set the result and error fields to script behavior
type FakeGateway struct {
	mu sync.Mutex

	VerifyResult bool
	VerifyErr    error

	Balance    decimal.Decimal
	BalanceErr error

	Reference   string
	InitiateErr error

	Status    gateway.PaymentStatus
	StatusErr error

	TransferOK  bool
	TransferErr error

	AirtimeOK  bool
	AirtimeErr error

	TransferCalls int
	AirtimeCalls  int
	StatusCalls   int
	BalanceCalls  int
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway returns a gateway whose every operation succeeds
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		VerifyResult: true,
		Reference:    "ref-0001",
		TransferOK:   true,
		AirtimeOK:    true,
		Status:       gateway.PaymentStatus{Status: models.TransactionStatusCompleted},
	}
}

func (g *FakeGateway) VerifyAccount(ctx context.Context, account *models.MobileMoneyAccount) (bool, error) {
	return g.VerifyResult, g.VerifyErr
}

func (g *FakeGateway) GetBalance(ctx context.Context, account *models.MobileMoneyAccount) (decimal.Decimal, error) {
	g.mu.Lock()
	g.BalanceCalls++
	g.mu.Unlock()

	return g.Balance, g.BalanceErr
}

func (g *FakeGateway) InitiatePayment(ctx context.Context, t *models.Transaction) (string, error) {
	return g.Reference, g.InitiateErr
}

func (g *FakeGateway) CheckPaymentStatus(ctx context.Context, reference string) (gateway.PaymentStatus, error) {
	g.mu.Lock()
	g.StatusCalls++
	g.mu.Unlock()

	return g.Status, g.StatusErr
}

func (g *FakeGateway) PurchaseAirtime(ctx context.Context, t *models.Transaction) (bool, error) {
	g.mu.Lock()
	g.AirtimeCalls++
	g.mu.Unlock()

	return g.AirtimeOK, g.AirtimeErr
}

func (g *FakeGateway) TransferMoney(ctx context.Context, t *models.Transaction) (bool, error) {
	g.mu.Lock()
	g.TransferCalls++
	g.mu.Unlock()

	return g.TransferOK, g.TransferErr
}
