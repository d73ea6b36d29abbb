package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
)

// OrangeMoney talks to the Orange Money partner API
type OrangeMoney struct {
	api    *apiClient
	logger logger.Logger
}

func NewOrangeMoney(baseURL, apiKey, apiSecret string, logger logger.Logger) *OrangeMoney {
	return &OrangeMoney{
		api: &apiClient{
			baseURL: baseURL,
			client:  &http.Client{},
			authorize: func(req *http.Request) {
				req.SetBasicAuth(apiKey, apiSecret)
			},
		},
		logger: logger,
	}
}

func (g *OrangeMoney) VerifyAccount(ctx context.Context, account *models.MobileMoneyAccount) (bool, error) {
	g.logger.Info("Verifying Orange Money account", "number", account.Number)

	var resp struct {
		Active bool `json:"active"`
	}
	err := g.api.doJSON(ctx, http.MethodGet, "/api/v1/accounts/"+account.Number, nil, &resp)
	if err != nil {
		return false, fmt.Errorf("orange money account check: %w", err)
	}

	return resp.Active, nil
}

func (g *OrangeMoney) GetBalance(ctx context.Context, account *models.MobileMoneyAccount) (decimal.Decimal, error) {
	g.logger.Info("Fetching Orange Money balance", "number", account.Number)

	var resp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	err := g.api.doJSON(ctx, http.MethodGet, "/api/v1/accounts/"+account.Number+"/balance", nil, &resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("orange money balance: %w", err)
	}

	return resp.Balance, nil
}

func (g *OrangeMoney) InitiatePayment(ctx context.Context, t *models.Transaction) (string, error) {
	g.logger.Info("Initiating Orange Money payment", "transaction_id", t.ID, "amount", t.Amount, "type", t.Type)

	req := paymentRequest{
		Amount:     t.Amount,
		Recipient:  t.RecipientNumber,
		Type:       t.Type,
		ExternalID: t.ID.String(),
	}

	var resp struct {
		Reference string `json:"reference"`
	}
	err := g.api.doJSON(ctx, http.MethodPost, "/api/v1/payments", req, &resp)
	if err != nil {
		return "", fmt.Errorf("orange money payment init: %w", err)
	}

	return resp.Reference, nil
}

func (g *OrangeMoney) CheckPaymentStatus(ctx context.Context, reference string) (PaymentStatus, error) {
	var status PaymentStatus
	err := g.api.doJSON(ctx, http.MethodGet, "/api/v1/payments/"+reference, nil, &status)
	if err != nil {
		return status, fmt.Errorf("orange money status check: %w", err)
	}

	return status, nil
}

func (g *OrangeMoney) PurchaseAirtime(ctx context.Context, t *models.Transaction) (bool, error) {
	return g.booleanOperation(ctx, "/api/v1/airtime", t)
}

func (g *OrangeMoney) TransferMoney(ctx context.Context, t *models.Transaction) (bool, error) {
	return g.booleanOperation(ctx, "/api/v1/transfers", t)
}

func (g *OrangeMoney) booleanOperation(ctx context.Context, path string, t *models.Transaction) (bool, error) {
	req := paymentRequest{
		Amount:     t.Amount,
		Recipient:  t.RecipientNumber,
		Type:       t.Type,
		ExternalID: t.ID.String(),
	}

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := g.api.doJSON(ctx, http.MethodPost, path, req, &resp)
	if err != nil {
		return false, fmt.Errorf("orange money operation %s: %w", path, err)
	}

	if !resp.Success {
		g.logger.Warn("Orange Money declined operation", "transaction_id", t.ID, "message", resp.Message)
	}

	return resp.Success, nil
}

// paymentRequest is the wire payload shared by the operator clients
type paymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Recipient  string          `json:"recipient"`
	Type       string          `json:"type"`
	ExternalID string          `json:"external_id"`
}
