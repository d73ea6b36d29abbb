package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
)

// MTNMoMo talks to the MTN Mobile Money collections/disbursements API
type MTNMoMo struct {
	api    *apiClient
	logger logger.Logger
}

func NewMTNMoMo(baseURL, subscriptionKey, apiToken string, logger logger.Logger) *MTNMoMo {
	return &MTNMoMo{
		api: &apiClient{
			baseURL: baseURL,
			client:  &http.Client{},
			authorize: func(req *http.Request) {
				req.Header.Set("Ocp-Apim-Subscription-Key", subscriptionKey)
				req.Header.Set("Authorization", "Bearer "+apiToken)
			},
		},
		logger: logger,
	}
}

func (g *MTNMoMo) VerifyAccount(ctx context.Context, account *models.MobileMoneyAccount) (bool, error) {
	g.logger.Info("Verifying MTN MoMo account", "number", account.Number)

	var resp struct {
		Result bool `json:"result"`
	}
	err := g.api.doJSON(ctx, http.MethodGet, "/v1_0/accountholder/msisdn/"+account.Number+"/active", nil, &resp)
	if err != nil {
		return false, fmt.Errorf("mtn momo account check: %w", err)
	}

	return resp.Result, nil
}

func (g *MTNMoMo) GetBalance(ctx context.Context, account *models.MobileMoneyAccount) (decimal.Decimal, error) {
	g.logger.Info("Fetching MTN MoMo balance", "number", account.Number)

	var resp struct {
		AvailableBalance decimal.Decimal `json:"availableBalance"`
	}
	err := g.api.doJSON(ctx, http.MethodGet, "/v1_0/account/balance", nil, &resp)
	if err != nil {
		return decimal.Zero, fmt.Errorf("mtn momo balance: %w", err)
	}

	return resp.AvailableBalance, nil
}

func (g *MTNMoMo) InitiatePayment(ctx context.Context, t *models.Transaction) (string, error) {
	g.logger.Info("Initiating MTN MoMo payment", "transaction_id", t.ID, "amount", t.Amount, "type", t.Type)

	req := paymentRequest{
		Amount:     t.Amount,
		Recipient:  t.RecipientNumber,
		Type:       t.Type,
		ExternalID: t.ID.String(),
	}

	var resp struct {
		ReferenceID string `json:"referenceId"`
	}
	err := g.api.doJSON(ctx, http.MethodPost, "/v1_0/requesttopay", req, &resp)
	if err != nil {
		return "", fmt.Errorf("mtn momo payment init: %w", err)
	}

	return resp.ReferenceID, nil
}

func (g *MTNMoMo) CheckPaymentStatus(ctx context.Context, reference string) (PaymentStatus, error) {
	var status PaymentStatus
	err := g.api.doJSON(ctx, http.MethodGet, "/v1_0/requesttopay/"+reference, nil, &status)
	if err != nil {
		return status, fmt.Errorf("mtn momo status check: %w", err)
	}

	return status, nil
}

func (g *MTNMoMo) PurchaseAirtime(ctx context.Context, t *models.Transaction) (bool, error) {
	return g.booleanOperation(ctx, "/v1_0/airtime", t)
}

func (g *MTNMoMo) TransferMoney(ctx context.Context, t *models.Transaction) (bool, error) {
	return g.booleanOperation(ctx, "/v1_0/transfer", t)
}

func (g *MTNMoMo) booleanOperation(ctx context.Context, path string, t *models.Transaction) (bool, error) {
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
		return false, fmt.Errorf("mtn momo operation %s: %w", path, err)
	}

	if !resp.Success {
		g.logger.Warn("MTN MoMo declined operation", "transaction_id", t.ID, "message", resp.Message)
	}

	return resp.Success, nil
}
