package transaction

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/onepay-cm/onepay/internal/logger"
	"github.com/onepay-cm/onepay/internal/models"
	"github.com/onepay-cm/onepay/internal/operator"
	"github.com/onepay-cm/onepay/internal/repository"
	"github.com/onepay-cm/onepay/internal/service/limits"
)

var (
	// Per-transaction amount bounds in FCFA
	MinAmount = decimal.NewFromInt(500)
	MaxAmount = decimal.NewFromInt(500_000)
)

// Validator runs every business rule over a transaction and reports the
// full violation list. Rule failures are data, not errors: the error
// return is reserved for infrastructure faults (database, cache)
type Validator struct {
	storage repository.Storage
	limits  *limits.Tracker
	logger  logger.Logger
}

func NewValidator(storage repository.Storage, tracker *limits.Tracker, logger logger.Logger) *Validator {
	return &Validator{
		storage: storage,
		limits:  tracker,
		logger:  logger,
	}
}

// Validate runs all checks independently and returns every violation
// found. When the context carries the message-transaction storage, limit
// totals are recomputed from the database inside that transaction instead
// of read from the cache
func (v *Validator) Validate(ctx context.Context, t *models.Transaction) ([]Violation, error) {
	var violations []Violation

	violations = append(violations, v.checkAmount(t)...)
	violations = append(violations, v.checkRecipient(t)...)

	limitViolations, err := v.checkLimits(ctx, t)
	if err != nil {
		return nil, err
	}
	violations = append(violations, limitViolations...)

	violations = append(violations, v.checkSourceAccount(t)...)

	return violations, nil
}

func (v *Validator) checkAmount(t *models.Transaction) []Violation {
	var violations []Violation

	if t.Amount.LessThan(MinAmount) {
		violations = append(violations, Violation{
			Code:    CodeAmountTooLow,
			Message: fmt.Sprintf("minimum transaction amount is %s FCFA", MinAmount),
			Params:  Params{Min: dec(MinAmount)},
		})
	}

	if t.Amount.GreaterThan(MaxAmount) {
		violations = append(violations, Violation{
			Code:    CodeAmountTooHigh,
			Message: fmt.Sprintf("maximum transaction amount is %s FCFA", MaxAmount),
			Params:  Params{Max: dec(MaxAmount)},
		})
	}

	return violations
}

func (v *Validator) checkRecipient(t *models.Transaction) []Violation {
	if !operator.ValidFormat(t.RecipientNumber) {
		return []Violation{{
			Code:    CodeInvalidPhoneFormat,
			Message: "recipient number must start with 6 and have 9 digits",
			Params:  Params{Number: t.RecipientNumber},
		}}
	}

	expected, ok := operator.Resolve(t.RecipientNumber)
	if !ok || expected != t.Operator {
		return []Violation{{
			Code:    CodeInvalidOperator,
			Message: "operator does not match the recipient number",
			Params:  Params{Number: t.RecipientNumber, Operator: t.Operator},
		}}
	}

	return nil
}

func (v *Validator) checkLimits(ctx context.Context, t *models.Transaction) ([]Violation, error) {
	var violations []Violation

	// Inside the message transaction the totals must come from the same
	// database snapshot the debit commits against
	storage, inTx := repository.StorageFromContext(ctx)
	if !inTx {
		storage = v.storage
	}
	repo := storage.Transactions()

	var (
		dailyTotal, monthlyTotal decimal.Decimal
		err                      error
	)
	if inTx {
		dailyTotal, err = v.limits.FreshDailyTotal(ctx, repo, t.UserID)
	} else {
		dailyTotal, err = v.limits.DailyTotal(ctx, repo, t.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("daily total: %w", err)
	}

	if inTx {
		monthlyTotal, err = v.limits.FreshMonthlyTotal(ctx, repo, t.UserID)
	} else {
		monthlyTotal, err = v.limits.MonthlyTotal(ctx, repo, t.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("monthly total: %w", err)
	}

	if dailyTotal.Add(t.Amount).GreaterThan(limits.DailyLimit) {
		violations = append(violations, Violation{
			Code:    CodeDailyLimitExceeded,
			Message: fmt.Sprintf("daily limit of %s FCFA exceeded", limits.DailyLimit),
			Params:  Params{Limit: dec(limits.DailyLimit), Current: dec(dailyTotal), Requested: dec(t.Amount)},
		})
	}

	if monthlyTotal.Add(t.Amount).GreaterThan(limits.MonthlyLimit) {
		violations = append(violations, Violation{
			Code:    CodeMonthlyLimitExceeded,
			Message: fmt.Sprintf("monthly limit of %s FCFA exceeded", limits.MonthlyLimit),
			Params:  Params{Limit: dec(limits.MonthlyLimit), Current: dec(monthlyTotal), Requested: dec(t.Amount)},
		})
	}

	return violations, nil
}

func (v *Validator) checkSourceAccount(t *models.Transaction) []Violation {
	account := t.SourceAccount
	if account == nil {
		return []Violation{{
			Code:    CodeMissingSourceAccount,
			Message: "source account is not set",
		}}
	}

	var violations []Violation

	if !account.IsVerified {
		violations = append(violations, Violation{
			Code:    CodeUnverifiedAccount,
			Message: "source account is not verified",
		})
	}

	required := t.TotalAmount()
	available := decimal.Zero
	if account.Balance != nil {
		available = *account.Balance
	}

	if available.LessThan(required) {
		violations = append(violations, Violation{
			Code:    CodeInsufficientBalance,
			Message: "insufficient balance on source account",
			Params:  Params{Required: dec(required), Available: dec(available)},
		})
	}

	return violations
}
