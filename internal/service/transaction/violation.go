package transaction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ViolationCode string

const (
	CodeAmountTooLow         ViolationCode = "AMOUNT_TOO_LOW"
	CodeAmountTooHigh        ViolationCode = "AMOUNT_TOO_HIGH"
	CodeInvalidPhoneFormat   ViolationCode = "INVALID_PHONE_FORMAT"
	CodeInvalidOperator      ViolationCode = "INVALID_OPERATOR"
	CodeDailyLimitExceeded   ViolationCode = "DAILY_LIMIT_EXCEEDED"
	CodeMonthlyLimitExceeded ViolationCode = "MONTHLY_LIMIT_EXCEEDED"
	CodeMissingSourceAccount ViolationCode = "MISSING_SOURCE_ACCOUNT"
	CodeUnverifiedAccount    ViolationCode = "UNVERIFIED_ACCOUNT"
	CodeInsufficientBalance  ViolationCode = "INSUFFICIENT_BALANCE"
)

// Params carries the typed parameters of a violation. Only the fields
// relevant to the code are set
type Params struct {
	Min       *decimal.Decimal `json:"min,omitempty"`
	Max       *decimal.Decimal `json:"max,omitempty"`
	Limit     *decimal.Decimal `json:"limit,omitempty"`
	Current   *decimal.Decimal `json:"current,omitempty"`
	Requested *decimal.Decimal `json:"requested,omitempty"`
	Required  *decimal.Decimal `json:"required,omitempty"`
	Available *decimal.Decimal `json:"available,omitempty"`
	Number    string           `json:"number,omitempty"`
	Operator  string           `json:"operator,omitempty"`
}

// Violation is one failed business rule. A transaction is valid exactly
// when its violation list is empty
type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
	Params  Params        `json:"parameters"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

func dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}
