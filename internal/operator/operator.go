// Package operator holds the single canonical phone-prefix table.
// Every place that binds a number to an operator (account creation,
// transaction validation) must go through this package so the mapping
// cannot drift.
package operator

import (
	"regexp"

	"github.com/onepay-cm/onepay/internal/models"
)

const (
	MTN    = "MTN"
	Orange = "ORANGE"
	Camtel = "CAMTEL"
)

// Cameroonian mobile number: 9 digits, leading 6, second digit 2 or 5-9
var phonePattern = regexp.MustCompile(`^6[25-9][0-9]{7}$`)

// ValidFormat reports whether number is a well formed mobile number
func ValidFormat(number string) bool {
	return phonePattern.MatchString(number)
}

// Resolve maps a phone number to its operator by the second digit.
// ok is false when the prefix belongs to no known operator
func Resolve(number string) (op string, ok bool) {
	if len(number) < 2 {
		return "", false
	}

	switch number[1] {
	case '5', '7', '8':
		return MTN, true
	case '9', '6':
		return Orange, true
	case '2':
		return Camtel, true
	default:
		return "", false
	}
}

// ProviderFor maps a phone number to the mobile-money provider serving it.
// Camtel numbers have no mobile-money provider, so ok is false for them
func ProviderFor(number string) (provider string, ok bool) {
	op, ok := Resolve(number)
	if !ok {
		return "", false
	}

	switch op {
	case MTN:
		return models.ProviderMTNMoMo, true
	case Orange:
		return models.ProviderOrangeMoney, true
	default:
		return "", false
	}
}
