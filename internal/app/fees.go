/**
 * @description
 * Transfer fee schedule. Fees are a deterministic, pure function of transfer type and
 * amount so that identical requests always price identically, which the idempotent
 * retry path relies on.
 */

package app

import (
	"github.com/shopspring/decimal"

	"github.com/meridianbank/transfer-service/internal/domain"
)

var (
	domesticFeeThreshold = decimal.NewFromInt(1000)
	domesticFeeLow       = decimal.NewFromInt(2)
	domesticFeeHigh      = decimal.NewFromInt(5)
	internationalFee     = decimal.NewFromInt(30)
)

// FeeFor returns the fee charged for a transfer of the given type and amount.
// Internal book transfers and Zelle operations are free; domestic external transfers
// cost $2.00 up to $1,000.00 and $5.00 above it; international transfers carry a flat
// $30.00 wire fee.
func FeeFor(transferType domain.TransferType, amount decimal.Decimal) decimal.Decimal {
	switch transferType {
	case domain.TransferTypeDomesticExternal:
		if amount.GreaterThan(domesticFeeThreshold) {
			return domesticFeeHigh
		}
		return domesticFeeLow
	case domain.TransferTypeInternational:
		return internationalFee
	default:
		return decimal.Zero
	}
}
