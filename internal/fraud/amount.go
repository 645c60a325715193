package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Amount anomaly flags.
const (
	FlagAmount5xAverage   = "AMOUNT_5X_AVERAGE"
	FlagAmount10xAverage  = "AMOUNT_10X_AVERAGE"
	FlagRoundLargeAmount  = "ROUND_LARGE_AMOUNT"
	FlagVeryHighAmount    = "VERY_HIGH_AMOUNT"
	FlagCardTestingAmount = "CARD_TESTING_AMOUNT"
)

const (
	amountWindow = 30 * 24 * time.Hour

	// Minor units. ₹5,000 and above counts as "large" for the round-amount
	// check; ₹25,000 as very high in absolute terms; ₹10 and below looks
	// like card testing.
	roundAmountFloor   = 500_000
	roundAmountStep    = 100_000
	veryHighAmount     = 2_500_000
	cardTestingCeiling = 1_000
)

// checkAmount compares the attempt amount against the requester's trailing
// 30-day history and absolute heuristics.
func checkAmount(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	stats, err := h.OrderAmountStats(ctx, pc.Email, pc.Now.Add(-amountWindow))
	if err != nil {
		return sig, fmt.Errorf("amount stats: %w", err)
	}

	amount := decimal.NewFromInt(pc.Amount)
	if stats.Count > 0 && stats.Total > 0 {
		avg := decimal.NewFromInt(stats.Total).Div(decimal.NewFromInt(stats.Count))
		if avg.IsPositive() {
			ratio := amount.Div(avg)
			switch {
			case ratio.GreaterThan(decimal.NewFromInt(10)):
				sig.add(30, FlagAmount10xAverage,
					fmt.Sprintf("amount is %s times the 30-day average", ratio.Round(1)))
			case ratio.GreaterThan(decimal.NewFromInt(5)):
				sig.add(20, FlagAmount5xAverage,
					fmt.Sprintf("amount is %s times the 30-day average", ratio.Round(1)))
			}
		}
	}

	if pc.Amount >= roundAmountFloor && pc.Amount%roundAmountStep == 0 {
		sig.add(10, FlagRoundLargeAmount, "suspiciously round large amount")
	}
	if pc.Amount >= veryHighAmount {
		sig.add(15, FlagVeryHighAmount, "very high absolute amount")
	}
	if pc.Amount > 0 && pc.Amount <= cardTestingCeiling {
		sig.add(10, FlagCardTestingAmount, "very low amount typical of card testing")
	}

	return sig, nil
}
