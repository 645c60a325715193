package fraud

import (
	"context"
	"fmt"
	"time"
)

// Velocity flags.
const (
	FlagHighVelocityHour    = "HIGH_VELOCITY_HOUR"
	FlagExtremeVelocityHour = "EXTREME_VELOCITY_HOUR"
	FlagHighVelocityDay     = "HIGH_VELOCITY_DAY"
	FlagExtremeVelocityDay  = "EXTREME_VELOCITY_DAY"
	FlagRapidSuccession     = "RAPID_SUCCESSION"
)

const (
	hourOrderThreshold        = 2
	hourOrderExtremeThreshold = 5
	dayOrderThreshold         = 10
	dayOrderExtremeThreshold  = 20
	rapidSuccessionWindow     = 60 * time.Second

	perExcessOrderScore = 15
	hourVelocityCap     = 45
)

// checkVelocity counts recent orders by the same identity. Each order past
// the hourly threshold adds to the score, capped so velocity alone cannot
// saturate the scale.
func checkVelocity(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	hourCount, err := h.CountOrders(ctx, pc.Email, pc.Now.Add(-time.Hour))
	if err != nil {
		return sig, fmt.Errorf("hourly order count: %w", err)
	}
	dayCount, err := h.CountOrders(ctx, pc.Email, pc.Now.Add(-24*time.Hour))
	if err != nil {
		return sig, fmt.Errorf("daily order count: %w", err)
	}

	if hourCount > hourOrderThreshold {
		score := int(hourCount-hourOrderThreshold) * perExcessOrderScore
		if score > hourVelocityCap {
			score = hourVelocityCap
		}
		sig.add(score, FlagHighVelocityHour,
			fmt.Sprintf("%d orders in the last hour", hourCount))
	}
	if hourCount > hourOrderExtremeThreshold {
		sig.add(15, FlagExtremeVelocityHour,
			fmt.Sprintf("more than %d orders in the last hour", hourOrderExtremeThreshold))
	}
	if dayCount > dayOrderThreshold {
		sig.add(10, FlagHighVelocityDay,
			fmt.Sprintf("%d orders in the last 24 hours", dayCount))
	}
	if dayCount > dayOrderExtremeThreshold {
		sig.add(15, FlagExtremeVelocityDay,
			fmt.Sprintf("more than %d orders in the last 24 hours", dayOrderExtremeThreshold))
	}

	last, err := h.LatestOrderAt(ctx, pc.Email)
	if err != nil {
		return sig, fmt.Errorf("latest order: %w", err)
	}
	if last != nil && pc.Now.Sub(*last) >= 0 && pc.Now.Sub(*last) < rapidSuccessionWindow {
		sig.add(15, FlagRapidSuccession, "previous order placed under 60 seconds ago")
	}

	return sig, nil
}
