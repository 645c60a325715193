package fraud

import (
	"context"
	"fmt"
	"time"
)

// Pattern flags.
const (
	FlagRepeatedFailedPayments = "REPEATED_FAILED_PAYMENTS"
	FlagManyFailedPayments     = "MANY_FAILED_PAYMENTS"
	FlagFrequentRefunds        = "FREQUENT_REFUNDS"
)

const (
	failureWindow          = 24 * time.Hour
	refundWindow           = 30 * 24 * time.Hour
	failedPaymentThreshold = 2
	failedPaymentSevere    = 5
	refundThreshold        = 2
)

func checkPattern(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	failures, err := h.FailedPaymentCount(ctx, pc.Email, pc.Now.Add(-failureWindow))
	if err != nil {
		return sig, fmt.Errorf("failed payments: %w", err)
	}
	switch {
	case failures > failedPaymentSevere:
		sig.add(30, FlagManyFailedPayments,
			fmt.Sprintf("%d failed payments in 24 hours", failures))
	case failures > failedPaymentThreshold:
		sig.add(15, FlagRepeatedFailedPayments,
			fmt.Sprintf("%d failed payments in 24 hours", failures))
	}

	refunds, err := h.RefundCount(ctx, pc.Email, pc.Now.Add(-refundWindow))
	if err != nil {
		return sig, fmt.Errorf("refund count: %w", err)
	}
	if refunds > refundThreshold {
		sig.add(15, FlagFrequentRefunds,
			fmt.Sprintf("%d refunds in 30 days", refunds))
	}

	return sig, nil
}
