// Package fraud scores payment attempts for risk. Six independent signal
// families each contribute a structured delta; a single reducer sums and
// clamps the total and maps it to a level. A family that fails contributes
// zero signal and is recorded as degraded, never propagated as a fatal
// error.
package fraud

import (
	"context"
	"time"
)

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Level thresholds over the clamped 0–100 score.
const (
	criticalThreshold = 80
	highThreshold     = 60
	mediumThreshold   = 30
)

const (
	minScore = 0
	maxScore = 100
)

// LevelForScore is the pure mapping from clamped score to level.
func LevelForScore(score int) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Context carries everything known about one payment attempt. Now is the
// reference time for window queries; the analyzer fills it from its clock
// when zero, keeping results reproducible in tests.
type Context struct {
	OrderID         string
	Email           string
	Amount          int64 // minor units
	Currency        string
	PaymentMethod   string
	CardBrand       string
	BillingCountry  string
	ShippingCountry string
	IPAddress       string
	UserAgent       string
	Now             time.Time
}

// Signal is one family's structured contribution.
type Signal struct {
	Score   int
	Flags   []string
	Reasons []string
}

func (s *Signal) add(score int, flag, reason string) {
	s.Score += score
	s.Flags = append(s.Flags, flag)
	s.Reasons = append(s.Reasons, reason)
}

// Result is immutable once computed; it is persisted through the audit log,
// not as a mutable entity.
type Result struct {
	Score           int      `json:"score"`
	Level           Level    `json:"level"`
	Flags           []string `json:"flags"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
	// Degraded lists signal families that errored and contributed nothing.
	Degraded []string `json:"degraded,omitempty"`
}

// AmountStats summarizes a requester's trailing order amounts, in minor
// units.
type AmountStats struct {
	Count int64
	Total int64
	Max   int64
}

// History is the read-only query surface the signal families draw on.
// Implemented by repository.HistoryRepository.
type History interface {
	OrderAmountStats(ctx context.Context, email string, since time.Time) (AmountStats, error)
	CountOrders(ctx context.Context, email string, since time.Time) (int64, error)
	LatestOrderAt(ctx context.Context, email string) (*time.Time, error)
	ShippingCountries(ctx context.Context, email string, since time.Time) ([]string, error)
	DistinctPaymentMethods(ctx context.Context, email string, since time.Time) (int64, error)
	DistinctCardBrands(ctx context.Context, email string, since time.Time) (int64, error)
	ClientIPs(ctx context.Context, email string, since time.Time) ([]string, error)
	FailedPaymentCount(ctx context.Context, email string, since time.Time) (int64, error)
	RefundCount(ctx context.Context, email string, since time.Time) (int64, error)
}
