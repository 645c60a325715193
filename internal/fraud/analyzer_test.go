package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// fakeHistory answers window queries from fixed fields. CountOrders picks the
// hourly or daily answer by the width of the requested window.
type fakeHistory struct {
	stats       AmountStats
	hourOrders  int64
	dayOrders   int64
	latestOrder *time.Time
	countries   []string
	methods     int64
	brands      int64
	ips         []string
	failures    int64
	refunds     int64

	countErr error
}

func (f *fakeHistory) OrderAmountStats(_ context.Context, _ string, _ time.Time) (AmountStats, error) {
	return f.stats, nil
}

func (f *fakeHistory) CountOrders(_ context.Context, _ string, since time.Time) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	if testNow.Sub(since) <= time.Hour {
		return f.hourOrders, nil
	}
	return f.dayOrders, nil
}

func (f *fakeHistory) LatestOrderAt(_ context.Context, _ string) (*time.Time, error) {
	if f.countErr != nil {
		return nil, f.countErr
	}
	return f.latestOrder, nil
}

func (f *fakeHistory) ShippingCountries(_ context.Context, _ string, _ time.Time) ([]string, error) {
	return f.countries, nil
}

func (f *fakeHistory) DistinctPaymentMethods(_ context.Context, _ string, _ time.Time) (int64, error) {
	return f.methods, nil
}

func (f *fakeHistory) DistinctCardBrands(_ context.Context, _ string, _ time.Time) (int64, error) {
	return f.brands, nil
}

func (f *fakeHistory) ClientIPs(_ context.Context, _ string, _ time.Time) ([]string, error) {
	return f.ips, nil
}

func (f *fakeHistory) FailedPaymentCount(_ context.Context, _ string, _ time.Time) (int64, error) {
	return f.failures, nil
}

func (f *fakeHistory) RefundCount(_ context.Context, _ string, _ time.Time) (int64, error) {
	return f.refunds, nil
}

func cleanContext() Context {
	return Context{
		OrderID:         "ord_1",
		Email:           "regular.buyer@example.com",
		Amount:          45_000,
		Currency:        "INR",
		PaymentMethod:   "card",
		BillingCountry:  "IN",
		ShippingCountry: "IN",
		IPAddress:       "203.0.113.7",
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64)",
		Now:             testNow,
	}
}

func TestLevelForScore(t *testing.T) {
	cases := []struct {
		score int
		level Level
	}{
		{0, LevelLow},
		{29, LevelLow},
		{30, LevelMedium},
		{59, LevelMedium},
		{60, LevelHigh},
		{79, LevelHigh},
		{80, LevelCritical},
		{100, LevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForScore(tc.score), "score %d", tc.score)
	}
}

func TestAnalyze_CleanHistory(t *testing.T) {
	h := &fakeHistory{ips: []string{"203.0.113.7"}}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	res := a.Analyze(context.Background(), cleanContext())

	assert.Zero(t, res.Score)
	assert.Equal(t, LevelLow, res.Level)
	assert.Empty(t, res.Flags)
	assert.Empty(t, res.Degraded)
	assert.Equal(t, []string{"no action required"}, res.Recommendations)
}

func TestAnalyze_HourlyVelocity(t *testing.T) {
	// Five orders in one hour: 15 points per order past the threshold of two,
	// capped at 45 — enough to cross into medium on its own.
	h := &fakeHistory{hourOrders: 5, dayOrders: 5, ips: []string{"203.0.113.7"}}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	res := a.Analyze(context.Background(), cleanContext())

	assert.Equal(t, 45, res.Score)
	assert.Equal(t, LevelMedium, res.Level)
	assert.Contains(t, res.Flags, FlagHighVelocityHour)
	assert.NotContains(t, res.Flags, FlagExtremeVelocityHour)
	assert.Contains(t, res.Recommendations, "apply a temporary velocity limit to this identity")
}

func TestAnalyze_ExtremeVelocity(t *testing.T) {
	h := &fakeHistory{hourOrders: 7, dayOrders: 7, ips: []string{"203.0.113.7"}}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	res := a.Analyze(context.Background(), cleanContext())

	// Hourly contribution is capped at 45; the extreme flag adds its own 15.
	assert.Equal(t, 60, res.Score)
	assert.Equal(t, LevelHigh, res.Level)
	assert.Contains(t, res.Flags, FlagHighVelocityHour)
	assert.Contains(t, res.Flags, FlagExtremeVelocityHour)
}

func TestAnalyze_RapidSuccession(t *testing.T) {
	last := testNow.Add(-30 * time.Second)
	h := &fakeHistory{latestOrder: &last, ips: []string{"203.0.113.7"}}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	res := a.Analyze(context.Background(), cleanContext())

	assert.Equal(t, 15, res.Score)
	assert.Contains(t, res.Flags, FlagRapidSuccession)
}

func TestAnalyze_ScoreClampedAt100(t *testing.T) {
	last := testNow.Add(-10 * time.Second)
	h := &fakeHistory{
		stats:       AmountStats{Count: 10, Total: 500_000, Max: 80_000},
		hourOrders:  8,
		dayOrders:   25,
		latestOrder: &last,
		countries:   []string{"IN"},
		methods:     5,
		brands:      4,
		ips:         []string{"198.51.100.1", "198.51.100.2", "198.51.100.3", "198.51.100.4", "198.51.100.5", "198.51.100.6"},
		failures:    8,
		refunds:     5,
	}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	pc := cleanContext()
	pc.Email = "x+throwaway@mailinator.com"
	pc.Amount = 5_000_000
	pc.BillingCountry = "IN"
	pc.ShippingCountry = "RO"
	pc.UserAgent = ""

	res := a.Analyze(context.Background(), pc)

	assert.Equal(t, 100, res.Score)
	assert.Equal(t, LevelCritical, res.Level)
	assert.Contains(t, res.Recommendations, "block the transaction and escalate to the risk team")
}

func TestAnalyze_FamilyFailureIsIsolated(t *testing.T) {
	h := &fakeHistory{countErr: errors.New("replica down")}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	pc := cleanContext()
	pc.UserAgent = "" // device family still fires

	res := a.Analyze(context.Background(), pc)

	assert.Equal(t, []string{"velocity"}, res.Degraded)
	assert.Equal(t, 15, res.Score)
	assert.Contains(t, res.Flags, FlagMissingUserAgent)
	assert.NotContains(t, res.Flags, FlagHighVelocityHour)
}

func TestAnalyze_Deterministic(t *testing.T) {
	last := testNow.Add(-45 * time.Second)
	h := &fakeHistory{
		stats:       AmountStats{Count: 4, Total: 100_000, Max: 40_000},
		hourOrders:  4,
		dayOrders:   4,
		latestOrder: &last,
		ips:         []string{"203.0.113.7"},
	}
	a := NewAnalyzer(h, WithClock(func() time.Time { return testNow }))

	first := a.Analyze(context.Background(), cleanContext())
	second := a.Analyze(context.Background(), cleanContext())
	assert.Equal(t, first, second)
}

// slowHistory blocks every query until the caller's deadline fires.
type slowHistory struct{}

func (slowHistory) wait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s slowHistory) OrderAmountStats(ctx context.Context, _ string, _ time.Time) (AmountStats, error) {
	return AmountStats{}, s.wait(ctx)
}
func (s slowHistory) CountOrders(ctx context.Context, _ string, _ time.Time) (int64, error) {
	return 0, s.wait(ctx)
}
func (s slowHistory) LatestOrderAt(ctx context.Context, _ string) (*time.Time, error) {
	return nil, s.wait(ctx)
}
func (s slowHistory) ShippingCountries(ctx context.Context, _ string, _ time.Time) ([]string, error) {
	return nil, s.wait(ctx)
}
func (s slowHistory) DistinctPaymentMethods(ctx context.Context, _ string, _ time.Time) (int64, error) {
	return 0, s.wait(ctx)
}
func (s slowHistory) DistinctCardBrands(ctx context.Context, _ string, _ time.Time) (int64, error) {
	return 0, s.wait(ctx)
}
func (s slowHistory) ClientIPs(ctx context.Context, _ string, _ time.Time) ([]string, error) {
	return nil, s.wait(ctx)
}
func (s slowHistory) FailedPaymentCount(ctx context.Context, _ string, _ time.Time) (int64, error) {
	return 0, s.wait(ctx)
}
func (s slowHistory) RefundCount(ctx context.Context, _ string, _ time.Time) (int64, error) {
	return 0, s.wait(ctx)
}

func TestAnalyze_TimeoutFallsBackToManualReview(t *testing.T) {
	a := NewAnalyzer(slowHistory{},
		WithClock(func() time.Time { return testNow }),
		WithTimeout(20*time.Millisecond),
	)

	res := a.Analyze(context.Background(), cleanContext())

	require.Equal(t, 50, res.Score)
	assert.Equal(t, LevelMedium, res.Level)
	assert.Equal(t, []string{"queue for manual review"}, res.Recommendations)
}
