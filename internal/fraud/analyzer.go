package fraud

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is one signal family: pure over its inputs plus read-only
// history queries.
type CheckFunc func(ctx context.Context, pc Context, h History) (Signal, error)

type family struct {
	name  string
	check CheckFunc
}

// families is the full signal table. Adding a family is a table edit; the
// reducer never changes.
var families = []family{
	{"amount", checkAmount},
	{"velocity", checkVelocity},
	{"geographic", checkGeographic},
	{"identity", checkIdentity},
	{"device", checkDevice},
	{"pattern", checkPattern},
}

type Analyzer struct {
	history History
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Analyzer)

// WithClock fixes the reference time, for reproducible results in tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithTimeout bounds the historical queries behind one analysis.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

func NewAnalyzer(history History, opts ...Option) *Analyzer {
	a := &Analyzer{
		history: history,
		timeout: 2 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs every signal family and reduces their contributions to one
// clamped score. Families run concurrently; one family's failure costs only
// its own signal. If the deadline expires before the analysis completes the
// result degrades to medium risk / manual review rather than hanging the
// caller.
func (a *Analyzer) Analyze(ctx context.Context, pc Context) Result {
	if pc.Now.IsZero() {
		pc.Now = a.now()
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		signals  []Signal
		degraded []string
	)

	g, gctx := errgroup.WithContext(cctx)
	for _, f := range families {
		f := f
		g.Go(func() error {
			sig, err := f.check(gctx, pc, a.history)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("fraud: %s family degraded: %v", f.name, err)
				degraded = append(degraded, f.name)
				return nil
			}
			signals = append(signals, sig)
			return nil
		})
	}
	_ = g.Wait() // families never return errors

	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		sort.Strings(degraded)
		return Result{
			Score:           50,
			Level:           LevelMedium,
			Reasons:         []string{"risk analysis deadline exceeded"},
			Recommendations: []string{"queue for manual review"},
			Degraded:        degraded,
		}
	}

	return reduce(signals, degraded)
}

func reduce(signals []Signal, degraded []string) Result {
	res := Result{
		Flags:   []string{},
		Reasons: []string{},
	}
	for _, sig := range signals {
		res.Score += sig.Score
		res.Flags = append(res.Flags, sig.Flags...)
		res.Reasons = append(res.Reasons, sig.Reasons...)
	}
	if res.Score > maxScore {
		res.Score = maxScore
	}
	if res.Score < minScore {
		res.Score = minScore
	}
	sort.Strings(res.Flags)
	sort.Strings(degraded)
	res.Level = LevelForScore(res.Score)
	res.Degraded = degraded
	res.Recommendations = recommend(res.Level, res.Flags)
	return res
}

func recommend(level Level, flags []string) []string {
	var recs []string
	switch level {
	case LevelCritical:
		recs = append(recs, "block the transaction and escalate to the risk team")
	case LevelHigh:
		recs = append(recs, "hold for manual review before capture")
	case LevelMedium:
		recs = append(recs, "queue for manual review")
	default:
		recs = append(recs, "no action required")
	}

	for _, flag := range flags {
		switch flag {
		case FlagDisposableEmail:
			recs = append(recs, "require email verification before fulfillment")
		case FlagHighVelocityHour, FlagExtremeVelocityHour:
			recs = append(recs, "apply a temporary velocity limit to this identity")
		case FlagCountryMismatch:
			recs = append(recs, "verify the billing address with the cardholder")
		case FlagCardTestingAmount:
			recs = append(recs, "watch this identity for card-testing patterns")
		case FlagSuspiciousUserAgent, FlagMissingUserAgent:
			recs = append(recs, "challenge the session with a captcha")
		case FlagManyFailedPayments:
			recs = append(recs, "suspend further payment attempts for 24 hours")
		}
	}
	return recs
}
