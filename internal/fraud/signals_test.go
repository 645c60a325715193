package fraud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("card testing amount", func(t *testing.T) {
		pc := cleanContext()
		pc.Amount = 100
		sig, err := checkAmount(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Equal(t, 10, sig.Score)
		assert.Equal(t, []string{FlagCardTestingAmount}, sig.Flags)
	})

	t.Run("multiple of trailing average", func(t *testing.T) {
		pc := cleanContext()
		pc.Amount = 600_000
		h := &fakeHistory{stats: AmountStats{Count: 5, Total: 500_000, Max: 120_000}}
		sig, err := checkAmount(ctx, pc, h)
		require.NoError(t, err)
		// 6x the average trips the 5x flag plus the round-amount heuristic.
		assert.Contains(t, sig.Flags, FlagAmount5xAverage)
		assert.Contains(t, sig.Flags, FlagRoundLargeAmount)
		assert.Equal(t, 30, sig.Score)
	})

	t.Run("no history no ratio signal", func(t *testing.T) {
		pc := cleanContext()
		pc.Amount = 600_000
		sig, err := checkAmount(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.NotContains(t, sig.Flags, FlagAmount5xAverage)
		assert.NotContains(t, sig.Flags, FlagAmount10xAverage)
	})
}

func TestCheckIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("disposable alias", func(t *testing.T) {
		pc := cleanContext()
		pc.Email = "a+promo@yopmail.com"
		sig, err := checkIdentity(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Contains(t, sig.Flags, FlagDisposableEmail)
		assert.Contains(t, sig.Flags, FlagEmailAlias)
		assert.Equal(t, 40, sig.Score)
	})

	t.Run("short local part", func(t *testing.T) {
		pc := cleanContext()
		pc.Email = "xy@example.com"
		sig, err := checkIdentity(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagShortEmailLocal}, sig.Flags)
	})

	t.Run("method and brand churn", func(t *testing.T) {
		sig, err := checkIdentity(ctx, cleanContext(), &fakeHistory{methods: 4, brands: 3})
		require.NoError(t, err)
		assert.Contains(t, sig.Flags, FlagManyPaymentMethods)
		assert.Contains(t, sig.Flags, FlagManyCardBrands)
		assert.Equal(t, 35, sig.Score)
	})
}

func TestCheckGeographic(t *testing.T) {
	ctx := context.Background()

	t.Run("billing shipping mismatch", func(t *testing.T) {
		pc := cleanContext()
		pc.BillingCountry = "IN"
		pc.ShippingCountry = "AE"
		sig, err := checkGeographic(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Contains(t, sig.Flags, FlagCountryMismatch)
	})

	t.Run("new country needs prior history", func(t *testing.T) {
		pc := cleanContext()
		pc.ShippingCountry = "AE"
		pc.BillingCountry = "AE"

		sig, err := checkGeographic(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Empty(t, sig.Flags)

		sig, err = checkGeographic(ctx, pc, &fakeHistory{countries: []string{"IN", "LK"}})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagNewShippingCountry}, sig.Flags)
	})
}

func TestCheckDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("automated user agent", func(t *testing.T) {
		pc := cleanContext()
		pc.UserAgent = "python-requests/2.31.0"
		sig, err := checkDevice(ctx, pc, &fakeHistory{})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagSuspiciousUserAgent}, sig.Flags)
		assert.Equal(t, 25, sig.Score)
	})

	t.Run("new ip for known identity", func(t *testing.T) {
		pc := cleanContext()
		pc.IPAddress = "198.51.100.99"
		sig, err := checkDevice(ctx, pc, &fakeHistory{ips: []string{"203.0.113.7", "203.0.113.8"}})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagNewIP}, sig.Flags)
	})

	t.Run("ip churn", func(t *testing.T) {
		pc := cleanContext()
		sig, err := checkDevice(ctx, pc, &fakeHistory{ips: []string{
			"198.51.100.1", "198.51.100.2", "198.51.100.3",
			"198.51.100.4", "198.51.100.5", "203.0.113.7",
		}})
		require.NoError(t, err)
		assert.Contains(t, sig.Flags, FlagIPChurn)
		// The requester's own IP is among the six, so no new-IP flag.
		assert.NotContains(t, sig.Flags, FlagNewIP)
	})
}

func TestCheckPattern(t *testing.T) {
	ctx := context.Background()

	t.Run("failure tiers", func(t *testing.T) {
		sig, err := checkPattern(ctx, cleanContext(), &fakeHistory{failures: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagRepeatedFailedPayments}, sig.Flags)
		assert.Equal(t, 15, sig.Score)

		sig, err = checkPattern(ctx, cleanContext(), &fakeHistory{failures: 6})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagManyFailedPayments}, sig.Flags)
		assert.Equal(t, 30, sig.Score)
	})

	t.Run("frequent refunds", func(t *testing.T) {
		sig, err := checkPattern(ctx, cleanContext(), &fakeHistory{refunds: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{FlagFrequentRefunds}, sig.Flags)
	})
}

func TestSplitEmail(t *testing.T) {
	local, domain, ok := splitEmail("Buyer+Tag@Example.COM")
	require.True(t, ok)
	assert.Equal(t, "buyer+tag", local)
	assert.Equal(t, "example.com", domain)

	for _, bad := range []string{"", "no-at-sign", "@example.com", "user@"} {
		_, _, ok := splitEmail(bad)
		assert.False(t, ok, "%q", bad)
	}
}
