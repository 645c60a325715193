package fraud

import (
	"context"
	"fmt"
	"time"
)

// Geographic flags.
const (
	FlagCountryMismatch    = "COUNTRY_MISMATCH"
	FlagNewShippingCountry = "NEW_SHIPPING_COUNTRY"
)

const geoWindow = 90 * 24 * time.Hour

func checkGeographic(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	if pc.BillingCountry != "" && pc.ShippingCountry != "" && pc.BillingCountry != pc.ShippingCountry {
		sig.add(20, FlagCountryMismatch,
			fmt.Sprintf("billing country %s does not match shipping country %s",
				pc.BillingCountry, pc.ShippingCountry))
	}

	if pc.ShippingCountry == "" {
		return sig, nil
	}

	seen, err := h.ShippingCountries(ctx, pc.Email, pc.Now.Add(-geoWindow))
	if err != nil {
		return sig, fmt.Errorf("shipping countries: %w", err)
	}
	if len(seen) == 0 {
		// No history to compare against; a first order is not a signal.
		return sig, nil
	}
	for _, c := range seen {
		if c == pc.ShippingCountry {
			return sig, nil
		}
	}
	sig.add(15, FlagNewShippingCountry,
		fmt.Sprintf("shipping to %s, never seen for this identity in 90 days", pc.ShippingCountry))
	return sig, nil
}
