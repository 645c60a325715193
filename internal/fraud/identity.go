package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Identity flags.
const (
	FlagDisposableEmail    = "DISPOSABLE_EMAIL"
	FlagEmailAlias         = "EMAIL_ALIAS"
	FlagShortEmailLocal    = "SHORT_EMAIL_LOCALPART"
	FlagManyPaymentMethods = "MANY_PAYMENT_METHODS"
	FlagManyCardBrands     = "MANY_CARD_BRANDS"
)

const (
	identityWindow         = 30 * 24 * time.Hour
	paymentMethodThreshold = 3
	cardBrandThreshold     = 2
	minEmailLocalLen       = 3
)

var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"temp-mail.org":     true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"getnada.com":       true,
	"trashmail.com":     true,
	"sharklasers.com":   true,
}

func checkIdentity(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	local, domain, ok := splitEmail(pc.Email)
	if ok {
		if disposableDomains[domain] {
			sig.add(30, FlagDisposableEmail,
				fmt.Sprintf("disposable email domain %s", domain))
		}
		if strings.Contains(local, "+") {
			sig.add(10, FlagEmailAlias, "email address uses aliasing")
		}
		if len(local) < minEmailLocalLen {
			sig.add(10, FlagShortEmailLocal, "anomalously short email local part")
		}
	}

	methods, err := h.DistinctPaymentMethods(ctx, pc.Email, pc.Now.Add(-identityWindow))
	if err != nil {
		return sig, fmt.Errorf("payment methods: %w", err)
	}
	if methods > paymentMethodThreshold {
		sig.add(20, FlagManyPaymentMethods,
			fmt.Sprintf("%d distinct payment methods in 30 days", methods))
	}

	brands, err := h.DistinctCardBrands(ctx, pc.Email, pc.Now.Add(-identityWindow))
	if err != nil {
		return sig, fmt.Errorf("card brands: %w", err)
	}
	if brands > cardBrandThreshold {
		sig.add(15, FlagManyCardBrands,
			fmt.Sprintf("%d distinct card brands in 30 days", brands))
	}

	return sig, nil
}

func splitEmail(email string) (local, domain string, ok bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return strings.ToLower(email[:at]), strings.ToLower(email[at+1:]), true
}
