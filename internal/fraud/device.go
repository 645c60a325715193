package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Device flags.
const (
	FlagMissingUserAgent    = "MISSING_USER_AGENT"
	FlagSuspiciousUserAgent = "SUSPICIOUS_USER_AGENT"
	FlagIPChurn             = "IP_CHURN"
	FlagNewIP               = "NEW_IP"
)

const (
	deviceWindow     = 7 * 24 * time.Hour
	ipChurnThreshold = 5
)

var botAgentMarkers = []string{
	"headless", "phantomjs", "selenium", "puppeteer", "playwright",
	"bot", "crawler", "spider", "curl/", "wget/", "python-requests",
}

func checkDevice(ctx context.Context, pc Context, h History) (Signal, error) {
	var sig Signal

	ua := strings.ToLower(pc.UserAgent)
	if ua == "" {
		sig.add(15, FlagMissingUserAgent, "no user agent supplied")
	} else {
		for _, marker := range botAgentMarkers {
			if strings.Contains(ua, marker) {
				sig.add(25, FlagSuspiciousUserAgent,
					fmt.Sprintf("user agent looks automated (%s)", marker))
				break
			}
		}
	}

	if pc.IPAddress == "" {
		return sig, nil
	}

	ips, err := h.ClientIPs(ctx, pc.Email, pc.Now.Add(-deviceWindow))
	if err != nil {
		return sig, fmt.Errorf("client ips: %w", err)
	}
	if len(ips) > ipChurnThreshold {
		sig.add(20, FlagIPChurn,
			fmt.Sprintf("%d distinct IP addresses in 7 days", len(ips)))
	}
	if len(ips) > 0 {
		known := false
		for _, ip := range ips {
			if ip == pc.IPAddress {
				known = true
				break
			}
		}
		if !known {
			sig.add(10, FlagNewIP, "first order from this IP for a known identity")
		}
	}

	return sig, nil
}
