package lookup

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// MXResolver is the part of net.Resolver used here.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// NewResolver returns a resolver that fails fast on a slow DNS server.
func NewResolver() *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{
				Timeout: 3 * time.Second,
			}
			return d.DialContext(ctx, network, address)
		},
	}
}

// CheckDNS performs the MX lookup of domain.
func CheckDNS(ctx context.Context, r MXResolver, domain string) ([]*net.MX, error) {
	mxRecords, err := r.LookupMX(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}

	if len(mxRecords) == 0 {
		return nil, fmt.Errorf("no MX records found for domain")
	}

	return mxRecords, nil
}

// IdentifyProvider names the mailbox provider behind a set of MX hosts.
func IdentifyProvider(mxRecords []*net.MX) string {
	for _, mx := range mxRecords {
		host := strings.ToLower(mx.Host)

		// 1. Enterprise Security
		if strings.Contains(host, "pphosted.com") {
			return "proofpoint"
		}
		if strings.Contains(host, "mimecast.com") {
			return "mimecast"
		}
		if strings.Contains(host, "barracudanetworks.com") {
			return "barracuda"
		}

		// 2. Big Tech
		if strings.Contains(host, "google.com") || strings.Contains(host, "googlemail.com") {
			return "google"
		}
		if strings.Contains(host, "outlook.com") || strings.Contains(host, "protection.outlook.com") {
			return "office365"
		}
	}

	return "generic"
}
