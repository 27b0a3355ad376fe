// Package validator scores addresses for the local stand-in service. The
// checks are heuristics: syntax, static domain lists and an optional MX
// lookup. Nothing here talks SMTP.
package validator

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"vetdesk/internal/cache"
	"vetdesk/internal/lookup"
	"vetdesk/internal/models"
	"vetdesk/internal/pkg/logger"
)

// DefaultCacheTTL is how long a result is served from cache.
const DefaultCacheTTL = 15 * time.Minute

type Options struct {
	// Resolver enables the MX lookup when set.
	Resolver lookup.MXResolver
	Cache    cache.ResultCache
	CacheTTL time.Duration
}

type Checker struct {
	resolver lookup.MXResolver
	cache    cache.ResultCache
	ttl      time.Duration

	lookups atomic.Int64
	hits    atomic.Int64
}

func NewChecker(opts Options) *Checker {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Checker{resolver: opts.Resolver, cache: opts.Cache, ttl: ttl}
}

// Check scores one address. Cached results come back with FromCache set.
// The result echoes the address as given (trimmed); checks and the cache key
// use its lowercase form.
func (c *Checker) Check(ctx context.Context, email string) models.ValidationResult {
	email = strings.TrimSpace(email)
	key := Key(email)

	if c.cache != nil {
		c.lookups.Add(1)
		if r, ok := c.cache.Get(ctx, key); ok {
			c.hits.Add(1)
			hit := true
			r.Email = email
			r.FromCache = &hit
			return r
		}
	}

	start := time.Now()
	result := c.evaluate(ctx, key)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	result.ProcessingTime = &elapsed

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
			logger.Warn("cache result", "email", key, "error", err)
		}
	}
	result.Email = email
	miss := false
	result.FromCache = &miss
	return result
}

// Key is the case-folded form used for caching and duplicate detection.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c *Checker) evaluate(ctx context.Context, email string) models.ValidationResult {
	result := models.ValidationResult{Email: email}

	var s Signals
	local, domain, ok := lookup.SplitAddress(email)
	if addr, err := mail.ParseAddress(email); ok && err == nil && addr.Address == email && strings.Contains(domain, ".") {
		s.FormatOK = true
	}

	if s.FormatOK {
		s.Disposable = lookup.IsDisposableDomain(domain)
		s.Role = lookup.IsRoleAccount(email)
		s.SpamKeywords = lookup.HasSpamKeywords(local)
		s.Suspicious = len(local) >= 6 && lookup.CalculateEntropy(local) > 0.5

		if suggestion, typo := lookup.SuggestDomain(domain); typo {
			s.Typo = true
			result.Suggestion = local + "@" + suggestion
		}
		if p, free := lookup.FreeProvider(domain); free {
			result.Provider = p
		}

		if c.resolver != nil && !s.Disposable {
			s.MXChecked = true
			mx, err := lookup.CheckDNS(ctx, c.resolver, domain)
			if err == nil {
				s.HasMX = true
				sort.Slice(mx, func(i, j int) bool { return mx[i].Pref < mx[j].Pref })
				s.Parked = lookup.IsParkedDomain(mx[0].Host)
				if result.Provider == "" {
					result.Provider = lookup.IdentifyProvider(mx)
				}
			}
		}
	}

	result.Score, result.Valid, result.Reason = CalculateScore(s)
	result.Details = models.Details{
		Format:       s.FormatOK,
		MX:           s.HasMX || (s.FormatOK && !s.MXChecked && !s.Disposable),
		Disposable:   s.Disposable,
		Role:         s.Role,
		Typo:         s.Typo,
		Suspicious:   s.Suspicious,
		SpamKeywords: s.SpamKeywords,
	}
	return result
}

// HitRate is the share of cache lookups answered from cache, 0 to 1.
func (c *Checker) HitRate() float64 {
	n := c.lookups.Load()
	if n == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(n)
}
