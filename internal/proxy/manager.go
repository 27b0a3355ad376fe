package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// Manager rotates outbound connections of the remote client across a list of
// http or socks5 proxies and caps how many are open at once.
type Manager struct {
	proxies   []*url.URL
	counter   uint64
	semaphore chan struct{}
	timeout   time.Duration
}

// NewManager parses the proxy list. If limit is not positive it defaults to the
// number of proxies.
func NewManager(proxyList []string, limit int) (*Manager, error) {
	var parsed []*url.URL

	for _, p := range proxyList {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		u, err := url.Parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL '%s': %w", p, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL '%s': scheme and host required", p)
		}
		parsed = append(parsed, u)
	}

	if limit <= 0 {
		limit = len(parsed)
		if limit == 0 {
			limit = 10 // Failsafe
		}
	}

	return &Manager{
		proxies:   parsed,
		semaphore: make(chan struct{}, limit),
		timeout:   10 * time.Second,
	}, nil
}

func (m *Manager) Next() *url.URL {
	if m == nil || len(m.proxies) == 0 {
		return nil
	}
	n := atomic.AddUint64(&m.counter, 1)
	return m.proxies[(n-1)%uint64(len(m.proxies))]
}

func (m *Manager) Enabled() bool {
	return m != nil && len(m.proxies) > 0
}

// Limit is the maximum number of concurrently open proxied connections.
func (m *Manager) Limit() int {
	return cap(m.semaphore)
}

// Transport returns an http.Transport whose connections go through the proxies.
// With no proxies configured it dials directly.
func (m *Manager) Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = m.DialContext
	return t
}
