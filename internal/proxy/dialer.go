package proxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	netproxy "golang.org/x/net/proxy"

	"vetdesk/internal/pkg/logger"
)

// proxyConn wraps net.Conn so the semaphore slot is released exactly once
// when the connection closes.
type proxyConn struct {
	net.Conn
	releaseOnce sync.Once
	release     func()
}

func (pc *proxyConn) Close() error {
	pc.releaseOnce.Do(pc.release)
	return pc.Conn.Close()
}

// DialContext dials addr through the next proxy in rotation.
func (m *Manager) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	directDialer := &net.Dialer{Timeout: m.timeout}

	pURL := m.Next()
	if pURL == nil {
		return directDialer.DialContext(ctx, network, addr)
	}

	select {
	case m.semaphore <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout waiting for proxy slot: %w", ctx.Err())
	}
	release := func() { <-m.semaphore }

	pdialer, err := netproxy.FromURL(pURL, directDialer)
	if err != nil {
		release()
		return nil, fmt.Errorf("proxy %s: %w", pURL.Host, err)
	}

	start := time.Now()
	var conn net.Conn
	if cdialer, ok := pdialer.(netproxy.ContextDialer); ok {
		conn, err = cdialer.DialContext(ctx, network, addr)
	} else {
		conn, err = pdialer.Dial(network, addr)
	}
	if err != nil {
		release()
		logger.Debug("proxy dial failed", "proxy", pURL.Host, "addr", addr, "took", time.Since(start), "error", err)
		return nil, err
	}

	logger.Debug("proxy dial ok", "proxy", pURL.Host, "addr", addr, "took", time.Since(start))
	return &proxyConn{Conn: conn, release: release}, nil
}
