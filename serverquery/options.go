package serverquery

import (
	"net"
	"time"

	"go.uber.org/zap"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithBannerLines sets how many banner lines are skipped before response
// framing starts. Connect returns as soon as the first one carries the
// marker. Values below one are treated as one.
func WithBannerLines(n int) Option {
	return func(s *Session) {
		if n < 1 {
			n = 1
		}
		s.bannerLines = n
	}
}

// WithReadBufferSize sets the size of a single transport read.
func WithReadBufferSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.readBufferSize = n
		}
	}
}

// DialOption configures the transport opened by Connect.
type DialOption func(*net.Dialer)

// WithDialTimeout bounds the time to establish the TCP connection. The
// default is ConnectionTimeout; zero disables it.
func WithDialTimeout(d time.Duration) DialOption {
	return func(dialer *net.Dialer) {
		dialer.Timeout = d
	}
}

// WithKeepAlive sets the TCP keep-alive period. Negative disables
// keep-alives.
func WithKeepAlive(d time.Duration) DialOption {
	return func(dialer *net.Dialer) {
		dialer.KeepAlive = d
	}
}

// WithLocalAddr binds the local side of the connection.
func WithLocalAddr(addr net.Addr) DialOption {
	return func(dialer *net.Dialer) {
		dialer.LocalAddr = addr
	}
}
