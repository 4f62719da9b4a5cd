package db

import (
	"context"
	"net"
	"strings"
	"time"
)

// Dialer opens a connection handle. Implementations report transport
// lifecycle changes on the sink for as long as the handle is open.
type Dialer interface {
	Dial(ctx context.Context, cfg Config, sink EventSink) (Conn, error)
}

// Conn is an open database handle.
type Conn interface {
	Host() string
	Name() string
	Close(ctx context.Context) error
}

// EventSink receives transport events. Methods may be called from any
// goroutine and must not block.
type EventSink interface {
	Connected()
	Disconnected()
	Error(err error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, cfg Config, sink EventSink) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, cfg Config, sink EventSink) (Conn, error) {
	return f(ctx, cfg, sink)
}

// tcpDialer resolves TCP connections, optionally restricted to IPv4.
type tcpDialer struct {
	dialer    *net.Dialer
	forceIPv4 bool
}

func newTCPDialer(timeout time.Duration, forceIPv4 bool) *tcpDialer {
	return &tcpDialer{
		dialer:    &net.Dialer{Timeout: timeout, KeepAlive: 5 * time.Minute},
		forceIPv4: forceIPv4,
	}
}

func (d *tcpDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if d.forceIPv4 && strings.HasPrefix(network, "tcp") {
		network = "tcp4"
	}
	return d.dialer.DialContext(ctx, network, address)
}
