package db

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPDialer_ForceIPv4(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	d := newTCPDialer(time.Second, true)
	conn, err := d.DialContext(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if got := conn.RemoteAddr().Network(); got != "tcp" {
		t.Fatalf("network = %q, want tcp", got)
	}
	if ip := conn.RemoteAddr().(*net.TCPAddr).IP; ip.To4() == nil {
		t.Fatalf("remote %v is not IPv4", ip)
	}
}

func TestTCPDialer_IPv4RejectsIPv6Literal(t *testing.T) {
	d := newTCPDialer(100*time.Millisecond, true)
	if _, err := d.DialContext(context.Background(), "tcp", "[::1]:1"); err == nil {
		t.Fatal("expected tcp4 dial of an IPv6 literal to fail")
	}
}
