package http

import (
	"context"
	"net"
	gohttp "net/http"
	"testing"
	"time"
)

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	p := newPortal(t)
	srv := NewServer(NewAdapter(p.accounts, p.store, DefaultConfig()), WithAddr("127.0.0.1:0"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ctx, ln) }()

	resp, err := gohttp.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}
	if got := resp.Header.Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID header missing")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeOn returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

func TestServerRunFailsOnBadAddress(t *testing.T) {
	p := newPortal(t)
	srv := NewServer(NewAdapter(p.accounts, p.store, DefaultConfig()), WithAddr("127.0.0.1:-1"))

	if err := srv.Run(context.Background()); err == nil {
		t.Fatal("Run with an invalid address returned nil")
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	p := newPortal(t)
	srv := NewServer(NewAdapter(p.accounts, p.store, DefaultConfig()),
		WithAddr(":9999"),
		WithReadTimeout(3*time.Second),
		WithWriteTimeout(4*time.Second),
		WithShutdownTimeout(10*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.httpServer.ReadTimeout != 3*time.Second {
		t.Errorf("read timeout = %v, want %v", srv.httpServer.ReadTimeout, 3*time.Second)
	}
	if srv.httpServer.WriteTimeout != 4*time.Second {
		t.Errorf("write timeout = %v, want %v", srv.httpServer.WriteTimeout, 4*time.Second)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
}
