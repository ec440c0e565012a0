package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a1, err := p.GetConnection("passthrough:///a:1")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	a2, _ := p.GetConnection("passthrough:///a:1")
	b, _ := p.GetConnection("passthrough:///b:1")

	if a1 != a2 {
		t.Fatal("same target should reuse the connection")
	}
	if a1 == b {
		t.Fatal("different targets should not share a connection")
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 cached connections, got %d", p.Len())
	}
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	first, _ := p.GetConnection("passthrough:///a:1")
	_ = first.Close()

	second, err := p.GetConnection("passthrough:///a:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first == second {
		t.Fatal("closed connection should be replaced")
	}
}

func TestPool_CloseEmptiesCache(t *testing.T) {
	var calls int
	p := NewPool(WithInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		calls++
		return invoker(ctx, method, req, reply, cc, opts...)
	}))
	_, _ = p.GetConnection("passthrough:///a:1")

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty pool, got %d", p.Len())
	}
	if calls != 0 {
		t.Fatalf("interceptor should only run on calls, ran %d times", calls)
	}
}
