package grpc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Pool 依目標地址快取 gRPC 連線，同一個地址只會有一條連線
type Pool struct {
	mu           sync.RWMutex
	conns        map[string]*grpc.ClientConn
	interceptors []grpc.UnaryClientInterceptor
	dialOpts     []grpc.DialOption
	keepalive    keepalive.ClientParameters
}

// PoolOption Pool 的配置選項函數
type PoolOption func(*Pool)

// WithInterceptor 加入 UnaryClientInterceptor，依加入順序串接
func WithInterceptor(interceptor grpc.UnaryClientInterceptor) PoolOption {
	return func(p *Pool) {
		p.interceptors = append(p.interceptors, interceptor)
	}
}

// WithDialOptions 附加額外的連線選項 (例如測試用的 bufconn dialer)
func WithDialOptions(opts ...grpc.DialOption) PoolOption {
	return func(p *Pool) {
		p.dialOpts = append(p.dialOpts, opts...)
	}
}

// WithKeepalive 覆寫預設的 keepalive 參數
func WithKeepalive(params keepalive.ClientParameters) PoolOption {
	return func(p *Pool) {
		p.keepalive = params
	}
}

func NewPool(opts ...PoolOption) *Pool {
	p := &Pool{
		conns: make(map[string]*grpc.ClientConn),
		keepalive: keepalive.ClientParameters{
			Time:                10 * time.Second,
			Timeout:             time.Second,
			PermitWithoutStream: true,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetConnection 取得目標地址的連線，不存在或已關閉時建立新的
//
// grpc.NewClient 是 lazy 連線，第一次呼叫 RPC 時才真正連上。
//
// 參數:
//
//	target: 目標地址 (e.g., "localhost:50051")
//
// 回傳:
//
//	*grpc.ClientConn: 連線
//	error: 建立連線失敗
func (p *Pool) GetConnection(target string) (*grpc.ClientConn, error) {
	p.mu.RLock()
	conn, ok := p.conns[target]
	p.mu.RUnlock()
	if ok && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 拿到寫鎖後再檢查一次
	if conn, ok := p.conns[target]; ok {
		if conn.GetState() != connectivity.Shutdown {
			return conn, nil
		}
		delete(p.conns, target)
	}

	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(p.keepalive),
	}
	if len(p.interceptors) > 0 {
		opts = append(opts, grpc.WithChainUnaryInterceptor(p.interceptors...))
	}
	opts = append(opts, p.dialOpts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", target, err)
	}
	p.conns[target] = conn
	return conn, nil
}

// Len 目前快取的連線數
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

// Close 關閉所有連線並清空快取
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for target, conn := range p.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", target, err))
		}
		delete(p.conns, target)
	}
	return errors.Join(errs...)
}
