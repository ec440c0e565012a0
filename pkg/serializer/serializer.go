package serializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

var (
	// ErrClosed Shutdown 之後才送進來的工作
	ErrClosed = errors.New("serializer: closed")

	// ErrWorkerDied worker goroutine 非預期結束
	ErrWorkerDied = errors.New("serializer: worker died")

	// ErrPanic 工作執行時 panic
	ErrPanic = errors.New("serializer: task panicked")

	// ErrNilTask 不接受 nil 工作
	ErrNilTask = errors.New("serializer: nil task")
)

// DefaultCapacity 預設輸送帶容量
const DefaultCapacity = 1000

// Task 一個工作單元 (unit of work)
type Task func() (any, error)

// request 工作包裝，task 為 nil 代表 poison
type request struct {
	task   Task
	handle *Handle
}

// Serializer 單一 worker 的執行佇列
//
// 所有工作依送入順序 (FIFO) 在同一個 goroutine 內一次執行一個，
// 因此工作內部存取的狀態不需要任何鎖。
//
// Submit(等待空位) -> Channel -> run loop -> Task -> Handle (Wait 收到結果)
type Serializer struct {
	// 輸送帶 負責接收工作
	tasks chan *request

	// mu 保護 closed；Submit 持讀鎖送出，Shutdown 持寫鎖送出 poison，
	// 保證 poison 之後不會再有工作進入輸送帶
	mu     sync.RWMutex
	closed bool

	// stopped 在 worker 結束時關閉，exitErr 在關閉前寫入
	stopped chan struct{}
	exitErr error

	startOnce sync.Once
	logger    *slog.Logger
}

// Option Serializer 的配置選項函數
type Option func(*Serializer)

// WithLogger 設定記錄工作錯誤用的 logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Serializer) {
		s.logger = logger
	}
}

// New 建立一個新的 Serializer (尚未啟動)
//
// 參數:
//
//	capacity: 輸送帶容量，滿了之後 Submit 會阻塞 (<= 0 時使用 DefaultCapacity)
//	opts: 可選配置
//
// 回傳:
//
//	*Serializer: Serializer 實例
func New(capacity int, opts ...Option) *Serializer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Serializer{
		tasks:   make(chan *request, capacity),
		stopped: make(chan struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 啟動 worker (非同步)，重複呼叫無效果
func (s *Serializer) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Submit 把工作放上輸送帶，回傳可等待結果的 Handle
//
// 輸送帶滿時會阻塞直到有空位、worker 結束或 ctx 結束。
//
// 參數:
//
//	ctx: 只限制排隊等待的時間
//	task: 工作
//
// 回傳:
//
//	*Handle: 結果
//	error: ErrClosed, ErrWorkerDied, ErrNilTask 或 ctx.Err()
func (s *Serializer) Submit(ctx context.Context, task Task) (*Handle, error) {
	if task == nil {
		return nil, ErrNilTask
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	// worker 已經死掉就直接失敗，不要排進一個沒人讀的輸送帶
	select {
	case <-s.stopped:
		return nil, s.exitErr
	default:
	}

	h := &Handle{done: make(chan struct{}), owner: s}
	select {
	case s.tasks <- &request{task: task, handle: h}:
		return h, nil
	case <-s.stopped:
		return nil, s.exitErr
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown 送出 poison 並等待 worker 處理完前面所有工作後結束
//
// 之後的 Submit 會回傳 ErrClosed。ctx 結束時回傳 ctx.Err()，
// 若 poison 尚未送出則可以再呼叫一次。
func (s *Serializer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		select {
		case s.tasks <- &request{}:
		case <-s.stopped:
		case <-ctx.Done():
			s.mu.Unlock()
			return ctx.Err()
		}
		s.closed = true
	}
	s.mu.Unlock()

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done worker 結束時關閉
func (s *Serializer) Done() <-chan struct{} {
	return s.stopped
}

// Err worker 結束的原因，worker 還在跑時回傳 nil
func (s *Serializer) Err() error {
	select {
	case <-s.stopped:
		return s.exitErr
	default:
		return nil
	}
}

func (s *Serializer) run() {
	exitErr := ErrWorkerDied
	defer func() {
		s.exitErr = exitErr
		close(s.stopped)
		if errors.Is(exitErr, ErrWorkerDied) {
			s.logger.Error("serializer worker died unexpectedly")
		}
	}()

	for req := range s.tasks {
		if req.task == nil {
			exitErr = ErrClosed
			return
		}
		s.execute(req)
	}
}

// execute 執行單筆工作並回傳結果
// panic 會被 recover 並回報給呼叫端，worker 繼續處理下一筆
func (s *Serializer) execute(req *request) {
	finished := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("serializer task panicked",
				"panic", r,
				"stack", string(debug.Stack()))
			req.handle.complete(nil, fmt.Errorf("%w: %v", ErrPanic, r))
			return
		}
		// runtime.Goexit: worker 即將結束
		if !finished {
			req.handle.complete(nil, ErrWorkerDied)
		}
	}()

	value, err := req.task()
	finished = true
	req.handle.complete(value, err)
}
