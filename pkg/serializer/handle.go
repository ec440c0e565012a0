package serializer

import "context"

// Handle 一筆已送出工作的結果
type Handle struct {
	done  chan struct{}
	value any
	err   error
	owner *Serializer
}

func (h *Handle) complete(value any, err error) {
	h.value = value
	h.err = err
	close(h.done)
}

// Done 工作完成時關閉
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait 等待工作結果
//
// ctx 結束只代表「不再等待」，工作仍可能已經或稍後被執行。
//
// 回傳:
//
//	any: 工作回傳值
//	error: 工作回傳的錯誤、ctx.Err()，或 worker 結束原因
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.owner.stopped:
		// worker 結束前可能剛好完成這筆
		select {
		case <-h.done:
			return h.value, h.err
		default:
			return nil, h.owner.exitErr
		}
	}
}
