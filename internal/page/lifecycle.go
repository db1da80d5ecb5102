package page

import (
	"context"
	"log/slog"
	"sync"

	"rdFolio/internal/apiclient"
	"rdFolio/internal/metrics"
)

// State 是页面加载状态。没有单独的错误状态：失败的区块保持为空。
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// Result 是单个请求的结算结果，成功带数据，失败带原因。
type Result[T any] struct {
	Value T
	Err   error
}

// OK 表示请求成功。
func (r Result[T]) OK() bool {
	return r.Err == nil
}

func settle[T any](ctx context.Context, fetch func(context.Context) (T, error)) Result[T] {
	value, err := fetch(ctx)
	return Result[T]{Value: value, Err: err}
}

// lifecycle 管理一次挂载内的取消令牌与代次。
// 每次 Mount 生成新代次；Unmount 或新的 Mount 之后，旧代次的结果一律丢弃。
type lifecycle struct {
	mu         sync.Mutex
	name       string
	logger     *slog.Logger
	state      State
	generation uint64
	cancel     context.CancelFunc
	unmounted  bool
}

func newLifecycle(name string, logger *slog.Logger) *lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &lifecycle{
		name:   name,
		logger: logger.With(slog.String("page", name)),
		state:  StateLoading,
	}
}

// begin 进入 loading 并返回本次挂载的上下文与代次；已卸载时 ok 为 false。
func (l *lifecycle) begin(parent context.Context) (ctx context.Context, gen uint64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unmounted {
		return nil, 0, false
	}
	if l.cancel != nil {
		// 被新的挂载取代的请求直接取消。
		l.cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.generation++
	l.state = StateLoading
	return ctx, l.generation, true
}

// commit 在持锁状态下执行 apply；代次过期或已卸载时返回 false，不修改状态。
func (l *lifecycle) commit(gen uint64, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unmounted || gen != l.generation {
		l.logger.Info("discarding late page load", slog.Uint64("generation", gen))
		return false
	}
	apply()
	l.state = StateReady
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// Unmount 取消进行中的请求，并让之后到达的结果全部作废。
func (l *lifecycle) Unmount() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.unmounted = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// State 返回当前加载状态。
func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// record 记录单个区块的结果：失败只写日志与指标，不向上抛出。
func record[T any](l *lifecycle, resource string, r Result[T], committed bool) {
	outcome := metrics.OutcomeOK
	switch {
	case !committed:
		outcome = metrics.OutcomeDiscardedLate
	case r.OK():
	default:
		outcome = metrics.OutcomeResponseErr
		if apiclient.IsTransport(r.Err) {
			outcome = metrics.OutcomeTransportErr
		}
		l.logger.Error("load page section failed",
			slog.String("resource", resource),
			slog.Any("error", r.Err),
		)
	}
	metrics.ObserveSectionLoad(l.name, resource, outcome)
}
