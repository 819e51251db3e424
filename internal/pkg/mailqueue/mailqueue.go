package mailqueue

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Send 表示一次待执行的邮件投递。
type Send func(ctx context.Context) error

// ErrorHandler 投递失败时的回调。
type ErrorHandler func(err error)

// Queue 是出站邮件的固定 worker 池。
//
// 投递是至多一次的：队列满直接丢弃，投递失败只记录不重试。
type Queue struct {
	logger       *slog.Logger
	workers      int
	sends        chan Send
	errorHandler ErrorHandler

	wg     sync.WaitGroup
	closed atomic.Bool

	stats queueStats
}

type queueStats struct {
	Enqueued atomic.Int64 // 入队总数
	Sent     atomic.Int64 // 投递成功数
	Failed   atomic.Int64 // 投递失败数
	Dropped  atomic.Int64 // 丢弃数（队列满或已关闭）
	Panics   atomic.Int64 // panic 次数
}

// Stats 队列统计信息快照。
type Stats struct {
	Enqueued int64
	Sent     int64
	Failed   int64
	Dropped  int64
	Panics   int64
}

// NewQueue 创建邮件投递队列。
func NewQueue(logger *slog.Logger, workers int, capacity int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		logger:  logger,
		workers: workers,
		sends:   make(chan Send, capacity),
	}
}

// SetErrorHandler 设置投递失败回调。
func (q *Queue) SetErrorHandler(handler ErrorHandler) {
	q.errorHandler = handler
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("mail worker stopped", slog.Int("worker_id", id))
			return

		case send, ok := <-q.sends:
			if !ok {
				q.logger.Debug("mail worker exit on closed channel", slog.Int("worker_id", id))
				return
			}
			if send != nil {
				q.deliver(ctx, send, id)
			}
		}
	}
}

func (q *Queue) deliver(ctx context.Context, send Send, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			q.stats.Panics.Add(1)
			q.logger.Error("mail send panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	if err := send(ctx); err != nil {
		q.stats.Failed.Add(1)
		q.logger.Warn("mail send failed",
			slog.Int("worker_id", workerID),
			slog.String("error", err.Error()))
		if q.errorHandler != nil {
			q.errorHandler(err)
		}
		return
	}
	q.stats.Sent.Add(1)
}

// Enqueue 非阻塞入队。队列已满或已关闭时丢弃并返回 false。
func (q *Queue) Enqueue(send Send) bool {
	if send == nil {
		return false
	}
	if q.closed.Load() {
		q.stats.Dropped.Add(1)
		q.logger.Warn("mail queue closed, drop send")
		return false
	}

	select {
	case q.sends <- send:
		q.stats.Enqueued.Add(1)
		return true
	default:
		q.stats.Dropped.Add(1)
		q.logger.Warn("mail queue full, drop send",
			slog.Int("capacity", cap(q.sends)),
			slog.Int("pending", len(q.sends)))
		return false
	}
}

// Shutdown 优雅关闭：拒绝新投递，等待 worker 完成手头的投递。
func (q *Queue) Shutdown() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.sends)
		q.wg.Wait()
		q.logger.Info("mail queue shutdown completed")
	}
}

// Stats 获取统计信息快照。
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued: q.stats.Enqueued.Load(),
		Sent:     q.stats.Sent.Load(),
		Failed:   q.stats.Failed.Load(),
		Dropped:  q.stats.Dropped.Load(),
		Panics:   q.stats.Panics.Load(),
	}
}

// Len 返回待投递数量。
func (q *Queue) Len() int {
	return len(q.sends)
}
