package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task 后台任务
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// WorkerPool 固定数量的后台协程
// 队列满时直接丢弃任务, 任务失败只记录日志, 不重试
type WorkerPool struct {
	TaskQueue chan Task
	WorkerNum int

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(workerNum int, bufferSize int, log *zap.Logger) *WorkerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		TaskQueue: make(chan Task, bufferSize),
		WorkerNum: workerNum,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Debug("worker pool started", zap.Int("workers", p.WorkerNum))
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for task := range p.TaskQueue {
		if err := task.Run(p.ctx); err != nil {
			p.log.Warn("background task failed",
				zap.Int("worker", id),
				zap.String("task", task.Name),
				zap.Error(err))
		}
	}
}

// AddTask 投递任务, 返回 false 表示队列已满或已停止
func (p *WorkerPool) AddTask(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	select {
	case p.TaskQueue <- task:
		return true
	default:
		p.log.Warn("worker pool queue full, dropping task", zap.String("task", task.Name))
		return false
	}
}

// Stop 停止接收新任务, 执行完队列中的任务后返回
func (p *WorkerPool) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.TaskQueue)
		p.mu.Unlock()
		p.wg.Wait()
		p.cancel()
	})
}
