package utils

import (
	"sync"

	"go.uber.org/zap"
)

// WorkerPool 通用协程池
// Bounded async executor for post-commit fan-out work. A panicking job never
// takes its worker down.
type WorkerPool struct {
	jobQueue  chan func()
	workerNum int
	wg        sync.WaitGroup
	quit      chan struct{}
	logger    *zap.Logger
}

func NewWorkerPool(workerNum, queueSize int, logger *zap.Logger) *WorkerPool {
	return &WorkerPool{
		jobQueue:  make(chan func(), queueSize),
		workerNum: workerNum,
		quit:      make(chan struct{}),
		logger:    logger,
	}
}

// Start 启动协程池
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerNum; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobQueue:
					func() {
						defer func() {
							if r := recover(); r != nil {
								p.logger.Error("worker recovered from panic",
									zap.Int("worker_id", workerID),
									zap.Any("panic", r),
								)
							}
						}()
						job()
					}()
				case <-p.quit:
					return
				}
			}
		}(i)
	}
	p.logger.Info("worker pool started", zap.Int("workers", p.workerNum))
}

// Submit blocks until the job is queued rather than rejecting it.
func (p *WorkerPool) Submit(job func()) {
	p.jobQueue <- job
}

// Stop 停止协程池
func (p *WorkerPool) Stop() {
	close(p.quit)
	p.wg.Wait()
}
