// Package runner 提供持续执行模式：后台循环反复驱动点击批次直到被停止。
package runner

import (
	"errors"
	"sync"
	"time"

	"github.com/zoeyai/regionclicker/internal/logger"
	"github.com/zoeyai/regionclicker/pkg/executor"
)

// ErrAlreadyRunning 持续执行已在进行中
var ErrAlreadyRunning = errors.New("持续执行已经在进行中")

// BatchExecutor 持续模式驱动的批次执行接口
type BatchExecutor interface {
	ExecuteAllContinuous() error
}

// Runner 两状态（空闲/运行中）的持续执行器。
// 同一时刻最多一个后台循环；Stop 等待在途批次完成后才返回。
type Runner struct {
	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	done     chan struct{}
	exec     BatchExecutor
	interval time.Duration
}

// New 创建 Runner，interval 为两轮批次之间的等待时间
func New(exec BatchExecutor, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{
		exec:     exec,
		interval: interval,
	}
}

// Start 启动后台循环。已在运行时返回 ErrAlreadyRunning 且不产生第二个循环。
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(r.stop, r.done)

	logger.Info("持续执行已开始 (间隔 %v)", r.interval)
	return nil
}

// loop 后台循环：执行一次完整批次，等待间隔，重复直到收到停止信号。
// 批次相对停止信号是原子的：只在批次之间检查信号。
func (r *Runner) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		if err := r.exec.ExecuteAllContinuous(); err != nil {
			if errors.Is(err, executor.ErrBusy) {
				logger.Debug("前台批次在途，本轮跳过")
			} else {
				// 单个批次的失败不终止循环，下一轮重试
				logger.Warn("本轮批次执行失败: %v", err)
			}
		}

		select {
		case <-stop:
			return
		case <-time.After(r.interval):
		}
	}
}

// Stop 停止后台循环，等待在途批次完成后返回。空闲时为无操作。
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stop)
	<-r.done

	r.running = false
	r.stop = nil
	r.done = nil

	logger.Info("已停止持续执行")
}

// Running 返回是否处于运行状态
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
