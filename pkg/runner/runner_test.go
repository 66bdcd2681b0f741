package runner

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingExecutor 统计批次次数并检测并发执行
type countingExecutor struct {
	batches    atomic.Int32
	concurrent atomic.Int32
	maxSeen    atomic.Int32
}

func (e *countingExecutor) ExecuteAllContinuous() error {
	now := e.concurrent.Add(1)
	defer e.concurrent.Add(-1)

	for {
		max := e.maxSeen.Load()
		if now <= max || e.maxSeen.CompareAndSwap(max, now) {
			break
		}
	}

	e.batches.Add(1)
	time.Sleep(5 * time.Millisecond)
	return nil
}

func TestStartAndStop(t *testing.T) {
	exec := &countingExecutor{}
	r := New(exec, 10*time.Millisecond)

	if r.Running() {
		t.Error("初始状态应为空闲")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("启动失败: %v", err)
	}
	if !r.Running() {
		t.Error("启动后应为运行状态")
	}

	time.Sleep(50 * time.Millisecond)
	r.Stop()

	if r.Running() {
		t.Error("停止后应为空闲状态")
	}
	if exec.batches.Load() == 0 {
		t.Error("运行期间应至少执行一轮批次")
	}
	t.Logf("执行了 %d 轮批次", exec.batches.Load())
}

func TestStartWhileRunning(t *testing.T) {
	exec := &countingExecutor{}
	r := New(exec, 5*time.Millisecond)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	defer r.Stop()

	// 重复启动不应产生第二个循环
	if err := r.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("重复启动应返回 ErrAlreadyRunning, 实际 %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if max := exec.maxSeen.Load(); max > 1 {
		t.Errorf("同一时刻最多一个批次在途, 实际 %d", max)
	}
}

func TestStopWhileIdle(t *testing.T) {
	r := New(&countingExecutor{}, time.Second)

	// 空闲时停止应为无操作，不 panic 不阻塞
	r.Stop()
	r.Stop()
}

// blockingExecutor 批次阻塞直到 release 关闭
type blockingExecutor struct {
	started chan struct{}
	release chan struct{}
	once    atomic.Bool
}

func (e *blockingExecutor) ExecuteAllContinuous() error {
	if e.once.CompareAndSwap(false, true) {
		close(e.started)
	}
	<-e.release
	return nil
}

func TestStopWaitsForInflightBatch(t *testing.T) {
	exec := &blockingExecutor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := New(exec, time.Second)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	<-exec.started

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	// 批次未完成时 Stop 不应返回
	select {
	case <-stopped:
		t.Fatal("Stop 应等待在途批次完成")
	case <-time.After(30 * time.Millisecond):
	}

	close(exec.release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("批次完成后 Stop 应返回")
	}
}

func TestRestartAfterStop(t *testing.T) {
	exec := &countingExecutor{}
	r := New(exec, 5*time.Millisecond)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	first := exec.batches.Load()

	if err := r.Start(); err != nil {
		t.Fatalf("停止后应可重新启动: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	if exec.batches.Load() <= first {
		t.Error("重新启动后应继续执行批次")
	}
}

func TestBatchErrorDoesNotStopLoop(t *testing.T) {
	exec := &failingExecutor{}
	r := New(exec, 5*time.Millisecond)

	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	r.Stop()

	if exec.calls.Load() < 2 {
		t.Errorf("批次失败后循环应继续, 实际调用 %d 次", exec.calls.Load())
	}
}

type failingExecutor struct {
	calls atomic.Int32
}

func (e *failingExecutor) ExecuteAllContinuous() error {
	e.calls.Add(1)
	return errors.New("模拟批次失败")
}
