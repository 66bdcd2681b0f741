package executor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/zoeyai/regionclicker/pkg/store"
)

func makeTestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 99, A: 255})
		}
	}
	return img
}

// fakeCapturer 返回固定图像，可记录调用
type fakeCapturer struct {
	regionErr error
	captured  [][4]int
}

func (c *fakeCapturer) CaptureRegion(x, y, w, h int) (image.Image, error) {
	c.captured = append(c.captured, [4]int{x, y, w, h})
	if c.regionErr != nil {
		return nil, c.regionErr
	}
	return makeTestImage(w, h), nil
}

func (c *fakeCapturer) CaptureScreen() (image.Image, error) {
	return makeTestImage(200, 100), nil
}

// fakeRecognizer 按调用顺序返回预设文字
type fakeRecognizer struct {
	texts []string
	err   error
	calls int
}

func (r *fakeRecognizer) GetAllText(img image.Image) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	text := ""
	if r.calls < len(r.texts) {
		text = r.texts[r.calls]
	}
	r.calls++
	return text, nil
}

type point struct{ X, Y int }

// fakePointer 记录移动和点击位置
type fakePointer struct {
	x, y   int
	moves  []point
	clicks []point
}

func (p *fakePointer) MoveTo(x, y int) {
	p.x, p.y = x, y
	p.moves = append(p.moves, point{x, y})
}

func (p *fakePointer) Click() {
	p.clicks = append(p.clicks, point{p.x, p.y})
}

func (p *fakePointer) Location() (int, int) {
	return p.x, p.y
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.NewStore(filepath.Join(t.TempDir(), "saved_captures.json"))
}

// fastOptions 去掉测试中不需要的等待
func fastOptions(c Capturer, r Recognizer, p Pointer) []Option {
	return []Option{
		WithCapturer(c), WithRecognizer(r), WithPointer(p),
		WithClickPause(0), WithMismatchPause(0), WithSettleDelay(0),
	}
}

func TestExecuteAllMatchClicksCenter(t *testing.T) {
	st := newTestStore(t)
	region, err := st.Add(10, 10, 50, 20, makeTestImage(50, 20), "Go")
	if err != nil {
		t.Fatal(err)
	}
	region.ClickCount = 2

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"Go"}}
	pointer := &fakePointer{x: 500, y: 400}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatalf("批次执行失败: %v", err)
	}

	// 按存储边界精确截取
	if len(capturer.captured) != 1 || capturer.captured[0] != [4]int{10, 10, 50, 20} {
		t.Errorf("截取区域错误: %v", capturer.captured)
	}

	// 恰好 click_count 次点击，位置为整数中心 (35,20)
	if len(pointer.clicks) != 2 {
		t.Fatalf("应点击 2 次, 实际 %d 次", len(pointer.clicks))
	}
	for i, c := range pointer.clicks {
		if c.X != 35 || c.Y != 20 {
			t.Errorf("第 %d 次点击位置错误: (%d,%d)", i+1, c.X, c.Y)
		}
	}

	// 批次结束后鼠标恢复到初始位置
	if pointer.x != 500 || pointer.y != 400 {
		t.Errorf("鼠标未恢复: (%d,%d)", pointer.x, pointer.y)
	}
}

func TestExecuteAllMismatchSkips(t *testing.T) {
	st := newTestStore(t)
	st.Add(10, 10, 50, 20, makeTestImage(50, 20), "Go")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"Stop"}}
	pointer := &fakePointer{x: 500, y: 400}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatalf("不匹配应为正常跳过而非错误: %v", err)
	}

	if len(pointer.clicks) != 0 {
		t.Errorf("不匹配时不应点击, 实际 %d 次", len(pointer.clicks))
	}
}

func TestExecuteAllTrimmedCompare(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "  登录  ")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"\n登录 "}}
	pointer := &fakePointer{}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatal(err)
	}

	if len(pointer.clicks) != 1 {
		t.Errorf("去空白后相等应点击, 实际 %d 次", len(pointer.clicks))
	}
}

func TestExecuteAllStoreOrder(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "一")
	st.Add(100, 0, 10, 10, makeTestImage(10, 10), "二")
	st.Add(200, 0, 10, 10, makeTestImage(10, 10), "三")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"一", "二", "三"}}
	pointer := &fakePointer{}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatal(err)
	}

	if len(capturer.captured) != 3 {
		t.Fatalf("应按顺序处理 3 个区域, 实际 %d", len(capturer.captured))
	}
	wantX := []int{0, 100, 200}
	for i, cap := range capturer.captured {
		if cap[0] != wantX[i] {
			t.Errorf("第 %d 个区域处理顺序错误: x=%d", i+1, cap[0])
		}
	}
}

func TestExecuteAllAbortsOnRecognizeError(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "一")
	st.Add(100, 0, 10, 10, makeTestImage(10, 10), "二")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{err: fmt.Errorf("识别器不可用")}
	pointer := &fakePointer{x: 7, y: 9}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err == nil {
		t.Fatal("识别失败应中止批次")
	}

	// 中止后只截取了第一个区域
	if len(capturer.captured) != 1 {
		t.Errorf("中止后不应继续处理后续区域: %d", len(capturer.captured))
	}

	// 出错时鼠标位置仍应恢复
	if pointer.x != 7 || pointer.y != 9 {
		t.Errorf("出错后鼠标未恢复: (%d,%d)", pointer.x, pointer.y)
	}
}

func TestExecuteOne(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "一")
	st.Add(100, 50, 30, 10, makeTestImage(30, 10), "二")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"二"}}
	pointer := &fakePointer{}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteOne(1); err != nil {
		t.Fatalf("单区域执行失败: %v", err)
	}

	if len(capturer.captured) != 1 || capturer.captured[0] != [4]int{100, 50, 30, 10} {
		t.Errorf("应只处理指定区域: %v", capturer.captured)
	}
	if len(pointer.clicks) != 1 {
		t.Errorf("应点击 1 次, 实际 %d", len(pointer.clicks))
	}
}

func TestExecuteOneOutOfRange(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "唯一")

	e := New(st, fastOptions(&fakeCapturer{}, &fakeRecognizer{}, &fakePointer{})...)

	for _, index := range []int{-1, 1, 99} {
		err := e.ExecuteOne(index)
		if !errors.Is(err, store.ErrIndexOutOfRange) {
			t.Errorf("索引 %d 应返回越界错误, 实际 %v", index, err)
		}
	}
}

func TestExecutorDoesNotMutateStore(t *testing.T) {
	st := newTestStore(t)
	original := makeTestImage(10, 10)
	st.Add(0, 0, 10, 10, original, "记录文字")

	capturer := &fakeCapturer{}
	recognizer := &fakeRecognizer{texts: []string{"完全不同的文字"}}
	pointer := &fakePointer{}

	e := New(st, fastOptions(capturer, recognizer, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatal(err)
	}

	region, _ := st.Get(0)
	if region.OCRText != "记录文字" {
		t.Errorf("执行器不应更新记录文字: %s", region.OCRText)
	}
	if region.Image != original {
		t.Error("执行器不应替换参考图像")
	}
}

func TestBatchExclusivity(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "Go")

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &blockingRecognizer{started: started, release: release}

	pointer := &fakePointer{}
	e := New(st, fastOptions(&fakeCapturer{}, blocking, pointer)...)

	done := make(chan error, 1)
	go func() { done <- e.ExecuteAll() }()

	<-started

	// 第一批在途时第二次触发应立即返回 ErrBusy
	if err := e.ExecuteAll(); !errors.Is(err, ErrBusy) {
		t.Errorf("并发批次应返回 ErrBusy, 实际 %v", err)
	}
	if err := e.ExecuteOne(0); !errors.Is(err, ErrBusy) {
		t.Errorf("并发单区域执行应返回 ErrBusy, 实际 %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("第一批执行失败: %v", err)
	}
}

// blockingRecognizer 阻塞直到 release 关闭，用于模拟在途批次
type blockingRecognizer struct {
	started chan struct{}
	release chan struct{}
	once    bool
}

func (r *blockingRecognizer) GetAllText(img image.Image) (string, error) {
	if !r.once {
		r.once = true
		close(r.started)
	}
	<-r.release
	return "Go", nil
}

func TestRequireProcessGate(t *testing.T) {
	orig := processExists
	defer func() { processExists = orig }()
	processExists = func(name string) (bool, error) { return false, nil }

	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "Go")

	capturer := &fakeCapturer{}
	pointer := &fakePointer{}
	opts := append(fastOptions(capturer, &fakeRecognizer{texts: []string{"Go"}}, pointer),
		WithRequireProcess("notepad"))

	e := New(st, opts...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatalf("进程不存活应跳过批次而非报错: %v", err)
	}
	if len(capturer.captured) != 0 || len(pointer.clicks) != 0 {
		t.Error("进程不存活时不应截取或点击")
	}

	// 进程存活时正常执行
	processExists = func(name string) (bool, error) { return true, nil }
	if err := e.ExecuteAll(); err != nil {
		t.Fatal(err)
	}
	if len(pointer.clicks) != 1 {
		t.Errorf("进程存活时应正常点击, 实际 %d 次", len(pointer.clicks))
	}
}

func TestDriftLocatorReported(t *testing.T) {
	st := newTestStore(t)
	st.Add(0, 0, 10, 10, makeTestImage(10, 10), "Go")

	located := false
	locator := func(template, screenshot image.Image) (int, int, float64, bool, error) {
		located = true
		return 42, 24, 0.95, true, nil
	}

	opts := append(fastOptions(&fakeCapturer{}, &fakeRecognizer{texts: []string{"不匹配"}}, &fakePointer{}),
		WithLocator(locator))

	e := New(st, opts...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatal(err)
	}
	if !located {
		t.Error("不匹配时应调用漂移定位器")
	}
}

func TestEmptyStoreBatch(t *testing.T) {
	st := newTestStore(t)
	pointer := &fakePointer{}

	e := New(st, fastOptions(&fakeCapturer{}, &fakeRecognizer{}, pointer)...)
	if err := e.ExecuteAll(); err != nil {
		t.Fatalf("空存储批次不应报错: %v", err)
	}
	if len(pointer.clicks) != 0 {
		t.Error("空存储不应点击")
	}
}
