// Package executor 实现区域校验与点击的执行器。
// 每个区域按存储顺序处理：重新截取 → OCR → 与记录文字比对 → 一致则点击中心。
package executor

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/zoeyai/regionclicker/internal/logger"
	"github.com/zoeyai/regionclicker/pkg/auto/input"
	"github.com/zoeyai/regionclicker/pkg/auto/screen"
	"github.com/zoeyai/regionclicker/pkg/process"
	"github.com/zoeyai/regionclicker/pkg/store"
	"github.com/zoeyai/regionclicker/pkg/vision/ocr"
)

// ErrBusy 已有点击批次在执行中。
// 鼠标和识别器是独占的共享资源，任一时刻只允许一个批次在途。
var ErrBusy = errors.New("已有点击批次在执行中")

// Capturer 屏幕截取协作者
type Capturer interface {
	CaptureRegion(x, y, width, height int) (image.Image, error)
	CaptureScreen() (image.Image, error)
}

// Recognizer 文字识别协作者
type Recognizer interface {
	GetAllText(img image.Image) (string, error)
}

// Pointer 鼠标协作者
type Pointer interface {
	MoveTo(x, y int)
	Click()
	Location() (x, y int)
}

// Locator 在全屏截图中查找参考图像的新位置（漂移诊断，可选）
type Locator func(template, screenshot image.Image) (x, y int, confidence float64, found bool, err error)

// processExists 包装进程查询以便测试
var processExists = process.Exists

// Executor 点击执行器
type Executor struct {
	store          *store.Store
	capturer       Capturer
	recognizer     Recognizer
	pointer        Pointer
	locator        Locator
	clickPause     time.Duration
	mismatchPause  time.Duration
	settleDelay    time.Duration
	requireProcess string
	mu             sync.Mutex
}

// Option 配置选项函数类型
type Option func(*Executor)

// WithClickPause 设置连续点击之间的等待时间
func WithClickPause(d time.Duration) Option {
	return func(e *Executor) { e.clickPause = d }
}

// WithMismatchPause 设置跳过区域后的等待时间
func WithMismatchPause(d time.Duration) Option {
	return func(e *Executor) { e.mismatchPause = d }
}

// WithSettleDelay 设置鼠标到位后点击前的等待时间
func WithSettleDelay(d time.Duration) Option {
	return func(e *Executor) { e.settleDelay = d }
}

// WithRequireProcess 仅在指定进程存活时执行批次
func WithRequireProcess(name string) Option {
	return func(e *Executor) { e.requireProcess = name }
}

// WithLocator 设置漂移诊断定位器
func WithLocator(l Locator) Option {
	return func(e *Executor) { e.locator = l }
}

// WithCapturer 替换截屏协作者（测试用）
func WithCapturer(c Capturer) Option {
	return func(e *Executor) { e.capturer = c }
}

// WithRecognizer 替换识别协作者（测试用）
func WithRecognizer(r Recognizer) Option {
	return func(e *Executor) { e.recognizer = r }
}

// WithPointer 替换鼠标协作者（测试用）
func WithPointer(p Pointer) Option {
	return func(e *Executor) { e.pointer = p }
}

// New 创建执行器，默认使用 robotgo 截屏/鼠标和全局 OCR 识别器
func New(st *store.Store, opts ...Option) *Executor {
	e := &Executor{
		store:         st,
		capturer:      robotCapturer{},
		recognizer:    globalRecognizer{},
		pointer:       robotPointer{},
		clickPause:    200 * time.Millisecond,
		mismatchPause: 500 * time.Millisecond,
		settleDelay:   50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteAll 对所有区域执行一次完整批次（前台模式，详细日志）
func (e *Executor) ExecuteAll() error {
	return e.executeBatch(nil, false)
}

// ExecuteAllContinuous 对所有区域执行一次完整批次（持续模式，仅 DEBUG 细节）
func (e *Executor) ExecuteAllContinuous() error {
	return e.executeBatch(nil, true)
}

// ExecuteOne 只对指定索引的区域执行校验与点击，用于单独测试某条映射
func (e *Executor) ExecuteOne(index int) error {
	if _, err := e.store.Get(index); err != nil {
		return err
	}
	return e.executeBatch([]int{index}, false)
}

// executeBatch 执行一个批次。indexes 为 nil 时处理全部区域。
// 任一区域的截取/识别/点击错误中止整个批次；鼠标位置总是尽力恢复。
func (e *Executor) executeBatch(indexes []int, continuous bool) error {
	if !e.mu.TryLock() {
		return ErrBusy
	}
	defer e.mu.Unlock()

	if e.requireProcess != "" {
		alive, err := processExists(e.requireProcess)
		if err != nil {
			logger.Warn("查询进程 %s 失败: %v", e.requireProcess, err)
		} else if !alive {
			logger.Warn("进程 %s 不存活，跳过本轮批次", e.requireProcess)
			return nil
		}
	}

	regions := e.store.Regions()
	if indexes == nil {
		indexes = make([]int, len(regions))
		for i := range regions {
			indexes[i] = i
		}
	}

	if len(indexes) == 0 {
		logger.Info("没有可执行的区域")
		return nil
	}

	// 批次开始前记录鼠标位置，结束后尽力恢复（出错时同样恢复）
	origX, origY := e.pointer.Location()
	defer e.pointer.MoveTo(origX, origY)

	for _, index := range indexes {
		if index < 0 || index >= len(regions) {
			return fmt.Errorf("%w: %d", store.ErrIndexOutOfRange, index)
		}
		if err := e.runRegion(index, regions[index], continuous); err != nil {
			logger.Error("批次在区域 #%d 处中止: %v", index+1, err)
			return err
		}
	}

	return nil
}

// runRegion 处理单个区域：截取当前内容、识别、比对、点击或跳过。
// 识别结果与记录文字做去首尾空白后的精确比较，不做模糊匹配。
func (e *Executor) runRegion(index int, r *store.Region, continuous bool) error {
	logf := logger.Info
	if continuous {
		logf = logger.Debug
	}

	img, err := e.capturer.CaptureRegion(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return fmt.Errorf("截取区域失败: %w", err)
	}

	current, err := e.recognizer.GetAllText(img)
	if err != nil {
		return fmt.Errorf("识别区域文字失败: %w", err)
	}

	if strings.TrimSpace(current) != strings.TrimSpace(r.OCRText) {
		logf("跳过 #%d: OCR 未符合 '%s', 目前为 '%s'", index+1, r.OCRText, current)
		e.reportDrift(r, continuous)
		if e.mismatchPause > 0 {
			time.Sleep(e.mismatchPause)
		}
		return nil
	}

	clickX, clickY := r.Center()
	for i := 0; i < r.ClickCount; i++ {
		logf("点击 '%s' (%d/%d) @ (%d,%d)", r.OCRText, i+1, r.ClickCount, clickX, clickY)

		e.pointer.MoveTo(clickX, clickY)
		if e.settleDelay > 0 {
			time.Sleep(e.settleDelay)
		}
		e.pointer.Click()
		if e.clickPause > 0 {
			time.Sleep(e.clickPause)
		}
	}

	return nil
}

// reportDrift 在 OCR 不匹配时查找参考图像的当前位置，仅用于诊断日志
func (e *Executor) reportDrift(r *store.Region, continuous bool) {
	if e.locator == nil {
		return
	}

	screenshot, err := e.capturer.CaptureScreen()
	if err != nil {
		logger.Debug("漂移诊断截屏失败: %v", err)
		return
	}

	x, y, confidence, found, err := e.locator(r.Image, screenshot)
	if err != nil {
		logger.Debug("漂移诊断失败: %v", err)
		return
	}
	if !found {
		return
	}

	logf := logger.Info
	if continuous {
		logf = logger.Debug
	}
	logf("参考图像 '%s' 可能移动到了 (%d,%d)，置信度 %.2f", r.OCRText, x, y, confidence)
}

// robotCapturer 基于 robotgo 的默认截屏实现
type robotCapturer struct{}

func (robotCapturer) CaptureRegion(x, y, width, height int) (image.Image, error) {
	return screen.CaptureRegion(x, y, width, height)
}

func (robotCapturer) CaptureScreen() (image.Image, error) {
	return screen.CaptureScreen()
}

// robotPointer 基于 robotgo 的默认鼠标实现
type robotPointer struct{}

func (robotPointer) MoveTo(x, y int)      { input.MoveTo(x, y) }
func (robotPointer) Click()               { input.Click() }
func (robotPointer) Location() (int, int) { return input.GetMousePosition() }

// globalRecognizer 懒初始化的全局 OCR 识别器
type globalRecognizer struct{}

func (globalRecognizer) GetAllText(img image.Image) (string, error) {
	recognizer, err := ocr.GetGlobalRecognizer()
	if err != nil {
		return "", fmt.Errorf("初始化 OCR 失败: %w", err)
	}
	return recognizer.GetAllText(img)
}
