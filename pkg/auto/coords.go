// Package auto 提供屏幕坐标归一化的共享工具。
// 具体功能分布在子包中：screen, input。
package auto

import (
	"math"
	"sync"

	"github.com/go-vgo/robotgo"
)

// 截图返回物理像素，而 robotgo 的输入坐标在高 DPI 环境下可能是逻辑像素。
// 通过对比一次截图尺寸与 GetScreenSize() 的返回值探测缩放系数，
// coordScale = 物理尺寸 / 输入坐标空间尺寸。
var (
	coordMu     sync.Mutex
	coordScaleX float64
	coordScaleY float64
	coordReady  bool
)

func detectScale() (float64, float64) {
	coordMu.Lock()
	defer coordMu.Unlock()

	if coordReady {
		return coordScaleX, coordScaleY
	}

	coordScaleX, coordScaleY = 1.0, 1.0

	logicalW, logicalH := robotgo.GetScreenSize()
	if logicalW <= 0 || logicalH <= 0 {
		return coordScaleX, coordScaleY
	}

	img, err := robotgo.CaptureImg()
	if err != nil || img == nil {
		return coordScaleX, coordScaleY
	}

	bounds := img.Bounds()
	if bounds.Dx() > 0 && bounds.Dy() > 0 {
		coordScaleX = float64(bounds.Dx()) / float64(logicalW)
		coordScaleY = float64(bounds.Dy()) / float64(logicalH)
		coordReady = true
	}

	return coordScaleX, coordScaleY
}

// ResetCoordinateScaleCache 重置缩放系数缓存（显示设置变化后调用）
func ResetCoordinateScaleCache() {
	coordMu.Lock()
	defer coordMu.Unlock()
	coordReady = false
}

func scaleDown(value int, scale float64) int {
	if scale <= 0 {
		return value
	}
	return int(math.Round(float64(value) / scale))
}

func scaleUp(value int, scale float64) int {
	if scale <= 0 {
		return value
	}
	return int(math.Round(float64(value) * scale))
}

// NormalizePointForInput 截图坐标 → robotgo 输入坐标
func NormalizePointForInput(x, y int) (int, int) {
	sx, sy := detectScale()
	return scaleDown(x, sx), scaleDown(y, sy)
}

// NormalizePointForScreen robotgo 输入坐标 → 截图坐标
func NormalizePointForScreen(x, y int) (int, int) {
	sx, sy := detectScale()
	return scaleUp(x, sx), scaleUp(y, sy)
}

// NormalizeRegionForInput 截图区域 → robotgo 输入区域
func NormalizeRegionForInput(x, y, width, height int) (int, int, int, int) {
	sx, sy := detectScale()
	return scaleDown(x, sx), scaleDown(y, sy), scaleDown(width, sx), scaleDown(height, sy)
}

// GetPhysicalScreenSize 获取物理屏幕尺寸（与截图分辨率一致）
func GetPhysicalScreenSize() (width, height int) {
	w, h := robotgo.GetScreenSize()
	sx, sy := detectScale()
	return scaleUp(w, sx), scaleUp(h, sy)
}
