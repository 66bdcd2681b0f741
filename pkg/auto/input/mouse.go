// Package input 提供鼠标操作
package input

import (
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/regionclicker/pkg/auto"
)

// MoveTo 移动鼠标到指定位置
func MoveTo(x, y int) {
	inputX, inputY := auto.NormalizePointForInput(x, y)
	robotgo.Move(inputX, inputY)
}

// Click 单击左键
func Click() {
	robotgo.Click("left", false)
}

// GetMousePosition 获取鼠标位置
func GetMousePosition() (x, y int) {
	inputX, inputY := robotgo.Location()
	return auto.NormalizePointForScreen(inputX, inputY)
}

// ClickAt 移动到指定位置后单击，settle 为移动到位后的等待时间
func ClickAt(x, y int, settle time.Duration) {
	MoveTo(x, y)
	if settle > 0 {
		time.Sleep(settle) // 短暂延迟确保鼠标到位
	}
	robotgo.Click("left", false)
}
