// Package capture 提供擷取区域的选择方式。
// 交互式框选由外部选区工具完成，核心只消费 Selection 结果。
package capture

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zoeyai/regionclicker/internal/logger"
	"github.com/zoeyai/regionclicker/pkg/auto/screen"
)

// Selection 一次框选的结果：屏幕范围和该范围的像素内容
type Selection struct {
	X      int
	Y      int
	Width  int
	Height int
	Image  image.Image
}

// Selector 区域选择器。Select 在用户取消或框选面积为零时返回 (nil, nil)。
type Selector interface {
	Select() (*Selection, error)
}

// BoundsSelector 使用显式给定的边界选择区域
type BoundsSelector struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Select 校验边界并截取该区域
func (s *BoundsSelector) Select() (*Selection, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, nil
	}

	img, err := screen.CaptureRegion(s.X, s.Y, s.Width, s.Height)
	if err != nil {
		return nil, err
	}

	return &Selection{
		X:      s.X,
		Y:      s.Y,
		Width:  s.Width,
		Height: s.Height,
		Image:  img,
	}, nil
}

// ToolSelector 调用外部选区工具获取边界，再截取该区域。
// parse 负责把工具输出解析为 (x, y, w, h)。
type ToolSelector struct {
	name  string
	args  []string
	parse func(output string) (x, y, w, h int, err error)
}

// NewInteractiveSelector 按当前桌面环境选择可用的选区工具：
// Wayland 下使用 slurp，X11 下使用 slop。均不可用时返回错误。
func NewInteractiveSelector() (*ToolSelector, error) {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		if _, err := exec.LookPath("slurp"); err == nil {
			return &ToolSelector{name: "slurp", parse: parseSlurp}, nil
		}
	}
	if _, err := exec.LookPath("slop"); err == nil {
		return &ToolSelector{
			name:  "slop",
			args:  []string{"-f", "%x %y %w %h"},
			parse: parseSlop,
		}, nil
	}

	return nil, fmt.Errorf("未找到可用的选区工具 (slurp/slop)，请改用 -region 指定边界")
}

// Select 运行选区工具。用户取消（工具非零退出）或框选面积为零时返回 (nil, nil)。
func (s *ToolSelector) Select() (*Selection, error) {
	out, err := exec.Command(s.name, s.args...).Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			logger.Debug("选区工具 %s 被取消", s.name)
			return nil, nil
		}
		return nil, fmt.Errorf("运行选区工具 %s 失败: %w", s.name, err)
	}

	x, y, w, h, err := s.parse(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("解析 %s 输出失败: %w", s.name, err)
	}
	if w <= 0 || h <= 0 {
		return nil, nil
	}

	img, err := screen.CaptureRegion(x, y, w, h)
	if err != nil {
		return nil, err
	}

	return &Selection{X: x, Y: y, Width: w, Height: h, Image: img}, nil
}

// parseSlop 解析 slop -f "%x %y %w %h" 的输出，如 "10 20 300 200"
func parseSlop(output string) (int, int, int, int, error) {
	fields := strings.Fields(output)
	if len(fields) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("期望 4 个字段, 实际 %q", output)
	}

	values := make([]int, 4)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("非法数值 %q: %w", f, err)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], values[3], nil
}

// parseSlurp 解析 slurp 的默认输出格式 "X,Y WxH"，如 "10,20 300x200"
func parseSlurp(output string) (int, int, int, int, error) {
	parts := strings.Fields(output)
	if len(parts) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("期望 \"X,Y WxH\" 格式, 实际 %q", output)
	}

	pos := strings.SplitN(parts[0], ",", 2)
	size := strings.SplitN(parts[1], "x", 2)
	if len(pos) != 2 || len(size) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("期望 \"X,Y WxH\" 格式, 实际 %q", output)
	}

	x, err := strconv.Atoi(pos[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	y, err := strconv.Atoi(pos[1])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	w, err := strconv.Atoi(size[0])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	h, err := strconv.Atoi(size[1])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return x, y, w, h, nil
}

// ParseBounds 解析 "x,y,w,h" 形式的边界参数
func ParseBounds(s string) (*BoundsSelector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("边界格式应为 x,y,w,h, 实际 %q", s)
	}

	values := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("非法边界数值 %q: %w", p, err)
		}
		values[i] = v
	}

	if values[2] <= 0 || values[3] <= 0 {
		return nil, fmt.Errorf("区域宽高必须为正: %dx%d", values[2], values[3])
	}

	return &BoundsSelector{X: values[0], Y: values[1], Width: values[2], Height: values[3]}, nil
}
