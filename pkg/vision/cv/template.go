// Package cv 提供基于模板匹配的图像定位功能
package cv

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/zoeyai/regionclicker/internal/logger"
)

// DefaultThreshold 默认匹配阈值
const DefaultThreshold = 0.8

// MatchResult 图像匹配结果
type MatchResult struct {
	// X, Y 匹配区域左上角坐标
	X int `json:"x"`
	// Y 见 X
	Y int `json:"y"`
	// Width, Height 匹配区域尺寸（即模板尺寸）
	Width  int `json:"width"`
	Height int `json:"height"`
	// Confidence 匹配置信度 (0-1)
	Confidence float64 `json:"confidence"`
}

// Center 返回匹配区域中心点
func (m *MatchResult) Center() (x, y int) {
	return m.X + m.Width/2, m.Y + m.Height/2
}

// FindImage 在 source 中查找 template 的最佳匹配位置。
// 置信度低于 threshold 时返回 nil, nil。
func FindImage(template, source image.Image, threshold float64) (*MatchResult, error) {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}

	startTime := time.Now()

	tmplMat, err := gocv.ImageToMatRGB(template)
	if err != nil {
		return nil, fmt.Errorf("转换模板图像失败: %w", err)
	}
	defer tmplMat.Close()

	srcMat, err := gocv.ImageToMatRGB(source)
	if err != nil {
		return nil, fmt.Errorf("转换源图像失败: %w", err)
	}
	defer srcMat.Close()

	if tmplMat.Rows() > srcMat.Rows() || tmplMat.Cols() > srcMat.Cols() {
		return nil, fmt.Errorf("模板尺寸 %dx%d 大于源图像 %dx%d",
			tmplMat.Cols(), tmplMat.Rows(), srcMat.Cols(), srcMat.Rows())
	}

	tmplGray := toGray(tmplMat)
	defer tmplGray.Close()
	srcGray := toGray(srcMat)
	defer srcGray.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(srcGray, tmplGray, &result, gocv.TmCcoeffNormed, mask)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	confidence := float64(maxVal)

	elapsed := float64(time.Since(startTime).Milliseconds())

	if confidence < threshold {
		logger.LogEvent("CV", false, elapsed, fmt.Sprintf("未找到匹配 (最高置信度 %.2f)", confidence))
		return nil, nil
	}

	match := &MatchResult{
		X:          maxLoc.X,
		Y:          maxLoc.Y,
		Width:      tmplMat.Cols(),
		Height:     tmplMat.Rows(),
		Confidence: confidence,
	}

	logger.LogEvent("CV", true, elapsed,
		fmt.Sprintf("匹配位置 (%d,%d) 置信度 %.2f", match.X, match.Y, confidence))
	return match, nil
}

// toGray 转换为灰度图
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst
}
