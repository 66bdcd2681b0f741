// Package store 提供擷取区域的数据模型与持久化存储
package store

import (
	"fmt"
	"image"

	"github.com/zoeyai/regionclicker/pkg/auto/screen"
)

// ClickCountPresets 点击次数的预设循环序列
var ClickCountPresets = []int{1, 2, 3, 5, 10}

// Region 一个擷取区域：屏幕范围、参考图像、擷取时的 OCR 文字和点击次数。
// Image 和 OCRText 在创建后不再变化，执行器只读取不更新。
type Region struct {
	X          int
	Y          int
	Width      int
	Height     int
	Image      image.Image
	OCRText    string
	ClickCount int
}

// Center 返回区域中心点（整数除法）
func (r *Region) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// NextClickCount 返回预设循环中的下一个点击次数。
// 当前值不在预设中时从序列头开始推进。
func (r *Region) NextClickCount() int {
	current := 0
	for i, v := range ClickCountPresets {
		if v == r.ClickCount {
			current = i
			break
		}
	}
	return ClickCountPresets[(current+1)%len(ClickCountPresets)]
}

func (r *Region) String() string {
	return fmt.Sprintf("文字: %s (点击次数: %d)", r.OCRText, r.ClickCount)
}

// record 持久化表示，encoded_image 为 PNG 的 Base64 编码
type record struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	OCRText      string `json:"ocr_text"`
	ClickCount   int    `json:"click_count"`
	EncodedImage string `json:"encoded_image"`
}

// toRecord 转换为持久化表示
func (r *Region) toRecord() (record, error) {
	encoded, err := screen.ImageToBase64(r.Image)
	if err != nil {
		return record{}, fmt.Errorf("编码参考图像失败: %w", err)
	}

	return record{
		X:            r.X,
		Y:            r.Y,
		Width:        r.Width,
		Height:       r.Height,
		OCRText:      r.OCRText,
		ClickCount:   r.ClickCount,
		EncodedImage: encoded,
	}, nil
}

// fromRecord 从持久化表示还原区域
func fromRecord(rec record) (*Region, error) {
	img, err := screen.Base64ToImage(rec.EncodedImage)
	if err != nil {
		return nil, fmt.Errorf("解码参考图像失败: %w", err)
	}

	clickCount := rec.ClickCount
	if clickCount <= 0 {
		clickCount = 1
	}

	return &Region{
		X:          rec.X,
		Y:          rec.Y,
		Width:      rec.Width,
		Height:     rec.Height,
		Image:      img,
		OCRText:    rec.OCRText,
		ClickCount: clickCount,
	}, nil
}
