package screen

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Thumbnail 生成保持纵横比的缩略图，图像小于限制时原样返回
func Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	if img == nil || maxWidth <= 0 || maxHeight <= 0 {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth && h <= maxHeight {
		return img
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// RegionLabel 标注用的区域描述
type RegionLabel struct {
	X      int
	Y      int
	Width  int
	Height int
	Text   string
}

// Annotate 在截图上绘制区域边框和标签，返回新图像
func Annotate(screenshot image.Image, labels []RegionLabel) image.Image {
	bounds := screenshot.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Copy(dst, bounds.Min, screenshot, bounds, draw.Src, nil)

	red := color.RGBA{R: 255, A: 255}
	for i, label := range labels {
		drawRect(dst, label.X, label.Y, label.Width, label.Height, red)

		text := fmt.Sprintf("#%d %s", i+1, label.Text)
		drawer := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(red),
			Face: basicfont.Face7x13,
			Dot:  fixed.P(label.X, label.Y-4),
		}
		// 标签越过图像顶部时画在框内
		if label.Y-basicfont.Face7x13.Height < bounds.Min.Y {
			drawer.Dot = fixed.P(label.X+2, label.Y+basicfont.Face7x13.Height)
		}
		drawer.DrawString(text)
	}

	return dst
}

// drawRect 绘制 2px 矩形边框
func drawRect(dst *image.RGBA, x, y, w, h int, c color.RGBA) {
	for t := 0; t < 2; t++ {
		for px := x - t; px <= x+w+t; px++ {
			dst.Set(px, y-t, c)
			dst.Set(px, y+h+t, c)
		}
		for py := y - t; py <= y+h+t; py++ {
			dst.Set(x-t, py, c)
			dst.Set(x+w+t, py, c)
		}
	}
}
