package renderer

import (
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"

	"github.com/ByLCY/certify/layout"
)

// Result 是一次渲染的光栅化结果，除图像外不携带任何其他输出。
type Result struct {
	Image *image.RGBA
}

// Renderer 将渲染请求绘制为图像。相同的请求必须得到逐像素相同的结果。
type Renderer interface {
	Render(req layout.RenderRequest) (*Result, error)
}

// RenderTarget 是一次渲染专用的绘制面，每次渲染都重新创建，绝不复用。
// 坐标以像素为单位，左上角为原点。
type RenderTarget interface {
	// DrawImage 以原始尺寸绘制图片，(x, y) 为图片左上角。
	DrawImage(x, y float64, img image.Image)
	// DrawText 以 (x, y) 为起点绘制文本，y 为文本的垂直中线。
	DrawText(x, y float64, text string, emphasized bool)
	// Rasterize 输出当前绘制面的像素。
	Rasterize() *image.RGBA
}

// Compose 在 target 上按固定顺序绘制：先完整绘制模板图片，再绘制二维码（如有），
// 最后逐行从左到右绘制每个 Token。
func Compose(target RenderTarget, req layout.RenderRequest, plan *layout.Plan) error {
	if target == nil || plan == nil {
		return fmt.Errorf("绘制面或布局计划为空")
	}
	if req.Image == nil {
		return layout.ErrMissingImage
	}
	bounds := req.Image.Bounds()
	target.DrawImage(0, 0, req.Image)

	if req.QR != nil && req.QR.Content != "" {
		code, err := QRImage(req.QR.Content, req.QR.Overlay.Size)
		if err != nil {
			return err
		}
		cx, cy := req.QR.Overlay.Anchor.Pixels(bounds.Dx(), bounds.Dy())
		size := float64(code.Bounds().Dx())
		target.DrawImage(cx-size/2, cy-size/2, code)
	}

	for _, line := range plan.Lines {
		for _, tok := range line.Tokens {
			target.DrawText(tok.X, line.Y, tok.Text, tok.Emphasized)
		}
	}
	return nil
}

// QRImage 生成边长为 size 像素的二维码图片。
func QRImage(content string, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("二维码尺寸必须大于 0")
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return code.Image(size), nil
}
