package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/certify/fonts"
	"github.com/ByLCY/certify/layout"
	"github.com/ByLCY/certify/renderer"
)

// 画布以 1 点/毫米光栅化，因此 1 个画布单位（mm）恰为 1 像素。
// 字体面以 pt 创建，需要在边界做 px→pt 换算。
const pxToPt = 72.0 / 25.4

var resolution = canvas.DPMM(1.0)

// Renderer draws certificate render requests via github.com/tdewolff/canvas.
type Renderer struct {
	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Measurer   = (*Renderer)(nil)
)

// NewRenderer creates a canvas-based renderer backed by the built-in font families.
func NewRenderer() *Renderer {
	return &Renderer{fontFamilies: map[string]*canvas.FontFamily{}}
}

// Render 每次都从模板图片开始重新绘制一块新的画布，输出光栅图像。
func (r *Renderer) Render(req layout.RenderRequest) (*renderer.Result, error) {
	plan, err := layout.NewPlan(req, r)
	if err != nil {
		return nil, err
	}
	regular, bold, err := r.faces(req.FontFamily, req.FontSize, colorFromLayout(req.Color))
	if err != nil {
		return nil, err
	}
	target := newTarget(plan.Width, plan.Height, regular, bold)
	if err := renderer.Compose(target, req, plan); err != nil {
		return nil, err
	}
	return &renderer.Result{Image: target.Rasterize()}, nil
}

// MeasureFunc 实现 layout.Measurer：返回按 family/size（像素）测宽的函数。
func (r *Renderer) MeasureFunc(family string, size float64) (layout.MeasureFunc, error) {
	regular, bold, err := r.faces(family, size, canvas.Black)
	if err != nil {
		return nil, err
	}
	return func(text string, emphasized bool) float64 {
		if emphasized {
			return bold.TextWidth(text)
		}
		return regular.TextWidth(text)
	}, nil
}

func (r *Renderer) faces(family string, size float64, col color.Color) (*canvas.FontFace, *canvas.FontFace, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("字号必须大于 0: %g", size)
	}
	fam, err := r.ensureFontFamily(family)
	if err != nil {
		return nil, nil, err
	}
	sizePt := size * pxToPt
	regular := fam.Face(sizePt, col, canvas.FontRegular, canvas.FontNormal)
	bold := fam.Face(sizePt, col, canvas.FontBold, canvas.FontNormal)
	return regular, bold, nil
}

func (r *Renderer) ensureFontFamily(name string) (*canvas.FontFamily, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if fam, ok := r.fontFamilies[key]; ok {
		return fam, nil
	}
	src, err := fonts.Load(name)
	if err != nil {
		return nil, err
	}
	fam := canvas.NewFontFamily(src.Name)
	if err := fam.LoadFont(src.Regular, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 常规字重失败: %w", src.Name, err)
	}
	if err := fam.LoadFont(src.Bold, 0, canvas.FontBold); err != nil {
		return nil, fmt.Errorf("加载字体 %s 粗体失败: %w", src.Name, err)
	}
	r.fontFamilies[key] = fam
	return fam, nil
}

// target 是基于 canvas 的一次性绘制面。内部使用默认的 Cartesian I 坐标系（原点在左下），
// 对外接口使用左上角原点，在此处做 y 轴翻转。
type target struct {
	c       *canvas.Canvas
	ctx     *canvas.Context
	height  float64
	regular *canvas.FontFace
	bold    *canvas.FontFace
}

var _ renderer.RenderTarget = (*target)(nil)

func newTarget(width, height int, regular, bold *canvas.FontFace) *target {
	c := canvas.New(float64(width), float64(height))
	return &target{
		c:       c,
		ctx:     canvas.NewContext(c),
		height:  float64(height),
		regular: regular,
		bold:    bold,
	}
}

func (t *target) DrawImage(x, y float64, img image.Image) {
	h := float64(img.Bounds().Dy())
	t.ctx.DrawImage(x, t.height-y-h, img, resolution)
}

func (t *target) DrawText(x, y float64, text string, emphasized bool) {
	face := t.regular
	if emphasized {
		face = t.bold
	}
	// y 为行中线：基线 = 中线 + (ascent - descent) / 2（向下为正）
	metrics := face.Metrics()
	baseline := y + (metrics.Ascent-metrics.Descent)/2
	t.ctx.DrawText(x, t.height-baseline, canvas.NewTextLine(face, text, canvas.Left))
}

func (t *target) Rasterize() *image.RGBA {
	return rasterizer.Draw(t.c, resolution, canvas.DefaultColorSpace)
}

// colorFromLayout 将 A == 0（未设置）视为不透明。
func colorFromLayout(c layout.Color) color.Color {
	a := c.A
	if a == 0 {
		a = 255
	}
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, float64(a)/255.0)
}
