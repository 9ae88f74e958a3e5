package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingImage 表示渲染请求缺少已解码的模板图片。
	ErrMissingImage = errors.New("渲染请求缺少模板图片")
	// ErrInvalidFontSize 表示字号不是正数。
	ErrInvalidFontSize = errors.New("字号必须大于 0")
)

// PlacedToken 是已确定水平位置的 Token。
type PlacedToken struct {
	Token
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// PlacedLine 是已定位的一行：X 为行首，Y 为行中线。
type PlacedLine struct {
	Tokens []PlacedToken `json:"tokens"`
	Width  float64       `json:"width"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
}

// Plan 是一次渲染的纯布局结果，坐标单位为像素，左上角为原点。
type Plan struct {
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	MaxWidth   float64      `json:"maxWidth"`
	LineHeight float64      `json:"lineHeight"`
	AnchorX    float64      `json:"anchorX"`
	AnchorY    float64      `json:"anchorY"`
	Lines      []PlacedLine `json:"lines"`
}

// NewPlan 根据渲染请求计算换行与每个 Token 的坐标。
// 结果只依赖 req 与 measurer，相同输入得到相同的 Plan。
func NewPlan(req RenderRequest, m Measurer) (*Plan, error) {
	if req.Image == nil {
		return nil, ErrMissingImage
	}
	if req.FontSize <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidFontSize, req.FontSize)
	}
	if m == nil {
		return nil, fmt.Errorf("measurer 不能为空")
	}
	measure, err := m.MeasureFunc(req.FontFamily, req.FontSize)
	if err != nil {
		return nil, fmt.Errorf("获取字体度量失败: %w", err)
	}

	bounds := req.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	fraction := req.MaxWidthFraction
	if fraction <= 0 || fraction > 1 {
		fraction = 1
	}
	factor := req.LineHeight
	if factor <= 0 {
		factor = DefaultLineHeight
	}

	plan := &Plan{
		Width:      width,
		Height:     height,
		MaxWidth:   fraction * float64(width),
		LineHeight: factor * req.FontSize,
	}
	plan.AnchorX, plan.AnchorY = req.Anchor.Pixels(width, height)

	lines := Wrap(req.Tokens, plan.MaxWidth, measure)
	ys := LinePositions(len(lines), plan.LineHeight, plan.AnchorY)
	plan.Lines = make([]PlacedLine, len(lines))
	for i, line := range lines {
		// 宽度按当前样式重新测量，不复用换行阶段的缓存值
		lineWidth := LineWidth(line.Tokens, measure)
		x := plan.AnchorX - lineWidth/2
		placed := PlacedLine{
			Tokens: make([]PlacedToken, len(line.Tokens)),
			Width:  lineWidth,
			X:      x,
			Y:      ys[i],
		}
		for j, tok := range line.Tokens {
			w := measure(tok.Text+" ", tok.Emphasized)
			placed.Tokens[j] = PlacedToken{Token: tok, X: x, Width: w}
			x += w
		}
		plan.Lines[i] = placed
	}
	return plan, nil
}
