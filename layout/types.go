package layout

// 该文件定义证书合成所用的数据模型，供模板构建、换行、渲染与调试 JSON 共用。

import "image"

// DefaultLineHeight 为行高相对字号的默认倍数。
const DefaultLineHeight = 1.6

// Token 表示一个带强调标记的单词。构建后不可变，顺序即句子顺序。
type Token struct {
	Text       string `json:"text"`
	Emphasized bool   `json:"emphasized"`
}

// Line 是换行结果中的一行：连续的 Token 子序列与其按当前字体设置测得的宽度（像素）。
// 宽度依赖样式，样式改变后必须重新测量。
type Line struct {
	Tokens []Token `json:"tokens"`
	Width  float64 `json:"width"`
}

// Anchor 以图片宽/高的比例（0..1）表示文本块的中心参考点。
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pixels 将比例锚点换算成给定画布尺寸上的像素坐标（左上角为原点）。
func (a Anchor) Pixels(width, height int) (float64, float64) {
	return a.X * float64(width), a.Y * float64(height)
}

// Color 采用 0-255 的 RGBA 数值。A 为 0 表示未设置透明度，按不透明绘制；
// 需要半透明时显式给出 1-254 的 A（DSL 中写作 #RRGGBBAA）。完全透明的字色无意义，不支持。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
	A int `json:"a"`
}

// Fragment 是模板短语中的一个片段：普通文本，或绑定到动态字段的强调片段。
type Fragment struct {
	Text  string `json:"text,omitempty"`  // 普通文本，可含 ${field} 插值
	Field string `json:"field,omitempty"` // 非空时为强调片段，取该字段的实时值
}

// Emphasized 报告片段是否为强调（加粗）的动态字段。
func (f Fragment) Emphasized() bool { return f.Field != "" }

// QROverlay 描述模板上可选的校验二维码位置（锚点为二维码中心）与边长（像素）。
type QROverlay struct {
	Anchor Anchor `json:"anchor"`
	Size   int    `json:"size"`
}

// Template 是一份证书模板配置，图片以 Image 引用，渲染前再解码。
type Template struct {
	Type       string     `json:"type"`
	Image      string     `json:"image"`
	Anchor     Anchor     `json:"anchor"`
	FontFamily string     `json:"fontFamily"`
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	MaxWidth   float64    `json:"maxWidth"`   // 占图片宽度的比例
	LineHeight float64    `json:"lineHeight"` // 字号倍数
	Fragments  []Fragment `json:"fragments"`
	QR         *QROverlay `json:"qr,omitempty"`
}

// RenderRequest 完整决定一次渲染的输出，不依赖任何隐藏状态。
type RenderRequest struct {
	TemplateType     string      `json:"templateType"`
	Image            image.Image `json:"-"`
	Tokens           []Token     `json:"tokens"`
	Anchor           Anchor      `json:"anchor"`
	MaxWidthFraction float64     `json:"maxWidthFraction"`
	FontFamily       string      `json:"fontFamily"`
	FontSize         float64     `json:"fontSize"`
	LineHeight       float64     `json:"lineHeight"`
	Color            Color       `json:"color"`
	QR               *QRRequest  `json:"qr,omitempty"`
}

// QRRequest 为本次渲染附带的二维码内容与位置。
type QRRequest struct {
	Content string    `json:"content"`
	Overlay QROverlay `json:"overlay"`
}

// NewRequest 基于模板与已构建的 Token 生成渲染请求。
func (t Template) NewRequest(img image.Image, tokens []Token) RenderRequest {
	return RenderRequest{
		TemplateType:     t.Type,
		Image:            img,
		Tokens:           tokens,
		Anchor:           t.Anchor,
		MaxWidthFraction: t.MaxWidth,
		FontFamily:       t.FontFamily,
		FontSize:         t.FontSize,
		LineHeight:       t.LineHeight,
		Color:            t.Color,
	}
}
