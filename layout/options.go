package layout

// MeasureFunc 返回文本在给定强调设置下的渲染宽度（像素）。
type MeasureFunc func(text string, emphasized bool) float64

// Measurer 由渲染后端实现：为某个字体族与字号提供测宽函数。
// 同一次布局中所有 Token 都使用同一个 MeasureFunc，保证测量与绘制一致。
type Measurer interface {
	MeasureFunc(family string, size float64) (MeasureFunc, error)
}
