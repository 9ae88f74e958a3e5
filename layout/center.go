package layout

// BlockStart 返回 n 行文本块中第一行的 y 坐标，使整个块在 anchorY 处垂直居中。
// n == 1 时结果恰为 anchorY。
func BlockStart(n int, lineHeight, anchorY float64) float64 {
	total := float64(n) * lineHeight
	return anchorY - total/2 + lineHeight/2
}

// LinePositions 返回每一行的 y 坐标（行中线），所有位置的平均值等于 anchorY。
func LinePositions(n int, lineHeight, anchorY float64) []float64 {
	if n <= 0 {
		return nil
	}
	start := BlockStart(n, lineHeight, anchorY)
	ys := make([]float64, n)
	for i := range ys {
		ys[i] = start + float64(i)*lineHeight
	}
	return ys
}
