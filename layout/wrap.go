package layout

// Wrap 以贪心首次适配策略把 Token 装入宽度不超过 maxWidth 的行。
// 每个 Token 的宽度按 measure(text+" ") 计算（包含其后的单个空格）。
// 单个 Token 自身超宽时独占一行，绝不在词内拆分，也不丢弃。
func Wrap(tokens []Token, maxWidth float64, measure MeasureFunc) []Line {
	var (
		lines        []Line
		current      []Token
		currentWidth float64
	)
	emit := func() {
		if len(current) == 0 {
			return
		}
		lines = append(lines, Line{Tokens: current, Width: currentWidth})
		current = nil
		currentWidth = 0
	}

	for _, tok := range tokens {
		w := measure(tok.Text+" ", tok.Emphasized)
		if currentWidth+w > maxWidth && len(current) > 0 {
			emit()
		}
		current = append(current, tok)
		currentWidth += w
	}
	emit()
	return lines
}

// LineWidth 用当前测宽函数重新计算一行的宽度。
func LineWidth(tokens []Token, measure MeasureFunc) float64 {
	var width float64
	for _, tok := range tokens {
		width += measure(tok.Text+" ", tok.Emphasized)
	}
	return width
}
