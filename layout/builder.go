package layout

import (
	"fmt"
	"os"
	"strings"

	"github.com/ByLCY/certify/dsl"
)

// 模板未声明时使用的默认值。
const (
	DefaultFontFamily = "Go"
	DefaultFontSize   = 36.0
	DefaultMaxWidth   = 0.7
)

// DefaultColor 为默认字体颜色。
var DefaultColor = Color{R: 30, G: 30, B: 30, A: 255}

// LoadTemplates 读取并解析模板配置文件。
func LoadTemplates(path string) (map[string]Template, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开模板文件 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析模板文件失败: %w", err)
	}
	return BuildTemplates(doc)
}

// BuildTemplates 将 DSL 语法树转换为按类型索引的模板配置。
func BuildTemplates(doc *dsl.File) (map[string]Template, error) {
	if doc == nil {
		return nil, fmt.Errorf("模板文件为空")
	}
	out := make(map[string]Template, len(doc.Templates))
	for _, decl := range doc.Templates {
		tpl, err := buildTemplate(decl)
		if err != nil {
			return nil, err
		}
		if _, dup := out[tpl.Type]; dup {
			return nil, fmt.Errorf("模板 %s 重复定义", tpl.Type)
		}
		out[tpl.Type] = tpl
	}
	return out, nil
}

func buildTemplate(decl *dsl.Template) (Template, error) {
	tpl := Template{
		Type:       decl.Kind,
		Anchor:     Anchor{X: 0.5, Y: 0.5},
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
		Color:      DefaultColor,
		MaxWidth:   DefaultMaxWidth,
		LineHeight: DefaultLineHeight,
	}
	hasText := false
	for _, stmt := range decl.Statements {
		switch {
		case stmt.Text != nil:
			if hasText {
				return Template{}, fmt.Errorf("模板 %s 只能包含一个 text 块 (%s)", decl.Kind, stmt.Text.Pos)
			}
			hasText = true
			tpl.Fragments = buildFragments(stmt.Text)
		case stmt.Property != nil:
			if err := applyProperty(&tpl, stmt.Property); err != nil {
				return Template{}, fmt.Errorf("模板 %s 属性 %s (%s): %w", decl.Kind, stmt.Property.Key, stmt.Property.Pos, err)
			}
		}
	}
	if tpl.Image == "" {
		return Template{}, fmt.Errorf("模板 %s 缺少 image", decl.Kind)
	}
	if !hasText {
		return Template{}, fmt.Errorf("模板 %s 缺少 text 块", decl.Kind)
	}
	return tpl, nil
}

func buildFragments(block *dsl.TextBlock) []Fragment {
	fragments := make([]Fragment, 0, len(block.Fragments))
	for _, f := range block.Fragments {
		if f.Field != nil {
			fragments = append(fragments, Fragment{Field: *f.Field})
			continue
		}
		if f.Plain != nil {
			fragments = append(fragments, Fragment{Text: string(*f.Plain)})
		}
	}
	return fragments
}

func applyProperty(tpl *Template, prop *dsl.Property) error {
	values := make([]string, len(prop.Values))
	for i, v := range prop.Values {
		values[i] = v.Raw()
	}
	switch strings.ToLower(prop.Key) {
	case "image":
		if err := expectArgs(values, 1); err != nil {
			return err
		}
		tpl.Image = values[0]
	case "anchor":
		if err := expectArgs(values, 2); err != nil {
			return err
		}
		anchor, err := parseAnchor(values[0], values[1])
		if err != nil {
			return err
		}
		tpl.Anchor = anchor
	case "font":
		if len(values) == 0 || len(values) > 2 {
			return fmt.Errorf("需要 1 或 2 个参数，实际 %d 个", len(values))
		}
		tpl.FontFamily = values[0]
		if len(values) == 2 {
			size, err := parsePixels(values[1])
			if err != nil {
				return err
			}
			tpl.FontSize = size
		}
	case "size":
		if err := expectArgs(values, 1); err != nil {
			return err
		}
		size, err := parsePixels(values[0])
		if err != nil {
			return err
		}
		tpl.FontSize = size
	case "color":
		if err := expectArgs(values, 1); err != nil {
			return err
		}
		col, err := ParseColor(values[0])
		if err != nil {
			return err
		}
		tpl.Color = col
	case "maxwidth":
		if err := expectArgs(values, 1); err != nil {
			return err
		}
		frac, err := parseFraction(values[0])
		if err != nil {
			return err
		}
		tpl.MaxWidth = frac
	case "lineheight":
		if err := expectArgs(values, 1); err != nil {
			return err
		}
		l, err := ParseLength(values[0])
		if err != nil {
			return err
		}
		factor, err := l.Factor()
		if err != nil {
			return err
		}
		if factor <= 0 {
			return fmt.Errorf("行高倍数必须大于 0")
		}
		tpl.LineHeight = factor
	case "qr":
		if err := expectArgs(values, 3); err != nil {
			return err
		}
		anchor, err := parseAnchor(values[0], values[1])
		if err != nil {
			return err
		}
		size, err := parsePixels(values[2])
		if err != nil {
			return err
		}
		tpl.QR = &QROverlay{Anchor: anchor, Size: int(size)}
	default:
		return fmt.Errorf("未知属性")
	}
	return nil
}

func expectArgs(values []string, n int) error {
	if len(values) != n {
		return fmt.Errorf("需要 %d 个参数，实际 %d 个", n, len(values))
	}
	return nil
}

func parseAnchor(x, y string) (Anchor, error) {
	fx, err := parseFraction(x)
	if err != nil {
		return Anchor{}, err
	}
	fy, err := parseFraction(y)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{X: fx, Y: fy}, nil
}

func parseFraction(value string) (float64, error) {
	l, err := ParseLength(value)
	if err != nil {
		return 0, err
	}
	f, err := l.Fraction()
	if err != nil {
		return 0, err
	}
	if f > 1 {
		return 0, fmt.Errorf("比例 %s 超出范围", value)
	}
	return f, nil
}

func parsePixels(value string) (float64, error) {
	l, err := ParseLength(value)
	if err != nil {
		return 0, err
	}
	px, err := l.Pixels()
	if err != nil {
		return 0, err
	}
	if px <= 0 {
		return 0, fmt.Errorf("像素值 %s 必须大于 0", value)
	}
	return px, nil
}
