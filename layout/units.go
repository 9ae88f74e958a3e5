package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// 本文件定义模板属性中数值的单位解析。

// Unit 表示 DSL 数值的原始单位。
type Unit int

const (
	UnitNone    Unit = iota // 无单位数值
	UnitPX                  // 像素
	UnitPercent             // 百分比
	UnitFactor              // 倍数，如 1.6x
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPercent:
		return "%"
	case UnitFactor:
		return "x"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + UnitToString(l.Unit)
}

// Fraction 将长度解释为 0..1 的比例：百分比除以 100，无单位数值 > 1 时也按百分比处理。
func (l Length) Fraction() (float64, error) {
	switch l.Unit {
	case UnitPercent:
		return l.Value / 100, nil
	case UnitNone:
		if l.Value > 1 {
			return l.Value / 100, nil
		}
		return l.Value, nil
	default:
		return 0, fmt.Errorf("%s 不能作为比例", l)
	}
}

// Pixels 将长度解释为像素值，无单位数值视为像素。
func (l Length) Pixels() (float64, error) {
	switch l.Unit {
	case UnitPX, UnitNone:
		return l.Value, nil
	default:
		return 0, fmt.Errorf("%s 不能作为像素值", l)
	}
}

// Factor 将长度解释为倍数，无单位数值视为倍数。
func (l Length) Factor() (float64, error) {
	switch l.Unit {
	case UnitFactor, UnitNone:
		return l.Value, nil
	default:
		return 0, fmt.Errorf("%s 不能作为倍数", l)
	}
}

// ParseLength parses a DSL number string preserving its unit.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("数值为空")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"%", UnitPercent}, {"x", UnitFactor}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("无法解析数值 %q: %w", value, err)
	}
	if f < 0 {
		return Length{}, fmt.Errorf("数值 %q 不能为负", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// ParseColor 解析 #RGB、#RRGGBB 或 #RRGGBBAA。
func ParseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Color{}, fmt.Errorf("颜色格式无效: %s", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色格式无效: %s", value)
	}
	return Color{
		R: int(n >> 24 & 0xff),
		G: int(n >> 16 & 0xff),
		B: int(n >> 8 & 0xff),
		A: int(n & 0xff),
	}, nil
}
