// Package binding resolves dynamic field values for certificate phrases.
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Fielder exposes a value as named fields, e.g. a registry record.
type Fielder interface {
	Fields() map[string]any
}

var placeholder = regexp.MustCompile(`\$\{\s*([^}]*?)\s*\}`)

// Interpolate 替换文本中的 ${field} 占位符；未知字段原样保留。
func Interpolate(text string, data any) string {
	if data == nil || !strings.Contains(text, "${") {
		return text
	}
	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := placeholder.FindStringSubmatch(match)[1]
		if val, ok := Lookup(data, path); ok && val != nil {
			return fmt.Sprint(val)
		}
		return match
	})
}

// Text 返回字段去除首尾空白后的文本；字段缺失或为空时 ok 为 false。
func Text(data any, path string) (string, bool) {
	val, ok := Lookup(data, path)
	if !ok || val == nil {
		return "", false
	}
	s := strings.TrimSpace(fmt.Sprint(val))
	return s, s != ""
}

// Lookup 按 "a.b[0].c" 路径取值。
func Lookup(data any, path string) (any, bool) {
	steps, ok := parsePath(strings.TrimSpace(path))
	if !ok || data == nil {
		return nil, false
	}
	current := data
	for _, st := range steps {
		if current, ok = st.apply(current); !ok {
			return nil, false
		}
	}
	return current, true
}

// step 是路径中的一级：字段名或数组下标，二者只取其一。
type step struct {
	field string
	index int
}

func (s step) apply(v any) (any, bool) {
	if s.field == "" {
		items, ok := v.([]any)
		if !ok || s.index < 0 || s.index >= len(items) {
			return nil, false
		}
		return items[s.index], true
	}
	switch m := v.(type) {
	case Fielder:
		val, ok := m.Fields()[s.field]
		return val, ok
	case map[string]any:
		val, ok := m[s.field]
		return val, ok
	case map[string]string:
		val, ok := m[s.field]
		return val, ok
	}
	return nil, false
}

func parsePath(path string) ([]step, bool) {
	if path == "" {
		return nil, false
	}
	var steps []step
	for _, part := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(part, "[")
		if name != "" {
			steps = append(steps, step{field: name})
		}
		if rest == "" {
			continue
		}
		for _, idx := range strings.Split(strings.TrimSuffix(rest, "]"), "][") {
			n, err := strconv.Atoi(idx)
			if err != nil {
				return nil, false
			}
			steps = append(steps, step{index: n})
		}
	}
	return steps, len(steps) > 0
}
