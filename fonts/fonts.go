package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Family 保存一个字体族的常规与加粗字形数据（TTF）。
type Family struct {
	Name    string
	Regular []byte
	Bold    []byte
}

// 渲染面可直接使用的内置字体族，键为小写名称。
var builtin = map[string]Family{
	"go":      {Name: "Go", Regular: goregular.TTF, Bold: gobold.TTF},
	"go mono": {Name: "Go Mono", Regular: gomono.TTF, Bold: gomonobold.TTF},
}

// Load 按名称（不区分大小写）返回内置字体族；名称为空时返回 Go。
func Load(name string) (Family, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "go"
	}
	fam, ok := builtin[key]
	if !ok {
		return Family{}, fmt.Errorf("未知字体族 %q（可用: %s）", name, strings.Join(Names(), ", "))
	}
	return fam, nil
}

// Names 返回全部内置字体族名称。
func Names() []string {
	names := make([]string, 0, len(builtin))
	for _, fam := range builtin {
		names = append(names, fam.Name)
	}
	sort.Strings(names)
	return names
}
