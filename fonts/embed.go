// Package fonts 提供渲染器内置的 Latin Modern 字体。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10oblique"
	"github.com/go-fonts/latin-modern/lmsans10regular"
)

// 内置字体名
const (
	SansRegular  = "lmsans10-regular"
	SansBold     = "lmsans10-bold"
	SansOblique  = "lmsans10-oblique"
	RomanRegular = "lmroman10-regular"
)

var builtin = map[string][]byte{
	SansRegular:  lmsans10regular.TTF,
	SansBold:     lmsans10bold.TTF,
	SansOblique:  lmsans10oblique.TTF,
	RomanRegular: lmroman10regular.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:lmsans10-regular" 或直接 "lmsans10-regular"。
func Load(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "embed:")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 没有这个字体", name)
	}
	return data, nil
}

// Names lists the built-in font names in sorted order.
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
