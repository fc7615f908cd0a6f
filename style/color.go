// Package style 解析 CSS 风格的颜色并提供不可变的调色板。
package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ByLCY/vellum/scene"
)

var (
	colorLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Hex", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{4}|[0-9A-Fa-f]{3})\b`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d*|\.\d+|\d+)(?:%|deg)?`},
		{Name: "Ident", Pattern: `[A-Za-z][A-Za-z0-9-]*`},
		{Name: "Symbol", Pattern: `[(),/]`},
	})

	colorParser = participle.MustBuild[ColorExpr](
		participle.Lexer(colorLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

// ColorExpr is the AST of a color literal: #hex, a functional notation or a keyword.
type ColorExpr struct {
	Hex  *string    `parser:"  @Hex"`
	Func *ColorFunc `parser:"| @@"`
	Name *string    `parser:"| @Ident"`
}

// ColorFunc captures rgb()/rgba()/hsl()/hsla().
type ColorFunc struct {
	Name string   `parser:"@Ident '('"`
	Args []string `parser:"@Number ( ( ',' | '/' )? @Number )* ')'"`
}

// ParseColor 解析颜色字符串，支持 #rgb、#rgba、#rrggbb、#rrggbbaa、rgb()、rgba()、hsl()、hsla() 与常用颜色名。
func ParseColor(s string) (scene.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return scene.Color{}, fmt.Errorf("颜色值为空")
	}
	expr, err := colorParser.ParseString("", s)
	if err != nil {
		return scene.Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", s, err)
	}
	switch {
	case expr.Hex != nil:
		return parseHex(*expr.Hex)
	case expr.Func != nil:
		return expr.Func.eval()
	default:
		name := strings.ToLower(*expr.Name)
		if c, ok := namedColors[name]; ok {
			return c, nil
		}
		return scene.Color{}, fmt.Errorf("未知的颜色名 %s", *expr.Name)
	}
}

// MustColor is ParseColor for literals known to be valid.
func MustColor(s string) scene.Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(value string) (scene.Color, error) {
	value = strings.TrimPrefix(value, "#")
	if len(value) == 3 || len(value) == 4 {
		var sb strings.Builder
		for _, r := range value {
			sb.WriteRune(r)
			sb.WriteRune(r)
		}
		value = sb.String()
	}
	var c scene.Color
	parts := []*int{&c.R, &c.G, &c.B}
	for i, p := range parts {
		v, err := strconv.ParseUint(value[2*i:2*i+2], 16, 8)
		if err != nil {
			return scene.Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
		}
		*p = int(v)
	}
	c.A = 1
	if len(value) == 8 {
		v, err := strconv.ParseUint(value[6:8], 16, 8)
		if err != nil {
			return scene.Color{}, fmt.Errorf("颜色值 #%s 无法解析", value)
		}
		c.A = float64(v) / 255
	}
	return c, nil
}

func (f *ColorFunc) eval() (scene.Color, error) {
	name := strings.ToLower(f.Name)
	if n := len(f.Args); n != 3 && n != 4 {
		return scene.Color{}, fmt.Errorf("%s() 需要 3 或 4 个参数，实际 %d 个", name, n)
	}
	alpha := 1.0
	if len(f.Args) == 4 {
		a, err := argValue(f.Args[3], 1)
		if err != nil {
			return scene.Color{}, err
		}
		alpha = clamp01(a)
	}
	switch name {
	case "rgb", "rgba":
		var ch [3]int
		for i := range ch {
			v, err := argValue(f.Args[i], 255)
			if err != nil {
				return scene.Color{}, err
			}
			ch[i] = int(math.Round(math.Max(0, math.Min(255, v))))
		}
		return scene.Color{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
	case "hsl", "hsla":
		h, err := strconv.ParseFloat(strings.TrimSuffix(f.Args[0], "deg"), 64)
		if err != nil {
			return scene.Color{}, fmt.Errorf("色相 %s 无法解析", f.Args[0])
		}
		sat, err := argValue(f.Args[1], 1)
		if err != nil {
			return scene.Color{}, err
		}
		light, err := argValue(f.Args[2], 1)
		if err != nil {
			return scene.Color{}, err
		}
		h = math.Mod(math.Mod(h, 360)+360, 360)
		c := FromColorful(colorful.Hsl(h, clamp01(sat), clamp01(light)))
		c.A = alpha
		return c, nil
	default:
		return scene.Color{}, fmt.Errorf("不支持的颜色函数 %s()", f.Name)
	}
}

// argValue 读取数值参数；百分数按 full 缩放。
func argValue(raw string, full float64) (float64, error) {
	if strings.HasSuffix(raw, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("参数 %s 无法解析", raw)
		}
		return v / 100 * full, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "deg"), 64)
	if err != nil {
		return 0, fmt.Errorf("参数 %s 无法解析", raw)
	}
	return v, nil
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// ToColorful converts to go-colorful's float representation, dropping alpha.
func ToColorful(c scene.Color) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// FromColorful converts back to an opaque scene color.
func FromColorful(c colorful.Color) scene.Color {
	r, g, b := c.Clamped().RGB255()
	return scene.RGB(int(r), int(g), int(b))
}

var namedColors = map[string]scene.Color{
	"black":       scene.RGB(0, 0, 0),
	"white":       scene.RGB(255, 255, 255),
	"red":         scene.RGB(255, 0, 0),
	"green":       scene.RGB(0, 128, 0),
	"blue":        scene.RGB(0, 0, 255),
	"yellow":      scene.RGB(255, 255, 0),
	"orange":      scene.RGB(255, 165, 0),
	"purple":      scene.RGB(128, 0, 128),
	"pink":        scene.RGB(255, 192, 203),
	"hotpink":     scene.RGB(255, 105, 180),
	"gray":        scene.RGB(128, 128, 128),
	"grey":        scene.RGB(128, 128, 128),
	"lightgray":   scene.RGB(211, 211, 211),
	"darkgray":    scene.RGB(169, 169, 169),
	"steelblue":   scene.RGB(70, 130, 180),
	"teal":        scene.RGB(0, 128, 128),
	"navy":        scene.RGB(0, 0, 128),
	"maroon":      scene.RGB(128, 0, 0),
	"olive":       scene.RGB(128, 128, 0),
	"silver":      scene.RGB(192, 192, 192),
	"crimson":     scene.RGB(220, 20, 60),
	"tomato":      scene.RGB(255, 99, 71),
	"gold":        scene.RGB(255, 215, 0),
	"transparent": {},
}
