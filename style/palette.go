package style

import (
	"github.com/ByLCY/vellum/scene"
)

// Palette 是不可变的调色板：分类颜色按序循环，连续颜色在 Ramp 两端之间以 Lab 空间插值。
// 调色板由调用方显式传入编译流程，不存在全局可写状态。
type Palette struct {
	colors  []scene.Color
	rampLow scene.Color
	rampHi  scene.Color
}

// DefaultPalette 是未指定调色板时使用的分类颜色。
var DefaultPalette = MustPalette(
	"#ff69b4", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc949", "#af7aa1", "#ff9da7", "#9c755f", "#bab0ab",
)

// NewPalette parses categorical colors. The ramp defaults to a light tint of the first color.
func NewPalette(colors ...string) (Palette, error) {
	p := Palette{colors: make([]scene.Color, 0, len(colors))}
	for _, s := range colors {
		c, err := ParseColor(s)
		if err != nil {
			return Palette{}, err
		}
		p.colors = append(p.colors, c)
	}
	if len(p.colors) == 0 {
		p.colors = []scene.Color{scene.RGB(0, 0, 0)}
	}
	p.rampHi = p.colors[0]
	p.rampLow = FromColorful(ToColorful(p.rampHi).BlendLab(ToColorful(scene.RGB(255, 255, 255)), 0.85))
	return p, nil
}

// MustPalette is NewPalette for literals known to be valid.
func MustPalette(colors ...string) Palette {
	p, err := NewPalette(colors...)
	if err != nil {
		panic(err)
	}
	return p
}

// WithRamp returns a copy whose continuous ramp runs from low to high.
func (p Palette) WithRamp(low, high scene.Color) Palette {
	p.colors = append([]scene.Color(nil), p.colors...)
	p.rampLow, p.rampHi = low, high
	return p
}

// Len returns the number of categorical colors.
func (p Palette) Len() int { return len(p.colors) }

// At 返回第 i 个分类颜色，超出长度时循环。
func (p Palette) At(i int) scene.Color {
	if len(p.colors) == 0 {
		return scene.RGB(0, 0, 0)
	}
	if i < 0 {
		i = -i
	}
	return p.colors[i%len(p.colors)]
}

// Ramp 返回 t∈[0,1] 处的连续颜色。
func (p Palette) Ramp(t float64) scene.Color {
	t = clamp01(t)
	return FromColorful(ToColorful(p.rampLow).BlendLab(ToColorful(p.rampHi), t))
}
