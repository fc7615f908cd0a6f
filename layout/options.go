package layout

import "unicode/utf8"

// Options 配置布局阶段所需的依赖，例如文本度量后端。
type Options struct {
	Measurer TextMeasurer
}

// TextMeasurer 返回单行文本在给定字号下的宽高（像素）。渲染后端可以提供精确实现。
type TextMeasurer interface {
	MeasureText(content string, fontSize float64) (width, height float64)
}

// HeuristicMeasurer 按固定字符宽度估算文本尺寸：每个字符 0.6 倍字号。
type HeuristicMeasurer struct{}

func (HeuristicMeasurer) MeasureText(content string, fontSize float64) (float64, float64) {
	if fontSize <= 0 {
		fontSize = LabelFontSize
	}
	return fontSize * charWidth * float64(utf8.RuneCountInString(content)), fontSize
}

const charWidth = 0.6

func (o Options) measurer() TextMeasurer {
	if o.Measurer == nil {
		return HeuristicMeasurer{}
	}
	return o.Measurer
}
