// Package layout 计算绘图区留白、坐标轴图元与分面网格位置。布局只做两遍：
// 第一遍按刻度标签估算留白，第二遍由总尺寸减去留白得到绘图区。
package layout

import (
	"math"

	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

// MeasureInput 是第一遍的输入。Padding 是声明的留白，Axes 的比例尺必须已经冻结。
type MeasureInput struct {
	Padding Insets
	Axes    []AxisSpec
	Title   string
}

// Measure 是第一遍：由刻度标签尺寸推出每条轴的厚度，留白取声明值与轴占用的较大者；
// 图表标题在顶部额外占用一条标题带。
func Measure(in MeasureInput, opts Options) Measurement {
	tm := opts.measurer()
	m := Measurement{}
	var alloc Insets
	for _, a := range in.Axes {
		e := measureAxis(a, tm)
		m.Axes = append(m.Axes, e)
		switch a.Orient {
		case spec.OrientTop:
			alloc.Top = max(alloc.Top, e.Thickness)
		case spec.OrientRight:
			alloc.Right = max(alloc.Right, e.Thickness)
		case spec.OrientLeft:
			alloc.Left = max(alloc.Left, e.Thickness)
		default:
			alloc.Bottom = max(alloc.Bottom, e.Thickness)
		}
	}
	m.Padding = in.Padding.Max(alloc)
	if in.Title != "" {
		_, h := tm.MeasureText(in.Title, ChartTitleFontSize)
		m.TitleBand = h + bandGap
		m.Padding.Top += m.TitleBand
	}
	return m
}

func measureAxis(a AxisSpec, tm TextMeasurer) AxisExtent {
	e := AxisExtent{Orient: a.Orient}
	if a.ticks() {
		e.Thickness = TickLength
	}
	if a.labels() {
		var extent float64
		for _, t := range a.Scale.Range(0, 1).Ticks(a.tickCount()) {
			w, h := tm.MeasureText(t.Label, LabelFontSize)
			extent = max(extent, labelExtent(w, h, a.Config.LabelAngle, a.Horizontal()))
		}
		e.Thickness = TickLength + LabelOffset + extent
	}
	if title := a.Title(); title != "" {
		e.TitleOffset = VerticalTitleOffset
		if a.Horizontal() {
			e.TitleOffset = HorizontalTitleOffset
		}
		// 标签过宽时把标题向外推
		e.TitleOffset = max(e.TitleOffset, e.Thickness+bandGap/2)
		_, h := tm.MeasureText(title, TitleFontSize)
		e.Thickness = e.TitleOffset + h
	}
	return e
}

// labelExtent 返回旋转后的标签在垂直于轴方向上的尺寸。
func labelExtent(w, h, angle float64, horizontal bool) float64 {
	rad := angle * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	if horizontal {
		return w*sin + h*cos
	}
	return w*cos + h*sin
}

// Place 是第二遍：绘图区等于总尺寸减去留白，尺寸不足时收缩为 0。
func Place(width, height float64, m Measurement) scene.Box {
	p := m.Padding
	return scene.Box{
		X: p.Left,
		Y: p.Top,
		W: max(0, width-p.Left-p.Right),
		H: max(0, height-p.Top-p.Bottom),
	}
}

// Title 返回图表标题，水平居中于标题带内。
func Title(text string, width float64, m Measurement) *scene.Mark {
	it := scene.MarkItem{
		Geometry: scene.Text{
			X: width / 2, Y: m.TitleBand / 2, Text: text, FontSize: ChartTitleFontSize,
			Anchor: scene.AnchorMiddle, Baseline: scene.BaselineMiddle,
		},
		Fill:    colorPtr(TitleColor),
		Opacity: 1,
	}
	return &scene.Mark{Type: scene.MarkText, Role: RoleTitle, Items: []scene.MarkItem{it}}
}

func colorPtr(c scene.Color) *scene.Color { return &c }
