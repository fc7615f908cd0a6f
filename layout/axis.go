package layout

import (
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

// Axis 生成一条坐标轴的图元：网格线、轴线、刻度、标签与标题。坐标相对绘图区原点，
// m 必须是该轴比例尺在 w×h 绘图区内的映射。
func Axis(a AxisSpec, m scale.Mapping, w, h float64, ext AxisExtent) *scene.Group {
	g := &scene.Group{Name: "axis-" + a.Scale.Name}
	ticks := m.Ticks(a.tickCount())
	stroke := &scene.Stroke{Color: AxisColor, Width: 1}

	if a.grid() {
		lines := &scene.Mark{Type: scene.MarkRule, Role: RoleGrid}
		for _, t := range ticks {
			r := scene.Rule{X1: t.Pos, Y1: 0, X2: t.Pos, Y2: h}
			if !a.Horizontal() {
				r = scene.Rule{X1: 0, Y1: t.Pos, X2: w, Y2: t.Pos}
			}
			lines.Items = append(lines.Items, ruleItem(r, &scene.Stroke{Color: GridColor, Width: 1}))
		}
		g.Add(lines)
	}

	// 轴所在的边：edge 是垂直于轴方向的坐标，dir 指向绘图区外侧
	var edge, dir float64
	switch a.Orient {
	case spec.OrientTop:
		edge, dir = 0, -1
	case spec.OrientLeft:
		edge, dir = 0, -1
	case spec.OrientRight:
		edge, dir = w, 1
	default:
		edge, dir = h, 1
	}
	along := func(pos, off float64) (float64, float64) {
		if a.Horizontal() {
			return pos, edge + dir*off
		}
		return edge + dir*off, pos
	}

	length := w
	if !a.Horizontal() {
		length = h
	}
	x1, y1 := along(0, 0)
	x2, y2 := along(length, 0)
	g.Add(&scene.Mark{Type: scene.MarkRule, Role: RoleAxisDomain, Items: []scene.MarkItem{
		ruleItem(scene.Rule{X1: x1, Y1: y1, X2: x2, Y2: y2}, stroke),
	}})

	if a.ticks() {
		tm := &scene.Mark{Type: scene.MarkRule, Role: RoleAxisTick}
		for _, t := range ticks {
			x1, y1 := along(t.Pos, 0)
			x2, y2 := along(t.Pos, TickLength)
			tm.Items = append(tm.Items, ruleItem(scene.Rule{X1: x1, Y1: y1, X2: x2, Y2: y2}, stroke))
		}
		g.Add(tm)
	}

	if a.labels() {
		anchor, baseline := labelAlign(a.Orient, a.Config.LabelAngle)
		lm := &scene.Mark{Type: scene.MarkText, Role: RoleAxisLabel}
		for _, t := range ticks {
			x, y := along(t.Pos, TickLength+LabelOffset)
			lm.Items = append(lm.Items, textItem(scene.Text{
				X: x, Y: y, Text: t.Label, FontSize: LabelFontSize,
				Anchor: anchor, Baseline: baseline, Angle: a.Config.LabelAngle,
			}, AxisColor))
		}
		g.Add(lm)
	}

	if title := a.Title(); title != "" {
		offset := ext.TitleOffset
		if offset == 0 {
			offset = HorizontalTitleOffset
			if !a.Horizontal() {
				offset = VerticalTitleOffset
			}
		}
		x, y := along(length/2, offset)
		t := scene.Text{X: x, Y: y, Text: title, FontSize: TitleFontSize, Anchor: scene.AnchorMiddle}
		switch a.Orient {
		case spec.OrientTop:
			t.Baseline = scene.BaselineBottom
		case spec.OrientLeft:
			t.Baseline, t.Angle = scene.BaselineBottom, -90
		case spec.OrientRight:
			t.Baseline, t.Angle = scene.BaselineTop, 90
		default:
			t.Baseline = scene.BaselineTop
		}
		g.Add(&scene.Mark{Type: scene.MarkText, Role: RoleAxisTitle, Items: []scene.MarkItem{textItem(t, TitleColor)}})
	}
	return g
}

// labelAlign 选择标签的锚点：标签朝绘图区外侧排布，旋转后的水平轴标签以末端对齐刻度。
func labelAlign(o spec.AxisOrient, angle float64) (scene.TextAnchor, scene.TextBaseline) {
	switch o {
	case spec.OrientLeft:
		return scene.AnchorEnd, scene.BaselineMiddle
	case spec.OrientRight:
		return scene.AnchorStart, scene.BaselineMiddle
	case spec.OrientTop:
		if angle != 0 {
			return scene.AnchorStart, scene.BaselineMiddle
		}
		return scene.AnchorMiddle, scene.BaselineBottom
	default:
		if angle < 0 {
			return scene.AnchorEnd, scene.BaselineMiddle
		}
		if angle > 0 {
			return scene.AnchorStart, scene.BaselineMiddle
		}
		return scene.AnchorMiddle, scene.BaselineTop
	}
}

func ruleItem(r scene.Rule, s *scene.Stroke) scene.MarkItem {
	return scene.MarkItem{Geometry: r, Stroke: s, Opacity: 1}
}

func textItem(t scene.Text, c scene.Color) scene.MarkItem {
	return scene.MarkItem{Geometry: t, Fill: colorPtr(c), Opacity: 1}
}
