package compile

import (
	"fmt"

	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/mark"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

// frame 是一个分面单元的布局结果，坐标相对画布。
type frame struct {
	slot scene.Box
	plot scene.Box
	// header 是表头带高度，0 表示不画表头
	header float64
	axes   []layout.AxisSpec
	// edge 决定哪些方向的轴画在这个单元上
	edge layout.Edge
	m    layout.Measurement
}

var everyEdge = layout.Edge{Top: true, Right: true, Bottom: true, Left: true}

// axisSpecs 收集单元内的位置比例尺：第一个水平比例尺画在底部、第二个在顶部，
// 第一个垂直比例尺画在左侧、第二个在右侧。更多的同向比例尺不画轴。
func axisSpecs(units []*spec.Unit, set scale.Set) []layout.AxisSpec {
	var out []layout.AxisSpec
	seen := map[string]bool{}
	var nx, ny int
	for _, u := range units {
		for _, ch := range []spec.Channel{spec.ChannelX, spec.ChannelX2, spec.ChannelY, spec.ChannelY2} {
			s := set.For(u, ch)
			if s == nil || seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			horizontal := ch == spec.ChannelX || ch == spec.ChannelX2
			var primary spec.Channel
			var orient spec.AxisOrient
			switch {
			case horizontal && nx < 2:
				primary, orient = spec.ChannelX, []spec.AxisOrient{spec.OrientBottom, spec.OrientTop}[nx]
				nx++
			case !horizontal && ny < 2:
				primary, orient = spec.ChannelY, []spec.AxisOrient{spec.OrientLeft, spec.OrientRight}[ny]
				ny++
			default:
				continue
			}
			out = append(out, layout.NewAxisSpec(primary, s, orient))
		}
	}
	return out
}

// sharedAxes reports whether every positional scale of every cell is shared.
// The decision is global: one independent axis scale moves all cells to per-cell axes.
func (p *plan) sharedAxes(axes [][]layout.AxisSpec) bool {
	for _, cell := range axes {
		for _, a := range cell {
			if p.policy(a.Scale.Name) == spec.ResolveIndependent {
				return false
			}
		}
	}
	return true
}

// layout 执行两遍布局，返回整体度量（用于图表标题）与每个单元的 frame。
func (p *plan) layout(opts layout.Options) (layout.Measurement, []frame) {
	c := p.chart
	declared := layout.InsetsFrom(c.Padding)
	axes := make([][]layout.AxisSpec, len(p.cells))
	for i := range p.cells {
		axes[i] = axisSpecs(c.Units, p.sets[i])
	}

	if len(p.cells) == 0 {
		// 空数据的分面没有单元，只保留标题
		return layout.Measure(layout.MeasureInput{Padding: declared, Title: c.Title}, opts), nil
	}

	if c.Facet == nil {
		m := layout.Measure(layout.MeasureInput{Padding: declared, Axes: axes[0], Title: c.Title}, opts)
		plot := layout.Place(c.Width, c.Height, m)
		return m, []frame{{slot: plot, plot: plot, axes: axes[0], edge: everyEdge, m: m}}
	}

	var header float64
	if p.grid.Headers {
		header = layout.HeaderBand(opts)
	}
	spacing := spec.DefaultFacetSpacing
	if c.Facet.Spacing != nil {
		spacing = *c.Facet.Spacing
	}
	grid := func(inset layout.Insets) []scene.Box {
		return layout.Grid(layout.GridInput{
			Width: c.Width, Height: c.Height,
			Rows: p.grid.Rows, Columns: p.grid.Columns,
			Spacing: spacing, Header: header, Inset: inset,
		})
	}
	frames := make([]frame, len(p.cells))

	if p.sharedAxes(axes) {
		// 共享坐标轴只测量一次，并且只画在网格外侧的单元上
		m := layout.Measure(layout.MeasureInput{Padding: declared, Axes: axes[0], Title: c.Title}, opts)
		slots := grid(m.Padding)
		pos := make([]layout.Position, len(p.cells))
		for i, cell := range p.cells {
			pos[i] = layout.Position{Row: cell.Row, Column: cell.Column}
		}
		edges := layout.OuterEdges(pos)
		for i, cell := range p.cells {
			slot := slots[cell.Row*p.grid.Columns+cell.Column]
			frames[i] = frame{slot: slot, plot: slot, header: header, axes: axes[i], edge: edges[i], m: m}
		}
		return m, frames
	}

	// 独立坐标轴：网格只扣除声明留白与标题带，每个单元在自己的槽位内完整测量
	m := layout.Measure(layout.MeasureInput{Padding: declared, Title: c.Title}, opts)
	slots := grid(m.Padding)
	for i, cell := range p.cells {
		slot := slots[cell.Row*p.grid.Columns+cell.Column]
		cm := layout.Measure(layout.MeasureInput{Axes: axes[i]}, opts)
		inner := layout.Place(slot.W, slot.H, cm)
		plot := scene.Box{X: slot.X + inner.X, Y: slot.Y + inner.Y, W: inner.W, H: inner.H}
		frames[i] = frame{slot: slot, plot: plot, header: header, axes: axes[i], edge: everyEdge, m: cm}
	}
	return m, frames
}

// cell 编译一个分面单元：表头、裁剪到绘图区的数据 mark、坐标轴。只读取冻结的比例尺。
func (p *plan) cell(i int, f frame, opts Options) (*scene.Group, error) {
	w, h := f.plot.W, f.plot.H
	g := &scene.Group{
		Name:      fmt.Sprintf("cell-%d", i),
		Transform: scene.Transform{X: f.plot.X, Y: f.plot.Y},
	}
	if f.header > 0 {
		if label := p.cells[i].Label(); label != "" {
			g.Add(layout.Header(label, w, f.slot.Y-f.plot.Y, f.header))
		}
	}

	marks := &scene.Group{Name: "marks", Clip: &scene.Box{W: w, H: h}}
	for _, u := range p.chart.Units {
		ms, err := mark.Compile(mark.Input{
			Unit:    u,
			Scales:  p.sets[i],
			Result:  p.results[i][u.Index],
			Width:   w,
			Height:  h,
			Palette: opts.Palette,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range ms {
			marks.Add(m)
		}
	}
	g.Add(marks)

	for _, a := range f.axes {
		if !f.edge.Has(a.Orient) {
			continue
		}
		g.Add(layout.Axis(a, a.Scale.Position(a.Channel, w, h), w, h, f.m.Extent(a.Orient)))
	}
	return g, nil
}
