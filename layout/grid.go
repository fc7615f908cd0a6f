package layout

import (
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

// GridInput 描述分面网格：Inset 是网格四周的留白，Header 是每行单元格上方的表头带高度。
type GridInput struct {
	Width, Height float64
	Rows, Columns int
	Spacing       float64
	Header        float64
	Inset         Insets
}

// Grid 返回每个网格位置的绘图区，按行优先排列（下标 row*Columns+column）。所有位置等宽等高。
func Grid(in GridInput) []scene.Box {
	rows, cols := max(in.Rows, 1), max(in.Columns, 1)
	w := (in.Width - in.Inset.Left - in.Inset.Right - in.Spacing*float64(cols-1)) / float64(cols)
	h := (in.Height - in.Inset.Top - in.Inset.Bottom - in.Header*float64(rows) - in.Spacing*float64(rows-1)) / float64(rows)
	w, h = max(w, 0), max(h, 0)
	out := make([]scene.Box, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, scene.Box{
				X: in.Inset.Left + float64(c)*(w+in.Spacing),
				Y: in.Inset.Top + float64(r)*(h+in.Header+in.Spacing) + in.Header,
				W: w,
				H: h,
			})
		}
	}
	return out
}

// HeaderBand 返回分面表头带的高度。
func HeaderBand(opts Options) float64 {
	_, h := opts.measurer().MeasureText("M", HeaderFontSize)
	return h + bandGap
}

// Header 返回单元格表头，居中于 top（相对绘图区原点的槽位上沿）之上的表头带。
func Header(text string, w, top, band float64) *scene.Mark {
	it := textItem(scene.Text{
		X: w / 2, Y: top - band/2, Text: text, FontSize: HeaderFontSize,
		Anchor: scene.AnchorMiddle, Baseline: scene.BaselineMiddle,
	}, TitleColor)
	return &scene.Mark{Type: scene.MarkText, Role: RoleHeader, Items: []scene.MarkItem{it}}
}

// Position 是一个被占用的网格位置。
type Position struct {
	Row, Column int
}

// Edge 标记单元格位于网格哪些外侧边缘。
type Edge struct {
	Top, Right, Bottom, Left bool
}

// Has reports whether the cell touches the side an axis is drawn on.
func (e Edge) Has(o spec.AxisOrient) bool {
	switch o {
	case spec.OrientTop:
		return e.Top
	case spec.OrientRight:
		return e.Right
	case spec.OrientLeft:
		return e.Left
	default:
		return e.Bottom
	}
}

// OuterEdges 判断每个被占用位置是否为所在行的最左/最右、所在列的最上/最下单元。
// 共享比例尺的坐标轴只画在这些外侧边缘上。
func OuterEdges(positions []Position) []Edge {
	type bounds struct{ lo, hi int }
	rowSpan, colSpan := map[int]*bounds{}, map[int]*bounds{}
	widen := func(m map[int]*bounds, key, v int) {
		b, ok := m[key]
		if !ok {
			m[key] = &bounds{v, v}
			return
		}
		b.lo, b.hi = min(b.lo, v), max(b.hi, v)
	}
	for _, p := range positions {
		widen(rowSpan, p.Row, p.Column)
		widen(colSpan, p.Column, p.Row)
	}
	out := make([]Edge, len(positions))
	for i, p := range positions {
		rs, cs := rowSpan[p.Row], colSpan[p.Column]
		out[i] = Edge{
			Left:   p.Column == rs.lo,
			Right:  p.Column == rs.hi,
			Top:    p.Row == cs.lo,
			Bottom: p.Row == cs.hi,
		}
	}
	return out
}
