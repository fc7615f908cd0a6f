package mark

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
	"github.com/ByLCY/vellum/transform"
)

// 复合 mark 展开后各图元的 Role。
const (
	RoleBox          = "box"
	RoleWhisker      = "whisker"
	RoleOutlier      = "outlier"
	RoleBulletRange  = "bullet-range"
	RoleBulletBar    = "bullet-bar"
	RoleBulletTarget = "bullet-target"
	RoleFunnel       = "funnel"
)

var rangeFill = scene.RGB(230, 230, 230)

// category 是类别轴上的一个分组。
type category struct {
	value any
	pos   float64
	rows  []transform.Row
}

// categories 按类别轴坐标排序分组；没有类别通道时全部记录归入一组。
func (e *encoder) categories(catCh spec.Channel) ([]*category, error) {
	byKey := map[string]*category{}
	var out []*category
	for _, r := range e.res.Rows {
		pos, ok, err := e.position(r.Datum, catCh, false)
		if err != nil {
			return nil, err
		}
		var v any
		if ok {
			v, _, _ = e.value(r.Datum, catCh)
		} else if e.def(catCh).HasField() {
			continue
		}
		k := scale.Key(v)
		c, found := byKey[k]
		if !found {
			c = &category{value: v, pos: pos}
			byKey[k] = c
			out = append(out, c)
		}
		c.rows = append(c.rows, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out, nil
}

// Quartiles 是一组数值的五数概括与离群值下标。
type Quartiles struct {
	Q1, Median, Q3 float64
	Lower, Upper   float64
	Outliers       []int
}

// Summarize 计算四分位数（R8 分位数定义）并以 extent×IQR 确定须线端点：
// 须线止于围栏内最极端的观测值，围栏外的观测值是离群值。
func Summarize(xs []float64, extent float64) Quartiles {
	s := stats.Sample{Xs: append([]float64(nil), xs...)}
	s.Sort()
	q := Quartiles{Q1: s.Quantile(0.25), Median: s.Quantile(0.5), Q3: s.Quantile(0.75)}
	iqr := q.Q3 - q.Q1
	lo, hi := q.Q1-extent*iqr, q.Q3+extent*iqr
	q.Lower, q.Upper = math.Inf(1), math.Inf(-1)
	for i, x := range xs {
		if x < lo || x > hi {
			q.Outliers = append(q.Outliers, i)
			continue
		}
		q.Lower = math.Min(q.Lower, x)
		q.Upper = math.Max(q.Upper, x)
	}
	if math.IsInf(q.Lower, 0) {
		q.Lower, q.Upper = q.Q1, q.Q3
	}
	return q
}

// boxplot 展开为 Rect（箱体）+ Rule（须线与中位数）+ Symbol（离群值）。
func (e *encoder) boxplot() ([]*scene.Mark, error) {
	o, err := e.u.Orient()
	if err != nil {
		return nil, err
	}
	catCh, valCh, _ := axes(o)
	valDef := e.def(valCh)
	groups, err := e.categories(catCh)
	if err != nil {
		return nil, err
	}
	boxes := &scene.Mark{Type: scene.MarkRect, Role: RoleBox}
	whiskers := &scene.Mark{Type: scene.MarkRule, Role: RoleWhisker}
	outliers := &scene.Mark{Type: scene.MarkSymbol, Role: RoleOutlier}
	cw := e.band(catCh)

	for gi, g := range groups {
		var xs []float64
		var src []spec.Row
		for _, r := range g.rows {
			v, _, err := e.value(r.Datum, valCh)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			f, ok := scale.ToNumber(v)
			if !ok {
				return nil, spec.DataErrorf(spec.CodeTypeMismatch, e.u.ChannelPath(valCh)+".field",
					"字段 %q 的值 %q 不是数值", valDef.Field, binding.Format(v))
			}
			xs = append(xs, f)
			src = append(src, r.Datum)
		}
		if len(xs) == 0 {
			continue
		}
		q := Summarize(xs, e.u.Mark.Extent)
		summary := spec.Row{
			"q1": q.Q1, "median": q.Median, "q3": q.Q3, "lower": q.Lower, "upper": q.Upper,
		}
		if def := e.def(catCh); def.HasField() {
			summary[def.Field] = g.value
		}

		fill, err := e.colorOf(src[0], []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", e.palette.At(gi))
		if err != nil {
			return nil, err
		}
		box := placeRect(o, g.pos, cw, e.mapNumber(valCh, q.Q1), e.mapNumber(valCh, q.Q3))
		it := item(box, summary)
		it.Fill = colorPtr(fill)
		it.Stroke = &scene.Stroke{Color: scene.RGB(50, 50, 50), Width: e.strokeWidth(1)}
		if it.Opacity, err = e.opacity(src[0], 1); err != nil {
			return nil, err
		}
		boxes.Items = append(boxes.Items, it)

		mid := g.pos + cw/2
		stroke := &scene.Stroke{Color: scene.RGB(50, 50, 50), Width: e.strokeWidth(1)}
		for _, seg := range [][2]float64{{q.Lower, q.Q1}, {q.Q3, q.Upper}} {
			a, b := e.mapNumber(valCh, seg[0]), e.mapNumber(valCh, seg[1])
			whiskers.Items = append(whiskers.Items, ruleItem(o, mid, mid, a, b, summary, stroke))
		}
		med := e.mapNumber(valCh, q.Median)
		whiskers.Items = append(whiskers.Items, ruleItem(o, g.pos, g.pos+cw, med, med, summary, stroke))

		for _, i := range q.Outliers {
			p := e.mapNumber(valCh, xs[i])
			sym := scene.Symbol{X: mid, Y: p, Size: 24, Shape: scene.ShapeCircle}
			if o == spec.Horizontal {
				sym.X, sym.Y = p, mid
			}
			oi := item(sym, src[i])
			oi.Stroke = &scene.Stroke{Color: fill, Width: 1}
			outliers.Items = append(outliers.Items, oi)
		}
	}
	return []*scene.Mark{boxes, whiskers, outliers}, nil
}

// ruleItem 在类别轴 [c0, c1] 与数值轴 [v0, v1] 之间画线段。
func ruleItem(o spec.Orientation, c0, c1, v0, v1 float64, row spec.Row, stroke *scene.Stroke) scene.MarkItem {
	g := scene.Rule{X1: c0, Y1: v0, X2: c1, Y2: v1}
	if o == spec.Horizontal {
		g = scene.Rule{X1: v0, Y1: c0, X2: v1, Y2: c1}
	}
	it := item(g, row)
	it.Stroke = stroke
	return it
}

// bullet 展开为背景区间 Rect、数值条 Rect 与目标线 Rule；目标值取自 x2/y2。
func (e *encoder) bullet() ([]*scene.Mark, error) {
	o, err := e.u.Orient()
	if err != nil {
		return nil, err
	}
	catCh, valCh, boundCh := axes(o)
	ranges := &scene.Mark{Type: scene.MarkRect, Role: RoleBulletRange}
	bars := &scene.Mark{Type: scene.MarkRect, Role: RoleBulletBar}
	targets := &scene.Mark{Type: scene.MarkRule, Role: RoleBulletTarget}
	cw := e.band(catCh)
	base := e.baseline(valCh)
	_, far := e.rangeOf(valCh)

	for _, r := range e.res.Rows {
		c0, ok, err := e.position(r.Datum, catCh, false)
		if err != nil {
			return nil, err
		}
		if !ok && e.def(catCh).HasField() {
			continue
		}
		v, ok, err := e.position(r.Datum, valCh, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		bg := item(placeRect(o, c0, cw, base, far), r.Datum)
		bg.Fill = colorPtr(rangeFill)
		ranges.Items = append(ranges.Items, bg)

		bar, err := e.styled(placeRect(o, c0+cw/3, cw/3, base, v), r.Datum, 1)
		if err != nil {
			return nil, err
		}
		bars.Items = append(bars.Items, bar)

		if e.def(boundCh) == nil {
			continue
		}
		t, ok, err := e.position(r.Datum, boundCh, false)
		if err != nil {
			return nil, err
		}
		if ok {
			stroke := &scene.Stroke{Color: scene.RGB(0, 0, 0), Width: e.strokeWidth(2)}
			targets.Items = append(targets.Items, ruleItem(o, c0+cw*0.2, c0+cw*0.8, t, t, r.Datum, stroke))
		}
	}
	return []*scene.Mark{ranges, bars, targets}, nil
}

// funnel 展开为梯形 Rect：每段以数值轴中线对称，近端宽度对应本段数值，远端宽度按下一段与本段的数值比例收窄。
func (e *encoder) funnel() ([]*scene.Mark, error) {
	o, err := e.u.Orient()
	if err != nil {
		return nil, err
	}
	catCh, valCh, _ := axes(o)
	groups, err := e.categories(catCh)
	if err != nil {
		return nil, err
	}
	type stage struct {
		g     *category
		value float64
	}
	var stages []stage
	for _, g := range groups {
		var sum float64
		for _, r := range g.rows {
			v, _, err := e.value(r.Datum, valCh)
			if err != nil {
				return nil, err
			}
			if f, ok := scale.ToNumber(v); ok {
				sum += f
			} else if v != nil {
				return nil, spec.DataErrorf(spec.CodeTypeMismatch, e.u.ChannelPath(valCh)+".field",
					"字段 %q 的值 %q 不是数值", e.def(valCh).Field, binding.Format(v))
			}
		}
		stages = append(stages, stage{g: g, value: sum})
	}

	zero := e.baseline(valCh)
	r0, r1 := e.rangeOf(valCh)
	mid := (r0 + r1) / 2
	cw := e.band(catCh)
	m := &scene.Mark{Type: scene.MarkRect, Role: RoleFunnel}
	for i, st := range stages {
		near := math.Abs(e.mapNumber(valCh, st.value) - zero)
		farW := near
		if i+1 < len(stages) && st.value != 0 {
			farW = near * math.Max(0, stages[i+1].value/st.value)
		}
		c0, c1 := st.g.pos, st.g.pos+cw
		var corners []scene.Point
		if o == spec.Horizontal {
			// 类别沿 y 自上而下，宽度沿 x
			corners = []scene.Point{
				{X: mid - near/2, Y: c0}, {X: mid + near/2, Y: c0},
				{X: mid + farW/2, Y: c1}, {X: mid - farW/2, Y: c1},
			}
		} else {
			corners = []scene.Point{
				{X: c0, Y: mid - near/2}, {X: c1, Y: mid - farW/2},
				{X: c1, Y: mid + farW/2}, {X: c0, Y: mid + near/2},
			}
		}
		geom := scene.Rect{Corners: corners}
		b := geom.Bounds()
		geom.X, geom.Y, geom.W, geom.H = b.X, b.Y, b.W, b.H

		row := st.g.rows[0].Datum
		fill, err := e.colorOf(row, []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", e.palette.At(i))
		if err != nil {
			return nil, err
		}
		it := item(geom, row)
		it.Fill = colorPtr(fill)
		if it.Opacity, err = e.opacity(row, 1); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}
