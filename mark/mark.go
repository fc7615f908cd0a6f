// Package mark 把一个编码单元编译为若干图元 mark。复合 mark（箱线图、子弹图、漏斗图）先展开为图元。
package mark

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
	"github.com/ByLCY/vellum/style"
	"github.com/ByLCY/vellum/transform"
)

// Input 是编译一个编码单元所需的全部输入。Scales 必须已经冻结。
type Input struct {
	Unit    *spec.Unit
	Scales  scale.Set
	Result  *transform.Result
	Width   float64
	Height  float64
	Palette style.Palette
}

// RoleMark 是数据 mark 的默认 Role。
const RoleMark = "mark"

// Compile 按 mark 种类分派，返回按绘制顺序排列的图元 mark。
func Compile(in Input) ([]*scene.Mark, error) {
	if in.Unit == nil || in.Result == nil {
		return nil, fmt.Errorf("mark: 缺少编码单元或变换结果")
	}
	e := newEncoder(in)
	switch in.Unit.Mark.Type {
	case spec.MarkBar:
		return e.bars()
	case spec.MarkRect:
		return e.rects()
	case spec.MarkPoint, spec.MarkSymbol, spec.MarkCircle, spec.MarkSquare:
		return e.symbols()
	case spec.MarkLine:
		return e.lines(false)
	case spec.MarkPath:
		return e.lines(true)
	case spec.MarkArea:
		return e.areas()
	case spec.MarkRule:
		return e.rules()
	case spec.MarkText:
		return e.texts()
	case spec.MarkArc:
		return e.arcs()
	case spec.MarkBoxplot:
		return e.boxplot()
	case spec.MarkBullet:
		return e.bullet()
	case spec.MarkFunnel:
		return e.funnel()
	default:
		return nil, spec.SpecErrorf(spec.CodeUnsupportedMark, e.markPath("type"), "不支持的 mark 类型 %q", in.Unit.Mark.Type)
	}
}

// axes 返回类别轴与数值轴；vertical 时类别在 x。
func axes(o spec.Orientation) (cat, val, bound spec.Channel) {
	if o == spec.Horizontal {
		return spec.ChannelY, spec.ChannelX, spec.ChannelX2
	}
	return spec.ChannelX, spec.ChannelY, spec.ChannelY2
}

// placeRect 用类别轴区间 [c0, c0+cw) 与数值轴区间 [v0, v1] 构造矩形。
func placeRect(o spec.Orientation, c0, cw, v0, v1 float64) scene.Rect {
	lo, size := math.Min(v0, v1), math.Abs(v1-v0)
	if o == spec.Horizontal {
		return scene.Rect{X: lo, Y: c0, W: size, H: cw}
	}
	return scene.Rect{X: c0, Y: lo, W: cw, H: size}
}

func (e *encoder) bars() ([]*scene.Mark, error) {
	o, err := e.u.Orient()
	if err != nil {
		return nil, err
	}
	catCh, valCh, boundCh := axes(o)
	m := &scene.Mark{Type: scene.MarkRect, Role: RoleMark}
	for _, r := range e.res.Rows {
		c0, ok, err := e.position(r.Datum, catCh, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			if e.def(catCh).HasField() {
				continue
			}
			c0 = 0
		}
		cw := e.band(catCh)
		if e.res.Dodged && e.res.Slots > 0 && r.Slot >= 0 {
			sub := cw / float64(e.res.Slots)
			c0 += float64(r.Slot) * sub
			cw = sub * 0.9
		}

		var v0, v1 float64
		switch {
		case e.res.Stacked:
			v0, v1 = e.mapNumber(valCh, r.Start), e.mapNumber(valCh, r.End)
		case e.def(boundCh) != nil:
			var ok0, ok1 bool
			if v0, ok0, err = e.position(r.Datum, boundCh, false); err != nil {
				return nil, err
			}
			if v1, ok1, err = e.position(r.Datum, valCh, false); err != nil {
				return nil, err
			}
			if !ok0 || !ok1 {
				continue
			}
		default:
			if v1, ok, err = e.position(r.Datum, valCh, false); err != nil {
				return nil, err
			} else if !ok {
				continue
			}
			v0 = e.baseline(valCh)
		}

		geom := placeRect(o, c0, cw, v0, v1)
		geom.CornerRadius = e.u.Mark.CornerRadius
		it, err := e.styled(geom, r.Datum, 1)
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

// rects 处理热力图与显式 x2/y2 区间；其余情形按柱状图处理。
func (e *encoder) rects() ([]*scene.Mark, error) {
	hasBounds := e.def(spec.ChannelX2) != nil || e.def(spec.ChannelY2) != nil
	x, y := e.def(spec.ChannelX), e.def(spec.ChannelY)
	heatmap := x != nil && y != nil && x.Type.Categorical() && y.Type.Categorical() && !x.IsConstant() && !y.IsConstant()
	if !hasBounds && !heatmap {
		return e.bars()
	}
	m := &scene.Mark{Type: scene.MarkRect, Role: RoleMark}
	for _, r := range e.res.Rows {
		x0, x1, okx, err := e.span(r.Datum, spec.ChannelX, spec.ChannelX2)
		if err != nil {
			return nil, err
		}
		y0, y1, oky, err := e.span(r.Datum, spec.ChannelY, spec.ChannelY2)
		if err != nil {
			return nil, err
		}
		if !okx || !oky {
			continue
		}
		geom := scene.Rect{X: math.Min(x0, x1), Y: math.Min(y0, y1), W: math.Abs(x1 - x0), H: math.Abs(y1 - y0)}
		geom.CornerRadius = e.u.Mark.CornerRadius
		it, err := e.styled(geom, r.Datum, 1)
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

// span 返回单轴上的像素区间：类别通道取整个带，有第二通道时取两者之间，否则从基线开始。
func (e *encoder) span(row spec.Row, ch, ch2 spec.Channel) (float64, float64, bool, error) {
	if e.def(ch) == nil {
		return 0, e.extent(ch), true, nil
	}
	p0, ok, err := e.position(row, ch, false)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	if e.def(ch2) != nil {
		p1, ok, err := e.position(row, ch2, false)
		if err != nil || !ok {
			return 0, 0, false, err
		}
		if m := e.maps[ch2]; m != nil && m.Bandwidth() > 0 {
			p1 += m.Bandwidth()
		}
		return p0, p1, true, nil
	}
	if m := e.maps[ch]; m != nil && m.Bandwidth() > 0 {
		return p0, p0 + m.Bandwidth(), true, nil
	}
	return e.baseline(ch), p0, true, nil
}

// styled 为面状图元填充颜色、描边与透明度。
func (e *encoder) styled(g scene.Geometry, row spec.Row, opacity float64) (scene.MarkItem, error) {
	it := item(g, row)
	fill, err := e.fill(row)
	if err != nil {
		return it, err
	}
	it.Fill = colorPtr(fill)
	if e.u.Mark.Stroke != "" || e.def(spec.ChannelStroke) != nil {
		c, err := e.stroke(row, fill)
		if err != nil {
			return it, err
		}
		it.Stroke = &scene.Stroke{Color: c, Width: e.strokeWidth(1)}
	}
	if it.Opacity, err = e.opacity(row, opacity); err != nil {
		return it, err
	}
	return it, nil
}

// center 返回记录在两条位置轴上的中心坐标；未声明的轴取绘图区中线。
func (e *encoder) center(row spec.Row) (float64, float64, bool, error) {
	x, y := e.w/2, e.h/2
	if e.def(spec.ChannelX) != nil {
		p, ok, err := e.position(row, spec.ChannelX, true)
		if err != nil || !ok {
			return 0, 0, false, err
		}
		x = p
	}
	if e.def(spec.ChannelY) != nil {
		p, ok, err := e.position(row, spec.ChannelY, true)
		if err != nil || !ok {
			return 0, 0, false, err
		}
		y = p
	}
	return x, y, true, nil
}

func (e *encoder) symbols() ([]*scene.Mark, error) {
	m := &scene.Mark{Type: scene.MarkSymbol, Role: RoleMark}
	for _, r := range e.res.Rows {
		x, y, ok, err := e.center(r.Datum)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		size, err := e.size(r.Datum, defaultSymbolSize, 16, 400)
		if err != nil {
			return nil, err
		}
		shape, err := e.shape(r.Datum)
		if err != nil {
			return nil, err
		}
		it, err := e.styled(scene.Symbol{X: x, Y: y, Size: size, Shape: shape}, r.Datum, 1)
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

// vertex 是折线上的一个点及其下沿。
type vertex struct {
	pt, base scene.Point
	key      float64
	row      spec.Row
}

type series struct {
	rank  int
	verts []vertex
}

// trace 把记录按系列分组。折线沿类别轴排序；path 保持记录顺序。
func (e *encoder) trace(keepOrder bool) ([]*series, spec.Orientation, error) {
	o, err := e.u.Orient()
	if err != nil {
		return nil, o, err
	}
	catCh, valCh, _ := axes(o)
	rank, err := e.seriesRank(e.res.Rows)
	if err != nil {
		return nil, o, err
	}
	byRank := map[int]*series{}
	var out []*series
	for i, r := range e.res.Rows {
		x, y, ok, err := e.center(r.Datum)
		if err != nil {
			return nil, o, err
		}
		if !ok {
			continue
		}
		pt := scene.Point{X: x, Y: y}
		base := pt
		if e.res.Stacked {
			v0, v1 := e.mapNumber(valCh, r.Start), e.mapNumber(valCh, r.End)
			if valCh == spec.ChannelY {
				pt.Y, base.Y = v1, v0
			} else {
				pt.X, base.X = v1, v0
			}
		} else if valCh == spec.ChannelY {
			base.Y = e.baseline(valCh)
		} else {
			base.X = e.baseline(valCh)
		}
		key := pt.X
		if catCh == spec.ChannelY {
			key = pt.Y
		}
		s, ok := byRank[rank[i]]
		if !ok {
			s = &series{rank: rank[i]}
			byRank[rank[i]] = s
			out = append(out, s)
		}
		s.verts = append(s.verts, vertex{pt: pt, base: base, key: key, row: r.Datum})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].rank < out[j].rank })
	if !keepOrder {
		for _, s := range out {
			sort.SliceStable(s.verts, func(i, j int) bool { return s.verts[i].key < s.verts[j].key })
		}
	}
	return out, o, nil
}

func (e *encoder) lines(keepOrder bool) ([]*scene.Mark, error) {
	all, _, err := e.trace(keepOrder)
	if err != nil {
		return nil, err
	}
	kind := scene.MarkLine
	if keepOrder {
		kind = scene.MarkPath
	}
	m := &scene.Mark{Type: kind, Role: RoleMark}
	for _, s := range all {
		if len(s.verts) == 0 {
			continue
		}
		row := s.verts[0].row
		c, err := e.stroke(row, e.palette.At(s.rank))
		if err != nil {
			return nil, err
		}
		pts := make([]scene.Point, len(s.verts))
		for i, v := range s.verts {
			pts[i] = v.pt
		}
		var g scene.Geometry = scene.Line{Points: pts}
		if keepOrder {
			g = scene.Path{D: pathData(pts)}
		}
		it := item(g, row)
		it.Stroke = &scene.Stroke{Color: c, Width: e.strokeWidth(defaultStrokeWidth)}
		if it.Opacity, err = e.opacity(row, 1); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

func pathData(pts []scene.Point) string {
	var sb strings.Builder
	for i, p := range pts {
		if i == 0 {
			sb.WriteString("M")
		} else {
			sb.WriteString("L")
		}
		fmt.Fprintf(&sb, "%.2f,%.2f", p.X, p.Y)
	}
	return sb.String()
}

// areas 输出面积与其上沿折线，两者颜色一致。
func (e *encoder) areas() ([]*scene.Mark, error) {
	all, _, err := e.trace(false)
	if err != nil {
		return nil, err
	}
	fills := &scene.Mark{Type: scene.MarkArea, Role: RoleMark}
	edges := &scene.Mark{Type: scene.MarkLine, Role: "area-line"}
	for _, s := range all {
		if len(s.verts) == 0 {
			continue
		}
		row := s.verts[0].row
		c, err := e.colorOf(row, []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", e.palette.At(s.rank))
		if err != nil {
			return nil, err
		}
		top := make([]scene.Point, len(s.verts))
		base := make([]scene.Point, len(s.verts))
		for i, v := range s.verts {
			top[i], base[i] = v.pt, v.base
		}
		it := item(scene.Area{Points: top, Baseline: base}, row)
		it.Fill = colorPtr(c)
		if it.Opacity, err = e.opacity(row, areaOpacity); err != nil {
			return nil, err
		}
		fills.Items = append(fills.Items, it)

		line := item(scene.Line{Points: top}, row)
		line.Stroke = &scene.Stroke{Color: c, Width: e.strokeWidth(defaultStrokeWidth)}
		edges.Items = append(edges.Items, line)
	}
	return []*scene.Mark{fills, edges}, nil
}

// rules 处理参考线：只给 y 时横贯绘图区，只给 x 时纵贯；类别轴上的规则线横跨整个带。
func (e *encoder) rules() ([]*scene.Mark, error) {
	m := &scene.Mark{Type: scene.MarkRule, Role: RoleMark}
	for _, r := range e.res.Rows {
		x0, x1, okx, err := e.ruleSpan(r.Datum, spec.ChannelX, spec.ChannelX2)
		if err != nil {
			return nil, err
		}
		y0, y1, oky, err := e.ruleSpan(r.Datum, spec.ChannelY, spec.ChannelY2)
		if err != nil {
			return nil, err
		}
		if !okx || !oky {
			continue
		}
		xDef, yDef := e.def(spec.ChannelX), e.def(spec.ChannelY)
		// 两条轴都是单点时画成从基线出发的竖线
		if xDef != nil && yDef != nil && x0 == x1 && y0 == y1 {
			y0 = e.baseline(spec.ChannelY)
		}
		c, err := e.stroke(r.Datum, scene.RGB(0, 0, 0))
		if err != nil {
			return nil, err
		}
		it := item(scene.Rule{X1: x0, Y1: y0, X2: x1, Y2: y1}, r.Datum)
		it.Stroke = &scene.Stroke{Color: c, Width: e.strokeWidth(1)}
		if it.Opacity, err = e.opacity(r.Datum, 1); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

// ruleSpan 返回规则线在单轴上的端点。
func (e *encoder) ruleSpan(row spec.Row, ch, ch2 spec.Channel) (float64, float64, bool, error) {
	if e.def(ch) == nil {
		return 0, e.extent(ch), true, nil
	}
	p0, ok, err := e.position(row, ch, false)
	if err != nil || !ok {
		return 0, 0, false, err
	}
	if e.def(ch2) != nil {
		p1, ok, err := e.position(row, ch2, false)
		if err != nil || !ok {
			return 0, 0, false, err
		}
		return p0, p1, true, nil
	}
	if m := e.maps[ch]; m != nil && m.Bandwidth() > 0 {
		return p0, p0 + m.Bandwidth(), true, nil
	}
	return p0, p0, true, nil
}

func (e *encoder) texts() ([]*scene.Mark, error) {
	m := &scene.Mark{Type: scene.MarkText, Role: RoleMark}
	for _, r := range e.res.Rows {
		x, y, ok, err := e.center(r.Datum)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, _, err := e.value(r.Datum, spec.ChannelText)
		if err != nil {
			return nil, err
		}
		label := ""
		if f, isNum := v.(float64); isNum {
			label = scale.FormatNumber(f)
		} else if v != nil {
			label = binding.Format(v)
		}
		size, err := e.size(r.Datum, defaultFontSize, 8, 24)
		if err != nil {
			return nil, err
		}
		fill, err := e.colorOf(r.Datum, []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", scene.RGB(0, 0, 0))
		if err != nil {
			return nil, err
		}
		it := item(scene.Text{X: x, Y: y, Text: label, FontSize: size, Anchor: scene.AnchorMiddle, Baseline: scene.BaselineMiddle}, r.Datum)
		it.Fill = colorPtr(fill)
		if it.Opacity, err = e.opacity(r.Datum, 1); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}

// arcs 按记录顺序排列扇区，角度与 theta 成正比；没有 theta 时等分。
func (e *encoder) arcs() ([]*scene.Mark, error) {
	values := make([]float64, len(e.res.Rows))
	var total float64
	for i, r := range e.res.Rows {
		v, ok, err := e.value(r.Datum, spec.ChannelTheta)
		if err != nil {
			return nil, err
		}
		if !ok {
			values[i] = 1
		} else if f, isNum := scale.ToNumber(v); isNum && f > 0 {
			values[i] = f
		} else if v != nil && !isNum {
			return nil, spec.DataErrorf(spec.CodeTypeMismatch, e.u.ChannelPath(spec.ChannelTheta)+".field",
				"theta 的值 %q 不是数值", binding.Format(v))
		}
		total += values[i]
	}
	outer := math.Min(e.w, e.h) / 2
	inner := math.Min(e.u.Mark.InnerRadius, outer)
	m := &scene.Mark{Type: scene.MarkArc, Role: RoleMark}
	angle := 0.0
	_, grouped := e.u.Encoding.Grouping()
	for i, r := range e.res.Rows {
		sweep := 0.0
		if total > 0 {
			sweep = values[i] / total * 2 * math.Pi
		}
		geom := scene.Arc{CX: e.w / 2, CY: e.h / 2, Inner: inner, Outer: outer, Start: angle, End: angle + sweep}
		angle += sweep
		fallback := e.palette.At(i)
		if grouped != nil {
			fallback = e.palette.At(0)
		}
		fill, err := e.colorOf(r.Datum, []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", fallback)
		if err != nil {
			return nil, err
		}
		it := item(geom, r.Datum)
		it.Fill = colorPtr(fill)
		it.Stroke = &scene.Stroke{Color: scene.RGB(255, 255, 255), Width: e.strokeWidth(1)}
		if it.Opacity, err = e.opacity(r.Datum, 1); err != nil {
			return nil, err
		}
		m.Items = append(m.Items, it)
	}
	return []*scene.Mark{m}, nil
}
