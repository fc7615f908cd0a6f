package mark

import (
	"math"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
	"github.com/ByLCY/vellum/style"
	"github.com/ByLCY/vellum/transform"
)

const (
	defaultSymbolSize  = 64.0
	defaultStrokeWidth = 2.0
	defaultFontSize    = 11.0
	areaOpacity        = 0.7
)

// encoder 把单个编码单元的通道映射到绘图区坐标与样式。绘图区原点在左上角。
type encoder struct {
	u       *spec.Unit
	res     *transform.Result
	scales  scale.Set
	w, h    float64
	palette style.Palette
	maps    map[spec.Channel]scale.Mapping
}

func newEncoder(in Input) *encoder {
	e := &encoder{
		u:       in.Unit,
		res:     in.Result,
		scales:  in.Scales,
		w:       in.Width,
		h:       in.Height,
		palette: in.Palette,
		maps:    map[spec.Channel]scale.Mapping{},
	}
	if e.palette.Len() == 0 {
		e.palette = style.DefaultPalette
	}
	for _, ch := range []spec.Channel{spec.ChannelX, spec.ChannelX2, spec.ChannelY, spec.ChannelY2} {
		if s := e.scales.For(e.u, ch); s != nil {
			e.maps[ch] = s.Position(ch, e.w, e.h)
		}
	}
	return e
}

func (e *encoder) def(ch spec.Channel) *spec.ChannelDef { return e.u.Encoding.Get(ch) }

// value 读取通道值。通道未声明时 ok 为 false；字段缺失返回 DataError.MissingField。
func (e *encoder) value(row spec.Row, ch spec.Channel) (any, bool, error) {
	def := e.def(ch)
	if def == nil {
		return nil, false, nil
	}
	v, ok := transform.Value(row, def)
	if !ok {
		return nil, false, spec.DataErrorf(spec.CodeMissingField, e.u.ChannelPath(ch)+".field",
			"记录缺少字段 %q（通道 %s）", transform.FieldOf(def), ch)
	}
	return v, true, nil
}

// position 返回位置通道的坐标；类别通道返回带起点，center 为真时返回带中心。
// 常量位置以像素解释。值为 null 时 ok 为 false，调用方跳过该记录。
func (e *encoder) position(row spec.Row, ch spec.Channel, center bool) (float64, bool, error) {
	v, ok, err := e.value(row, ch)
	if err != nil || !ok || v == nil {
		return 0, false, err
	}
	def := e.def(ch)
	if def.IsConstant() {
		f, ok := scale.ToNumber(v)
		return f, ok, nil
	}
	m := e.maps[ch]
	if m == nil {
		return 0, false, nil
	}
	p, err := m.Map(v)
	if err != nil {
		return 0, false, spec.DataErrorf(spec.CodeTypeMismatch, e.u.ChannelPath(ch)+".field",
			"字段 %q 的值 %q 无法映射：%v", def.Field, binding.Format(v), err)
	}
	if center {
		p += m.Bandwidth() / 2
	}
	return p, true, nil
}

// extent 返回位置通道所在轴的像素长度。
func (e *encoder) extent(ch spec.Channel) float64 {
	if ch == spec.ChannelX || ch == spec.ChannelX2 {
		return e.w
	}
	return e.h
}

// rangeOf 返回位置通道的像素区间；未映射时取整条轴，y 轴自下而上。
func (e *encoder) rangeOf(ch spec.Channel) (float64, float64) {
	if m := e.maps[ch]; m != nil {
		return m.Range()
	}
	if ch == spec.ChannelY || ch == spec.ChannelY2 {
		return e.h, 0
	}
	return 0, e.w
}

// band 返回类别通道的带宽；没有类别映射时整条轴视为一个带。
func (e *encoder) band(ch spec.Channel) float64 {
	if m := e.maps[ch]; m != nil && m.Bandwidth() > 0 {
		return m.Bandwidth()
	}
	return e.extent(ch)
}

// baseline 返回数值轴上 0 的坐标（0 不在域内时取最近端点）。
func (e *encoder) baseline(ch spec.Channel) float64 {
	switch m := e.maps[ch].(type) {
	case *scale.Linear:
		lo, hi := m.Domain()
		return m.MapNumber(math.Max(lo, math.Min(hi, 0)))
	case scale.Mapping:
		r0, _ := m.Range()
		return r0
	}
	if ch == spec.ChannelY || ch == spec.ChannelY2 {
		return e.h
	}
	return 0
}

// mapNumber 映射已经是数值的值（堆叠偏移）。
func (e *encoder) mapNumber(ch spec.Channel, f float64) float64 {
	if m, ok := e.maps[ch].(*scale.Linear); ok {
		return m.MapNumber(f)
	}
	if m := e.maps[ch]; m != nil {
		p, err := m.Map(f)
		if err == nil {
			return p
		}
	}
	return 0
}

func (e *encoder) markPath(prop string) string {
	if e.u.Path == "" {
		return "mark." + prop
	}
	return e.u.Path + ".mark." + prop
}

// colorOf 依次尝试各通道与 mark 静态样式；全部缺省时返回 fallback。
func (e *encoder) colorOf(row spec.Row, channels []spec.Channel, static, staticProp string, fallback scene.Color) (scene.Color, error) {
	for _, ch := range channels {
		c, ok, err := e.channelColor(row, ch)
		if err != nil || ok {
			return c, err
		}
	}
	if static != "" {
		c, err := style.ParseColor(static)
		if err != nil {
			return scene.Color{}, spec.SpecErrorf(spec.CodeInvalidValue, e.markPath(staticProp), "%v", err)
		}
		return c, nil
	}
	return fallback, nil
}

func (e *encoder) channelColor(row spec.Row, ch spec.Channel) (scene.Color, bool, error) {
	def := e.def(ch)
	if def == nil {
		return scene.Color{}, false, nil
	}
	if def.IsConstant() {
		s, _ := def.Value.(string)
		c, err := style.ParseColor(s)
		if err != nil {
			return scene.Color{}, false, spec.SpecErrorf(spec.CodeInvalidValue, e.u.ChannelPath(ch)+".value", "%v", err)
		}
		return c, true, nil
	}
	v, _, err := e.value(row, ch)
	if err != nil {
		return scene.Color{}, false, err
	}
	s := e.scales.For(e.u, ch)
	if s == nil || v == nil {
		return e.palette.At(0), true, nil
	}
	if s.Type.Categorical() {
		i, _ := s.Domain().Index(v)
		return e.palette.At(i), true, nil
	}
	return e.palette.Ramp(normalized(s, v)), true, nil
}

// normalized 把连续值换算到 [0,1]；退化域返回 0.5。
func normalized(s *scale.Scale, v any) float64 {
	m, ok := s.Range(0, 1).(interface{ MapNumber(float64) float64 })
	if !ok {
		return 0.5
	}
	var f float64
	if s.Type == spec.Temporal {
		t, ok := spec.ParseTime(v)
		if !ok {
			return 0.5
		}
		f = float64(t.UnixMilli())
	} else if f, ok = scale.ToNumber(v); !ok {
		return 0.5
	}
	return m.MapNumber(f)
}

// fill 是面状图元的填充色：fill、color 通道，然后是 mark.fill，最后是调色板首色。
func (e *encoder) fill(row spec.Row) (scene.Color, error) {
	return e.colorOf(row, []spec.Channel{spec.ChannelFill, spec.ChannelColor}, e.u.Mark.Fill, "fill", e.palette.At(0))
}

// stroke 是线状图元的描边色：stroke、color 通道，然后是 mark.stroke。
func (e *encoder) stroke(row spec.Row, fallback scene.Color) (scene.Color, error) {
	return e.colorOf(row, []spec.Channel{spec.ChannelStroke, spec.ChannelColor}, e.u.Mark.Stroke, "stroke", fallback)
}

func (e *encoder) strokeWidth(fallback float64) float64 {
	if e.u.Mark.StrokeWidth != nil {
		return *e.u.Mark.StrokeWidth
	}
	return fallback
}

// opacity 读取 opacity 通道；字段通道在 [0.2, 1] 间线性映射。
func (e *encoder) opacity(row spec.Row, fallback float64) (float64, error) {
	v, ok, err := e.value(row, spec.ChannelOpacity)
	if err != nil {
		return 0, err
	}
	if ok && v != nil {
		if e.def(spec.ChannelOpacity).IsConstant() {
			if f, ok := scale.ToNumber(v); ok {
				return math.Max(0, math.Min(1, f)), nil
			}
		} else if s := e.scales.For(e.u, spec.ChannelOpacity); s != nil && s.Type.Continuous() {
			return 0.2 + 0.8*normalized(s, v), nil
		}
	}
	if e.u.Mark.Opacity != nil {
		return *e.u.Mark.Opacity, nil
	}
	return fallback, nil
}

// size 读取 size 通道；字段通道在 [lo, hi] 间线性映射。
func (e *encoder) size(row spec.Row, fallback, lo, hi float64) (float64, error) {
	v, ok, err := e.value(row, spec.ChannelSize)
	if err != nil {
		return 0, err
	}
	if ok && v != nil {
		if e.def(spec.ChannelSize).IsConstant() {
			if f, ok := scale.ToNumber(v); ok {
				return f, nil
			}
		} else if s := e.scales.For(e.u, spec.ChannelSize); s != nil {
			if s.Type.Continuous() {
				return lo + (hi-lo)*normalized(s, v), nil
			}
			if i, ok := s.Domain().Index(v); ok && s.Domain().Len() > 1 {
				return lo + (hi-lo)*float64(i)/float64(s.Domain().Len()-1), nil
			}
		}
	}
	if e.u.Mark.Size != nil {
		return *e.u.Mark.Size, nil
	}
	return fallback, nil
}

// shape 选择符号形状：shape 通道、mark 种类、mark.shape，默认圆形。
func (e *encoder) shape(row spec.Row) (scene.SymbolShape, error) {
	v, ok, err := e.value(row, spec.ChannelShape)
	if err != nil {
		return "", err
	}
	if ok && v != nil {
		if e.def(spec.ChannelShape).IsConstant() {
			if s := scene.SymbolShape(binding.Format(v)); s.Valid() {
				return s, nil
			}
		} else if s := e.scales.For(e.u, spec.ChannelShape); s != nil {
			i, _ := s.Domain().Index(v)
			return scene.Shapes[i%len(scene.Shapes)], nil
		}
	}
	switch e.u.Mark.Type {
	case spec.MarkSquare:
		return scene.ShapeSquare, nil
	case spec.MarkCircle:
		return scene.ShapeCircle, nil
	}
	if s := scene.SymbolShape(e.u.Mark.Shape); s.Valid() {
		return s, nil
	}
	return scene.ShapeCircle, nil
}

// seriesRank 返回记录所属系列的序号：分组通道为类别时按域顺序，否则按首次出现顺序。
func (e *encoder) seriesRank(rows []transform.Row) ([]int, error) {
	rank := make([]int, len(rows))
	ch, def := e.u.Encoding.Grouping()
	if def == nil {
		return rank, nil
	}
	s := e.scales.For(e.u, ch)
	seen := map[string]int{}
	for i, r := range rows {
		v, _, err := e.value(r.Datum, ch)
		if err != nil {
			return nil, err
		}
		if s != nil && s.Type.Categorical() {
			if j, ok := s.Domain().Index(v); ok {
				rank[i] = j
				continue
			}
		}
		k := scale.Key(v)
		j, ok := seen[k]
		if !ok {
			j = len(seen)
			seen[k] = j
		}
		rank[i] = j
	}
	return rank, nil
}

func item(g scene.Geometry, row spec.Row) scene.MarkItem {
	return scene.MarkItem{Geometry: g, Opacity: 1, Datum: row}
}

func colorPtr(c scene.Color) *scene.Color { return &c }
