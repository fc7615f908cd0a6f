package spec

import (
	"fmt"
	"strings"
	"time"

	"github.com/ByLCY/vellum/binding"
)

// Chart 是规范化后的图表：默认值已填充、类型已推断、单 mark 与 layer 统一为 Units。
type Chart struct {
	Width      float64
	Height     float64
	Padding    Padding
	Title      string
	Background string
	Data       []Row
	Units      []*Unit
	Facet      *FacetSpec
}

// Unit 是一个 mark+encoding 编译单元。
type Unit struct {
	Index    int
	Path     string
	Mark     MarkDef
	Encoding Encoding
	Stack    StackConfig
}

// ChannelPath 返回通道在描述中的位置，用于错误信息。
func (u *Unit) ChannelPath(c Channel) string {
	return joinPath(u.Path, "encoding."+string(c))
}

// ScaleName returns the scale a channel is bound to.
func (u *Unit) ScaleName(c Channel) string {
	if def := u.Encoding.Get(c); def != nil && def.Scale != "" {
		return def.Scale
	}
	return c.DefaultScale()
}

// Orientation 是 mark 的布局方向：Vertical 表示类别在 x、数值在 y。
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "horizontal"
	}
	return "vertical"
}

// Orient 依据 x/y 的分类推断方向。缺失的位置通道视为单一类别。
func (u *Unit) Orient() (Orientation, error) {
	x, y := u.Encoding.Get(ChannelX), u.Encoding.Get(ChannelY)
	xCat, yCat := positionalCategorical(x), positionalCategorical(y)
	switch u.Mark.Type {
	case MarkLine, MarkArea, MarkPath:
		if yCat && !xCat {
			return Horizontal, nil
		}
		return Vertical, nil
	case MarkRect:
		if u.Encoding.Get(ChannelX2) != nil || u.Encoding.Get(ChannelY2) != nil || (xCat && yCat && x != nil && y != nil) {
			return Vertical, nil
		}
	case MarkBar, MarkBoxplot, MarkBullet, MarkFunnel:
	default:
		return Vertical, nil
	}
	switch {
	case xCat && !yCat:
		return Vertical, nil
	case yCat && !xCat:
		return Horizontal, nil
	}
	return Vertical, SpecErrorf(CodeAmbiguousOrientation, joinPath(u.Path, "encoding"),
		"%s 的 x(%s) 与 y(%s) 无法确定方向", u.Mark.Type, describeType(x), describeType(y))
}

func positionalCategorical(def *ChannelDef) bool {
	if def == nil || def.IsConstant() {
		return true
	}
	return def.Type.Categorical()
}

func describeType(def *ChannelDef) string {
	switch {
	case def == nil:
		return "未声明"
	case def.IsConstant():
		return "常量"
	default:
		return string(def.Type)
	}
}

// Normalize 校验描述并返回规范化副本，输入 Spec 不会被修改。
func Normalize(s *Spec) (*Chart, error) {
	if s == nil {
		return nil, SpecErrorf(CodeRequiredField, "", "图表描述为空")
	}
	c := &Chart{
		Width:      s.Width,
		Height:     s.Height,
		Padding:    DefaultPadding,
		Title:      s.Title,
		Background: s.Background,
		Data:       s.Data.Values,
	}
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Height == 0 {
		c.Height = DefaultHeight
	}
	if c.Width < 0 || c.Height < 0 {
		return nil, SpecErrorf(CodeInvalidValue, "width", "尺寸不能为负数: %gx%g", c.Width, c.Height)
	}
	if s.Padding != nil {
		c.Padding = *s.Padding
	}

	if s.Mark != nil {
		u, err := newUnit(0, "", *s.Mark, s.Encoding, nil, s.Stack, c.Data)
		if err != nil {
			return nil, err
		}
		c.Units = append(c.Units, u)
	}
	for i, layer := range s.Layer {
		path := fmt.Sprintf("layer[%d]", i)
		if layer.Mark == nil {
			return nil, SpecErrorf(CodeRequiredField, path+".mark", "layer 缺少 mark")
		}
		stack := layer.Stack
		if stack == nil {
			stack = s.Stack
		}
		u, err := newUnit(len(c.Units), path, *layer.Mark, s.Encoding, layer.Encoding, stack, c.Data)
		if err != nil {
			return nil, err
		}
		c.Units = append(c.Units, u)
	}
	if len(c.Units) == 0 {
		return nil, SpecErrorf(CodeRequiredField, "mark", "需要 mark 或 layer")
	}

	if s.Facet != nil {
		f, err := normalizeFacet(*s.Facet)
		if err != nil {
			return nil, err
		}
		c.Facet = f
	}
	return c, nil
}

func newUnit(index int, path string, mark MarkDef, base, overlay Encoding, stack *StackConfig, rows []Row) (*Unit, error) {
	if mark.Type == "" {
		return nil, SpecErrorf(CodeRequiredField, joinPath(path, "mark.type"), "缺少 mark 类型")
	}
	if !mark.Type.Valid() {
		return nil, SpecErrorf(CodeUnsupportedMark, joinPath(path, "mark"), "不支持的 mark 类型 %q", mark.Type)
	}
	if mark.Extent == 0 {
		mark.Extent = 1.5
	}
	u := &Unit{Index: index, Path: path, Mark: mark, Encoding: Encoding{}, Stack: DefaultStack}
	if stack != nil {
		u.Stack = *stack
	}
	for _, enc := range []Encoding{base, overlay} {
		enc.Each(func(ch Channel, def *ChannelDef) {
			clone := *def
			u.Encoding[ch] = &clone
		})
	}
	if len(u.Encoding) == 0 && mark.Type != MarkRule && mark.Type != MarkText {
		return nil, SpecErrorf(CodeRequiredField, joinPath(path, "encoding"), "%s 需要 encoding", mark.Type)
	}

	var err error
	u.Encoding.Each(func(ch Channel, def *ChannelDef) {
		if err != nil {
			return
		}
		err = validateChannel(u.ChannelPath(ch), def)
		if err == nil && def.Type == "" {
			def.Type = inferType(rows, def)
		}
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func validateChannel(path string, def *ChannelDef) error {
	hasField, hasValue := def.Field != "", def.Value != nil
	switch {
	case hasField && hasValue:
		return SpecErrorf(CodeFieldValueExclusive, path, "field 与 value 不能同时设置")
	case !hasField && !hasValue && def.Aggregate != AggCount:
		return SpecErrorf(CodeFieldValueExclusive, path, "需要 field 或 value")
	}
	if def.Type != "" && !def.Type.Valid() {
		return SpecErrorf(CodeInvalidValue, path+".type", "未知数据类型 %q", def.Type)
	}
	if def.Aggregate != "" && !def.Aggregate.Valid() {
		return SpecErrorf(CodeInvalidValue, path+".aggregate", "未知聚合函数 %q", def.Aggregate)
	}
	if def.Axis != nil {
		switch def.Axis.Orient {
		case "", OrientTop, OrientBottom, OrientLeft, OrientRight:
		default:
			return SpecErrorf(CodeInvalidValue, path+".axis.orient", "未知坐标轴方向 %q", def.Axis.Orient)
		}
	}
	return nil
}

// inferType 按首个非空值推断分类：数值为 quantitative，日期样式字符串为 temporal，其余为 nominal。
func inferType(rows []Row, def *ChannelDef) DataType {
	if def.Aggregate != "" {
		return Quantitative
	}
	if def.Field == "" {
		return ""
	}
	for _, row := range rows {
		v, ok := binding.Lookup(row, def.Field)
		if !ok || v == nil {
			continue
		}
		return InferValueType(v)
	}
	return Nominal
}

// InferValueType classifies a single value.
func InferValueType(v any) DataType {
	switch x := v.(type) {
	case float64, float32, int, int64, int32:
		return Quantitative
	case time.Time:
		return Temporal
	case string:
		if strings.ContainsAny(x, "-/") && len(x) >= 7 {
			if _, ok := ParseTime(x); ok {
				return Temporal
			}
		}
	}
	return Nominal
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"2006-01",
}

// ParseTime 解析时间值：字符串按常见日期格式，数值视为 Unix 毫秒。
func ParseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case float64:
		return time.UnixMilli(int64(x)).UTC(), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func normalizeFacet(f FacetSpec) (*FacetSpec, error) {
	out := f
	hasGrid := f.Row != nil || f.Column != nil
	switch {
	case hasGrid && f.Wrap != nil:
		return nil, SpecErrorf(CodeInvalidValue, "facet", "wrap 不能与 row/column 同时使用")
	case !hasGrid && f.Wrap == nil:
		return nil, SpecErrorf(CodeRequiredField, "facet", "facet 需要 row、column 或 wrap")
	}
	if f.Columns < 0 {
		return nil, SpecErrorf(CodeInvalidValue, "facet.columns", "columns 不能为负数")
	}
	if f.Spacing == nil {
		spacing := DefaultFacetSpacing
		out.Spacing = &spacing
	}
	for name, mode := range f.Resolve.Scale {
		if mode != ResolveShared && mode != ResolveIndependent {
			return nil, SpecErrorf(CodeInvalidValue, "facet.resolve.scale."+name, "未知共享策略 %q", mode)
		}
	}
	fields := []struct {
		name string
		ptr  **FacetField
	}{{"row", &out.Row}, {"column", &out.Column}, {"wrap", &out.Wrap}}
	for _, fd := range fields {
		if *fd.ptr == nil {
			continue
		}
		field := **fd.ptr
		if field.Field == "" {
			return nil, SpecErrorf(CodeRequiredField, "facet."+fd.name+".field", "分面字段为空")
		}
		if field.Type == "" {
			field.Type = Nominal
			if len(field.Sort) > 0 {
				field.Type = Ordinal
			}
		}
		if !field.Type.Categorical() {
			// 连续字段按取值分组，顺序与类别一致。
			field.Type = Nominal
		}
		*fd.ptr = &field
	}
	return &out, nil
}
