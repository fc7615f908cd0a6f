package spec

// 该文件定义图表描述的类型化模型：解析完成后即视为只读输入。

// Row 是一条字段键控的数据记录。同一个 map 在数据集与 MarkItem 之间只读共享，不做拷贝。
type Row = map[string]any

// Spec 是用户声明的图表描述。
type Spec struct {
	Width      float64      `json:"width,omitempty"`
	Height     float64      `json:"height,omitempty"`
	Padding    *Padding     `json:"padding,omitempty"`
	Title      string       `json:"title,omitempty"`
	Background string       `json:"background,omitempty"`
	Data       Data         `json:"data"`
	Mark       *MarkDef     `json:"mark,omitempty"`
	Encoding   Encoding     `json:"encoding,omitempty"`
	Stack      *StackConfig `json:"stack,omitempty"`
	Layer      []Layer      `json:"layer,omitempty"`
	Facet      *FacetSpec   `json:"facet,omitempty"`
}

// Data holds inline records in source order.
type Data struct {
	Values []Row `json:"values"`
}

// Layer 是共享顶层数据的一个 mark+encoding 单元；未声明的通道继承顶层 encoding。
type Layer struct {
	Mark     *MarkDef     `json:"mark"`
	Encoding Encoding     `json:"encoding,omitempty"`
	Stack    *StackConfig `json:"stack,omitempty"`
}

// Padding 以像素为单位描述四边留白。
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DefaultPadding 与默认 600x400 画布配套。
var DefaultPadding = Padding{Top: 20, Right: 20, Bottom: 40, Left: 50}

const (
	DefaultWidth  = 600.0
	DefaultHeight = 400.0
)

// DataType 是通道声明的数据分类。
type DataType string

const (
	Nominal      DataType = "nominal"
	Ordinal      DataType = "ordinal"
	Quantitative DataType = "quantitative"
	Temporal     DataType = "temporal"
)

func (t DataType) Valid() bool {
	switch t {
	case Nominal, Ordinal, Quantitative, Temporal:
		return true
	}
	return false
}

// Categorical reports nominal and ordinal classifications.
func (t DataType) Categorical() bool { return t == Nominal || t == Ordinal }

// Continuous reports quantitative and temporal classifications.
func (t DataType) Continuous() bool { return t == Quantitative || t == Temporal }

// Aggregate 是通道上声明的聚合函数。
type Aggregate string

const (
	AggSum      Aggregate = "sum"
	AggMean     Aggregate = "mean"
	AggMedian   Aggregate = "median"
	AggMin      Aggregate = "min"
	AggMax      Aggregate = "max"
	AggCount    Aggregate = "count"
	AggDistinct Aggregate = "distinct"
)

func (a Aggregate) Valid() bool {
	switch a {
	case AggSum, AggMean, AggMedian, AggMin, AggMax, AggCount, AggDistinct:
		return true
	}
	return false
}

// Channel 是编码通道名。
type Channel string

const (
	ChannelX       Channel = "x"
	ChannelY       Channel = "y"
	ChannelX2      Channel = "x2"
	ChannelY2      Channel = "y2"
	ChannelColor   Channel = "color"
	ChannelFill    Channel = "fill"
	ChannelStroke  Channel = "stroke"
	ChannelSize    Channel = "size"
	ChannelOpacity Channel = "opacity"
	ChannelShape   Channel = "shape"
	ChannelText    Channel = "text"
	ChannelTheta   Channel = "theta"
)

// Channels fixes the iteration order over an Encoding.
var Channels = []Channel{
	ChannelX, ChannelY, ChannelX2, ChannelY2,
	ChannelColor, ChannelFill, ChannelStroke,
	ChannelSize, ChannelOpacity, ChannelShape, ChannelText, ChannelTheta,
}

func (c Channel) Valid() bool {
	for _, ch := range Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// DefaultScale 返回通道的隐式比例尺名：x2/y2 与 x/y 共用。
func (c Channel) DefaultScale() string {
	switch c {
	case ChannelX2:
		return string(ChannelX)
	case ChannelY2:
		return string(ChannelY)
	default:
		return string(c)
	}
}

// MarkType 是用户可声明的 mark 种类，包括图元别名与复合 mark。
type MarkType string

const (
	MarkBar     MarkType = "bar"
	MarkRect    MarkType = "rect"
	MarkPoint   MarkType = "point"
	MarkSymbol  MarkType = "symbol"
	MarkCircle  MarkType = "circle"
	MarkSquare  MarkType = "square"
	MarkLine    MarkType = "line"
	MarkArea    MarkType = "area"
	MarkRule    MarkType = "rule"
	MarkText    MarkType = "text"
	MarkArc     MarkType = "arc"
	MarkPath    MarkType = "path"
	MarkBoxplot MarkType = "boxplot"
	MarkBullet  MarkType = "bullet"
	MarkFunnel  MarkType = "funnel"
)

var markTypes = []MarkType{
	MarkBar, MarkRect, MarkPoint, MarkSymbol, MarkCircle, MarkSquare,
	MarkLine, MarkArea, MarkRule, MarkText, MarkArc, MarkPath,
	MarkBoxplot, MarkBullet, MarkFunnel,
}

func (m MarkType) Valid() bool {
	for _, t := range markTypes {
		if t == m {
			return true
		}
	}
	return false
}

// Composite reports mark kinds that expand into several primitive marks.
func (m MarkType) Composite() bool {
	return m == MarkBoxplot || m == MarkBullet || m == MarkFunnel
}

// Stackable reports mark kinds that take part in automatic stacking.
func (m MarkType) Stackable() bool { return m == MarkBar || m == MarkArea }

// MarkDef 是 mark 的种类与静态样式；JSON 中既可写作 "bar" 也可写作对象。
type MarkDef struct {
	Type         MarkType `json:"type"`
	Fill         string   `json:"fill,omitempty"`
	Stroke       string   `json:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	CornerRadius float64  `json:"cornerRadius,omitempty"`
	Size         *float64 `json:"size,omitempty"`
	Shape        string   `json:"shape,omitempty"`
	// Extent 为箱线图须线的 IQR 倍数，默认 1.5。
	Extent      float64 `json:"extent,omitempty"`
	InnerRadius float64 `json:"innerRadius,omitempty"`
}

// AxisOrient 是坐标轴所在的边。
type AxisOrient string

const (
	OrientTop    AxisOrient = "top"
	OrientBottom AxisOrient = "bottom"
	OrientLeft   AxisOrient = "left"
	OrientRight  AxisOrient = "right"
)

// AxisConfig 控制单个位置通道的坐标轴外观。
type AxisConfig struct {
	Orient     AxisOrient `json:"orient,omitempty"`
	Title      *string    `json:"title,omitempty"`
	Grid       *bool      `json:"grid,omitempty"`
	Ticks      *bool      `json:"ticks,omitempty"`
	Labels     *bool      `json:"labels,omitempty"`
	TickCount  int        `json:"tickCount,omitempty"`
	LabelAngle float64    `json:"labelAngle,omitempty"`
}

// ChannelDef 描述单个编码通道。Field 与 Value 必须恰好设置一个（count 聚合可两者皆无）。
type ChannelDef struct {
	Field     string      `json:"field,omitempty"`
	Value     any         `json:"value,omitempty"`
	Type      DataType    `json:"type,omitempty"`
	Scale     string      `json:"scale,omitempty"`
	Aggregate Aggregate   `json:"aggregate,omitempty"`
	Axis      *AxisConfig `json:"axis,omitempty"`
	Sort      []any       `json:"sort,omitempty"`
	Title     string      `json:"title,omitempty"`
	Zero      *bool       `json:"zero,omitempty"`
}

// HasField reports whether the channel reads a data field.
func (d *ChannelDef) HasField() bool { return d != nil && d.Field != "" }

// IsConstant reports whether the channel carries a literal value.
func (d *ChannelDef) IsConstant() bool { return d != nil && d.Value != nil }

// Encoding 将通道映射到定义。遍历必须经由 Each，顺序固定为 Channels。
type Encoding map[Channel]*ChannelDef

// Get returns the definition bound to c, or nil.
func (e Encoding) Get(c Channel) *ChannelDef {
	if e == nil {
		return nil
	}
	return e[c]
}

// Each visits bound channels in Channels order.
func (e Encoding) Each(fn func(Channel, *ChannelDef)) {
	for _, c := range Channels {
		if def := e[c]; def != nil {
			fn(c, def)
		}
	}
}

// Grouping 返回用于分组（堆叠、分组柱、系列）的通道：优先 color，其次 fill，仅限字段通道。
func (e Encoding) Grouping() (Channel, *ChannelDef) {
	for _, c := range []Channel{ChannelColor, ChannelFill} {
		if def := e.Get(c); def.HasField() {
			return c, def
		}
	}
	return "", nil
}

// StackMode 是堆叠方式。
type StackMode string

const (
	StackZero      StackMode = "zero"
	StackNormalize StackMode = "normalize"
	StackCenter    StackMode = "center"
)

// StackConfig 对应 JSON 中的 true/false/"zero"/"normalize"/"center"。
type StackConfig struct {
	Enabled bool
	Mode    StackMode
}

// DefaultStack 是未声明 stack 时的策略：自动开启并从零累加。
var DefaultStack = StackConfig{Enabled: true, Mode: StackZero}

// ResolveMode 控制分面下的比例尺共享策略。
type ResolveMode string

const (
	ResolveShared      ResolveMode = "shared"
	ResolveIndependent ResolveMode = "independent"
)

// Resolve maps scale names to their sharing policy.
type Resolve struct {
	Scale map[string]ResolveMode `json:"scale,omitempty"`
}

// Mode returns the policy for a scale name; undeclared scales are shared.
func (r Resolve) Mode(name string) ResolveMode {
	if m, ok := r.Scale[name]; ok && m != "" {
		return m
	}
	return ResolveShared
}

// FacetField 选择分面字段；Title 可以使用 ${field} 模板生成单元格标题。
type FacetField struct {
	Field string   `json:"field"`
	Type  DataType `json:"type,omitempty"`
	Sort  []any    `json:"sort,omitempty"`
	Title string   `json:"title,omitempty"`
}

// FacetSpec 描述行/列分面或单维折行分面。
type FacetSpec struct {
	Row     *FacetField `json:"row,omitempty"`
	Column  *FacetField `json:"column,omitempty"`
	Wrap    *FacetField `json:"wrap,omitempty"`
	Columns int         `json:"columns,omitempty"`
	Spacing *float64    `json:"spacing,omitempty"`
	Resolve Resolve     `json:"resolve,omitempty"`
}

// DefaultFacetSpacing 是分面单元格之间的默认间距。
const DefaultFacetSpacing = 20.0
