package layout

import (
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

// 该文件定义两遍布局共用的类型与坐标轴外观常量。

// Insets 以像素为单位描述四边留白。
type Insets struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// InsetsFrom converts declared chart padding.
func InsetsFrom(p spec.Padding) Insets {
	return Insets{Top: p.Top, Right: p.Right, Bottom: p.Bottom, Left: p.Left}
}

// Max 逐边取较大值。
func (in Insets) Max(o Insets) Insets {
	return Insets{
		Top:    max(in.Top, o.Top),
		Right:  max(in.Right, o.Right),
		Bottom: max(in.Bottom, o.Bottom),
		Left:   max(in.Left, o.Left),
	}
}

// 坐标轴外观
const (
	TickLength    = 6.0
	LabelOffset   = 10.0
	LabelFontSize = 12.0
	TitleFontSize = 14.0
	// 轴标题到绘图区边缘的默认距离：水平轴 35，垂直轴 40
	HorizontalTitleOffset = 35.0
	VerticalTitleOffset   = 40.0

	ChartTitleFontSize = 16.0
	HeaderFontSize     = 12.0
	// 标题带与表头带在文字高度之外留出的空隙
	bandGap = 10.0
)

var (
	AxisColor  = scene.RGB(100, 100, 100)
	TitleColor = scene.RGB(50, 50, 50)
	GridColor  = scene.RGB(230, 230, 230)
)

// Mark roles produced by this package.
const (
	RoleAxisDomain = "axis-domain"
	RoleAxisTick   = "axis-tick"
	RoleAxisLabel  = "axis-label"
	RoleAxisTitle  = "axis-title"
	RoleGrid       = "grid"
	RoleTitle      = "title"
	RoleHeader     = "header"
)

// AxisSpec 描述一条需要绘制的坐标轴。Scale 必须已经冻结。
type AxisSpec struct {
	Channel spec.Channel
	Orient  spec.AxisOrient
	Scale   *scale.Scale
	Config  spec.AxisConfig
}

// NewAxisSpec 按通道默认方向构造坐标轴，scale 上声明的 axis 配置优先。
func NewAxisSpec(ch spec.Channel, s *scale.Scale, fallback spec.AxisOrient) AxisSpec {
	a := AxisSpec{Channel: ch, Orient: fallback, Scale: s}
	if s.Axis != nil {
		a.Config = *s.Axis
		if s.Axis.Orient != "" {
			a.Orient = s.Axis.Orient
		}
	}
	return a
}

// Horizontal reports axes drawn along the top or bottom edge.
func (a AxisSpec) Horizontal() bool {
	return a.Orient == spec.OrientBottom || a.Orient == spec.OrientTop
}

// Title 返回轴标题；配置中显式给出空字符串时不绘制标题。
func (a AxisSpec) Title() string {
	if a.Config.Title != nil {
		return *a.Config.Title
	}
	return a.Scale.Title
}

func (a AxisSpec) ticks() bool  { return a.Config.Ticks == nil || *a.Config.Ticks }
func (a AxisSpec) labels() bool { return a.Config.Labels == nil || *a.Config.Labels }
func (a AxisSpec) grid() bool   { return a.Config.Grid != nil && *a.Config.Grid }

func (a AxisSpec) tickCount() int {
	if a.Config.TickCount > 0 {
		return a.Config.TickCount
	}
	return scale.DefaultTickCount
}

// AxisExtent 是一条轴在绘图区外占用的厚度，以及轴标题到绘图区边缘的距离。
type AxisExtent struct {
	Orient      spec.AxisOrient `json:"orient"`
	Thickness   float64         `json:"thickness"`
	TitleOffset float64         `json:"titleOffset"`
}

// Measurement 是第一遍的结果：暂定留白与各轴的厚度。
type Measurement struct {
	Padding   Insets       `json:"padding"`
	TitleBand float64      `json:"titleBand"`
	Axes      []AxisExtent `json:"axes"`
}

// Extent 返回指定方向轴的度量；没有该方向的轴时返回零值。
func (m Measurement) Extent(o spec.AxisOrient) AxisExtent {
	for _, e := range m.Axes {
		if e.Orient == o {
			return e
		}
	}
	return AxisExtent{Orient: o}
}
