// Package scene 定义编译结果：与渲染后端无关、编译完成后不再修改的场景图。
package scene

import (
	"fmt"
	"math"

	"github.com/ByLCY/vellum/spec"
)

// Scene 是场景图的根，坐标单位为像素，原点在左上角。
type Scene struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Background *Color  `json:"background,omitempty"`
	Root       *Group  `json:"root"`
}

// Node 是 *Group 或 *Mark。
type Node interface {
	node()
}

// Box 是一个轴对齐矩形，用于裁剪区域与布局槽位。
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.W }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.H }

// Union returns the smallest box containing both.
func (b Box) Union(o Box) Box {
	x0, y0 := math.Min(b.X, o.X), math.Min(b.Y, o.Y)
	x1, y1 := math.Max(b.Right(), o.Right()), math.Max(b.Bottom(), o.Bottom())
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Transform 目前只有平移。
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Group 持有一个平移、可选裁剪与有序子节点。
type Group struct {
	Name      string    `json:"name,omitempty"`
	Transform Transform `json:"transform"`
	Clip      *Box      `json:"clip,omitempty"`
	Children  []Node    `json:"children"`
}

func (*Group) node() {}

// Add appends children in order.
func (g *Group) Add(children ...Node) { g.Children = append(g.Children, children...) }

// MarkType 是图元种类。
type MarkType string

const (
	MarkRect   MarkType = "rect"
	MarkSymbol MarkType = "symbol"
	MarkLine   MarkType = "line"
	MarkArea   MarkType = "area"
	MarkRule   MarkType = "rule"
	MarkText   MarkType = "text"
	MarkArc    MarkType = "arc"
	MarkPath   MarkType = "path"
)

// Mark 把同一种图元的有序 MarkItem 放在一起。Role 标记用途，例如 "mark"、"axis-label"、"title"。
type Mark struct {
	Type  MarkType   `json:"type"`
	Role  string     `json:"role,omitempty"`
	Items []MarkItem `json:"items"`
}

func (*Mark) node() {}

// MarkItem 是一个可绘制的图元实例。Datum 与源数据共享同一个 map。
type MarkItem struct {
	Geometry Geometry `json:"geometry"`
	Fill     *Color   `json:"fill,omitempty"`
	Stroke   *Stroke  `json:"stroke,omitempty"`
	Opacity  float64  `json:"opacity"`
	Datum    spec.Row `json:"datum,omitempty"`
}

// Color 采用 0-255 的 RGB 分量与 0-1 的透明度。
type Color struct {
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
	A float64 `json:"a"`
}

// RGB builds an opaque color.
func RGB(r, g, b int) Color { return Color{R: r, G: g, B: b, A: 1} }

// Hex formats the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) String() string {
	if c.A >= 1 {
		return c.Hex()
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, c.A)
}

// Stroke 描述描边；Dash 为空表示实线。
type Stroke struct {
	Color Color     `json:"color"`
	Width float64   `json:"width"`
	Dash  []float64 `json:"dash,omitempty"`
}

// Walk 以深度优先、子节点顺序访问 n 及其后代，offset 是累计平移。fn 返回 false 时跳过该节点的子节点。
func Walk(n Node, fn func(n Node, offset Point) bool) {
	walk(n, Point{}, fn)
}

func walk(n Node, offset Point, fn func(Node, Point) bool) {
	if !fn(n, offset) {
		return
	}
	g, ok := n.(*Group)
	if !ok {
		return
	}
	inner := Point{X: offset.X + g.Transform.X, Y: offset.Y + g.Transform.Y}
	for _, c := range g.Children {
		walk(c, inner, fn)
	}
}

// Marks 按绘制顺序返回所有 mark，可按 role 过滤（空字符串表示全部）。
func (s *Scene) Marks(role string) []*Mark {
	var out []*Mark
	if s == nil || s.Root == nil {
		return nil
	}
	Walk(s.Root, func(n Node, _ Point) bool {
		if m, ok := n.(*Mark); ok && (role == "" || m.Role == role) {
			out = append(out, m)
		}
		return true
	})
	return out
}
