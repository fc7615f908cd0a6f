package scene

import (
	"fmt"
	"math"
	"strings"
)

// Geometry 是图元的具体几何，取值为本文件定义的类型之一。
type Geometry interface {
	Kind() MarkType
	Bounds() Box
}

// Point 是一个坐标点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 是矩形；Corners 非空时表示任意四边形（漏斗图的梯形），此时 CornerRadius 不生效。
type Rect struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	W            float64 `json:"w"`
	H            float64 `json:"h"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
	Corners      []Point `json:"corners,omitempty"`
}

func (Rect) Kind() MarkType { return MarkRect }

func (r Rect) Bounds() Box {
	if len(r.Corners) > 0 {
		return pointsBounds(r.Corners)
	}
	return Box{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// Symbol 是以 (X, Y) 为中心的符号，Size 是面积（像素平方）。
type Symbol struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Size  float64     `json:"size"`
	Shape SymbolShape `json:"shape"`
}

func (Symbol) Kind() MarkType { return MarkSymbol }

func (s Symbol) Bounds() Box {
	r := math.Sqrt(s.Size) / 2
	return Box{X: s.X - r, Y: s.Y - r, W: 2 * r, H: 2 * r}
}

// Line 是折线。
type Line struct {
	Points []Point `json:"points"`
}

func (Line) Kind() MarkType { return MarkLine }
func (l Line) Bounds() Box  { return pointsBounds(l.Points) }

// Area 由上沿 Points 与等长的下沿 Baseline 围成。
type Area struct {
	Points   []Point `json:"points"`
	Baseline []Point `json:"baseline"`
}

func (Area) Kind() MarkType { return MarkArea }

func (a Area) Bounds() Box {
	return pointsBounds(append(append([]Point(nil), a.Points...), a.Baseline...))
}

// Outline returns the closed polygon: Points forward, then Baseline backward.
func (a Area) Outline() []Point {
	out := make([]Point, 0, len(a.Points)+len(a.Baseline))
	out = append(out, a.Points...)
	for i := len(a.Baseline) - 1; i >= 0; i-- {
		out = append(out, a.Baseline[i])
	}
	return out
}

// Rule 是一条线段。
type Rule struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (Rule) Kind() MarkType { return MarkRule }

func (r Rule) Bounds() Box {
	return pointsBounds([]Point{{r.X1, r.Y1}, {r.X2, r.Y2}})
}

// TextAnchor 是文本的水平对齐。
type TextAnchor string

const (
	AnchorStart  TextAnchor = "start"
	AnchorMiddle TextAnchor = "middle"
	AnchorEnd    TextAnchor = "end"
)

// TextBaseline 是文本的垂直对齐。
type TextBaseline string

const (
	BaselineTop    TextBaseline = "top"
	BaselineMiddle TextBaseline = "middle"
	BaselineBottom TextBaseline = "bottom"
)

// Text 是单行文本。Angle 以度为单位，绕 (X, Y) 顺时针旋转。
type Text struct {
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Text     string       `json:"text"`
	FontSize float64      `json:"fontSize"`
	Anchor   TextAnchor   `json:"anchor"`
	Baseline TextBaseline `json:"baseline"`
	Angle    float64      `json:"angle,omitempty"`
}

func (Text) Kind() MarkType { return MarkText }

// Bounds 只是一个估计：按 0.6 倍字号估算字符宽度，不考虑旋转。
func (t Text) Bounds() Box {
	w := float64(len([]rune(t.Text))) * t.FontSize * 0.6
	x := t.X
	switch t.Anchor {
	case AnchorMiddle:
		x -= w / 2
	case AnchorEnd:
		x -= w
	}
	y := t.Y
	switch t.Baseline {
	case BaselineMiddle:
		y -= t.FontSize / 2
	case BaselineBottom, "":
		y -= t.FontSize
	}
	return Box{X: x, Y: y, W: w, H: t.FontSize}
}

// Arc 是圆环扇区，角度为弧度，0 指向正上方并顺时针增加。
type Arc struct {
	CX    float64 `json:"cx"`
	CY    float64 `json:"cy"`
	Inner float64 `json:"inner"`
	Outer float64 `json:"outer"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (Arc) Kind() MarkType { return MarkArc }

func (a Arc) Bounds() Box {
	return Box{X: a.CX - a.Outer, Y: a.CY - a.Outer, W: 2 * a.Outer, H: 2 * a.Outer}
}

// Point returns the point at angle on radius r.
func (a Arc) Point(r, angle float64) Point {
	return Point{X: a.CX + r*math.Sin(angle), Y: a.CY - r*math.Cos(angle)}
}

// Path 是 SVG path 数据，Origin 为其平移。
type Path struct {
	D      string `json:"d"`
	Origin Point  `json:"origin"`
}

func (Path) Kind() MarkType { return MarkPath }

// Bounds 对 path 只返回原点。
func (p Path) Bounds() Box { return Box{X: p.Origin.X, Y: p.Origin.Y} }

// SymbolShape 是符号形状。
type SymbolShape string

const (
	ShapeCircle   SymbolShape = "circle"
	ShapeSquare   SymbolShape = "square"
	ShapeCross    SymbolShape = "cross"
	ShapeDiamond  SymbolShape = "diamond"
	ShapeTriangle SymbolShape = "triangle"
	ShapeStar     SymbolShape = "star"
)

// Shapes 是按类别循环分配的形状顺序。
var Shapes = []SymbolShape{ShapeCircle, ShapeSquare, ShapeTriangle, ShapeDiamond, ShapeCross, ShapeStar}

// Valid reports whether s is a known shape.
func (s SymbolShape) Valid() bool {
	for _, v := range Shapes {
		if v == s {
			return true
		}
	}
	return false
}

// Path 返回以原点为中心、面积约为 size 的 SVG path 数据。
func (s SymbolShape) Path(size float64) string {
	r := math.Sqrt(size) / 2
	switch s {
	case ShapeSquare:
		return polygon([]Point{{-r, -r}, {r, -r}, {r, r}, {-r, r}})
	case ShapeDiamond:
		d := r * math.Sqrt2
		return polygon([]Point{{0, -d}, {d, 0}, {0, d}, {-d, 0}})
	case ShapeTriangle:
		h := r * 2 * math.Sqrt(3) / 2
		return polygon([]Point{{0, -h * 2 / 3}, {r * 1.15, h / 3}, {-r * 1.15, h / 3}})
	case ShapeCross:
		a, b := r, r/3
		return polygon([]Point{
			{-b, -a}, {b, -a}, {b, -b}, {a, -b}, {a, b}, {b, b},
			{b, a}, {-b, a}, {-b, b}, {-a, b}, {-a, -b}, {-b, -b},
		})
	case ShapeStar:
		pts := make([]Point, 0, 10)
		for i := 0; i < 10; i++ {
			rr := r * 1.2
			if i%2 == 1 {
				rr *= 0.45
			}
			angle := float64(i) * math.Pi / 5
			pts = append(pts, Point{X: rr * math.Sin(angle), Y: -rr * math.Cos(angle)})
		}
		return polygon(pts)
	default:
		rc := math.Sqrt(size / math.Pi)
		return fmt.Sprintf("M%s,0A%s,%s 0 1,1 %s,0A%s,%s 0 1,1 %s,0Z",
			num(rc), num(rc), num(rc), num(-rc), num(rc), num(rc), num(rc))
	}
}

func polygon(pts []Point) string {
	var sb strings.Builder
	for i, p := range pts {
		if i == 0 {
			sb.WriteString("M")
		} else {
			sb.WriteString("L")
		}
		sb.WriteString(num(p.X))
		sb.WriteString(",")
		sb.WriteString(num(p.Y))
	}
	sb.WriteString("Z")
	return sb.String()
}

func num(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func pointsBounds(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	x0, y0, x1, y1 := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		x0, x1 = math.Min(x0, p.X), math.Max(x1, p.X)
		y0, y1 = math.Min(y0, p.Y), math.Max(y1, p.Y)
	}
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
