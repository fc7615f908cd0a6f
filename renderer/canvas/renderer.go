package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers"

	"github.com/ByLCY/vellum/fonts"
	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/renderer"
	"github.com/ByLCY/vellum/scene"
)

// Renderer draws scenes via github.com/tdewolff/canvas.
//
// 场景坐标为像素，canvas 以毫米为单位，绘制时逐点换算。Group 的裁剪区域不下发给 canvas：
// 数据 mark 在编译阶段已经落在绘图区内。
type Renderer struct {
	opts Options

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer   = (*Renderer)(nil)
	_ layout.TextMeasurer = (*Renderer)(nil)
)

// Format 是输出文件格式。
type Format string

const (
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// FormatFromPath 按扩展名选择输出格式，未知扩展名输出 SVG。
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".png":
		return FormatPNG
	default:
		return FormatSVG
	}
}

// Options configures the canvas renderer.
type Options struct {
	Format Format
	// Font 用于所有文字，默认内置 lmsans10-regular。
	Font Resource
	// TitleFont 用于图表标题，默认内置 lmsans10-bold。
	TitleFont Resource
	// Scale 是 PNG 输出时每个场景像素对应的图像像素数，默认 1。
	Scale float64
}

// Resource can be provided either by Bytes or by Path. Path 以 "embed:" 开头时读取内置字体。
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer with built-in fonts.
func NewRenderer(format Format) *Renderer { return NewRendererWithOptions(Options{Format: format}) }

// NewRendererWithOptions creates a renderer with injected fonts.
func NewRendererWithOptions(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatSVG
	}
	if opts.Font.Path == "" && len(opts.Font.Bytes) == 0 {
		opts.Font.Path = "embed:" + fonts.SansRegular
	}
	if opts.TitleFont.Path == "" && len(opts.TitleFont.Bytes) == 0 {
		opts.TitleFont.Path = "embed:" + fonts.SansBold
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	return &Renderer{opts: opts, families: map[string]*canvas.FontFamily{}}
}

// Render 按场景图的绘制顺序输出，背景最先绘制。
func (r *Renderer) Render(s *scene.Scene) ([]byte, error) {
	if s == nil || s.Root == nil {
		return nil, fmt.Errorf("场景图为空")
	}
	w, h := mm(s.Width), mm(s.Height)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与场景保持左上角为原点

	if s.Background != nil {
		ctx.SetFillColor(toColor(*s.Background, 1))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	}

	var err error
	scene.Walk(s.Root, func(n scene.Node, off scene.Point) bool {
		if err != nil {
			return false
		}
		if m, ok := n.(*scene.Mark); ok {
			for _, it := range m.Items {
				if err = r.drawItem(ctx, m.Role, it, off); err != nil {
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.writer()(&buf, c); err != nil {
		return nil, fmt.Errorf("写入 %s 失败: %w", r.opts.Format, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writer() canvas.Writer {
	switch r.opts.Format {
	case FormatPDF:
		return renderers.PDF()
	case FormatPNG:
		return renderers.PNG(canvas.DPMM(r.opts.Scale / layout.PxToMm))
	default:
		return renderers.SVG()
	}
}

// MeasureText 实现 layout.TextMeasurer：字号与返回值均为像素。字体不可用时退回字符数估算。
func (r *Renderer) MeasureText(content string, fontSize float64) (float64, float64) {
	face, err := r.face(r.opts.Font, fontSize, canvas.Black)
	if err != nil {
		return layout.HeuristicMeasurer{}.MeasureText(content, fontSize)
	}
	m := face.Metrics()
	return px(face.TextWidth(content)), px(m.Ascent + m.Descent)
}

func (r *Renderer) drawItem(ctx *canvas.Context, role string, it scene.MarkItem, off scene.Point) error {
	applyStyle(ctx, it)
	switch g := it.Geometry.(type) {
	case scene.Rect:
		if len(g.Corners) > 0 {
			ctx.DrawPath(mm(off.X), mm(off.Y), polyline(g.Corners, true))
			return nil
		}
		p := canvas.Rectangle(mm(g.W), mm(g.H))
		if g.CornerRadius > 0 {
			p = canvas.RoundedRectangle(mm(g.W), mm(g.H), mm(g.CornerRadius))
		}
		ctx.DrawPath(mm(off.X+g.X), mm(off.Y+g.Y), p)
	case scene.Symbol:
		p, err := svgPath(g.Shape.Path(g.Size))
		if err != nil {
			return fmt.Errorf("解析符号 %s 失败: %w", g.Shape, err)
		}
		ctx.DrawPath(mm(off.X+g.X), mm(off.Y+g.Y), p)
	case scene.Line:
		ctx.SetFillColor(canvas.Transparent)
		ctx.DrawPath(mm(off.X), mm(off.Y), polyline(g.Points, false))
	case scene.Area:
		ctx.DrawPath(mm(off.X), mm(off.Y), polyline(g.Outline(), true))
	case scene.Rule:
		ctx.DrawPath(mm(off.X), mm(off.Y), polyline([]scene.Point{{X: g.X1, Y: g.Y1}, {X: g.X2, Y: g.Y2}}, false))
	case scene.Arc:
		ctx.DrawPath(mm(off.X), mm(off.Y), arcPath(g))
	case scene.Path:
		p, err := svgPath(g.D)
		if err != nil {
			return fmt.Errorf("解析路径失败: %w", err)
		}
		ctx.DrawPath(mm(off.X+g.Origin.X), mm(off.Y+g.Origin.Y), p)
	case scene.Text:
		return r.drawText(ctx, role, it, g, off)
	default:
		return fmt.Errorf("无法绘制的图元 %T", it.Geometry)
	}
	return nil
}

func applyStyle(ctx *canvas.Context, it scene.MarkItem) {
	if it.Fill != nil {
		ctx.SetFillColor(toColor(*it.Fill, it.Opacity))
	} else {
		ctx.SetFillColor(canvas.Transparent)
	}
	if it.Stroke == nil || it.Stroke.Width <= 0 {
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetStrokeWidth(0)
		ctx.SetDashes(0)
		return
	}
	ctx.SetStrokeColor(toColor(it.Stroke.Color, it.Opacity))
	ctx.SetStrokeWidth(mm(it.Stroke.Width))
	dashes := make([]float64, len(it.Stroke.Dash))
	for i, d := range it.Stroke.Dash {
		dashes[i] = mm(d)
	}
	ctx.SetDashes(0, dashes...)
}

func (r *Renderer) drawText(ctx *canvas.Context, role string, it scene.MarkItem, t scene.Text, off scene.Point) error {
	col := color.Color(canvas.Black)
	if it.Fill != nil {
		col = toColor(*it.Fill, it.Opacity)
	}
	res := r.opts.Font
	if role == layout.RoleTitle {
		res = r.opts.TitleFont
	}
	face, err := r.face(res, t.FontSize, col)
	if err != nil {
		return err
	}

	var align canvas.TextAlign
	switch t.Anchor {
	case scene.AnchorMiddle:
		align = canvas.Center
	case scene.AnchorEnd:
		align = canvas.Right
	default:
		align = canvas.Left
	}
	// DrawText 的 y 是基线
	metrics := face.Metrics()
	var dy float64
	switch t.Baseline {
	case scene.BaselineTop:
		dy = metrics.Ascent
	case scene.BaselineMiddle:
		dy = metrics.CapHeight / 2
	case scene.BaselineBottom:
		dy = -metrics.Descent
	}

	line := canvas.NewTextLine(face, t.Text, align)
	x, y := mm(off.X+t.X), mm(off.Y+t.Y)
	if t.Angle == 0 {
		ctx.DrawText(x, y+dy, line)
		return nil
	}
	ctx.Push()
	ctx.ComposeView(canvas.Identity.Translate(x, y).Rotate(t.Angle))
	ctx.DrawText(0, dy, line)
	ctx.Pop()
	return nil
}

// face 以像素字号创建字体面；canvas 的字号单位是 pt。
func (r *Renderer) face(res Resource, sizePx float64, col color.Color) (*canvas.FontFace, error) {
	family, err := r.family(res)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePx*layout.PxToPt, col, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) family(res Resource) (*canvas.FontFamily, error) {
	key := res.Path
	if key == "" {
		key = fmt.Sprintf("bytes:%p", res.Bytes)
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if f, ok := r.families[key]; ok {
		return f, nil
	}

	family := canvas.NewFontFamily(key)
	data, err := loadFontBytes(res)
	if err == nil {
		err = family.LoadFont(data, 0, canvas.FontRegular)
	}
	if err != nil {
		fallback, fbErr := r.fallbackLocked()
		if fbErr != nil {
			return nil, err
		}
		r.families[key] = fallback
		return fallback, nil
	}
	r.families[key] = family
	return family, nil
}

// fallbackLocked 返回内置的正文字体，调用方必须持有 fontMu。
func (r *Renderer) fallbackLocked() (*canvas.FontFamily, error) {
	key := "embed:" + fonts.SansRegular
	if f, ok := r.families[key]; ok {
		return f, nil
	}
	data, err := fonts.Load(fonts.SansRegular)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("vellum-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.families[key] = family
	return family, nil
}

func loadFontBytes(res Resource) ([]byte, error) {
	if len(res.Bytes) > 0 {
		return res.Bytes, nil
	}
	if res.Path == "" {
		return nil, fmt.Errorf("字体缺少数据或路径")
	}
	if strings.HasPrefix(res.Path, "embed:") {
		return fonts.Load(res.Path)
	}
	return os.ReadFile(res.Path)
}

// svgPath 解析像素坐标的 SVG path 数据并换算为毫米。
func svgPath(d string) (*canvas.Path, error) {
	p, err := canvas.ParseSVGPath(d)
	if err != nil {
		return nil, err
	}
	return p.Transform(canvas.Identity.Scale(layout.PxToMm, layout.PxToMm)), nil
}

func polyline(pts []scene.Point, closed bool) *canvas.Path {
	p := &canvas.Path{}
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(mm(pt.X), mm(pt.Y))
			continue
		}
		p.LineTo(mm(pt.X), mm(pt.Y))
	}
	if closed && len(pts) > 0 {
		p.Close()
	}
	return p
}

// arcStep 是扇区外沿折线化的角度步长。
const arcStep = math.Pi / 90

// arcPath 把扇区折线化：外沿顺时针，内沿逆时针返回；内半径为 0 时收于圆心。
func arcPath(a scene.Arc) *canvas.Path {
	n := max(1, int(math.Ceil(math.Abs(a.End-a.Start)/arcStep)))
	at := func(i int) float64 { return a.Start + (a.End-a.Start)*float64(i)/float64(n) }
	pts := make([]scene.Point, 0, 2*n+2)
	for i := 0; i <= n; i++ {
		pts = append(pts, a.Point(a.Outer, at(i)))
	}
	if a.Inner > 0 {
		for i := n; i >= 0; i-- {
			pts = append(pts, a.Point(a.Inner, at(i)))
		}
	} else {
		pts = append(pts, scene.Point{X: a.CX, Y: a.CY})
	}
	return polyline(pts, true)
}

func toColor(c scene.Color, opacity float64) color.RGBA {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, c.A*opacity)
}

// mm 将像素转换为毫米。
func mm(v float64) float64 { return layout.Length{Value: v}.To(layout.UnitMM) }

// px 将毫米转换为像素。
func px(v float64) float64 { return layout.Length{Value: v, Unit: layout.UnitMM}.Px() }
