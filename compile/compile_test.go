package compile

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/vellum/layout"
	"github.com/ByLCY/vellum/mark"
	"github.com/ByLCY/vellum/scene"
	"github.com/ByLCY/vellum/spec"
)

func compileJSON(t *testing.T, src string, opts Options) (*scene.Scene, error) {
	t.Helper()
	s, err := spec.ParseJSON([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return Compile(context.Background(), s, opts)
}

func mustCompile(t *testing.T, src string, opts Options) *scene.Scene {
	t.Helper()
	sc, err := compileJSON(t, src, opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return sc
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// cellGroups 返回根节点下的分面单元组。
func cellGroups(sc *scene.Scene) []*scene.Group {
	var out []*scene.Group
	for _, n := range sc.Root.Children {
		if g, ok := n.(*scene.Group); ok && strings.HasPrefix(g.Name, "cell-") {
			out = append(out, g)
		}
	}
	return out
}

func child(g *scene.Group, name string) *scene.Group {
	for _, n := range g.Children {
		if c, ok := n.(*scene.Group); ok && c.Name == name {
			return c
		}
	}
	return nil
}

// bars 返回单元内数据 mark 的矩形，按绘制顺序。
func bars(t *testing.T, cell *scene.Group) []scene.Rect {
	t.Helper()
	marks := child(cell, "marks")
	if marks == nil {
		t.Fatalf("%s has no marks group", cell.Name)
	}
	var out []scene.Rect
	for _, n := range marks.Children {
		m := n.(*scene.Mark)
		if m.Role != mark.RoleMark {
			continue
		}
		for _, it := range m.Items {
			out = append(out, it.Geometry.(scene.Rect))
		}
	}
	return out
}

const barChart = `{
	"title": "Sales",
	"data": {"values": [
		{"category": "A", "value": 10},
		{"category": "B", "value": 20},
		{"category": "C", "value": 5}
	]},
	"mark": "bar",
	"encoding": {
		"x": {"field": "category", "type": "nominal"},
		"y": {"field": "value", "type": "quantitative"}
	}
}`

func TestCompileBarChart(t *testing.T) {
	sc := mustCompile(t, barChart, Options{})
	if sc.Width != spec.DefaultWidth || sc.Height != spec.DefaultHeight {
		t.Fatalf("scene size = %gx%g", sc.Width, sc.Height)
	}
	if title, ok := sc.Root.Children[0].(*scene.Mark); !ok || title.Role != layout.RoleTitle {
		t.Fatalf("first root child should be the chart title, got %#v", sc.Root.Children[0])
	}
	cells := cellGroups(sc)
	if len(cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(cells))
	}
	cell := cells[0]
	if cell.Transform.Y <= spec.DefaultPadding.Top || cell.Transform.X < spec.DefaultPadding.Left {
		t.Fatalf("plot origin %+v ignores padding or title band", cell.Transform)
	}
	if child(cell, "axis-x") == nil || child(cell, "axis-y") == nil {
		t.Fatalf("expected both axes on a single chart")
	}
	marks := child(cell, "marks")
	if marks.Clip == nil || marks.Clip.X != 0 || marks.Clip.Y != 0 {
		t.Fatalf("marks group must be clipped to the plot, got %+v", marks.Clip)
	}

	rs := bars(t, cell)
	if len(rs) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(rs))
	}
	if !near(rs[1].H, 2*rs[0].H) || !near(rs[0].H, 2*rs[2].H) {
		t.Fatalf("bar heights not proportional: %g %g %g", rs[0].H, rs[1].H, rs[2].H)
	}
	for _, r := range rs {
		if !near(r.Y+r.H, marks.Clip.H) {
			t.Fatalf("bar %+v does not sit on the baseline %g", r, marks.Clip.H)
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := `{
		"data": {"values": [
			{"r": "n", "c": "a", "g": "x", "v": 1},
			{"r": "s", "c": "a", "g": "y", "v": 2},
			{"r": "e", "c": "b", "g": "x", "v": 3},
			{"r": "w", "c": "b", "g": "y", "v": 4},
			{"r": "n", "c": "b", "g": "y", "v": 5},
			{"r": "c", "c": "a", "g": "x", "v": 6},
			{"r": "s", "c": "b", "g": "x", "v": 7}
		]},
		"mark": "bar",
		"encoding": {
			"x": {"field": "c", "type": "nominal"},
			"y": {"field": "v", "type": "quantitative"},
			"color": {"field": "g", "type": "nominal"}
		},
		"facet": {"wrap": "r", "resolve": {"scale": {"y": "independent"}}}
	}`
	encode := func(parallelism int) string {
		sc := mustCompile(t, src, Options{Parallelism: parallelism})
		var buf bytes.Buffer
		if err := scene.Encode(&buf, sc); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return buf.String()
	}
	want := encode(1)
	for i := 0; i < 5; i++ {
		if got := encode(0); got != want {
			t.Fatalf("parallel compile #%d differs from serial output", i)
		}
	}
}

const regions = `{
	"data": {"values": [
		{"region": "east", "cat": "a", "value": 10},
		{"region": "east", "cat": "b", "value": 20},
		{"region": "west", "cat": "a", "value": 40}
	]},
	"mark": "bar",
	"encoding": {
		"x": {"field": "cat", "type": "nominal"},
		"y": {"field": "value", "type": "quantitative"}
	},
	"facet": {"column": "region"%s}
}`

func TestSharedFacetAxesOnOuterEdge(t *testing.T) {
	sc := mustCompile(t, strings.Replace(regions, "%s", "", 1), Options{})
	cells := cellGroups(sc)
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
	if child(cells[0], "axis-y") == nil || child(cells[1], "axis-y") != nil {
		t.Fatalf("shared y axis belongs to the left column only")
	}
	if child(cells[0], "axis-x") == nil || child(cells[1], "axis-x") == nil {
		t.Fatalf("every cell in the bottom row carries the x axis")
	}
	header, ok := cells[0].Children[0].(*scene.Mark)
	if !ok || header.Role != layout.RoleHeader || header.Items[0].Geometry.(scene.Text).Text != "east" {
		t.Fatalf("first child of cell-0 should be its header, got %#v", cells[0].Children[0])
	}

	east, west := bars(t, cells[0]), bars(t, cells[1])
	if len(east) != 2 || len(west) != 1 {
		t.Fatalf("records leaked between cells: %d / %d", len(east), len(west))
	}
	// 共享域 [0, 40]：east 的 20 是 west 的 40 的一半
	if !near(2*east[1].H, west[0].H) {
		t.Fatalf("shared domain heights: east %g west %g", east[1].H, west[0].H)
	}
	if !near(cells[0].Transform.Y, cells[1].Transform.Y) {
		t.Fatalf("cells in a row should be aligned")
	}
}

func TestIndependentFacetScales(t *testing.T) {
	src := strings.Replace(regions, "%s", `, "resolve": {"scale": {"y": "independent"}}`, 1)
	sc := mustCompile(t, src, Options{})
	cells := cellGroups(sc)
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
	for _, c := range cells {
		if child(c, "axis-y") == nil {
			t.Fatalf("%s: independent scales get their own axis", c.Name)
		}
	}
	east, west := bars(t, cells[0]), bars(t, cells[1])
	// 各自的最大值都撑满绘图区
	if !near(east[1].H, west[0].H) {
		t.Fatalf("independent maxima should have equal height: %g vs %g", east[1].H, west[0].H)
	}
}

func TestNamedScaleStillStacks(t *testing.T) {
	sc := mustCompile(t, `{
		"data": {"values": [
			{"c": "x", "g": "A", "v": 10},
			{"c": "x", "g": "B", "v": 20}
		]},
		"layer": [{
			"mark": "bar",
			"encoding": {
				"x": {"field": "c", "type": "nominal"},
				"y": {"field": "v", "type": "quantitative", "scale": "v"},
				"color": {"field": "g", "type": "nominal"}
			}
		}]
	}`, Options{})
	cell := cellGroups(sc)[0]
	if child(cell, "axis-v") == nil {
		t.Fatalf("axis group should be named after the scale")
	}
	rs := bars(t, cell)
	if len(rs) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(rs))
	}
	a, b := rs[0], rs[1]
	if !near(a.X, b.X) || !near(a.W, b.W) {
		t.Fatalf("stacked bars share the band: %+v %+v", a, b)
	}
	if !near(b.Y+b.H, a.Y) {
		t.Fatalf("B should sit on top of A: %+v %+v", a, b)
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code spec.Code
		kind error
	}{
		{
			name: "missing field",
			src: `{"data": {"values": [{"c": "a", "v": 1}]}, "mark": "bar",
				"encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "nope", "type": "quantitative"}}}`,
			code: spec.CodeMissingField,
			kind: spec.ErrData,
		},
		{
			name: "facet field",
			src: `{"data": {"values": [{"c": "a", "v": 1}]}, "mark": "bar",
				"encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "v", "type": "quantitative"}},
				"facet": {"column": "region"}}`,
			code: spec.CodeFacetFieldMissing,
			kind: spec.ErrFacet,
		},
		{
			name: "empty data",
			src: `{"data": {"values": []}, "mark": "bar",
				"encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "v", "type": "quantitative"}}}`,
			code: spec.CodeDegenerateDomain,
			kind: spec.ErrScale,
		},
		{
			name: "background",
			src: `{"background": "not a colour", "data": {"values": [{"c": "a", "v": 1}]}, "mark": "bar",
				"encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "v", "type": "quantitative"}}}`,
			code: spec.CodeInvalidValue,
			kind: spec.ErrSpec,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc, err := compileJSON(t, tc.src, Options{})
			if err == nil {
				t.Fatalf("expected error, got scene %+v", sc)
			}
			if sc != nil {
				t.Fatalf("no partial scene on error")
			}
			if !spec.HasCode(err, tc.code) || !errors.Is(err, tc.kind) {
				t.Fatalf("err = %v, want code %s", err, tc.code)
			}
		})
	}
}

func TestMissingFieldErrorNamesPath(t *testing.T) {
	_, err := compileJSON(t, `{"data": {"values": [{"c": "a", "v": 1}]},
		"layer": [
			{"mark": "bar", "encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "v", "type": "quantitative"}}},
			{"mark": "point", "encoding": {"x": {"field": "c", "type": "nominal"}, "y": {"field": "value", "type": "quantitative"}}}
		]}`, Options{})
	e, ok := spec.AsError(err)
	if !ok {
		t.Fatalf("expected *spec.Error, got %v", err)
	}
	if e.Path != "layer[1].encoding.y.field" {
		t.Fatalf("path = %q", e.Path)
	}
}

func TestBackgroundColour(t *testing.T) {
	sc := mustCompile(t, strings.Replace(barChart, `"title": "Sales",`, `"background": "#ffffff",`, 1), Options{})
	if sc.Background == nil || *sc.Background != scene.RGB(255, 255, 255) {
		t.Fatalf("background = %+v", sc.Background)
	}
	if _, ok := sc.Root.Children[0].(*scene.Group); !ok {
		t.Fatalf("untitled chart should start with the first cell")
	}
}

func TestCancelledContext(t *testing.T) {
	s, err := spec.ParseJSON([]byte(barChart))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compile(ctx, s, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestEmptyFacetCompilesToEmptyScene(t *testing.T) {
	for _, shared := range []bool{true, false} {
		src := `{"title": "Empty", "data": {"values": []}, "mark": "rule", "facet": {"column": {"field": "region"}}}`
		if !shared {
			src = strings.Replace(src, `}}}`, `}, "resolve": {"scale": {"y": "independent"}}}}`, 1)
		}
		sc, err := compileJSON(t, src, Options{})
		if err != nil {
			t.Fatalf("shared=%v: compile: %v", shared, err)
		}
		if n := len(cellGroups(sc)); n != 0 {
			t.Fatalf("shared=%v: expected no cells, got %d", shared, n)
		}
		if len(sc.Root.Children) != 1 {
			t.Fatalf("shared=%v: only the title should remain, got %d nodes", shared, len(sc.Root.Children))
		}
	}
}
