package scene

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func sampleScene() *Scene {
	bars := &Mark{Type: MarkRect, Role: "mark", Items: []MarkItem{
		{Geometry: Rect{X: 10, Y: 20, W: 30, H: 40}, Opacity: 1, Datum: map[string]any{"category": "A"}},
	}}
	axis := &Mark{Type: MarkRule, Role: "axis-domain", Items: []MarkItem{
		{Geometry: Rule{X1: 0, Y1: 100, X2: 200, Y2: 100}, Opacity: 1},
	}}
	cell := &Group{Name: "cell", Transform: Transform{X: 50, Y: 20}}
	cell.Add(bars, axis)
	root := &Group{Name: "root"}
	root.Add(cell)
	bg := RGB(255, 255, 255)
	return &Scene{Width: 300, Height: 200, Background: &bg, Root: root}
}

func TestWalkAccumulatesTranslation(t *testing.T) {
	s := sampleScene()
	var seen []string
	var barOffset Point
	Walk(s.Root, func(n Node, off Point) bool {
		switch v := n.(type) {
		case *Group:
			seen = append(seen, "group:"+v.Name)
		case *Mark:
			seen = append(seen, "mark:"+v.Role)
			if v.Role == "mark" {
				barOffset = off
			}
		}
		return true
	})
	want := "group:root,group:cell,mark:mark,mark:axis-domain"
	if got := strings.Join(seen, ","); got != want {
		t.Fatalf("walk order = %s, want %s", got, want)
	}
	if barOffset != (Point{X: 50, Y: 20}) {
		t.Fatalf("unexpected offset %+v", barOffset)
	}
	if n := len(s.Marks("axis-domain")); n != 1 {
		t.Fatalf("expected 1 axis mark, got %d", n)
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	s := sampleScene()
	count := 0
	Walk(s.Root, func(n Node, _ Point) bool {
		count++
		g, ok := n.(*Group)
		return !ok || g.Name != "cell"
	})
	if count != 2 {
		t.Fatalf("expected walk to stop at cell, visited %d", count)
	}
}

func TestEncodeIsStable(t *testing.T) {
	var a, b bytes.Buffer
	if err := Encode(&a, sampleScene()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Encode(&b, sampleScene()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("encoding differs between identical scenes")
	}
	if !strings.Contains(a.String(), `"category": "A"`) {
		t.Fatalf("datum missing from debug output:\n%s", a.String())
	}
}

func TestWriteDebugJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := WriteDebugJSON(sampleScene(), path); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteDebugJSON(nil, path); err != nil {
		t.Fatalf("nil scene should be a no-op: %v", err)
	}
}

func TestGeometryBounds(t *testing.T) {
	trap := Rect{Corners: []Point{{0, 0}, {100, 0}, {80, 50}, {20, 50}}}
	if got := trap.Bounds(); got != (Box{X: 0, Y: 0, W: 100, H: 50}) {
		t.Fatalf("trapezoid bounds = %+v", got)
	}
	sym := Symbol{X: 10, Y: 10, Size: 64}
	if got := sym.Bounds(); got != (Box{X: 6, Y: 6, W: 8, H: 8}) {
		t.Fatalf("symbol bounds = %+v", got)
	}
	area := Area{Points: []Point{{0, 10}, {10, 5}}, Baseline: []Point{{0, 20}, {10, 20}}}
	outline := area.Outline()
	if len(outline) != 4 || outline[2] != (Point{10, 20}) {
		t.Fatalf("outline = %+v", outline)
	}
	u := Box{X: 0, Y: 0, W: 10, H: 10}.Union(Box{X: 5, Y: -5, W: 10, H: 10})
	if u != (Box{X: 0, Y: -5, W: 15, H: 15}) {
		t.Fatalf("union = %+v", u)
	}
}

func TestSymbolPaths(t *testing.T) {
	for _, shape := range Shapes {
		d := shape.Path(100)
		if !strings.HasPrefix(d, "M") || !strings.HasSuffix(d, "Z") {
			t.Fatalf("%s: malformed path %q", shape, d)
		}
	}
	if got := ShapeSquare.Path(100); got != "M-5,-5L5,-5L5,5L-5,5Z" {
		t.Fatalf("square path = %q", got)
	}
	if SymbolShape("blob").Valid() {
		t.Fatalf("unknown shape reported valid")
	}
}

func TestColorFormatting(t *testing.T) {
	if got := RGB(255, 105, 180).String(); got != "#ff69b4" {
		t.Fatalf("hex = %s", got)
	}
	if got := (Color{R: 1, G: 2, B: 3, A: 0.5}).String(); got != "rgba(1,2,3,0.5)" {
		t.Fatalf("rgba = %s", got)
	}
}
