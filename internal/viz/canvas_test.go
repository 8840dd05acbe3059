package viz

import (
	"bytes"
	"image"
	"image/gif"
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(4, 2)

	c.Set(0, 0)
	c.Set(1, 3)
	c.Set(-1, 0)
	c.Set(100, 100)

	if c.Grid[0][0] != rune(blank|0x1|0x80) {
		t.Errorf("cell = %U, want %U", c.Grid[0][0], rune(blank|0x1|0x80))
	}
	if !c.IsSet(1, 3) || c.IsSet(1, 2) || c.IsSet(-1, 0) {
		t.Error("IsSet mismatch")
	}

	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("expected clear canvas")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 9, 0)
	for x := 0; x <= 9; x++ {
		if !c.IsSet(x, 0) {
			t.Errorf("dot (%d,0) not set", x)
		}
	}
}

func TestCanvasDrawRect(t *testing.T) {
	c := NewCanvas(5, 3)
	c.DrawRect(0, 0, c.DotsX()-1, c.DotsY()-1)

	for _, p := range [][2]int{{0, 0}, {9, 0}, {0, 11}, {9, 11}, {4, 0}, {0, 6}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("border dot %v not set", p)
		}
	}
	if c.IsSet(4, 6) {
		t.Error("interior dot set")
	}
}

func TestCanvasDrawEllipse(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawEllipse(20, 20, 8, 8)

	for _, p := range [][2]int{{28, 20}, {12, 20}, {20, 28}, {20, 12}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("extreme %v not set", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("centre should be empty")
	}

	c.Clear()
	c.DrawEllipse(5.2, 6.8, 0.1, 0.1)
	if !c.IsSet(5, 7) {
		t.Error("tiny ellipse should light one dot")
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if len([]rune(lines[0])) != 3 {
		t.Errorf("expected 3 runes per line, got %d", len([]rune(lines[0])))
	}
}

func TestRasterizeAndWriteGIF(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(1, 2)

	img := Rasterize(c, 2)
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if img.ColorIndexAt(2, 4) != 1 || img.ColorIndexAt(3, 5) != 1 {
		t.Error("lit dot not rasterized")
	}
	if img.ColorIndexAt(0, 0) != 0 {
		t.Error("unlit dot rasterized")
	}

	var buf bytes.Buffer
	if err := WriteGIF(&buf, []*image.Paletted{img, img}, 2); err != nil {
		t.Fatal(err)
	}
	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(anim.Image) != 2 {
		t.Errorf("expected 2 frames, got %d", len(anim.Image))
	}
}
