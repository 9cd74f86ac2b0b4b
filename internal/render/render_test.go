package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/park285/echecs/internal/rules"
)

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	return img
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func rgbaAt(img image.Image, p image.Point) color.RGBA {
	return color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
}

func corner(r image.Rectangle) image.Point { return r.Min.Add(image.Pt(2, 2)) }

func TestRenderDimensionsAndSquares(t *testing.T) {
	r := NewSVGBoardRenderer()
	raw, err := r.RenderPNG(context.Background(), rules.NewEmptyBoard(), Options{SquareSize: 32})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	l := LayoutFor(Options{SquareSize: 32})
	if img.Bounds().Dx() != l.Width || img.Bounds().Dy() != l.Height {
		t.Fatalf("size = %v, want %dx%d", img.Bounds(), l.Width, l.Height)
	}

	for pos, want := range map[string]color.RGBA{"a1": darkSquare, "h1": lightSquare, "a8": lightSquare, "h8": darkSquare} {
		got := rgbaAt(img, corner(l.SquareRect(pos)))
		if !near(got.R, want.R) || !near(got.G, want.G) || !near(got.B, want.B) {
			t.Fatalf("%s = %v, want %v", pos, got, want)
		}
	}
}

func TestRenderPiecesDiffer(t *testing.T) {
	r := NewSVGBoardRenderer()
	l := LayoutFor(Options{})
	img := decode(t, mustRender(t, r, rules.NewBoard(), Options{}))

	// e1 holds the white king; its disc centre is lighter than a dark square
	c := rgbaAt(img, l.SquareRect("e1").Min.Add(image.Pt(l.SquareSize/2, l.SquareSize/4)))
	if c.R < 200 || c.G < 200 {
		t.Fatalf("white piece not drawn: %v", c)
	}
	c = rgbaAt(img, l.SquareRect("e8").Min.Add(image.Pt(l.SquareSize/2, l.SquareSize/4)))
	if c.R > 80 {
		t.Fatalf("black piece not drawn: %v", c)
	}
}

func TestRenderHighlight(t *testing.T) {
	r := NewSVGBoardRenderer()
	b := rules.NewBoard()
	if _, err := b.ApplyMove("e2", "e4"); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	l := LayoutFor(Options{})
	plain := decode(t, mustRender(t, r, b, Options{}))
	lit := decode(t, mustRender(t, r, b, Options{Highlight: &Highlight{From: "e2", To: "e4"}}))

	p := corner(l.SquareRect("e2"))
	if rgbaAt(plain, p) == rgbaAt(lit, p) {
		t.Fatalf("e2 not highlighted")
	}
	q := corner(l.SquareRect("a3"))
	if rgbaAt(plain, q) != rgbaAt(lit, q) {
		t.Fatalf("unrelated square changed")
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewSVGBoardRenderer()
	if _, err := r.RenderPNG(context.Background(), nil, Options{}); err == nil {
		t.Fatalf("expected nil board error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderPNG(ctx, rules.NewBoard(), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled err = %v", err)
	}
	_, err := r.RenderPNG(context.Background(), rules.NewBoard(), Options{Highlight: &Highlight{From: "x", To: "e4"}})
	if !errors.Is(err, rules.ErrInvalidPosition) {
		t.Fatalf("bad highlight err = %v", err)
	}
}

func mustRender(t *testing.T, r BoardRenderer, b *rules.Board, opts Options) []byte {
	t.Helper()
	raw, err := r.RenderPNG(context.Background(), b, opts)
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	return raw
}

func TestLabelFace(t *testing.T) {
	big := labelFace(24)
	small := labelFace(4)
	if big.Metrics().Height <= small.Metrics().Height {
		t.Fatalf("24px face should be taller than the bitmap fallback")
	}
	if _, ok := big.GlyphAdvance('K'); !ok {
		t.Fatalf("missing glyph K")
	}
}
