package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/echecs/internal/rules"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
)

type pieceCacheKey struct {
	piece rules.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func hex(c color.RGBA) string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// boardSVG lays out the 64 squares, a1 dark.
func boardSVG(square int) string {
	var b strings.Builder
	side := square * 8
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, side, side, side, side)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
				col*square, row*square, square, square, hex(squareColor(col, 7-row)))
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}

var (
	whitePieceFill = color.RGBA{248, 246, 240, 255}
	blackPieceFill = color.RGBA{34, 34, 40, 255}
)

// pieceSVG is a stroked disc on a 100x100 canvas; the letter is added after
// rasterising since oksvg does not render text.
func pieceSVG(p rules.Piece) string {
	fill, stroke := whitePieceFill, blackPieceFill
	if p.Color == rules.Black {
		fill, stroke = blackPieceFill, whitePieceFill
	}
	ring := 36
	if p.Kind == rules.Pawn {
		ring = 28
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">`+
		`<circle cx="50" cy="50" r="%d" fill="%s" stroke="%s" stroke-width="5"/></svg>`,
		ring, hex(fill), hex(stroke))
}

func rasterize(svg string, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func renderPieceImage(piece rules.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	img, err := rasterize(pieceSVG(piece), size)
	if err != nil {
		return nil, fmt.Errorf("piece %s: %w", piece, err)
	}
	ink := blackPieceFill
	if piece.Color == rules.Black {
		ink = whitePieceFill
	}
	face := labelFace(float64(size) * 0.4)
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(ink)}
	capHeight := face.Metrics().CapHeight.Ceil()
	if capHeight <= 0 {
		capHeight = face.Metrics().Ascent.Ceil() * 2 / 3
	}
	drawCenteredText(drawer, string(piece.Kind.Letter()), size/2, size/2+capHeight/2)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
