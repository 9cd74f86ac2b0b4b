package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"github.com/park285/echecs/internal/rules"
	"golang.org/x/image/font"
)

// Highlight marks the last move.
type Highlight struct {
	From string
	To   string
}

type Options struct {
	Highlight *Highlight
	// SquareSize in pixels; 0 means DefaultSquareSize.
	SquareSize int
	// HideCoordinates drops the rank and file labels.
	HideCoordinates bool
}

const DefaultSquareSize = 64

// BoardRenderer draws a board as a PNG image.
type BoardRenderer interface {
	RenderPNG(ctx context.Context, board *rules.Board, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer { return &svgBoardRenderer{} }

// Layout describes where the board sits in the image.
type Layout struct {
	SquareSize int
	Margin     int
	Origin     image.Point
	Width      int
	Height     int
}

func layoutFor(opts Options) Layout {
	size := opts.SquareSize
	if size <= 0 {
		size = DefaultSquareSize
	}
	margin := size * 3 / 8
	return Layout{
		SquareSize: size,
		Margin:     margin,
		Origin:     image.Point{X: margin, Y: margin},
		Width:      size*8 + margin*2,
		Height:     size*8 + margin*2,
	}
}

// SquareRect is the pixel rectangle of pos.
func (l Layout) SquareRect(pos string) image.Rectangle {
	col := int(pos[0] - 'a')
	row := 7 - int(pos[1]-'1')
	x := l.Origin.X + col*l.SquareSize
	y := l.Origin.Y + row*l.SquareSize
	return image.Rect(x, y, x+l.SquareSize, y+l.SquareSize)
}

// LayoutFor exposes the geometry RenderPNG uses for opts.
func LayoutFor(opts Options) Layout { return layoutFor(opts) }

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *rules.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, errors.New("board is nil")
	}
	if h := opts.Highlight; h != nil && (!rules.PositionIsValid(h.From) || !rules.PositionIsValid(h.To)) {
		return nil, fmt.Errorf("highlight %s-%s: %w", h.From, h.To, rules.ErrInvalidPosition)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	l := layoutFor(opts)
	img := image.NewRGBA(image.Rect(0, 0, l.Width, l.Height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	if err := drawSquares(img, l); err != nil {
		return nil, err
	}
	drawHighlight(img, board, opts.Highlight, l)
	if err := drawPieces(img, board, l); err != nil {
		return nil, err
	}
	if !opts.HideCoordinates {
		drawCoordinates(img, l)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	lightSquare               = color.RGBA{233, 207, 163, 255}
	darkSquare                = color.RGBA{187, 136, 96, 255}
	frameColor                = color.RGBA{40, 44, 60, 255}
	whiteMoveHighlightFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	neutralMoveHighlightArrow = color.NRGBA{R: 182, G: 184, B: 190, A: 140}
	coordinateTextColor       = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func squareColor(col, row int) color.RGBA {
	if (col+row)%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst *image.RGBA, l Layout) error {
	board, err := rasterize(boardSVG(l.SquareSize), l.SquareSize*8)
	if err != nil {
		return fmt.Errorf("board squares: %w", err)
	}
	r := image.Rect(l.Origin.X, l.Origin.Y, l.Origin.X+l.SquareSize*8, l.Origin.Y+l.SquareSize*8)
	imagedraw.Draw(dst, r, board, image.Point{}, imagedraw.Over)
	return nil
}

func drawPieces(dst *image.RGBA, board *rules.Board, l Layout) error {
	for _, pos := range board.Positions() {
		img, err := renderPieceImage(board.PieceAt(pos), l.SquareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, l.SquareRect(pos), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

// drawHighlight tints both squares for a white move and draws an arrow for
// a black one. The mover is read from the target, then the source.
func drawHighlight(img *image.RGBA, board *rules.Board, h *Highlight, l Layout) {
	if h == nil {
		return
	}
	mover := board.ColorAt(h.To)
	if mover == rules.NoColor {
		mover = board.ColorAt(h.From)
	}
	switch mover {
	case rules.White:
		drawSquareOverlay(img, l.SquareRect(h.From), whiteMoveHighlightFill)
		drawSquareOverlay(img, l.SquareRect(h.To), whiteMoveHighlightFill)
	case rules.Black:
		drawArrow(img, l.SquareRect(h.From), l.SquareRect(h.To), l.SquareSize, blackMoveHighlightArrow)
	default:
		drawArrow(img, l.SquareRect(h.From), l.SquareRect(h.To), l.SquareSize, neutralMoveHighlightArrow)
	}
}

func drawCoordinates(dst *image.RGBA, l Layout) {
	face := labelFace(float64(l.Margin) * 0.55)
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEnd := l.Origin.Y + 8*l.SquareSize

	for i := 0; i < 8; i++ {
		rank := string(rules.Rows[7-i])
		rankCenter := l.Origin.Y + i*l.SquareSize + l.SquareSize/2
		drawCenteredText(drawer, rank, l.Origin.X-l.Margin/2, rankCenter+ascent/2)

		file := string(rules.Columns[i])
		fileCenter := l.Origin.X + i*l.SquareSize + l.SquareSize/2
		drawCenteredText(drawer, file, fileCenter, boardEnd+(l.Margin+ascent)/2)
	}
}
