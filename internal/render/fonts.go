package render

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
)

var (
	labelFontOnce sync.Once
	labelFont     *truetype.Font
)

// labelFace returns a Go Bold face of the given pixel size. Faces keep glyph
// caches and are not shared between goroutines, so each call builds one.
// Without a usable font the 7x13 bitmap face is returned.
func labelFace(size float64) font.Face {
	labelFontOnce.Do(func() {
		f, err := truetype.Parse(gobold.TTF)
		if err == nil {
			labelFont = f
		}
	})
	if labelFont == nil || size < 6 {
		return basicfont.Face7x13
	}
	return truetype.NewFace(labelFont, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}
