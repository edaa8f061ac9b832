package services

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// BadgeArtist renders the PNG shown for a course badge.
type BadgeArtist interface {
	Render(title string, c LevelColor) ([]byte, error)
}

type badgeArtist struct {
	size      int
	titleFont *truetype.Font
	labelFont *truetype.Font
}

func NewBadgeArtist() (BadgeArtist, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	return &badgeArtist{size: 512, titleFont: bold, labelFont: regular}, nil
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
}

func (a *badgeArtist) Render(title string, c LevelColor) ([]byte, error) {
	base, err := parseHex(c.Hex)
	if err != nil {
		return nil, err
	}
	size := float64(a.size)
	mid := size / 2
	dc := gg.NewContext(a.size, a.size)

	// medal: outer ring, inner disc
	dc.DrawCircle(mid, mid, mid-4)
	dc.SetColor(shade(base, 0.7))
	dc.Fill()
	dc.DrawCircle(mid, mid, mid-36)
	dc.SetColor(base)
	dc.Fill()
	dc.SetLineWidth(6)
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 200})
	dc.DrawCircle(mid, mid, mid-52)
	dc.Stroke()

	dc.SetColor(color.White)
	dc.SetFontFace(face(a.titleFont, 168))
	dc.DrawStringAnchored(initials(title), mid, mid-24, 0.5, 0.5)

	dc.SetFontFace(face(a.labelFont, 40))
	dc.DrawStringAnchored("COMPLETED", mid, mid+112, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// initials takes the first letter of up to two words of title.
func initials(title string) string {
	var out []rune
	for _, w := range strings.Fields(title) {
		for _, r := range w {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func parseHex(h string) (color.NRGBA, error) {
	h = strings.TrimPrefix(strings.TrimSpace(h), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", h, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func shade(c color.NRGBA, f float64) color.NRGBA {
	return color.NRGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: c.A}
}
