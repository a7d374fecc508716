package botshield

import (
	"bytes"
	"fmt"
	"math/rand/v2"

	"cogbot/domain/entities"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

const (
	captchaImageWidth  = 320
	captchaImageHeight = 120
	captchaImageName   = "captcha.png"
	captchaNoiseLines  = 8
)

// renderCaptchaImage draws "a + b = ?" with noise so the equation is not plain text
func renderCaptchaImage(challenge entities.CaptchaChallenge, r *rand.Rand) ([]byte, error) {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	dc := gg.NewContext(captchaImageWidth, captchaImageHeight)
	dc.SetRGB(0.12, 0.13, 0.16)
	dc.Clear()

	// Background noise
	for n := 0; n < captchaNoiseLines; n++ {
		dc.SetRGBA(0.4+r.Float64()*0.5, 0.4+r.Float64()*0.5, 0.4+r.Float64()*0.5, 0.35)
		dc.SetLineWidth(1 + r.Float64()*2)
		dc.DrawLine(
			r.Float64()*captchaImageWidth, r.Float64()*captchaImageHeight,
			r.Float64()*captchaImageWidth, r.Float64()*captchaImageHeight,
		)
		dc.Stroke()
	}

	face, err := loadFont(gobold.TTF, 44)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	dc.SetFontFace(face)

	text := fmt.Sprintf("%d + %d = ?", challenge.A, challenge.B)
	w, _ := dc.MeasureString(text)
	x := (captchaImageWidth - w) / 2
	for _, ch := range text {
		glyph := string(ch)
		y := captchaImageHeight/2 + 14 + (r.Float64()*10 - 5)

		dc.Push()
		dc.RotateAbout(gg.Radians(r.Float64()*16-8), x, y)
		dc.SetRGBA(0, 0, 0, 0.5)
		dc.DrawString(glyph, x+1.5, y+1.5)
		dc.SetRGB(0.95, 0.95, 0.98)
		dc.DrawString(glyph, x, y)
		dc.Pop()

		gw, _ := dc.MeasureString(glyph)
		x += gw
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont loads a font from byte data
func loadFont(fontData []byte, size float64) (font.Face, error) {
	f, err := truetype.Parse(fontData)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
