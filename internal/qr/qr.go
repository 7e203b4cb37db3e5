package qr

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// CodeSize is the rendered QR code width and height in pixels.
const CodeSize = 256

// captionHeight is the white band under the code holding the identifiant.
const captionHeight = 24

// Renderer writes printable QR labels for piece lookup pages. Each
// label is the QR code for the piece's public URL with the identifiant
// printed underneath, saved as <identifiant>.png so the file name is
// derivable from the piece alone.
type Renderer struct {
	// Dir is the directory labels are written to.
	Dir string

	// BaseURL is the public base URL encoded into the code.
	BaseURL string
}

// LookupURL returns the public lookup URL a piece's QR code encodes.
func (r *Renderer) LookupURL(identifiant string) string {
	return strings.TrimRight(r.BaseURL, "/") + "/piece/" + identifiant
}

// Filename returns the stable label file name for a piece.
func Filename(identifiant string) string {
	return identifiant + ".png"
}

// Render generates the QR label for a piece and writes it under Dir,
// returning the file name.
func (r *Renderer) Render(identifiant string) (string, error) {
	code, err := qrcode.New(r.LookupURL(identifiant), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("generating QR code: %w", err)
	}

	label := compose(code.Image(CodeSize), identifiant)

	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating QR directory: %w", err)
	}

	filename := Filename(identifiant)
	f, err := os.Create(filepath.Join(r.Dir, filename))
	if err != nil {
		return "", fmt.Errorf("creating QR file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, label); err != nil {
		return "", fmt.Errorf("encoding QR label: %w", err)
	}
	return filename, nil
}

// compose places the code on a white canvas with the identifiant
// centered in a caption band below it.
func compose(code image.Image, identifiant string) image.Image {
	bounds := code.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	canvas := image.NewRGBA(image.Rect(0, 0, w, h+captionHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, code, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, identifiant).Ceil()

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot: fixed.P(
			(w-textWidth)/2,
			h+(captionHeight+face.Ascent)/2,
		),
	}
	d.DrawString(identifiant)

	return canvas
}
