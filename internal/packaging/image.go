package packaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// CropQuestionImage clips a question's raster out of a rendered page.
// The crop rectangle is normalized to [0,1] and resolved against the actual
// raster dimensions, so the caller may render the page at any upscale factor
// (print-quality renders simply yield larger crops).
func CropQuestionImage(pageRaster []byte, crop model.CropRect) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(pageRaster))
	if err != nil {
		return nil, fmt.Errorf("decode page raster: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	x0 := b.Min.X + int(crop.X*float64(w))
	y0 := b.Min.Y + int(crop.Y*float64(h))
	x1 := x0 + int(crop.Width*float64(w))
	y1 := y0 + int(crop.Height*float64(h))

	rect := image.Rect(x0, y0, x1, y1).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("crop rectangle %+v is outside the page", crop)
	}

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
