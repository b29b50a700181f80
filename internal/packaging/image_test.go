package packaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/quizforge/quizforge-backend/internal/model"
)

// renderPage produces a 200x100 raster whose right half is red, so crops can
// be verified by pixel color.
func renderPage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 100; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCropQuestionImage(t *testing.T) {
	page := renderPage(t)

	// Right half of the page.
	out, err := CropQuestionImage(page, model.CropRect{Page: 1, X: 0.5, Y: 0, Width: 0.5, Height: 1})
	if err != nil {
		t.Fatalf("CropQuestionImage: %v", err)
	}

	crop, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if got := crop.Bounds(); got.Dx() != 100 || got.Dy() != 100 {
		t.Errorf("crop size = %dx%d, want 100x100", got.Dx(), got.Dy())
	}
	r, _, _, _ := crop.At(10, 10).RGBA()
	if r>>8 != 255 {
		t.Errorf("crop pixel red = %d, want 255", r>>8)
	}
}

// A rectangle spilling past the page edge is clamped, not rejected.
func TestCropQuestionImageClampsToPage(t *testing.T) {
	page := renderPage(t)

	out, err := CropQuestionImage(page, model.CropRect{Page: 1, X: 0.75, Y: 0.5, Width: 0.5, Height: 1})
	if err != nil {
		t.Fatalf("CropQuestionImage: %v", err)
	}
	crop, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if got := crop.Bounds(); got.Dx() != 50 || got.Dy() != 50 {
		t.Errorf("clamped crop size = %dx%d, want 50x50", got.Dx(), got.Dy())
	}
}

func TestCropQuestionImageOutsidePage(t *testing.T) {
	page := renderPage(t)

	if _, err := CropQuestionImage(page, model.CropRect{Page: 1, X: 1.5, Y: 0, Width: 0.2, Height: 0.2}); err == nil {
		t.Error("crop fully outside the page accepted")
	}
}

func TestCropQuestionImageBadRaster(t *testing.T) {
	if _, err := CropQuestionImage([]byte("not a png"), model.CropRect{Page: 1, Width: 1, Height: 1}); err == nil {
		t.Error("undecodable raster accepted")
	}
}
