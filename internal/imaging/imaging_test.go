package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testPhoto(t *testing.T, w, h int, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{200, 180, 160, 255})
		}
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("unknown format %s", format)
	}
	if err != nil {
		t.Fatalf("encoding %s test photo: %v", format, err)
	}
	return buf.Bytes()
}

func decodeResult(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding processed photo: %v", err)
	}
	return img
}

func TestProcessJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(testPhoto(t, 100, 100, "jpeg")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if len(result.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestProcessPNGConvertedToJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(testPhoto(t, 100, 100, "png")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("stored photos are always JPEG, got %s", result.MIME)
	}
}

func TestProcessDownscalesLargePhoto(t *testing.T) {
	// 3000x2000 is typical for a phone camera shot of a supply label.
	result, err := Process(bytes.NewReader(testPhoto(t, 3000, 2000, "jpeg")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	bounds := decodeResult(t, result.Data).Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		t.Errorf("expected max dimension %d, got %dx%d", MaxDimension, bounds.Dx(), bounds.Dy())
	}
	// Aspect ratio is preserved: 3000x2000 scales to 1600x1066.
	if bounds.Dx() != MaxDimension {
		t.Errorf("long edge should be %d, got %d", MaxDimension, bounds.Dx())
	}
}

func TestProcessKeepsSmallPhotoSize(t *testing.T) {
	result, err := Process(bytes.NewReader(testPhoto(t, 50, 50, "jpeg")))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	bounds := decodeResult(t, result.Data).Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Errorf("small photo should keep its size, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	if _, err := Process(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestProcessRejectsGIF(t *testing.T) {
	if _, err := Process(bytes.NewReader([]byte("GIF89a..."))); err == nil {
		t.Error("expected error for GIF data")
	}
}
