package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

var (
	faceColor = color.NRGBA{R: 200, G: 30, B: 30, A: 255}
	bodyColor = color.NRGBA{R: 30, G: 30, B: 200, A: 255}
)

// makeSkin returns a width x width/2 skin whose face region is faceColor,
// with the face's top-left pixel marked green.
func makeSkin(width int) *image.NRGBA {
	skin := image.NewNRGBA(image.Rect(0, 0, width, width/2))
	s := width / SkinBaseWidth
	for y := 0; y < width/2; y++ {
		for x := 0; x < width; x++ {
			c := bodyColor
			if x >= 8*s && x < 16*s && y >= 8*s && y < 16*s {
				c = faceColor
			}
			skin.SetNRGBA(x, y, c)
		}
	}
	for y := 8 * s; y < 9*s; y++ {
		for x := 8 * s; x < 9*s; x++ {
			skin.SetNRGBA(x, y, color.NRGBA{G: 255, A: 255})
		}
	}
	return skin
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestExtractHead(t *testing.T) {
	for _, width := range []int{64, 128} {
		head, err := ExtractHead(makeSkin(width))
		if err != nil {
			t.Fatalf("width %d: %v", width, err)
		}
		if head.Bounds() != image.Rect(0, 0, HeadSize, HeadSize) {
			t.Fatalf("width %d: bounds %v", width, head.Bounds())
		}
		// One face pixel becomes a 4x4 block.
		if got := head.NRGBAAt(3, 3); got != (color.NRGBA{G: 255, A: 255}) {
			t.Errorf("width %d: marker pixel = %v", width, got)
		}
		if got := head.NRGBAAt(4, 4); got != faceColor {
			t.Errorf("width %d: face pixel = %v", width, got)
		}
		if got := head.NRGBAAt(31, 31); got != faceColor {
			t.Errorf("width %d: corner pixel = %v", width, got)
		}
	}
}

func TestExtractHead_RejectsNarrowSkin(t *testing.T) {
	_, err := ExtractHead(image.NewNRGBA(image.Rect(0, 0, 32, 32)))
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}

func TestHeadFromSkinPNG(t *testing.T) {
	out, err := HeadFromSkinPNG(encodePNG(t, makeSkin(64)))
	if err != nil {
		t.Fatalf("HeadFromSkinPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	if _, err := HeadFromSkinPNG([]byte("not a png")); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote for garbage, got %v", err)
	}
}
