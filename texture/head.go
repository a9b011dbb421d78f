package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Skin layout constants. The face occupies (8,8)-(16,16) on a 64-wide skin;
// higher resolution skins scale the region proportionally.
const (
	SkinBaseWidth = 64
	FaceOffset    = 8
	FaceSize      = 8
	HeadSize      = 32
)

// FaceRect returns the face region of a skin with the given bounds.
func FaceRect(bounds image.Rectangle) (image.Rectangle, error) {
	w := bounds.Dx()
	if w < SkinBaseWidth {
		return image.Rectangle{}, fmt.Errorf("%w: skin is %dpx wide, need at least %d", ErrRemote, w, SkinBaseWidth)
	}
	scale := w / SkinBaseWidth
	r := image.Rect(FaceOffset*scale, FaceOffset*scale, (FaceOffset+FaceSize)*scale, (FaceOffset+FaceSize)*scale).
		Add(bounds.Min)
	if !r.In(bounds) {
		return image.Rectangle{}, fmt.Errorf("%w: skin %v too short for face region", ErrRemote, bounds)
	}
	return r, nil
}

// ExtractHead crops the face out of skin and scales it to HeadSize square.
func ExtractHead(skin image.Image) (*image.NRGBA, error) {
	face, err := FaceRect(skin.Bounds())
	if err != nil {
		return nil, err
	}
	head := image.NewNRGBA(image.Rect(0, 0, HeadSize, HeadSize))
	draw.NearestNeighbor.Scale(head, head.Bounds(), skin, face, draw.Src, nil)
	return head, nil
}

// HeadFromSkinPNG decodes skin PNG bytes and returns the encoded head PNG.
func HeadFromSkinPNG(data []byte) ([]byte, error) {
	skin, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode skin: %w", ErrRemote, err)
	}
	head, err := ExtractHead(skin)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, head); err != nil {
		return nil, fmt.Errorf("%w: encode head: %w", ErrRemote, err)
	}
	return buf.Bytes(), nil
}
