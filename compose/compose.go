package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // decoration assets may be GIF
	_ "image/jpeg" // decoration assets may be JPEG
	"image/png"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/image/draw"

	"github.com/jonwraymond/listicons/decoration"
)

// ErrComposition indicates the decoration asset could not be used or the
// icon could not be produced.
var ErrComposition = errors.New("compose: composition failed")

// HeadOffset is where the head's top-left corner lands on the canvas.
var HeadOffset = image.Pt(16, 16)

// Config configures a Compositor.
type Config struct {
	// FS is the images filesystem. When nil, Dir is opened with osfs.
	FS billy.Filesystem

	// Dir is the images directory, used when FS is nil. It is created if missing.
	Dir string
}

// Compositor draws heads onto decoration assets.
//
// Contract:
// - Concurrency: safe for concurrent use; assets are read on every call.
// - Errors: every failure matches ErrComposition.
type Compositor struct {
	fs billy.Filesystem
}

// New creates a Compositor.
func New(cfg Config) (*Compositor, error) {
	if cfg.FS == nil {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("%w: images directory is required", ErrComposition)
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrComposition, cfg.Dir, err)
		}
		cfg.FS = osfs.New(cfg.Dir)
	}
	return &Compositor{fs: cfg.FS}, nil
}

// Compose draws head and the first asset onto a transparent canvas the size
// of the asset and returns it as PNG.
//
// With Overlay the head is drawn first at HeadOffset and the asset over it;
// with Underlay the asset is drawn first and the head over it. Both are
// alpha-blended without resampling.
func (c *Compositor) Compose(layout decoration.Layout, assets []string, head []byte) ([]byte, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no decoration asset", ErrComposition)
	}
	frame, err := c.Asset(assets[0])
	if err != nil {
		return nil, err
	}
	headImg, err := png.Decode(bytes.NewReader(head))
	if err != nil {
		return nil, fmt.Errorf("%w: decode head: %w", ErrComposition, err)
	}

	bounds := frame.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	headRect := headImg.Bounds().Sub(headImg.Bounds().Min).Add(HeadOffset)

	drawFrame := func() { draw.Draw(canvas, canvas.Bounds(), frame, bounds.Min, draw.Over) }
	drawHead := func() { draw.Draw(canvas, headRect, headImg, headImg.Bounds().Min, draw.Over) }

	switch layout {
	case decoration.Overlay:
		drawHead()
		drawFrame()
	case decoration.Underlay:
		drawFrame()
		drawHead()
	default:
		return nil, fmt.Errorf("%w: %w", ErrComposition, decoration.ErrInvalidLayout)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrComposition, err)
	}
	return buf.Bytes(), nil
}

// Asset reads and decodes one decoration image.
func (c *Compositor) Asset(name string) (image.Image, error) {
	data, err := util.ReadFile(c.fs, name)
	if err != nil {
		return nil, fmt.Errorf("%w: read asset %q: %w", ErrComposition, name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode asset %q: %w", ErrComposition, name, err)
	}
	return img, nil
}

// Exists reports whether the named asset is present.
func (c *Compositor) Exists(name string) bool {
	_, err := c.fs.Stat(name)
	return err == nil
}

// Filesystem returns the images filesystem.
func (c *Compositor) Filesystem() billy.Filesystem {
	return c.fs
}
