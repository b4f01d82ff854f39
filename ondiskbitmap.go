package displayio

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/bmp"
)

// OnDiskBitmap decodes a BMP image into a read-only pixel source. Indexed
// BMPs keep their indices and expose a Palette built from the file's color
// table; truecolor BMPs store packed RGB888 and expose a ColorConverter.
// Either way the value returned by Shader is ready to hand to NewTileGrid.
type OnDiskBitmap struct {
	bitmap *Bitmap
	shader Shader
}

// NewOnDiskBitmap reads and decodes a BMP stream.
func NewOnDiskBitmap(r io.Reader) (*OnDiskBitmap, error) {
	img, err := bmp.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("displayio: decoding bitmap: %w", err)
	}
	b := &OnDiskBitmap{}
	if pal, ok := img.(*image.Paletted); ok {
		err = b.loadPaletted(pal)
	} else {
		err = b.loadTruecolor(img)
	}
	if err != nil {
		return nil, err
	}
	// The file never changes after decoding: freeze the store and drop the
	// initial full-repaint damage, which TileGrid provides on attach.
	b.bitmap.readOnly = true
	b.bitmap.finishRefresh()
	return b, nil
}

func (b *OnDiskBitmap) loadPaletted(img *image.Paletted) error {
	palette, err := NewPalette(len(img.Palette))
	if err != nil {
		return err
	}
	for i, c := range img.Palette {
		r, g, bl, a := c.RGBA()
		rgb := (r>>8)<<16 | (g>>8)<<8 | bl>>8
		if err := palette.SetColor(i, uint32(rgb)); err != nil {
			return err
		}
		if a == 0 {
			if err := palette.MakeTransparent(i); err != nil {
				return err
			}
		}
	}
	bounds := img.Bounds()
	b.bitmap, err = NewBitmap(bounds.Dx(), bounds.Dy(), len(img.Palette))
	if err != nil {
		return err
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			index := uint32(img.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y))
			if err := b.bitmap.SetPixel(x, y, index); err != nil {
				return err
			}
		}
	}
	b.shader = palette
	return nil
}

func (b *OnDiskBitmap) loadTruecolor(img image.Image) error {
	bounds := img.Bounds()
	var err error
	b.bitmap, err = NewBitmap(bounds.Dx(), bounds.Dy(), 1<<24)
	if err != nil {
		return err
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if err := b.bitmap.SetPixel(x, y, (r>>8)<<16|(g>>8)<<8|bl>>8); err != nil {
				return err
			}
		}
	}
	b.shader = NewColorConverter(false)
	return nil
}

// Width returns the bitmap width in pixels.
func (b *OnDiskBitmap) Width() int { return b.bitmap.Width() }

// Height returns the bitmap height in pixels.
func (b *OnDiskBitmap) Height() int { return b.bitmap.Height() }

// Shader returns the Palette or ColorConverter matching the file's pixel
// format.
func (b *OnDiskBitmap) Shader() Shader { return b.shader }

// Bitmap returns the backing pixel store, for tiling or blitting from.
// It is read-only; writes fail with ErrReadOnly.
func (b *OnDiskBitmap) Bitmap() *Bitmap { return b.bitmap }

// Pixel returns the palette index or RGB888 value at (x, y).
func (b *OnDiskBitmap) Pixel(x, y int) uint32 { return b.bitmap.Pixel(x, y) }

func (b *OnDiskBitmap) refreshArea() (Area, bool) { return b.bitmap.refreshArea() }

func (b *OnDiskBitmap) finishRefresh() {}
