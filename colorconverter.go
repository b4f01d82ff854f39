package displayio

import "errors"

// Colorspace describes how the display controller packs pixels into the
// bytes streamed over the bus.
type Colorspace struct {
	// Depth is the number of bits per pixel on the wire.
	Depth int
	// BytesPerCell is the number of bytes sharing one addressable cell
	// for sub-8-bit depths.
	BytesPerCell int
	// GrayscaleBit is the lowest luma bit kept when truncating to Depth.
	GrayscaleBit int
	// Grayscale selects luma conversion instead of RGB packing.
	Grayscale bool
	// PixelsInByteShareRow is true when horizontally adjacent pixels share
	// a byte (row-major packing); false packs vertically (page layouts).
	PixelsInByteShareRow bool
	// ReversePixelsInByte flips the pixel order within a packed byte.
	ReversePixelsInByte bool
	// ReverseBytesInWord swaps the two bytes of a 16-bit pixel.
	ReverseBytesInWord bool
	// Dither enables ordered dithering during conversion.
	Dither bool
}

// pixelsPerByte returns how many pixels share one byte, or 1 for depths
// of 8 bits and up.
func (cs *Colorspace) pixelsPerByte() int {
	if cs.Depth >= 8 {
		return 1
	}
	ppb := 8 / cs.Depth
	if cs.BytesPerCell > 1 {
		ppb *= cs.BytesPerCell
	}
	return ppb
}

// inputPixel carries a raw color and its device location (the location
// seeds the dither noise).
type inputPixel struct {
	pixel uint32
	x, y  int
}

// Shader resolves a stored pixel value to a device-native color.
// Palette and ColorConverter are the two implementations.
type Shader interface {
	getColor(cs *Colorspace, in inputPixel) (pixel uint32, opaque bool)
	needsRefresh() bool
	finishRefresh()
}

// ColorConverter converts RGB888 colors to the device colorspace on the
// fly. Unlike a Palette it holds no per-index state; TileGrids use it
// when the backing store carries raw colors instead of palette indices.
type ColorConverter struct {
	dither         bool
	transparent    uint32
	hasTransparent bool
}

// NewColorConverter returns a converter. When dither is true random noise
// is added before truncating to the display bit depth.
func NewColorConverter(dither bool) *ColorConverter {
	return &ColorConverter{dither: dither}
}

// Dither reports whether dithering is enabled.
func (c *ColorConverter) Dither() bool { return c.dither }

// SetDither enables or disables dithering.
func (c *ColorConverter) SetDither(v bool) { c.dither = v }

// MakeTransparent marks one RGB888 color as transparent. Only a single
// transparent color is supported at a time.
func (c *ColorConverter) MakeTransparent(color uint32) error {
	if c.hasTransparent {
		return errors.New("displayio: transparent color already set")
	}
	c.transparent = color & 0xFFFFFF
	c.hasTransparent = true
	return nil
}

// MakeOpaque clears the transparent color.
func (c *ColorConverter) MakeOpaque() {
	c.hasTransparent = false
}

// Convert converts an RGB888 color to RGB565. This mirrors what the
// refresh engine does for a 16-bit colorspace and is mostly useful for
// precomputing values.
func (c *ColorConverter) Convert(color uint32) uint16 {
	return computeRGB565(color)
}

func (c *ColorConverter) getColor(cs *Colorspace, in inputPixel) (uint32, bool) {
	if c.hasTransparent && in.pixel&0xFFFFFF == c.transparent {
		return 0, false
	}
	return convertColor(cs, c.dither, in), true
}

func (c *ColorConverter) needsRefresh() bool { return false }

func (c *ColorConverter) finishRefresh() {}

// convertColor maps an RGB888 color to the device-native value for cs.
func convertColor(cs *Colorspace, dither bool, in inputPixel) uint32 {
	pixel := in.pixel
	if dither {
		noise := ditherNoise2(in.x, in.y)
		pixel = addDitherNoise(cs, pixel, noise)
	}
	if cs.Grayscale && cs.Depth <= 8 {
		luma := computeLuma(pixel)
		return (luma >> uint(cs.GrayscaleBit)) & (1<<uint(cs.Depth) - 1)
	}
	switch cs.Depth {
	case 16:
		v := uint32(computeRGB565(pixel))
		if cs.ReverseBytesInWord {
			v = v>>8 | v<<8&0xFF00
		}
		return v
	default:
		// RGB888 and deeper pass through.
		return pixel
	}
}

// computeRGB565 packs 8-8-8 RGB into 5-6-5.
func computeRGB565(color uint32) uint16 {
	r := color >> 16 & 0xFF
	g := color >> 8 & 0xFF
	b := color & 0xFF
	return uint16(r&0xF8<<8 | g&0xFC<<3 | b>>3)
}

// computeLuma is the integer Rec.601-ish weighting used by the original
// converter.
func computeLuma(color uint32) uint32 {
	r := color >> 16 & 0xFF
	g := color >> 8 & 0xFF
	b := color & 0xFF
	return (r*19 + g*182 + b*54) >> 8
}

// ditherNoise1 hashes an integer into pseudo-random noise in [0, 255].
func ditherNoise1(n uint32) uint32 {
	n = n>>13 ^ n
	more := (n*(n*n*60493+19990303) + 1376312589) & 0x7FFFFFFF
	return more >> 23 & 0xFF
}

func ditherNoise2(x, y int) uint32 {
	return ditherNoise1(uint32(x) + uint32(y)*0xFFFF)
}

// addDitherNoise perturbs each channel by up to the truncation error for
// the target depth, clamping at 255.
func addDitherNoise(cs *Colorspace, color, noise uint32) uint32 {
	var rMask, gMask, bMask uint32
	if cs.Grayscale {
		m := uint32(1)<<uint(8-cs.Depth) - 1
		rMask, gMask, bMask = m, m, m
	} else {
		// RGB565 truncation error per channel.
		rMask, gMask, bMask = 0x07, 0x03, 0x07
	}
	r := min(color>>16&0xFF+noise&rMask, 0xFF)
	g := min(color>>8&0xFF+noise&gMask, 0xFF)
	b := min(color&0xFF+noise&bMask, 0xFF)
	return r<<16 | g<<8 | b
}
