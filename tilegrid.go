package displayio

import (
	"errors"
	"fmt"
)

// TileGridOpts configures a new TileGrid. Zero fields pick defaults.
type TileGridOpts struct {
	// Width and Height are the grid dimensions in tiles (default 1x1).
	Width, Height int
	// TileWidth and TileHeight are the tile dimensions in pixels; they
	// default to the full pixel source and must divide it exactly.
	TileWidth, TileHeight int
	// DefaultTile is the tile index every cell starts with.
	DefaultTile int
	// X, Y is the grid's position within its parent.
	X, Y int
}

// TileGrid positions a grid of tiles sourced from a shared pixel store
// and shaded by a Palette or ColorConverter. A 1x1 grid over the whole
// source is the common sprite case. TileGrids referencing the same
// source with different shaders render it in different colors.
type TileGrid struct {
	source PixelSource
	shader Shader

	widthTiles, heightTiles int
	tileWidth, tileHeight   int
	pixelWidth, pixelHeight int
	tiles                   []uint8

	x, y        int
	flipX       bool
	flipY       bool
	transposeXY bool
	hidden      bool
	inGroup     bool

	absolute    Transform
	currentArea Area

	moved        bool
	previousArea Area
	tilesChanged bool
	visibility   bool // pending hidden/shown flip to repaint
}

// NewTileGrid creates a tile grid over source shaded by shader.
func NewTileGrid(source PixelSource, shader Shader, opts *TileGridOpts) (*TileGrid, error) {
	if source == nil {
		return nil, errors.New("displayio: nil pixel source")
	}
	if shader == nil {
		return nil, errors.New("displayio: nil pixel shader")
	}
	if opts == nil {
		opts = &TileGridOpts{}
	}
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("displayio: grid size %dx%d invalid", width, height)
	}
	tileWidth, tileHeight := opts.TileWidth, opts.TileHeight
	if tileWidth == 0 {
		tileWidth = source.Width()
	}
	if tileHeight == 0 {
		tileHeight = source.Height()
	}
	if tileWidth < 1 || tileHeight < 1 {
		return nil, errors.New("displayio: tile dimensions must be positive")
	}
	if source.Width()%tileWidth != 0 {
		return nil, fmt.Errorf("displayio: tile width %d must exactly divide source width %d", tileWidth, source.Width())
	}
	if source.Height()%tileHeight != 0 {
		return nil, fmt.Errorf("displayio: tile height %d must exactly divide source height %d", tileHeight, source.Height())
	}
	if opts.DefaultTile < 0 || opts.DefaultTile > 255 {
		return nil, fmt.Errorf("displayio: default tile %d out of range", opts.DefaultTile)
	}
	tiles := make([]uint8, width*height)
	for i := range tiles {
		tiles[i] = uint8(opts.DefaultTile)
	}
	t := &TileGrid{
		source:      source,
		shader:      shader,
		widthTiles:  width,
		heightTiles: height,
		tileWidth:   tileWidth,
		tileHeight:  tileHeight,
		pixelWidth:  width * tileWidth,
		pixelHeight: height * tileHeight,
		tiles:       tiles,
		x:           opts.X,
		y:           opts.Y,
		absolute:    identityTransform(),
		// Paint the whole grid on its first refresh, whatever the source's
		// own damage tracking says.
		tilesChanged: true,
	}
	t.currentArea = Area{X1: 0, Y1: 0, X2: t.pixelWidth, Y2: t.pixelHeight}
	return t, nil
}

// Width returns the grid width in tiles.
func (t *TileGrid) Width() int { return t.widthTiles }

// Height returns the grid height in tiles.
func (t *TileGrid) Height() int { return t.heightTiles }

// TileWidth returns the width of one tile in pixels.
func (t *TileGrid) TileWidth() int { return t.tileWidth }

// TileHeight returns the height of one tile in pixels.
func (t *TileGrid) TileHeight() int { return t.tileHeight }

// Source returns the backing pixel source.
func (t *TileGrid) Source() PixelSource { return t.source }

// Shader returns the pixel shader.
func (t *TileGrid) PixelShader() Shader { return t.shader }

func (t *TileGrid) tileIndexAt(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= t.widthTiles || y >= t.heightTiles {
		return 0, fmt.Errorf("displayio: tile (%d,%d) out of bounds", x, y)
	}
	return y*t.widthTiles + x, nil
}

// Tile returns the tile index at grid cell (x, y).
func (t *TileGrid) Tile(x, y int) (uint8, error) {
	i, err := t.tileIndexAt(x, y)
	if err != nil {
		return 0, err
	}
	return t.tiles[i], nil
}

// SetTile assigns a tile to grid cell (x, y); the grid's device area is
// redrawn on the next refresh.
func (t *TileGrid) SetTile(x, y int, value uint8) error {
	i, err := t.tileIndexAt(x, y)
	if err != nil {
		return err
	}
	if t.tiles[i] != value {
		t.tiles[i] = value
		t.tilesChanged = true
	}
	return nil
}

// Hidden reports whether the grid is skipped during compositing.
func (t *TileGrid) Hidden() bool { return t.hidden }

// SetHidden hides or shows the grid. Either flip repaints the covered
// device area on the next refresh.
func (t *TileGrid) SetHidden(v bool) {
	if t.hidden != v {
		t.hidden = v
		t.visibility = true
	}
}

// X returns the grid's x position within its parent.
func (t *TileGrid) X() int { return t.x }

// Y returns the grid's y position within its parent.
func (t *TileGrid) Y() int { return t.y }

// SetX moves the grid horizontally within its parent.
func (t *TileGrid) SetX(value int) {
	if t.x == value {
		return
	}
	t.recordMove()
	t.x = value
	t.updateCurrentX()
}

// SetY moves the grid vertically within its parent.
func (t *TileGrid) SetY(value int) {
	if t.y == value {
		return
	}
	t.recordMove()
	t.y = value
	t.updateCurrentY()
}

// FlipX reports whether tiles render mirrored horizontally.
func (t *TileGrid) FlipX() bool { return t.flipX }

// FlipY reports whether tiles render mirrored vertically.
func (t *TileGrid) FlipY() bool { return t.flipY }

// TransposeXY reports whether the grid's axes are swapped.
func (t *TileGrid) TransposeXY() bool { return t.transposeXY }

// SetFlipX mirrors the rendered grid horizontally.
func (t *TileGrid) SetFlipX(v bool) {
	if t.flipX != v {
		t.flipX = v
		t.tilesChanged = true
	}
}

// SetFlipY mirrors the rendered grid vertically.
func (t *TileGrid) SetFlipY(v bool) {
	if t.flipY != v {
		t.flipY = v
		t.tilesChanged = true
	}
}

// SetTransposeXY swaps the grid's axes. Combined with the flips this
// reaches every 90 degree orientation of the tile artwork.
func (t *TileGrid) SetTransposeXY(v bool) {
	if t.transposeXY == v {
		return
	}
	t.recordMove()
	t.transposeXY = v
	t.updateCurrentX()
	t.updateCurrentY()
}

func (t *TileGrid) recordMove() {
	if !t.moved {
		t.previousArea = t.currentArea
		t.moved = true
	}
}

func (t *TileGrid) updateTransform(parent *Transform) {
	t.inGroup = parent != nil
	if parent == nil {
		return
	}
	t.absolute = *parent
	t.updateCurrentX()
	t.updateCurrentY()
}

// renderedWidth is the grid's pixel extent along its parent's x axis
// before the parent transform, honoring the grid's own transpose.
func (t *TileGrid) renderedWidth() int {
	if t.transposeXY {
		return t.pixelHeight
	}
	return t.pixelWidth
}

func (t *TileGrid) renderedHeight() int {
	if t.transposeXY {
		return t.pixelWidth
	}
	return t.pixelHeight
}

func (t *TileGrid) updateCurrentX() {
	width := t.renderedWidth()
	if t.absolute.TransposeXY {
		t.currentArea.Y1 = t.absolute.Y + t.absolute.DY*t.x
		t.currentArea.Y2 = t.absolute.Y + t.absolute.DY*(t.x+width)
		if t.currentArea.Y2 < t.currentArea.Y1 {
			t.currentArea.Y1, t.currentArea.Y2 = t.currentArea.Y2, t.currentArea.Y1
		}
	} else {
		t.currentArea.X1 = t.absolute.X + t.absolute.DX*t.x
		t.currentArea.X2 = t.absolute.X + t.absolute.DX*(t.x+width)
		if t.currentArea.X2 < t.currentArea.X1 {
			t.currentArea.X1, t.currentArea.X2 = t.currentArea.X2, t.currentArea.X1
		}
	}
}

func (t *TileGrid) updateCurrentY() {
	height := t.renderedHeight()
	if t.absolute.TransposeXY {
		t.currentArea.X1 = t.absolute.X + t.absolute.DX*t.y
		t.currentArea.X2 = t.absolute.X + t.absolute.DX*(t.y+height)
		if t.currentArea.X2 < t.currentArea.X1 {
			t.currentArea.X1, t.currentArea.X2 = t.currentArea.X2, t.currentArea.X1
		}
	} else {
		t.currentArea.Y1 = t.absolute.Y + t.absolute.DY*t.y
		t.currentArea.Y2 = t.absolute.Y + t.absolute.DY*(t.y+height)
		if t.currentArea.Y2 < t.currentArea.Y1 {
			t.currentArea.Y1, t.currentArea.Y2 = t.currentArea.Y2, t.currentArea.Y1
		}
	}
}

func (t *TileGrid) fillArea(cs *Colorspace, area Area, mask []uint32, buf []byte) bool {
	if t.hidden {
		return false
	}
	overlap, ok := area.Overlap(t.currentArea)
	if !ok {
		return false
	}
	full := overlap == area

	w := t.renderedWidth()
	h := t.renderedHeight()
	tileCountX := t.source.Width() / t.tileWidth
	areaWidth := area.Width()

	for devY := overlap.Y1; devY < overlap.Y2; devY++ {
		for devX := overlap.X1; devX < overlap.X2; devX++ {
			pi := (devY-area.Y1)*areaWidth + (devX - area.X1)
			if mask[pi>>5]&(1<<(uint(pi)&31)) != 0 {
				continue
			}
			// Map the device pixel back into the grid's rendered space.
			var u, v int
			if t.absolute.TransposeXY {
				u = mapAxis(devY, t.absolute.Y, t.absolute.DY) - t.x
				v = mapAxis(devX, t.absolute.X, t.absolute.DX) - t.y
			} else {
				u = mapAxis(devX, t.absolute.X, t.absolute.DX) - t.x
				v = mapAxis(devY, t.absolute.Y, t.absolute.DY) - t.y
			}
			if u < 0 || u >= w || v < 0 || v >= h {
				full = false
				continue
			}
			if t.flipX {
				u = w - 1 - u
			}
			if t.flipY {
				v = h - 1 - v
			}
			bx, by := u, v
			if t.transposeXY {
				bx, by = v, u
			}
			tile := int(t.tiles[by/t.tileHeight*t.widthTiles+bx/t.tileWidth])
			sx := tile%tileCountX*t.tileWidth + bx%t.tileWidth
			sy := tile/tileCountX*t.tileHeight + by%t.tileHeight
			value := t.source.Pixel(sx, sy)
			out, opaque := t.shader.getColor(cs, inputPixel{pixel: value, x: devX, y: devY})
			if !opaque {
				full = false
				continue
			}
			mask[pi>>5] |= 1 << (uint(pi) & 31)
			writePixel(cs, areaWidth, pi, out, buf)
		}
	}
	return full
}

func (t *TileGrid) getRefreshAreas(areas []Area) []Area {
	if t.hidden {
		if t.visibility {
			// Just hidden: repaint what the grid used to cover.
			return append(areas, t.currentArea)
		}
		return areas
	}
	if t.visibility || t.moved || t.tilesChanged || t.shader.needsRefresh() {
		a := t.currentArea
		if t.moved {
			a = a.Union(t.previousArea)
		}
		return append(areas, a)
	}
	dirty, ok := t.source.refreshArea()
	if !ok {
		return areas
	}
	// Only a 1x1 grid spanning the whole source maps source damage to a
	// device sub-rectangle; tiled layouts may repeat the damaged pixels
	// anywhere, so refresh everything.
	if t.widthTiles != 1 || t.heightTiles != 1 ||
		t.tileWidth != t.source.Width() || t.tileHeight != t.source.Height() {
		return append(areas, t.currentArea)
	}
	dirty.Canon()
	scale := t.absolute.Scale
	dirty.Scale(scale)
	whole := Area{X1: 0, Y1: 0, X2: t.pixelWidth * scale, Y2: t.pixelHeight * scale}
	mirrorX := (t.absolute.DX < 0) != t.flipX
	mirrorY := (t.absolute.DY < 0) != t.flipY
	transpose := t.absolute.TransposeXY != t.transposeXY
	mapped := TransformWithin(mirrorX, mirrorY, transpose, dirty, whole)
	mapped.Shift(t.currentArea.X1, t.currentArea.Y1)
	return append(areas, mapped)
}

func (t *TileGrid) finishRefresh() {
	t.moved = false
	t.tilesChanged = false
	t.visibility = false
	t.previousArea = Area{}
	t.source.finishRefresh()
	t.shader.finishRefresh()
}

func (t *TileGrid) attached() bool { return t.inGroup }

// writePixel packs one resolved pixel into buf, which holds a rectangle
// areaWidth pixels wide in the colorspace's byte layout. pi is the
// row-major pixel index within that rectangle.
func writePixel(cs *Colorspace, areaWidth, pi int, value uint32, buf []byte) {
	switch {
	case cs.Depth == 32:
		off := pi * 4
		buf[off] = byte(value >> 24)
		buf[off+1] = byte(value >> 16)
		buf[off+2] = byte(value >> 8)
		buf[off+3] = byte(value)
	case cs.Depth == 16:
		off := pi * 2
		buf[off] = byte(value >> 8)
		buf[off+1] = byte(value)
	case cs.Depth == 8:
		buf[pi] = byte(value)
	default:
		ppb := 8 / cs.Depth
		var byteIndex, pos int
		if cs.PixelsInByteShareRow {
			byteIndex = pi / ppb
			pos = pi % ppb
			// Row packing is MSB-first: the leftmost pixel lands in the
			// high bits, like the controller scans it.
			if !cs.ReversePixelsInByte {
				pos = ppb - 1 - pos
			}
		} else {
			rx := pi % areaWidth
			ry := pi / areaWidth
			byteIndex = ry/ppb*areaWidth + rx
			pos = ry % ppb
			// Column packing is LSB-first: the topmost pixel of a page
			// is bit 0.
			if cs.ReversePixelsInByte {
				pos = ppb - 1 - pos
			}
		}
		shift := uint(pos * cs.Depth)
		m := byte((1<<uint(cs.Depth) - 1) << shift)
		buf[byteIndex] = buf[byteIndex]&^m | byte(value<<shift)&m
	}
}
