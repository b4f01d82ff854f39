package displayio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTileGridValidation(t *testing.T) {
	source, err := NewBitmap(64, 64, 4)
	require.NoError(t, err)
	palette, err := NewPalette(4)
	require.NoError(t, err)

	// Tile dimensions must divide the source exactly.
	_, err = NewTileGrid(source, palette, &TileGridOpts{TileWidth: 10, TileHeight: 8})
	assert.Error(t, err)
	_, err = NewTileGrid(source, palette, &TileGridOpts{TileWidth: 16, TileHeight: 16})
	assert.NoError(t, err)

	_, err = NewTileGrid(nil, palette, nil)
	assert.Error(t, err)
	_, err = NewTileGrid(source, nil, nil)
	assert.Error(t, err)
	_, err = NewTileGrid(source, palette, &TileGridOpts{DefaultTile: 300})
	assert.Error(t, err)
}

func TestTileGridDefaultsToWholeSource(t *testing.T) {
	source, err := NewBitmap(12, 9, 2)
	require.NoError(t, err)
	palette, err := NewPalette(2)
	require.NoError(t, err)
	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, grid.Width())
	assert.Equal(t, 1, grid.Height())
	assert.Equal(t, 12, grid.TileWidth())
	assert.Equal(t, 9, grid.TileHeight())
}

func TestTileGridTileIndexing(t *testing.T) {
	source, err := NewBitmap(16, 16, 4)
	require.NoError(t, err)
	palette, err := NewPalette(4)
	require.NoError(t, err)
	grid, err := NewTileGrid(source, palette, &TileGridOpts{
		Width: 3, Height: 2, TileWidth: 4, TileHeight: 4, DefaultTile: 5,
	})
	require.NoError(t, err)

	v, err := grid.Tile(2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), v)

	require.NoError(t, grid.SetTile(1, 0, 9))
	v, err = grid.Tile(1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), v)

	_, err = grid.Tile(3, 0)
	assert.Error(t, err)
	assert.Error(t, grid.SetTile(0, 2, 1))
}

// renderGrid composites the grid over its own device area and returns the
// packed buffer.
func renderGrid(t *testing.T, grid *TileGrid, cs *Colorspace) ([]byte, bool) {
	t.Helper()
	area := grid.currentArea
	size := area.Size()
	bytesPerPixel := cs.Depth / 8
	if bytesPerPixel == 0 {
		bytesPerPixel = 1
	}
	buf := make([]byte, size*bytesPerPixel)
	mask := make([]uint32, size/32+1)
	full := grid.fillArea(cs, area, mask, buf)
	return buf, full
}

func TestTileGridFillArea(t *testing.T) {
	source, err := NewBitmap(4, 4, 2)
	require.NoError(t, err)
	require.NoError(t, source.SetPixel(1, 0, 1))
	palette, err := NewPalette(2)
	require.NoError(t, err)
	palette.SetColor(0, 0x000000)
	palette.SetColor(1, 0xFFFFFF)

	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)
	root := identityTransform()
	grid.updateTransform(&root)

	cs := &Colorspace{Depth: 16}
	buf, full := renderGrid(t, grid, cs)
	assert.True(t, full, "opaque palette must cover the area")

	// Pixel (1,0) is white, its neighbors black.
	assert.Equal(t, []byte{0xFF, 0xFF}, buf[2:4])
	assert.Equal(t, []byte{0x00, 0x00}, buf[0:2])
	assert.Equal(t, []byte{0x00, 0x00}, buf[4:6])
}

func TestTileGridFillAreaTileLookup(t *testing.T) {
	// A 2x1 source holding two 1x1 tiles: tile 0 black, tile 1 white.
	source, err := NewBitmap(2, 1, 2)
	require.NoError(t, err)
	require.NoError(t, source.SetPixel(1, 0, 1))
	palette, err := NewPalette(2)
	require.NoError(t, err)
	palette.SetColor(1, 0xFFFFFF)

	grid, err := NewTileGrid(source, palette, &TileGridOpts{
		Width: 2, Height: 2, TileWidth: 1, TileHeight: 1,
	})
	require.NoError(t, err)
	require.NoError(t, grid.SetTile(0, 0, 1))
	require.NoError(t, grid.SetTile(1, 1, 1))
	root := identityTransform()
	grid.updateTransform(&root)

	cs := &Colorspace{Depth: 8, Grayscale: true, GrayscaleBit: 0}
	buf, _ := renderGrid(t, grid, cs)
	assert.Equal(t, []byte{0xFE, 0x00, 0x00, 0xFE}, buf)
}

func TestTileGridTransparencyExposesLowerLayer(t *testing.T) {
	lower, err := NewBitmap(2, 2, 2)
	require.NoError(t, err)
	require.NoError(t, lower.Fill(1))
	lowerPalette, err := NewPalette(2)
	require.NoError(t, err)
	lowerPalette.SetColor(1, 0xFFFFFF)
	lowerGrid, err := NewTileGrid(lower, lowerPalette, nil)
	require.NoError(t, err)

	upper, err := NewBitmap(2, 2, 2)
	require.NoError(t, err)
	require.NoError(t, upper.SetPixel(0, 0, 1))
	upperPalette, err := NewPalette(2)
	require.NoError(t, err)
	upperPalette.SetColor(1, 0x000000)
	require.NoError(t, upperPalette.MakeTransparent(0))
	upperGrid, err := NewTileGrid(upper, upperPalette, nil)
	require.NoError(t, err)

	g, err := NewGroup(nil)
	require.NoError(t, err)
	require.NoError(t, g.Append(lowerGrid))
	require.NoError(t, g.Append(upperGrid))
	root := identityTransform()
	g.updateTransform(&root)

	cs := &Colorspace{Depth: 8, Grayscale: true, GrayscaleBit: 0}
	area := NewArea(0, 0, 2, 2)
	buf := make([]byte, 4)
	mask := make([]uint32, 1)
	full := g.fillArea(cs, area, mask, buf)
	assert.True(t, full)

	// Upper grid's (0,0) is opaque black; everywhere else the lower
	// white layer shows through its transparency.
	assert.Equal(t, []byte{0x00, 0xFE, 0xFE, 0xFE}, buf)
}

func TestTileGridFlipX(t *testing.T) {
	source, err := NewBitmap(2, 1, 2)
	require.NoError(t, err)
	require.NoError(t, source.SetPixel(0, 0, 1))
	palette, err := NewPalette(2)
	require.NoError(t, err)
	palette.SetColor(1, 0xFFFFFF)

	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)
	root := identityTransform()
	grid.updateTransform(&root)
	grid.SetFlipX(true)

	cs := &Colorspace{Depth: 8, Grayscale: true, GrayscaleBit: 0}
	buf, _ := renderGrid(t, grid, cs)
	assert.Equal(t, []byte{0x00, 0xFE}, buf)
}

func TestTileGridDamageMapping(t *testing.T) {
	source, err := NewBitmap(32, 32, 4)
	require.NoError(t, err)
	palette, err := NewPalette(4)
	require.NoError(t, err)
	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)
	root := identityTransform()
	grid.updateTransform(&root)

	// The first refresh covers everything.
	areas := grid.getRefreshAreas(nil)
	require.Len(t, areas, 1)
	assert.Equal(t, NewArea(0, 0, 32, 32), areas[0])
	grid.finishRefresh()

	// A single source write maps to a single device pixel.
	require.NoError(t, source.SetPixel(5, 5, 3))
	areas = grid.getRefreshAreas(nil)
	require.Len(t, areas, 1)
	assert.Equal(t, NewArea(5, 5, 6, 6), areas[0])
	grid.finishRefresh()

	// Moving repaints the union of the old and new footprints.
	grid.SetX(10)
	areas = grid.getRefreshAreas(nil)
	require.Len(t, areas, 1)
	assert.Equal(t, NewArea(0, 0, 42, 32), areas[0])
}

func TestTileGridDamageMirrored(t *testing.T) {
	source, err := NewBitmap(8, 8, 2)
	require.NoError(t, err)
	palette, err := NewPalette(2)
	require.NoError(t, err)
	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)

	// Rotation 180: both axes step backwards from (8,8).
	parent := Transform{X: 8, Y: 8, DX: -1, DY: -1, Scale: 1, MirrorX: true, MirrorY: true}
	grid.updateTransform(&parent)
	assert.Equal(t, NewArea(0, 0, 8, 8), grid.currentArea)
	grid.finishRefresh()

	require.NoError(t, source.SetPixel(1, 2, 1))
	areas := grid.getRefreshAreas(nil)
	require.Len(t, areas, 1)
	assert.Equal(t, NewArea(6, 5, 7, 6), areas[0])
}

func TestTileGridHiddenRepaint(t *testing.T) {
	source, err := NewBitmap(4, 4, 2)
	require.NoError(t, err)
	palette, err := NewPalette(2)
	require.NoError(t, err)
	grid, err := NewTileGrid(source, palette, nil)
	require.NoError(t, err)
	root := identityTransform()
	grid.updateTransform(&root)
	grid.finishRefresh()

	// Hiding reports the vacated area once, then goes quiet.
	grid.SetHidden(true)
	areas := grid.getRefreshAreas(nil)
	require.Len(t, areas, 1)
	assert.Equal(t, NewArea(0, 0, 4, 4), areas[0])
	grid.finishRefresh()
	assert.Empty(t, grid.getRefreshAreas(nil))

	// While hidden, fillArea paints nothing.
	cs := &Colorspace{Depth: 8, Grayscale: true, GrayscaleBit: 0}
	buf := make([]byte, 16)
	mask := make([]uint32, 1)
	assert.False(t, grid.fillArea(cs, grid.currentArea, mask, buf))
}
