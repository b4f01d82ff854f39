package displayio

import (
	"errors"
	"fmt"
	"sync"
)

// ErrReadOnly is returned by writes to a read-only pixel store.
var ErrReadOnly = errors.New("displayio: read-only")

// Bitmap stores small integer values in a packed 2D array. Each value is
// a palette index (or raw color for the deeper formats); value_count at
// construction picks the smallest supported bits-per-value. Every write
// extends the dirty area so a later refresh knows the minimal rectangle
// to redraw.
//
// A Bitmap may be shared between TileGrids. Writes and the refresh
// engine's damage-read-and-clear are serialized by an internal lock so a
// concurrent refresh never observes a half-recorded damage rectangle.
type Bitmap struct {
	mu           sync.Mutex
	width        int
	height       int
	bitsPerValue int
	wordsPerRow  int
	data         []uint32
	readOnly     bool
	dirty        Area
}

// NewBitmap creates a width x height bitmap able to store values in
// [0, valueCount). bitsPerValue is the smallest of 1, 2, 4, 8, 16 or 32
// that holds valueCount-1; other widths are unsupported.
//
// The new bitmap starts fully dirty so an initial refresh paints it.
func NewBitmap(width, height, valueCount int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("displayio: bitmap dimensions must be positive")
	}
	if valueCount <= 0 {
		return nil, errors.New("displayio: value count must be > 0")
	}
	bits := 1
	for (valueCount-1)>>bits != 0 {
		if bits < 8 {
			bits <<= 1
		} else {
			bits += 8
		}
	}
	if bits == 24 {
		// There is no 24-bit packing; promote to full words.
		bits = 32
	}
	if bits > 8 && bits != 16 && bits != 32 {
		return nil, fmt.Errorf("displayio: unsupported bits per value %d", bits)
	}
	wordsPerRow := (width*bits + 31) / 32
	return &Bitmap{
		width:        width,
		height:       height,
		bitsPerValue: bits,
		wordsPerRow:  wordsPerRow,
		data:         make([]uint32, wordsPerRow*height),
		dirty:        Area{X1: 0, Y1: 0, X2: width, Y2: height},
	}, nil
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.height }

// BitsPerValue returns the storage width of a single value.
func (b *Bitmap) BitsPerValue() int { return b.bitsPerValue }

func (b *Bitmap) locate(x, y int) (word int, shift uint, mask uint32) {
	bits := uint(b.bitsPerValue)
	bitIndex := uint(x) * bits
	word = y*b.wordsPerRow + int(bitIndex/32)
	// Values are packed MSB-first within a word so that the byte order of
	// the backing store matches the scan order of the row.
	shift = 32 - bits - (bitIndex % 32)
	if bits == 32 {
		return word, 0, 0xFFFFFFFF
	}
	return word, shift, (1<<bits - 1) << shift
}

// Pixel returns the value at (x, y). Out-of-bounds reads return 0.
func (b *Bitmap) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	word, shift, mask := b.locate(x, y)
	return (b.data[word] & mask) >> shift
}

// SetPixel writes value at (x, y) and grows the dirty area to cover the
// write. Values wider than bitsPerValue are truncated.
func (b *Bitmap) SetPixel(x, y int, value uint32) error {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return fmt.Errorf("displayio: pixel (%d,%d) out of range", x, y)
	}
	if b.readOnly {
		return ErrReadOnly
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	word, shift, mask := b.locate(x, y)
	b.data[word] = b.data[word]&^mask | value<<shift&mask
	b.extendDirty(x, y)
	return nil
}

// extendDirty must be called with the lock held.
func (b *Bitmap) extendDirty(x, y int) {
	if b.dirty.X1 == b.dirty.X2 {
		b.dirty = Area{X1: x, Y1: y, X2: x + 1, Y2: y + 1}
		return
	}
	if x < b.dirty.X1 {
		b.dirty.X1 = x
	} else if x >= b.dirty.X2 {
		b.dirty.X2 = x + 1
	}
	if y < b.dirty.Y1 {
		b.dirty.Y1 = y
	} else if y >= b.dirty.Y2 {
		b.dirty.Y2 = y + 1
	}
}

// Fill sets every pixel to value and marks the whole bitmap dirty.
func (b *Bitmap) Fill(value uint32) error {
	if b.readOnly {
		return ErrReadOnly
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	// Replicate the packed value across a full word, then block-fill.
	word := value
	if b.bitsPerValue < 32 {
		word &= 1<<uint(b.bitsPerValue) - 1
		for shift := uint(b.bitsPerValue); shift < 32; shift <<= 1 {
			word |= word << shift
		}
	}
	for i := range b.data {
		b.data[i] = word
	}
	b.dirty = Area{X1: 0, Y1: 0, X2: b.width, Y2: b.height}
	return nil
}

// Blit copies the region [x1,y1)-(x2,y2) of src to (x, y). Pixels whose
// source value equals skipIndex are left untouched; pass a negative
// skipIndex to copy everything. The copied region is clipped to both
// bitmaps and recorded as dirty in one step.
func (b *Bitmap) Blit(x, y int, src *Bitmap, x1, y1, x2, y2 int, skipIndex int) error {
	if b.readOnly {
		return ErrReadOnly
	}
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	x1 = max(x1, 0)
	y1 = max(y1, 0)
	x2 = min(x2, src.width)
	y2 = min(y2, src.height)
	for sy := y1; sy < y2; sy++ {
		dy := y + sy - y1
		if dy < 0 || dy >= b.height {
			continue
		}
		for sx := x1; sx < x2; sx++ {
			dx := x + sx - x1
			if dx < 0 || dx >= b.width {
				continue
			}
			v := src.Pixel(sx, sy)
			if skipIndex >= 0 && v == uint32(skipIndex) {
				continue
			}
			if err := b.SetPixel(dx, dy, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// refreshArea implements PixelSource.
func (b *Bitmap) refreshArea() (Area, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dirty.Empty() {
		return Area{}, false
	}
	return b.dirty, true
}

// finishRefresh implements PixelSource: the pending damage was streamed
// to the device, reset the tracker to its empty sentinel.
func (b *Bitmap) finishRefresh() {
	b.mu.Lock()
	b.dirty = Area{}
	b.mu.Unlock()
}
