package displayio

import (
	"sync"
	"time"
)

// noCommand marks an optional controller command as absent.
const noCommand = 0x100

// coreOpts collects the controller description shared by Display and
// EPaperDisplay constructors.
type coreOpts struct {
	bus    Bus
	width  int
	height int

	ramWidth  int
	ramHeight int
	colstart  int
	rowstart  int
	rotation  int

	colorDepth           int
	grayscale            bool
	pixelsInByteShareRow bool
	bytesPerCell         int
	reversePixelsInByte  bool
	reverseBytesInWord   bool

	columnCommand           int
	rowCommand              int
	setCurrentColumnCommand int
	setCurrentRowCommand    int
	dataAsCommands          bool
	alwaysToggleChipSelect  bool
	sh1107Addressing        bool
	addressLittleEndian     bool
}

// core holds the bus plumbing and scene-graph root shared by the display
// types: the colorspace, the display-relative transform for the current
// rotation, and the addressing-window protocol.
type core struct {
	bus        Bus
	colorspace Colorspace

	width     int
	height    int
	ramWidth  int
	ramHeight int
	colstart  int
	rowstart  int
	rotation  int

	columnCommand           int
	rowCommand              int
	setCurrentColumnCommand int
	setCurrentRowCommand    int
	dataAsCommands          bool
	alwaysToggleChipSelect  bool
	sh1107Addressing        bool
	addressLittleEndian     bool

	mu                sync.Mutex
	currentGroup      *Group
	fullRefresh       bool
	refreshInProgress bool
	lastRefresh       time.Time

	area      Area
	transform Transform
}

func newCore(o coreOpts) *core {
	bytesPerCell := o.bytesPerCell
	if bytesPerCell == 0 {
		bytesPerCell = 1
	}
	c := &core{
		bus: o.bus,
		colorspace: Colorspace{
			Depth:                o.colorDepth,
			BytesPerCell:         bytesPerCell,
			GrayscaleBit:         8 - o.colorDepth,
			Grayscale:            o.grayscale,
			PixelsInByteShareRow: o.pixelsInByteShareRow,
			ReversePixelsInByte:  o.reversePixelsInByte,
			ReverseBytesInWord:   o.reverseBytesInWord,
		},
		width:                   o.width,
		height:                  o.height,
		ramWidth:                o.ramWidth,
		ramHeight:               o.ramHeight,
		colstart:                o.colstart,
		rowstart:                o.rowstart,
		columnCommand:           o.columnCommand,
		rowCommand:              o.rowCommand,
		setCurrentColumnCommand: o.setCurrentColumnCommand,
		setCurrentRowCommand:    o.setCurrentRowCommand,
		dataAsCommands:          o.dataAsCommands,
		alwaysToggleChipSelect:  o.alwaysToggleChipSelect,
		sh1107Addressing:        o.sh1107Addressing,
		addressLittleEndian:     o.addressLittleEndian,
		area:                    Area{X1: 0, Y1: 0, X2: o.width, Y2: o.height},
		transform:               identityTransform(),
	}
	c.setRotation(o.rotation)
	return c
}

// setRotation reorients the display in 90 degree steps. Transposed
// rotations swap the reported width and height; the root transform is
// rebuilt so group coordinates keep their meaning.
func (c *core) setRotation(rotation int) {
	transposed := c.rotation == 90 || c.rotation == 270
	willBeTransposed := rotation == 90 || rotation == 270
	if transposed != willBeTransposed {
		c.width, c.height = c.height, c.width
	}

	rotation %= 360
	c.rotation = rotation
	c.transform = identityTransform()

	switch rotation {
	case 180:
		c.transform.MirrorX = true
		c.transform.MirrorY = true
	case 90:
		c.transform.TransposeXY = true
		c.transform.MirrorX = true
	case 270:
		c.transform.TransposeXY = true
		c.transform.MirrorY = true
	}

	width, height := c.width, c.height
	c.area = Area{X1: 0, Y1: 0, X2: width, Y2: height}
	if c.transform.TransposeXY {
		c.area.X2 = height
		c.area.Y2 = width
		if c.transform.MirrorX {
			c.transform.X = height
			c.transform.DX = -1
		}
		if c.transform.MirrorY {
			c.transform.Y = width
			c.transform.DY = -1
		}
	} else {
		if c.transform.MirrorX {
			c.transform.X = width
			c.transform.DX = -1
		}
		if c.transform.MirrorY {
			c.transform.Y = height
			c.transform.DY = -1
		}
	}

	if c.currentGroup != nil {
		c.currentGroup.updateTransform(&c.transform)
	}
}

// show switches to compositing the given group. Showing the group that is
// already current is a no-op; a group attached elsewhere is rejected.
func (c *core) show(root *Group) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if root == c.currentGroup {
		return nil
	}
	if root != nil && root.attached() {
		return ErrLayerInGroup
	}
	if c.currentGroup != nil {
		c.currentGroup.inGroup = false
	}
	if root != nil {
		root.updateTransform(&c.transform)
		root.inGroup = true
	}
	c.currentGroup = root
	c.fullRefresh = true
	return nil
}

// release detaches the current group without showing another one.
func (c *core) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentGroup != nil {
		c.currentGroup.inGroup = false
		c.currentGroup = nil
	}
}

// startRefresh marks a refresh as in progress; it reports false when one
// already is.
func (c *core) startRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshInProgress {
		return false
	}
	c.refreshInProgress = true
	c.lastRefresh = time.Now()
	return true
}

// finishRefresh clears per-refresh damage throughout the scene graph.
func (c *core) finishRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentGroup != nil {
		c.currentGroup.finishRefresh()
	}
	c.fullRefresh = false
	c.refreshInProgress = false
	c.lastRefresh = time.Now()
}

// lastRefreshTime returns when the last refresh pass started or
// completed, whichever is more recent.
func (c *core) lastRefreshTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefresh
}

// getRefreshAreas collects the damage rectangles for this refresh: the
// whole display right after show or rotation, otherwise whatever the
// scene graph reports.
func (c *core) getRefreshAreas() []Area {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fullRefresh {
		return []Area{c.area}
	}
	if c.currentGroup != nil {
		return c.currentGroup.getRefreshAreas(nil)
	}
	return nil
}

func (c *core) fillArea(area Area, mask []uint32, buf []byte) bool {
	if c.currentGroup == nil {
		return false
	}
	return c.currentGroup.fillArea(&c.colorspace, area, mask, buf)
}

// clipArea intersects area with the display bounds and, for sub-8-bit
// depths, expands the packed axis outward to whole shared bytes so the
// buffer never straddles a partial byte.
func (c *core) clipArea(area Area) (Area, bool) {
	clipped, ok := c.area.Overlap(area)
	if !ok {
		return Area{}, false
	}
	if c.colorspace.Depth < 8 {
		ppb := 8 / c.colorspace.Depth * c.colorspace.BytesPerCell
		if c.colorspace.PixelsInByteShareRow {
			if clipped.X1%ppb != 0 {
				clipped.X1 -= clipped.X1 % ppb
			}
			if clipped.X2%ppb != 0 {
				clipped.X2 += ppb - clipped.X2%ppb
			}
		} else {
			if clipped.Y1%ppb != 0 {
				clipped.Y1 -= clipped.Y1 % ppb
			}
			if clipped.Y2%ppb != 0 {
				clipped.Y2 += ppb - clipped.Y2%ppb
			}
		}
	}
	return clipped, true
}

// setRegionToUpdate programs the controller's addressing window for the
// given area. Bounds are inclusive on the wire even though Area is
// half-open.
func (c *core) setRegionToUpdate(area Area) error {
	x1 := area.X1 + c.colstart
	x2 := area.X2 + c.colstart
	y1 := area.Y1 + c.rowstart
	y2 := area.Y2 + c.rowstart

	// Collapse the packed axis to byte addresses.
	if c.colorspace.Depth < 8 {
		ppb := 8 / c.colorspace.Depth * c.colorspace.BytesPerCell
		if c.colorspace.PixelsInByteShareRow {
			x1 /= ppb
			x2 /= ppb
		} else {
			y1 /= ppb
			y2 /= ppb
		}
	}
	x2--
	y2--

	chipSelect := ChipSelectUntouched
	if c.alwaysToggleChipSelect || c.dataAsCommands {
		chipSelect = ChipSelectToggleEveryByte
	}
	dataType := SendData
	if c.dataAsCommands {
		dataType = SendCommand
	}

	for !c.bus.BeginTransaction() {
		time.Sleep(time.Millisecond)
	}
	defer c.bus.EndTransaction()

	if err := c.sendBound(c.columnCommand, c.setCurrentColumnCommand, dataType, chipSelect,
		x1, x2, c.ramWidth, c.sh1107ColumnBytes(x1)); err != nil {
		return err
	}
	return c.sendBound(c.rowCommand, c.setCurrentRowCommand, dataType, chipSelect,
		y1, y2, c.ramHeight, c.sh1107PageBytes(y1))
}

// sh1107ColumnBytes returns the two nibble commands that set the current
// column on an SH1107, or nil when the quirk is off.
func (c *core) sh1107ColumnBytes(x1 int) []byte {
	if !c.sh1107Addressing {
		return nil
	}
	return []byte{byte(x1>>4&0x0F) | 0x10, byte(x1 & 0x0F)}
}

// sh1107PageBytes returns the single command that selects the current
// page on an SH1107, or nil when the quirk is off.
func (c *core) sh1107PageBytes(y1 int) []byte {
	if !c.sh1107Addressing {
		return nil
	}
	return []byte{0xB0 | byte(y1&0x0F)}
}

// sendBound writes one axis of the addressing window. sh1107 overrides
// the normal window command with the quirk bytes when non-nil.
func (c *core) sendBound(command, setCurrentCommand int, dataType SendKind, chipSelect ChipSelect,
	lo, hi, ramSize int, sh1107 []byte) error {
	if sh1107 != nil {
		return c.bus.Send(SendCommand, chipSelect, sh1107)
	}
	// Panels without a window command stream from a fixed origin.
	if command == noCommand {
		return nil
	}

	data := make([]byte, 0, 5)
	if !c.dataAsCommands {
		if err := c.bus.Send(SendCommand, ChipSelectToggleEveryByte, []byte{byte(command)}); err != nil {
			return err
		}
	} else {
		data = append(data, byte(command))
	}
	if ramSize < 0x100 {
		data = append(data, byte(lo), byte(hi))
	} else if c.addressLittleEndian {
		data = append(data, byte(lo), byte(lo>>8), byte(hi), byte(hi>>8))
	} else {
		data = append(data, byte(lo>>8), byte(lo), byte(hi>>8), byte(hi))
	}
	if err := c.bus.Send(dataType, chipSelect, data); err != nil {
		return err
	}

	// Controllers with a separate "current position" register get the
	// first coordinate replayed through it.
	if setCurrentCommand != noCommand {
		if err := c.bus.Send(SendCommand, chipSelect, []byte{byte(setCurrentCommand)}); err != nil {
			return err
		}
		if err := c.bus.Send(SendData, chipSelect, data[:len(data)/2]); err != nil {
			return err
		}
	}
	return nil
}

func (c *core) Width() int    { return c.width }
func (c *core) Height() int   { return c.height }
func (c *core) Rotation() int { return c.rotation }
