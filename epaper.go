package displayio

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ErrRefreshTooSoon is reported by EPaperDisplay.Refresh when the panel
// has not rested for its minimum seconds-per-frame interval yet.
var ErrRefreshTooSoon = errors.New("displayio: refresh too soon")

// EPaperDisplayOpts is the configuration for an EPaperDisplay.
type EPaperDisplayOpts struct {
	// Display dimensions in pixels.
	Width  int
	Height int
	// RAM dimensions in pixels.
	RAMWidth  int
	RAMHeight int

	// Colstart and Rowstart offset the pixel window within the
	// controller RAM.
	Colstart int
	Rowstart int
	// Rotation in degrees (0, 90, 180 or 270).
	Rotation int

	// SetColumnWindowCommand and SetRowWindowCommand program the update
	// window (0 = controller has none).
	SetColumnWindowCommand int
	SetRowWindowCommand    int
	// SetCurrentColumnCommand and SetCurrentRowCommand position the RAM
	// pointer at the window origin (0 = none).
	SetCurrentColumnCommand int
	SetCurrentRowCommand    int

	// WriteBlackRAMCommand starts a write of the black plane.
	WriteBlackRAMCommand int
	// BlackBitsInverted is true when 0 bits show black.
	BlackBitsInverted bool
	// WriteColorRAMCommand starts a write of the second plane
	// (0 = single-plane panel).
	WriteColorRAMCommand int
	// ColorBitsInverted is true when 0 bits show the color.
	ColorBitsInverted bool
	// Grayscale marks the color plane as the low bit of 2-bit gray.
	Grayscale bool

	// RefreshDisplayCommand triggers the panel update.
	RefreshDisplayCommand int
	// RefreshTime is how long an update takes when no busy pin is wired
	// (default: 40s).
	RefreshTime time.Duration
	// BusyPin signals an update in progress (optional, nil if not used).
	BusyPin gpio.PinIO
	// BusyState is the pin level meaning busy (default: high... set
	// BusyStateLow for active-low panels).
	BusyStateLow bool
	// SecondsPerFrame is the minimum interval between refreshes
	// (default: 180s).
	SecondsPerFrame time.Duration

	// AlwaysToggleChipSelect toggles CS around every byte.
	AlwaysToggleChipSelect bool
	// AddressLittleEndian sends 16-bit window bounds low byte first.
	AddressLittleEndian bool
}

// EPaperDisplay manages an e-ink panel: the same scene-graph compositing
// as Display, but refreshes are explicit, whole-panel, and throttled to
// the panel's minimum frame interval. The start and stop sequences are
// bit-packed like Display init sequences and bracket every refresh,
// since most panels must be powered down between updates.
type EPaperDisplay struct {
	core *core

	startSequence []byte
	stopSequence  []byte

	writeBlackRAMCommand  int
	blackBitsInverted     bool
	writeColorRAMCommand  int
	colorBitsInverted     bool
	grayscale             bool
	refreshDisplayCommand int

	refreshTime     time.Duration
	busy            gpio.PinIO
	busyLevel       gpio.Level
	secondsPerFrame time.Duration
}

// NewEPaperDisplay creates an e-paper display on bus. The start sequence
// is not sent until the first Refresh.
func NewEPaperDisplay(bus Bus, startSequence, stopSequence []byte, opts *EPaperDisplayOpts) (*EPaperDisplay, error) {
	if bus == nil {
		return nil, errors.New("displayio: nil bus")
	}
	if opts == nil {
		return nil, errors.New("displayio: epaper options required")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("displayio: display dimensions %dx%d invalid", opts.Width, opts.Height)
	}
	if opts.WriteBlackRAMCommand == 0 {
		return nil, errors.New("displayio: write black ram command required")
	}
	if opts.RefreshDisplayCommand == 0 {
		return nil, errors.New("displayio: refresh display command required")
	}
	switch opts.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("displayio: rotation must be a multiple of 90, got %d", opts.Rotation)
	}

	columnCommand := noCommand
	if opts.SetColumnWindowCommand != 0 {
		columnCommand = opts.SetColumnWindowCommand
	}
	rowCommand := noCommand
	if opts.SetRowWindowCommand != 0 {
		rowCommand = opts.SetRowWindowCommand
	}
	setColumn := noCommand
	if opts.SetCurrentColumnCommand != 0 {
		setColumn = opts.SetCurrentColumnCommand
	}
	setRow := noCommand
	if opts.SetCurrentRowCommand != 0 {
		setRow = opts.SetCurrentRowCommand
	}
	writeColor := noCommand
	if opts.WriteColorRAMCommand != 0 {
		writeColor = opts.WriteColorRAMCommand
	}
	refreshTime := opts.RefreshTime
	if refreshTime == 0 {
		refreshTime = 40 * time.Second
	}
	secondsPerFrame := opts.SecondsPerFrame
	if secondsPerFrame == 0 {
		secondsPerFrame = 180 * time.Second
	}

	d := &EPaperDisplay{
		core: newCore(coreOpts{
			bus:       bus,
			width:     opts.Width,
			height:    opts.Height,
			ramWidth:  opts.RAMWidth,
			ramHeight: opts.RAMHeight,
			colstart:  opts.Colstart,
			rowstart:  opts.Rowstart,
			rotation:  opts.Rotation,

			// E-paper planes are 1-bit luma, eight row-adjacent pixels
			// packed per byte, MSB first.
			colorDepth:           1,
			grayscale:            true,
			pixelsInByteShareRow: true,

			columnCommand:           columnCommand,
			rowCommand:              rowCommand,
			setCurrentColumnCommand: setColumn,
			setCurrentRowCommand:    setRow,
			alwaysToggleChipSelect:  opts.AlwaysToggleChipSelect,
			addressLittleEndian:     opts.AddressLittleEndian,
		}),
		startSequence:         startSequence,
		stopSequence:          stopSequence,
		writeBlackRAMCommand:  opts.WriteBlackRAMCommand,
		blackBitsInverted:     opts.BlackBitsInverted,
		writeColorRAMCommand:  writeColor,
		colorBitsInverted:     opts.ColorBitsInverted,
		grayscale:             opts.Grayscale,
		refreshDisplayCommand: opts.RefreshDisplayCommand,
		refreshTime:           refreshTime,
		busy:                  opts.BusyPin,
		busyLevel:             gpio.Level(!opts.BusyStateLow),
		secondsPerFrame:       secondsPerFrame,
	}
	// Black plane reads the top luma bit.
	d.core.colorspace.GrayscaleBit = 7
	return d, nil
}

// Show switches to compositing the given group.
func (d *EPaperDisplay) Show(group *Group) error {
	if group == nil {
		d.core.release()
		return nil
	}
	return d.core.show(group)
}

// TimeToRefresh returns how long until Refresh may run again; zero means
// it can run now.
func (d *EPaperDisplay) TimeToRefresh() time.Duration {
	last := d.core.lastRefreshTime()
	if last.IsZero() {
		return 0
	}
	remaining := d.secondsPerFrame - time.Since(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Refresh repaints the whole panel. It fails with ErrRefreshTooSoon when
// called before TimeToRefresh has elapsed; sleep that long and retry.
func (d *EPaperDisplay) Refresh() error {
	if d.TimeToRefresh() > 0 {
		return ErrRefreshTooSoon
	}
	if !d.core.startRefresh() {
		return nil
	}
	defer d.core.finishRefresh()

	if err := d.runSequence(d.startSequence); err != nil {
		return err
	}
	if err := d.writePlanes(); err != nil {
		return err
	}
	if err := d.sendCommand(byte(d.refreshDisplayCommand), nil); err != nil {
		return err
	}
	d.waitForUpdate()
	return d.runSequence(d.stopSequence)
}

// writePlanes streams the black plane and, when the panel has one, the
// color plane. Panels refresh whole, so the damage rectangles are
// ignored and the full area is rendered.
func (d *EPaperDisplay) writePlanes() error {
	if err := d.writePlane(byte(d.writeBlackRAMCommand), 7, d.blackBitsInverted); err != nil {
		return err
	}
	if d.writeColorRAMCommand == noCommand {
		return nil
	}
	bit := 7
	if d.grayscale {
		// Color plane carries the low bit of 2-bit gray.
		bit = 6
	}
	return d.writePlane(byte(d.writeColorRAMCommand), bit, d.colorBitsInverted)
}

func (d *EPaperDisplay) writePlane(ramCommand byte, grayscaleBit int, inverted bool) error {
	d.core.colorspace.GrayscaleBit = grayscaleBit

	area := d.core.area
	width := area.Width()
	ppb := 8 / d.core.colorspace.Depth
	rowsPerBuffer := refreshBufferWords * 32 / d.core.colorspace.Depth / width
	if rowsPerBuffer == 0 {
		rowsPerBuffer = 1
	}
	if rowsPerBuffer%ppb != 0 && rowsPerBuffer > ppb {
		rowsPerBuffer -= rowsPerBuffer % ppb
	}

	if err := d.core.setRegionToUpdate(area); err != nil {
		return err
	}
	if err := d.sendCommand(ramCommand, nil); err != nil {
		return err
	}

	buf := make([]byte, rowsPerBuffer*width/ppb+1)
	mask := make([]uint32, rowsPerBuffer*width/32+1)
	for y := area.Y1; y < area.Y2; y += rowsPerBuffer {
		band := Area{X1: area.X1, Y1: y, X2: area.X2, Y2: min(y+rowsPerBuffer, area.Y2)}
		sizeBytes := band.Size() / ppb
		clear(buf)
		clear(mask)
		d.core.fillArea(band, mask, buf)
		if inverted {
			for i := range buf[:sizeBytes] {
				buf[i] = ^buf[i]
			}
		}
		if err := d.sendData(buf[:sizeBytes]); err != nil {
			return err
		}
	}
	return nil
}

// waitForUpdate blocks until the busy pin deasserts, or for the panel's
// nominal refresh time when no pin is wired.
func (d *EPaperDisplay) waitForUpdate() {
	if d.busy == nil {
		time.Sleep(d.refreshTime)
		return
	}
	for d.busy.Read() == d.busyLevel {
		time.Sleep(10 * time.Millisecond)
	}
}

// runSequence interprets a bit-packed command sequence, same format as
// Display init sequences.
func (d *EPaperDisplay) runSequence(sequence []byte) error {
	i := 0
	for i < len(sequence) {
		if i+1 >= len(sequence) {
			return errors.New("displayio: truncated command sequence")
		}
		command := sequence[i]
		dataSize := int(sequence[i+1])
		delay := dataSize&0x80 != 0
		dataSize &= 0x7F
		if i+2+dataSize > len(sequence) {
			return errors.New("displayio: truncated command sequence")
		}
		if err := d.sendCommand(command, sequence[i+2:i+2+dataSize]); err != nil {
			return fmt.Errorf("displayio: command %#02x: %w", command, err)
		}
		delayTime := 10 * time.Millisecond
		if delay {
			dataSize++
			if i+1+dataSize >= len(sequence) {
				return errors.New("displayio: truncated command sequence")
			}
			ms := int(sequence[i+1+dataSize])
			if ms == 255 {
				ms = 500
			}
			delayTime = time.Duration(ms) * time.Millisecond
		}
		time.Sleep(delayTime)
		i += 2 + dataSize
	}
	return nil
}

func (d *EPaperDisplay) sendCommand(command byte, params []byte) error {
	for !d.core.bus.BeginTransaction() {
		time.Sleep(time.Millisecond)
	}
	defer d.core.bus.EndTransaction()
	chipSelect := ChipSelectUntouched
	if d.core.alwaysToggleChipSelect {
		chipSelect = ChipSelectToggleEveryByte
	}
	if err := d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, []byte{command}); err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	return d.core.bus.Send(SendData, chipSelect, params)
}

func (d *EPaperDisplay) sendData(data []byte) error {
	for !d.core.bus.BeginTransaction() {
		time.Sleep(time.Millisecond)
	}
	defer d.core.bus.EndTransaction()
	chipSelect := ChipSelectUntouched
	if d.core.alwaysToggleChipSelect {
		chipSelect = ChipSelectToggleEveryByte
	}
	return d.core.bus.Send(SendData, chipSelect, data)
}

// Width returns the display width in pixels for the current rotation.
func (d *EPaperDisplay) Width() int { return d.core.Width() }

// Height returns the display height in pixels for the current rotation.
func (d *EPaperDisplay) Height() int { return d.core.Height() }

// Rotation returns the rotation in degrees.
func (d *EPaperDisplay) Rotation() int { return d.core.Rotation() }

// Bus returns the underlying display bus.
func (d *EPaperDisplay) Bus() Bus { return d.core.bus }
