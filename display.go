package displayio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrBelowMinimumFrameRate is reported by Refresh when the time since the
// last completed refresh exceeds the caller's minimum frame rate.
var ErrBelowMinimumFrameRate = errors.New("displayio: below minimum frame rate")

// refreshBufferWords is the word budget for one pixel-streaming chunk.
// Larger damage areas are split into row bands that fit.
const refreshBufferWords = 128

type backlightKind int

const (
	backlightNone backlightKind = iota
	backlightPWM
	backlightInOut
)

// DisplayOpts is the configuration for a Display. Zero values pick the
// defaults listed per field.
type DisplayOpts struct {
	// Display dimensions in pixels.
	Width  int
	Height int

	// Colstart and Rowstart offset the pixel window within the
	// controller RAM.
	Colstart int
	Rowstart int
	// Rotation in degrees (0, 90, 180 or 270).
	Rotation int

	// ColorDepth is the bits per pixel on the wire (default: 16).
	ColorDepth int
	// Grayscale selects luma conversion instead of RGB packing.
	Grayscale bool
	// PixelsInByteShareRowOff flips the sub-8-bit packing from row-major
	// (the default) to vertical page layout.
	PixelsInByteShareRowOff bool
	// BytesPerCell is the bytes sharing one addressable cell for
	// sub-8-bit depths (default: 1).
	BytesPerCell int
	// ReversePixelsInByte flips the pixel order within packed bytes.
	ReversePixelsInByte bool
	// ReverseBytesInWordOff disables the default byte swap of 16-bit
	// pixels.
	ReverseBytesInWordOff bool

	// SetColumnCommand and SetRowCommand program the addressing window
	// (defaults: 0x2A and 0x2B).
	SetColumnCommand int
	SetRowCommand    int
	// WriteRAMCommand starts a pixel write (default: 0x2C).
	WriteRAMCommand int
	// BrightnessCommand adjusts brightness through the controller when
	// no backlight pin is wired (0 = none).
	BrightnessCommand int

	// BacklightPin drives the backlight, by PWM when the pin supports it
	// (optional, nil if not used).
	BacklightPin gpio.PinIO
	// BacklightOnLow inverts the backlight polarity.
	BacklightOnLow bool
	// Brightness is the initial backlight level in [0, 1] (default: 1).
	Brightness float64

	// SingleByteBounds selects 1-byte addressing-window coordinates.
	SingleByteBounds bool
	// DataAsCommands folds all traffic into the command path.
	DataAsCommands bool
	// SH1107Addressing enables the SH1107 page-addressing quirk. Only
	// meaningful at ColorDepth 1.
	SH1107Addressing bool
	// AddressLittleEndian sends 16-bit window bounds low byte first.
	AddressLittleEndian bool

	// AutoRefreshOff disables the background refresh goroutine that is
	// otherwise started at construction.
	AutoRefreshOff bool
	// NativeFramesPerSecond paces auto refresh (default: 60).
	NativeFramesPerSecond int
}

// Display composites a Group scene graph and streams the changed pixels
// to a controller behind a Bus.
//
// The init sequence is bit-packed to keep it compact: each record is a
// command byte, then a length byte whose top bit flags a trailing delay,
// then the parameters, then the delay in milliseconds (255 means 500) if
// flagged.
type Display struct {
	core *core

	writeRAMCommand   int
	brightnessCommand int

	backlight      gpio.PinIO
	backlightKind  backlightKind
	backlightOnLow bool
	brightness     float64

	nativeFrame time.Duration

	mu                 sync.Mutex
	firstManualRefresh bool
	lastRefreshCall    time.Time

	autoMu   sync.Mutex
	autoStop chan struct{}
	autoDone sync.WaitGroup
}

// NewDisplay creates a display on bus, runs initSequence, and unless
// AutoRefreshOff is set starts background refresh.
func NewDisplay(bus Bus, initSequence []byte, opts *DisplayOpts) (*Display, error) {
	if bus == nil {
		return nil, errors.New("displayio: nil bus")
	}
	if opts == nil {
		opts = &DisplayOpts{}
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("displayio: display dimensions %dx%d invalid", opts.Width, opts.Height)
	}
	colorDepth := opts.ColorDepth
	if colorDepth == 0 {
		colorDepth = 16
	}
	switch colorDepth {
	case 1, 2, 4, 8, 16, 32:
	default:
		return nil, fmt.Errorf("displayio: unsupported color depth %d", colorDepth)
	}
	switch opts.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("displayio: rotation must be a multiple of 90, got %d", opts.Rotation)
	}
	columnCommand := opts.SetColumnCommand
	if columnCommand == 0 {
		columnCommand = 0x2A
	}
	rowCommand := opts.SetRowCommand
	if rowCommand == 0 {
		rowCommand = 0x2B
	}
	writeRAMCommand := opts.WriteRAMCommand
	if writeRAMCommand == 0 {
		writeRAMCommand = 0x2C
	}
	fps := opts.NativeFramesPerSecond
	if fps == 0 {
		fps = 60
	}
	ramWidth, ramHeight := 0x100, 0x100
	if opts.SingleByteBounds {
		ramWidth, ramHeight = 0xFF, 0xFF
	}
	brightnessCommand := noCommand
	if opts.BrightnessCommand != 0 {
		brightnessCommand = opts.BrightnessCommand
	}

	d := &Display{
		core: newCore(coreOpts{
			bus:                     bus,
			width:                   opts.Width,
			height:                  opts.Height,
			ramWidth:                ramWidth,
			ramHeight:               ramHeight,
			colstart:                opts.Colstart,
			rowstart:                opts.Rowstart,
			rotation:                opts.Rotation,
			colorDepth:              colorDepth,
			grayscale:               opts.Grayscale,
			pixelsInByteShareRow:    !opts.PixelsInByteShareRowOff,
			bytesPerCell:            opts.BytesPerCell,
			reversePixelsInByte:     opts.ReversePixelsInByte,
			reverseBytesInWord:      !opts.ReverseBytesInWordOff,
			columnCommand:           columnCommand,
			rowCommand:              rowCommand,
			setCurrentColumnCommand: noCommand,
			setCurrentRowCommand:    noCommand,
			dataAsCommands:          opts.DataAsCommands,
			sh1107Addressing:        opts.SH1107Addressing && colorDepth == 1,
		}),
		writeRAMCommand:    writeRAMCommand,
		brightnessCommand:  brightnessCommand,
		backlight:          opts.BacklightPin,
		backlightOnLow:     opts.BacklightOnLow,
		nativeFrame:        time.Second / time.Duration(fps),
		firstManualRefresh: opts.AutoRefreshOff,
	}

	if err := d.initialize(initSequence); err != nil {
		return nil, err
	}

	if d.backlight != nil {
		brightness := opts.Brightness
		if brightness == 0 {
			brightness = 1.0
		}
		// 100Hz looks decent and doesn't keep the CPU too busy.
		if err := d.backlight.PWM(gpio.DutyMax, 100*physic.Hertz); err != nil {
			d.backlightKind = backlightInOut
		} else {
			d.backlightKind = backlightPWM
		}
		if err := d.SetBrightness(brightness); err != nil {
			return nil, err
		}
	}

	if !opts.AutoRefreshOff {
		d.SetAutoRefresh(true)
	}
	return d, nil
}

// initialize walks the bit-packed init sequence, sending each command
// with its parameters and honoring the per-record delay.
func (d *Display) initialize(initSequence []byte) error {
	i := 0
	for i < len(initSequence) {
		if i+1 >= len(initSequence) {
			return errors.New("displayio: truncated init sequence")
		}
		command := initSequence[i]
		dataSize := int(initSequence[i+1])
		delay := dataSize&0x80 != 0
		dataSize &= 0x7F
		if i+2+dataSize > len(initSequence) {
			return errors.New("displayio: truncated init sequence")
		}
		params := initSequence[i+2 : i+2+dataSize]

		for !d.core.bus.BeginTransaction() {
			time.Sleep(time.Millisecond)
		}
		var err error
		if d.core.dataAsCommands {
			err = d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, append([]byte{command}, params...))
		} else {
			err = d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, []byte{command})
			if err == nil {
				err = d.core.bus.Send(SendData, ChipSelectUntouched, params)
			}
		}
		d.core.bus.EndTransaction()
		if err != nil {
			return fmt.Errorf("displayio: init command %#02x: %w", command, err)
		}

		delayTime := 10 * time.Millisecond
		if delay {
			dataSize++
			if i+1+dataSize >= len(initSequence) {
				return errors.New("displayio: truncated init sequence")
			}
			ms := int(initSequence[i+1+dataSize])
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

// SendCommand sends a raw command with parameters outside the normal
// refresh path, for controller features the engine does not model.
func (d *Display) SendCommand(command byte, params []byte) error {
	for !d.core.bus.BeginTransaction() {
		time.Sleep(time.Millisecond)
	}
	defer d.core.bus.EndTransaction()
	if d.core.dataAsCommands {
		return d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, append([]byte{command}, params...))
	}
	if err := d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, []byte{command}); err != nil {
		return err
	}
	return d.core.bus.Send(SendData, ChipSelectUntouched, params)
}

// Show switches to compositing the given group. A nil group blanks
// nothing; it simply detaches the current scene.
func (d *Display) Show(group *Group) error {
	if group == nil {
		d.core.release()
		return nil
	}
	return d.core.show(group)
}

// Refresh composites pending damage and streams it to the controller.
//
// With targetFPS > 0 the call paces itself: if calls are arriving slower
// than the target rate it records the call and reports false without
// refreshing, and otherwise sleeps out the remainder of the frame first.
// With minFPS > 0 it reports ErrBelowMinimumFrameRate when the display
// has gone stale beyond that rate. Both are ignored while auto refresh
// runs.
func (d *Display) Refresh(targetFPS, minFPS int) (bool, error) {
	// Read outside d.mu: SetAutoRefresh(false) takes d.mu while holding
	// autoMu, so taking them here in the opposite order could deadlock.
	autoRunning := d.autoRunning()
	d.mu.Lock()
	if !autoRunning && !d.firstManualRefresh && targetFPS > 0 {
		now := time.Now()
		sinceReal := now.Sub(d.core.lastRefreshTime())
		if minFPS > 0 && sinceReal > time.Second/time.Duration(minFPS) {
			d.mu.Unlock()
			return false, ErrBelowMinimumFrameRate
		}
		targetFrame := time.Second / time.Duration(targetFPS)
		sinceCall := now.Sub(d.lastRefreshCall)
		d.lastRefreshCall = now
		if sinceCall > targetFrame {
			d.mu.Unlock()
			return false, nil
		}
		remaining := targetFrame - sinceReal%targetFrame
		d.mu.Unlock()
		time.Sleep(remaining)
		d.mu.Lock()
	}
	d.firstManualRefresh = false
	d.mu.Unlock()
	if err := d.refreshDisplay(); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Display) refreshDisplay() error {
	if !d.core.startRefresh() {
		return nil
	}
	for _, area := range d.core.getRefreshAreas() {
		if err := d.refreshArea(area); err != nil {
			d.core.finishRefresh()
			return err
		}
	}
	d.core.finishRefresh()
	return nil
}

// refreshArea redraws one damage rectangle, splitting it into row bands
// that fit the pixel buffer.
func (d *Display) refreshArea(area Area) error {
	clipped, ok := d.core.clipArea(area)
	if !ok {
		return nil
	}

	bufferWords := refreshBufferWords
	rowsPerBuffer := clipped.Height()
	pixelsPerWord := 32 / d.core.colorspace.Depth
	pixelsPerBuffer := clipped.Size()
	subrectangles := 1

	if d.core.sh1107Addressing {
		// Pixels are packed into 8-row pages; stream one page per chunk.
		subrectangles = rowsPerBuffer / 8
		rowsPerBuffer = 8
	} else if clipped.Size() > bufferWords*pixelsPerWord {
		rowsPerBuffer = bufferWords * pixelsPerWord / clipped.Width()
		if rowsPerBuffer == 0 {
			rowsPerBuffer = 1
		}
		if d.core.colorspace.Depth < 8 && d.core.colorspace.PixelsInByteShareRow {
			ppb := 8 / d.core.colorspace.Depth
			if rowsPerBuffer%ppb != 0 {
				rowsPerBuffer -= rowsPerBuffer % ppb
			}
		}
		subrectangles = clipped.Height() / rowsPerBuffer
		if clipped.Height()%rowsPerBuffer != 0 {
			subrectangles++
		}
		pixelsPerBuffer = rowsPerBuffer * clipped.Width()
		bufferWords = pixelsPerBuffer / pixelsPerWord
		if pixelsPerBuffer%pixelsPerWord != 0 {
			bufferWords++
		}
	}

	buf := make([]byte, bufferWords*4)
	mask := make([]uint32, pixelsPerBuffer/32+1)
	remainingRows := clipped.Height()

	for i := 0; i < subrectangles; i++ {
		subrectangle := Area{
			X1: clipped.X1,
			Y1: clipped.Y1 + rowsPerBuffer*i,
			X2: clipped.X2,
			Y2: clipped.Y1 + rowsPerBuffer*(i+1),
		}
		if remainingRows < rowsPerBuffer {
			subrectangle.Y2 = subrectangle.Y1 + remainingRows
		}
		remainingRows -= rowsPerBuffer

		if err := d.core.setRegionToUpdate(subrectangle); err != nil {
			return err
		}

		var sizeBytes int
		if d.core.colorspace.Depth >= 8 {
			sizeBytes = subrectangle.Size() * (d.core.colorspace.Depth / 8)
		} else {
			sizeBytes = subrectangle.Size() / (8 / d.core.colorspace.Depth)
		}

		clear(mask)
		clear(buf)
		d.core.fillArea(subrectangle, mask, buf)

		for !d.core.bus.BeginTransaction() {
			time.Sleep(time.Millisecond)
		}
		err := d.sendPixels(buf[:sizeBytes])
		d.core.bus.EndTransaction()
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Display) sendPixels(pixels []byte) error {
	if !d.core.dataAsCommands {
		if err := d.core.bus.Send(SendCommand, ChipSelectToggleEveryByte, []byte{byte(d.writeRAMCommand)}); err != nil {
			return err
		}
	}
	return d.core.bus.Send(SendData, ChipSelectUntouched, pixels)
}

// AutoRefresh reports whether the background refresh goroutine is
// running.
func (d *Display) AutoRefresh() bool {
	d.autoMu.Lock()
	defer d.autoMu.Unlock()
	return d.autoStop != nil
}

func (d *Display) autoRunning() bool {
	d.autoMu.Lock()
	defer d.autoMu.Unlock()
	return d.autoStop != nil
}

// SetAutoRefresh starts or stops background refresh at the native frame
// rate. Disabling joins the goroutine before returning, so no refresh is
// in flight afterwards.
func (d *Display) SetAutoRefresh(enable bool) {
	d.autoMu.Lock()
	defer d.autoMu.Unlock()
	if enable == (d.autoStop != nil) {
		return
	}
	if !enable {
		close(d.autoStop)
		d.autoStop = nil
		d.autoMu.Unlock()
		d.autoDone.Wait()
		d.autoMu.Lock()
		d.mu.Lock()
		d.firstManualRefresh = true
		d.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	d.autoStop = stop
	d.autoDone.Add(1)
	go func() {
		defer d.autoDone.Done()
		ticker := time.NewTicker(d.nativeFrame)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				// Errors surface on the next manual refresh; a failed
				// background frame just retries next tick.
				_ = d.refreshDisplay()
			}
		}
	}()
}

// Release stops auto refresh and detaches the current group.
func (d *Display) Release() {
	d.SetAutoRefresh(false)
	d.core.release()
}

// Brightness returns the current backlight level in [0, 1].
func (d *Display) Brightness() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brightness
}

// SetBrightness sets the backlight level: by PWM duty cycle when the pin
// supports it, on/off otherwise, or through the controller's brightness
// command when no pin is wired.
func (d *Display) SetBrightness(value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("displayio: brightness %v out of range", value)
	}
	level := value
	if d.backlightOnLow {
		level = 1 - value
	}
	switch {
	case d.backlightKind == backlightPWM:
		duty := gpio.Duty(level * float64(gpio.DutyMax))
		if err := d.backlight.PWM(duty, 100*physic.Hertz); err != nil {
			return fmt.Errorf("displayio: setting backlight duty: %w", err)
		}
	case d.backlightKind == backlightInOut:
		if err := d.backlight.Out(gpio.Level(level > 0.99)); err != nil {
			return fmt.Errorf("displayio: setting backlight pin: %w", err)
		}
	case d.brightnessCommand != noCommand:
		if err := d.SendCommand(byte(d.brightnessCommand), []byte{byte(value * 255)}); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.brightness = value
	d.mu.Unlock()
	return nil
}

// Width returns the display width in pixels for the current rotation.
func (d *Display) Width() int { return d.core.Width() }

// Height returns the display height in pixels for the current rotation.
func (d *Display) Height() int { return d.core.Height() }

// Rotation returns the rotation in degrees.
func (d *Display) Rotation() int { return d.core.Rotation() }

// SetRotation reorients the display; the next refresh repaints fully.
func (d *Display) SetRotation(rotation int) error {
	switch rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("displayio: rotation must be a multiple of 90, got %d", rotation)
	}
	d.core.mu.Lock()
	d.core.setRotation(rotation)
	d.core.fullRefresh = true
	d.core.mu.Unlock()
	return nil
}

// Bus returns the underlying display bus.
func (d *Display) Bus() Bus { return d.core.bus }

// String returns a string representation of the display.
func (d *Display) String() string {
	return fmt.Sprintf("displayio.Display{%dx%d}", d.core.Width(), d.core.Height())
}
