package displayio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// FourWireOpts is the configuration for a FourWire bus.
type FourWireOpts struct {
	// Frequency is the SPI clock (default: 24MHz).
	Frequency physic.Frequency
	// Mode selects clock polarity and phase (default: Mode0).
	Mode spi.Mode

	// ChipSelect is driven around transactions when the port has no
	// hardware CS line (optional, nil if not used).
	ChipSelect gpio.PinOut
	// Reset pin (optional, nil if not used).
	Reset gpio.PinIO
}

// FourWire is the classic SPI display hookup: SPI clock and data plus a
// D/C pin that routes bytes to the command or data path, with optional
// software chip select and reset pins.
type FourWire struct {
	c   conn.Conn
	dc  gpio.PinOut
	cs  gpio.PinOut
	rst gpio.PinIO

	mu sync.Mutex
}

// NewFourWire creates a FourWire bus on the given SPI port.
//
// The dc (Data/Command) GPIO pin must be provided and configured as an
// output. opts can be nil to use defaults (24MHz, Mode0).
func NewFourWire(p spi.Port, dc gpio.PinOut, opts *FourWireOpts) (*FourWire, error) {
	if dc == nil {
		return nil, errors.New("displayio: fourwire requires a data/command pin")
	}
	if opts == nil {
		opts = &FourWireOpts{}
	}
	freq := opts.Frequency
	if freq == 0 {
		freq = 24 * physic.MegaHertz
	}

	c, err := p.Connect(freq, opts.Mode, 8)
	if err != nil {
		return nil, fmt.Errorf("displayio: connecting spi: %w", err)
	}

	b := &FourWire{
		c:   c,
		dc:  dc,
		cs:  opts.ChipSelect,
		rst: opts.Reset,
	}
	if b.cs != nil {
		if err := b.cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("displayio: releasing chip select: %w", err)
		}
	}
	if b.rst != nil {
		if err := b.Reset(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Reset pulses the reset pin low. It reports an error when no reset pin
// was provided.
func (b *FourWire) Reset() error {
	if b.rst == nil {
		return errors.New("displayio: no reset pin")
	}
	if err := b.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("displayio: failed to pull RST high: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := b.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("displayio: failed to pull RST low: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := b.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("displayio: failed to pull RST high: %w", err)
	}
	time.Sleep(time.Millisecond)
	return nil
}

// BeginTransaction claims the bus and asserts chip select.
func (b *FourWire) BeginTransaction() bool {
	if !b.mu.TryLock() {
		return false
	}
	if b.cs != nil {
		if err := b.cs.Out(gpio.Low); err != nil {
			b.mu.Unlock()
			return false
		}
	}
	return true
}

// Send writes the payload, driving D/C low for commands and high for
// data.
func (b *FourWire) Send(kind SendKind, chipSelect ChipSelect, data []byte) error {
	level := gpio.High
	if kind == SendCommand {
		level = gpio.Low
	}
	if err := b.dc.Out(level); err != nil {
		return fmt.Errorf("displayio: setting data/command pin: %w", err)
	}
	if chipSelect == ChipSelectToggleEveryByte && b.cs != nil {
		for _, v := range data {
			if err := b.c.Tx([]byte{v}, nil); err != nil {
				return err
			}
			if err := b.cs.Out(gpio.High); err != nil {
				return err
			}
			if err := b.cs.Out(gpio.Low); err != nil {
				return err
			}
		}
		return nil
	}
	return b.c.Tx(data, nil)
}

// EndTransaction deasserts chip select and releases the bus.
func (b *FourWire) EndTransaction() {
	if b.cs != nil {
		// Best effort; the pin stays claimed either way.
		_ = b.cs.Out(gpio.High)
	}
	b.mu.Unlock()
}

// String returns a string representation of the bus.
func (b *FourWire) String() string {
	return fmt.Sprintf("displayio.FourWire{%s}", b.c)
}
