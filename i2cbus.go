package displayio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// I2CBus drives a display controller over I2C, framing payloads with the
// SSD-style control byte: commands are written as 0x80/value pairs and
// data gets a single 0x40 prefix.
type I2CBus struct {
	dev i2c.Dev
	rst gpio.PinIO

	mu sync.Mutex
}

// NewI2CBus creates an I2C display bus for the device at addr. The reset
// pin is optional, nil if not used.
func NewI2CBus(bus i2c.Bus, addr uint16, reset gpio.PinIO) (*I2CBus, error) {
	if bus == nil {
		return nil, errors.New("displayio: nil i2c bus")
	}
	b := &I2CBus{
		dev: i2c.Dev{Bus: bus, Addr: addr},
		rst: reset,
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
func (b *I2CBus) Reset() error {
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

// BeginTransaction claims the bus.
func (b *I2CBus) BeginTransaction() bool {
	return b.mu.TryLock()
}

// Send writes the payload with the control-byte framing. Chip select has
// no meaning on I2C and is ignored.
func (b *I2CBus) Send(kind SendKind, _ ChipSelect, data []byte) error {
	var buf []byte
	if kind == SendCommand {
		buf = make([]byte, len(data)*2)
		for i, v := range data {
			buf[2*i] = 0x80
			buf[2*i+1] = v
		}
	} else {
		buf = make([]byte, len(data)+1)
		buf[0] = 0x40
		copy(buf[1:], data)
	}
	return b.dev.Tx(buf, nil)
}

// EndTransaction releases the bus.
func (b *I2CBus) EndTransaction() {
	b.mu.Unlock()
}

// String returns a string representation of the bus.
func (b *I2CBus) String() string {
	return fmt.Sprintf("displayio.I2CBus{%#02x}", b.dev.Addr)
}
