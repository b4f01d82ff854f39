package displayio

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// spiXfer is one recorded SPI transfer with the D/C level it was sent at.
type spiXfer struct {
	w  []byte
	dc gpio.Level
}

type fakeSPIConn struct {
	dc    gpio.PinIO
	xfers []spiXfer
}

func (c *fakeSPIConn) String() string { return "fakespi" }

func (c *fakeSPIConn) Tx(w, r []byte) error {
	c.xfers = append(c.xfers, spiXfer{w: append([]byte(nil), w...), dc: c.dc.Read()})
	return nil
}

func (c *fakeSPIConn) Duplex() conn.Duplex { return conn.Half }

func (c *fakeSPIConn) TxPackets(p []spi.Packet) error { return nil }

type fakeSPIPort struct {
	conn fakeSPIConn
	freq physic.Frequency
	mode spi.Mode
}

func (p *fakeSPIPort) String() string { return "fakeport" }

func (p *fakeSPIPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.freq = f
	p.mode = mode
	return &p.conn, nil
}

func newTestFourWire(t *testing.T, opts *FourWireOpts) (*FourWire, *fakeSPIPort, *gpiotest.Pin) {
	t.Helper()
	dc := &gpiotest.Pin{N: "DC", Num: 25}
	port := &fakeSPIPort{}
	port.conn.dc = dc
	b, err := NewFourWire(port, dc, opts)
	if err != nil {
		t.Fatalf("NewFourWire: %v", err)
	}
	return b, port, dc
}

func TestNewFourWire(t *testing.T) {
	b, port, _ := newTestFourWire(t, nil)
	if b == nil {
		t.Fatal("nil bus")
	}
	if port.freq != 24*physic.MegaHertz {
		t.Errorf("frequency = %v, want 24MHz", port.freq)
	}
	if port.mode != spi.Mode0 {
		t.Errorf("mode = %v, want Mode0", port.mode)
	}

	if _, err := NewFourWire(&fakeSPIPort{}, nil, nil); err == nil {
		t.Error("nil dc pin accepted")
	}
}

func TestFourWireDataCommandPin(t *testing.T) {
	b, port, _ := newTestFourWire(t, nil)

	if !b.BeginTransaction() {
		t.Fatal("BeginTransaction failed")
	}
	if err := b.Send(SendCommand, ChipSelectUntouched, []byte{0x2A}); err != nil {
		t.Fatal(err)
	}
	if err := b.Send(SendData, ChipSelectUntouched, []byte{0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	b.EndTransaction()

	xfers := port.conn.xfers
	if len(xfers) != 2 {
		t.Fatalf("xfers = %d, want 2", len(xfers))
	}
	if xfers[0].dc != gpio.Low || !bytes.Equal(xfers[0].w, []byte{0x2A}) {
		t.Errorf("command xfer = %+v, want D/C low", xfers[0])
	}
	if xfers[1].dc != gpio.High || !bytes.Equal(xfers[1].w, []byte{0x01, 0x02}) {
		t.Errorf("data xfer = %+v, want D/C high", xfers[1])
	}
}

func TestFourWireChipSelectToggle(t *testing.T) {
	cs := &gpiotest.Pin{N: "CS", Num: 8}
	b, port, _ := newTestFourWire(t, &FourWireOpts{ChipSelect: cs})

	if !b.BeginTransaction() {
		t.Fatal("BeginTransaction failed")
	}
	if cs.L != gpio.Low {
		t.Error("CS not asserted during transaction")
	}
	if err := b.Send(SendCommand, ChipSelectToggleEveryByte, []byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatal(err)
	}
	b.EndTransaction()
	if cs.L != gpio.High {
		t.Error("CS not released after transaction")
	}

	// Toggled sends go one byte per transfer so the controller latches
	// each command on a CS edge.
	if len(port.conn.xfers) != 3 {
		t.Fatalf("xfers = %d, want 3", len(port.conn.xfers))
	}
	for i, x := range port.conn.xfers {
		if len(x.w) != 1 {
			t.Errorf("xfer %d carried %d bytes", i, len(x.w))
		}
	}
}

func TestFourWireTransactionExclusion(t *testing.T) {
	b, _, _ := newTestFourWire(t, nil)

	if !b.BeginTransaction() {
		t.Fatal("BeginTransaction failed")
	}
	if b.BeginTransaction() {
		t.Error("nested BeginTransaction should fail")
	}
	b.EndTransaction()
	if !b.BeginTransaction() {
		t.Error("BeginTransaction after release failed")
	}
	b.EndTransaction()
}

func TestFourWireReset(t *testing.T) {
	rst := &gpiotest.Pin{N: "RST", Num: 27}
	b, _, _ := newTestFourWire(t, &FourWireOpts{Reset: rst})
	if err := b.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if rst.L != gpio.High {
		t.Error("reset pin not left high")
	}

	noRst, _, _ := newTestFourWire(t, nil)
	if err := noRst.Reset(); err == nil {
		t.Error("Reset without a pin should fail")
	}
}
