package displayio

// SendKind tags a bus payload as controller commands or pixel/parameter
// data. Buses signal the distinction differently: FourWire drives the D/C
// pin, I2CBus prefixes a control byte, and data_as_commands displays fold
// everything into the command path.
type SendKind int

const (
	// SendCommand marks the payload as command bytes.
	SendCommand SendKind = iota
	// SendData marks the payload as data bytes.
	SendData
)

// ChipSelect controls CS framing within a Send call.
type ChipSelect int

const (
	// ChipSelectUntouched leaves CS asserted for the whole payload.
	ChipSelectUntouched ChipSelect = iota
	// ChipSelectToggleEveryByte deasserts and reasserts CS around every
	// byte. Some controllers latch commands only on a CS edge.
	ChipSelectToggleEveryByte
)

// Bus abstracts the wire protocol between the display engine and a
// controller. FourWire and I2CBus implement it.
type Bus interface {
	// Reset pulses the reset line if one is wired. It reports an error
	// when no reset pin is available.
	Reset() error

	// BeginTransaction claims the bus for a command/data exchange. It
	// reports false when the bus is already held, letting refresh loops
	// poll instead of block.
	BeginTransaction() bool

	// Send writes the payload with the given framing. The bus must be
	// held via BeginTransaction.
	Send(kind SendKind, chipSelect ChipSelect, data []byte) error

	// EndTransaction releases the bus.
	EndTransaction()
}
