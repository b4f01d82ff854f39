// Package displayio is a retained-mode graphics engine for small SPI and
// I2C display controllers (ILI9341, ST7789, SSD1306, SH1107 and friends).
//
// Instead of pushing frames, applications build a scene graph of Groups
// and TileGrids and hand the root to a Display. The engine tracks which
// pixels changed, composites only the damaged rectangles, and streams
// them to the controller through its addressing window.
//
// # Scene Graph
//
// The building blocks:
//
//   - Bitmap: a mutable, packed store of pixel values (1 to 32 bits each)
//   - Palette / ColorConverter: shaders resolving stored values to device
//     colors, with per-entry transparency
//   - TileGrid: a grid of tiles cut from a pixel source, positioned and
//     flipped independently
//   - Group: an ordered list of layers with translation and integer scale
//   - OnDiskBitmap: a read-only pixel source decoded from a BMP file
//   - Shape: a compact 1-bit source described by per-row boundaries
//
// Layers composite back to front; transparent pixels leave lower layers
// visible.
//
// # Hardware Connection
//
// Displays connect through a bus object. For the common 4-wire SPI
// hookup:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCL/CLK     → SPI Clock (SCLK)
//	SDA/MOSI    → SPI Data (MOSI)
//	DC          → GPIO (any available pin)
//	CS          → SPI Chip Select (or GND if always selected)
//	RES         → Optional: GPIO for hardware reset
//
// I2C displays use I2CBus instead; only the controller address and an
// optional reset pin are needed.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"log"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//
//		"github.com/pixeldrift/go-displayio"
//	)
//
//	func main() {
//		host.Init()
//
//		port, _ := spireg.Open("")
//		dc := gpioreg.ByName("GPIO25")
//
//		bus, err := displayio.NewFourWire(port, dc, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		display, err := displayio.NewDisplay(bus, st7789Init, &displayio.DisplayOpts{
//			Width:  240,
//			Height: 240,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		bitmap, _ := displayio.NewBitmap(240, 240, 2)
//		palette, _ := displayio.NewPalette(2)
//		palette.SetColor(0, 0x000000)
//		palette.SetColor(1, 0xFFFFFF)
//
//		grid, _ := displayio.NewTileGrid(bitmap, palette, nil)
//		root, _ := displayio.NewGroup(nil)
//		root.Append(grid)
//		display.Show(root)
//
//		// Auto refresh is on; drawing into the bitmap now shows up on
//		// screen without further calls.
//		bitmap.SetPixel(10, 10, 1)
//	}
//
// # Init Sequences
//
// Display constructors take the controller's init sequence in a packed
// byte format: each record is the command byte, a length byte whose top
// bit flags a trailing delay, the parameters, and then the delay in
// milliseconds (255 encodes 500ms). Driver init tables published for
// CircuitPython boards use the same layout and work unchanged.
//
// # Refresh Model
//
// Two modes:
//
//   - Auto refresh (the default): a background goroutine refreshes at the
//     native frame rate. SetAutoRefresh(false) stops it and joins the
//     goroutine before returning.
//   - Manual: Refresh(targetFPS, minFPS) paces explicit refresh loops,
//     reporting false when the caller has fallen behind the target rate.
//
// Only damaged rectangles are composited and sent. Damage is tracked per
// Bitmap write, per TileGrid move, and per Palette change, then clipped,
// aligned to the controller's byte packing, and split into chunks that
// fit a small fixed buffer, so full frame allocations never happen.
//
// # Pixel Formats
//
// The engine packs pixels the way the controller expects: RGB565 with
// optional byte swap, 8-bit and sub-8-bit grayscale, row-major or
// vertical (page) byte layouts, bit-reversed bytes, and the SH1107's
// page addressing quirk. E-ink panels are covered by EPaperDisplay,
// which adds plane separation, busy-pin waits and refresh throttling.
package displayio
