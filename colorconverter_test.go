package displayio

import "testing"

func TestComputeRGB565(t *testing.T) {
	tests := []struct {
		name  string
		color uint32
		want  uint16
	}{
		{"black", 0x000000, 0x0000},
		{"white", 0xFFFFFF, 0xFFFF},
		{"red", 0xFF0000, 0xF800},
		{"green", 0x00FF00, 0x07E0},
		{"blue", 0x0000FF, 0x001F},
		{"truncated lows", 0x070307, 0x0000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeRGB565(tt.color); got != tt.want {
				t.Errorf("computeRGB565(%#06x) = %#04x, want %#04x", tt.color, got, tt.want)
			}
		})
	}
}

func TestComputeLuma(t *testing.T) {
	tests := []struct {
		name  string
		color uint32
		want  uint32
	}{
		{"black", 0x000000, 0},
		{"white", 0xFFFFFF, 254},
		{"green heaviest", 0x00FF00, 181},
		{"red", 0xFF0000, 18},
		{"blue lightest", 0x0000FF, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeLuma(tt.color); got != tt.want {
				t.Errorf("computeLuma(%#06x) = %d, want %d", tt.color, got, tt.want)
			}
		})
	}
}

func TestConvertColor(t *testing.T) {
	rgb565 := Colorspace{Depth: 16}
	rgb565Swapped := Colorspace{Depth: 16, ReverseBytesInWord: true}
	gray1 := Colorspace{Depth: 1, BytesPerCell: 1, GrayscaleBit: 7, Grayscale: true}
	gray4 := Colorspace{Depth: 4, BytesPerCell: 1, GrayscaleBit: 4, Grayscale: true}

	tests := []struct {
		name  string
		cs    *Colorspace
		color uint32
		want  uint32
	}{
		{"565 red", &rgb565, 0xFF0000, 0xF800},
		{"565 swapped red", &rgb565Swapped, 0xFF0000, 0x00F8},
		{"565 swapped blue", &rgb565Swapped, 0x0000FF, 0x1F00},
		{"1-bit white", &gray1, 0xFFFFFF, 1},
		{"1-bit black", &gray1, 0x000000, 0},
		{"1-bit light gray", &gray1, 0x818181, 1},
		{"4-bit white", &gray4, 0xFFFFFF, 0xF},
		{"4-bit mid gray", &gray4, 0x808080, 0x7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertColor(tt.cs, false, inputPixel{pixel: tt.color})
			if got != tt.want {
				t.Errorf("convertColor(%#06x) = %#x, want %#x", tt.color, got, tt.want)
			}
		})
	}
}

func TestColorConverterTransparency(t *testing.T) {
	c := NewColorConverter(false)
	cs := Colorspace{Depth: 16}

	if _, opaque := c.getColor(&cs, inputPixel{pixel: 0x123456}); !opaque {
		t.Fatal("unexpected transparent pixel")
	}

	if err := c.MakeTransparent(0x123456); err != nil {
		t.Fatalf("MakeTransparent: %v", err)
	}
	if _, opaque := c.getColor(&cs, inputPixel{pixel: 0x123456}); opaque {
		t.Error("transparent color reported opaque")
	}
	if _, opaque := c.getColor(&cs, inputPixel{pixel: 0x654321}); !opaque {
		t.Error("other color reported transparent")
	}

	// Only one transparent color at a time.
	if err := c.MakeTransparent(0xABCDEF); err == nil {
		t.Error("second MakeTransparent should fail")
	}

	c.MakeOpaque()
	if _, opaque := c.getColor(&cs, inputPixel{pixel: 0x123456}); !opaque {
		t.Error("MakeOpaque did not clear transparency")
	}
}

func TestDitherNoiseRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := ditherNoise1(uint32(i))
		if n > 255 {
			t.Fatalf("ditherNoise1(%d) = %d out of range", i, n)
		}
	}
	// Dithering must stay deterministic per position.
	if ditherNoise2(3, 7) != ditherNoise2(3, 7) {
		t.Error("ditherNoise2 not deterministic")
	}
}

func TestPixelsPerByte(t *testing.T) {
	tests := []struct {
		depth, bytesPerCell int
		want                int
	}{
		{16, 1, 1},
		{8, 1, 1},
		{4, 1, 2},
		{2, 1, 4},
		{1, 1, 8},
		{1, 2, 16},
	}
	for _, tt := range tests {
		cs := Colorspace{Depth: tt.depth, BytesPerCell: tt.bytesPerCell}
		if got := cs.pixelsPerByte(); got != tt.want {
			t.Errorf("pixelsPerByte() depth=%d cells=%d = %d, want %d", tt.depth, tt.bytesPerCell, got, tt.want)
		}
	}
}
