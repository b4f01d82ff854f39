package displayio

import "fmt"

type paletteColor struct {
	rgb888      uint32
	transparent bool

	// Resolved device value, cached per colorspace. Dithered lookups
	// bypass the cache since the noise depends on pixel position.
	cached      uint32
	cachedValid bool
	cachedCS    Colorspace
}

// Palette maps a stored pixel index to a full color. Colors are resolved
// to the display's native format lazily and cached so shared palettes
// stay cheap across refreshes.
type Palette struct {
	colors  []paletteColor
	dither  bool
	pending bool
}

// NewPalette creates a palette with colorCount slots, all black and
// opaque.
func NewPalette(colorCount int) (*Palette, error) {
	if colorCount <= 0 {
		return nil, fmt.Errorf("displayio: palette size must be positive, got %d", colorCount)
	}
	return &Palette{colors: make([]paletteColor, colorCount)}, nil
}

// Len returns the number of color slots.
func (p *Palette) Len() int { return len(p.colors) }

func (p *Palette) check(index int) error {
	if index < 0 || index >= len(p.colors) {
		return fmt.Errorf("displayio: palette index %d out of range", index)
	}
	return nil
}

// SetColor assigns an RGB888 color to a slot and invalidates its cached
// device value.
func (p *Palette) SetColor(index int, color uint32) error {
	if err := p.check(index); err != nil {
		return err
	}
	if color > 0xFFFFFF {
		return fmt.Errorf("displayio: color %#x out of range", color)
	}
	c := &p.colors[index]
	if c.rgb888 == color {
		return nil
	}
	c.rgb888 = color
	c.cachedValid = false
	p.pending = true
	return nil
}

// Color returns the RGB888 color stored in a slot.
func (p *Palette) Color(index int) (uint32, error) {
	if err := p.check(index); err != nil {
		return 0, err
	}
	return p.colors[index].rgb888, nil
}

// MakeTransparent marks a slot as transparent: pixels shaded with it are
// skipped during compositing, leaving the previous content visible.
func (p *Palette) MakeTransparent(index int) error {
	if err := p.check(index); err != nil {
		return err
	}
	if !p.colors[index].transparent {
		p.colors[index].transparent = true
		p.pending = true
	}
	return nil
}

// MakeOpaque clears a slot's transparency.
func (p *Palette) MakeOpaque(index int) error {
	if err := p.check(index); err != nil {
		return err
	}
	if p.colors[index].transparent {
		p.colors[index].transparent = false
		p.pending = true
	}
	return nil
}

// IsTransparent reports whether a slot is transparent.
func (p *Palette) IsTransparent(index int) (bool, error) {
	if err := p.check(index); err != nil {
		return false, err
	}
	return p.colors[index].transparent, nil
}

// Dither reports whether dithering is enabled.
func (p *Palette) Dither() bool { return p.dither }

// SetDither enables or disables dithering for all lookups.
func (p *Palette) SetDither(v bool) {
	if p.dither != v {
		p.dither = v
		p.pending = true
	}
}

func (p *Palette) getColor(cs *Colorspace, in inputPixel) (uint32, bool) {
	index := int(in.pixel)
	if index >= len(p.colors) || p.colors[index].transparent {
		return 0, false
	}
	c := &p.colors[index]
	if !p.dither && c.cachedValid && c.cachedCS == *cs {
		return c.cached, true
	}
	in.pixel = c.rgb888
	out := convertColor(cs, p.dither, in)
	if !p.dither {
		c.cached = out
		c.cachedValid = true
		c.cachedCS = *cs
	}
	return out, true
}

// needsRefresh reports whether a slot changed since the last refresh;
// TileGrids using this palette must then redraw their full area.
func (p *Palette) needsRefresh() bool { return p.pending }

func (p *Palette) finishRefresh() { p.pending = false }
