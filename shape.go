package displayio

import (
	"fmt"
	"sync"
)

// Shape is a 1-bit pixel source described by per-row column boundaries
// instead of stored pixels: each row keeps a [start, end) span and pixels
// inside the span read as 1. With mirroring enabled only the first half
// of the rows or columns is stored and the rest reflects it, which keeps
// symmetric shapes (circles, rounded rects) tiny.
type Shape struct {
	mu      sync.Mutex
	width   int
	height  int
	mirrorX bool
	mirrorY bool
	halfW   int
	starts  []int
	ends    []int
	dirty   Area
}

// NewShape creates a width x height shape whose rows all start out
// spanning the full width.
func NewShape(width, height int, mirrorX, mirrorY bool) (*Shape, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("displayio: shape dimensions %dx%d invalid", width, height)
	}
	rows := height
	if mirrorY {
		rows = height/2 + height%2
	}
	halfW := width
	if mirrorX {
		halfW = width/2 + width%2
	}
	s := &Shape{
		width:   width,
		height:  height,
		mirrorX: mirrorX,
		mirrorY: mirrorY,
		halfW:   halfW,
		starts:  make([]int, rows),
		ends:    make([]int, rows),
		dirty:   Area{X1: 0, Y1: 0, X2: width, Y2: height},
	}
	for i := range s.ends {
		s.ends[i] = halfW
	}
	return s, nil
}

// Width returns the shape width in pixels.
func (s *Shape) Width() int { return s.width }

// Height returns the shape height in pixels.
func (s *Shape) Height() int { return s.height }

// SetBoundary sets row y's visible span to [startX, endX). With mirrorY,
// y addresses the stored top half; the reflected row changes with it.
func (s *Shape) SetBoundary(y, startX, endX int) error {
	if y < 0 || y >= len(s.starts) {
		return fmt.Errorf("displayio: shape row %d out of range", y)
	}
	if startX < 0 || endX > s.halfW || startX > endX {
		return fmt.Errorf("displayio: shape boundary [%d,%d) out of range", startX, endX)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	oldStart, oldEnd := s.starts[y], s.ends[y]
	if oldStart == startX && oldEnd == endX {
		return nil
	}
	s.starts[y] = startX
	s.ends[y] = endX

	// Damage covers the union of the old and new spans, on the stored
	// row and, when mirrored, its reflections.
	x1 := min(oldStart, startX)
	x2 := max(oldEnd, endX)
	if s.mirrorX {
		x2 = s.width
	}
	rowDamage := Area{X1: x1, Y1: y, X2: x2, Y2: y + 1}
	s.dirty = s.dirty.Union(rowDamage)
	if s.mirrorY {
		my := s.height - 1 - y
		s.dirty = s.dirty.Union(Area{X1: x1, Y1: my, X2: x2, Y2: my + 1})
	}
	return nil
}

// Pixel reports 1 when (x, y) is inside the row's boundary.
func (s *Shape) Pixel(x, y int) uint32 {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return 0
	}
	if s.mirrorY && y >= len(s.starts) {
		y = s.height - 1 - y
	}
	if s.mirrorX && x >= s.halfW {
		x = s.width - 1 - x
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < s.starts[y] || x >= s.ends[y] {
		return 0
	}
	return 1
}

func (s *Shape) refreshArea() (Area, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirty.Empty() {
		return Area{}, false
	}
	return s.dirty, true
}

func (s *Shape) finishRefresh() {
	s.mu.Lock()
	s.dirty = Area{}
	s.mu.Unlock()
}
