package displayio

import "fmt"

// Area is an axis-aligned rectangle in pixel coordinates. The bounds are
// half-open: (X1,Y1) is inside, (X2,Y2) is not. An area with X1 == X2 or
// Y1 == Y2 covers no pixels; the damage tracker uses X1 == X2 as its
// "no damage" sentinel.
type Area struct {
	X1, Y1 int
	X2, Y2 int
}

// NewArea returns the area spanning the given half-open bounds.
func NewArea(x1, y1, x2, y2 int) Area {
	return Area{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func (a Area) String() string {
	return fmt.Sprintf("Area TL(%d,%d) BR(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
}

// Width returns X2-X1.
func (a Area) Width() int { return a.X2 - a.X1 }

// Height returns Y2-Y1.
func (a Area) Height() int { return a.Y2 - a.Y1 }

// Size returns the number of pixels covered.
func (a Area) Size() int { return a.Width() * a.Height() }

// Empty reports whether the area covers no pixels.
func (a Area) Empty() bool {
	return a.X1 == a.X2 || a.Y1 == a.Y2
}

// Canon sorts the bounds so that X1 <= X2 and Y1 <= Y2. Mirrored
// transforms produce inverted bounds; Canon restores canonical order.
func (a *Area) Canon() {
	if a.X1 > a.X2 {
		a.X1, a.X2 = a.X2, a.X1
	}
	if a.Y1 > a.Y2 {
		a.Y1, a.Y2 = a.Y2, a.Y1
	}
}

// Shift translates the area by (dx, dy).
func (a *Area) Shift(dx, dy int) {
	a.X1 += dx
	a.Y1 += dy
	a.X2 += dx
	a.Y2 += dy
}

// Scale multiplies all bounds by scale.
func (a *Area) Scale(scale int) {
	a.X1 *= scale
	a.Y1 *= scale
	a.X2 *= scale
	a.Y2 *= scale
}

// Overlap returns the intersection of a and other. ok is false when the
// two areas are disjoint on either axis, in which case the returned area
// is meaningless.
func (a Area) Overlap(other Area) (overlap Area, ok bool) {
	overlap.X1 = max(a.X1, other.X1)
	overlap.X2 = min(a.X2, other.X2)
	if overlap.X1 >= overlap.X2 {
		return overlap, false
	}
	overlap.Y1 = max(a.Y1, other.Y1)
	overlap.Y2 = min(a.Y2, other.Y2)
	return overlap, overlap.Y1 < overlap.Y2
}

// Union returns the smallest area containing both a and other. If either
// operand is empty the other is returned verbatim.
func (a Area) Union(other Area) Area {
	if a.Empty() {
		return other
	}
	if other.Empty() {
		return a
	}
	return Area{
		X1: min(a.X1, other.X1),
		Y1: min(a.Y1, other.Y1),
		X2: max(a.X2, other.X2),
		Y2: max(a.Y2, other.Y2),
	}
}

// TransformWithin remaps original, a sub-rectangle of whole, under a
// mirror/transpose of whole. Mirroring reflects original about whole's
// center on the given axis; transposing swaps the X and Y roles relative
// to whole's origin. original and whole must share a coordinate space.
func TransformWithin(mirrorX, mirrorY, transposeXY bool, original, whole Area) Area {
	var t Area
	if mirrorX {
		t.X1 = whole.X1 + (whole.X2 - original.X2)
		t.X2 = whole.X2 - (original.X1 - whole.X1)
	} else {
		t.X1 = original.X1
		t.X2 = original.X2
	}
	if mirrorY {
		t.Y1 = whole.Y1 + (whole.Y2 - original.Y2)
		t.Y2 = whole.Y2 - (original.Y1 - whole.Y1)
	} else {
		t.Y1 = original.Y1
		t.Y2 = original.Y2
	}
	if transposeXY {
		y1, y2 := t.Y1, t.Y2
		t.Y1 = whole.Y1 + (t.X1 - whole.X1)
		t.Y2 = whole.Y1 + (t.X2 - whole.X1)
		t.X1 = whole.X1 + (y1 - whole.Y1)
		t.X2 = whole.X1 + (y2 - whole.Y1)
	}
	return t
}
