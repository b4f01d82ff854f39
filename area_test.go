package displayio

import "testing"

func TestAreaOverlap(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Area
		want    Area
		overlap bool
	}{
		{"identical", NewArea(0, 0, 10, 10), NewArea(0, 0, 10, 10), NewArea(0, 0, 10, 10), true},
		{"contained", NewArea(0, 0, 10, 10), NewArea(2, 3, 5, 7), NewArea(2, 3, 5, 7), true},
		{"partial", NewArea(0, 0, 10, 10), NewArea(5, 5, 15, 15), NewArea(5, 5, 10, 10), true},
		{"disjoint x", NewArea(0, 0, 10, 10), NewArea(10, 0, 20, 10), Area{}, false},
		{"disjoint y", NewArea(0, 0, 10, 10), NewArea(0, 20, 10, 30), Area{}, false},
		{"touching corner", NewArea(0, 0, 5, 5), NewArea(5, 5, 10, 10), Area{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Overlap(tt.b)
			if ok != tt.overlap {
				t.Fatalf("Overlap() ok = %v, want %v", ok, tt.overlap)
			}
			if ok && got != tt.want {
				t.Errorf("Overlap() = %v, want %v", got, tt.want)
			}
			// Intersection is symmetric.
			swapped, ok2 := tt.b.Overlap(tt.a)
			if ok2 != ok || (ok && swapped != got) {
				t.Errorf("Overlap() not symmetric: %v/%v vs %v/%v", got, ok, swapped, ok2)
			}
		})
	}
}

func TestAreaUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Area
		want Area
	}{
		{"disjoint", NewArea(0, 0, 2, 2), NewArea(8, 8, 10, 10), NewArea(0, 0, 10, 10)},
		{"contained", NewArea(0, 0, 10, 10), NewArea(2, 2, 4, 4), NewArea(0, 0, 10, 10)},
		{"left empty", Area{}, NewArea(3, 4, 5, 6), NewArea(3, 4, 5, 6)},
		{"right empty", NewArea(3, 4, 5, 6), Area{}, NewArea(3, 4, 5, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Union(tt.b); got != tt.want {
				t.Errorf("Union() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAreaSizeEmpty(t *testing.T) {
	a := NewArea(2, 3, 7, 9)
	if got := a.Width(); got != 5 {
		t.Errorf("Width() = %d, want 5", got)
	}
	if got := a.Height(); got != 6 {
		t.Errorf("Height() = %d, want 6", got)
	}
	if got := a.Size(); got != 30 {
		t.Errorf("Size() = %d, want 30", got)
	}
	if a.Empty() {
		t.Error("Empty() = true for non-empty area")
	}
	if !(Area{X1: 4, Y1: 0, X2: 4, Y2: 10}).Empty() {
		t.Error("Empty() = false for zero-width area")
	}
}

func TestAreaCanonShiftScale(t *testing.T) {
	a := Area{X1: 7, Y1: 9, X2: 2, Y2: 3}
	a.Canon()
	if a != NewArea(2, 3, 7, 9) {
		t.Errorf("Canon() = %v", a)
	}
	a.Shift(1, -2)
	if a != NewArea(3, 1, 8, 7) {
		t.Errorf("Shift() = %v", a)
	}
	a = NewArea(1, 2, 3, 4)
	a.Scale(3)
	if a != NewArea(3, 6, 9, 12) {
		t.Errorf("Scale() = %v", a)
	}
}

func TestTransformWithin(t *testing.T) {
	whole := NewArea(0, 0, 10, 8)
	original := NewArea(1, 2, 4, 5)

	tests := []struct {
		name                         string
		mirrorX, mirrorY, transposed bool
		want                         Area
	}{
		{"identity", false, false, false, NewArea(1, 2, 4, 5)},
		{"mirror x", true, false, false, NewArea(6, 2, 9, 5)},
		{"mirror y", false, true, false, NewArea(1, 3, 4, 6)},
		{"mirror both", true, true, false, NewArea(6, 3, 9, 6)},
		{"transpose", false, false, true, NewArea(2, 1, 5, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformWithin(tt.mirrorX, tt.mirrorY, tt.transposed, original, whole)
			if got != tt.want {
				t.Errorf("TransformWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapAxis(t *testing.T) {
	tests := []struct {
		name              string
		dev, origin, step int
		want              int
	}{
		{"forward", 7, 3, 1, 4},
		{"forward scaled", 7, 3, 2, 2},
		{"mirrored", 2, 10, -1, 7},
		{"mirrored scaled", 3, 10, -2, 3},
		{"mirrored last pixel", 9, 10, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapAxis(tt.dev, tt.origin, tt.step); got != tt.want {
				t.Errorf("mapAxis(%d, %d, %d) = %d, want %d", tt.dev, tt.origin, tt.step, got, tt.want)
			}
		})
	}
}
