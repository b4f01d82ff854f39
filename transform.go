package displayio

// Transform is the accumulated mapping from a scene node's local pixel
// coordinates to device pixel coordinates.
//
// (X, Y) is the device location of the local origin. DX and DY carry both
// the per-axis step direction and the cumulative magnification: their sign
// encodes mirroring and their magnitude equals Scale. TransposeXY swaps
// the axes before the step is applied.
type Transform struct {
	X, Y        int
	DX, DY      int
	Scale       int
	TransposeXY bool
	MirrorX     bool
	MirrorY     bool
}

// identityTransform is the device transform for rotation 0.
func identityTransform() Transform {
	return Transform{DX: 1, DY: 1, Scale: 1}
}

// mapAxis converts a device coordinate on one axis to the local pixel
// index along that axis. origin is the transform's X or Y, step the
// matching DX or DY. Each local pixel covers |step| device pixels; a
// negative step walks the axis backwards (mirrored).
func mapAxis(dev, origin, step int) int {
	if step > 0 {
		return floorDiv(dev-origin, step)
	}
	return floorDiv(origin-dev-1, -step)
}

// floorDiv is integer division rounding toward negative infinity.
// b must be positive.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
