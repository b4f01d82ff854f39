package displayio

// PixelSource is what a TileGrid needs from its backing pixel store:
// dimensions, indexed reads, and Bitmap-style damage bookkeeping.
// Bitmap, OnDiskBitmap and Shape implement it; the unexported methods
// keep the set closed.
type PixelSource interface {
	Width() int
	Height() int
	// Pixel returns the stored value at (x, y); out-of-bounds reads
	// return 0.
	Pixel(x, y int) uint32

	// refreshArea returns the pending damage rectangle, if any.
	refreshArea() (Area, bool)
	// finishRefresh clears the pending damage.
	finishRefresh()
}

// Layer is a scene-graph node: either a Group or a TileGrid. The node
// kinds are fixed, so the interface is closed via unexported methods.
type Layer interface {
	// updateTransform recomputes the node's absolute transform from its
	// parent's and pushes the result to any children. A nil parent
	// detaches the node.
	updateTransform(parent *Transform)

	// fillArea resolves every pixel of area this node covers into buf
	// (packed per cs), marking painted pixels in mask. Layers above have
	// already painted their mask bits; those pixels must be skipped. It
	// reports whether area ended up fully covered.
	fillArea(cs *Colorspace, area Area, mask []uint32, buf []byte) bool

	// getRefreshAreas appends this node's pending damage rectangles, in
	// device coordinates, to areas.
	getRefreshAreas(areas []Area) []Area

	// finishRefresh clears pending damage after a completed refresh.
	finishRefresh()

	attached() bool
}
