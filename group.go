package displayio

import (
	"errors"
	"fmt"
)

// Errors reported by Group structural operations.
var (
	ErrLayerInGroup = errors.New("displayio: layer already in a group")
	ErrGroupFull    = errors.New("displayio: group is full")
)

// GroupOpts configures a new Group. The zero value of each field picks
// the default.
type GroupOpts struct {
	// Scale magnifies every layer pixel to Scale x Scale device pixels
	// (default 1).
	Scale int
	// X, Y is the group's position within its parent.
	X, Y int
	// MaxSize bounds the number of layers; 0 means unbounded.
	MaxSize int
}

// Group manages an ordered list of layers (Groups or TileGrids) and how
// they are positioned relative to each other. Later layers draw above
// earlier ones.
type Group struct {
	layers  []Layer
	x, y    int
	scale   int
	maxSize int
	hidden  bool
	inGroup bool

	absolute Transform
}

// NewGroup creates an empty group.
func NewGroup(opts *GroupOpts) (*Group, error) {
	if opts == nil {
		opts = &GroupOpts{}
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 1 {
		return nil, fmt.Errorf("displayio: scale must be >= 1, got %d", scale)
	}
	if opts.MaxSize < 0 {
		return nil, fmt.Errorf("displayio: max size must be >= 0, got %d", opts.MaxSize)
	}
	return &Group{
		x:        opts.X,
		y:        opts.Y,
		scale:    scale,
		maxSize:  opts.MaxSize,
		absolute: identityTransform(),
	}, nil
}

// Len returns the number of layers.
func (g *Group) Len() int { return len(g.layers) }

// LayerAt returns the layer at index.
func (g *Group) LayerAt(index int) (Layer, error) {
	if index < 0 || index >= len(g.layers) {
		return nil, fmt.Errorf("displayio: layer index %d out of range", index)
	}
	return g.layers[index], nil
}

// Append adds a layer on top of all existing layers.
func (g *Group) Append(layer Layer) error {
	return g.Insert(len(g.layers), layer)
}

// Insert adds a layer at the given z position. A layer can live in at
// most one group at a time; inserting an attached layer fails with
// ErrLayerInGroup and leaves the group unmodified.
func (g *Group) Insert(index int, layer Layer) error {
	if layer == nil {
		return errors.New("displayio: nil layer")
	}
	if index < 0 || index > len(g.layers) {
		return fmt.Errorf("displayio: insert index %d out of range", index)
	}
	if layer.attached() {
		return ErrLayerInGroup
	}
	if g.maxSize > 0 && len(g.layers) >= g.maxSize {
		return ErrGroupFull
	}
	g.layers = append(g.layers, nil)
	copy(g.layers[index+1:], g.layers[index:])
	g.layers[index] = layer
	layer.updateTransform(&g.absolute)
	return nil
}

// Remove detaches the first occurrence of layer.
func (g *Group) Remove(layer Layer) error {
	for i, l := range g.layers {
		if l == layer {
			_, err := g.Pop(i)
			return err
		}
	}
	return errors.New("displayio: layer not in group")
}

// Pop detaches and returns the layer at index; -1 pops the topmost.
func (g *Group) Pop(index int) (Layer, error) {
	if index == -1 {
		index = len(g.layers) - 1
	}
	if index < 0 || index >= len(g.layers) {
		return nil, fmt.Errorf("displayio: layer index %d out of range", index)
	}
	layer := g.layers[index]
	layer.updateTransform(nil)
	copy(g.layers[index:], g.layers[index+1:])
	g.layers[len(g.layers)-1] = nil
	g.layers = g.layers[:len(g.layers)-1]
	return layer, nil
}

// Hidden reports whether the group and all its layers are skipped during
// compositing.
func (g *Group) Hidden() bool { return g.hidden }

// SetHidden hides or shows the group. Hiding does not alter any
// transforms; the layers simply stop contributing pixels and damage.
func (g *Group) SetHidden(v bool) { g.hidden = v }

// X returns the group's x position within its parent.
func (g *Group) X() int { return g.x }

// Y returns the group's y position within its parent.
func (g *Group) Y() int { return g.y }

// Scale returns the group's scale.
func (g *Group) Scale() int { return g.scale }

// SetX moves the group horizontally within its parent. The composed
// absolute transform is adjusted in place and pushed to children rather
// than recomputing the whole subtree.
func (g *Group) SetX(value int) {
	if g.x == value {
		return
	}
	if g.absolute.TransposeXY {
		g.absolute.Y += g.absolute.DY / g.scale * (value - g.x)
	} else {
		g.absolute.X += g.absolute.DX / g.scale * (value - g.x)
	}
	g.x = value
	g.updateChildTransforms()
}

// SetY moves the group vertically within its parent.
func (g *Group) SetY(value int) {
	if g.y == value {
		return
	}
	if g.absolute.TransposeXY {
		g.absolute.X += g.absolute.DX / g.scale * (value - g.y)
	} else {
		g.absolute.Y += g.absolute.DY / g.scale * (value - g.y)
	}
	g.y = value
	g.updateChildTransforms()
}

// SetScale changes the group's magnification, adjusting the composed
// transform incrementally.
func (g *Group) SetScale(value int) error {
	if value < 1 {
		return fmt.Errorf("displayio: scale must be >= 1, got %d", value)
	}
	if g.scale == value {
		return nil
	}
	parentScale := g.absolute.Scale / g.scale
	g.absolute.DX = g.absolute.DX / g.scale * value
	g.absolute.DY = g.absolute.DY / g.scale * value
	g.absolute.Scale = parentScale * value
	g.scale = value
	g.updateChildTransforms()
	return nil
}

func (g *Group) updateTransform(parent *Transform) {
	g.inGroup = parent != nil
	if parent != nil {
		x, y := g.x, g.y
		if parent.TransposeXY {
			x, y = y, x
		}
		g.absolute.X = parent.X + parent.DX*x
		g.absolute.Y = parent.Y + parent.DY*y
		g.absolute.DX = parent.DX * g.scale
		g.absolute.DY = parent.DY * g.scale
		g.absolute.TransposeXY = parent.TransposeXY
		g.absolute.MirrorX = parent.MirrorX
		g.absolute.MirrorY = parent.MirrorY
		g.absolute.Scale = parent.Scale * g.scale
	}
	g.updateChildTransforms()
}

func (g *Group) updateChildTransforms() {
	if !g.inGroup {
		return
	}
	for _, layer := range g.layers {
		layer.updateTransform(&g.absolute)
	}
}

// fillArea composites topmost layer first; lower layers only paint
// pixels the mask has not claimed yet.
func (g *Group) fillArea(cs *Colorspace, area Area, mask []uint32, buf []byte) bool {
	if g.hidden {
		return false
	}
	for i := len(g.layers) - 1; i >= 0; i-- {
		if g.layers[i].fillArea(cs, area, mask, buf) {
			return true
		}
	}
	return false
}

func (g *Group) getRefreshAreas(areas []Area) []Area {
	if g.hidden {
		return areas
	}
	for _, layer := range g.layers {
		areas = layer.getRefreshAreas(areas)
	}
	return areas
}

func (g *Group) finishRefresh() {
	for _, layer := range g.layers {
		layer.finishRefresh()
	}
}

func (g *Group) attached() bool { return g.inGroup }
