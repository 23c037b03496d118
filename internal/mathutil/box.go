package mathutil

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Box3 is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox to start accumulating.
type Box3 struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func EmptyBox() Box3 {
	inf := math32.Inf(1)
	return Box3{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether no point has been added.
func (b Box3) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Expand grows the box to contain p.
func (b *Box3) Expand(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

func (b Box3) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3) HalfDiagonal() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// SortedHalfExtents returns the half extents in descending order.
func (b Box3) SortedHalfExtents() mgl32.Vec3 {
	h := b.HalfDiagonal()
	if h[0] < h[1] {
		h[0], h[1] = h[1], h[0]
	}
	if h[1] < h[2] {
		h[1], h[2] = h[2], h[1]
	}
	if h[0] < h[1] {
		h[0], h[1] = h[1], h[0]
	}
	return h
}
