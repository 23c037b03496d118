package mathutil

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ZUpToYUp converts Z-up (DirectX) to Y-up (OpenGL): Rx(-90°)
var ZUpToYUp = mgl32.HomogRotate3DX(-math32.Pi / 2)
