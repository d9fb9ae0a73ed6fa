// Package shadow computes the light-space matrices for cascaded directional shadows and the single spot-light shadow map.
package shadow

import (
	"math"

	"github.com/Carmen-Shannon/oxy-vk/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Cascade is one slice of the camera frustum fitted with an orthographic light volume.
type Cascade struct {
	// ViewProj is the light's orthographic projection times its view matrix, Y flipped.
	ViewProj mgl32.Mat4
	// SplitDepth is the negated view-space depth of the slice's far plane, as the shader compares it.
	SplitDepth float32
	// Split is the normalized far boundary of the slice in [0,1].
	Split float32
	// Center and Radius bound the slice corners.
	Center mgl32.Vec3
	Radius float32
	// Corners are the world-space slice corners, near plane first (four each).
	Corners [8]mgl32.Vec3
}

// ndcCorners are the canonical clip-space cube corners with GL depth: near plane at z=-1, far plane at z=1.
var ndcCorners = [8]mgl32.Vec3{
	{-1, 1, -1}, {1, 1, -1}, {1, -1, -1}, {-1, -1, -1},
	{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
}

// Splits computes count normalized split depths blending logarithmic and uniform distributions.
// lambda 0 gives uniform splits, 1 gives logarithmic splits. Results are clamped to [0,1].
//
// Parameters:
//   - near: the camera near clip distance, positive
//   - far: the camera far clip distance, greater than near
//   - lambda: the blend factor in [0,1]
//   - count: the number of cascades, at least 1
//
// Returns:
//   - []float32: the far boundary of each cascade, strictly increasing
func Splits(near, far, lambda float32, count int) []float32 {
	clipRange := float64(far - near)
	minZ := float64(near)
	maxZ := float64(near) + clipRange
	rangeZ := maxZ - minZ
	ratio := maxZ / minZ
	l := float64(lambda)

	splits := make([]float32, count)
	for i := range splits {
		p := float64(i+1) / float64(count)
		logD := minZ * math.Pow(ratio, p)
		uniform := minZ + rangeZ*p
		d := l*(logD-uniform) + uniform
		splits[i] = float32(math.Min(math.Max((d-float64(near))/clipRange, 0), 1))
	}
	return splits
}

// Cascades fits an orthographic light volume around each slice of the camera frustum.
//
// Parameters:
//   - splits: the normalized split depths from Splits
//   - near, far: the camera clip distances the splits were computed for
//   - view, proj: the camera view and GL-style projection matrices
//   - direction: the directional light's direction; the light travels along it
//
// Returns:
//   - []Cascade: one cascade per split, near to far
func Cascades(splits []float32, near, far float32, view, proj mgl32.Mat4, direction mgl32.Vec3) []Cascade {
	clipRange := far - near
	invCam := proj.Mul4(view).Inv()
	lightDir := direction.Mul(-1).Normalize()

	var frustum [8]mgl32.Vec3
	for i, c := range ndcCorners {
		frustum[i] = mgl32.TransformCoordinate(c, invCam)
	}

	out := make([]Cascade, len(splits))
	lastSplit := float32(0)
	for i, split := range splits {
		var cs Cascade
		for j := 0; j < 4; j++ {
			dist := frustum[j+4].Sub(frustum[j])
			cs.Corners[j] = frustum[j].Add(dist.Mul(lastSplit))
			cs.Corners[j+4] = frustum[j].Add(dist.Mul(split))
		}

		for _, c := range cs.Corners {
			cs.Center = cs.Center.Add(c)
		}
		cs.Center = cs.Center.Mul(1.0 / 8.0)

		var radius float32
		for _, c := range cs.Corners {
			radius = max(radius, c.Sub(cs.Center).Len())
		}
		cs.Radius = float32(math.Ceil(float64(radius)*16.0) / 16.0)

		r := cs.Radius
		lightView := common.LookAtSafe(cs.Center.Sub(lightDir.Mul(r)), cs.Center, mgl32.Vec3{0, 1, 0})
		lightOrtho := common.FlipY(mgl32.Ortho(-r, r, -r, r, 0, 2*r))

		cs.ViewProj = lightOrtho.Mul4(lightView)
		cs.Split = split
		cs.SplitDepth = -(near + split*clipRange)
		out[i] = cs
		lastSplit = split
	}
	return out
}

// SpotLightMatrix builds the light-space matrix of a spot light: a Y-flipped perspective projection covering
// the cone out to radius, looking from position along the negated normalized direction.
//
// Parameters:
//   - position: the light position
//   - direction: the light direction
//   - angle: the vertical field of view in radians
//   - aspect: the shadow map aspect ratio
//   - radius: the far plane distance
//
// Returns:
//   - mgl32.Mat4: projection times view
func SpotLightMatrix(position, direction mgl32.Vec3, angle, aspect, radius float32) mgl32.Mat4 {
	proj := common.FlipY(mgl32.Perspective(angle, aspect, SpotNear, max(radius, SpotNear*2)))
	look := direction.Normalize().Mul(-1)
	view := common.LookAtSafe(position, position.Add(look), mgl32.Vec3{0, 1, 0})
	return proj.Mul4(view)
}
