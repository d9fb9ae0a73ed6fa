package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxSphereSegments keeps a sphere's vertex count addressable by 16-bit indices.
const MaxSphereSegments = 254

// SphereGeometry builds a unit UV sphere with segments stacks and sectors.
// The list variant emits a triangle list that skips the degenerate triangles at the poles.
// The strip variant walks the rows as a serpentine triangle strip, which is then expanded
// to a list so both variants draw with the same pipelines.
//
// Parameters:
//   - segments: the stack and sector count, 3..MaxSphereSegments
//   - strip: whether to generate through the strip layout
//
// Returns:
//   - []Vertex: (segments+1)^2 vertices, normal equal to position
//   - []uint16: triangle list indices
//   - error: when segments is out of range
func SphereGeometry(segments int, strip bool) ([]Vertex, []uint16, error) {
	if segments < 3 || segments > MaxSphereSegments {
		return nil, nil, fmt.Errorf("sphere: %d segments outside [3, %d]", segments, MaxSphereSegments)
	}
	if strip {
		v, idx := sphereStrip(segments)
		return v, StripToList(idx), nil
	}
	v, idx := sphereList(segments)
	return v, idx, nil
}

func sphereStrip(n int) ([]Vertex, []uint16) {
	vertices := make([]Vertex, 0, (n+1)*(n+1))
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			xs := float64(x) / float64(n)
			ys := float64(y) / float64(n)
			theta := ys * math.Pi
			phi := xs * 2 * math.Pi
			p := [3]float32{
				float32(math.Cos(phi) * math.Sin(theta)),
				float32(math.Cos(theta)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			vertices = append(vertices, Vertex{Position: p, UV: [2]float32{float32(xs), float32(ys)}, Normal: p})
		}
	}

	row := n + 1
	indices := make([]uint16, 0, 2*row*n)
	for y := 0; y < n; y++ {
		if y%2 == 0 {
			for x := 0; x <= n; x++ {
				indices = append(indices, uint16((y+1)*row+x), uint16(y*row+x))
			}
		} else {
			for x := n; x >= 0; x-- {
				indices = append(indices, uint16(y*row+x), uint16((y+1)*row+x))
			}
		}
	}
	return vertices, indices
}

func sphereList(n int) ([]Vertex, []uint16) {
	sectorStep := 2 * math.Pi / float64(n)
	stackStep := math.Pi / float64(n)

	vertices := make([]Vertex, 0, (n+1)*(n+1))
	for i := 0; i <= n; i++ {
		stack := math.Pi/2 - float64(i)*stackStep
		xy := math.Cos(stack)
		y := math.Sin(stack)
		for j := 0; j <= n; j++ {
			sector := float64(j) * sectorStep
			p := [3]float32{float32(xy * math.Cos(sector)), float32(y), float32(-xy * math.Sin(sector))}
			vertices = append(vertices, Vertex{
				Position: p,
				UV:       [2]float32{float32(j) / float32(n), float32(i) / float32(n)},
				Normal:   p,
			})
		}
	}

	indices := make([]uint16, 0, n*n*6)
	for i := 0; i < n; i++ {
		k1 := i * (n + 1)
		k2 := k1 + n + 1
		for j := 0; j < n; j, k1, k2 = j+1, k1+1, k2+1 {
			if i != 0 {
				indices = append(indices, uint16(k1), uint16(k2), uint16(k1+1))
			}
			if i != n-1 {
				indices = append(indices, uint16(k1+1), uint16(k2), uint16(k2+1))
			}
		}
	}
	return vertices, indices
}

// StripToList expands triangle-strip indices into a triangle list, flipping every odd triangle
// to keep the winding and dropping degenerate triangles.
//
// Parameters:
//   - strip: the strip indices
//
// Returns:
//   - []uint16: the equivalent list indices
func StripToList(strip []uint16) []uint16 {
	if len(strip) < 3 {
		return nil
	}
	out := make([]uint16, 0, (len(strip)-2)*3)
	for i := 0; i+2 < len(strip); i++ {
		a, b, c := strip[i], strip[i+1], strip[i+2]
		if a == b || b == c || a == c {
			continue
		}
		if i%2 == 1 {
			a, b = b, a
		}
		out = append(out, a, b, c)
	}
	return out
}

// CubeGeometry builds a unit cube centered on the origin with per-face normals and UVs.
//
// Returns:
//   - []Vertex: 24 vertices, four per face
//   - []uint16: 36 indices
func CubeGeometry() ([]Vertex, []uint16) {
	type face struct {
		normal, u, v mgl32.Vec3
	}
	faces := [6]face{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for _, f := range faces {
		base := uint16(len(vertices))
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(0.5)
			vertices = append(vertices, Vertex{
				Position: p,
				UV:       [2]float32{(c[0] + 1) / 2, (1 - c[1]) / 2},
				Normal:   f.normal,
				Color:    [4]float32{1, 1, 1, 1},
			})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}

// SkyboxVertices are the eight corners of the skybox cube.
var SkyboxVertices = [8]mgl32.Vec3{
	{-1, -1, -1},
	{-1, 1, -1},
	{1, 1, -1},
	{1, -1, -1},
	{-1, -1, 1},
	{-1, 1, 1},
	{1, 1, 1},
	{1, -1, 1},
}

// SkyboxIndices are the 36 indices of the skybox cube, two triangles per face.
var SkyboxIndices = [36]uint16{
	0, 1, 2, 2, 3, 0, // front
	7, 6, 5, 5, 4, 7, // back
	3, 2, 6, 6, 7, 3, // right
	4, 5, 1, 1, 0, 4, // left
	5, 6, 2, 2, 1, 5, // up
	0, 3, 7, 7, 4, 0, // down
}
