package mesh

import "github.com/go-gl/mathgl/mgl32"

// cubeFaces lists each face of the unit cube as its outward normal and its four corners,
// counter-clockwise when viewed from outside.
var cubeFaces = [6]struct {
	normal  mgl32.Vec3
	corners [4]mgl32.Vec3
}{
	{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
	{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
	{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
	{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
	{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
	{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
}

// Cube returns the vertices and indices of a cube spanning -0.5..0.5 on every axis, with flat
// per-face normals and a single color.
//
// Parameters:
//   - color: the vertex color
//
// Returns:
//   - []Vertex: 24 vertices, four per face
//   - []uint16: 36 indices, two triangles per face
func Cube(color mgl32.Vec3) ([]Vertex, []uint16) {
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint16, 0, 36)
	for _, f := range cubeFaces {
		base := uint16(len(vertices))
		for _, c := range f.corners {
			vertices = append(vertices, Vertex{Position: c.Mul(0.5), Normal: f.normal, Color: color})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// Triangle returns a single triangle in the XY plane facing -Z, toward the default camera.
//
// Parameters:
//   - color: the vertex color
//
// Returns:
//   - []Vertex: 3 vertices
func Triangle(color mgl32.Vec3) []Vertex {
	normal := mgl32.Vec3{0, 0, -1}
	return []Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Normal: normal, Color: color},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Normal: normal, Color: color},
		{Position: mgl32.Vec3{0, 0.5, 0}, Normal: normal, Color: color},
	}
}
