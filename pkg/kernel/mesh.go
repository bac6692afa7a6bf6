package kernel

import "github.com/go-gl/mathgl/mgl64"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which scene node this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the box enclosing every vertex.
func (m *Mesh) Bounds() AABB {
	b := Empty()
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		b = b.Extend(mgl64.Vec3{float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2])})
	}
	return b
}

// Transformed returns a copy of m with positions moved by mat and normals
// rotated by its upper 3x3. mat is expected to carry no shear.
func (m *Mesh) Transformed(mat mgl64.Mat4) *Mesh {
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  append([]uint32(nil), m.Indices...),
		Name:     m.Name,
	}
	rot := mat.Mat3()
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		p := mgl64.TransformCoordinate(mgl64.Vec3{
			float64(m.Vertices[i]), float64(m.Vertices[i+1]), float64(m.Vertices[i+2]),
		}, mat)
		out.Vertices[i], out.Vertices[i+1], out.Vertices[i+2] = float32(p[0]), float32(p[1]), float32(p[2])
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := rot.Mul3x1(mgl64.Vec3{
			float64(m.Normals[i]), float64(m.Normals[i+1]), float64(m.Normals[i+2]),
		})
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		out.Normals[i], out.Normals[i+1], out.Normals[i+2] = float32(n[0]), float32(n[1]), float32(n[2])
	}
	return out
}

// Append concatenates o onto m, offsetting o's indices.
func (m *Mesh) Append(o *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}
