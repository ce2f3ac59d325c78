package mesh

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformsInclude is the name the MeshUniforms WGSL struct is registered under with the shader
// pre-processor. Shaders pull it in with "//@mellohi:include mesh_uniforms".
const UniformsInclude = "mesh_uniforms"

// UniformsSize is the size of the MeshUniforms struct in bytes.
const UniformsSize = 3 * 64

// UniformsSource is the canonical WGSL definition of the MeshUniforms struct.
// Matches Uniforms.Marshal exactly.
//
//go:embed assets/uniforms.wgsl
var UniformsSource string

// DefaultShaderSource is the shader meshes are built with when no shader is given.
// It reads position, normal, and color at locations 0 to 2 and applies one directional light.
//
//go:embed assets/mesh.wgsl
var DefaultShaderSource string

func init() {
	shader.Register(UniformsInclude, UniformsSource)
}

// Vertex is one mesh vertex. Its memory layout is three tightly packed vec3<f32>.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
}

// Uniforms is the per-mesh uniform block written to binding 0 of the mesh's bind group.
type Uniforms struct {
	Projection mgl32.Mat4 // offset   0
	View       mgl32.Mat4 // offset  64
	Model      mgl32.Mat4 // offset 128
}

// IdentityUniforms returns Uniforms with every matrix set to identity.
//
// Returns:
//   - Uniforms: the identity uniforms
func IdentityUniforms() Uniforms {
	return Uniforms{
		Projection: mgl32.Ident4(),
		View:       mgl32.Ident4(),
		Model:      mgl32.Ident4(),
	}
}

// Marshal serializes the uniforms into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer, UniformsSize bytes long
func (u Uniforms) Marshal() []byte {
	buf := make([]byte, UniformsSize)
	common.PutMat4(buf[0:], u.Projection)
	common.PutMat4(buf[64:], u.View)
	common.PutMat4(buf[128:], u.Model)
	return buf
}

// UnmarshalUniforms decodes bytes produced by Uniforms.Marshal.
//
// Parameters:
//   - data: at least UniformsSize bytes
//
// Returns:
//   - Uniforms: the decoded uniforms
//   - bool: false if data is too short
func UnmarshalUniforms(data []byte) (Uniforms, bool) {
	if len(data) < UniformsSize {
		return Uniforms{}, false
	}
	var u Uniforms
	for i, m := range []*mgl32.Mat4{&u.Projection, &u.View, &u.Model} {
		for j := range 16 {
			m[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*64+j*4:]))
		}
	}
	return u, true
}
