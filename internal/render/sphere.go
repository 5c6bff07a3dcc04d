package render

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/object"
	"marbles/internal/vmath"
)

const (
	sphereRings  = 16
	sphereSlices = 24
)

var (
	ambient    = [4]float32{0.2, 0.22, 0.26, 1.0}
	lightColor = [3]float32{1.0, 0.98, 0.95}
	lightDir   = [3]float32{0.5, 1, 0.5}
)

const (
	lightIntensity = float32(0.75)
	specularPower  = float32(48.0)
)

// sphereMesh is a unit sphere with a lit material, created on first draw so the GPU
// resources exist only after the window does.
type sphereMesh struct {
	loaded bool
	mesh   rl.Mesh
	mtl    rl.Material
	locs   struct{ viewPos, lightDir, ambient, lightColor, intensity, power, strength int32 }
}

func (s *sphereMesh) ensure() {
	if s.loaded {
		return
	}
	s.mesh = rl.GenMeshSphere(1, sphereRings, sphereSlices)
	s.mtl = rl.LoadMaterialDefault()
	shader := rl.LoadShaderFromMemory(litVS, litFS)
	if rl.IsShaderValid(shader) {
		s.mtl.Shader = shader
		s.locs.viewPos = rl.GetShaderLocation(shader, "viewPos")
		s.locs.lightDir = rl.GetShaderLocation(shader, "lightDir")
		s.locs.ambient = rl.GetShaderLocation(shader, "ambient")
		s.locs.lightColor = rl.GetShaderLocation(shader, "lightColor")
		s.locs.intensity = rl.GetShaderLocation(shader, "lightIntensity")
		s.locs.power = rl.GetShaderLocation(shader, "specularPower")
		s.locs.strength = rl.GetShaderLocation(shader, "specularStrength")
	}
	s.loaded = true
}

// begin sets the per-frame lighting uniforms.
func (s *sphereMesh) begin(eye rl.Vector3) {
	s.ensure()
	sh := s.mtl.Shader
	if !rl.IsShaderValid(sh) {
		return
	}
	view := []float32{eye.X, eye.Y, eye.Z}
	setVec(sh, s.locs.viewPos, view, rl.ShaderUniformVec3)
	setVec(sh, s.locs.lightDir, lightDir[:], rl.ShaderUniformVec3)
	setVec(sh, s.locs.ambient, ambient[:], rl.ShaderUniformVec4)
	setVec(sh, s.locs.lightColor, lightColor[:], rl.ShaderUniformVec3)
	setVec(sh, s.locs.intensity, []float32{lightIntensity}, rl.ShaderUniformFloat)
	setVec(sh, s.locs.power, []float32{specularPower}, rl.ShaderUniformFloat)
}

func (s *sphereMesh) draw(c sphereCmd) {
	if albedo := s.mtl.GetMap(rl.MapAlbedo); albedo != nil {
		albedo.Color = c.color
	}
	setVec(s.mtl.Shader, s.locs.strength, []float32{c.shininess}, rl.ShaderUniformFloat)
	rl.DrawMesh(s.mesh, s.mtl, c.transform)
}

func (s *sphereMesh) unload() {
	if !s.loaded {
		return
	}
	rl.UnloadMesh(&s.mesh)
	rl.UnloadMaterial(s.mtl)
	s.loaded = false
}

func setVec(sh rl.Shader, loc int32, v []float32, kind rl.ShaderUniformDataType) {
	if loc < 0 || !rl.IsShaderValid(sh) {
		return
	}
	rl.SetShaderValueV(sh, loc, v, kind, 1)
}

// sphereTransform scales a unit sphere to radius, rotates it by rot and moves it to pos.
func sphereTransform(pos vmath.Vec3, rot mgl64.Mat3, radius float64) rl.Matrix {
	r := float32(radius)
	m := rl.Matrix{M15: 1}
	m.M0, m.M4, m.M8 = float32(rot.At(0, 0))*r, float32(rot.At(0, 1))*r, float32(rot.At(0, 2))*r
	m.M1, m.M5, m.M9 = float32(rot.At(1, 0))*r, float32(rot.At(1, 1))*r, float32(rot.At(1, 2))*r
	m.M2, m.M6, m.M10 = float32(rot.At(2, 0))*r, float32(rot.At(2, 1))*r, float32(rot.At(2, 2))*r
	m.M12, m.M13, m.M14 = float32(pos[0]), float32(pos[1]), float32(pos[2])
	return m
}

// rgba converts a 0..1 object color to 8-bit channels.
func rgba(c object.Color) rl.Color {
	ch := func(v float64) uint8 { return uint8(vmath.Clamp(v, 0, 1)*255 + 0.5) }
	return rl.NewColor(ch(c.R), ch(c.G), ch(c.B), ch(c.A))
}

const (
	litVS = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;
in vec3 vertexNormal;
uniform mat4 matProjection;
uniform mat4 matView;
uniform mat4 matModel;
out vec3 fragPosition;
out vec3 fragNormal;
void main() {
  vec4 worldPos = matModel * vec4(vertexPosition, 1.0);
  fragPosition = worldPos.xyz;
  fragNormal = mat3(matModel) * vertexNormal;
  gl_Position = matProjection * matView * worldPos;
}
`
	litFS = `#version 330
in vec3 fragPosition;
in vec3 fragNormal;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec3 lightDir;
uniform vec4 ambient;
uniform vec3 lightColor;
uniform float lightIntensity;
uniform float specularPower;
uniform float specularStrength;
out vec4 finalColor;
void main() {
  vec4 tint = colDiffuse;
  vec3 N = normalize(fragNormal);
  vec3 L = normalize(lightDir);
  vec3 V = normalize(viewPos - fragPosition);
  float NdotL = max(dot(N, L), 0.0);
  vec3 diffuse = tint.rgb * NdotL * lightColor * lightIntensity;
  vec3 amb = ambient.rgb * tint.rgb;
  vec3 H = normalize(L + V);
  float spec = pow(max(dot(N, H), 0.0), specularPower) * specularStrength;
  vec3 specular = lightColor * spec * (NdotL > 0.0 ? 1.0 : 0.0);
  finalColor = vec4(amb + diffuse + specular, tint.a);
}
`
)
