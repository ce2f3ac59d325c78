package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFov is the vertical field of view, 2*atan(1/2) radians.
var DefaultFov = 2 * math32.Atan(0.5)

type cameraImpl struct {
	mu *sync.Mutex

	focalPoint mgl32.Vec3
	pitch      float32
	yaw        float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	view       mgl32.Mat4
	projection mgl32.Mat4
}

// Camera produces the view and projection matrices for the mesh uniforms.
//
// The camera sits at a focal point and is turned by pitch about X and yaw about Y. Clip space
// is left-handed with depth in [0, 1], the convention WebGPU rasterizes in, so the camera looks
// down +Z.
type Camera interface {
	// FocalPoint returns the camera position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the focal point
	FocalPoint() mgl32.Vec3

	// Pitch returns the rotation about the X axis in radians.
	Pitch() float32

	// Yaw returns the rotation about the Y axis in radians.
	Yaw() float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// View returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the world to view transform
	View() mgl32.Mat4

	// Projection returns the current projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view to clip transform
	Projection() mgl32.Mat4

	// SetFocalPoint moves the camera and recomputes the view matrix.
	//
	// Parameters:
	//   - p: the new focal point
	SetFocalPoint(p mgl32.Vec3)

	// SetOrientation sets pitch and yaw in radians and recomputes the view matrix.
	//
	// Parameters:
	//   - pitch: rotation about X
	//   - yaw: rotation about Y
	SetOrientation(pitch, yaw float32)

	// SetAspect sets the aspect ratio and recomputes the projection matrix.
	// Non-positive values are ignored so a minimized window keeps its last projection.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetViewport sets the aspect ratio from a surface size, as SetAspect does.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	SetViewport(width, height int)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera. Without options it reproduces the demo camera: focal point
// (0, 1, -10), pitched down by 0.5 radians, a DefaultFov lens at 640/480 with planes at
// 0.001 and 100.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		focalPoint: mgl32.Vec3{0, 1, -10},
		pitch:      -0.5,
		fov:        DefaultFov,
		aspect:     640.0 / 480.0,
		near:       0.001,
		far:        100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateView()
	c.updateProjection()
	return c
}

func (c *cameraImpl) FocalPoint() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focalPoint
}

func (c *cameraImpl) Pitch() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pitch
}

func (c *cameraImpl) Yaw() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yaw
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) SetFocalPoint(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focalPoint = p
	c.updateView()
}

func (c *cameraImpl) SetOrientation(pitch, yaw float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pitch = pitch
	c.yaw = yaw
	c.updateView()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 || math32.IsNaN(aspect) || math32.IsInf(aspect, 0) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateProjection()
}

func (c *cameraImpl) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.SetAspect(float32(width) / float32(height))
}

// updateView translates the world by the negated focal point after rotating it.
// Caller must hold the mutex.
func (c *cameraImpl) updateView() {
	t := mgl32.Translate3D(-c.focalPoint.X(), -c.focalPoint.Y(), -c.focalPoint.Z())
	r := mgl32.HomogRotate3DX(c.pitch).Mul4(mgl32.HomogRotate3DY(c.yaw))
	c.view = t.Mul4(r)
}

// updateProjection builds a left-handed perspective projection with depth in [0, 1].
// Caller must hold the mutex.
func (c *cameraImpl) updateProjection() {
	c.projection = PerspectiveLH(c.fov, c.aspect, c.near, c.far)
}

// PerspectiveLH returns a left-handed perspective projection that maps view depth near..far
// to clip depth 0..1.
//
// Parameters:
//   - fovy: the vertical field of view in radians
//   - aspect: the aspect ratio (width / height)
//   - near: the near plane distance
//   - far: the far plane distance
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func PerspectiveLH(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := 1 / math32.Tan(fovy/2)
	depth := far / (far - near)
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, depth, 1,
		0, 0, -near * depth, 0,
	}
}
