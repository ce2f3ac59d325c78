package frame

// DefaultMaxSurfaceRetries is the number of consecutive skipped frames a Controller tolerates
// before Tick reports the surface as unavailable.
const DefaultMaxSurfaceRetries = 120

// ControllerBuilderOption is a functional option used to configure a Controller during construction.
type ControllerBuilderOption func(*controller)

// WithMaxSurfaceRetries sets how many consecutive frames may be skipped because the surface
// image could not be acquired before Tick returns the error. Zero means the first failure is
// returned. Negative values are ignored.
//
// Parameters:
//   - n: the number of tolerated consecutive skips
//
// Returns:
//   - ControllerBuilderOption: a function that sets the retry limit
func WithMaxSurfaceRetries(n int) ControllerBuilderOption {
	return func(c *controller) {
		if n >= 0 {
			c.maxSurfaceRetries = n
		}
	}
}

// WithSystem registers a system at construction, as AddSystem does.
// Systems with an unknown phase or a nil function are dropped.
//
// Parameters:
//   - phase: the phase the system runs in
//   - name: the system name
//   - fn: the system function
//
// Returns:
//   - ControllerBuilderOption: a function that appends the system
func WithSystem(phase Phase, name string, fn System) ControllerBuilderOption {
	return func(c *controller) {
		if phase >= PhasePreRender && phase <= PhasePostRender && fn != nil {
			c.phases[phase] = append(c.phases[phase], system{name: name, fn: fn})
		}
	}
}
