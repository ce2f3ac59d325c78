package mesh

// BatchBuilderOption is a functional option used to configure a Batch during construction.
type BatchBuilderOption func(*batch)

// WithBatchName sets the name the batch's systems are registered under.
//
// Parameters:
//   - name: the batch name
//
// Returns:
//   - BatchBuilderOption: a function that sets the name
func WithBatchName(name string) BatchBuilderOption {
	return func(b *batch) {
		b.name = name
	}
}

// WithWorkers sets the maximum number of pool workers computing uniforms.
// Defaults to one less than the number of CPUs, and at least 1.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - BatchBuilderOption: a function that sets the worker count
func WithWorkers(n int) BatchBuilderOption {
	return func(b *batch) {
		if n > 0 {
			b.workers = n
		}
	}
}
