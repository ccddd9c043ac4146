package routecache

// DefaultOptions returns the options every production server should carry:
// panic recovery and request IDs.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
	}
}
