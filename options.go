package segheap

// Option configures a new Allocator. See NewAllocator.
type Option func(*config)

type config struct {
	src         brkSource
	arenaSize   uintptr
	withMetrics bool
}

// WithBrkSource overrides the default OS-backed brk collaborator, e.g.
// with a boundedBrk for tests or a sandboxed host. Mutually exclusive
// with WithArenaSize, which only configures the default OS-backed source.
func WithBrkSource(src brkSource) Option {
	return func(c *config) { c.src = src }
}

// WithArenaSize overrides the default 1 GiB upfront reservation used by
// the default OS-backed brk collaborator. Ignored if WithBrkSource is
// also given.
func WithArenaSize(n uintptr) Option {
	return func(c *config) { c.arenaSize = n }
}

// WithMetrics enables the optional Prometheus collector wiring described
// in SPEC_FULL.md §7.3. Off by default so importing this package never
// has side effects on a process's default metrics registry.
func WithMetrics() Option {
	return func(c *config) { c.withMetrics = true }
}
