package plugin

import "context"

// Plugin is the lifecycle contract every workflow plugin implements. The
// manager drives plugins through Configure, Init, Start and Stop; a plugin
// that owns background loops is expected to spawn them in Start and join
// them in Stop.
type Plugin interface {
	// Info returns static metadata about the plugin.
	Info() Info
	// Configure lets the plugin inspect and default its configuration block
	// before initialisation.
	Configure(cfg map[string]any) error
	// Init prepares the plugin, typically resolving shared resources from the
	// execution context.
	Init(ctx *ExecutionContext) error
	// Start activates the plugin.
	Start(ctx *ExecutionContext) error
	// Stop halts the plugin and releases its resources.
	Stop(ctx *ExecutionContext) error
}

// ExecutionContext carries everything a plugin may need during a lifecycle
// stage: a cancellation context, its own configuration block, and the shared
// resources the host wired in (launch processor, engager, and so on).
type ExecutionContext struct {
	C         context.Context
	Config    map[string]any
	Resources map[string]any
}

// Clone returns a shallow copy with freshly-allocated maps so a plugin can
// mutate them without affecting siblings.
func (c *ExecutionContext) Clone() *ExecutionContext {
	if c == nil {
		return nil
	}
	dup := &ExecutionContext{C: c.C}
	if c.Config != nil {
		dup.Config = make(map[string]any, len(c.Config))
		for k, v := range c.Config {
			dup.Config[k] = v
		}
	}
	if c.Resources != nil {
		dup.Resources = make(map[string]any, len(c.Resources))
		for k, v := range c.Resources {
			dup.Resources[k] = v
		}
	}
	return dup
}

// Option customises a Manager at construction time.
type Option func(*Manager)

// WithLoader replaces the loader used for plugins configured with a path.
func WithLoader(loader Loader) Option {
	return func(m *Manager) {
		if loader != nil {
			m.loader = loader
		}
	}
}

// WithIsolationStrategy replaces the capability enforcement strategy.
func WithIsolationStrategy(strategy IsolationStrategy) Option {
	return func(m *Manager) {
		if strategy != nil {
			m.isolation = strategy
		}
	}
}

// WithResource exposes a shared host service to every plugin under the given
// key.
func WithResource(key string, value any) Option {
	return func(m *Manager) {
		if key == "" || value == nil {
			return
		}
		if m.resources == nil {
			m.resources = make(map[string]any)
		}
		m.resources[key] = value
	}
}
