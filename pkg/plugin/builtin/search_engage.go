package builtin

import (
	"context"
	"errors"
	"sync"

	"TrendMint/internal/engage"
	"TrendMint/pkg/plugin"
)

// SearchEngagePlugin runs the search-and-reply loop as a managed workflow.
type SearchEngagePlugin struct {
	mu      sync.Mutex
	engager *engage.Engager
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSearchEngagePlugin constructs the plugin shell.
func NewSearchEngagePlugin() *SearchEngagePlugin {
	return &SearchEngagePlugin{}
}

// Info implements plugin.Plugin.
func (p *SearchEngagePlugin) Info() plugin.Info {
	return plugin.Info{
		ID:          "search_engage",
		Name:        "Search and Reply Engager",
		Description: "Searches topical posts and replies in persona on a random cadence.",
		Version:     "1.0.0",
		Category:    plugin.TypeWorkflow,
		Capabilities: []plugin.Capability{
			plugin.CapabilityNetwork,
			plugin.CapabilityLLM,
		},
	}
}

// Configure implements plugin.Plugin.
func (p *SearchEngagePlugin) Configure(map[string]any) error { return nil }

// Init resolves the engager from shared resources.
func (p *SearchEngagePlugin) Init(ctx *plugin.ExecutionContext) error {
	if ctx == nil {
		return errors.New("execution context is nil")
	}
	engager, ok := ctx.Resources[ResourceEngager].(*engage.Engager)
	if !ok || engager == nil {
		return errors.New("search_engage requires an engager resource")
	}
	p.mu.Lock()
	p.engager = engager
	p.mu.Unlock()
	return nil
}

// Start spawns the engagement loop.
func (p *SearchEngagePlugin) Start(ctx *plugin.ExecutionContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}
	base := context.Background()
	if ctx != nil && ctx.C != nil {
		base = ctx.C
	}
	runCtx, cancel := context.WithCancel(base)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.engager.Run(runCtx)
	}()
	return nil
}

// Stop cancels the loop and waits for it to drain.
func (p *SearchEngagePlugin) Stop(*plugin.ExecutionContext) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

var _ plugin.Plugin = (*SearchEngagePlugin)(nil)
