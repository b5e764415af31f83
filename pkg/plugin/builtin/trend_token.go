// Package builtin provides the in-process plugins that ship with the daemon:
// the trend token launcher and the search-and-reply engager.
package builtin

import (
	"context"
	"errors"
	"sync"

	"TrendMint/internal/launch"
	"TrendMint/pkg/plugin"
)

// Resource keys expected in the plugin execution context.
const (
	ResourceLaunchProcessor = "launch.processor"
	ResourceLaunchScanner   = "launch.scanner"
	ResourceEngager         = "engage.engager"
)

// TrendTokenPlugin runs the launch queue processor and the periodic trend
// scanner as a managed workflow.
type TrendTokenPlugin struct {
	mu        sync.Mutex
	processor *launch.Processor
	scanner   *launch.Scanner
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewTrendTokenPlugin constructs the plugin shell; collaborators are injected
// through manager resources during Init.
func NewTrendTokenPlugin() *TrendTokenPlugin {
	return &TrendTokenPlugin{}
}

// Info implements plugin.Plugin.
func (p *TrendTokenPlugin) Info() plugin.Info {
	return plugin.Info{
		ID:          "trend_token",
		Name:        "Trend Token Launcher",
		Description: "Watches trends and deploys ERC-20 tokens for unused ones.",
		Version:     "1.0.0",
		Category:    plugin.TypeWorkflow,
		Capabilities: []plugin.Capability{
			plugin.CapabilityNetwork,
			plugin.CapabilityChain,
			plugin.CapabilityLLM,
		},
	}
}

// Configure implements plugin.Plugin.
func (p *TrendTokenPlugin) Configure(map[string]any) error { return nil }

// Init resolves the launch collaborators from shared resources.
func (p *TrendTokenPlugin) Init(ctx *plugin.ExecutionContext) error {
	if ctx == nil {
		return errors.New("execution context is nil")
	}
	processor, ok := ctx.Resources[ResourceLaunchProcessor].(*launch.Processor)
	if !ok || processor == nil {
		return errors.New("trend_token requires a launch processor resource")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processor = processor
	// Scanner is optional: launches can also arrive through the REST API.
	if scanner, ok := ctx.Resources[ResourceLaunchScanner].(*launch.Scanner); ok {
		p.scanner = scanner
	}
	return nil
}

// Start spawns the processing and scanning loops.
func (p *TrendTokenPlugin) Start(ctx *plugin.ExecutionContext) error {
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
		_ = p.processor.Start(runCtx)
	}()
	if p.scanner != nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = p.scanner.Run(runCtx)
		}()
	}
	return nil
}

// Stop cancels the loops and waits for them to drain.
func (p *TrendTokenPlugin) Stop(*plugin.ExecutionContext) error {
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

var _ plugin.Plugin = (*TrendTokenPlugin)(nil)
