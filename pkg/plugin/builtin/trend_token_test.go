package builtin

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"TrendMint/internal/launch"
	"TrendMint/pkg/plugin"
)

type countingExecutor struct {
	calls atomic.Int32
}

func (c *countingExecutor) Execute(_ context.Context, trend string) (*launch.Record, error) {
	c.calls.Add(1)
	return &launch.Record{Name: "Demo", Ticker: "DEMO", SourceTrend: trend, LaunchedAt: time.Now().Unix()}, nil
}

func TestTrendTokenPluginProcessesSubmittedLaunch(t *testing.T) {
	store := launch.NewMemoryStore()
	queue := launch.NewMemoryQueue(16)
	service := launch.NewService(store, queue, 3)
	executor := &countingExecutor{}
	processor := launch.NewProcessor(executor, store, queue, queue)

	manager, err := plugin.NewManager(plugin.ManagerConfig{
		Defaults: plugin.IsolationPolicy{
			AllowedCapabilities: []plugin.Capability{
				plugin.CapabilityNetwork,
				plugin.CapabilityChain,
				plugin.CapabilityLLM,
			},
		},
	}, plugin.WithResource(ResourceLaunchProcessor, processor))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := manager.Register("trend_token", NewTrendTokenPlugin(), nil, plugin.IsolationPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.StartAll(ctx); err != nil {
		t.Fatalf("start all: %v", err)
	}

	submitted, err := service.Submit(ctx, launch.SubmitRequest{Trend: "AI"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	done, err := service.WaitUntilCompleted(ctx, submitted.ID, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if done.Status != launch.StatusSucceeded {
		t.Fatalf("unexpected status: %s (%s)", done.Status, done.LastError)
	}
	if executor.calls.Load() == 0 {
		t.Fatal("executor was never invoked")
	}

	if err := manager.StopAll(context.Background()); err != nil {
		t.Fatalf("stop all: %v", err)
	}
}
