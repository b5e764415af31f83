package builtin

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"TrendMint/internal/cache"
	"TrendMint/internal/engage"
	"TrendMint/internal/llm"
	"TrendMint/internal/runtime"
	"TrendMint/internal/social"
	"TrendMint/pkg/plugin"
)

type loopSocial struct {
	social.Client

	searches atomic.Int32
}

func (s *loopSocial) SearchPosts(context.Context, string, int, social.SearchMode) ([]social.Post, error) {
	s.searches.Add(1)
	return nil, nil
}

func (s *loopSocial) HomeTimeline(context.Context, int) ([]social.Post, error) {
	return nil, nil
}

type silentLLM struct{}

func (silentLLM) Generate(context.Context, llm.Request) (string, error) { return "", nil }

func TestSearchEngagePluginRunsAndStops(t *testing.T) {
	soc := &loopSocial{}
	persona := runtime.Persona{ID: "agent-1", Name: "Trend Bot", Handle: "trendbot", Topics: []string{"ai"}}
	store := cache.NewMemory()
	engager, err := engage.New(soc, silentLLM{}, nil, store,
		runtime.NewMemoryStore(store), runtime.NewComposer(persona), nil,
		persona, engage.Config{
			MinInterval:   time.Millisecond,
			MaxInterval:   5 * time.Millisecond,
			SearchLimit:   5,
			TimelineLimit: 5,
		})
	if err != nil {
		t.Fatalf("new engager: %v", err)
	}

	manager, err := plugin.NewManager(plugin.ManagerConfig{
		Defaults: plugin.IsolationPolicy{
			AllowedCapabilities: []plugin.Capability{
				plugin.CapabilityNetwork,
				plugin.CapabilityLLM,
			},
		},
	}, plugin.WithResource(ResourceEngager, engager))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := manager.Register("search_engage", NewSearchEngagePlugin(), nil, plugin.IsolationPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.StartAll(ctx); err != nil {
		t.Fatalf("start all: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for soc.searches.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if soc.searches.Load() == 0 {
		t.Fatal("engagement loop never ran a pass")
	}

	stopCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
	defer stop()
	if err := manager.StopAll(stopCtx); err != nil {
		t.Fatalf("stop all: %v", err)
	}
}
