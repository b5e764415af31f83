package plugin

import (
	"context"
	"errors"
	"testing"
)

type fakePlugin struct {
	info       Info
	configured bool
	initCalls  int
	startCalls int
	stopCalls  int
	startErr   error
	resources  map[string]any
}

func (f *fakePlugin) Info() Info { return f.info }

func (f *fakePlugin) Configure(cfg map[string]any) error {
	f.configured = true
	return nil
}

func (f *fakePlugin) Init(ctx *ExecutionContext) error {
	f.initCalls++
	f.resources = ctx.Resources
	return nil
}

func (f *fakePlugin) Start(*ExecutionContext) error {
	f.startCalls++
	return f.startErr
}

func (f *fakePlugin) Stop(*ExecutionContext) error {
	f.stopCalls++
	return nil
}

func TestManagerLifecycle(t *testing.T) {
	m, err := NewManager(ManagerConfig{}, WithResource("db", "handle"))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	p := &fakePlugin{info: Info{ID: "demo", Category: TypeWorkflow}}
	if err := m.Register("demo", p, nil, IsolationPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !p.configured {
		t.Fatal("expected Configure to be called during registration")
	}

	ctx := context.Background()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if p.initCalls != 1 || p.startCalls != 1 {
		t.Fatalf("unexpected lifecycle counts: init=%d start=%d", p.initCalls, p.startCalls)
	}
	if p.resources["db"] != "handle" {
		t.Fatalf("shared resource not exposed: %v", p.resources)
	}

	state, err := m.State("demo")
	if err != nil || state != StateStarted {
		t.Fatalf("unexpected state: %v %v", state, err)
	}

	// Starting an already running plugin is a no-op.
	if err := m.Start(ctx, "demo"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if p.startCalls != 1 {
		t.Fatalf("expected idempotent start, got %d calls", p.startCalls)
	}

	if err := m.StopAll(ctx); err != nil {
		t.Fatalf("stop all: %v", err)
	}
	if p.stopCalls != 1 {
		t.Fatalf("expected one stop call, got %d", p.stopCalls)
	}
	state, _ = m.State("demo")
	if state != StateStopped {
		t.Fatalf("unexpected state after stop: %v", state)
	}
}

func TestManagerRejectsDuplicateAndMismatch(t *testing.T) {
	m, err := NewManager(ManagerConfig{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	p := &fakePlugin{info: Info{ID: "demo"}}
	if err := m.Register("demo", p, nil, IsolationPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register("demo", &fakePlugin{info: Info{ID: "demo"}}, nil, IsolationPolicy{}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := m.Register("other", &fakePlugin{info: Info{ID: "demo"}}, nil, IsolationPolicy{}); err == nil {
		t.Fatal("expected id mismatch error")
	}
}

func TestManagerCapabilityPolicy(t *testing.T) {
	m, err := NewManager(ManagerConfig{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	p := &fakePlugin{info: Info{ID: "net", Capabilities: []Capability{CapabilityNetwork}}}
	if err := m.Register("net", p, nil, IsolationPolicy{}); err == nil {
		t.Fatal("expected error for capabilities without policy")
	}

	allowed := IsolationPolicy{AllowedCapabilities: []Capability{CapabilityNetwork}}
	if err := m.Register("net", p, nil, allowed); err != nil {
		t.Fatalf("register with policy: %v", err)
	}

	denied := &fakePlugin{info: Info{ID: "chain", Capabilities: []Capability{CapabilityChain}}}
	policy := IsolationPolicy{DeniedCapabilities: []Capability{CapabilityChain}}
	if err := m.Register("chain", denied, nil, policy); err == nil {
		t.Fatal("expected denied capability error")
	}
}

func TestManagerStartFailureKeepsInitialisedState(t *testing.T) {
	m, err := NewManager(ManagerConfig{})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	p := &fakePlugin{info: Info{ID: "flaky"}, startErr: errors.New("boom")}
	if err := m.Register("flaky", p, nil, IsolationPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Start(context.Background(), "flaky"); err == nil {
		t.Fatal("expected start error")
	}
	state, _ := m.State("flaky")
	if state != StateInitialised {
		t.Fatalf("unexpected state after failed start: %v", state)
	}
}
