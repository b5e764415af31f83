package plugin

// Type represents the functional category of a plugin.
type Type string

const (
	// TypeWorkflow plugins drive autonomous background loops such as the
	// token launcher or the reply engager.
	TypeWorkflow Type = "workflow"
	// TypeDataSource plugins are responsible for providing raw data to the system.
	TypeDataSource Type = "datasource"
)

// Capability expresses optional features a plugin may request access to.
type Capability string

const (
	CapabilityNetwork Capability = "network"
	CapabilityChain   Capability = "chain"
	CapabilityLLM     Capability = "llm"
)

// Info contains descriptive metadata for a plugin implementation.
type Info struct {
	ID           string
	Name         string
	Description  string
	Author       string
	Version      string
	Category     Type
	Capabilities []Capability
}

// State represents the lifecycle position of a plugin instance.
type State string

const (
	StateRegistered  State = "registered"
	StateInitialised State = "initialised"
	StateStarted     State = "started"
	StateStopped     State = "stopped"
)
