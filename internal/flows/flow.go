package flows

// FlowDescriptor is one tab exported as a unit: the tab descriptor, its nodes,
// and the configuration nodes that travel with it.
type FlowDescriptor struct {
	ID       string `json:"id,omitempty"`
	Label    string `json:"label"`
	Nodes    []Node `json:"nodes"`
	Configs  []Node `json:"configs,omitempty"`
	Subflows []Node `json:"subflows,omitempty"`
}

// Clone deep-copies the descriptor and every node it carries.
func (descriptor FlowDescriptor) Clone() FlowDescriptor {
	return FlowDescriptor{
		ID:       descriptor.ID,
		Label:    descriptor.Label,
		Nodes:    CloneNodes(descriptor.Nodes),
		Configs:  CloneNodes(descriptor.Configs),
		Subflows: CloneNodes(descriptor.Subflows),
	}
}

// GlobalFlow holds the configuration nodes shared by every tab of a runtime.
type GlobalFlow struct {
	ID       string `json:"id"`
	Configs  []Node `json:"configs"`
	Subflows []Node `json:"subflows,omitempty"`
}

// Clone deep-copies the global flow.
func (globalFlow GlobalFlow) Clone() GlobalFlow {
	return GlobalFlow{
		ID:       globalFlow.ID,
		Configs:  CloneNodes(globalFlow.Configs),
		Subflows: CloneNodes(globalFlow.Subflows),
	}
}
