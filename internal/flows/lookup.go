package flows

import "strings"

const xivelyConfigurationTypeConstant = NodeType("xively-config")

// DefaultExcludedConfigTypes lists configuration node types that are local to a
// runtime and never migrated: the dashboard base node and infrastructure configs.
func DefaultExcludedConfigTypes() []NodeType {
	return []NodeType{TypeUIBase, xivelyConfigurationTypeConstant}
}

// FindTab returns the tab node carrying the provided label.
func FindTab(nodes []Node, label string) (Node, error) {
	matchingTabs := make([]Node, 0, 1)
	for _, node := range nodes {
		if node.Kind() == KindTab && node.Label() == label {
			matchingTabs = append(matchingTabs, node)
		}
	}

	switch len(matchingTabs) {
	case 0:
		return Node{}, TabNotFoundError{Label: label}
	case 1:
		return matchingTabs[0].Clone(), nil
	default:
		tabIdentifiers := make([]string, 0, len(matchingTabs))
		for _, tab := range matchingTabs {
			tabIdentifiers = append(tabIdentifiers, tab.ID)
		}
		return Node{}, AmbiguousTabError{Label: label, TabIdentifiers: tabIdentifiers}
	}
}

// NodesInTab returns the nodes of a fetched tab without subflow definitions.
// Subflow instances stay in the result as opaque nodes.
func NodesInTab(flow FlowDescriptor) []Node {
	return filterNodes(flow.Nodes, func(node Node) bool {
		return node.Kind() != KindSubflowDefinition
	})
}

// ConfigNodesOf returns the migratable configuration nodes of the global flow.
// The default exclusions always apply; additional types extend them.
func ConfigNodesOf(globalFlow GlobalFlow, additionalExcludedTypes []NodeType) []Node {
	excludedTypes := make(map[NodeType]struct{})
	for _, excludedType := range DefaultExcludedConfigTypes() {
		excludedTypes[excludedType] = struct{}{}
	}
	for _, excludedType := range additionalExcludedTypes {
		trimmedType := NodeType(strings.TrimSpace(string(excludedType)))
		if len(trimmedType) == 0 {
			continue
		}
		excludedTypes[trimmedType] = struct{}{}
	}

	return filterNodes(globalFlow.Configs, func(node Node) bool {
		_, excluded := excludedTypes[node.Type]
		return !excluded
	})
}

// Difference returns the nodes of left whose identifier is absent from right,
// preserving the order of left. Only identifiers are compared.
func Difference(left []Node, right []Node) []Node {
	rightIdentifiers := make(map[string]struct{}, len(right))
	for _, node := range right {
		rightIdentifiers[node.ID] = struct{}{}
	}

	return filterNodes(left, func(node Node) bool {
		_, present := rightIdentifiers[node.ID]
		return !present
	})
}

// NodesOfKind returns clones of the nodes matching the provided kind.
func NodesOfKind(nodes []Node, kind NodeKind) []Node {
	return filterNodes(nodes, func(node Node) bool {
		return node.Kind() == kind
	})
}

// Identifiers lists the identifiers of the provided nodes in order.
func Identifiers(nodes []Node) []string {
	identifiers := make([]string, 0, len(nodes))
	for _, node := range nodes {
		identifiers = append(identifiers, node.ID)
	}
	return identifiers
}

// ValidateSnapshot checks that identifiers are unique across the snapshot and
// that every wire and link of a node on the given tab resolves within it.
// Stale references on other tabs are left to their owners.
func ValidateSnapshot(nodes []Node, tabID string) error {
	knownIdentifiers := make(map[string]struct{}, len(nodes))
	duplicateIdentifiers := make([]string, 0)
	for _, node := range nodes {
		if _, seen := knownIdentifiers[node.ID]; seen {
			duplicateIdentifiers = append(duplicateIdentifiers, node.ID)
			continue
		}
		knownIdentifiers[node.ID] = struct{}{}
	}
	if len(duplicateIdentifiers) > 0 {
		return DuplicateIdentifierError{Identifiers: duplicateIdentifiers}
	}

	unresolvedReferences := make([]UnresolvedReference, 0)
	for _, node := range nodes {
		if !node.BelongsToTab(tabID) {
			continue
		}
		for _, group := range node.Wires {
			for _, target := range group {
				if _, known := knownIdentifiers[target]; !known {
					unresolvedReferences = append(unresolvedReferences, UnresolvedReference{NodeID: node.ID, Target: target, Relation: ReferenceRelationWire})
				}
			}
		}
		for _, target := range node.Links {
			if _, known := knownIdentifiers[target]; !known {
				unresolvedReferences = append(unresolvedReferences, UnresolvedReference{NodeID: node.ID, Target: target, Relation: ReferenceRelationLink})
			}
		}
	}
	if len(unresolvedReferences) > 0 {
		return UnresolvedReferenceError{References: unresolvedReferences}
	}

	return nil
}

func filterNodes(nodes []Node, keep func(Node) bool) []Node {
	filtered := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		if keep(node) {
			filtered = append(filtered, node.Clone())
		}
	}
	return filtered
}
