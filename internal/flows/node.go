package flows

import (
	"encoding/json"
	"strings"
)

const (
	identifierAttributeNameConstant      = "id"
	typeAttributeNameConstant            = "type"
	tabAttributeNameConstant             = "z"
	horizontalAttributeNameConstant      = "x"
	verticalAttributeNameConstant        = "y"
	wiresAttributeNameConstant           = "wires"
	linksAttributeNameConstant           = "links"
	labelAttributeNameConstant           = "label"
	urlAttributeNameConstant             = "url"
	methodAttributeNameConstant          = "method"
	subflowInstancePrefixConstant        = "subflow:"
	globalFlowIdentifierConstant         = "global"
	nodeDocumentNotObjectMessageConstant = "node document is not a JSON object"
)

// NodeType is the Node-RED type tag of a node.
type NodeType string

// Node types the migration reasons about.
const (
	TypeTab          NodeType = NodeType("tab")
	TypeSubflow      NodeType = NodeType("subflow")
	TypeLinkIn       NodeType = NodeType("link in")
	TypeLinkOut      NodeType = NodeType("link out")
	TypeHTTPIn       NodeType = NodeType("http in")
	TypeHTTPResponse NodeType = NodeType("http response")
	TypeHTTPRequest  NodeType = NodeType("http request")
	TypeUIBase       NodeType = NodeType("ui_base")
)

// GlobalFlowIdentifier is the pseudo-tab identifier holding shared configuration nodes.
const GlobalFlowIdentifier = globalFlowIdentifierConstant

// NodeKind enumerates the closed set of node variants with migration semantics.
type NodeKind int

// Node kinds. KindOpaque covers every type the migration passes through verbatim.
const (
	KindOpaque NodeKind = iota
	KindTab
	KindSubflowDefinition
	KindLinkIn
	KindLinkOut
	KindHTTPIn
	KindHTTPResponse
	KindHTTPRequest
)

var nodeKindByType = map[NodeType]NodeKind{
	TypeTab:          KindTab,
	TypeSubflow:      KindSubflowDefinition,
	TypeLinkIn:       KindLinkIn,
	TypeLinkOut:      KindLinkOut,
	TypeHTTPIn:       KindHTTPIn,
	TypeHTTPResponse: KindHTTPResponse,
	TypeHTTPRequest:  KindHTTPRequest,
}

// Node is one element of a flow snapshot.
//
// Z, X, Y, Wires and Links keep their presence: an empty Z, nil coordinates and
// nil slices are omitted on encoding, while an empty non-nil slice encodes as [].
type Node struct {
	ID    string
	Type  NodeType
	Z     string
	X     *float64
	Y     *float64
	Wires [][]string
	Links []string

	attributes map[string]json.RawMessage
}

// Kind resolves the variant of the node from its type tag.
func (node Node) Kind() NodeKind {
	if kind, known := nodeKindByType[node.Type]; known {
		return kind
	}
	return KindOpaque
}

// IsSubflowInstance reports whether the node references a subflow definition.
func (node Node) IsSubflowInstance() bool {
	return strings.HasPrefix(string(node.Type), subflowInstancePrefixConstant)
}

// BelongsToTab reports whether the node is owned by the tab with the provided identifier.
func (node Node) BelongsToTab(tabIdentifier string) bool {
	return len(node.Z) > 0 && node.Z == tabIdentifier
}

// Label returns the label attribute, used by tabs.
func (node Node) Label() string {
	label, _ := node.StringAttribute(labelAttributeNameConstant)
	return label
}

// URL returns the url attribute carried by HTTP nodes.
func (node Node) URL() string {
	url, _ := node.StringAttribute(urlAttributeNameConstant)
	return url
}

// Method returns the method attribute carried by HTTP nodes.
func (node Node) Method() string {
	method, _ := node.StringAttribute(methodAttributeNameConstant)
	return method
}

// StringAttribute reads an opaque attribute as a string.
func (node Node) StringAttribute(attributeName string) (string, bool) {
	rawValue, present := node.attributes[attributeName]
	if !present {
		return "", false
	}
	var decodedValue string
	if decodeError := json.Unmarshal(rawValue, &decodedValue); decodeError != nil {
		return "", false
	}
	return decodedValue, true
}

// Attribute returns the raw JSON of an opaque attribute.
func (node Node) Attribute(attributeName string) (json.RawMessage, bool) {
	rawValue, present := node.attributes[attributeName]
	if !present {
		return nil, false
	}
	return append(json.RawMessage(nil), rawValue...), true
}

// AttributeNames lists the opaque attribute names carried by the node.
func (node Node) AttributeNames() []string {
	names := make([]string, 0, len(node.attributes))
	for attributeName := range node.attributes {
		names = append(names, attributeName)
	}
	return names
}

// WithStringAttribute returns a copy of the node with the attribute set to the provided string.
func (node Node) WithStringAttribute(attributeName string, value string) Node {
	updated := node.Clone()
	encodedValue, _ := json.Marshal(value)
	if updated.attributes == nil {
		updated.attributes = make(map[string]json.RawMessage)
	}
	updated.attributes[attributeName] = encodedValue
	return updated
}

// Clone produces a deep copy sharing no mutable state with the receiver.
func (node Node) Clone() Node {
	cloned := Node{
		ID:   node.ID,
		Type: node.Type,
		Z:    node.Z,
		X:    cloneCoordinate(node.X),
		Y:    cloneCoordinate(node.Y),
	}

	if node.Wires != nil {
		cloned.Wires = make([][]string, len(node.Wires))
		for groupIndex, group := range node.Wires {
			if group != nil {
				cloned.Wires[groupIndex] = append([]string{}, group...)
			}
		}
	}

	if node.Links != nil {
		cloned.Links = append([]string{}, node.Links...)
	}

	if node.attributes != nil {
		cloned.attributes = make(map[string]json.RawMessage, len(node.attributes))
		for attributeName, rawValue := range node.attributes {
			cloned.attributes[attributeName] = append(json.RawMessage(nil), rawValue...)
		}
	}

	return cloned
}

// CloneNodes deep-copies every node of the provided sequence.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	cloned := make([]Node, len(nodes))
	for nodeIndex := range nodes {
		cloned[nodeIndex] = nodes[nodeIndex].Clone()
	}
	return cloned
}

// MarshalJSON encodes the node with its opaque attributes restored.
func (node Node) MarshalJSON() ([]byte, error) {
	document := make(map[string]json.RawMessage, len(node.attributes)+7)
	for attributeName, rawValue := range node.attributes {
		document[attributeName] = rawValue
	}

	if encodeError := encodeAttribute(document, identifierAttributeNameConstant, node.ID); encodeError != nil {
		return nil, encodeError
	}
	if encodeError := encodeAttribute(document, typeAttributeNameConstant, node.Type); encodeError != nil {
		return nil, encodeError
	}
	if len(node.Z) > 0 {
		if encodeError := encodeAttribute(document, tabAttributeNameConstant, node.Z); encodeError != nil {
			return nil, encodeError
		}
	}
	if node.X != nil {
		if encodeError := encodeAttribute(document, horizontalAttributeNameConstant, *node.X); encodeError != nil {
			return nil, encodeError
		}
	}
	if node.Y != nil {
		if encodeError := encodeAttribute(document, verticalAttributeNameConstant, *node.Y); encodeError != nil {
			return nil, encodeError
		}
	}
	if node.Wires != nil {
		if encodeError := encodeAttribute(document, wiresAttributeNameConstant, normalizeWires(node.Wires)); encodeError != nil {
			return nil, encodeError
		}
	}
	if node.Links != nil {
		if encodeError := encodeAttribute(document, linksAttributeNameConstant, node.Links); encodeError != nil {
			return nil, encodeError
		}
	}

	return json.Marshal(document)
}

// UnmarshalJSON decodes typed fields and retains all remaining attributes verbatim.
func (node *Node) UnmarshalJSON(data []byte) error {
	var document map[string]json.RawMessage
	if decodeError := json.Unmarshal(data, &document); decodeError != nil {
		return AttributeDecodingError{Attribute: "", Cause: decodeError}
	}
	if document == nil {
		return AttributeDecodingError{Attribute: "", Message: nodeDocumentNotObjectMessageConstant}
	}

	decoded := Node{}
	for attributeName, rawValue := range document {
		var decodeError error
		switch attributeName {
		case identifierAttributeNameConstant:
			decodeError = json.Unmarshal(rawValue, &decoded.ID)
		case typeAttributeNameConstant:
			decodeError = json.Unmarshal(rawValue, &decoded.Type)
		case tabAttributeNameConstant:
			decodeError = json.Unmarshal(rawValue, &decoded.Z)
		case horizontalAttributeNameConstant:
			decoded.X, decodeError = decodeCoordinate(rawValue)
		case verticalAttributeNameConstant:
			decoded.Y, decodeError = decodeCoordinate(rawValue)
		case wiresAttributeNameConstant:
			decodeError = json.Unmarshal(rawValue, &decoded.Wires)
		case linksAttributeNameConstant:
			decodeError = json.Unmarshal(rawValue, &decoded.Links)
		default:
			if decoded.attributes == nil {
				decoded.attributes = make(map[string]json.RawMessage)
			}
			decoded.attributes[attributeName] = append(json.RawMessage(nil), rawValue...)
		}
		if decodeError != nil {
			return AttributeDecodingError{Attribute: attributeName, Cause: decodeError}
		}
	}

	*node = decoded
	return nil
}

// Float64Pointer returns a pointer to a copy of the provided coordinate.
func Float64Pointer(value float64) *float64 {
	return &value
}

func cloneCoordinate(coordinate *float64) *float64 {
	if coordinate == nil {
		return nil
	}
	return Float64Pointer(*coordinate)
}

func decodeCoordinate(rawValue json.RawMessage) (*float64, error) {
	var coordinate *float64
	if decodeError := json.Unmarshal(rawValue, &coordinate); decodeError != nil {
		return nil, decodeError
	}
	return coordinate, nil
}

func encodeAttribute(document map[string]json.RawMessage, attributeName string, value any) error {
	encodedValue, encodeError := json.Marshal(value)
	if encodeError != nil {
		return AttributeEncodingError{Attribute: attributeName, Cause: encodeError}
	}
	document[attributeName] = encodedValue
	return nil
}

// normalizeWires keeps nil groups from encoding as null.
func normalizeWires(wires [][]string) [][]string {
	normalized := make([][]string, len(wires))
	for groupIndex, group := range wires {
		if group == nil {
			normalized[groupIndex] = []string{}
			continue
		}
		normalized[groupIndex] = group
	}
	return normalized
}
