package flows

const (
	endpointPathPrefixConstant         = "/"
	httpInMethodConstant               = "post"
	httpRequestMethodConstant          = "POST"
	responseNodeVerticalOffsetConstant = 30
	primaryOutputGroupIndexConstant    = 0
)

// EndpointPath derives the HTTP path that replaces a link in node. It depends on
// the node identifier alone so repeated migrations agree on it.
func EndpointPath(linkInIdentifier string) string {
	return endpointPathPrefixConstant + linkInIdentifier
}

// EndpointURL derives the remote URL a link out node calls once its link in
// partner lives on the target runtime.
func EndpointURL(targetBaseURL string, linkInIdentifier string) string {
	return targetBaseURL + EndpointPath(linkInIdentifier)
}

// NewNode creates a node of the provided type with a freshly generated identifier.
func NewNode(nodeType NodeType, generator IdentifierGenerator) Node {
	if generator == nil {
		generator = NewIdentifier
	}
	return Node{ID: generator(), Type: nodeType}
}

// ConvertLinkInToHTTPIn turns a link in node into an HTTP ingress listening for
// posted payloads on path. Identity, position and wires are kept.
func ConvertLinkInToHTTPIn(node Node, path string) Node {
	converted := node.Clone()
	converted.Type = TypeHTTPIn
	converted = converted.WithStringAttribute(urlAttributeNameConstant, path)
	return converted.WithStringAttribute(methodAttributeNameConstant, httpInMethodConstant)
}

// ConvertLinkOutToHTTPRequest turns a link out node into an HTTP egress posting to url.
func ConvertLinkOutToHTTPRequest(node Node, url string) Node {
	converted := node.Clone()
	converted.Type = TypeHTTPRequest
	converted = converted.WithStringAttribute(urlAttributeNameConstant, url)
	return converted.WithStringAttribute(methodAttributeNameConstant, httpRequestMethodConstant)
}

// NewResponseNode creates the HTTP response node answering requests received
// by ingress: same tab, placed just below it.
func NewResponseNode(ingress Node, generator IdentifierGenerator) Node {
	response := NewNode(TypeHTTPResponse, generator)
	response.Z = ingress.Z
	response.X = cloneCoordinate(ingress.X)
	if ingress.Y != nil {
		response.Y = Float64Pointer(*ingress.Y + responseNodeVerticalOffsetConstant)
	}
	return response
}

// LinkNodes returns a copy of output with input appended to its primary output group.
func LinkNodes(output Node, input Node) Node {
	linked := output.Clone()
	if len(linked.Wires) == 0 {
		linked.Wires = [][]string{{}}
	}
	linked.Wires[primaryOutputGroupIndexConstant] = append(linked.Wires[primaryOutputGroupIndexConstant], input.ID)
	return linked
}

// LinkIndex maps a link target identifier to the positions of the link out
// nodes that reference it. Link out nodes with zero or several targets are not
// indexed: fan-out links are never converted.
type LinkIndex struct {
	positionsByTarget map[string][]int
}

// BuildLinkIndex indexes the single-target link out nodes of the provided sequence.
func BuildLinkIndex(nodes []Node) LinkIndex {
	positionsByTarget := make(map[string][]int)
	for position, node := range nodes {
		if node.Kind() != KindLinkOut || len(node.Links) != 1 {
			continue
		}
		target := node.Links[0]
		positionsByTarget[target] = append(positionsByTarget[target], position)
	}
	return LinkIndex{positionsByTarget: positionsByTarget}
}

// LinkOutPositions returns the positions of link out nodes targeting the identifier.
func (index LinkIndex) LinkOutPositions(targetIdentifier string) []int {
	return append([]int(nil), index.positionsByTarget[targetIdentifier]...)
}
