package flows

// ExportRewrite is the node set shipped to the target runtime after link in
// nodes were turned into HTTP ingress endpoints.
type ExportRewrite struct {
	Nodes                      []Node
	ConvertedLinkInIdentifiers []string
	ResponseNodeIdentifiers    []string
}

// SourceRewrite is the full source snapshot after link out nodes feeding the
// migrated tab were turned into HTTP requests against the target runtime.
type SourceRewrite struct {
	Nodes                       []Node
	ConvertedLinkOutIdentifiers []string
	RemoteEndpoints             map[string]string
}

// RewriteExportedNodes converts every link in node of the exported set into an
// http in node listening on EndpointPath(id) and appends one http response node
// per converted node, wired from it. Existing wires of the converted nodes are
// kept in place; the response node is appended to the primary output group.
func RewriteExportedNodes(nodes []Node, generator IdentifierGenerator) ExportRewrite {
	rewritten := CloneNodes(nodes)
	if rewritten == nil {
		rewritten = []Node{}
	}

	convertedIdentifiers := make([]string, 0)
	responseNodes := make([]Node, 0)
	for nodeIndex, node := range rewritten {
		if node.Kind() != KindLinkIn {
			continue
		}
		ingress := ConvertLinkInToHTTPIn(node, EndpointPath(node.ID))
		response := NewResponseNode(ingress, generator)
		rewritten[nodeIndex] = LinkNodes(ingress, response)

		convertedIdentifiers = append(convertedIdentifiers, ingress.ID)
		responseNodes = append(responseNodes, response)
	}

	return ExportRewrite{
		Nodes:                      append(rewritten, responseNodes...),
		ConvertedLinkInIdentifiers: convertedIdentifiers,
		ResponseNodeIdentifiers:    Identifiers(responseNodes),
	}
}

// RewriteRemainingSource converts, in a copy of the source snapshot, every
// single-target link out node whose target is a link in node of the migrated
// tab into an http request node posting to EndpointURL(targetBaseURL, target).
// Link out nodes with zero or several targets, or targeting nodes outside the
// tab, are left untouched.
func RewriteRemainingSource(snapshot []Node, tabIdentifier string, targetBaseURL string) SourceRewrite {
	rewritten := CloneNodes(snapshot)
	if rewritten == nil {
		rewritten = []Node{}
	}

	linkIndex := BuildLinkIndex(rewritten)
	convertedIdentifiers := make([]string, 0)
	remoteEndpoints := make(map[string]string)
	for _, endpoint := range rewritten {
		if endpoint.Kind() != KindLinkIn || !endpoint.BelongsToTab(tabIdentifier) {
			continue
		}
		remoteURL := EndpointURL(targetBaseURL, endpoint.ID)
		remoteEndpoints[endpoint.ID] = remoteURL

		for _, position := range linkIndex.LinkOutPositions(endpoint.ID) {
			rewritten[position] = ConvertLinkOutToHTTPRequest(rewritten[position], remoteURL)
			convertedIdentifiers = append(convertedIdentifiers, rewritten[position].ID)
		}
	}

	return SourceRewrite{
		Nodes:                       rewritten,
		ConvertedLinkOutIdentifiers: convertedIdentifiers,
		RemoteEndpoints:             remoteEndpoints,
	}
}
