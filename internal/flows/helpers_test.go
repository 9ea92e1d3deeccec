package flows_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/flowpusher/internal/flows"
)

const testSubtestNameTemplateConstant = "%d_%s"

func subtestName(testCaseIndex int, name string) string {
	return fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, name)
}

func decodeNode(testInstance *testing.T, document string) flows.Node {
	testInstance.Helper()
	var node flows.Node
	require.NoError(testInstance, json.Unmarshal([]byte(document), &node))
	return node
}

func decodeNodes(testInstance *testing.T, document string) []flows.Node {
	testInstance.Helper()
	var nodes []flows.Node
	require.NoError(testInstance, json.Unmarshal([]byte(document), &nodes))
	return nodes
}

func encodeNodes(testInstance *testing.T, nodes []flows.Node) string {
	testInstance.Helper()
	encoded, encodeError := json.Marshal(nodes)
	require.NoError(testInstance, encodeError)
	return string(encoded)
}

func nodeByIdentifier(testInstance *testing.T, nodes []flows.Node, identifier string) flows.Node {
	testInstance.Helper()
	for _, node := range nodes {
		if node.ID == identifier {
			return node
		}
	}
	require.FailNow(testInstance, "node not found", identifier)
	return flows.Node{}
}

func sequentialIdentifiers(prefix string) flows.IdentifierGenerator {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s%d", prefix, counter)
	}
}
