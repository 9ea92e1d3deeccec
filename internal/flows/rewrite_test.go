package flows_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/flowpusher/internal/flows"
)

const testSensorsSnapshotConstant = `[
	{"id":"t1","type":"tab","label":"sensors"},
	{"id":"t2","type":"tab","label":"consumers"},
	{"id":"n1","type":"link in","z":"t1","name":"readings","x":100,"y":40,"links":["n3"],"wires":[["n2"]]},
	{"id":"n2","type":"function","z":"t1","x":260,"y":40,"func":"return msg;","wires":[[]]},
	{"id":"n3","type":"link out","z":"t2","x":300,"y":80,"links":["n1"]},
	{"id":"n4","type":"inject","z":"t2","x":120,"y":80,"wires":[["n3","n6"]]},
	{"id":"n5","type":"link in","z":"t2","x":100,"y":160,"wires":[["n7"]]},
	{"id":"n6","type":"link out","z":"t2","x":320,"y":120,"links":["n5"]},
	{"id":"n7","type":"debug","z":"t2","x":300,"y":160,"wires":[]},
	{"id":"n8","type":"link out","z":"t2","x":320,"y":200,"links":["n1","n5"]},
	{"id":"n9","type":"link out","z":"t2","x":320,"y":240,"links":[]}
]`

func TestRewriteExportedNodes(testInstance *testing.T) {
	exported := decodeNodes(testInstance, `[
		{"id":"n1","type":"link in","z":"t1","x":100,"y":40,"wires":[["n2"]]},
		{"id":"n2","type":"function","z":"t1","wires":[[]]},
		{"id":"n10","type":"link in","z":"t1","x":100,"y":140,"wires":[]},
		{"id":"n11","type":"link out","z":"t1","links":["n1"]}
	]`)
	exportedBefore := encodeNodes(testInstance, exported)

	rewrite := flows.RewriteExportedNodes(exported, sequentialIdentifiers("r"))

	require.Equal(testInstance, []string{"n1", "n10"}, rewrite.ConvertedLinkInIdentifiers)
	require.Equal(testInstance, []string{"r1", "r2"}, rewrite.ResponseNodeIdentifiers)
	require.Equal(testInstance, []string{"n1", "n2", "n10", "n11", "r1", "r2"}, flows.Identifiers(rewrite.Nodes))
	require.JSONEq(testInstance, exportedBefore, encodeNodes(testInstance, exported))

	testCases := []struct {
		name               string
		ingressIdentifier  string
		responseIdentifier string
		expectedWires      [][]string
		expectedResponseY  float64
	}{
		{name: "wired_link_in", ingressIdentifier: "n1", responseIdentifier: "r1", expectedWires: [][]string{{"n2", "r1"}}, expectedResponseY: 70},
		{name: "unwired_link_in", ingressIdentifier: "n10", responseIdentifier: "r2", expectedWires: [][]string{{"r2"}}, expectedResponseY: 170},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(subtestName(testCaseIndex, testCase.name), func(testInstance *testing.T) {
			ingress := nodeByIdentifier(testInstance, rewrite.Nodes, testCase.ingressIdentifier)
			require.Equal(testInstance, flows.TypeHTTPIn, ingress.Type)
			require.Equal(testInstance, flows.EndpointPath(testCase.ingressIdentifier), ingress.URL())
			require.Equal(testInstance, "post", ingress.Method())
			require.Equal(testInstance, testCase.expectedWires, ingress.Wires)

			response := nodeByIdentifier(testInstance, rewrite.Nodes, testCase.responseIdentifier)
			require.Equal(testInstance, flows.TypeHTTPResponse, response.Type)
			require.Equal(testInstance, ingress.Z, response.Z)
			require.Equal(testInstance, ingress.X, response.X)
			require.NotNil(testInstance, response.Y)
			require.InDelta(testInstance, testCase.expectedResponseY, *response.Y, 0)
		})
	}

	untouchedLinkOut := nodeByIdentifier(testInstance, rewrite.Nodes, "n11")
	require.Equal(testInstance, flows.TypeLinkOut, untouchedLinkOut.Type)
}

func TestRewriteExportedNodesPreservesDownstreamConsumers(testInstance *testing.T) {
	exported := decodeNodes(testInstance, testSensorsSnapshotConstant)
	rewrite := flows.RewriteExportedNodes(exported, sequentialIdentifiers("r"))

	for _, original := range exported {
		if original.Kind() != flows.KindLinkIn {
			continue
		}
		converted := nodeByIdentifier(testInstance, rewrite.Nodes, original.ID)
		for groupIndex, group := range original.Wires {
			require.Subset(testInstance, converted.Wires[groupIndex], group)
		}

		responseCount := 0
		for _, target := range converted.Wires[0] {
			downstream := nodeByIdentifier(testInstance, rewrite.Nodes, target)
			if downstream.Kind() == flows.KindHTTPResponse && downstream.Z == converted.Z {
				responseCount++
			}
		}
		require.Equal(testInstance, 1, responseCount)
	}
}

func TestRewriteRemainingSource(testInstance *testing.T) {
	snapshot := decodeNodes(testInstance, testSensorsSnapshotConstant)
	snapshotBefore := encodeNodes(testInstance, snapshot)

	rewrite := flows.RewriteRemainingSource(snapshot, "t1", testTargetBaseURLConstant)

	require.JSONEq(testInstance, snapshotBefore, encodeNodes(testInstance, snapshot))
	require.Equal(testInstance, flows.Identifiers(snapshot), flows.Identifiers(rewrite.Nodes))
	require.Equal(testInstance, []string{"n3"}, rewrite.ConvertedLinkOutIdentifiers)
	require.Equal(testInstance, map[string]string{"n1": "http://tgt/n1"}, rewrite.RemoteEndpoints)

	testCases := []struct {
		name         string
		identifier   string
		expectedType flows.NodeType
		expectedURL  string
	}{
		{name: "matching_single_target", identifier: "n3", expectedType: flows.TypeHTTPRequest, expectedURL: "http://tgt/n1"},
		{name: "target_outside_tab", identifier: "n6", expectedType: flows.TypeLinkOut},
		{name: "fan_out_targets", identifier: "n8", expectedType: flows.TypeLinkOut},
		{name: "no_targets", identifier: "n9", expectedType: flows.TypeLinkOut},
		{name: "migrated_link_in_kept", identifier: "n1", expectedType: flows.TypeLinkIn},
		{name: "sibling_link_in_kept", identifier: "n5", expectedType: flows.TypeLinkIn},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(subtestName(testCaseIndex, testCase.name), func(testInstance *testing.T) {
			rewritten := nodeByIdentifier(testInstance, rewrite.Nodes, testCase.identifier)
			original := nodeByIdentifier(testInstance, snapshot, testCase.identifier)

			require.Equal(testInstance, testCase.expectedType, rewritten.Type)
			require.Equal(testInstance, testCase.expectedURL, rewritten.URL())
			if testCase.expectedType == original.Type {
				require.JSONEq(testInstance, encodeNodes(testInstance, []flows.Node{original}), encodeNodes(testInstance, []flows.Node{rewritten}))
				return
			}
			require.Equal(testInstance, "POST", rewritten.Method())
			require.Equal(testInstance, original.Links, rewritten.Links)
			require.Equal(testInstance, original.Z, rewritten.Z)
		})
	}
}

func TestRewritesAgreeOnEndpoints(testInstance *testing.T) {
	snapshot := decodeNodes(testInstance, testSensorsSnapshotConstant)
	tabFlow := flows.FlowDescriptor{ID: "t1", Label: "sensors", Nodes: snapshot[2:4]}

	for attempt := 0; attempt < 2; attempt++ {
		exportRewrite := flows.RewriteExportedNodes(flows.NodesInTab(tabFlow), nil)
		sourceRewrite := flows.RewriteRemainingSource(snapshot, "t1", testTargetBaseURLConstant)

		for _, identifier := range exportRewrite.ConvertedLinkInIdentifiers {
			ingress := nodeByIdentifier(testInstance, exportRewrite.Nodes, identifier)
			require.Equal(testInstance, testTargetBaseURLConstant+ingress.URL(), sourceRewrite.RemoteEndpoints[identifier])
		}
	}
}

func TestSensorsMigrationScenario(testInstance *testing.T) {
	snapshot := decodeNodes(testInstance, testSensorsSnapshotConstant)
	snapshotBefore := encodeNodes(testInstance, snapshot)

	tab, findError := flows.FindTab(snapshot, "sensors")
	require.NoError(testInstance, findError)
	require.Equal(testInstance, "t1", tab.ID)

	tabNodes := make([]flows.Node, 0)
	for _, node := range snapshot {
		if node.BelongsToTab(tab.ID) {
			tabNodes = append(tabNodes, node)
		}
	}
	exportRewrite := flows.RewriteExportedNodes(tabNodes, sequentialIdentifiers("resp"))
	sourceRewrite := flows.RewriteRemainingSource(snapshot, tab.ID, testTargetBaseURLConstant)

	exportedIngress := nodeByIdentifier(testInstance, exportRewrite.Nodes, "n1")
	require.Equal(testInstance, flows.TypeHTTPIn, exportedIngress.Type)
	require.Equal(testInstance, "/n1", exportedIngress.URL())
	require.Equal(testInstance, [][]string{{"n2", "resp1"}}, exportedIngress.Wires)
	exportedResponse := nodeByIdentifier(testInstance, exportRewrite.Nodes, "resp1")
	require.Equal(testInstance, flows.TypeHTTPResponse, exportedResponse.Type)
	require.Equal(testInstance, "t1", exportedResponse.Z)

	sourceLinkOut := nodeByIdentifier(testInstance, sourceRewrite.Nodes, "n3")
	require.Equal(testInstance, flows.TypeHTTPRequest, sourceLinkOut.Type)
	require.Equal(testInstance, "http://tgt/n1", sourceLinkOut.URL())

	for _, identifier := range []string{"n1", "n2"} {
		require.JSONEq(
			testInstance,
			encodeNodes(testInstance, []flows.Node{nodeByIdentifier(testInstance, snapshot, identifier)}),
			encodeNodes(testInstance, []flows.Node{nodeByIdentifier(testInstance, sourceRewrite.Nodes, identifier)}),
		)
	}
	require.JSONEq(testInstance, snapshotBefore, encodeNodes(testInstance, snapshot))
}
