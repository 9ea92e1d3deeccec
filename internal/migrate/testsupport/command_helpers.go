package testsupport

import (
	"context"

	"github.com/temirov/flowpusher/internal/flows"
	migrate "github.com/temirov/flowpusher/internal/migrate"
	"github.com/temirov/flowpusher/internal/noderedapi"
)

// Recorded operation names.
const (
	OperationFetchCurrentFlows = "FetchCurrentFlows"
	OperationFetchFlow         = "FetchFlow"
	OperationFetchGlobalFlow   = "FetchGlobalFlow"
	OperationPostFlows         = "PostFlows"
	OperationPostFlow          = "PostFlow"
)

// CallJournal collects operations across several FlowOperationsStub instances in invocation order.
type CallJournal struct {
	Entries []string
}

func (journal *CallJournal) record(role string, operation string) {
	if journal == nil {
		return
	}
	journal.Entries = append(journal.Entries, role+"."+operation)
}

// FlowOperationsStub serves canned runtime state and records every call.
type FlowOperationsStub struct {
	Role           string
	Journal        *CallJournal
	CurrentFlows   []flows.Node
	Flows          map[string]flows.FlowDescriptor
	Global         flows.GlobalFlow
	AssignedTabID  string
	Errors         map[string]error
	PostedFlows    [][]flows.Node
	PostedTypes    []noderedapi.DeploymentType
	PostedFlow     []flows.FlowDescriptor
	FetchedFlowIDs []string
}

// FetchCurrentFlows returns the configured snapshot.
func (stub *FlowOperationsStub) FetchCurrentFlows(context.Context) ([]flows.Node, error) {
	stub.Journal.record(stub.Role, OperationFetchCurrentFlows)
	if failure := stub.Errors[OperationFetchCurrentFlows]; failure != nil {
		return nil, failure
	}
	return flows.CloneNodes(stub.CurrentFlows), nil
}

// FetchFlow returns the configured tab descriptor.
func (stub *FlowOperationsStub) FetchFlow(_ context.Context, tabIdentifier string) (flows.FlowDescriptor, error) {
	stub.Journal.record(stub.Role, OperationFetchFlow)
	stub.FetchedFlowIDs = append(stub.FetchedFlowIDs, tabIdentifier)
	if failure := stub.Errors[OperationFetchFlow]; failure != nil {
		return flows.FlowDescriptor{}, failure
	}
	return stub.Flows[tabIdentifier].Clone(), nil
}

// FetchGlobalFlow returns the configured global flow.
func (stub *FlowOperationsStub) FetchGlobalFlow(context.Context) (flows.GlobalFlow, error) {
	stub.Journal.record(stub.Role, OperationFetchGlobalFlow)
	if failure := stub.Errors[OperationFetchGlobalFlow]; failure != nil {
		return flows.GlobalFlow{}, failure
	}
	return stub.Global.Clone(), nil
}

// PostFlows records the deployed snapshot.
func (stub *FlowOperationsStub) PostFlows(_ context.Context, nodes []flows.Node, deploymentType noderedapi.DeploymentType) error {
	stub.Journal.record(stub.Role, OperationPostFlows)
	if failure := stub.Errors[OperationPostFlows]; failure != nil {
		return failure
	}
	stub.PostedFlows = append(stub.PostedFlows, flows.CloneNodes(nodes))
	stub.PostedTypes = append(stub.PostedTypes, deploymentType)
	return nil
}

// PostFlow records the deployed tab and returns AssignedTabID.
func (stub *FlowOperationsStub) PostFlow(_ context.Context, descriptor flows.FlowDescriptor) (string, error) {
	stub.Journal.record(stub.Role, OperationPostFlow)
	if failure := stub.Errors[OperationPostFlow]; failure != nil {
		return "", failure
	}
	stub.PostedFlow = append(stub.PostedFlow, descriptor.Clone())
	return stub.AssignedTabID, nil
}

// ServiceStub captures migration execution requests for verification.
type ServiceStub struct {
	Result               migrate.MigrationResult
	Error                error
	ExecutedOptions      []migrate.MigrationOptions
	ReceivedDependencies []migrate.ServiceDependencies
}

// Provider returns a ServiceProvider handing out the stub.
func (service *ServiceStub) Provider() migrate.ServiceProvider {
	return func(dependencies migrate.ServiceDependencies) (migrate.MigrationExecutor, error) {
		service.ReceivedDependencies = append(service.ReceivedDependencies, dependencies)
		return service, nil
	}
}

// Execute records the options and returns the configured outcome.
func (service *ServiceStub) Execute(_ context.Context, options migrate.MigrationOptions) (migrate.MigrationResult, error) {
	service.ExecutedOptions = append(service.ExecutedOptions, options)
	return service.Result, service.Error
}
