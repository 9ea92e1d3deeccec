package migrate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/flowpusher/internal/flows"
	"github.com/temirov/flowpusher/internal/noderedapi"
)

const (
	tabLabelFieldNameConstant                 = "tab_label"
	targetBaseURLFieldNameConstant            = "target_base_url"
	baseURLTrailingSeparatorConstant          = "/"
	sourceClientMissingMessageConstant        = "source client not configured"
	targetClientMissingMessageConstant        = "target client not configured"
	logMessageStepStartedConstant             = "migration step started"
	logMessageResidualLinkOutNodesConstant    = "exported tab still contains link out nodes"
	logMessageTargetIdentifierChangedConstant = "target runtime assigned a new tab identifier"
	logMessageDeploymentsSkippedConstant      = "dry run: deployments skipped"
	logFieldStepConstant                      = "step"
	logFieldTabIdentifierConstant             = "tab_id"
	logFieldTabLabelConstant                  = "tab_label"
	logFieldNodeIdentifiersConstant           = "node_ids"
	logFieldTargetTabIdentifierConstant       = "target_tab_id"
)

// FlowOperations is the admin API surface of one Node-RED runtime used by the migration.
type FlowOperations interface {
	FetchCurrentFlows(executionContext context.Context) ([]flows.Node, error)
	FetchFlow(executionContext context.Context, tabIdentifier string) (flows.FlowDescriptor, error)
	FetchGlobalFlow(executionContext context.Context) (flows.GlobalFlow, error)
	PostFlows(executionContext context.Context, nodes []flows.Node, deploymentType noderedapi.DeploymentType) error
	PostFlow(executionContext context.Context, descriptor flows.FlowDescriptor) (string, error)
}

// MigrationExecutor runs one tab migration.
type MigrationExecutor interface {
	Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error)
}

// ServiceDependencies describes required collaborators for migration.
type ServiceDependencies struct {
	Logger              *zap.Logger
	SourceClient        FlowOperations
	TargetClient        FlowOperations
	IdentifierGenerator flows.IdentifierGenerator
}

// MigrationOptions configures one tab migration.
type MigrationOptions struct {
	TabLabel            string
	TargetBaseURL       string
	DeploymentType      noderedapi.DeploymentType
	ExcludedConfigTypes []flows.NodeType
	DryRun              bool
}

// MigrationResult captures the observable outcomes of a migration.
type MigrationResult struct {
	Tab                         flows.Node
	Payload                     flows.FlowDescriptor
	SourceFlows                 []flows.Node
	ConvertedLinkInIdentifiers  []string
	ResponseNodeIdentifiers     []string
	ConvertedLinkOutIdentifiers []string
	RemoteEndpoints             map[string]string
	ShippedConfigIdentifiers    []string
	TargetTabIdentifier         string
	TargetDeployed              bool
	SourceDeployed              bool
}

// Service orchestrates the tab migration pipeline.
type Service struct {
	logger              *zap.Logger
	sourceClient        FlowOperations
	targetClient        FlowOperations
	identifierGenerator flows.IdentifierGenerator
}

var (
	errSourceClientMissing = errors.New(sourceClientMissingMessageConstant)
	errTargetClientMissing = errors.New(targetClientMissingMessageConstant)
)

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.SourceClient == nil {
		return nil, errSourceClientMissing
	}
	if dependencies.TargetClient == nil {
		return nil, errTargetClientMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	identifierGenerator := dependencies.IdentifierGenerator
	if identifierGenerator == nil {
		identifierGenerator = flows.NewIdentifier
	}

	return &Service{
		logger:              logger,
		sourceClient:        dependencies.SourceClient,
		targetClient:        dependencies.TargetClient,
		identifierGenerator: identifierGenerator,
	}, nil
}

// Execute fetches the tab from the source runtime, rewrites link boundaries
// into HTTP endpoints, deploys the tab to the target runtime, and redeploys the
// rewritten source snapshot. Steps run strictly in order and the first failure
// aborts the remainder; deployments already performed are not rolled back.
func (service *Service) Execute(executionContext context.Context, options MigrationOptions) (MigrationResult, error) {
	normalizedOptions, validationError := service.normalizeOptions(options)
	if validationError != nil {
		return MigrationResult{}, validationError
	}

	service.logStep(StepFetchSourceFlows)
	sourceSnapshot, fetchSourceError := service.sourceClient.FetchCurrentFlows(executionContext)
	if fetchSourceError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepFetchSourceFlows, Cause: fetchSourceError}
	}

	service.logStep(StepLocateTab)
	tab, findError := flows.FindTab(sourceSnapshot, normalizedOptions.TabLabel)
	if findError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepLocateTab, Cause: findError}
	}

	service.logStep(StepValidateSourceSnapshot)
	if snapshotError := flows.ValidateSnapshot(sourceSnapshot, tab.ID); snapshotError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepValidateSourceSnapshot, Cause: snapshotError}
	}

	service.logStep(StepFetchTab)
	tabFlow, fetchTabError := service.sourceClient.FetchFlow(executionContext, tab.ID)
	if fetchTabError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepFetchTab, Cause: fetchTabError}
	}
	tabNodes := flows.NodesInTab(tabFlow)

	service.logStep(StepFetchGlobalFlow)
	globalFlow, fetchGlobalError := service.sourceClient.FetchGlobalFlow(executionContext)
	if fetchGlobalError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepFetchGlobalFlow, Cause: fetchGlobalError}
	}
	localConfigs := flows.ConfigNodesOf(globalFlow, normalizedOptions.ExcludedConfigTypes)

	service.logStep(StepFetchTargetFlows)
	targetSnapshot, fetchTargetError := service.targetClient.FetchCurrentFlows(executionContext)
	if fetchTargetError != nil {
		return MigrationResult{}, MigrationStepError{Step: StepFetchTargetFlows, Cause: fetchTargetError}
	}
	configDiff := flows.Difference(localConfigs, targetSnapshot)

	exportRewrite := flows.RewriteExportedNodes(tabNodes, service.identifierGenerator)
	payload := flows.FlowDescriptor{
		ID:      tab.ID,
		Label:   tab.Label(),
		Nodes:   exportRewrite.Nodes,
		Configs: configDiff,
	}
	service.warnAboutResidualLinkOutNodes(tab, payload.Nodes)

	sourceRewrite := flows.RewriteRemainingSource(sourceSnapshot, tab.ID, normalizedOptions.TargetBaseURL)

	result := MigrationResult{
		Tab:                         tab,
		Payload:                     payload,
		SourceFlows:                 sourceRewrite.Nodes,
		ConvertedLinkInIdentifiers:  exportRewrite.ConvertedLinkInIdentifiers,
		ResponseNodeIdentifiers:     exportRewrite.ResponseNodeIdentifiers,
		ConvertedLinkOutIdentifiers: sourceRewrite.ConvertedLinkOutIdentifiers,
		RemoteEndpoints:             sourceRewrite.RemoteEndpoints,
		ShippedConfigIdentifiers:    flows.Identifiers(configDiff),
	}

	if normalizedOptions.DryRun {
		service.logger.Info(logMessageDeploymentsSkippedConstant, zap.String(logFieldTabLabelConstant, normalizedOptions.TabLabel))
		return result, nil
	}

	service.logStep(StepDeployTargetFlow)
	targetTabIdentifier, deployTargetError := service.targetClient.PostFlow(executionContext, payload)
	if deployTargetError != nil {
		return result, MigrationStepError{Step: StepDeployTargetFlow, Cause: deployTargetError}
	}
	result.TargetDeployed = true
	result.TargetTabIdentifier = targetTabIdentifier
	if len(targetTabIdentifier) > 0 && targetTabIdentifier != tab.ID {
		service.logger.Debug(
			logMessageTargetIdentifierChangedConstant,
			zap.String(logFieldTabIdentifierConstant, tab.ID),
			zap.String(logFieldTargetTabIdentifierConstant, targetTabIdentifier),
		)
	}

	service.logStep(StepDeploySourceFlows)
	if deploySourceError := service.sourceClient.PostFlows(executionContext, sourceRewrite.Nodes, normalizedOptions.DeploymentType); deploySourceError != nil {
		return result, MigrationStepError{Step: StepDeploySourceFlows, Cause: deploySourceError}
	}
	result.SourceDeployed = true

	return result, nil
}

func (service *Service) normalizeOptions(options MigrationOptions) (MigrationOptions, error) {
	normalized := options
	if len(strings.TrimSpace(options.TabLabel)) == 0 {
		return MigrationOptions{}, InvalidInputError{FieldName: tabLabelFieldNameConstant, Message: requiredValueMessageConstant}
	}

	normalized.TargetBaseURL = strings.TrimRight(strings.TrimSpace(options.TargetBaseURL), baseURLTrailingSeparatorConstant)
	if len(normalized.TargetBaseURL) == 0 {
		return MigrationOptions{}, InvalidInputError{FieldName: targetBaseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(normalized.DeploymentType) == 0 {
		normalized.DeploymentType = noderedapi.DeploymentTypeFull
	}
	return normalized, nil
}

func (service *Service) logStep(step MigrationStep) {
	service.logger.Debug(logMessageStepStartedConstant, zap.String(logFieldStepConstant, string(step)))
}

func (service *Service) warnAboutResidualLinkOutNodes(tab flows.Node, exportedNodes []flows.Node) {
	residualLinkOutNodes := flows.NodesOfKind(exportedNodes, flows.KindLinkOut)
	if len(residualLinkOutNodes) == 0 {
		return
	}
	service.logger.Warn(
		logMessageResidualLinkOutNodesConstant,
		zap.String(logFieldTabIdentifierConstant, tab.ID),
		zap.String(logFieldTabLabelConstant, tab.Label()),
		zap.Strings(logFieldNodeIdentifiersConstant, flows.Identifiers(residualLinkOutNodes)),
	)
}
