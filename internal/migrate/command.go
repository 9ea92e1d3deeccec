package migrate

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/flowpusher/internal/credentials"
	"github.com/temirov/flowpusher/internal/noderedapi"
	"github.com/temirov/flowpusher/internal/utils"
	"github.com/temirov/flowpusher/internal/utils/flags"
)

const (
	commandUseConstant                      = "push"
	commandShortDescriptionConstant         = "Move a tab to another Node-RED runtime"
	commandLongDescriptionConstant          = "push deploys the tab with the given label to the target runtime, turning link in nodes into http in endpoints, and redeploys the source runtime with link out nodes that fed the tab replaced by http request nodes."
	commandUsageLineConstant                = "flow-pusher [push] -s <url> -t <url> -l <tab label>"
	sourceFlagNameConstant                  = "source"
	sourceFlagShorthandConstant             = "s"
	sourceFlagUsageConstant                 = "Base URL of the source Node-RED runtime"
	targetFlagNameConstant                  = "target"
	targetFlagShorthandConstant             = "t"
	targetFlagUsageConstant                 = "Base URL of the target Node-RED runtime"
	labelFlagNameConstant                   = "label"
	labelFlagShorthandConstant              = "l"
	labelFlagUsageConstant                  = "Label of the tab to migrate"
	deploymentTypeFlagNameConstant          = "deployment-type"
	deploymentTypeFlagUsageConstant         = "Deployment type used when redeploying the source runtime"
	dryRunFlagNameConstant                  = "dry-run"
	dryRunFlagUsageConstant                 = "Compute both rewrites and print the plan without deploying"
	sourceRuntimeRoleConstant               = "source"
	targetRuntimeRoleConstant               = "target"
	clientCreationErrorTemplateConstant     = "unable to construct %s client: %w"
	authenticationErrorTemplateConstant     = "unable to authenticate against %s runtime: %w"
	migrationErrorTemplateConstant          = "tab migration failed: %w"
	logMessageConfigurationResolvedConstant = "push configuration resolved"
	logMessageAuthenticatedConstant         = "authenticated against runtime"
	logMessageMigrationFailedConstant       = "tab migration failed"
	logMessageMigrationCompletedConstant    = "tab migration completed"
	logMessageMigrationPlannedConstant      = "tab migration planned"
	logFieldConfigurationFileConstant       = "config_file"
	logFieldSourceURLConstant               = "source_url"
	logFieldTargetURLConstant               = "target_url"
	logFieldRuntimeConstant                 = "runtime"
	logFieldUsernameConstant                = "username"
	logFieldDeploymentTypeConstant          = "deployment_type"
	logFieldConvertedLinkInConstant         = "converted_link_in"
	logFieldConvertedLinkOutConstant        = "converted_link_out"
	logFieldResponseNodesConstant           = "response_nodes"
	logFieldShippedConfigsConstant          = "shipped_configs"
	logFieldTargetDeployedConstant          = "target_deployed"
	logFieldSourceDeployedConstant          = "source_deployed"
)

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

type commandOptions struct {
	configuration  CommandConfiguration
	deploymentType noderedapi.DeploymentType
}

// CommandBuilder assembles the push Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ServiceProvider       ServiceProvider
	SecretResolver        credentials.SecretResolver
	HTTPClient            *http.Client
}

// Build constructs the push command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Example:       commandUsageLineConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	builder.Attach(command)
	return command, nil
}

// Attach registers the push flags on an existing command and makes it run the
// migration, so a root command can accept the same invocation as push.
func (builder *CommandBuilder) Attach(command *cobra.Command) {
	defaults := builder.resolveConfiguration()
	command.Flags().StringP(sourceFlagNameConstant, sourceFlagShorthandConstant, defaults.SourceURL, sourceFlagUsageConstant)
	command.Flags().StringP(targetFlagNameConstant, targetFlagShorthandConstant, defaults.TargetURL, targetFlagUsageConstant)
	command.Flags().StringP(labelFlagNameConstant, labelFlagShorthandConstant, defaults.TabLabel, labelFlagUsageConstant)

	deploymentTypeChoices := make([]string, 0, len(noderedapi.DeploymentTypes()))
	for _, deploymentType := range noderedapi.DeploymentTypes() {
		deploymentTypeChoices = append(deploymentTypeChoices, string(deploymentType))
	}
	var deploymentType string
	flags.AddChoiceFlag(command.Flags(), &deploymentType, deploymentTypeFlagNameConstant, "", defaults.DeploymentType, deploymentTypeChoices, deploymentTypeFlagUsageConstant)
	command.Flags().Bool(dryRunFlagNameConstant, defaults.DryRun, dryRunFlagUsageConstant)

	command.Args = func(invokedCommand *cobra.Command, arguments []string) error {
		if argumentsError := cobra.NoArgs(invokedCommand, arguments); argumentsError != nil {
			return UsageError{Cause: argumentsError, Usage: commandUsageLineConstant}
		}
		return nil
	}
	command.SetFlagErrorFunc(func(_ *cobra.Command, flagError error) error {
		return UsageError{Cause: flagError, Usage: commandUsageLineConstant}
	})
	command.RunE = builder.runPush
}

func (builder *CommandBuilder) runPush(command *cobra.Command, _ []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	configuration := options.configuration

	configurationFilePath, _ := utils.NewCommandContextAccessor().ConfigurationFilePath(command.Context())
	logger.Debug(
		logMessageConfigurationResolvedConstant,
		zap.String(logFieldConfigurationFileConstant, configurationFilePath),
		zap.String(logFieldSourceURLConstant, configuration.SourceURL),
		zap.String(logFieldTargetURLConstant, configuration.TargetURL),
		zap.String(logFieldDeploymentTypeConstant, string(options.deploymentType)),
	)

	sourceClient, sourceError := builder.connect(command, logger, sourceRuntimeRoleConstant, configuration.SourceURL, configuration.SourceCredentials, configuration.RequestTimeout)
	if sourceError != nil {
		return sourceError
	}
	targetClient, targetError := builder.connect(command, logger, targetRuntimeRoleConstant, configuration.TargetURL, configuration.TargetCredentials, configuration.RequestTimeout)
	if targetError != nil {
		return targetError
	}

	service, serviceError := builder.resolveService(ServiceDependencies{
		Logger:       logger,
		SourceClient: sourceClient,
		TargetClient: targetClient,
	})
	if serviceError != nil {
		return serviceError
	}

	migrationOptions := MigrationOptions{
		TabLabel:            configuration.TabLabel,
		TargetBaseURL:       targetClient.BaseURL(),
		DeploymentType:      options.deploymentType,
		ExcludedConfigTypes: configuration.ExcludedNodeTypes(),
		DryRun:              configuration.DryRun,
	}

	result, migrationError := service.Execute(command.Context(), migrationOptions)
	if migrationError != nil {
		logger.Error(
			logMessageMigrationFailedConstant,
			zap.String(logFieldTabLabelConstant, configuration.TabLabel),
			zap.Bool(logFieldTargetDeployedConstant, result.TargetDeployed),
			zap.Bool(logFieldSourceDeployedConstant, result.SourceDeployed),
			zap.Error(migrationError),
		)
		return fmt.Errorf(migrationErrorTemplateConstant, migrationError)
	}

	builder.logSummary(logger, configuration, result)

	if configuration.DryRun {
		return WritePlan(utils.NewFlushingWriter(command.OutOrStdout()), NewMigrationPlan(result, migrationOptions))
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(sourceFlagNameConstant) {
		configuration.SourceURL, _ = command.Flags().GetString(sourceFlagNameConstant)
	}
	if command.Flags().Changed(targetFlagNameConstant) {
		configuration.TargetURL, _ = command.Flags().GetString(targetFlagNameConstant)
	}
	if command.Flags().Changed(labelFlagNameConstant) {
		configuration.TabLabel, _ = command.Flags().GetString(labelFlagNameConstant)
	}
	if command.Flags().Changed(deploymentTypeFlagNameConstant) {
		configuration.DeploymentType = command.Flags().Lookup(deploymentTypeFlagNameConstant).Value.String()
	}
	if command.Flags().Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = command.Flags().GetBool(dryRunFlagNameConstant)
	}
	configuration = configuration.Sanitize()

	missingFlags := make([]string, 0, 3)
	if len(configuration.SourceURL) == 0 {
		missingFlags = append(missingFlags, sourceFlagNameConstant)
	}
	if len(configuration.TargetURL) == 0 {
		missingFlags = append(missingFlags, targetFlagNameConstant)
	}
	if len(strings.TrimSpace(configuration.TabLabel)) == 0 {
		missingFlags = append(missingFlags, labelFlagNameConstant)
	}
	if len(missingFlags) > 0 {
		return commandOptions{}, MissingRequiredFlagsError{FlagNames: missingFlags, Usage: commandUsageLineConstant}
	}

	deploymentType, deploymentTypeError := noderedapi.ParseDeploymentType(configuration.DeploymentType)
	if deploymentTypeError != nil {
		return commandOptions{}, UsageError{Cause: deploymentTypeError, Usage: commandUsageLineConstant}
	}

	return commandOptions{configuration: configuration, deploymentType: deploymentType}, nil
}

func (builder *CommandBuilder) connect(command *cobra.Command, logger *zap.Logger, role string, baseURL string, adminCredentials credentials.AdminCredentials, requestTimeout time.Duration) (*noderedapi.Client, error) {
	client, clientError := noderedapi.NewClient(baseURL, noderedapi.ClientOptions{
		HTTPClient:     builder.HTTPClient,
		Logger:         logger.With(zap.String(logFieldRuntimeConstant, role)),
		RequestTimeout: requestTimeout,
	})
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, role, clientError)
	}
	if !adminCredentials.Required() {
		return client, nil
	}

	password, passwordError := credentials.ResolvePassword(command.Context(), builder.resolveSecretResolver(), adminCredentials)
	if passwordError != nil {
		return nil, fmt.Errorf(authenticationErrorTemplateConstant, role, passwordError)
	}
	token, authenticationError := client.Authenticate(command.Context(), adminCredentials.Username, password)
	if authenticationError != nil {
		return nil, fmt.Errorf(authenticationErrorTemplateConstant, role, authenticationError)
	}
	logger.Debug(logMessageAuthenticatedConstant, zap.String(logFieldRuntimeConstant, role), zap.String(logFieldUsernameConstant, adminCredentials.Username))
	return client.WithBearerToken(token), nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveSecretResolver() credentials.SecretResolver {
	if builder.SecretResolver != nil {
		return builder.SecretResolver
	}
	return credentials.NewSecretResolver(nil, nil)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) logSummary(logger *zap.Logger, configuration CommandConfiguration, result MigrationResult) {
	message := logMessageMigrationCompletedConstant
	if configuration.DryRun {
		message = logMessageMigrationPlannedConstant
	}
	logger.Info(
		message,
		zap.String(logFieldTabLabelConstant, result.Tab.Label()),
		zap.String(logFieldTabIdentifierConstant, result.Tab.ID),
		zap.Strings(logFieldConvertedLinkInConstant, result.ConvertedLinkInIdentifiers),
		zap.Strings(logFieldConvertedLinkOutConstant, result.ConvertedLinkOutIdentifiers),
		zap.Strings(logFieldResponseNodesConstant, result.ResponseNodeIdentifiers),
		zap.Strings(logFieldShippedConfigsConstant, result.ShippedConfigIdentifiers),
		zap.Bool(logFieldTargetDeployedConstant, result.TargetDeployed),
		zap.Bool(logFieldSourceDeployedConstant, result.SourceDeployed),
	)
}

var _ FlowOperations = (*noderedapi.Client)(nil)
