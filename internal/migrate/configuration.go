package migrate

import (
	"strings"
	"time"

	"github.com/temirov/flowpusher/internal/credentials"
	"github.com/temirov/flowpusher/internal/flows"
	"github.com/temirov/flowpusher/internal/noderedapi"
)

const (
	defaultRequestTimeoutConstant     = 30 * time.Second
	configurationURLSeparatorConstant = "/"
)

// CommandConfiguration captures persisted configuration for the push command.
type CommandConfiguration struct {
	SourceURL           string                       `mapstructure:"source_url"`
	TargetURL           string                       `mapstructure:"target_url"`
	TabLabel            string                       `mapstructure:"label"`
	DeploymentType      string                       `mapstructure:"deployment_type"`
	DryRun              bool                         `mapstructure:"dry_run"`
	ExcludedConfigTypes []string                     `mapstructure:"excluded_config_types"`
	RequestTimeout      time.Duration                `mapstructure:"request_timeout"`
	SourceCredentials   credentials.AdminCredentials `mapstructure:"source_credentials"`
	TargetCredentials   credentials.AdminCredentials `mapstructure:"target_credentials"`
}

// DefaultCommandConfiguration returns baseline configuration values for the push command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		DeploymentType: string(noderedapi.DeploymentTypeFull),
		RequestTimeout: defaultRequestTimeoutConstant,
	}
}

// DefaultConfigurationValues lists every push setting under configurationPrefix
// so environment overrides resolve even when no configuration file sets them.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := configurationPrefix + "."
	return map[string]any{
		keyPrefix + "source_url":                         defaults.SourceURL,
		keyPrefix + "target_url":                         defaults.TargetURL,
		keyPrefix + "label":                              defaults.TabLabel,
		keyPrefix + "deployment_type":                    defaults.DeploymentType,
		keyPrefix + "dry_run":                            defaults.DryRun,
		keyPrefix + "excluded_config_types":              []string{},
		keyPrefix + "request_timeout":                    defaults.RequestTimeout.String(),
		keyPrefix + "source_credentials.username":        "",
		keyPrefix + "source_credentials.password_source": "",
		keyPrefix + "target_credentials.username":        "",
		keyPrefix + "target_credentials.password_source": "",
	}
}

// Sanitize trims configured values, drops trailing slashes from runtime
// addresses, and removes empty or repeated excluded config types.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.SourceURL = sanitizeRuntimeURL(configuration.SourceURL)
	sanitized.TargetURL = sanitizeRuntimeURL(configuration.TargetURL)
	sanitized.DeploymentType = strings.ToLower(strings.TrimSpace(configuration.DeploymentType))
	if len(sanitized.DeploymentType) == 0 {
		sanitized.DeploymentType = string(noderedapi.DeploymentTypeFull)
	}
	if sanitized.RequestTimeout <= 0 {
		sanitized.RequestTimeout = defaultRequestTimeoutConstant
	}
	sanitized.SourceCredentials.Username = strings.TrimSpace(configuration.SourceCredentials.Username)
	sanitized.TargetCredentials.Username = strings.TrimSpace(configuration.TargetCredentials.Username)

	sanitized.ExcludedConfigTypes = nil
	seenTypes := make(map[string]struct{}, len(configuration.ExcludedConfigTypes))
	for _, excludedType := range configuration.ExcludedConfigTypes {
		trimmedType := strings.TrimSpace(excludedType)
		if len(trimmedType) == 0 {
			continue
		}
		if _, seen := seenTypes[trimmedType]; seen {
			continue
		}
		seenTypes[trimmedType] = struct{}{}
		sanitized.ExcludedConfigTypes = append(sanitized.ExcludedConfigTypes, trimmedType)
	}
	return sanitized
}

// ExcludedNodeTypes converts the configured type names into node types.
func (configuration CommandConfiguration) ExcludedNodeTypes() []flows.NodeType {
	nodeTypes := make([]flows.NodeType, 0, len(configuration.ExcludedConfigTypes))
	for _, excludedType := range configuration.ExcludedConfigTypes {
		nodeTypes = append(nodeTypes, flows.NodeType(excludedType))
	}
	return nodeTypes
}

func sanitizeRuntimeURL(runtimeURL string) string {
	return strings.TrimRight(strings.TrimSpace(runtimeURL), configurationURLSeparatorConstant)
}
