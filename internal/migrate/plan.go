package migrate

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/temirov/flowpusher/internal/flows"
	"github.com/temirov/flowpusher/internal/noderedapi"
)

const (
	planIndentationConstant         = 2
	planEncodeErrorTemplateConstant = "unable to render migration plan: %w"
)

// MigrationPlan is the YAML document printed by a dry run.
type MigrationPlan struct {
	Tab            PlanTab        `yaml:"tab"`
	Target         string         `yaml:"target"`
	DeploymentType string         `yaml:"deployment_type"`
	ExportedNodes  int            `yaml:"exported_nodes"`
	SourceNodes    int            `yaml:"source_nodes"`
	HTTPEndpoints  []PlanEndpoint `yaml:"http_endpoints"`
	HTTPRequests   []PlanEndpoint `yaml:"http_requests"`
	ResponseNodes  []string       `yaml:"response_nodes"`
	ShippedConfigs []string       `yaml:"shipped_configs"`
}

// PlanTab identifies the migrated tab.
type PlanTab struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// PlanEndpoint pairs a node with the HTTP path or URL it was assigned.
type PlanEndpoint struct {
	NodeID  string `yaml:"node"`
	Address string `yaml:"address"`
}

// NewMigrationPlan summarizes a migration result for review.
func NewMigrationPlan(result MigrationResult, options MigrationOptions) MigrationPlan {
	deploymentType := options.DeploymentType
	if len(deploymentType) == 0 {
		deploymentType = noderedapi.DeploymentTypeFull
	}

	plan := MigrationPlan{
		Tab:            PlanTab{ID: result.Tab.ID, Label: result.Tab.Label()},
		Target:         options.TargetBaseURL,
		DeploymentType: string(deploymentType),
		ExportedNodes:  len(result.Payload.Nodes),
		SourceNodes:    len(result.SourceFlows),
		HTTPEndpoints:  make([]PlanEndpoint, 0, len(result.ConvertedLinkInIdentifiers)),
		HTTPRequests:   make([]PlanEndpoint, 0, len(result.ConvertedLinkOutIdentifiers)),
		ResponseNodes:  append([]string{}, result.ResponseNodeIdentifiers...),
		ShippedConfigs: append([]string{}, result.ShippedConfigIdentifiers...),
	}

	for _, linkInIdentifier := range result.ConvertedLinkInIdentifiers {
		plan.HTTPEndpoints = append(plan.HTTPEndpoints, PlanEndpoint{NodeID: linkInIdentifier, Address: flows.EndpointPath(linkInIdentifier)})
	}

	requestURLs := make(map[string]string, len(result.ConvertedLinkOutIdentifiers))
	for _, node := range result.SourceFlows {
		if node.Kind() == flows.KindHTTPRequest {
			requestURLs[node.ID] = node.URL()
		}
	}
	for _, linkOutIdentifier := range result.ConvertedLinkOutIdentifiers {
		plan.HTTPRequests = append(plan.HTTPRequests, PlanEndpoint{NodeID: linkOutIdentifier, Address: requestURLs[linkOutIdentifier]})
	}
	sort.SliceStable(plan.HTTPRequests, func(leftIndex int, rightIndex int) bool {
		return plan.HTTPRequests[leftIndex].NodeID < plan.HTTPRequests[rightIndex].NodeID
	})

	return plan
}

// WritePlan renders the plan as YAML.
func WritePlan(writer io.Writer, plan MigrationPlan) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(planIndentationConstant)
	if encodeError := encoder.Encode(plan); encodeError != nil {
		return fmt.Errorf(planEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(planEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
