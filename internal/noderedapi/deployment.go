package noderedapi

import (
	"fmt"
	"strings"
)

const unsupportedDeploymentTypeTemplateConstant = "unsupported deployment type %q (expected one of %s)"

// DeploymentType selects how Node-RED applies a replaced flow set.
type DeploymentType string

// Deployment types accepted by the Node-RED-Deployment-Type header.
const (
	DeploymentTypeFull   DeploymentType = DeploymentType("full")
	DeploymentTypeNodes  DeploymentType = DeploymentType("nodes")
	DeploymentTypeFlows  DeploymentType = DeploymentType("flows")
	DeploymentTypeReload DeploymentType = DeploymentType("reload")
)

// DeploymentTypes lists the supported deployment types in documentation order.
func DeploymentTypes() []DeploymentType {
	return []DeploymentType{DeploymentTypeFull, DeploymentTypeNodes, DeploymentTypeFlows, DeploymentTypeReload}
}

// ParseDeploymentType normalizes user input into a deployment type. Empty input selects a full deployment.
func ParseDeploymentType(value string) (DeploymentType, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	if len(normalizedValue) == 0 {
		return DeploymentTypeFull, nil
	}
	for _, deploymentType := range DeploymentTypes() {
		if string(deploymentType) == normalizedValue {
			return deploymentType, nil
		}
	}

	supportedValues := make([]string, 0, len(DeploymentTypes()))
	for _, deploymentType := range DeploymentTypes() {
		supportedValues = append(supportedValues, string(deploymentType))
	}
	return "", InvalidInputError{
		FieldName: deploymentTypeHeaderConstant,
		Message:   fmt.Sprintf(unsupportedDeploymentTypeTemplateConstant, value, strings.Join(supportedValues, ", ")),
	}
}
