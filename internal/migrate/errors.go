package migrate

import (
	"fmt"
	"strings"
)

const (
	requiredValueMessageConstant       = "value required"
	migrationStepErrorTemplateConstant = "%s failed: %v"
	missingFlagsErrorTemplateConstant  = "missing required flags: %s\nusage: %s"
	usageErrorTemplateConstant         = "%v\nusage: %s"
	missingFlagNamePrefixConstant      = "--"
	missingFlagNameSeparatorConstant   = ", "
)

// MigrationStep names one stage of the migration pipeline.
type MigrationStep string

// Pipeline stages in execution order.
const (
	StepFetchSourceFlows       MigrationStep = MigrationStep("fetch source flows")
	StepLocateTab              MigrationStep = MigrationStep("locate tab")
	StepValidateSourceSnapshot MigrationStep = MigrationStep("validate source snapshot")
	StepFetchTab               MigrationStep = MigrationStep("fetch tab")
	StepFetchGlobalFlow        MigrationStep = MigrationStep("fetch global configuration")
	StepFetchTargetFlows       MigrationStep = MigrationStep("fetch target flows")
	StepDeployTargetFlow       MigrationStep = MigrationStep("deploy tab to target")
	StepDeploySourceFlows      MigrationStep = MigrationStep("redeploy source flows")
)

// InvalidInputError describes migration option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", inputError.FieldName, inputError.Message)
}

// MigrationStepError attributes a failure to the pipeline stage that produced it.
type MigrationStepError struct {
	Step  MigrationStep
	Cause error
}

// Error describes the failing stage and its cause.
func (stepError MigrationStepError) Error() string {
	return fmt.Sprintf(migrationStepErrorTemplateConstant, stepError.Step, stepError.Cause)
}

// Unwrap exposes the underlying cause.
func (stepError MigrationStepError) Unwrap() error {
	return stepError.Cause
}

// MissingRequiredFlagsError reports push invocations lacking source, target, or label.
type MissingRequiredFlagsError struct {
	FlagNames []string
	Usage     string
}

// Error lists the missing flags followed by the usage line.
func (missingError MissingRequiredFlagsError) Error() string {
	formattedNames := make([]string, 0, len(missingError.FlagNames))
	for _, flagName := range missingError.FlagNames {
		formattedNames = append(formattedNames, missingFlagNamePrefixConstant+flagName)
	}
	return fmt.Sprintf(missingFlagsErrorTemplateConstant, strings.Join(formattedNames, missingFlagNameSeparatorConstant), missingError.Usage)
}

// UsageError wraps flag parsing failures with the usage line.
type UsageError struct {
	Cause error
	Usage string
}

// Error describes the parsing failure followed by the usage line.
func (usageError UsageError) Error() string {
	return fmt.Sprintf(usageErrorTemplateConstant, usageError.Cause, usageError.Usage)
}

// Unwrap exposes the parsing failure.
func (usageError UsageError) Unwrap() error {
	return usageError.Cause
}
