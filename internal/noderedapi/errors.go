package noderedapi

import (
	"errors"
	"fmt"
)

const (
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	payloadEncodingErrorTemplateConstant    = "%s payload encoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	unexpectedStatusErrorTemplateConstant   = "unexpected status code %d on %s %s: body=%q"
	baseURLRequiredMessageConstant          = "node-red base url required"
)

// OperationName describes a Node-RED admin API call issued by the client.
type OperationName string

// Supported operations.
const (
	OperationAuthenticate      OperationName = OperationName("Authenticate")
	OperationFetchCurrentFlows OperationName = OperationName("FetchCurrentFlows")
	OperationFetchFlow         OperationName = OperationName("FetchFlow")
	OperationFetchGlobalFlow   OperationName = OperationName("FetchGlobalFlow")
	OperationPostFlows         OperationName = OperationName("PostFlows")
	OperationPostFlow          OperationName = OperationName("PostFlow")
)

var (
	// ErrBaseURLRequired indicates the client was constructed without a base URL.
	ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport failures of a Node-RED operation.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// UnexpectedStatusError reports a response whose status falls outside the 2xx range.
type UnexpectedStatusError struct {
	Operation  OperationName
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error describes the failing call and the raw response body.
func (statusError UnexpectedStatusError) Error() string {
	return fmt.Sprintf(unexpectedStatusErrorTemplateConstant, statusError.StatusCode, statusError.Method, statusError.URL, statusError.Body)
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// PayloadEncodingError indicates JSON encoding issues.
type PayloadEncodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the encoding failure.
func (encodingError PayloadEncodingError) Error() string {
	return fmt.Sprintf(payloadEncodingErrorTemplateConstant, encodingError.Operation, encodingError.Cause)
}

// Unwrap exposes the underlying error.
func (encodingError PayloadEncodingError) Unwrap() error {
	return encodingError.Cause
}
