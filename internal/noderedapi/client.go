package noderedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/temirov/flowpusher/internal/flows"
)

const (
	flowsEndpointPathConstant          = "/flows"
	flowEndpointPathConstant           = "/flow"
	tokenEndpointPathConstant          = "/auth/token"
	pathSeparatorConstant              = "/"
	acceptHeaderConstant               = "Accept"
	contentTypeHeaderConstant          = "Content-Type"
	authorizationHeaderConstant        = "Authorization"
	deploymentTypeHeaderConstant       = "Node-RED-Deployment-Type"
	jsonMediaTypeConstant              = "application/json"
	bearerAuthorizationPrefixConstant  = "Bearer "
	adminClientIdentifierConstant      = "node-red-admin"
	adminScopeConstant                 = "*"
	baseURLFieldNameConstant           = "base_url"
	tabIdentifierFieldNameConstant     = "tab_id"
	usernameFieldNameConstant          = "username"
	requiredValueMessageConstant       = "value required"
	invalidBaseURLMessageConstant      = "absolute http(s) url required"
	missingAccessTokenMessageConstant  = "token response carried no access token"
	httpSchemeConstant                 = "http"
	httpsSchemeConstant                = "https"
	requestLogMessageConstant          = "node-red request"
	responseLogMessageConstant         = "node-red response"
	requestFailedLogMessageConstant    = "node-red request failed"
	authenticatedLogMessageConstant    = "node-red authentication succeeded"
	logFieldOperationConstant          = "operation"
	logFieldMethodConstant             = "method"
	logFieldURLConstant                = "url"
	logFieldStatusCodeConstant         = "status_code"
	logFieldResponseBytesConstant      = "response_bytes"
	logFieldRequestBytesConstant       = "request_bytes"
	logFieldUsernameConstant           = "username"
	defaultRequestTimeoutConstant      = 30 * time.Second
	successfulStatusLowerBoundConstant = 200
	successfulStatusUpperBoundConstant = 300
)

// ClientOptions configures a Node-RED client.
type ClientOptions struct {
	HTTPClient     *http.Client
	Logger         *zap.Logger
	BearerToken    string
	RequestTimeout time.Duration
}

// Client issues Node-RED admin API calls against one runtime instance.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
	bearerToken string
}

type postFlowResponse struct {
	ID string `json:"id"`
}

// NewClient constructs a client for the runtime rooted at baseURL. A trailing
// slash on baseURL is ignored.
func NewClient(baseURL string, options ClientOptions) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), pathSeparatorConstant)
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLRequired
	}

	parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
	if parseError != nil || len(parsedBaseURL.Host) == 0 || (parsedBaseURL.Scheme != httpSchemeConstant && parsedBaseURL.Scheme != httpsSchemeConstant) {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: invalidBaseURLMessageConstant}
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		requestTimeout := options.RequestTimeout
		if requestTimeout <= 0 {
			requestTimeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:     trimmedBaseURL,
		httpClient:  httpClient,
		logger:      logger,
		bearerToken: strings.TrimSpace(options.BearerToken),
	}, nil
}

// BaseURL returns the normalized runtime address.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// WithBearerToken returns a copy of the client that authorizes every call with token.
func (client *Client) WithBearerToken(token string) *Client {
	authorized := *client
	authorized.bearerToken = strings.TrimSpace(token)
	return &authorized
}

// Authenticate exchanges admin credentials for an access token using the
// password grant of the runtime's token endpoint.
func (client *Client) Authenticate(executionContext context.Context, username string, password string) (string, error) {
	trimmedUsername := strings.TrimSpace(username)
	if len(trimmedUsername) == 0 {
		return "", InvalidInputError{FieldName: usernameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	tokenURL := client.baseURL + tokenEndpointPathConstant
	configuration := oauth2.Config{
		ClientID: adminClientIdentifierConstant,
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:   []string{adminScopeConstant},
	}

	client.logger.Debug(
		requestLogMessageConstant,
		zap.String(logFieldOperationConstant, string(OperationAuthenticate)),
		zap.String(logFieldMethodConstant, http.MethodPost),
		zap.String(logFieldURLConstant, tokenURL),
		zap.String(logFieldUsernameConstant, trimmedUsername),
	)

	tokenContext := context.WithValue(executionContext, oauth2.HTTPClient, client.httpClient)
	token, tokenError := configuration.PasswordCredentialsToken(tokenContext, trimmedUsername, password)
	if tokenError != nil {
		var retrieveError *oauth2.RetrieveError
		if errors.As(tokenError, &retrieveError) && retrieveError.Response != nil {
			statusError := UnexpectedStatusError{
				Operation:  OperationAuthenticate,
				Method:     http.MethodPost,
				URL:        tokenURL,
				StatusCode: retrieveError.Response.StatusCode,
				Body:       string(retrieveError.Body),
			}
			client.logFailure(OperationAuthenticate, http.MethodPost, tokenURL, statusError)
			return "", statusError
		}
		client.logFailure(OperationAuthenticate, http.MethodPost, tokenURL, tokenError)
		return "", OperationError{Operation: OperationAuthenticate, Cause: tokenError}
	}
	if len(token.AccessToken) == 0 {
		return "", OperationError{Operation: OperationAuthenticate, Cause: errors.New(missingAccessTokenMessageConstant)}
	}

	client.logger.Debug(authenticatedLogMessageConstant, zap.String(logFieldURLConstant, tokenURL), zap.String(logFieldUsernameConstant, trimmedUsername))
	return token.AccessToken, nil
}

// FetchCurrentFlows returns every deployed node of the runtime, tabs included.
func (client *Client) FetchCurrentFlows(executionContext context.Context) ([]flows.Node, error) {
	var nodes []flows.Node
	if requestError := client.execute(executionContext, OperationFetchCurrentFlows, http.MethodGet, flowsEndpointPathConstant, nil, nil, &nodes); requestError != nil {
		return nil, requestError
	}
	if nodes == nil {
		nodes = []flows.Node{}
	}
	return nodes, nil
}

// FetchFlow returns one tab with its nodes and the configuration nodes scoped to it.
func (client *Client) FetchFlow(executionContext context.Context, tabIdentifier string) (flows.FlowDescriptor, error) {
	trimmedIdentifier := strings.TrimSpace(tabIdentifier)
	if len(trimmedIdentifier) == 0 {
		return flows.FlowDescriptor{}, InvalidInputError{FieldName: tabIdentifierFieldNameConstant, Message: requiredValueMessageConstant}
	}

	var descriptor flows.FlowDescriptor
	endpointPath := flowEndpointPathConstant + pathSeparatorConstant + url.PathEscape(trimmedIdentifier)
	if requestError := client.execute(executionContext, OperationFetchFlow, http.MethodGet, endpointPath, nil, nil, &descriptor); requestError != nil {
		return flows.FlowDescriptor{}, requestError
	}
	return descriptor, nil
}

// FetchGlobalFlow returns the configuration nodes shared by every tab.
func (client *Client) FetchGlobalFlow(executionContext context.Context) (flows.GlobalFlow, error) {
	var globalFlow flows.GlobalFlow
	endpointPath := flowEndpointPathConstant + pathSeparatorConstant + flows.GlobalFlowIdentifier
	if requestError := client.execute(executionContext, OperationFetchGlobalFlow, http.MethodGet, endpointPath, nil, nil, &globalFlow); requestError != nil {
		return flows.GlobalFlow{}, requestError
	}
	return globalFlow, nil
}

// PostFlows replaces the entire deployed flow set of the runtime.
func (client *Client) PostFlows(executionContext context.Context, nodes []flows.Node, deploymentType DeploymentType) error {
	if len(deploymentType) == 0 {
		deploymentType = DeploymentTypeFull
	}
	if nodes == nil {
		nodes = []flows.Node{}
	}
	headers := map[string]string{deploymentTypeHeaderConstant: string(deploymentType)}
	return client.execute(executionContext, OperationPostFlows, http.MethodPost, flowsEndpointPathConstant, headers, nodes, nil)
}

// PostFlow deploys one tab as a unit and returns the identifier the runtime assigned to it.
func (client *Client) PostFlow(executionContext context.Context, descriptor flows.FlowDescriptor) (string, error) {
	payload := descriptor.Clone()
	if payload.Nodes == nil {
		payload.Nodes = []flows.Node{}
	}

	var response postFlowResponse
	if requestError := client.execute(executionContext, OperationPostFlow, http.MethodPost, flowEndpointPathConstant, nil, payload, &response); requestError != nil {
		return "", requestError
	}
	return response.ID, nil
}

func (client *Client) execute(executionContext context.Context, operation OperationName, method string, endpointPath string, headers map[string]string, payload any, target any) error {
	requestURL := client.baseURL + endpointPath

	var requestBody io.Reader
	requestBytes := 0
	if payload != nil {
		encodedPayload, encodingError := json.Marshal(payload)
		if encodingError != nil {
			return PayloadEncodingError{Operation: operation, Cause: encodingError}
		}
		requestBody = bytes.NewReader(encodedPayload)
		requestBytes = len(encodedPayload)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, requestURL, requestBody)
	if requestError != nil {
		return OperationError{Operation: operation, Cause: requestError}
	}
	request.Header.Set(acceptHeaderConstant, jsonMediaTypeConstant)
	if payload != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonMediaTypeConstant)
	}
	if len(client.bearerToken) > 0 {
		request.Header.Set(authorizationHeaderConstant, bearerAuthorizationPrefixConstant+client.bearerToken)
	}
	for headerName, headerValue := range headers {
		request.Header.Set(headerName, headerValue)
	}

	client.logger.Debug(
		requestLogMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldMethodConstant, method),
		zap.String(logFieldURLConstant, requestURL),
		zap.Int(logFieldRequestBytesConstant, requestBytes),
	)

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		client.logFailure(operation, method, requestURL, responseError)
		return OperationError{Operation: operation, Cause: responseError}
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(response.Body)
	if readError != nil {
		client.logFailure(operation, method, requestURL, readError)
		return OperationError{Operation: operation, Cause: readError}
	}

	client.logger.Debug(
		responseLogMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldMethodConstant, method),
		zap.String(logFieldURLConstant, requestURL),
		zap.Int(logFieldStatusCodeConstant, response.StatusCode),
		zap.Int(logFieldResponseBytesConstant, len(responseBody)),
	)

	if response.StatusCode < successfulStatusLowerBoundConstant || response.StatusCode >= successfulStatusUpperBoundConstant {
		statusError := UnexpectedStatusError{
			Operation:  operation,
			Method:     method,
			URL:        requestURL,
			StatusCode: response.StatusCode,
			Body:       string(responseBody),
		}
		client.logFailure(operation, method, requestURL, statusError)
		return statusError
	}

	if target == nil || len(bytes.TrimSpace(responseBody)) == 0 {
		return nil
	}
	if decodingError := json.Unmarshal(responseBody, target); decodingError != nil {
		return ResponseDecodingError{Operation: operation, Cause: decodingError}
	}
	return nil
}

func (client *Client) logFailure(operation OperationName, method string, requestURL string, failure error) {
	client.logger.Debug(
		requestFailedLogMessageConstant,
		zap.String(logFieldOperationConstant, string(operation)),
		zap.String(logFieldMethodConstant, method),
		zap.String(logFieldURLConstant, requestURL),
		zap.Error(failure),
	)
}
