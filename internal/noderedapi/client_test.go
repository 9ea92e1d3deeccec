package noderedapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/flowpusher/internal/flows"
	"github.com/temirov/flowpusher/internal/noderedapi"
)

const (
	testSubtestTemplateConstant      = "%d_%s"
	testBearerTokenConstant          = "secret-token"
	testUsernameConstant             = "admin"
	testPasswordConstant             = "password"
	testCurrentFlowsDocumentConstant = `[{"id":"t1","type":"tab","label":"sensors"},{"id":"n1","type":"link in","z":"t1","wires":[["n2"]]},{"id":"n2","type":"debug","z":"t1","wires":[]}]`
	testFlowDocumentConstant         = `{"id":"t1","label":"sensors","nodes":[{"id":"n1","type":"link in","z":"t1","wires":[["n2"]]}],"configs":[{"id":"c1","type":"mqtt-broker"}]}`
	testGlobalFlowDocumentConstant   = `{"id":"global","configs":[{"id":"c1","type":"mqtt-broker"},{"id":"u1","type":"ui_base"}]}`
	testFailureBodyConstant          = `{"code":"invalid_request","message":"boom"}`
	testTokenDocumentConstant        = `{"access_token":"issued-token","expires_in":604800,"token_type":"Bearer"}`
)

type recordedRequest struct {
	Method         string
	Path           string
	Accept         string
	ContentType    string
	Authorization  string
	DeploymentType string
	Body           []byte
	Form           map[string]string
}

type fakeNodeRed struct {
	mutex    sync.Mutex
	requests []recordedRequest
	router   chi.Router
	server   *httptest.Server
}

func newFakeNodeRed(testInstance *testing.T, configure func(router chi.Router)) *fakeNodeRed {
	testInstance.Helper()
	fake := &fakeNodeRed{router: chi.NewRouter()}
	fake.router.Use(fake.record)
	configure(fake.router)
	fake.server = httptest.NewServer(fake.router)
	testInstance.Cleanup(fake.server.Close)
	return fake
}

func (fake *fakeNodeRed) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		entry := recordedRequest{
			Method:         request.Method,
			Path:           request.URL.Path,
			Accept:         request.Header.Get("Accept"),
			ContentType:    request.Header.Get("Content-Type"),
			Authorization:  request.Header.Get("Authorization"),
			DeploymentType: request.Header.Get("Node-RED-Deployment-Type"),
		}
		if request.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
			if parseError := request.ParseForm(); parseError == nil {
				entry.Form = make(map[string]string)
				for key := range request.PostForm {
					entry.Form[key] = request.PostForm.Get(key)
				}
			}
		} else if request.Body != nil {
			entry.Body, _ = io.ReadAll(request.Body)
		}

		fake.mutex.Lock()
		fake.requests = append(fake.requests, entry)
		fake.mutex.Unlock()

		next.ServeHTTP(responseWriter, request)
	})
}

func (fake *fakeNodeRed) recorded() []recordedRequest {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]recordedRequest(nil), fake.requests...)
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, document string) {
	responseWriter.Header().Set("Content-Type", "application/json")
	responseWriter.WriteHeader(statusCode)
	_, _ = io.WriteString(responseWriter, document)
}

func newAuthorizedClient(testInstance *testing.T, fake *fakeNodeRed, logger *zap.Logger) *noderedapi.Client {
	testInstance.Helper()
	client, creationError := noderedapi.NewClient(fake.server.URL+"/", noderedapi.ClientOptions{Logger: logger, BearerToken: testBearerTokenConstant})
	require.NoError(testInstance, creationError)
	return client
}

func TestNewClientValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		baseURL       string
		expectedError error
		errorType     any
	}{
		{name: "empty_base_url", baseURL: "  ", expectedError: noderedapi.ErrBaseURLRequired},
		{name: "relative_base_url", baseURL: "localhost:1880", errorType: &noderedapi.InvalidInputError{}},
		{name: "unsupported_scheme", baseURL: "ftp://example.com", errorType: &noderedapi.InvalidInputError{}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			client, creationError := noderedapi.NewClient(testCase.baseURL, noderedapi.ClientOptions{})
			require.Error(testInstance, creationError)
			require.Nil(testInstance, client)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, creationError, testCase.expectedError)
			}
			if testCase.errorType != nil {
				require.ErrorAs(testInstance, creationError, testCase.errorType)
			}
		})
	}

	testInstance.Run("trailing_slash_trimmed", func(testInstance *testing.T) {
		client, creationError := noderedapi.NewClient("http://node-red.local:1880/red/", noderedapi.ClientOptions{})
		require.NoError(testInstance, creationError)
		require.Equal(testInstance, "http://node-red.local:1880/red", client.BaseURL())
	})
}

func TestClientReadOperations(testInstance *testing.T) {
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Get("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusOK, testCurrentFlowsDocumentConstant)
		})
		router.Get("/flow/{flowID}", func(responseWriter http.ResponseWriter, request *http.Request) {
			switch chi.URLParam(request, "flowID") {
			case "global":
				writeJSON(responseWriter, http.StatusOK, testGlobalFlowDocumentConstant)
			case "t1":
				writeJSON(responseWriter, http.StatusOK, testFlowDocumentConstant)
			default:
				writeJSON(responseWriter, http.StatusNotFound, `{"code":"not_found","message":"Not Found"}`)
			}
		})
	})
	client := newAuthorizedClient(testInstance, fake, nil)

	currentFlows, fetchError := client.FetchCurrentFlows(context.Background())
	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, []string{"t1", "n1", "n2"}, flows.Identifiers(currentFlows))

	tabFlow, flowError := client.FetchFlow(context.Background(), "t1")
	require.NoError(testInstance, flowError)
	require.Equal(testInstance, "sensors", tabFlow.Label)
	require.Equal(testInstance, []string{"n1"}, flows.Identifiers(tabFlow.Nodes))
	require.Equal(testInstance, []string{"c1"}, flows.Identifiers(tabFlow.Configs))

	globalFlow, globalError := client.FetchGlobalFlow(context.Background())
	require.NoError(testInstance, globalError)
	require.Equal(testInstance, flows.GlobalFlowIdentifier, globalFlow.ID)
	require.Equal(testInstance, []string{"c1", "u1"}, flows.Identifiers(globalFlow.Configs))

	_, missingError := client.FetchFlow(context.Background(), "absent")
	var statusError noderedapi.UnexpectedStatusError
	require.ErrorAs(testInstance, missingError, &statusError)
	require.Equal(testInstance, http.StatusNotFound, statusError.StatusCode)
	require.Equal(testInstance, noderedapi.OperationFetchFlow, statusError.Operation)

	_, emptyIdentifierError := client.FetchFlow(context.Background(), " ")
	require.ErrorAs(testInstance, emptyIdentifierError, &noderedapi.InvalidInputError{})

	requests := fake.recorded()
	require.Len(testInstance, requests, 4)
	expectedPaths := []string{"/flows", "/flow/t1", "/flow/global", "/flow/absent"}
	for requestIndex, request := range requests {
		require.Equal(testInstance, http.MethodGet, request.Method)
		require.Equal(testInstance, expectedPaths[requestIndex], request.Path)
		require.Equal(testInstance, "application/json", request.Accept)
		require.Equal(testInstance, "Bearer "+testBearerTokenConstant, request.Authorization)
	}
}

func TestClientPostFlows(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		deploymentType         noderedapi.DeploymentType
		nodes                  []flows.Node
		expectedDeploymentType string
		expectedBody           string
	}{
		{
			name:                   "default_full",
			nodes:                  []flows.Node{{ID: "t1", Type: flows.TypeTab}},
			expectedDeploymentType: "full",
			expectedBody:           `[{"id":"t1","type":"tab"}]`,
		},
		{
			name:                   "nodes_deployment",
			deploymentType:         noderedapi.DeploymentTypeNodes,
			nodes:                  nil,
			expectedDeploymentType: "nodes",
			expectedBody:           `[]`,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fake := newFakeNodeRed(testInstance, func(router chi.Router) {
				router.Post("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
					writeJSON(responseWriter, http.StatusOK, `{"rev":"abc"}`)
				})
			})
			client := newAuthorizedClient(testInstance, fake, nil)

			require.NoError(testInstance, client.PostFlows(context.Background(), testCase.nodes, testCase.deploymentType))

			requests := fake.recorded()
			require.Len(testInstance, requests, 1)
			require.Equal(testInstance, http.MethodPost, requests[0].Method)
			require.Equal(testInstance, "application/json", requests[0].ContentType)
			require.Equal(testInstance, testCase.expectedDeploymentType, requests[0].DeploymentType)
			require.JSONEq(testInstance, testCase.expectedBody, string(requests[0].Body))
		})
	}
}

func TestClientPostFlow(testInstance *testing.T) {
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Post("/flow", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusOK, `{"id":"assigned"}`)
		})
	})
	client := newAuthorizedClient(testInstance, fake, nil)

	descriptor := flows.FlowDescriptor{
		ID:      "t1",
		Label:   "sensors",
		Nodes:   []flows.Node{{ID: "n1", Type: flows.TypeHTTPIn, Z: "t1", Wires: [][]string{{"r1"}}}},
		Configs: []flows.Node{{ID: "c1", Type: flows.NodeType("mqtt-broker")}},
	}

	assignedIdentifier, postError := client.PostFlow(context.Background(), descriptor)
	require.NoError(testInstance, postError)
	require.Equal(testInstance, "assigned", assignedIdentifier)

	requests := fake.recorded()
	require.Len(testInstance, requests, 1)
	require.Equal(testInstance, "/flow", requests[0].Path)
	require.Empty(testInstance, requests[0].DeploymentType)
	require.JSONEq(
		testInstance,
		`{"id":"t1","label":"sensors","nodes":[{"id":"n1","type":"http in","z":"t1","wires":[["r1"]]}],"configs":[{"id":"c1","type":"mqtt-broker"}]}`,
		string(requests[0].Body),
	)
}

func TestClientSurfacesUnexpectedStatus(testInstance *testing.T) {
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Post("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusBadRequest, testFailureBodyConstant)
		})
	})
	observerCore, observedLogs := observer.New(zapcore.DebugLevel)
	client := newAuthorizedClient(testInstance, fake, zap.New(observerCore))

	postError := client.PostFlows(context.Background(), []flows.Node{}, noderedapi.DeploymentTypeFull)
	require.Error(testInstance, postError)

	var statusError noderedapi.UnexpectedStatusError
	require.True(testInstance, errors.As(postError, &statusError))
	require.Equal(testInstance, http.MethodPost, statusError.Method)
	require.Equal(testInstance, fake.server.URL+"/flows", statusError.URL)
	require.Equal(testInstance, http.StatusBadRequest, statusError.StatusCode)
	require.Equal(testInstance, testFailureBodyConstant, statusError.Body)
	require.Contains(testInstance, statusError.Error(), "POST "+fake.server.URL+"/flows")

	require.Equal(testInstance, 1, observedLogs.FilterMessage("node-red request").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("node-red response").Len())
	require.Equal(testInstance, 1, observedLogs.FilterMessage("node-red request failed").Len())
}

func TestClientReportsDecodingAndTransportFailures(testInstance *testing.T) {
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Get("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusOK, `{"not":"an array"}`)
		})
	})
	client := newAuthorizedClient(testInstance, fake, nil)

	_, decodingError := client.FetchCurrentFlows(context.Background())
	require.ErrorAs(testInstance, decodingError, &noderedapi.ResponseDecodingError{})

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, transportError := client.FetchCurrentFlows(cancelledContext)
	var operationError noderedapi.OperationError
	require.ErrorAs(testInstance, transportError, &operationError)
	require.Equal(testInstance, noderedapi.OperationFetchCurrentFlows, operationError.Operation)
	require.ErrorIs(testInstance, transportError, context.Canceled)
}

func TestClientAuthenticate(testInstance *testing.T) {
	testCases := []struct {
		name              string
		statusCode        int
		document          string
		expectedToken     string
		expectStatusError bool
	}{
		{name: "password_grant", statusCode: http.StatusOK, document: testTokenDocumentConstant, expectedToken: "issued-token"},
		{name: "rejected_credentials", statusCode: http.StatusUnauthorized, document: `{"error":"unauthorized"}`, expectStatusError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			fake := newFakeNodeRed(testInstance, func(router chi.Router) {
				router.Post("/auth/token", func(responseWriter http.ResponseWriter, request *http.Request) {
					writeJSON(responseWriter, testCase.statusCode, testCase.document)
				})
			})
			client, creationError := noderedapi.NewClient(fake.server.URL, noderedapi.ClientOptions{})
			require.NoError(testInstance, creationError)

			token, authenticationError := client.Authenticate(context.Background(), testUsernameConstant, testPasswordConstant)

			requests := fake.recorded()
			require.Len(testInstance, requests, 1)
			require.Equal(testInstance, "/auth/token", requests[0].Path)
			require.Equal(testInstance, map[string]string{
				"client_id":  "node-red-admin",
				"grant_type": "password",
				"scope":      "*",
				"username":   testUsernameConstant,
				"password":   testPasswordConstant,
			}, requests[0].Form)

			if testCase.expectStatusError {
				var statusError noderedapi.UnexpectedStatusError
				require.ErrorAs(testInstance, authenticationError, &statusError)
				require.Equal(testInstance, http.StatusUnauthorized, statusError.StatusCode)
				require.Equal(testInstance, noderedapi.OperationAuthenticate, statusError.Operation)
				require.JSONEq(testInstance, testCase.document, statusError.Body)
				return
			}
			require.NoError(testInstance, authenticationError)
			require.Equal(testInstance, testCase.expectedToken, token)
		})
	}

	testInstance.Run("missing_username", func(testInstance *testing.T) {
		client, creationError := noderedapi.NewClient("http://node-red.local:1880", noderedapi.ClientOptions{})
		require.NoError(testInstance, creationError)
		_, authenticationError := client.Authenticate(context.Background(), "", testPasswordConstant)
		require.ErrorAs(testInstance, authenticationError, &noderedapi.InvalidInputError{})
	})
}

func TestWithBearerTokenLeavesOriginalUntouched(testInstance *testing.T) {
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Get("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusOK, `[]`)
		})
	})
	anonymousClient, creationError := noderedapi.NewClient(fake.server.URL, noderedapi.ClientOptions{})
	require.NoError(testInstance, creationError)
	authorizedClient := anonymousClient.WithBearerToken("issued-token")

	_, anonymousError := anonymousClient.FetchCurrentFlows(context.Background())
	require.NoError(testInstance, anonymousError)
	nodes, authorizedError := authorizedClient.FetchCurrentFlows(context.Background())
	require.NoError(testInstance, authorizedError)
	require.NotNil(testInstance, nodes)
	require.Empty(testInstance, nodes)

	requests := fake.recorded()
	require.Len(testInstance, requests, 2)
	require.Empty(testInstance, requests[0].Authorization)
	require.Equal(testInstance, "Bearer issued-token", requests[1].Authorization)
}

func TestParseDeploymentType(testInstance *testing.T) {
	testCases := []struct {
		name         string
		value        string
		expectedType noderedapi.DeploymentType
		expectError  bool
	}{
		{name: "empty_defaults_to_full", value: "", expectedType: noderedapi.DeploymentTypeFull},
		{name: "case_insensitive", value: " Nodes ", expectedType: noderedapi.DeploymentTypeNodes},
		{name: "flows", value: "flows", expectedType: noderedapi.DeploymentTypeFlows},
		{name: "reload", value: "reload", expectedType: noderedapi.DeploymentTypeReload},
		{name: "unsupported", value: "partial", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			deploymentType, parseError := noderedapi.ParseDeploymentType(testCase.value)
			if testCase.expectError {
				require.ErrorAs(testInstance, parseError, &noderedapi.InvalidInputError{})
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedType, deploymentType)
		})
	}
}

func TestFlowDocumentsSurviveClientRoundTrip(testInstance *testing.T) {
	var received json.RawMessage
	fake := newFakeNodeRed(testInstance, func(router chi.Router) {
		router.Get("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusOK, `[{"id":"f1","type":"function","z":"t1","func":"return msg;","outputs":2,"wires":[["a"],[]]}]`)
		})
		router.Post("/flows", func(responseWriter http.ResponseWriter, request *http.Request) {
			writeJSON(responseWriter, http.StatusNoContent, "")
		})
	})
	client := newAuthorizedClient(testInstance, fake, nil)

	nodes, fetchError := client.FetchCurrentFlows(context.Background())
	require.NoError(testInstance, fetchError)
	require.NoError(testInstance, client.PostFlows(context.Background(), nodes, noderedapi.DeploymentTypeFull))

	requests := fake.recorded()
	require.Len(testInstance, requests, 2)
	received = requests[1].Body
	require.JSONEq(testInstance, `[{"id":"f1","type":"function","z":"t1","func":"return msg;","outputs":2,"wires":[["a"],[]]}]`, string(received))
}
