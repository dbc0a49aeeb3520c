package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/vmware-archive/salt-ci/common/gerror"
	"github.com/vmware-archive/salt-ci/common/logger"
	"github.com/vmware-archive/salt-ci/server/api/rest/documents"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// APIClient is an HTTP client used to interact with the salt-ci REST API. Each client holds its own
// cookie jar, so it carries the session of whichever account signed in through it.
type APIClient struct {
	endpoint        string
	httpClient      *http.Client
	retryableClient *retryablehttp.Client
	log             logger.Log
}

func NewAPIClient(endpoint string, logFactory logger.LogFactory) (*APIClient, error) {
	log := logFactory("APIClient")
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating cookie jar")
	}
	httpClient := &http.Client{
		Jar: jar,
		// Redirects are part of the sign-in flow and are returned to the caller rather than followed
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	retryableClient := retryablehttp.NewClient()
	retryableClient.RetryWaitMin = time.Millisecond * 100
	retryableClient.RetryWaitMax = time.Second * 2
	retryableClient.RetryMax = 3
	retryableClient.Logger = NewLeveledLogger(log)
	retryableClient.HTTPClient = httpClient
	retryableClient.CheckRetry = retryOnConnectionFailure
	return &APIClient{
		endpoint:        strings.TrimRight(endpoint, "/"),
		httpClient:      httpClient,
		retryableClient: retryableClient,
		log:             log,
	}, nil
}

// SetEndpoint points the client at another server, keeping its cookie jar.
func (a *APIClient) SetEndpoint(endpoint string) {
	a.endpoint = strings.TrimRight(endpoint, "/")
}

// retryOnConnectionFailure retries requests that never got a response, and 503s. Other error
// statuses carry API errors for the caller.
func retryOnConnectionFailure(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode == http.StatusServiceUnavailable, nil
}

// getJSON performs a GET request and unmarshals a response with one of validCodes into v.
func (a *APIClient) getJSON(ctx context.Context, pathOrURL string, v interface{}, validCodes ...int) (int, error) {
	return a.doJSON(ctx, http.MethodGet, pathOrURL, nil, v, validCodes...)
}

// postJSON performs a POST request, serializing data (if not nil) to JSON as the request body.
func (a *APIClient) postJSON(ctx context.Context, pathOrURL string, data interface{}, v interface{}, validCodes ...int) (int, error) {
	return a.doJSON(ctx, http.MethodPost, pathOrURL, data, v, validCodes...)
}

// patchJSON performs a PATCH request, serializing data to JSON as the request body.
func (a *APIClient) patchJSON(ctx context.Context, pathOrURL string, data interface{}, v interface{}, validCodes ...int) (int, error) {
	return a.doJSON(ctx, http.MethodPatch, pathOrURL, data, v, validCodes...)
}

func (a *APIClient) doJSON(ctx context.Context, verb string, pathOrURL string, data interface{}, v interface{}, validCodes ...int) (int, error) {
	var body []byte
	if data != nil {
		var err error
		body, err = json.Marshal(data)
		if err != nil {
			return -1, errors.Wrap(err, "error marshaling request data to JSON")
		}
	}
	statusCode, _, resBody, err := a.doRequest(ctx, verb, pathOrURL, contentTypeJSON, body)
	if err != nil {
		return statusCode, err
	}
	if !a.isOneOf(statusCode, validCodes) {
		return statusCode, a.makeHTTPError(statusCode, resBody)
	}
	if v != nil && len(resBody) > 0 {
		err = unmarshal(resBody, v)
		if err != nil {
			return statusCode, err
		}
	}
	return statusCode, nil
}

func unmarshal(body []byte, v interface{}) error {
	err := json.Unmarshal(body, v)
	if err != nil {
		return errors.Wrap(err, "error unmarshalling response body")
	}
	return nil
}

// doRequest performs an HTTP request and returns the status code, response headers and response body.
// Returns an error if there was a problem making the request but no HTTP status code inspection is made.
func (a *APIClient) doRequest(ctx context.Context, verb string, pathOrURL string, contentType string, body []byte) (int, http.Header, []byte, error) {
	endpoint, err := a.getRequestEndpoint(pathOrURL)
	if err != nil {
		return -1, nil, nil, fmt.Errorf("error getting request endpoint: %w", err)
	}
	var reqBody interface{}
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, verb, endpoint, reqBody)
	if err != nil {
		return -1, nil, nil, errors.Wrap(err, "error making request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentTypeJSON)
	res, err := a.retryableClient.Do(req)
	if err != nil {
		return -1, nil, nil, errors.Wrap(err, "error during request")
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return -1, nil, nil, errors.Wrap(err, "error reading response body")
	}
	return res.StatusCode, res.Header, resBody, nil
}

func (a *APIClient) getRequestEndpoint(pathOrURL string) (string, error) {
	uri, err := url.ParseRequestURI(pathOrURL)
	if err == nil && uri.Host != "" {
		return uri.String(), nil
	}
	if a.endpoint == "" {
		return "", errors.New("error no endpoint")
	}
	if !strings.HasPrefix(pathOrURL, "/") {
		pathOrURL = "/" + pathOrURL
	}
	uri, err = url.ParseRequestURI(a.endpoint + pathOrURL)
	if err != nil {
		return "", errors.Wrap(err, "error forming url")
	}
	return uri.String(), nil
}

// isOneOf returns true iff an HTTP status code is one of the supplied set of valid codes.
func (a *APIClient) isOneOf(statusCode int, validCodes []int) bool {
	for _, code := range validCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// makeHTTPError attempts to parse an HTTP response body to a standard public error
// and return it. If the response body cannot be parsed, a generic error including
// the text of the response body will be returned instead.
func (a *APIClient) makeHTTPError(statusCode int, body []byte) error {
	doc := &documents.ErrorDocument{}
	err := json.Unmarshal(body, doc)
	if err != nil || doc.Code == "" {
		return gerror.NewError(
			fmt.Sprintf("error %d in HTTP response: %s", statusCode, string(body)),
			gerror.AudienceExternal,
			gerror.ErrCodeInternal,
			statusCode,
			nil,
		)
	}
	details := make(gerror.Details, len(doc.Details))
	for k, v := range doc.Details {
		details[k] = gerror.NewDetail(gerror.AudienceExternal, k, v)
	}
	return gerror.NewErrorWithDetails(doc.Message, details, gerror.AudienceExternal, doc.Code, doc.HTTPStatusCode, nil)
}
