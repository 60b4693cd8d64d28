package connection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/yndnr/meshview-go/internal/infra/buildinfo"
	"github.com/yndnr/meshview-go/internal/infra/tlsroots"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoContent is returned by ParseResponse for 204 answers, which the
// server sends when a wait for the next snapshot runs out.
var ErrNoContent = errors.New("no content")

// APIError is a non-2xx answer decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
		if e.Details != "" {
			msg += ": " + e.Details
		}
		return msg
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	token     string
	userAgent string
}

// NewHTTPClient creates a client for conn. Request deadlines come from the
// caller's context since long-polling reads can legitimately take a while.
func NewHTTPClient(conn *Connection) (*HTTPClient, error) {
	baseURL, err := NormalizeServer(conn.Server)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if conn.CAFile != "" || conn.Insecure {
		tlsCfg, err := tlsroots.ClientConfig(conn.CAFile, conn.Insecure)
		if err != nil {
			return nil, fmt.Errorf("tls config: %w", err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	return &HTTPClient{
		baseURL:   baseURL,
		token:     conn.Token,
		userAgent: buildinfo.UserAgent("meshview-cli"),
		client:    &http.Client{Transport: transport},
	}, nil
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.client.Do(req)
}

// Put performs a PUT request with a JSON body.
func (c *HTTPClient) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.client.Do(req)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// ParseResponse decodes a JSON response body into target and closes it.
// Error answers become *APIError; 204 becomes ErrNoContent.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
			if body.Details != nil {
				apiErr.Details = fmt.Sprint(body.Details)
			}
		}
		return apiErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}

// ParseEnvelope decodes a {code, message, data} envelope and stores data
// in target.
func ParseEnvelope(resp *http.Response, target any) error {
	var env struct {
		Data jsoniter.RawMessage `json:"data"`
	}
	if err := ParseResponse(resp, &env); err != nil {
		return err
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}
