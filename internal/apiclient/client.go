// Package apiclient talks to the TMS backend REST API. It is the only place
// where transport failures and error bodies are turned into typed errors.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tms-console/internal/domain"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

// Client is a thin JSON client for the backend.
type Client struct {
	BaseURL    string
	APIKey     string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient creates a client for baseURL. Trailing slashes are trimmed.
func NewClient(baseURL, apiKey, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Token:      token,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		Logger:     slog.Default(),
	}
}

// WithCredentials returns a shallow copy that authenticates with c.
func (c *Client) WithCredentials(creds domain.Credentials) *Client {
	cp := *c
	cp.Token = creds.Token
	cp.APIKey = creds.APIKey
	return &cp
}

// request describes one backend call.
type request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	RawBody     io.Reader
	ContentType string
	Accept      string
}

// Do sends a JSON request and returns the raw response. The caller owns the
// body. Non-2xx responses are returned as-is; use CheckError to translate them.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	return c.send(ctx, request{Method: method, Path: path, Query: query, Body: body})
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	u := c.BaseURL + req.Path
	if q := compactQuery(req.Query); len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	contentType := req.ContentType
	switch {
	case req.RawBody != nil:
		body = req.RawBody
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, domain.NewUnknownError(0, "marshal request body", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, domain.NewUnknownError(0, "create request", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	} else if c.APIKey != "" {
		httpReq.Header.Set("X-API-Key", c.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		c.logger().DebugContext(ctx, "backend request failed", "method", req.Method, "path", req.Path, "error", err)
		return nil, domain.NewUnknownError(0, "execute request: "+err.Error(), err)
	}
	c.logger().DebugContext(ctx, "backend request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewUnknownError(resp.StatusCode, "read response", err)
	}
	return data, nil
}

type errorEnvelope struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    *struct {
		Errors json.RawMessage `json:"errors"`
	} `json:"data"`
}

// CheckError translates a non-2xx response into a *domain.APIError. The body
// is consumed and closed on failure. importCall selects the import error shape.
func CheckError(resp *http.Response, importCall bool) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, err := ReadBody(resp)
	if err != nil {
		return err
	}
	return decodeError(resp.StatusCode, body, importCall)
}

func decodeError(status int, body []byte, importCall bool) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return domain.NewUnknownError(status, msg, nil)
	}
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	if importCall {
		var rows []string
		if env.Data != nil {
			rows = decodeMessages(env.Data.Errors)
		}
		if len(rows) == 0 {
			rows = decodeMessages(env.Errors)
		}
		return domain.NewImportError(status, msg, rows)
	}

	fields := map[string][]string{}
	if len(env.Errors) > 0 && string(env.Errors) != "null" {
		var byField map[string]json.RawMessage
		if err := json.Unmarshal(env.Errors, &byField); err == nil {
			for name, raw := range byField {
				if msgs := decodeMessages(raw); len(msgs) > 0 {
					fields[name] = msgs
				}
			}
		} else if msgs := decodeMessages(env.Errors); len(msgs) > 0 {
			fields["_"] = msgs
		}
	}
	return domain.NewFieldError(status, msg, fields)
}

// decodeMessages accepts a string, a list of strings or a list of objects
// carrying a message/error and an optional row number.
func decodeMessages(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{string(raw)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Row     json.Number `json:"row"`
			Message string      `json:"message"`
			Error   string      `json:"error"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && (obj.Message != "" || obj.Error != "") {
			text := obj.Message
			if text == "" {
				text = obj.Error
			}
			if obj.Row != "" {
				text = fmt.Sprintf("row %s: %s", obj.Row, text)
			}
			out = append(out, text)
			continue
		}
		out = append(out, string(item))
	}
	return out
}

func compactQuery(q url.Values) url.Values {
	if len(q) == 0 {
		return nil
	}
	out := url.Values{}
	for k, vals := range q {
		for _, v := range vals {
			if strings.TrimSpace(v) == "" {
				continue
			}
			out.Add(k, v)
		}
	}
	return out
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
