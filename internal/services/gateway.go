package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	tracerName       = "musiq.gateway"
	defaultBaseURL   = "http://localhost:8000"
	defaultUserAgent = "musiq/0.1"
	maxErrorBody     = 64 << 10
)

// TokenStore is the part of the session the gateway needs: read the bearer token,
// and drop the session when the backend rejects it.
type TokenStore interface {
	Token() (string, bool)
	ClearSession()
}

// GatewayOpts configures a [Gateway]. Zero fields get defaults.
type GatewayOpts struct {
	BaseURL        string
	Client         *http.Client
	UserAgent      string
	Logger         *log.Logger
	TracerProvider trace.TracerProvider
}

// Gateway sends JSON requests to the music backend.
//
// It attaches the session token, maps non-success statuses to [APIError], and clears the
// session on 401. It never retries.
type Gateway struct {
	baseURL   string
	client    *http.Client
	userAgent string
	tokens    TokenStore
	logger    *log.Logger
	tracer    trace.Tracer
}

// NewGateway creates a Gateway. tokens may be nil for an anonymous client.
func NewGateway(opts GatewayOpts, tokens TokenStore) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}

	return &Gateway{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		client:    opts.Client,
		userAgent: opts.UserAgent,
		tokens:    tokens,
		logger:    shared.WithLogger(opts.Logger, "component", "gateway"),
		tracer:    opts.TracerProvider.Tracer(tracerName),
	}
}

// BaseURL returns the backend root without a trailing slash.
func (g *Gateway) BaseURL() string { return g.baseURL }

// HTTPClient returns the client used for requests.
func (g *Gateway) HTTPClient() *http.Client { return g.client }

// withTokens returns a copy of g that reads tokens from t.
func (g *Gateway) withTokens(t TokenStore) *Gateway {
	c := *g
	c.tokens = t
	return &c
}

// FieldDetail is one entry of a FastAPI validation error.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-success response from the backend.
//
// It matches [shared.ErrRequestFailed] and, through Unwrap, the status class in Kind:
// [shared.ErrAuthRequired], [shared.ErrValidation], [shared.ErrNotFound] or [shared.ErrServer].
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
	Fields  []FieldDetail
	Kind    error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.Kind }

func (e *APIError) Is(target error) bool { return target == shared.ErrRequestFailed }

// Field returns the server message for a field, or "".
func (e *APIError) Field(name string) string {
	for _, f := range e.Fields {
		if f.Field == name {
			return f.Message
		}
	}
	return ""
}

func statusKind(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return shared.ErrAuthRequired
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return shared.ErrValidation
	case status == http.StatusNotFound:
		return shared.ErrNotFound
	case status >= 500:
		return shared.ErrServer
	default:
		return shared.ErrRequestFailed
	}
}

// Get decodes the JSON response of GET path into out.
func (g *Gateway) Get(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON, or as a form when it is [url.Values].
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

func (g *Gateway) Delete(ctx context.Context, path string, out any) error {
	return g.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one request. A nil out discards the response body.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) (err error) {
	ctx, span := g.tracer.Start(ctx, method+" "+routeOf(path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer func() { endSpan(span, err) }()

	req, err := g.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("musiq.request_id", req.Header.Get("X-Request-ID")))

	sent := g.authorize(req)
	span.SetAttributes(attribute.Bool("musiq.authenticated", sent != ""))

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	g.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := g.errorFrom(resp, method, path)
		if resp.StatusCode == http.StatusUnauthorized && g.tokens != nil {
			// A newer session may have replaced the rejected token while the request was in flight.
			if current, _ := g.tokens.Token(); current == sent {
				g.logger.Warn("token rejected, clearing session", "path", path)
				g.tokens.ClearSession()
			} else {
				g.logger.Debug("rejected token already replaced", "path", path)
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var (
		reader      io.Reader
		contentType string
	)

	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// authorize sets the bearer header when the session holds a token.
// authorize attaches the session token, if any, and returns the token it sent.
func (g *Gateway) authorize(req *http.Request) string {
	if g.tokens == nil {
		return ""
	}
	token, ok := g.tokens.Token()
	if !ok {
		return ""
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	return token
}

func (g *Gateway) errorFrom(resp *http.Response, method, path string) *APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg, fields := parseDetail(data)
	return &APIError{
		Status:  resp.StatusCode,
		Method:  method,
		Path:    path,
		Message: msg,
		Fields:  fields,
		Kind:    statusKind(resp.StatusCode),
	}
}

// parseDetail reads FastAPI's {"detail": ...}, which is either a string or a list of
// {loc, msg, type} objects.
func parseDetail(data []byte) (string, []FieldDetail) {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s, nil
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err != nil {
		return "", nil
	}

	msgs := make([]string, 0, len(items))
	fields := make([]FieldDetail, 0, len(items))
	for _, it := range items {
		msgs = append(msgs, it.Msg)
		if len(it.Loc) > 0 {
			fields = append(fields, FieldDetail{Field: fmt.Sprint(it.Loc[len(it.Loc)-1]), Message: it.Msg})
		}
	}
	return strings.Join(msgs, "; "), fields
}

func transportError(method, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %s %s: %w", shared.ErrNetwork, shared.ErrTimeout, method, path, err)
	}
	return fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, path, err)
}

// routeOf drops the query string and numeric segments so span names stay low-cardinality.
func routeOf(path string) string {
	path, _, _ = strings.Cut(path, "?")
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.Trim(p, "0123456789") == "" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}
