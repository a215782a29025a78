package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/metrics"
)

const (
	RequestIDHeader     = "X-Request-ID"
	AuthorizationHeader = "Authorization"
	ContentTypeHeader   = "Content-Type"
	UserAgentHeader     = "User-Agent"

	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeBin  = "application/octet-stream"
)

// ErrInvalidRequest is returned when a request cannot be encoded.
var ErrInvalidRequest = errors.New("invalid request")

// ClientConfig holds configuration for the chat backend HTTP client.
type ClientConfig struct {
	// BaseURL is the scheme, host and optional path prefix of the chat backend
	BaseURL string `env:"BASE_URL" default:"http://localhost:5000"`
	// Timeout bounds every single round trip, including reading the body
	Timeout time.Duration `env:"TIMEOUT" default:"30s"`
	// UserAgent is sent with every request
	UserAgent string `env:"USER_AGENT" default:"voicechat-go/1.0"`
	// RateLimit is the maximum number of requests per second, 0 disables throttling
	RateLimit float64 `env:"RATE_LIMIT" default:"0"`
	// RateBurst is the burst size of the rate limiter
	RateBurst int `env:"RATE_BURST" default:"1"`
}

// Part is one part of a multipart request. A part carries either a text
// value or a file.
type Part struct {
	Name        string
	Value       string
	File        *domain.File
	ContentType string
}

// TextPart creates a plain-text form field.
func TextPart(name, value string) Part {
	return Part{Name: name, Value: value, ContentType: ContentTypeText}
}

// FilePart creates a file part typed with the given content type.
func FilePart(name string, file *domain.File, contentType string) Part {
	if contentType == "" {
		contentType = ContentTypeBin
	}

	return Part{Name: name, File: file, ContentType: contentType}
}

// Request describes a call to the chat backend. It is a value: the body is
// encoded again for every attempt, so one Request can be sent repeatedly.
type Request struct {
	Method string
	// Path is relative to ClientConfig.BaseURL and must already be escaped.
	Path   string
	Query  url.Values
	Header http.Header
	// JSON, if non-nil, is encoded as the request body.
	JSON any
	// Parts, if non-empty, are encoded as a multipart/form-data body.
	Parts []Part
}

// WithHeader returns a copy of the request with the header set.
func (r Request) WithHeader(key, value string) Request {
	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	header.Set(key, value)
	r.Header = header

	return r
}

// Response is a fully read response of the chat backend.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Text returns the body as a trimmed string.
func (r *Response) Text() string {
	return strings.TrimSpace(string(r.Body))
}

// Doer sends requests to the chat backend.
type Doer interface {
	// Do sends the request and returns the response whatever its status.
	// An error is only returned when no response was received.
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client implements Doer on top of net/http.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.ClientMetrics
	log        logging.Logger
	cfg        ClientConfig
}

var _ Doer = (*Client)(nil)

// NewClient creates a new Client. The transport of httpClient, or
// http.DefaultTransport if httpClient is nil, is wrapped with request id,
// logging and panic recovery round trippers.
func NewClient(cfg ClientConfig, httpClient *http.Client, m *metrics.ClientMetrics) *Client {
	log := logging.GetLogger("infra.transport.http.client")

	var base http.RoundTripper
	if httpClient != nil {
		base = httpClient.Transport
	}

	if base == nil {
		base = http.DefaultTransport
	}

	base = TracingRoundTripper(base)
	base = LoggingRoundTripper(base, log)
	base = RescueingRoundTripper(base, log)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	//nolint:exhaustruct
	return &Client{
		httpClient: &http.Client{
			Transport: base,
			Timeout:   cfg.Timeout,
		},
		limiter: limiter,
		metrics: m,
		log:     log,
		cfg:     cfg,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Do implements Doer.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0, time.Since(start))

		return nil, fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	c.metrics.ObserveRequest(req.Method, resp.StatusCode, time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Body:   body,
		Header: resp.Header,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if contentType != "" {
		httpReq.Header.Set(ContentTypeHeader, contentType)
	}

	if c.cfg.UserAgent != "" {
		httpReq.Header.Set(UserAgentHeader, c.cfg.UserAgent)
	}

	return httpReq, nil
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.JSON != nil && len(req.Parts) > 0:
		return nil, "", fmt.Errorf("%w: both JSON and multipart body", ErrInvalidRequest)
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json body: %w", err)
		}

		return bytes.NewReader(data), ContentTypeJSON, nil
	case len(req.Parts) > 0:
		return encodeMultipart(req.Parts)
	default:
		return http.NoBody, "", nil
	}
}

//nolint:gochecknoglobals
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeMultipart(parts []Part) (io.Reader, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	for _, part := range parts {
		if part.Name == "" {
			return nil, "", fmt.Errorf("%w: multipart part without name", ErrInvalidRequest)
		}

		disposition := fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(part.Name))
		data := []byte(part.Value)

		if part.File != nil {
			disposition += fmt.Sprintf(`; filename="%s"`, quoteEscaper.Replace(part.File.Name))
			data = part.File.Data
		}

		contentType := part.ContentType
		if contentType == "" {
			contentType = ContentTypeText
			if part.File != nil {
				contentType = ContentTypeBin
			}
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", disposition)
		header.Set(ContentTypeHeader, contentType)

		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", part.Name, err)
		}

		if _, err := w.Write(data); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", part.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
