package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mkrupp/voicechat/internal/domain"
	context_ "github.com/mkrupp/voicechat/internal/infra/context"
	. "github.com/mkrupp/voicechat/internal/infra/transport/http"
)

type capturedRequest struct {
	Method    string
	Path      string
	Query     url.Values
	Header    http.Header
	JSON      map[string]any
	Parts     map[string]string
	PartTypes map[string]string
	FileNames map[string]string
}

func newCapturingServer(t *testing.T, status int, body string) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()

	captured := make(chan capturedRequest, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := capturedRequest{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.Query(),
			Header:    r.Header.Clone(),
			Parts:     map[string]string{},
			PartTypes: map[string]string{},
			FileNames: map[string]string{},
		}

		mediaType, params, _ := mime.ParseMediaType(r.Header.Get(ContentTypeHeader))

		switch mediaType {
		case ContentTypeJSON:
			_ = json.NewDecoder(r.Body).Decode(&req.JSON)
		case "multipart/form-data":
			reader := multipart.NewReader(r.Body, params["boundary"])

			for {
				part, err := reader.NextPart()
				if err != nil {
					break
				}

				data, _ := io.ReadAll(part)
				req.Parts[part.FormName()] = string(data)
				req.PartTypes[part.FormName()] = part.Header.Get(ContentTypeHeader)
				req.FileNames[part.FormName()] = part.FileName()
			}
		}

		captured <- req

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, captured
}

func TestClientDoJSON(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusOK, `{"token":"tok1"}`)
	client := NewClient(ClientConfig{BaseURL: srv.URL + "/", Timeout: time.Second, UserAgent: "test-agent"}, srv.Client(), nil)

	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/login",
		Query:  url.Values{"lang": {"es"}},
		JSON:   map[string]string{"email": "a@b.com", "password": "secret12"},
	}.WithHeader("X-Custom", "1"))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if !resp.OK() || resp.Text() != `{"token":"tok1"}` {
		t.Errorf("response = %d %q", resp.Status, resp.Text())
	}

	req := <-captured

	if req.Method != http.MethodPost || req.Path != "/login" {
		t.Errorf("request = %s %s, want POST /login", req.Method, req.Path)
	}

	if req.Query.Get("lang") != "es" {
		t.Errorf("query lang = %q, want %q", req.Query.Get("lang"), "es")
	}

	if req.JSON["email"] != "a@b.com" || req.JSON["password"] != "secret12" {
		t.Errorf("json body = %v", req.JSON)
	}

	if got := req.Header.Get(UserAgentHeader); got != "test-agent" {
		t.Errorf("User-Agent = %q, want %q", got, "test-agent")
	}

	if got := req.Header.Get("X-Custom"); got != "1" {
		t.Errorf("X-Custom = %q, want %q", got, "1")
	}

	if req.Header.Get(RequestIDHeader) == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestClientDoMultipart(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusCreated, `{}`)
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client(), nil)

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "messages",
		Parts: []Part{
			TextPart("sender_id", "1"),
			FilePart("audio_file", domain.NewFile("note.m4a", []byte("audio")), "audio/mp4"),
			FilePart("media_file", domain.NewFile("blob", []byte("bin")), ""),
		},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	req := <-captured

	if req.Path != "/messages" {
		t.Errorf("path = %q, want /messages", req.Path)
	}

	tests := []struct {
		part     string
		value    string
		typ      string
		fileName string
	}{
		{part: "sender_id", value: "1", typ: ContentTypeText},
		{part: "audio_file", value: "audio", typ: "audio/mp4", fileName: "note.m4a"},
		{part: "media_file", value: "bin", typ: ContentTypeBin, fileName: "blob"},
	}

	for _, tt := range tests {
		if req.Parts[tt.part] != tt.value {
			t.Errorf("part %s = %q, want %q", tt.part, req.Parts[tt.part], tt.value)
		}

		if req.PartTypes[tt.part] != tt.typ {
			t.Errorf("part %s content type = %q, want %q", tt.part, req.PartTypes[tt.part], tt.typ)
		}

		if req.FileNames[tt.part] != tt.fileName {
			t.Errorf("part %s file name = %q, want %q", tt.part, req.FileNames[tt.part], tt.fileName)
		}
	}
}

func TestClientDoReturnsNon2xx(t *testing.T) {
	t.Parallel()

	srv, _ := newCapturingServer(t, http.StatusMethodNotAllowed, "<h1>405</h1>")
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client(), nil)

	resp, err := client.Do(context.Background(), Request{Method: http.MethodPatch, Path: "/users/1"})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if resp.OK() || resp.Status != http.StatusMethodNotAllowed || resp.Text() != "<h1>405</h1>" {
		t.Errorf("response = %d %q", resp.Status, resp.Text())
	}
}

func TestClientUsesRequestIDFromContext(t *testing.T) {
	t.Parallel()

	srv, captured := newCapturingServer(t, http.StatusOK, "")
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second}, srv.Client(), nil)

	ctx := context_.WithRequestID(context.Background(), "req-42")

	for range 2 {
		if _, err := client.Do(ctx, Request{Method: http.MethodGet, Path: "/users"}); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if got := (<-captured).Header.Get(RequestIDHeader); got != "req-42" {
			t.Errorf("X-Request-ID = %q, want %q", got, "req-42")
		}
	}
}

func TestClientRecoversTransportPanic(t *testing.T) {
	t.Parallel()

	//nolint:exhaustruct
	httpClient := &http.Client{Transport: RoundTripperFunc(func(*http.Request) (*http.Response, error) {
		panic("boom")
	})}

	client := NewClient(ClientConfig{BaseURL: "http://chat.invalid", Timeout: time.Second}, httpClient, nil)

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"})
	if !errors.Is(err, ErrPanic) {
		t.Errorf("Do() error = %v, want %v", err, ErrPanic)
	}
}

func TestClientTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second}, nil, nil)

	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"}); err == nil {
		t.Error("Do() expected error for closed server")
	}
}

func TestClientRateLimiterHonoursContext(t *testing.T) {
	t.Parallel()

	srv, _ := newCapturingServer(t, http.StatusOK, "")
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: time.Second, RateLimit: 0.001, RateBurst: 1}, srv.Client(), nil)

	if _, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"}); err != nil {
		t.Fatalf("first Do() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := client.Do(ctx, Request{Method: http.MethodGet, Path: "/users"}); err == nil {
		t.Error("second Do() expected rate limiter error")
	}
}

func TestClientRejectsMixedBodies(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://chat.invalid"}, nil, nil)

	_, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/login",
		JSON:   map[string]string{},
		Parts:  []Part{TextPart("a", "b")},
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Do() error = %v, want %v", err, ErrInvalidRequest)
	}
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	var seen string

	handler := TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = context_.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set(RequestIDHeader, "abc")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc" || rec.Header().Get(RequestIDHeader) != "abc" {
		t.Errorf("request id = %q, echoed %q", seen, rec.Header().Get(RequestIDHeader))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

	if !strings.Contains(rec.Header().Get(RequestIDHeader), "-") {
		t.Errorf("generated request id = %q, want a UUID", rec.Header().Get(RequestIDHeader))
	}
}
