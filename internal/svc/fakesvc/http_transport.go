package fakesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/voicechat/internal/domain"
	context_ "github.com/mkrupp/voicechat/internal/infra/context"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/metrics"
	transport "github.com/mkrupp/voicechat/internal/infra/transport/http"
	"github.com/mkrupp/voicechat/internal/repo/chat"
)

// ErrBadRequest is returned for malformed request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

// multipartMemory is the part of a multipart body kept in memory.
const multipartMemory = 8 << 20

// HTTPTransport serves the routes of the voice chat backend, plus the
// profile and message editing routes the client falls back through.
type HTTPTransport struct {
	svc      *FakeChatService
	tokens   *TokenIssuer
	metrics  *metrics.ServerMetrics
	router   chi.Router
	requests atomic.Int64
	log      logging.Logger
	cfg      FakeConfig
}

var _ transport.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates the fake backend handler. Metrics are exposed on
// /metrics when gatherer is not nil.
func NewHTTPTransport(
	svc *FakeChatService,
	tokens *TokenIssuer,
	cfg FakeConfig,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
) *HTTPTransport {
	//nolint:exhaustruct
	ht := &HTTPTransport{
		svc:     svc,
		tokens:  tokens,
		metrics: metrics.NewServerMetrics(reg),
		log:     logging.GetLogger("svc.fakesvc.http_transport"),
		cfg:     cfg,
	}

	ht.router = ht.routes(gatherer)

	return ht
}

// Requests returns the number of requests served so far.
func (ht *HTTPTransport) Requests() int64 {
	return ht.requests.Load()
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.requests.Add(1)
	ht.router.ServeHTTP(w, r)
}

func (ht *HTTPTransport) routes(gatherer prometheus.Gatherer) chi.Router {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeHTMLError(w, http.StatusNotFound,
			"The requested URL was not found on the server. "+
				"If you entered the URL manually please check your spelling and try again.")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeHTMLError(w, http.StatusMethodNotAllowed, "The method is not allowed for the requested URL.")
	})
	router.Use(ht.observe)

	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	router.Post("/register", ht.handle("register", ht.handleRegister))
	router.Post("/login", ht.handle("login", ht.handleLogin))
	router.Get("/users", ht.handle("list users", ht.handleListUsers))
	router.Get("/uploads/{filename}", ht.handle("download upload", ht.handleDownloadUpload))
	router.Get("/media/audio/{id}", ht.handle("download audio", ht.handleDownloadAudio))
	router.Get("/media/media/{id}", ht.handle("download media", ht.handleDownloadMedia))

	router.Group(func(router chi.Router) {
		if ht.tokens.Mode() != AuthModeNone {
			router.Use(func(next http.Handler) http.Handler {
				return transport.AuthorizingMiddleware(next, ht.tokens, ht.log)
			})
		}

		router.Get("/users/{id}", ht.handle("get user", ht.handleGetUser))

		for _, method := range ht.cfg.updateMethods() {
			router.Method(method, "/users/{id}", ht.handle("update user", ht.handleUpdateUser))
		}

		router.Post("/users/{id}/delete", ht.handle("delete user", ht.handleDeleteUser))
		router.Post("/messages", ht.handle("send message", ht.handleSendMessage))
		router.Get("/messages/{id}/{peerID}", ht.handle("get messages", ht.handleGetMessages))
		router.Patch("/messages/{id}", ht.handle("update message", ht.handleUpdateMessage))
		router.Post("/messages/{id}/delete", ht.handle("delete message", ht.handleDeleteMessage))
		router.Post("/media/audio/{id}/delete", ht.handle("delete audio", ht.handleDeleteAudio))

		if ht.cfg.DirectDelete {
			router.Delete("/users/{id}", ht.handle("delete user", ht.handleDeleteUser))
			router.Delete("/messages/{id}", ht.handle("delete message", ht.handleDeleteMessage))
			router.Delete("/media/audio/{id}", ht.handle("delete audio", ht.handleDeleteAudio))
		}
	})

	return router
}

// observe counts requests by route pattern.
func (ht *HTTPTransport) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := transport.NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		ht.metrics.ObserveRequest(r.Method, route, rec.Status)
	})
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts a handler returning an error. Errors not yet answered are
// written as JSON {"message": ...} with a status derived from the error.
func (ht *HTTPTransport) handle(name string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
		ctx := context_.WithOperation(r.Context(), name)

		err := fn(w, r.WithContext(ctx))
		if err == nil {
			log.DebugContext(ctx, name+" served")

			return
		}

		status, message := statusOf(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, name+" failed", "error", err)
		} else {
			log.DebugContext(ctx, name+" rejected", "status", status, "error", err)
		}

		if writeErr := writeJSON(w, status, noticeResponse{Message: message}); writeErr != nil {
			log.WarnContext(ctx, "write error response failed", "error", writeErr)
		}
	}
}

//nolint:gochecknoglobals
var errorStatuses = []struct {
	err    error
	status int
}{
	{ErrBadRequest, http.StatusBadRequest},
	{ErrMissingFields, http.StatusBadRequest},
	{ErrAudioRequired, http.StatusBadRequest},
	{ErrFileNotAllowed, http.StatusBadRequest},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{chat.ErrUserNotFound, http.StatusNotFound},
	{chat.ErrMessageNotFound, http.StatusNotFound},
	{ErrFileNotFound, http.StatusNotFound},
	{chat.ErrEmailTaken, http.StatusConflict},
}

func statusOf(err error) (int, string) {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			message := entry.err.Error()
			if entry.status == http.StatusBadRequest {
				message = err.Error()
			}

			return entry.status, message
		}
	}

	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// baseURL is the prefix of file URLs in responses.
func (ht *HTTPTransport) baseURL(r *http.Request) string {
	if ht.cfg.PublicURL != "" {
		return strings.TrimRight(ht.cfg.PublicURL, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

func callerID(ctx context.Context) int64 {
	userID, _ := context_.UserIDFromContext(ctx)

	return userID
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}

	return id, nil
}

// parseForm parses a multipart or urlencoded body.
func (ht *HTTPTransport) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(ht.cfg.MaxUploadSize))

	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}

	if err != nil {
		return fmt.Errorf("%w: parse form: %w", ErrBadRequest, err)
	}

	return nil
}

func formString(r *http.Request, name string) *string {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return nil
	}

	return &values[0]
}

func formFile(r *http.Request, name string) (*domain.File, error) {
	file, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil //nolint:nilnil
	} else if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadRequest, name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return domain.NewFile(header.Filename, data), nil
}

func (ht *HTTPTransport) withToken(resp *authResponse, user *chat.UserRecord) error {
	if !ht.cfg.IssueTokens {
		return nil
	}

	token, err := ht.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	resp.Token = token

	return nil
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) error {
	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	picture, err := formFile(r, "profile_picture")
	if err != nil {
		return err
	}

	user, err := ht.svc.Register(r.Context(), Registration{
		Email:    r.PostFormValue("email"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Picture:  picture,
	})
	if err != nil {
		return err
	}

	//nolint:exhaustruct
	resp := &authResponse{Message: "User registered", User: newUserResponse(user, ht.baseURL(r))}
	if err := ht.withToken(resp, user); err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, resp)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		return fmt.Errorf("%w: JSON body expected", ErrBadRequest)
	}

	user, err := ht.svc.Login(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		return err
	}

	//nolint:exhaustruct
	resp := &authResponse{Message: "Login successful", User: newUserResponse(user, ht.baseURL(r))}
	if err := ht.withToken(resp, user); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (ht *HTTPTransport) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := ht.svc.ListUsers(r.Context())
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, newUserResponses(users, ht.baseURL(r)))
}

func (ht *HTTPTransport) handleGetUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	user, err := ht.svc.GetUser(r.Context(), id)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, newUserResponse(user, ht.baseURL(r)))
}

func (ht *HTTPTransport) handleUpdateUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	picture, err := formFile(r, "profile_picture")
	if err != nil {
		return err
	}

	remove, _ := strconv.ParseBool(r.PostFormValue("remove_profile"))

	user, err := ht.svc.UpdateUser(r.Context(), callerID(r.Context()), id, ProfileUpdate{
		Email:         formString(r, "email"),
		Username:      formString(r, "username"),
		Password:      formString(r, "password"),
		Picture:       picture,
		RemovePicture: remove,
	})
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, newUserResponse(user, ht.baseURL(r)))
}

func (ht *HTTPTransport) handleDeleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := ht.svc.DeleteUser(r.Context(), callerID(r.Context()), id); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, noticeResponse{Message: fmt.Sprintf("User %d deleted", id)})
}

func formID(r *http.Request, name string) (int64, error) {
	value := r.PostFormValue(name)
	if value == "" {
		return 0, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}

	return id, nil
}

func (ht *HTTPTransport) handleSendMessage(w http.ResponseWriter, r *http.Request) error {
	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	var (
		msg NewMessage
		err error
	)

	if msg.SenderID, err = formID(r, "sender_id"); err != nil {
		return err
	}

	if msg.ReceiverID, err = formID(r, "receiver_id"); err != nil {
		return err
	}

	if msg.Audio, err = formFile(r, "audio_file"); err != nil {
		return err
	}

	if msg.Media, err = formFile(r, "media_file"); err != nil {
		return err
	}

	msg.TextNote = formString(r, "text_note")

	record, err := ht.svc.SendMessage(r.Context(), callerID(r.Context()), msg)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, messageEnvelope{
		Message:     "Message sent",
		MessageData: newMessageResponse(record, ht.baseURL(r)),
	})
}

func (ht *HTTPTransport) handleGetMessages(w http.ResponseWriter, r *http.Request) error {
	user1ID, err := pathID(r, "id")
	if err != nil {
		return err
	}

	user2ID, err := pathID(r, "peerID")
	if err != nil {
		return err
	}

	messages, err := ht.svc.Conversation(r.Context(), user1ID, user2ID)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, newMessageResponses(messages, ht.baseURL(r)))
}

func (ht *HTTPTransport) handleUpdateMessage(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := ht.parseForm(w, r); err != nil {
		return err
	}

	//nolint:exhaustruct
	update := MessageUpdate{TextNote: formString(r, "text_note")}

	if update.Audio, err = formFile(r, "audio_file"); err != nil {
		return err
	}

	if update.Media, err = formFile(r, "media_file"); err != nil {
		return err
	}

	record, err := ht.svc.UpdateMessage(r.Context(), callerID(r.Context()), id, update)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, messageEnvelope{
		Message:     "Message updated",
		MessageData: newMessageResponse(record, ht.baseURL(r)),
	})
}

func (ht *HTTPTransport) handleDeleteAudio(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	record, err := ht.svc.DeleteAudio(r.Context(), callerID(r.Context()), id)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, messageEnvelope{
		Message:     "Audio deleted",
		MessageData: newMessageResponse(record, ht.baseURL(r)),
	})
}

func (ht *HTTPTransport) handleDeleteMessage(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := ht.svc.DeleteMessage(r.Context(), callerID(r.Context()), id); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, noticeResponse{Message: fmt.Sprintf("Message %d deleted", id)})
}

func writeDownload(w http.ResponseWriter, download *domain.Download) error {
	w.Header().Set(transport.ContentTypeHeader, download.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(download.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(download.Data); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func (ht *HTTPTransport) handleDownloadUpload(w http.ResponseWriter, r *http.Request) error {
	download, err := ht.svc.Picture(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		return err
	}

	return writeDownload(w, download)
}

func (ht *HTTPTransport) handleDownloadAudio(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	download, err := ht.svc.Audio(r.Context(), id)
	if err != nil {
		return err
	}

	return writeDownload(w, download)
}

func (ht *HTTPTransport) handleDownloadMedia(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	download, err := ht.svc.Media(r.Context(), id)
	if err != nil {
		return err
	}

	return writeDownload(w, download)
}
