package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/metrics"
	"github.com/mkrupp/voicechat/internal/infra/transport/fallback"
	transport "github.com/mkrupp/voicechat/internal/infra/transport/http"
	"github.com/mkrupp/voicechat/internal/svc/imagesvc"
	"github.com/mkrupp/voicechat/internal/util/mimetype"
)

// Operation names, used as failure message prefixes.
const (
	OpLogin         = "Login"
	OpRegister      = "Register"
	OpGetUsers      = "Get users"
	OpGetUser       = "Get user"
	OpUpdateUser    = "Update user"
	OpDeleteUser    = "Delete user"
	OpGetMessages   = "Get chat messages"
	OpSendMessage   = "Send message"
	OpUpdateMessage = "Update message"
	OpDeleteAudio   = "Delete audio"
	OpDeleteMessage = "Delete message"
	OpDownload      = "Download"
)

// Multipart field names.
const (
	FieldUsername       = "username"
	FieldEmail          = "email"
	FieldPassword       = "password"
	FieldProfilePicture = "profile_picture"
	FieldRemoveProfile  = "remove_profile"
	FieldSenderID       = "sender_id"
	FieldReceiverID     = "receiver_id"
	FieldAudioFile      = "audio_file"
	FieldMediaFile      = "media_file"
	FieldTextNote       = "text_note"
)

var (
	// ErrAudioRequired is returned when a message is sent without a recording.
	ErrAudioRequired = errors.New("audio file is required")
	// ErrInvalidJSON is returned when a response body cannot be decoded.
	ErrInvalidJSON = errors.New("invalid JSON")
)

// HTTPClientConfig holds configuration for the chat backend client.
type HTTPClientConfig struct {
	// Picture controls how profile pictures are prepared before upload
	Picture imagesvc.ImageConfig `envPrefix:"PICTURE_"`
}

// HTTPClient implements ChatClient on top of a transport.Doer. Calls whose
// accepted method or auth header format is uncertain go through a
// fallback.Executor.
type HTTPClient struct {
	doer     transport.Doer
	executor *fallback.Executor
	pictures imagesvc.ImageService
	log      logging.Logger
}

var _ ChatClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient. m may be nil.
func NewHTTPClient(cfg HTTPClientConfig, doer transport.Doer, m *metrics.ClientMetrics) (*HTTPClient, error) {
	pictures, err := imagesvc.NewResizingImageService(cfg.Picture)
	if err != nil {
		return nil, fmt.Errorf("new image service: %w", err)
	}

	return &HTTPClient{
		doer:     doer,
		executor: fallback.NewExecutor(doer, m),
		pictures: pictures,
		log:      logging.GetLogger("svc.chatsvc.chatclient"),
	}, nil
}

// Login implements ChatClient.Login.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := c.direct(ctx, OpLogin, transport.Request{
		Method: http.MethodPost,
		Path:   "/login",
		JSON:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}

	object, err := decodeObject(OpLogin, resp.Body)
	if err != nil {
		return nil, err
	}

	user, _ := object["user"].(map[string]any)

	return &LoginResponse{
		Token:   domain.OptionalString(object, "token"),
		Message: domain.OptionalString(object, "message"),
		User:    user,
	}, nil
}

// Register implements ChatClient.Register.
func (c *HTTPClient) Register(
	ctx context.Context,
	username, email, password string,
	picture *domain.File,
) (*RegisterResponse, error) {
	parts := []transport.Part{
		transport.TextPart(FieldUsername, username),
		transport.TextPart(FieldEmail, email),
		transport.TextPart(FieldPassword, password),
	}

	picturePart, err := c.picturePart(ctx, OpRegister, picture)
	if err != nil {
		return nil, err
	}

	if picturePart != nil {
		parts = append(parts, *picturePart)
	}

	resp, err := c.direct(ctx, OpRegister, transport.Request{
		Method: http.MethodPost,
		Path:   "/register",
		Parts:  parts,
	})
	if err != nil {
		return nil, err
	}

	object, err := decodeObject(OpRegister, resp.Body)
	if err != nil {
		return nil, err
	}

	success, ok := object["success"].(bool)
	if !ok {
		success = true
	}

	user, _ := object["user"].(map[string]any)

	return &RegisterResponse{
		Success: success,
		Message: domain.OptionalString(object, "message"),
		User:    user,
		Token:   domain.OptionalString(object, "token"),
	}, nil
}

// GetAllUsers implements ChatClient.GetAllUsers.
func (c *HTTPClient) GetAllUsers(ctx context.Context) ([]any, error) {
	resp, err := c.direct(ctx, OpGetUsers, transport.Request{Method: http.MethodGet, Path: "/users"})
	if err != nil {
		return nil, err
	}

	return decodeList(OpGetUsers, resp.Body)
}

// GetUser implements ChatClient.GetUser.
func (c *HTTPClient) GetUser(ctx context.Context, userID int64, auth string) (map[string]any, error) {
	plan := fallback.Single(OpGetUser, http.MethodGet, userPath(userID), true)

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{})
	if err != nil {
		return nil, err
	}

	return decodeObject(OpGetUser, resp.Body)
}

// UpdateUser implements ChatClient.UpdateUser. PATCH is tried first, then
// PUT and finally POST on the same path.
func (c *HTTPClient) UpdateUser(
	ctx context.Context,
	userID int64,
	update UserUpdate,
	auth string,
) (map[string]any, error) {
	var parts []transport.Part

	parts = appendText(parts, FieldUsername, update.Username)
	parts = appendText(parts, FieldEmail, update.Email)
	parts = appendText(parts, FieldPassword, update.Password)

	picturePart, err := c.picturePart(ctx, OpUpdateUser, update.Picture)
	if err != nil {
		return nil, err
	}

	if picturePart != nil {
		parts = append(parts, *picturePart)
	}

	if update.RemoveProfile {
		parts = append(parts, transport.TextPart(FieldRemoveProfile, "true"))
	}

	path := userPath(userID)
	plan := fallback.Single(OpUpdateUser, http.MethodPatch, path, true).
		Then(http.MethodPut, path).
		Then(http.MethodPost, path)

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{Parts: parts})
	if err != nil {
		return nil, err
	}

	return decodeObject(OpUpdateUser, resp.Body)
}

// DeleteUser implements ChatClient.DeleteUser. DELETE is tried first, then
// POST on the /delete sub-path.
func (c *HTTPClient) DeleteUser(ctx context.Context, userID int64, auth string) (map[string]any, error) {
	path := userPath(userID)
	plan := fallback.Single(OpDeleteUser, http.MethodDelete, path, false).
		Then(http.MethodPost, path+"/delete")

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{})
	if err != nil {
		return nil, err
	}

	return decodeOptionalObject(OpDeleteUser, resp.Body)
}

// GetChatMessages implements ChatClient.GetChatMessages. An empty body is an
// empty conversation.
func (c *HTTPClient) GetChatMessages(ctx context.Context, user1ID, user2ID int64, auth string) ([]any, error) {
	path := "/messages/" + strconv.FormatInt(user1ID, 10) + "/" + strconv.FormatInt(user2ID, 10)
	plan := fallback.Single(OpGetMessages, http.MethodGet, path, false)

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{})
	if err != nil {
		return nil, err
	}

	return decodeList(OpGetMessages, resp.Body)
}

// SendMessage implements ChatClient.SendMessage.
func (c *HTTPClient) SendMessage(ctx context.Context, req SendMessageRequest, auth string) (*MessageResponse, error) {
	if req.Audio == nil {
		return nil, domain.NewFailure(domain.KindValidation, OpSendMessage,
			OpSendMessage+" failed: "+ErrAudioRequired.Error(), ErrAudioRequired)
	}

	parts := []transport.Part{
		transport.TextPart(FieldSenderID, strconv.FormatInt(req.SenderID, 10)),
		transport.TextPart(FieldReceiverID, strconv.FormatInt(req.ReceiverID, 10)),
		transport.FilePart(FieldAudioFile, req.Audio, mimetype.Audio(req.Audio.Name)),
	}

	if req.Media != nil {
		parts = append(parts, transport.FilePart(FieldMediaFile, req.Media, mimetype.Media(req.Media.Name)))
	}

	parts = appendText(parts, FieldTextNote, req.TextNote)

	plan := fallback.Single(OpSendMessage, http.MethodPost, "/messages", true)

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{Parts: parts})
	if err != nil {
		return nil, statusFailure(err)
	}

	return decodeMessage(OpSendMessage, resp.Body)
}

// UpdateMessage implements ChatClient.UpdateMessage.
func (c *HTTPClient) UpdateMessage(
	ctx context.Context,
	messageID int64,
	update MessageUpdate,
	auth string,
) (*MessageResponse, error) {
	var parts []transport.Part

	parts = appendText(parts, FieldTextNote, update.TextNote)

	if update.Media != nil {
		parts = append(parts, transport.FilePart(FieldMediaFile, update.Media, mimetype.Media(update.Media.Name)))
	}

	if update.Audio != nil {
		parts = append(parts, transport.FilePart(FieldAudioFile, update.Audio, mimetype.Audio(update.Audio.Name)))
	}

	plan := fallback.Single(OpUpdateMessage, http.MethodPatch, messagePath(messageID), true)

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{Parts: parts})
	if err != nil {
		return nil, err
	}

	return decodeMessage(OpUpdateMessage, resp.Body)
}

// DeleteAudio implements ChatClient.DeleteAudio. DELETE is tried first, then
// POST on the /delete sub-path.
func (c *HTTPClient) DeleteAudio(ctx context.Context, messageID int64, auth string) (*MessageResponse, error) {
	path := audioPath(messageID)
	plan := fallback.Single(OpDeleteAudio, http.MethodDelete, path, true).
		Then(http.MethodPost, path+"/delete")

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{})
	if err != nil {
		return nil, err
	}

	return decodeMessage(OpDeleteAudio, resp.Body)
}

// DeleteMessage implements ChatClient.DeleteMessage.
func (c *HTTPClient) DeleteMessage(ctx context.Context, messageID int64, auth string) (map[string]any, error) {
	path := messagePath(messageID)
	plan := fallback.Single(OpDeleteMessage, http.MethodDelete, path, false).
		Then(http.MethodPost, path+"/delete")

	resp, err := c.executor.Execute(ctx, plan, auth, transport.Request{})
	if err != nil {
		return nil, err
	}

	return decodeOptionalObject(OpDeleteMessage, resp.Body)
}

// DownloadUpload implements ChatClient.DownloadUpload.
func (c *HTTPClient) DownloadUpload(ctx context.Context, filename string) (*domain.Download, error) {
	return c.download(ctx, "/uploads/"+url.PathEscape(filename))
}

// DownloadAudio implements ChatClient.DownloadAudio.
func (c *HTTPClient) DownloadAudio(ctx context.Context, messageID int64) (*domain.Download, error) {
	return c.download(ctx, audioPath(messageID))
}

// DownloadMedia implements ChatClient.DownloadMedia.
func (c *HTTPClient) DownloadMedia(ctx context.Context, messageID int64) (*domain.Download, error) {
	return c.download(ctx, "/media/media/"+strconv.FormatInt(messageID, 10))
}

func (c *HTTPClient) download(ctx context.Context, path string) (*domain.Download, error) {
	resp, err := c.doer.Do(ctx, transport.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, domain.NewFailure(domain.KindTransport, OpDownload, OpDownload+" failed: "+err.Error(), err)
	}

	if !resp.OK() {
		failure := domain.NewFailure(domain.KindHTTP, OpDownload, fmt.Sprintf("%s failed: %d", OpDownload, resp.Status), nil)
		failure.Status = resp.Status
		failure.Body = string(resp.Body)

		return nil, failure
	}

	contentType := resp.Header.Get(transport.ContentTypeHeader)
	if contentType == "" {
		contentType = mimetype.OctetStream
	}

	return &domain.Download{Data: resp.Body, ContentType: contentType}, nil
}

// direct sends a request once, without auth or method fallback. Non-2xx
// responses fail with "<op> failed: <status> <body>".
func (c *HTTPClient) direct(ctx context.Context, op string, req transport.Request) (resp *transport.Response, err error) {
	defer func() {
		if err != nil {
			c.log.DebugContext(ctx, "request failed", logging.Group("request",
				"op", op,
				"method", req.Method,
				"path", req.Path,
			), "error", err)
		}
	}()

	resp, err = c.doer.Do(ctx, req)
	if err != nil {
		return nil, domain.NewFailure(domain.KindTransport, op, op+" failed: "+err.Error(), err)
	}

	if !resp.OK() {
		failure := domain.NewFailure(domain.KindHTTP, op, fmt.Sprintf("%s failed: %d %s", op, resp.Status, resp.Text()), nil)
		failure.Status = resp.Status
		failure.Body = string(resp.Body)

		return nil, failure
	}

	return resp, nil
}

func (c *HTTPClient) picturePart(ctx context.Context, op string, picture *domain.File) (*transport.Part, error) {
	if picture == nil {
		return nil, nil //nolint:nilnil
	}

	prepared, err := c.pictures.Prepare(ctx, picture)
	if err != nil {
		return nil, domain.NewFailure(domain.KindValidation, op, op+" failed: "+err.Error(), err)
	}

	part := transport.FilePart(FieldProfilePicture, prepared, mimetype.Picture(prepared.Name))

	return &part, nil
}

// statusFailure rewrites an HTTP failure of a single attempt to the
// "<op> failed: <status> <body>" form used by direct requests. Failures of
// several attempts keep every attempt's text.
func statusFailure(err error) error {
	var failure *domain.Failure
	if !errors.As(err, &failure) || failure.Kind != domain.KindHTTP || failure.Status == 0 || len(failure.Attempts) > 1 {
		return err
	}

	rewritten := domain.NewFailure(failure.Kind, failure.Op,
		fmt.Sprintf("%s failed: %d %s", failure.Op, failure.Status, failure.Body), failure.Err)
	rewritten.Status = failure.Status
	rewritten.Body = failure.Body
	rewritten.Attempts = failure.Attempts

	return rewritten
}

func appendText(parts []transport.Part, name string, value *string) []transport.Part {
	if value == nil {
		return parts
	}

	return append(parts, transport.TextPart(name, *value))
}

func userPath(userID int64) string {
	return "/users/" + strconv.FormatInt(userID, 10)
}

func messagePath(messageID int64) string {
	return "/messages/" + strconv.FormatInt(messageID, 10)
}

func audioPath(messageID int64) string {
	return "/media/audio/" + strconv.FormatInt(messageID, 10)
}

// decodeLoose decodes a JSON document keeping numbers as json.Number.
func decodeLoose(op string, body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidJSON, err)

		return nil, domain.NewFailure(domain.KindCoercion, op, op+" failed: "+err.Error(), err)
	}

	return value, nil
}

func decodeObject(op string, body []byte) (map[string]any, error) {
	value, err := decodeLoose(op, body)
	if err != nil {
		return nil, err
	}

	return domain.AsObject(value, op)
}

func decodeOptionalObject(op string, body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}

	return decodeObject(op, body)
}

func decodeList(op string, body []byte) ([]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return []any{}, nil
	}

	value, err := decodeLoose(op, body)
	if err != nil {
		return nil, err
	}

	switch list := value.(type) {
	case []any:
		return list, nil
	case nil:
		return []any{}, nil
	default:
		return nil, domain.NewFailure(domain.KindCoercion, op,
			fmt.Sprintf("%s failed: expected a JSON array (got %T)", op, value), ErrInvalidJSON)
	}
}

func decodeMessage(op string, body []byte) (*MessageResponse, error) {
	object, err := decodeObject(op, body)
	if err != nil {
		return nil, err
	}

	response := &MessageResponse{Notice: domain.OptionalString(object, "message")}

	if wrapped, ok := object["message_data"].(map[string]any); ok {
		object = wrapped
	}

	message, err := domain.CoerceMessage(object)
	if err != nil {
		return nil, err
	}

	response.Message = message

	return response, nil
}
