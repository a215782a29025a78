package fakesvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	transport "github.com/mkrupp/voicechat/internal/infra/transport/http"
	"github.com/mkrupp/voicechat/internal/repo/chat"
)

// isoLayout matches the timestamps the chat backend emits.
const isoLayout = "2006-01-02T15:04:05.999999"

type userResponse struct {
	ID                int64   `json:"id"`
	Email             string  `json:"email"`
	Username          string  `json:"username"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	CreatedAt         string  `json:"created_at"`
}

type messageResponse struct {
	ID         int64   `json:"id"`
	SenderID   int64   `json:"sender_id"`
	ReceiverID int64   `json:"receiver_id"`
	TextNote   *string `json:"text_note"`
	AudioURL   *string `json:"audio_url"`
	MediaURL   *string `json:"media_url"`
	Timestamp  string  `json:"timestamp"`
}

type authResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user"`
	Token   string        `json:"token,omitempty"`
}

type messageEnvelope struct {
	Message     string           `json:"message"`
	MessageData *messageResponse `json:"message_data"`
}

type noticeResponse struct {
	Message string `json:"message"`
}

func newUserResponse(user *chat.UserRecord, baseURL string) *userResponse {
	//nolint:exhaustruct
	resp := &userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.UTC().Format(isoLayout),
	}

	if user.Picture != "" {
		pictureURL := baseURL + "/uploads/" + url.PathEscape(user.Picture)
		resp.ProfilePictureURL = &pictureURL
	}

	return resp
}

func newUserResponses(users []*chat.UserRecord, baseURL string) []*userResponse {
	resp := make([]*userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, newUserResponse(user, baseURL))
	}

	return resp
}

func newMessageResponse(msg *chat.MessageRecord, baseURL string) *messageResponse {
	//nolint:exhaustruct
	resp := &messageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		TextNote:   msg.TextNote,
		Timestamp:  msg.Timestamp.UTC().Format(isoLayout),
	}

	if msg.Audio != "" {
		audioURL := fmt.Sprintf("%s/media/audio/%d", baseURL, msg.ID)
		resp.AudioURL = &audioURL
	}

	if msg.Media != "" {
		mediaURL := fmt.Sprintf("%s/media/media/%d", baseURL, msg.ID)
		resp.MediaURL = &mediaURL
	}

	return resp
}

func newMessageResponses(messages []*chat.MessageRecord, baseURL string) []*messageResponse {
	resp := make([]*messageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, newMessageResponse(msg, baseURL))
	}

	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set(transport.ContentTypeHeader, transport.ContentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

const htmlErrorPage = `<!doctype html>
<html lang=en>
<title>%[1]d %[2]s</title>
<h1>%[2]s</h1>
<p>%[3]s</p>
`

// writeHTMLError answers like a framework default error page.
func writeHTMLError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set(transport.ContentTypeHeader, "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, _ = fmt.Fprintf(w, htmlErrorPage, status, http.StatusText(status), strings.TrimSpace(detail))
}
