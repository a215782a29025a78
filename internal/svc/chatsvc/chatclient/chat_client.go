package chatclient

import (
	"context"

	"github.com/mkrupp/voicechat/internal/domain"
)

// ChatClient is the remote data source of the chat backend. Payloads are
// returned loosely typed, as decoded from JSON; turning them into domain
// values is left to the caller.
//
// Every auth parameter is an Authorization header value. Both "Bearer <t>"
// and a bare token are accepted.
type ChatClient interface {
	// Login exchanges credentials for a token and a user payload.
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	// Register creates a user. picture may be nil.
	Register(ctx context.Context, username, email, password string, picture *domain.File) (*RegisterResponse, error)
	// GetAllUsers returns every user payload. Elements are not guaranteed to be objects.
	GetAllUsers(ctx context.Context) ([]any, error)
	// GetUser returns the payload of one user.
	GetUser(ctx context.Context, userID int64, auth string) (map[string]any, error)
	// UpdateUser changes the given fields of a user.
	UpdateUser(ctx context.Context, userID int64, update UserUpdate, auth string) (map[string]any, error)
	// DeleteUser deletes a user. An empty response yields an empty map.
	DeleteUser(ctx context.Context, userID int64, auth string) (map[string]any, error)
	// GetChatMessages returns the messages exchanged by two users.
	GetChatMessages(ctx context.Context, user1ID, user2ID int64, auth string) ([]any, error)
	// SendMessage posts a voice message. auth may be empty.
	SendMessage(ctx context.Context, req SendMessageRequest, auth string) (*MessageResponse, error)
	// UpdateMessage changes the given parts of a message.
	UpdateMessage(ctx context.Context, messageID int64, update MessageUpdate, auth string) (*MessageResponse, error)
	// DeleteAudio removes the recording of a message.
	DeleteAudio(ctx context.Context, messageID int64, auth string) (*MessageResponse, error)
	// DeleteMessage removes a message and its files.
	DeleteMessage(ctx context.Context, messageID int64, auth string) (map[string]any, error)
	// DownloadUpload fetches a file stored under /uploads.
	DownloadUpload(ctx context.Context, filename string) (*domain.Download, error)
	// DownloadAudio fetches the recording of a message.
	DownloadAudio(ctx context.Context, messageID int64) (*domain.Download, error)
	// DownloadMedia fetches the attachment of a message.
	DownloadMedia(ctx context.Context, messageID int64) (*domain.Download, error)
}

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	Token   *string        `json:"token,omitempty"`
	Message *string        `json:"message,omitempty"`
	User    map[string]any `json:"user,omitempty"`
}

// RegisterResponse is the payload of a successful registration.
type RegisterResponse struct {
	// Success is true unless the server explicitly reports otherwise.
	Success bool           `json:"success"`
	Message *string        `json:"message,omitempty"`
	User    map[string]any `json:"user,omitempty"`
	Token   *string        `json:"token,omitempty"`
}

// MessageResponse is a message returned by the backend, either bare or
// wrapped as {"message": "...", "message_data": {...}}.
type MessageResponse struct {
	Message domain.Message
	// Notice is the human readable "message" text of the response, if any.
	Notice *string
}

// UserUpdate holds the fields of a profile update. Nil fields are not sent.
type UserUpdate struct {
	Username      *string
	Email         *string
	Password      *string
	Picture       *domain.File
	RemoveProfile bool
}

// MessageUpdate holds the parts of a message update. Nil parts are not sent.
type MessageUpdate struct {
	TextNote *string
	Media    *domain.File
	Audio    *domain.File
}

// SendMessageRequest describes a new voice message. Audio is required.
type SendMessageRequest struct {
	SenderID   int64
	ReceiverID int64
	Audio      *domain.File
	Media      *domain.File
	TextNote   *string
}
