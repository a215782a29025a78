package chatsvc

import (
	"context"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
)

// ChatService is the repository of the chat client. It validates input,
// attaches the stored token, coerces payloads into domain values and keeps
// the session in sync with login, registration and account deletion.
//
// Calls that need a token fail with a domain.KindMissingCredential failure
// wrapping domain.ErrNoToken or domain.ErrTokenExpired, without sending any
// request.
type ChatService interface {
	// Login authenticates and stores the returned token and user ID.
	Login(ctx context.Context, email, password string) (domain.User, error)
	// Register creates a user and stores the returned token, if any.
	Register(ctx context.Context, registration Registration) (domain.User, error)
	// Logout forgets the stored session. No request is sent.
	Logout(ctx context.Context) error
	// GetAllUsers lists every user. Malformed elements are skipped.
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	// GetUserProfile returns one user.
	GetUserProfile(ctx context.Context, userID int64) (domain.User, error)
	// UpdateUserProfile changes the given fields of a user.
	UpdateUserProfile(ctx context.Context, userID int64, update chatclient.UserUpdate) (domain.User, error)
	// DeleteAccount deletes a user and forgets the stored session.
	DeleteAccount(ctx context.Context, userID int64) error
	// GetChatMessages returns the conversation of two users. Malformed elements are skipped.
	GetChatMessages(ctx context.Context, user1ID, user2ID int64) ([]domain.Message, error)
	// SendMessage posts a voice message.
	SendMessage(ctx context.Context, req chatclient.SendMessageRequest) (domain.Message, error)
	// UpdateMessage changes the given parts of a message.
	UpdateMessage(ctx context.Context, messageID int64, update chatclient.MessageUpdate) (domain.Message, error)
	// DeleteAudio removes the recording of a message.
	DeleteAudio(ctx context.Context, messageID int64) (domain.Message, error)
	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, messageID int64) error
	// DownloadUpload fetches a file stored under /uploads.
	DownloadUpload(ctx context.Context, filename string) (*domain.Download, error)
	// DownloadAudio fetches the recording of a message.
	DownloadAudio(ctx context.Context, messageID int64) (*domain.Download, error)
	// DownloadMedia fetches the attachment of a message.
	DownloadMedia(ctx context.Context, messageID int64) (*domain.Download, error)
	// CurrentUserID returns the ID of the logged in user, if known.
	CurrentUserID(ctx context.Context) (int64, bool, error)
}
