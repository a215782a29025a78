package chat

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrMessageNotFound = errors.New("message not found")
	ErrClosed          = errors.New("repository closed")
)

// UserRecord is a stored account of the fake chat backend.
type UserRecord struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash []byte
	// Picture is the blob key of the profile picture, "" if none.
	Picture   string
	CreatedAt time.Time
}

// UserChanges holds the fields of a user update. Nil fields are kept.
type UserChanges struct {
	Email        *string
	Username     *string
	PasswordHash []byte
	Picture      *string
}

// MessageRecord is a stored voice message. Audio and Media are blob keys.
type MessageRecord struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	TextNote   *string
	Audio      string
	AudioType  string
	Media      string
	MediaType  string
	Timestamp  time.Time
}

// MessageChanges holds the parts of a message update. Nil parts are kept;
// a pointer to "" clears a file.
type MessageChanges struct {
	TextNote  *string
	Audio     *string
	AudioType string
	Media     *string
	MediaType string
}

// Repository persists users and messages of the fake chat backend.
type Repository interface {
	// CreateUser stores a new user and sets its ID.
	// Returns ErrEmailTaken if the email is already registered.
	CreateUser(ctx context.Context, user *UserRecord) error

	// GetUser returns the user with the given ID or ErrUserNotFound.
	GetUser(ctx context.Context, id int64) (*UserRecord, error)

	// GetUserByEmail returns the user with the given email or ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)

	// ListUsers returns every user ordered by ID.
	ListUsers(ctx context.Context) ([]*UserRecord, error)

	// UpdateUser applies changes and returns the updated user.
	UpdateUser(ctx context.Context, id int64, changes UserChanges) (*UserRecord, error)

	// DeleteUser removes a user together with the messages it sent or received.
	DeleteUser(ctx context.Context, id int64) error

	// CreateMessage stores a new message and sets its ID.
	CreateMessage(ctx context.Context, msg *MessageRecord) error

	// GetMessage returns the message with the given ID or ErrMessageNotFound.
	GetMessage(ctx context.Context, id int64) (*MessageRecord, error)

	// ListConversation returns the messages exchanged by two users, oldest first.
	ListConversation(ctx context.Context, user1ID, user2ID int64) ([]*MessageRecord, error)

	// UpdateMessage applies changes and returns the updated message.
	UpdateMessage(ctx context.Context, id int64, changes MessageChanges) (*MessageRecord, error)

	// DeleteMessage removes a message.
	DeleteMessage(ctx context.Context, id int64) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func() (Repository, error)
