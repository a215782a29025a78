package chat

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepository implements Repository in process memory.
// Users and messages do not survive a restart.
type MemoryRepository struct {
	mu            sync.RWMutex
	users         map[int64]UserRecord
	messages      map[int64]MessageRecord
	lastUserID    int64
	lastMessageID int64
	closed        bool
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepositoryFactory returns a factory creating empty MemoryRepository instances.
func MemoryRepositoryFactory() RepositoryFactory {
	return func() (Repository, error) {
		return NewMemoryRepository(), nil
	}
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int64]UserRecord),
		messages: make(map[int64]MessageRecord),
	}
}

func (r *MemoryRepository) emailTaken(email string, except int64) bool {
	for id, user := range r.users {
		if id != except && user.Email == email {
			return true
		}
	}

	return false
}

// CreateUser implements Repository.CreateUser.
func (r *MemoryRepository) CreateUser(_ context.Context, user *UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if r.emailTaken(user.Email, 0) {
		return ErrEmailTaken
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	r.lastUserID++
	user.ID = r.lastUserID

	stored := *user
	stored.PasswordHash = slices.Clone(user.PasswordHash)
	r.users[user.ID] = stored

	return nil
}

func (r *MemoryRepository) getUser(id int64) (*UserRecord, error) {
	if r.closed {
		return nil, ErrClosed
	}

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	user.PasswordHash = slices.Clone(user.PasswordHash)

	return &user, nil
}

// GetUser implements Repository.GetUser.
func (r *MemoryRepository) GetUser(_ context.Context, id int64) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getUser(id)
}

// GetUserByEmail implements Repository.GetUserByEmail.
func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	for id, user := range r.users {
		if user.Email == email {
			return r.getUser(id)
		}
	}

	return nil, ErrUserNotFound
}

// ListUsers implements Repository.ListUsers.
func (r *MemoryRepository) ListUsers(_ context.Context) ([]*UserRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	users := make([]*UserRecord, 0, len(r.users))

	for id := range r.users {
		user, _ := r.getUser(id)
		users = append(users, user)
	}

	slices.SortFunc(users, func(a, b *UserRecord) int { return int(a.ID - b.ID) })

	return users, nil
}

// UpdateUser implements Repository.UpdateUser.
func (r *MemoryRepository) UpdateUser(_ context.Context, id int64, changes UserChanges) (*UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := r.getUser(id)
	if err != nil {
		return nil, err
	}

	if changes.Email != nil {
		if r.emailTaken(*changes.Email, id) {
			return nil, ErrEmailTaken
		}

		user.Email = *changes.Email
	}

	if changes.Username != nil {
		user.Username = *changes.Username
	}

	if changes.PasswordHash != nil {
		user.PasswordHash = slices.Clone(changes.PasswordHash)
	}

	if changes.Picture != nil {
		user.Picture = *changes.Picture
	}

	r.users[id] = *user

	return r.getUser(id)
}

// DeleteUser implements Repository.DeleteUser.
func (r *MemoryRepository) DeleteUser(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getUser(id); err != nil {
		return err
	}

	delete(r.users, id)

	for msgID, msg := range r.messages {
		if msg.SenderID == id || msg.ReceiverID == id {
			delete(r.messages, msgID)
		}
	}

	return nil
}

// CreateMessage implements Repository.CreateMessage.
func (r *MemoryRepository) CreateMessage(_ context.Context, msg *MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	r.lastMessageID++
	msg.ID = r.lastMessageID
	r.messages[msg.ID] = copyMessage(msg)

	return nil
}

func copyMessage(msg *MessageRecord) MessageRecord {
	stored := *msg
	if msg.TextNote != nil {
		note := *msg.TextNote
		stored.TextNote = &note
	}

	return stored
}

func (r *MemoryRepository) getMessage(id int64) (*MessageRecord, error) {
	if r.closed {
		return nil, ErrClosed
	}

	msg, ok := r.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}

	stored := copyMessage(&msg)

	return &stored, nil
}

// GetMessage implements Repository.GetMessage.
func (r *MemoryRepository) GetMessage(_ context.Context, id int64) (*MessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.getMessage(id)
}

// ListConversation implements Repository.ListConversation.
func (r *MemoryRepository) ListConversation(_ context.Context, user1ID, user2ID int64) ([]*MessageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	messages := []*MessageRecord{}

	for id, msg := range r.messages {
		if (msg.SenderID == user1ID && msg.ReceiverID == user2ID) ||
			(msg.SenderID == user2ID && msg.ReceiverID == user1ID) {
			stored, _ := r.getMessage(id)
			messages = append(messages, stored)
		}
	}

	slices.SortFunc(messages, func(a, b *MessageRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}

		return int(a.ID - b.ID)
	})

	return messages, nil
}

// UpdateMessage implements Repository.UpdateMessage.
func (r *MemoryRepository) UpdateMessage(_ context.Context, id int64, changes MessageChanges) (*MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg, err := r.getMessage(id)
	if err != nil {
		return nil, err
	}

	if changes.TextNote != nil {
		note := *changes.TextNote
		msg.TextNote = &note
	}

	if changes.Audio != nil {
		msg.Audio, msg.AudioType = *changes.Audio, changes.AudioType
	}

	if changes.Media != nil {
		msg.Media, msg.MediaType = *changes.Media, changes.MediaType
	}

	r.messages[id] = *msg

	return r.getMessage(id)
}

// DeleteMessage implements Repository.DeleteMessage.
func (r *MemoryRepository) DeleteMessage(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getMessage(id); err != nil {
		return err
	}

	delete(r.messages, id)

	return nil
}

// Close implements Repository.Close.
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}
